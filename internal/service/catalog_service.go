package service

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/events"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// ActiveServicesKey is the cache key of the active listing.
const ActiveServicesKey = "services:active"

// ListingCache caches the active services projection.
type ListingCache interface {
	Get(ctx context.Context, key string) ([]domain.Service, bool)
	Set(ctx context.Context, key string, value []domain.Service)
	Delete(ctx context.Context, key string)
}

// CatalogService manages listed services and their ownership toggles.
type CatalogService struct {
	store      repository.Store
	cache      ListingCache
	dispatcher events.Dispatcher
	logger     *zap.Logger
	// generation counts invalidations so a listing read before a write is never cached after it.
	generation atomic.Uint64
}

// CatalogDependencies bundles collaborators for the catalog service.
type CatalogDependencies struct {
	Store      repository.Store
	Cache      ListingCache
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// ServiceCreateInput describes a new listing.
type ServiceCreateInput struct {
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Deadline    int
}

// NewCatalogService constructs the service. A nil cache disables caching.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		store:      deps.Store,
		cache:      deps.Cache,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// Create lists a new active service owned by creatorEmail.
func (s *CatalogService) Create(ctx context.Context, creatorEmail string, input ServiceCreateInput) (*domain.Service, error) {
	if strings.TrimSpace(input.Name) == "" || strings.TrimSpace(input.Category) == "" {
		return nil, apperrors.NewUnprocessable("serviceName and category are required", nil)
	}
	if !input.Price.IsPositive() {
		return nil, apperrors.NewUnprocessable("price must be greater than zero", map[string]any{"field": "price"})
	}
	if input.Deadline <= 0 {
		return nil, apperrors.NewUnprocessable("deadline must be greater than zero", map[string]any{"field": "deadline"})
	}
	if !domain.FitsPrice(input.Price, domain.MaxServicePrice) {
		return nil, apperrors.NewValidationError("price must have at most two decimal places and be below 10000000000",
			map[string]any{"field": "price"})
	}
	if input.Deadline > domain.MaxColumnInt {
		return nil, apperrors.NewValidationError("deadline is too large", map[string]any{"field": "deadline"})
	}

	creatorEmail = domain.NormalizeEmail(creatorEmail)
	creator, err := s.store.Users().GetByEmail(ctx, creatorEmail)
	if err != nil {
		return nil, notFoundOr(err, "creator", map[string]any{"creatorEmail": creatorEmail})
	}

	service := &domain.Service{
		Creator:      creator.Name,
		CreatorEmail: creator.Email,
		Name:         strings.TrimSpace(input.Name),
		Description:  strings.TrimSpace(input.Description),
		Category:     strings.TrimSpace(input.Category),
		Price:        input.Price,
		Deadline:     input.Deadline,
		IsActive:     true,
	}
	if err := s.store.Services().Create(ctx, service); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.invalidate(ctx)
	s.publish(ctx, events.EventServiceCreated, service)
	s.logger.Info("service created", zap.Int64("service_id", service.ID), zap.String("creator_email", service.CreatorEmail))
	return service, nil
}

// ListActive returns purchasable services, newest first.
func (s *CatalogService) ListActive(ctx context.Context) ([]domain.Service, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, ActiveServicesKey); ok {
			return cached, nil
		}
	}
	generation := s.generation.Load()
	active := true
	services, err := s.store.Services().List(ctx, repository.ServiceFilter{Active: &active})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.fill(ctx, generation, services)
	return services, nil
}

// fill caches services read at generation unless a write has invalidated
// the listing since. A write racing the Set removes the entry again.
func (s *CatalogService) fill(ctx context.Context, generation uint64, services []domain.Service) {
	if s.cache == nil || s.generation.Load() != generation {
		return
	}
	s.cache.Set(ctx, ActiveServicesKey, services)
	if s.generation.Load() != generation {
		s.cache.Delete(ctx, ActiveServicesKey)
	}
}

// ListByCreatorEmail returns every service owned by email, active or not.
func (s *CatalogService) ListByCreatorEmail(ctx context.Context, email string) ([]domain.Service, error) {
	email = domain.NormalizeEmail(email)
	services, err := s.store.Services().List(ctx, repository.ServiceFilter{CreatorEmail: &email})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return services, nil
}

// ListByCreatorName resolves name to a user and lists the services they own.
// NotFound when no user carries that name.
func (s *CatalogService) ListByCreatorName(ctx context.Context, name string) ([]domain.Service, error) {
	user, err := s.store.Users().GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, notFoundOr(err, "creator", map[string]any{"creator": name})
	}
	services, err := s.store.Services().List(ctx, repository.ServiceFilter{CreatorEmail: &user.Email})
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return services, nil
}

// Deactivate hides an active service owned by ownerEmail.
func (s *CatalogService) Deactivate(ctx context.Context, id int64, ownerEmail string) (*domain.Service, error) {
	return s.toggle(ctx, id, ownerEmail, false)
}

// Activate re-lists an inactive service owned by ownerEmail.
func (s *CatalogService) Activate(ctx context.Context, id int64, ownerEmail string) (*domain.Service, error) {
	return s.toggle(ctx, id, ownerEmail, true)
}

// toggle reports an ownership mismatch the same way as a missing service.
func (s *CatalogService) toggle(ctx context.Context, id int64, ownerEmail string, active bool) (*domain.Service, error) {
	ownerEmail = domain.NormalizeEmail(ownerEmail)
	service, err := s.store.Services().SetActive(ctx, id, ownerEmail, active)
	if err != nil {
		return nil, notFoundOr(err, "service", map[string]any{"serviceId": id})
	}

	s.invalidate(ctx)
	eventType := events.EventServiceDeactivated
	if active {
		eventType = events.EventServiceActivated
	}
	s.publish(ctx, eventType, service)
	s.logger.Info("service toggled",
		zap.Int64("service_id", service.ID),
		zap.Bool("is_active", service.IsActive))
	return service, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	s.generation.Add(1)
	if s.cache != nil {
		s.cache.Delete(ctx, ActiveServicesKey)
	}
}

func (s *CatalogService) publish(ctx context.Context, eventType events.EventType, service *domain.Service) {
	publishEvent(ctx, s.dispatcher, events.Event{
		Type:       eventType,
		ActorEmail: service.CreatorEmail,
		ServiceID:  service.ID,
		Payload: events.ServiceChangedPayload{
			Name:         service.Name,
			CreatorEmail: service.CreatorEmail,
			Price:        service.Price,
			IsActive:     service.IsActive,
		},
	})
}
