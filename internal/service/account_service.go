package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/auth"
	"github.com/spec-kit/marketplace-service/internal/domain"
	"github.com/spec-kit/marketplace-service/internal/repository"
	apperrors "github.com/spec-kit/marketplace-service/pkg/util/errorutil"
)

// AccountService coordinates signup, login and logout.
type AccountService struct {
	users    repository.UserRepository
	sessions auth.SessionStore
	tokens   *auth.TokenManager
	hasher   *auth.PasswordHasher
	logger   *zap.Logger
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	UserRepo     repository.UserRepository
	Sessions     auth.SessionStore
	TokenManager *auth.TokenManager
	Hasher       *auth.PasswordHasher
	Logger       *zap.Logger
}

// SignupInput describes a new account.
type SignupInput struct {
	Name            string
	Email           string
	Password        string
	ConfirmPassword string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	User    *domain.User
	Token   string
	Session *domain.Session
}

// NewAccountService builds the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountService{
		users:    deps.UserRepo,
		sessions: deps.Sessions,
		tokens:   deps.TokenManager,
		hasher:   deps.Hasher,
		logger:   logger,
	}
}

// Signup registers a user. The email is normalized before the uniqueness check.
func (s *AccountService) Signup(ctx context.Context, input SignupInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := domain.NormalizeEmail(input.Email)
	if name == "" || email == "" || input.Password == "" {
		return nil, apperrors.NewUnprocessable("name, email and password are required", nil)
	}
	if input.Password != input.ConfirmPassword {
		return nil, apperrors.NewUnprocessable("passwords do not match", map[string]any{"field": "confirmPassword"})
	}
	if len(input.Password) > auth.MaxPasswordBytes {
		return nil, apperrors.NewUnprocessable("password must be at most 72 bytes", map[string]any{"field": "password"})
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewInternalError(err)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{Name: name, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, user); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": email})
		}
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user signed up", zap.String("email", user.Email))
	return user, nil
}

// Login verifies credentials, issues a token and registers its session.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, apperrors.NewUnprocessable("email and password are required", nil)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"email": email})
	}
	if err := s.hasher.Verify(user.PasswordHash, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewInternalError(err)
	}

	token, session, err := s.tokens.GenerateToken(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged in", zap.String("email", user.Email), zap.String("session_id", session.ID))
	return &LoginResult{User: user, Token: token, Session: session}, nil
}

// Logout revokes the session so its token stops authenticating.
func (s *AccountService) Logout(ctx context.Context, session *domain.Session) error {
	if session == nil {
		return apperrors.NewUnauthorized("no active session")
	}
	if err := s.sessions.Delete(ctx, session.ID); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged out", zap.String("email", session.Email), zap.String("session_id", session.ID))
	return nil
}
