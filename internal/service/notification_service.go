package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/config"
	"github.com/spec-kit/marketplace-service/internal/events"
)

// EventSink forwards events outside the process.
type EventSink interface {
	Publish(ctx context.Context, event events.Event) (string, error)
}

// NotificationService handles emitting notifications for domain events.
type NotificationService struct {
	dispatcher events.Dispatcher
	sink       EventSink
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service. sink may be nil.
func NewNotificationService(dispatcher events.Dispatcher, sink EventSink, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		sink:       sink,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		n.dispatcher.Subscribe(eventType, n.handle)
	}
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64("service_id", event.ServiceID),
	}
	if event.Transaction != nil {
		fields = append(fields, zap.Int64("transaction_id", *event.Transaction))
	}
	n.logger.Info("ledger event", append(fields, zap.Any("payload", event.Payload))...)

	n.forwardToStream(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// forwardToStream is best effort: a failed XADD is logged and dropped.
func (n *NotificationService) forwardToStream(ctx context.Context, event events.Event) {
	if n.sink == nil {
		return
	}
	id, err := n.sink.Publish(ctx, event)
	if err != nil {
		n.logger.Warn("event stream publish failed",
			zap.String("stream", n.cfg.EventsStream),
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}
	n.logger.Debug("event streamed", zap.String("stream", n.cfg.EventsStream), zap.String("entry_id", id))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))
}
