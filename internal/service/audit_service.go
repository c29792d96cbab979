package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/guestlist-service/internal/events"
)

// AuditService records guest lifecycle events as structured log lines,
// giving operators a trail of invites and check-ins.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger) *AuditService {
	return &AuditService{dispatcher: dispatcher, logger: logger}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventGuestCreated, a.handle)
	a.dispatcher.Subscribe(events.EventGuestCheckedIn, a.handle)
	a.dispatcher.Subscribe(events.EventInviteSent, a.handle)
	a.dispatcher.Subscribe(events.EventWhatsappSent, a.handle)
}

func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	a.logger.Info("guest event",
		zap.String("event_id", event.ID),
		zap.String("type", string(event.Type)),
		zap.String("guest_id", event.GuestID),
		zap.Time("timestamp", event.Timestamp),
		zap.Any("payload", event.Payload),
	)
	return nil
}
