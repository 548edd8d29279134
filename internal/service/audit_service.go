package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/jwt-auth-service/internal/events"
)

// AuditService writes authentication events to the log.
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
	a.dispatcher.Subscribe(events.EventUserSignedUp, a.handleUserSignedUp)
	a.dispatcher.Subscribe(events.EventTokenIssued, a.handleTokenIssued)
	a.dispatcher.Subscribe(events.EventSignInFailed, a.handleSignInFailed)
}

func (a *AuditService) handleUserSignedUp(_ context.Context, event events.Event) error {
	a.logger.Info("UserSignedUp",
		zap.String("event_id", event.ID),
		zap.String("subject", event.Subject),
		zap.String("username", event.Username))
	return nil
}

func (a *AuditService) handleTokenIssued(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("subject", event.Subject),
	}
	if payload, ok := event.Payload.(events.TokenIssuedPayload); ok {
		fields = append(fields, zap.Time("expires_at", payload.ExpiresAt))
	}
	a.logger.Info("TokenIssued", fields...)
	return nil
}

func (a *AuditService) handleSignInFailed(_ context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("username", event.Username),
	}
	if payload, ok := event.Payload.(events.SignInFailedPayload); ok {
		fields = append(fields, zap.String("reason", payload.Reason))
	}
	a.logger.Warn("SignInFailed", fields...)
	return nil
}
