package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
)

// AccountLinker applies the account-link side effect.
type AccountLinker interface {
	LinkAccount(ctx context.Context, userID string) error
}

// StartAuthEventWorker registers auth event handlers on the dispatcher.
func StartAuthEventWorker(dispatcher events.Dispatcher, linker AccountLinker, logger *zap.Logger) {
	if dispatcher == nil {
		return
	}
	logger = logger.Named("events")

	dispatcher.Subscribe(events.EventAccountLinked, func(ctx context.Context, e events.Event) error {
		return linker.LinkAccount(ctx, e.UserID)
	})

	dispatcher.Subscribe(events.EventSignedIn, func(_ context.Context, e events.Event) error {
		fields := []zap.Field{zap.String("user_id", e.UserID), zap.String("event_id", e.ID)}
		if p, ok := e.Payload.(events.SignedInPayload); ok {
			fields = append(fields, zap.String("method", string(p.Method)))
		}
		logger.Info("user signed in", fields...)
		return nil
	})

	dispatcher.Subscribe(events.EventSignedOut, func(_ context.Context, e events.Event) error {
		logger.Info("user signed out", zap.String("user_id", e.UserID))
		return nil
	})

	dispatcher.Subscribe(events.EventPasswordChanged, func(_ context.Context, e events.Event) error {
		logger.Info("password changed", zap.String("user_id", e.UserID))
		return nil
	})
}
