package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/spec-kit/auth-service/internal/events"
)

type recordingLinker struct {
	linked []string
	err    error
}

func (r *recordingLinker) LinkAccount(_ context.Context, userID string) error {
	r.linked = append(r.linked, userID)
	return r.err
}

func TestStartAuthEventWorker_AccountLinked(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	linker := &recordingLinker{}
	StartAuthEventWorker(dispatcher, linker, zap.NewNop())

	err := dispatcher.Publish(context.Background(), events.New(events.EventAccountLinked, "u1", events.AccountLinkedPayload{Provider: "github"}))

	assert.NoError(t, err)
	assert.Equal(t, []string{"u1"}, linker.linked)
}

func TestStartAuthEventWorker_PropagatesLinkFailure(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	StartAuthEventWorker(dispatcher, &recordingLinker{err: errors.New("db down")}, zap.NewNop())

	err := dispatcher.Publish(context.Background(), events.New(events.EventAccountLinked, "u1", nil))
	assert.Error(t, err)
}

func TestStartAuthEventWorker_LoggingEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	StartAuthEventWorker(dispatcher, &recordingLinker{}, zap.NewNop())

	ctx := context.Background()
	assert.NoError(t, dispatcher.Publish(ctx, events.New(events.EventSignedIn, "u1", events.SignedInPayload{Method: "credentials"})))
	assert.NoError(t, dispatcher.Publish(ctx, events.New(events.EventSignedOut, "u1", nil)))
	assert.NoError(t, dispatcher.Publish(ctx, events.New(events.EventPasswordChanged, "u1", nil)))
}
