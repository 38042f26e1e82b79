package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcher_PublishRunsAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string

	d.Subscribe(EventAccountLinked, func(_ context.Context, e Event) error {
		calls = append(calls, "first:"+e.UserID)
		return errors.New("boom")
	})
	d.Subscribe(EventAccountLinked, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.UserID)
		return nil
	})
	d.Subscribe(EventSignedIn, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), New(EventAccountLinked, "u1", nil))

	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first:u1", "second:u1"}, calls)
}

func TestDispatcher_NoListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), New(EventSignedOut, "u1", nil)))
}

func TestNew(t *testing.T) {
	e := New(EventSignedIn, "u1", SignedInPayload{Method: "oauth"})
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, EventSignedIn, e.Type)
	assert.False(t, e.Timestamp.IsZero())
}
