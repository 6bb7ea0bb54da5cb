package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/crm-gateway/internal/events"
)

func TestDispatcher_PublishReachesEveryHandler(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	var seen []string

	d.Subscribe(events.EventLoginFailed, func(_ context.Context, e events.Event) error {
		seen = append(seen, "first:"+e.Email)
		return errors.New("sink unavailable")
	})
	d.Subscribe(events.EventLoginFailed, func(_ context.Context, e events.Event) error {
		seen = append(seen, "second:"+e.Email)
		return nil
	})
	d.Subscribe(events.EventLoginSucceeded, func(context.Context, events.Event) error {
		seen = append(seen, "other")
		return nil
	})

	event := events.NewEvent(events.EventLoginFailed, 0)
	event.Email = "a@b.com"
	err := d.Publish(context.Background(), event)

	require.EqualError(t, err, "sink unavailable")
	require.Equal(t, []string{"first:a@b.com", "second:a@b.com"}, seen)
	require.NotEmpty(t, event.ID)
}

func TestDispatcher_NoListeners(t *testing.T) {
	d := events.NewInMemoryDispatcher()
	require.NoError(t, d.Publish(context.Background(), events.NewEvent(events.EventTokenIssued, 7)))
}
