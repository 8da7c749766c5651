package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/municipal-service/internal/domain"
)

func TestOutboxEnvelopeSurvivesStorage(t *testing.T) {
	at := time.Date(2024, 4, 2, 10, 30, 0, 0, time.UTC)
	event, err := NewEvent(EventRequestStatusChanged, "req-7", "emp-3", at, RequestStatusChangedPayload{
		OwnerID:   "cit-1",
		Title:     "Pothole",
		OldStatus: domain.RequestStatusPending,
		NewStatus: domain.RequestStatusInProgress,
	})
	require.NoError(t, err)
	require.NotEmpty(t, event.ID)

	row, err := event.ToOutbox()
	require.NoError(t, err)
	assert.Equal(t, event.ID, row.ID)
	assert.Equal(t, "request.status_changed", row.EventType)
	assert.Equal(t, "req-7", row.AggregateID)

	restored, err := FromOutbox(row)
	require.NoError(t, err)
	assert.Equal(t, event.ID, restored.ID)
	assert.Equal(t, "emp-3", restored.ActorID)
	assert.True(t, at.Equal(restored.Timestamp))

	var payload RequestStatusChangedPayload
	require.NoError(t, restored.Decode(&payload))
	assert.Equal(t, domain.RequestStatusInProgress, payload.NewStatus)
}

func TestDispatcherRunsEveryHandler(t *testing.T) {
	d := NewInMemoryDispatcher()
	var calls []string
	d.Subscribe(EventRequestCreated, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("first failed")
	})
	d.Subscribe(EventRequestCreated, func(context.Context, Event) error {
		calls = append(calls, "second")
		return nil
	})
	d.Subscribe(EventRequestStatusChanged, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventRequestCreated})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "first failed")
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestDispatcherWithoutSubscribers(t *testing.T) {
	assert.NoError(t, NewInMemoryDispatcher().Publish(context.Background(), Event{Type: EventRequestCreated}))
}
