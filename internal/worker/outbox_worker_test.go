package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/municipal-service/internal/config"
	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/events"
	"github.com/civicdesk/municipal-service/internal/observability"
	"github.com/civicdesk/municipal-service/internal/repository/memstore"
)

type recordingPublisher struct {
	mu   sync.Mutex
	fail error
	ids  []string
}

func (p *recordingPublisher) Publish(_ context.Context, eventID, _ string, _ []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.ids = append(p.ids, eventID)
	return nil
}

func enqueueEvent(t *testing.T, store *memstore.Store) events.Event {
	t.Helper()
	event, err := events.NewEvent(events.EventRequestStatusChanged, uuid.NewString(), uuid.NewString(), time.Now().UTC(),
		events.RequestStatusChangedPayload{OldStatus: domain.RequestStatusPending, NewStatus: domain.RequestStatusApproved})
	require.NoError(t, err)
	row, err := event.ToOutbox()
	require.NoError(t, err)
	require.NoError(t, store.Outbox().Create(context.Background(), &row))
	return event
}

func newWorker(store *memstore.Store, dispatcher events.Dispatcher, publisher Publisher, metrics *observability.Metrics, maxAttempts int) *OutboxWorker {
	return NewOutboxWorker(config.OutboxConfig{Schedule: "@every 1s", BatchSize: 10, MaxAttempts: maxAttempts}, OutboxDependencies{
		Transactor: store,
		OutboxRepo: store.Outbox(),
		Dispatcher: dispatcher,
		Publisher:  publisher,
		Metrics:    metrics,
	})
}

func outboxCount(t *testing.T, metrics *observability.Metrics, result string) float64 {
	t.Helper()
	families, err := metrics.Registry.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != "municipal_outbox_events_total" {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "result" && label.GetValue() == result {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestRunOnceRelaysAndMarksProcessed(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	dispatcher := events.NewInMemoryDispatcher()
	publisher := &recordingPublisher{}
	metrics := observability.NewMetrics()

	var delivered []string
	dispatcher.Subscribe(events.EventRequestStatusChanged, func(_ context.Context, e events.Event) error {
		delivered = append(delivered, e.ID)
		return nil
	})

	event := enqueueEvent(t, store)
	w := newWorker(store, dispatcher, publisher, metrics, 3)

	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []string{event.ID}, publisher.ids)
	assert.Equal(t, []string{event.ID}, delivered)
	require.NotNil(t, store.OutboxEvents()[0].ProcessedAt)

	processed, err = w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Len(t, delivered, 1)
	assert.Equal(t, float64(1), outboxCount(t, metrics, "published"))
}

func TestRunOnceRetriesBrokerFailuresUpToLimit(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	publisher := &recordingPublisher{fail: errors.New("connection refused")}
	enqueueEvent(t, store)
	w := newWorker(store, nil, publisher, nil, 2)

	for i := 0; i < 3; i++ {
		processed, err := w.RunOnce(ctx)
		require.NoError(t, err)
		assert.Zero(t, processed)
	}

	row := store.OutboxEvents()[0]
	assert.Equal(t, 2, row.Attempts)
	assert.Nil(t, row.ProcessedAt)

	publisher.fail = nil
	processed, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed, "rows past the attempt limit are parked")
}

func TestRunOnceToleratesFailingSubscriber(t *testing.T) {
	store := memstore.New()
	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventRequestStatusChanged, func(context.Context, events.Event) error {
		return errors.New("handler broke")
	})
	enqueueEvent(t, store)

	processed, err := newWorker(store, dispatcher, nil, nil, 3).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
}

func TestRunOnceParksUndecodableRows(t *testing.T) {
	store := memstore.New()
	row := domain.OutboxEvent{ID: uuid.NewString(), EventType: "request.created", Payload: []byte("not json")}
	require.NoError(t, store.Outbox().Create(context.Background(), &row))

	processed, err := newWorker(store, events.NewInMemoryDispatcher(), nil, nil, 3).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Equal(t, 3, store.OutboxEvents()[0].Attempts)
}

func TestRunOnceNeverPublishesUndecodableRows(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	row := domain.OutboxEvent{ID: uuid.NewString(), EventType: "request.created", Payload: []byte("[1]")}
	require.NoError(t, store.Outbox().Create(ctx, &row))
	good := enqueueEvent(t, store)

	publisher := &recordingPublisher{}
	metrics := observability.NewMetrics()
	w := newWorker(store, nil, publisher, metrics, 5)
	for i := 0; i < 6; i++ {
		_, err := w.RunOnce(ctx)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{good.ID}, publisher.ids)
	assert.Equal(t, float64(1), outboxCount(t, metrics, "undecodable"))
	for _, e := range store.OutboxEvents() {
		if e.ID == row.ID {
			assert.Equal(t, 5, e.Attempts)
			assert.Nil(t, e.ProcessedAt)
		}
	}
}

func TestStartRejectsBadSchedule(t *testing.T) {
	w := NewOutboxWorker(config.OutboxConfig{Schedule: "every now and then"}, OutboxDependencies{Transactor: memstore.New()})
	assert.Error(t, w.Start())
}

func TestStartAndStop(t *testing.T) {
	store := memstore.New()
	w := newWorker(store, nil, nil, nil, 3)
	require.NoError(t, w.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	w.Stop(ctx)
}
