package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/civicdesk/municipal-service/internal/config"
	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/events"
	"github.com/civicdesk/municipal-service/internal/observability"
	"github.com/civicdesk/municipal-service/internal/repository"
)

const outboxWorkerName = "outbox-relay"

// Publisher forwards an encoded event to an external broker.
type Publisher interface {
	Publish(ctx context.Context, eventID, eventType string, body []byte) error
}

// OutboxWorker periodically relays pending outbox rows to in-process
// subscribers and, when configured, to the message broker. Delivery is
// at least once: a row is marked processed only after a successful publish.
type OutboxWorker struct {
	tx          repository.Transactor
	outbox      repository.OutboxRepository
	dispatcher  events.Dispatcher
	publisher   Publisher
	metrics     *observability.Metrics
	logger      *zap.Logger
	schedule    string
	batchSize   int
	maxAttempts int
	timeout     time.Duration

	cron *cron.Cron
	mu   sync.Mutex
}

// OutboxDependencies bundles collaborators for the relay.
type OutboxDependencies struct {
	Transactor repository.Transactor
	OutboxRepo repository.OutboxRepository
	Dispatcher events.Dispatcher
	Publisher  Publisher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// NewOutboxWorker builds the relay. A nil Publisher keeps delivery in-process.
func NewOutboxWorker(cfg config.OutboxConfig, deps OutboxDependencies) *OutboxWorker {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 5
	}
	return &OutboxWorker{
		tx:          deps.Transactor,
		outbox:      deps.OutboxRepo,
		dispatcher:  deps.Dispatcher,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		logger:      logger.With(zap.String("worker", outboxWorkerName)),
		schedule:    cfg.Schedule,
		batchSize:   batch,
		maxAttempts: attempts,
		timeout:     30 * time.Second,
	}
}

// Start schedules the relay on its cron expression.
func (w *OutboxWorker) Start() error {
	w.cron = cron.New()
	if _, err := w.cron.AddFunc(w.schedule, w.tick); err != nil {
		return fmt.Errorf("schedule %s: %w", outboxWorkerName, err)
	}
	w.cron.Start()
	w.logger.Info("outbox relay started", zap.String("schedule", w.schedule))
	return nil
}

// Stop halts scheduling and waits for a running batch to finish or ctx to expire.
func (w *OutboxWorker) Stop(ctx context.Context) {
	if w.cron == nil {
		return
	}
	select {
	case <-w.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (w *OutboxWorker) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	if _, err := w.RunOnce(ctx); err != nil {
		w.logger.Error("outbox relay failed", zap.Error(err))
	}
}

// RunOnce relays one batch and returns how many rows were marked processed.
func (w *OutboxWorker) RunOnce(ctx context.Context) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	processed := 0
	err := w.tx.WithinTx(ctx, func(ctx context.Context) error {
		rows, err := w.outbox.ListPending(ctx, w.batchSize, w.maxAttempts)
		if err != nil {
			return fmt.Errorf("list pending events: %w", err)
		}
		for _, row := range rows {
			switch w.relay(ctx, row) {
			case relayDelivered:
				if err := w.outbox.MarkProcessed(ctx, row.ID); err != nil {
					return fmt.Errorf("mark event %s processed: %w", row.ID, err)
				}
				processed++
			case relayRetry:
				if err := w.outbox.IncrementAttempts(ctx, row.ID); err != nil {
					return fmt.Errorf("bump attempts for event %s: %w", row.ID, err)
				}
			case relayPark:
				if err := w.outbox.Park(ctx, row.ID, w.maxAttempts); err != nil {
					return fmt.Errorf("park event %s: %w", row.ID, err)
				}
			}
		}
		return nil
	})
	return processed, err
}

type relayOutcome int

const (
	relayDelivered relayOutcome = iota
	relayRetry
	relayPark
)

// relay decodes before publishing. Undecodable rows are parked, never sent.
func (w *OutboxWorker) relay(ctx context.Context, row domain.OutboxEvent) relayOutcome {
	id := row.ID
	event, err := events.FromOutbox(row)
	if err != nil {
		w.metrics.RecordOutbox("undecodable")
		w.logger.Error("undecodable outbox event", zap.String("event_id", id), zap.Error(err))
		return relayPark
	}

	if w.publisher != nil {
		if err := w.publisher.Publish(ctx, id, row.EventType, row.Payload); err != nil {
			w.metrics.RecordOutbox("failed")
			w.logger.Warn("publish to broker failed", zap.String("event_id", id), zap.Error(err))
			return relayRetry
		}
	}

	if w.dispatcher != nil {
		// local subscribers are best effort; the broker copy is authoritative
		if err := w.dispatcher.Publish(ctx, event); err != nil {
			w.logger.Warn("event handler failed", zap.String("event_id", id), zap.Error(err))
		}
	}

	w.metrics.RecordOutbox("published")
	return relayDelivered
}
