package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// OutboxRepository stores lifecycle events until they are relayed.
type OutboxRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	ListPending(ctx context.Context, limit, maxAttempts int) ([]domain.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id string) error
	IncrementAttempts(ctx context.Context, id string) error
	// Park raises attempts to at least the given value so the row drops out of ListPending.
	Park(ctx context.Context, id string, attempts int) error
}

type outboxRepository struct {
	pool *pgxpool.Pool
}

// NewOutboxRepository builds the repository.
func NewOutboxRepository(pool *pgxpool.Pool) OutboxRepository {
	return &outboxRepository{pool: pool}
}

func (r *outboxRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	const query = `
        INSERT INTO outbox_events (id, event_type, aggregate_id, payload, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		event.ID,
		event.EventType,
		event.AggregateID,
		[]byte(event.Payload),
		event.CreatedAt,
	)
	return err
}

// ListPending locks the returned rows so concurrent relays skip them.
func (r *outboxRepository) ListPending(ctx context.Context, limit, maxAttempts int) ([]domain.OutboxEvent, error) {
	const query = `
        SELECT id, event_type, aggregate_id, payload, attempts, created_at, processed_at
        FROM outbox_events
        WHERE processed_at IS NULL AND attempts < $1
        ORDER BY created_at ASC
        LIMIT $2
        FOR UPDATE SKIP LOCKED`
	rows, err := conn(ctx, r.pool).Query(ctx, query, maxAttempts, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OutboxEvent
	for rows.Next() {
		var event domain.OutboxEvent
		var payload []byte
		if err := rows.Scan(
			&event.ID,
			&event.EventType,
			&event.AggregateID,
			&payload,
			&event.Attempts,
			&event.CreatedAt,
			&event.ProcessedAt,
		); err != nil {
			return nil, err
		}
		event.Payload = payload
		result = append(result, event)
	}
	return result, rows.Err()
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id string) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `UPDATE outbox_events SET processed_at=NOW() WHERE id=$1`, id)
	return err
}

func (r *outboxRepository) IncrementAttempts(ctx context.Context, id string) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `UPDATE outbox_events SET attempts=attempts+1 WHERE id=$1`, id)
	return err
}

func (r *outboxRepository) Park(ctx context.Context, id string, attempts int) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `UPDATE outbox_events SET attempts=GREATEST(attempts, $2) WHERE id=$1`, id, attempts)
	return err
}
