package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// NotificationRepository persists notifications.
type NotificationRepository interface {
	Create(ctx context.Context, notification *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	ListUnread(ctx context.Context, recipientID string) ([]domain.Notification, error)
	MarkRead(ctx context.Context, id string, at time.Time) error
	MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error)
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds the repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = `id, recipient_id, request_id, message, is_read, read_at, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO notifications (recipient_id, request_id, message, is_read, created_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		n.RecipientID,
		n.RequestID,
		n.Message,
		n.Read,
		n.CreatedAt,
	).Scan(&n.ID)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+notificationColumns+` FROM notifications WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result, err := scanNotifications(rows)
	if err != nil {
		return nil, err
	}
	if len(result) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &result[0], nil
}

func (r *notificationRepository) ListUnread(ctx context.Context, recipientID string) ([]domain.Notification, error) {
	const query = `SELECT ` + notificationColumns + `
        FROM notifications WHERE recipient_id=$1 AND is_read = FALSE
        ORDER BY created_at DESC, id DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanNotifications(rows)
}

// MarkRead keeps the first read_at when called again.
func (r *notificationRepository) MarkRead(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE notifications SET is_read = TRUE, read_at = COALESCE(read_at, $1)
        WHERE id=$2`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int64, error) {
	const query = `
        UPDATE notifications SET is_read = TRUE, read_at = $1
        WHERE recipient_id=$2 AND is_read = FALSE`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, at, recipientID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanNotifications(rows pgx.Rows) ([]domain.Notification, error) {
	var result []domain.Notification
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(
			&n.ID,
			&n.RecipientID,
			&n.RequestID,
			&n.Message,
			&n.Read,
			&n.ReadAt,
			&n.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	return result, rows.Err()
}
