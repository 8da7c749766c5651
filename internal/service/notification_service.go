package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/events"
	"github.com/civicdesk/municipal-service/internal/repository"
	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

// NotificationService serves a recipient's inbox and reacts to relayed lifecycle events.
type NotificationService struct {
	notifications repository.NotificationRepository
	dispatcher    events.Dispatcher
	logger        *zap.Logger
	now           func() time.Time
}

// NewNotificationService creates the service.
func NewNotificationService(notifications repository.NotificationRepository, dispatcher events.Dispatcher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		notifications: notifications,
		dispatcher:    dispatcher,
		logger:        logger,
		now:           time.Now,
	}
}

// ListUnread returns the actor's unread notifications, newest first.
func (n *NotificationService) ListUnread(ctx context.Context, actor *domain.Account) ([]domain.Notification, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	return n.notifications.ListUnread(ctx, actor.ID)
}

// MarkRead flags a notification as read. Marking an already read
// notification is a no-op.
func (n *NotificationService) MarkRead(ctx context.Context, actor *domain.Account, notificationID string) (*domain.Notification, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	notification, err := n.notifications.GetByID(ctx, notificationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("notification", map[string]any{"id": notificationID})
		}
		return nil, err
	}
	if notification.RecipientID != actor.ID {
		return nil, apperrors.NewForbidden("notification belongs to another account")
	}
	if notification.Read {
		return notification, nil
	}

	at := n.now().UTC().Truncate(time.Microsecond)
	if err := n.notifications.MarkRead(ctx, notification.ID, at); err != nil {
		return nil, err
	}
	notification.Read = true
	notification.ReadAt = &at
	return notification, nil
}

// MarkAllRead flags every unread notification of the actor and returns how many changed.
func (n *NotificationService) MarkAllRead(ctx context.Context, actor *domain.Account) (int64, error) {
	if actor == nil {
		return 0, apperrors.NewUnauthorized("authentication required")
	}
	return n.notifications.MarkAllRead(ctx, actor.ID, n.now().UTC().Truncate(time.Microsecond))
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventRequestCreated, n.handleRequestCreated)
	n.dispatcher.Subscribe(events.EventRequestStatusChanged, n.handleRequestStatusChanged)
}

func (n *NotificationService) handleRequestCreated(_ context.Context, event events.Event) error {
	var payload events.RequestCreatedPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}
	n.logger.Info("request created",
		zap.String("event_id", event.ID),
		zap.String("request_id", event.RequestID),
		zap.String("owner_id", payload.OwnerID),
		zap.String("category", payload.Category))
	return nil
}

func (n *NotificationService) handleRequestStatusChanged(_ context.Context, event events.Event) error {
	var payload events.RequestStatusChangedPayload
	if err := event.Decode(&payload); err != nil {
		return err
	}
	n.logger.Info("request status changed",
		zap.String("event_id", event.ID),
		zap.String("request_id", event.RequestID),
		zap.String("actor_id", event.ActorID),
		zap.String("recipient_id", payload.OwnerID),
		zap.String("notification_id", payload.NotificationID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))
	return nil
}
