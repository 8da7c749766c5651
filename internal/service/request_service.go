package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/events"
	"github.com/civicdesk/municipal-service/internal/observability"
	"github.com/civicdesk/municipal-service/internal/repository"
	"github.com/civicdesk/municipal-service/internal/validation"
	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

// RequestService is the lifecycle coordinator for citizen service requests.
type RequestService struct {
	tx            repository.Transactor
	requests      repository.ServiceRequestRepository
	history       repository.RequestHistoryRepository
	notifications repository.NotificationRepository
	outbox        repository.OutboxRepository
	metrics       *observability.Metrics
	now           func() time.Time
}

// RequestDependencies bundles repositories for the request service.
type RequestDependencies struct {
	Transactor       repository.Transactor
	RequestRepo      repository.ServiceRequestRepository
	HistoryRepo      repository.RequestHistoryRepository
	NotificationRepo repository.NotificationRepository
	OutboxRepo       repository.OutboxRepository
	Metrics          *observability.Metrics
	Clock            func() time.Time
}

// RequestCreateInput describes request creation payload.
type RequestCreateInput struct {
	Title       string
	Description string
	Category    string
}

// RequestListFilter describes listing filters.
type RequestListFilter struct {
	Statuses    []domain.RequestStatus
	Category    *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// RequestDetail is a request together with its status history.
type RequestDetail struct {
	Request domain.ServiceRequest
	History []domain.RequestHistory
}

// NewRequestService constructs the service.
func NewRequestService(deps RequestDependencies) *RequestService {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &RequestService{
		tx:            deps.Transactor,
		requests:      deps.RequestRepo,
		history:       deps.HistoryRepo,
		notifications: deps.NotificationRepo,
		outbox:        deps.OutboxRepo,
		metrics:       deps.Metrics,
		now:           clock,
	}
}

// CreateRequest files a new request on behalf of a citizen.
func (s *RequestService) CreateRequest(ctx context.Context, actor *domain.Account, input RequestCreateInput) (*domain.ServiceRequest, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role != domain.RoleCitizen {
		return nil, apperrors.NewForbidden("only citizens may submit requests")
	}

	req := &domain.ServiceRequest{
		OwnerID:     actor.ID,
		Title:       strings.TrimSpace(input.Title),
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Status:      domain.RequestStatusPending,
	}
	v := validation.Violations{}
	validation.Required("title", req.Title, v)
	validation.MaxLength("title", req.Title, 200, v)
	validation.MaxLength("category", req.Category, 100, v)
	if err := v.Err(); err != nil {
		return nil, err
	}

	now := s.timestamp()
	req.CreatedAt = now
	req.UpdatedAt = now

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.requests.Create(ctx, req); err != nil {
			return err
		}
		return s.enqueue(ctx, events.EventRequestCreated, req.ID, actor.ID, now, events.RequestCreatedPayload{
			OwnerID:  req.OwnerID,
			Title:    req.Title,
			Category: req.Category,
		})
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

// Transition moves a request to rawStatus. The status change, the owner
// notification, the history row and the outbox event commit together or
// not at all.
func (s *RequestService) Transition(ctx context.Context, actor *domain.Account, requestID, rawStatus string) (*domain.ServiceRequest, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("only employees and administrators may change request status")
	}
	newStatus, ok := domain.ParseRequestStatus(rawStatus)
	if !ok {
		return nil, apperrors.NewInvalidStatus(rawStatus)
	}

	var (
		updated   *domain.ServiceRequest
		oldStatus domain.RequestStatus
	)
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		req, err := s.requests.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("request", map[string]any{"id": requestID})
			}
			return err
		}
		if !req.Status.CanTransitionTo(newStatus) {
			err := apperrors.NewInvalidTransition(string(req.Status), string(newStatus))
			if req.Status.Terminal() {
				apperrors.ToDomainError(err).Details["closed"] = true
			}
			return err
		}

		oldStatus = req.Status
		expectedVersion := req.Version
		now := s.timestamp()
		req.Status = newStatus
		req.UpdatedAt = nextUpdatedAt(req.UpdatedAt, now)

		if err := s.requests.UpdateStatus(ctx, req, expectedVersion); err != nil {
			if errors.Is(err, repository.ErrStaleVersion) {
				return apperrors.NewConflict("request was modified concurrently", map[string]any{"id": req.ID})
			}
			return err
		}

		requestRef := req.ID
		notification := &domain.Notification{
			RecipientID: req.OwnerID,
			RequestID:   &requestRef,
			Message:     StatusChangeMessage(req.Title, newStatus),
			CreatedAt:   req.UpdatedAt,
		}
		if err := s.notifications.Create(ctx, notification); err != nil {
			return fmt.Errorf("create notification: %w", err)
		}

		if err := s.history.Create(ctx, &domain.RequestHistory{
			RequestID: req.ID,
			ChangedBy: actor.ID,
			OldStatus: oldStatus,
			NewStatus: newStatus,
			CreatedAt: req.UpdatedAt,
		}); err != nil {
			return fmt.Errorf("record history: %w", err)
		}

		if err := s.enqueue(ctx, events.EventRequestStatusChanged, req.ID, actor.ID, req.UpdatedAt, events.RequestStatusChangedPayload{
			OwnerID:        req.OwnerID,
			Title:          req.Title,
			OldStatus:      oldStatus,
			NewStatus:      newStatus,
			NotificationID: notification.ID,
		}); err != nil {
			return err
		}

		updated = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTransition(string(oldStatus), string(newStatus))
	return updated, nil
}

// View returns a request and its history. Citizens may only see their own.
func (s *RequestService) View(ctx context.Context, actor *domain.Account, requestID string) (*RequestDetail, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	req, err := s.requests.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("request", map[string]any{"id": requestID})
		}
		return nil, err
	}
	if !actor.Role.IsStaff() && req.OwnerID != actor.ID {
		return nil, apperrors.NewForbidden("request belongs to another account")
	}
	history, err := s.history.ListByRequest(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	return &RequestDetail{Request: *req, History: history}, nil
}

// ListMine returns the caller's own requests.
func (s *RequestService) ListMine(ctx context.Context, actor *domain.Account, filter RequestListFilter) ([]domain.ServiceRequest, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	repoFilter := toRepoFilter(filter)
	repoFilter.OwnerID = &actor.ID
	return s.requests.List(ctx, repoFilter)
}

// ListAll returns every request. Only staff may call it.
func (s *RequestService) ListAll(ctx context.Context, actor *domain.Account, filter RequestListFilter) ([]domain.ServiceRequest, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	if !actor.Role.IsStaff() {
		return nil, apperrors.NewForbidden("only employees and administrators may list all requests")
	}
	return s.requests.List(ctx, toRepoFilter(filter))
}

// StatusChangeMessage renders the owner notification for a transition.
func StatusChangeMessage(title string, status domain.RequestStatus) string {
	return fmt.Sprintf("Your request '%s' has been updated to status: %s.", title, status.Label())
}

func (s *RequestService) enqueue(ctx context.Context, eventType events.EventType, requestID, actorID string, at time.Time, payload any) error {
	event, err := events.NewEvent(eventType, requestID, actorID, at, payload)
	if err != nil {
		return fmt.Errorf("build %s event: %w", eventType, err)
	}
	row, err := event.ToOutbox()
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}
	if err := s.outbox.Create(ctx, &row); err != nil {
		return fmt.Errorf("enqueue %s event: %w", eventType, err)
	}
	return nil
}

// timestamp truncates to the precision Postgres stores.
func (s *RequestService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// nextUpdatedAt keeps updated_at strictly increasing even when the clock
// has not advanced past the stored value.
func nextUpdatedAt(previous, now time.Time) time.Time {
	if now.After(previous) {
		return now
	}
	return previous.Add(time.Microsecond)
}

func toRepoFilter(filter RequestListFilter) repository.RequestFilter {
	return repository.RequestFilter{
		Statuses:    filter.Statuses,
		Category:    filter.Category,
		SearchTerm:  filter.SearchTerm,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
}
