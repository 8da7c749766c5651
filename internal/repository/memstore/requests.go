package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/repository"
)

type requestRepo struct{ s *Store }

func (r requestRepo) Create(_ context.Context, req *domain.ServiceRequest) error {
	if err := r.s.runHook("requests.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req.ID = uuid.NewString()
	req.Version = 1
	r.s.data.requests[req.ID] = *req
	return nil
}

func (r requestRepo) GetByID(_ context.Context, id string) (*domain.ServiceRequest, error) {
	if err := r.s.runHook("requests.GetByID"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	req, ok := r.s.data.requests[id]
	if !ok {
		return nil, errNotFound
	}
	return &req, nil
}

func (r requestRepo) UpdateStatus(_ context.Context, req *domain.ServiceRequest, expectedVersion int64) error {
	if err := r.s.runHook("requests.UpdateStatus"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.data.requests[req.ID]
	if !ok || stored.Version != expectedVersion {
		return repository.ErrStaleVersion
	}
	stored.Status = req.Status
	stored.UpdatedAt = req.UpdatedAt
	stored.Version++
	r.s.data.requests[req.ID] = stored
	req.Version = stored.Version
	return nil
}

func (r requestRepo) List(_ context.Context, filter repository.RequestFilter) ([]domain.ServiceRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []domain.ServiceRequest
	for _, req := range r.s.data.requests {
		if matchesFilter(req, filter) {
			result = append(result, req)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UpdatedAt.After(result[j].UpdatedAt) })

	limit, offset := filter.Limit, filter.Offset
	if limit <= 0 {
		limit = 20
	}
	if offset >= len(result) {
		return nil, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func matchesFilter(req domain.ServiceRequest, filter repository.RequestFilter) bool {
	if filter.OwnerID != nil && req.OwnerID != *filter.OwnerID {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if req.Status == status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.Category != nil && req.Category != *filter.Category {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(*filter.SearchTerm)
		if !strings.Contains(strings.ToLower(req.Title), term) && !strings.Contains(strings.ToLower(req.Description), term) {
			return false
		}
	}
	if filter.CreatedFrom != nil && req.CreatedAt.Before(*filter.CreatedFrom) {
		return false
	}
	if filter.CreatedTo != nil && req.CreatedAt.After(*filter.CreatedTo) {
		return false
	}
	return true
}

type historyRepo struct{ s *Store }

func (r historyRepo) Create(_ context.Context, history *domain.RequestHistory) error {
	if err := r.s.runHook("history.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	history.ID = uuid.NewString()
	r.s.data.history = append(r.s.data.history, *history)
	return nil
}

func (r historyRepo) ListByRequest(_ context.Context, requestID string) ([]domain.RequestHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.RequestHistory
	for _, h := range r.s.data.history {
		if h.RequestID == requestID {
			result = append(result, h)
		}
	}
	return result, nil
}

type notificationRepo struct{ s *Store }

func (r notificationRepo) Create(_ context.Context, n *domain.Notification) error {
	if err := r.s.runHook("notifications.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	n.ID = uuid.NewString()
	r.s.data.notifications = append(r.s.data.notifications, *n)
	return nil
}

func (r notificationRepo) GetByID(_ context.Context, id string) (*domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, n := range r.s.data.notifications {
		if n.ID == id {
			found := n
			return &found, nil
		}
	}
	return nil, errNotFound
}

func (r notificationRepo) ListUnread(_ context.Context, recipientID string) ([]domain.Notification, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.Notification
	for i := len(r.s.data.notifications) - 1; i >= 0; i-- {
		n := r.s.data.notifications[i]
		if n.RecipientID == recipientID && !n.Read {
			result = append(result, n)
		}
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r notificationRepo) MarkRead(_ context.Context, id string, at time.Time) error {
	if err := r.s.runHook("notifications.MarkRead"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, n := range r.s.data.notifications {
		if n.ID == id {
			if n.ReadAt == nil {
				n.ReadAt = &at
			}
			n.Read = true
			r.s.data.notifications[i] = n
			return nil
		}
	}
	return errNotFound
}

func (r notificationRepo) MarkAllRead(_ context.Context, recipientID string, at time.Time) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var count int64
	for i, n := range r.s.data.notifications {
		if n.RecipientID == recipientID && !n.Read {
			n.Read = true
			n.ReadAt = &at
			r.s.data.notifications[i] = n
			count++
		}
	}
	return count, nil
}

type outboxRepo struct{ s *Store }

func (r outboxRepo) Create(_ context.Context, event *domain.OutboxEvent) error {
	if err := r.s.runHook("outbox.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.data.outbox = append(r.s.data.outbox, *event)
	return nil
}

func (r outboxRepo) ListPending(_ context.Context, limit, maxAttempts int) ([]domain.OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var result []domain.OutboxEvent
	for _, e := range r.s.data.outbox {
		if e.ProcessedAt == nil && e.Attempts < maxAttempts {
			result = append(result, e)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

func (r outboxRepo) MarkProcessed(_ context.Context, id string) error {
	return r.update(id, func(e *domain.OutboxEvent) {
		now := time.Now().UTC()
		e.ProcessedAt = &now
	})
}

func (r outboxRepo) IncrementAttempts(_ context.Context, id string) error {
	return r.update(id, func(e *domain.OutboxEvent) { e.Attempts++ })
}

func (r outboxRepo) Park(_ context.Context, id string, attempts int) error {
	return r.update(id, func(e *domain.OutboxEvent) {
		if e.Attempts < attempts {
			e.Attempts = attempts
		}
	})
}

func (r outboxRepo) update(id string, fn func(*domain.OutboxEvent)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range r.s.data.outbox {
		if r.s.data.outbox[i].ID == id {
			fn(&r.s.data.outbox[i])
			return nil
		}
	}
	return errNotFound
}
