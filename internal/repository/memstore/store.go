// Package memstore is an in-memory implementation of the repository
// interfaces. Transactions snapshot the whole store and restore it when the
// callback fails, which mirrors the all-or-nothing behavior of Postgres.
package memstore

import (
	"context"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/repository"
)

type txKey struct{}

// Store holds every table in memory.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	data  tables
	hooks map[string]func() error
}

type tables struct {
	accounts      map[string]domain.Account
	requests      map[string]domain.ServiceRequest
	history       []domain.RequestHistory
	notifications []domain.Notification
	outbox        []domain.OutboxEvent
	projects      []domain.Project
	departments   []domain.Department
	announcements []domain.Announcement
	deliberations []domain.Deliberation
	decisions     []domain.Decision
	services      []domain.MunicipalService
	settings      []domain.SiteSetting
}

// New returns an empty store.
func New() *Store {
	return &Store{
		data: tables{
			accounts: map[string]domain.Account{},
			requests: map[string]domain.ServiceRequest{},
		},
		hooks: map[string]func() error{},
	}
}

// Hook registers fn to run at the start of the named operation, for example
// "notifications.Create". A non-nil error aborts the operation with it.
func (s *Store) Hook(op string, fn func() error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks[op] = fn
}

func (s *Store) runHook(op string) error {
	s.mu.Lock()
	fn := s.hooks[op]
	s.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn()
}

// WithinTx implements repository.Transactor.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (t tables) clone() tables {
	out := tables{
		accounts:      make(map[string]domain.Account, len(t.accounts)),
		requests:      make(map[string]domain.ServiceRequest, len(t.requests)),
		history:       append([]domain.RequestHistory(nil), t.history...),
		notifications: append([]domain.Notification(nil), t.notifications...),
		outbox:        append([]domain.OutboxEvent(nil), t.outbox...),
		projects:      append([]domain.Project(nil), t.projects...),
		departments:   append([]domain.Department(nil), t.departments...),
		announcements: append([]domain.Announcement(nil), t.announcements...),
		deliberations: append([]domain.Deliberation(nil), t.deliberations...),
		decisions:     append([]domain.Decision(nil), t.decisions...),
		services:      append([]domain.MunicipalService(nil), t.services...),
		settings:      append([]domain.SiteSetting(nil), t.settings...),
	}
	for k, v := range t.accounts {
		out.accounts[k] = v
	}
	for k, v := range t.requests {
		out.requests[k] = v
	}
	return out
}

// Accessors returning each repository view of the store.

func (s *Store) Accounts() repository.AccountRepository { return accountRepo{s} }

func (s *Store) Requests() repository.ServiceRequestRepository { return requestRepo{s} }

func (s *Store) History() repository.RequestHistoryRepository { return historyRepo{s} }

func (s *Store) Notifications() repository.NotificationRepository { return notificationRepo{s} }

func (s *Store) Outbox() repository.OutboxRepository { return outboxRepo{s} }

func (s *Store) Projects() repository.ProjectRepository { return projectRepo{s} }

func (s *Store) Departments() repository.DepartmentRepository { return departmentRepo{s} }

func (s *Store) Publications() repository.PublicationRepository { return publicationRepo{s} }

func (s *Store) Services() repository.MunicipalServiceRepository { return serviceRepo{s} }

// Snapshot helpers for assertions.

func (s *Store) NotificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.notifications)
}

func (s *Store) HistoryCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data.history)
}

func (s *Store) OutboxEvents() []domain.OutboxEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutboxEvent(nil), s.data.outbox...)
}

var errNotFound = pgx.ErrNoRows
