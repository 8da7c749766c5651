package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/events"
	"github.com/civicdesk/municipal-service/internal/repository/memstore"
	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

type requestFixture struct {
	svc      *RequestService
	store    *memstore.Store
	citizen  *domain.Account
	employee *domain.Account
	admin    *domain.Account
}

func newRequestFixture(t *testing.T, clock func() time.Time) requestFixture {
	t.Helper()
	store := memstore.New()
	svc := NewRequestService(RequestDependencies{
		Transactor:       store,
		RequestRepo:      store.Requests(),
		HistoryRepo:      store.History(),
		NotificationRepo: store.Notifications(),
		OutboxRepo:       store.Outbox(),
		Clock:            clock,
	})
	return requestFixture{
		svc:      svc,
		store:    store,
		citizen:  &domain.Account{ID: uuid.NewString(), Username: "amina", Role: domain.RoleCitizen},
		employee: &domain.Account{ID: uuid.NewString(), Username: "youssef", Role: domain.RoleEmployee},
		admin:    &domain.Account{ID: uuid.NewString(), Username: "root", Role: domain.RoleAdmin},
	}
}

func (f requestFixture) file(t *testing.T, title string) *domain.ServiceRequest {
	t.Helper()
	req, err := f.svc.CreateRequest(context.Background(), f.citizen, RequestCreateInput{Title: title, Category: "roads"})
	require.NoError(t, err)
	return req
}

func TestPotholeRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t, nil)

	req := f.file(t, "Pothole on Main St")
	assert.Equal(t, domain.RequestStatusPending, req.Status)
	assert.Equal(t, int64(1), req.Version)

	updated, err := f.svc.Transition(ctx, f.employee, req.ID, "IN_PROGRESS")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusInProgress, updated.Status)
	assert.Equal(t, int64(2), updated.Version)
	assert.True(t, updated.UpdatedAt.After(req.UpdatedAt))

	inbox, err := f.store.Notifications().ListUnread(ctx, f.citizen.ID)
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, "Your request 'Pothole on Main St' has been updated to status: In Progress.", inbox[0].Message)
	require.NotNil(t, inbox[0].RequestID)
	assert.Equal(t, req.ID, *inbox[0].RequestID)

	detail, err := f.svc.View(ctx, f.citizen, req.ID)
	require.NoError(t, err)
	require.Len(t, detail.History, 1)
	assert.Equal(t, domain.RequestStatusPending, detail.History[0].OldStatus)
	assert.Equal(t, domain.RequestStatusInProgress, detail.History[0].NewStatus)
	assert.Equal(t, f.employee.ID, detail.History[0].ChangedBy)

	outbox := f.store.OutboxEvents()
	require.Len(t, outbox, 2)
	assert.Equal(t, string(events.EventRequestCreated), outbox[0].EventType)
	assert.Equal(t, string(events.EventRequestStatusChanged), outbox[1].EventType)

	event, err := events.FromOutbox(outbox[1])
	require.NoError(t, err)
	var payload events.RequestStatusChangedPayload
	require.NoError(t, event.Decode(&payload))
	assert.Equal(t, inbox[0].ID, payload.NotificationID)
	assert.Equal(t, f.citizen.ID, payload.OwnerID)

	completed, err := f.svc.Transition(ctx, f.admin, req.ID, "Completed")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusCompleted, completed.Status)
	assert.Equal(t, 2, f.store.NotificationCount())
}

func TestCitizenCannotTransitionOwnRequest(t *testing.T) {
	f := newRequestFixture(t, nil)
	req := f.file(t, "Broken streetlight")

	_, err := f.svc.Transition(context.Background(), f.citizen, req.ID, "COMPLETED")
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	assert.Equal(t, 0, f.store.NotificationCount())
}

func TestTransitionCheckOrder(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t, nil)
	req := f.file(t, "Graffiti")
	missing := uuid.NewString()

	_, err := f.svc.Transition(ctx, nil, missing, "DONE")
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	_, err = f.svc.Transition(ctx, f.citizen, missing, "DONE")
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = f.svc.Transition(ctx, f.employee, missing, "DONE")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidStatus))

	_, err = f.svc.Transition(ctx, f.employee, missing, "APPROVED")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	_, err = f.svc.Transition(ctx, f.employee, req.ID, "PENDING")
	assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition))
	assert.NotContains(t, apperrors.ToDomainError(err).Details, "closed")
}

func TestTerminalStatusRejectsTransitions(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t, nil)
	req := f.file(t, "Noise complaint")

	_, err := f.svc.Transition(ctx, f.employee, req.ID, "REJECTED")
	require.NoError(t, err)

	for _, next := range []string{"PENDING", "APPROVED", "IN_PROGRESS", "COMPLETED", "REJECTED"} {
		_, err := f.svc.Transition(ctx, f.employee, req.ID, next)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidTransition), next)
		assert.Equal(t, true, apperrors.ToDomainError(err).Details["closed"], next)
	}
	assert.Equal(t, 1, f.store.NotificationCount())
}

func TestTransitionRollsBackWhenNotificationFails(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t, nil)
	req := f.file(t, "Overflowing bins")

	f.store.Hook("notifications.Create", func() error { return errors.New("disk full") })

	_, err := f.svc.Transition(ctx, f.employee, req.ID, "APPROVED")
	require.Error(t, err)

	stored, err := f.store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, stored.Status)
	assert.Equal(t, req.Version, stored.Version)
	assert.True(t, req.UpdatedAt.Equal(stored.UpdatedAt))
	assert.Equal(t, 0, f.store.NotificationCount())
	assert.Equal(t, 0, f.store.HistoryCount())
	assert.Len(t, f.store.OutboxEvents(), 1)
}

func TestTransitionRollsBackWhenOutboxFails(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t, nil)
	req := f.file(t, "Fallen tree")

	f.store.Hook("outbox.Create", func() error { return errors.New("queue table locked") })

	_, err := f.svc.Transition(ctx, f.employee, req.ID, "APPROVED")
	require.Error(t, err)

	stored, err := f.store.Requests().GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusPending, stored.Status)
	assert.Equal(t, 0, f.store.NotificationCount())
	assert.Equal(t, 0, f.store.HistoryCount())
}

func TestConcurrentTransitionLosesWithConflict(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t, nil)
	req := f.file(t, "Leaking hydrant")

	// another writer commits between our read and our write
	f.store.Hook("requests.UpdateStatus", func() error {
		f.store.Hook("requests.UpdateStatus", nil)
		rival := *req
		rival.Status = domain.RequestStatusApproved
		rival.UpdatedAt = req.UpdatedAt.Add(time.Second)
		return f.store.Requests().UpdateStatus(ctx, &rival, req.Version)
	})

	_, err := f.svc.Transition(ctx, f.employee, req.ID, "REJECTED")
	assert.True(t, errors.Is(err, apperrors.ErrConflict))
	assert.Equal(t, 0, f.store.NotificationCount())
	assert.Equal(t, 0, f.store.HistoryCount())
}

func TestUpdatedAtStrictlyIncreasesWithFrozenClock(t *testing.T) {
	ctx := context.Background()
	frozen := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f := newRequestFixture(t, func() time.Time { return frozen })
	req := f.file(t, "Blocked drain")
	assert.True(t, frozen.Equal(req.UpdatedAt))

	approved, err := f.svc.Transition(ctx, f.employee, req.ID, "APPROVED")
	require.NoError(t, err)
	assert.True(t, approved.UpdatedAt.After(req.UpdatedAt))

	started, err := f.svc.Transition(ctx, f.employee, req.ID, "IN_PROGRESS")
	require.NoError(t, err)
	assert.True(t, started.UpdatedAt.After(approved.UpdatedAt))
	assert.Equal(t, 2*time.Microsecond, started.UpdatedAt.Sub(frozen))
}

func TestNextUpdatedAt(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, base.Add(time.Second), nextUpdatedAt(base, base.Add(time.Second)))
	assert.Equal(t, base.Add(time.Microsecond), nextUpdatedAt(base, base))
	assert.Equal(t, base.Add(time.Microsecond), nextUpdatedAt(base, base.Add(-time.Hour)))
}

func TestCreateRequestRules(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t, nil)

	_, err := f.svc.CreateRequest(ctx, f.employee, RequestCreateInput{Title: "Staff request"})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = f.svc.CreateRequest(ctx, nil, RequestCreateInput{Title: "Anonymous"})
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))

	_, err = f.svc.CreateRequest(ctx, f.citizen, RequestCreateInput{Title: "   "})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidFormat))
	assert.Empty(t, f.store.OutboxEvents())
}

func TestViewAndListScopes(t *testing.T) {
	ctx := context.Background()
	f := newRequestFixture(t, nil)
	mine := f.file(t, "Mine")

	other := &domain.Account{ID: uuid.NewString(), Role: domain.RoleCitizen}
	theirs, err := f.svc.CreateRequest(ctx, other, RequestCreateInput{Title: "Theirs"})
	require.NoError(t, err)

	_, err = f.svc.View(ctx, f.citizen, theirs.ID)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	_, err = f.svc.View(ctx, f.citizen, uuid.NewString())
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))

	detail, err := f.svc.View(ctx, f.employee, theirs.ID)
	require.NoError(t, err)
	assert.Equal(t, theirs.ID, detail.Request.ID)

	own, err := f.svc.ListMine(ctx, f.citizen, RequestListFilter{})
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, mine.ID, own[0].ID)

	_, err = f.svc.ListAll(ctx, f.citizen, RequestListFilter{})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))

	all, err := f.svc.ListAll(ctx, f.employee, RequestListFilter{Statuses: []domain.RequestStatus{domain.RequestStatusPending}})
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStatusChangeMessage(t *testing.T) {
	assert.Equal(t,
		"Your request 'Pothole' has been updated to status: Rejected.",
		StatusChangeMessage("Pothole", domain.RequestStatusRejected))
}
