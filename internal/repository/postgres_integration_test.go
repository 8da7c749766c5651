package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/civicdesk/municipal-service/internal/config"
	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/events"
	"github.com/civicdesk/municipal-service/internal/persistence"
	"github.com/civicdesk/municipal-service/internal/repository"
	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

// setupPostgres starts a throwaway Postgres, applies the migrations and
// returns a connected pool. It is skipped unless TEST_INTEGRATION is set.
func setupPostgres(t *testing.T) *persistence.Postgres {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("TEST_INTEGRATION not set")
	}

	ctx := context.Background()
	container, err := postgres.Run(ctx,
		"docker.io/postgres:16-alpine",
		postgres.WithDatabase("municipal_test"),
		postgres.WithUsername("municipal"),
		postgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, persistence.RunMigrations(dsn, zap.NewNop()))

	db, err := persistence.NewPostgres(ctx, config.PostgresConfig{DSN: dsn, MaxConns: 4}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestPostgresRepositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	accounts := repository.NewAccountRepository(db.Pool)
	requests := repository.NewServiceRequestRepository(db.Pool)
	notifications := repository.NewNotificationRepository(db.Pool)
	outbox := repository.NewOutboxRepository(db.Pool)
	tx := repository.NewTransactor(db.Pool)

	owner := &domain.Account{Username: "amina", Email: "amina@city.example", PasswordHash: "hash", Role: domain.RoleCitizen}
	require.NoError(t, accounts.Create(ctx, owner))

	t.Run("identities are unique regardless of case", func(t *testing.T) {
		dup := &domain.Account{Username: "AMINA", Email: "other@city.example", PasswordHash: "hash", Role: domain.RoleCitizen}
		err := accounts.Create(ctx, dup)
		assert.True(t, apperrors.IsUniqueViolation(err))

		found, err := accounts.GetByEmail(ctx, "Amina@City.Example")
		require.NoError(t, err)
		assert.Equal(t, owner.ID, found.ID)

		_, err = accounts.GetByID(ctx, "not-a-uuid")
		assert.True(t, errors.Is(err, pgx.ErrNoRows))
	})

	now := time.Now().UTC().Truncate(time.Microsecond)
	req := &domain.ServiceRequest{
		OwnerID:   owner.ID,
		Title:     "Pothole on Main St",
		Category:  "roads",
		Status:    domain.RequestStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, requests.Create(ctx, req))
	assert.Equal(t, int64(1), req.Version)

	t.Run("stale version loses", func(t *testing.T) {
		first := *req
		first.Status = domain.RequestStatusApproved
		first.UpdatedAt = now.Add(time.Second)
		require.NoError(t, requests.UpdateStatus(ctx, &first, 1))
		assert.Equal(t, int64(2), first.Version)

		second := *req
		second.Status = domain.RequestStatusRejected
		err := requests.UpdateStatus(ctx, &second, 1)
		assert.ErrorIs(t, err, repository.ErrStaleVersion)

		stored, err := requests.GetByID(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RequestStatusApproved, stored.Status)
	})

	t.Run("failed transaction leaves no trace", func(t *testing.T) {
		boom := errors.New("boom")
		err := tx.WithinTx(ctx, func(ctx context.Context) error {
			ref := req.ID
			if err := notifications.Create(ctx, &domain.Notification{
				RecipientID: owner.ID,
				RequestID:   &ref,
				Message:     "never delivered",
				CreatedAt:   now,
			}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		unread, err := notifications.ListUnread(ctx, owner.ID)
		require.NoError(t, err)
		assert.Empty(t, unread)
	})

	t.Run("outbox rows are claimed until processed", func(t *testing.T) {
		event, err := events.NewEvent(events.EventRequestCreated, req.ID, owner.ID, now, events.RequestCreatedPayload{OwnerID: owner.ID})
		require.NoError(t, err)
		row, err := event.ToOutbox()
		require.NoError(t, err)
		require.NoError(t, outbox.Create(ctx, &row))

		var pending []domain.OutboxEvent
		require.NoError(t, tx.WithinTx(ctx, func(ctx context.Context) error {
			pending, err = outbox.ListPending(ctx, 10, 5)
			if err != nil {
				return err
			}
			for _, p := range pending {
				if err := outbox.MarkProcessed(ctx, p.ID); err != nil {
					return err
				}
			}
			return nil
		}))
		require.Len(t, pending, 1)
		assert.Equal(t, event.ID, pending[0].ID)

		pending, err = outbox.ListPending(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})

	t.Run("parked outbox rows leave the pending set", func(t *testing.T) {
		event, err := events.NewEvent(events.EventRequestCreated, req.ID, owner.ID, now, events.RequestCreatedPayload{OwnerID: owner.ID})
		require.NoError(t, err)
		row, err := event.ToOutbox()
		require.NoError(t, err)
		require.NoError(t, outbox.Create(ctx, &row))

		require.NoError(t, outbox.Park(ctx, row.ID, 5))
		pending, err := outbox.ListPending(ctx, 10, 5)
		require.NoError(t, err)
		assert.Empty(t, pending)
	})
}

func TestPostgresCatalogRepositories(t *testing.T) {
	db := setupPostgres(t)
	ctx := context.Background()

	projects := repository.NewProjectRepository(db.Pool)
	services := repository.NewMunicipalServiceRepository(db.Pool)

	p := &domain.Project{Title: "Library", ProgressPercentage: 20}
	require.NoError(t, projects.Create(ctx, p))
	p.Title = "Library extension"
	require.NoError(t, projects.Update(ctx, p))

	missing := &domain.Project{ID: uuid.NewString(), Title: "Ghost"}
	assert.ErrorIs(t, projects.Update(ctx, missing), pgx.ErrNoRows)

	require.NoError(t, projects.Delete(ctx, p.ID))
	assert.ErrorIs(t, projects.Delete(ctx, p.ID), pgx.ErrNoRows)

	require.NoError(t, services.UpsertSetting(ctx, &domain.SiteSetting{Name: "site_title", Value: "Commune"}))
	require.NoError(t, services.UpsertSetting(ctx, &domain.SiteSetting{Name: "site_title", Value: "Municipality"}))
	settings, err := services.ListSettings(ctx)
	require.NoError(t, err)
	require.Len(t, settings, 1)
	assert.Equal(t, "Municipality", settings[0].Value)
}
