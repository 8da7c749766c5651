package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// RequestFilter captures listing parameters.
type RequestFilter struct {
	OwnerID     *string
	Statuses    []domain.RequestStatus
	Category    *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// ServiceRequestRepository encapsulates request persistence.
type ServiceRequestRepository interface {
	Create(ctx context.Context, req *domain.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error)
	// UpdateStatus writes req.Status and req.UpdatedAt only if the stored
	// version still equals expectedVersion, then bumps req.Version.
	// It returns ErrStaleVersion when the row moved on.
	UpdateStatus(ctx context.Context, req *domain.ServiceRequest, expectedVersion int64) error
}

type serviceRequestRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRequestRepository instantiates repository.
func NewServiceRequestRepository(pool *pgxpool.Pool) ServiceRequestRepository {
	return &serviceRequestRepository{pool: pool}
}

const requestColumns = `id, owner_id, title, description, category, status, version, created_at, updated_at`

func (r *serviceRequestRepository) Create(ctx context.Context, req *domain.ServiceRequest) error {
	const query = `
        INSERT INTO service_requests (owner_id, title, description, category, status, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, version`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		req.OwnerID,
		req.Title,
		req.Description,
		req.Category,
		req.Status,
		req.CreatedAt,
		req.UpdatedAt,
	).Scan(&req.ID, &req.Version)
}

func (r *serviceRequestRepository) GetByID(ctx context.Context, id string) (*domain.ServiceRequest, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + requestColumns + ` FROM service_requests WHERE id=$1`
	rows, err := conn(ctx, r.pool).Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	requests, err := scanRequests(rows)
	if err != nil {
		return nil, err
	}
	if len(requests) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &requests[0], nil
}

func (r *serviceRequestRepository) UpdateStatus(ctx context.Context, req *domain.ServiceRequest, expectedVersion int64) error {
	const query = `
        UPDATE service_requests SET status=$1, updated_at=$2, version=version+1
        WHERE id=$3 AND version=$4
        RETURNING version`
	err := conn(ctx, r.pool).QueryRow(ctx, query,
		req.Status,
		req.UpdatedAt,
		req.ID,
		expectedVersion,
	).Scan(&req.Version)
	if err == pgx.ErrNoRows {
		return ErrStaleVersion
	}
	return err
}

func (r *serviceRequestRepository) List(ctx context.Context, filter RequestFilter) ([]domain.ServiceRequest, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.OwnerID != nil {
		args = append(args, *filter.OwnerID)
		clauses = append(clauses, fmt.Sprintf("owner_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		clauses = append(clauses, fmt.Sprintf("category=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s)", placeholder, placeholder))
	}

	limit, offset := normalizeLimit(filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM service_requests WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		requestColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRequests(rows)
}

func scanRequests(rows pgx.Rows) ([]domain.ServiceRequest, error) {
	var result []domain.ServiceRequest
	for rows.Next() {
		var req domain.ServiceRequest
		if err := rows.Scan(
			&req.ID,
			&req.OwnerID,
			&req.Title,
			&req.Description,
			&req.Category,
			&req.Status,
			&req.Version,
			&req.CreatedAt,
			&req.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, req)
	}
	return result, rows.Err()
}
