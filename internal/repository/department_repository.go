package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// DepartmentRepository manages department persistence.
type DepartmentRepository interface {
	Create(ctx context.Context, dept *domain.Department) error
	Update(ctx context.Context, dept *domain.Department) error
	GetByID(ctx context.Context, id string) (*domain.Department, error)
	List(ctx context.Context) ([]domain.Department, error)
}

type departmentRepository struct {
	pool *pgxpool.Pool
}

// NewDepartmentRepository builds the repository.
func NewDepartmentRepository(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepository{pool: pool}
}

func (r *departmentRepository) Create(ctx context.Context, dept *domain.Department) error {
	const query = `
        INSERT INTO departments (name, description)
        VALUES ($1,$2)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query, dept.Name, dept.Description).Scan(&dept.ID)
}

func (r *departmentRepository) Update(ctx context.Context, dept *domain.Department) error {
	const query = `UPDATE departments SET name=$1, description=$2 WHERE id=$3`
	return execOne(ctx, r.pool, dept.ID, query, dept.Name, dept.Description, dept.ID)
}

func (r *departmentRepository) GetByID(ctx context.Context, id string) (*domain.Department, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	var dept domain.Department
	if err := conn(ctx, r.pool).QueryRow(ctx,
		`SELECT id, name, description FROM departments WHERE id=$1`, id,
	).Scan(&dept.ID, &dept.Name, &dept.Description); err != nil {
		return nil, err
	}
	return &dept, nil
}

func (r *departmentRepository) List(ctx context.Context) ([]domain.Department, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT id, name, description FROM departments ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Department
	for rows.Next() {
		var dept domain.Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.Description); err != nil {
			return nil, err
		}
		result = append(result, dept)
	}
	return result, rows.Err()
}
