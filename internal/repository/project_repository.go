package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// ProjectRepository manages public works projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *domain.Project) error
	Update(ctx context.Context, project *domain.Project) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	List(ctx context.Context) ([]domain.Project, error)
}

type projectRepository struct {
	pool *pgxpool.Pool
}

// NewProjectRepository builds the repository.
func NewProjectRepository(pool *pgxpool.Pool) ProjectRepository {
	return &projectRepository{pool: pool}
}

const projectColumns = `id, title, description, status, category, budget, contractor, start_date, end_date, progress_percentage, image_url`

func (r *projectRepository) Create(ctx context.Context, p *domain.Project) error {
	const query = `
        INSERT INTO projects (title, description, status, category, budget, contractor, start_date, end_date, progress_percentage, image_url)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		p.Title,
		p.Description,
		p.Status,
		p.Category,
		p.Budget,
		p.Contractor,
		p.StartDate,
		p.EndDate,
		p.ProgressPercentage,
		p.ImageURL,
	).Scan(&p.ID)
}

func (r *projectRepository) Update(ctx context.Context, p *domain.Project) error {
	if !validID(p.ID) {
		return pgx.ErrNoRows
	}
	const query = `
        UPDATE projects SET title=$1, description=$2, status=$3, category=$4, budget=$5,
            contractor=$6, start_date=$7, end_date=$8, progress_percentage=$9, image_url=$10
        WHERE id=$11`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		p.Title,
		p.Description,
		p.Status,
		p.Category,
		p.Budget,
		p.Contractor,
		p.StartDate,
		p.EndDate,
		p.ProgressPercentage,
		p.ImageURL,
		p.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *projectRepository) Delete(ctx context.Context, id string) error {
	return execOne(ctx, r.pool, id, `DELETE FROM projects WHERE id=$1`, id)
}

func (r *projectRepository) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if !validID(id) {
		return nil, pgx.ErrNoRows
	}
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=$1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	projects, err := scanProjects(rows)
	if err != nil {
		return nil, err
	}
	if len(projects) == 0 {
		return nil, pgx.ErrNoRows
	}
	return &projects[0], nil
}

func (r *projectRepository) List(ctx context.Context) ([]domain.Project, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT `+projectColumns+` FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProjects(rows)
}

func scanProjects(rows pgx.Rows) ([]domain.Project, error) {
	var result []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(
			&p.ID,
			&p.Title,
			&p.Description,
			&p.Status,
			&p.Category,
			&p.Budget,
			&p.Contractor,
			&p.StartDate,
			&p.EndDate,
			&p.ProgressPercentage,
			&p.ImageURL,
		); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}
