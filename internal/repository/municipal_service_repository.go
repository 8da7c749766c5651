package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// MunicipalServiceRepository stores the administrative service directory
// and the public site settings.
type MunicipalServiceRepository interface {
	Create(ctx context.Context, svc *domain.MunicipalService) error
	Update(ctx context.Context, svc *domain.MunicipalService) error
	List(ctx context.Context) ([]domain.MunicipalService, error)

	ListSettings(ctx context.Context) ([]domain.SiteSetting, error)
	UpsertSetting(ctx context.Context, setting *domain.SiteSetting) error
}

type municipalServiceRepository struct {
	pool *pgxpool.Pool
}

// NewMunicipalServiceRepository builds the repository.
func NewMunicipalServiceRepository(pool *pgxpool.Pool) MunicipalServiceRepository {
	return &municipalServiceRepository{pool: pool}
}

func (r *municipalServiceRepository) Create(ctx context.Context, svc *domain.MunicipalService) error {
	const query = `
        INSERT INTO municipal_services (name, description, required_documents, steps, fees, working_hours)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		svc.Name, svc.Description, svc.RequiredDocuments, svc.Steps, svc.Fees, svc.WorkingHours,
	).Scan(&svc.ID)
}

func (r *municipalServiceRepository) Update(ctx context.Context, svc *domain.MunicipalService) error {
	const query = `
        UPDATE municipal_services SET name=$1, description=$2, required_documents=$3, steps=$4, fees=$5, working_hours=$6
        WHERE id=$7`
	return execOne(ctx, r.pool, svc.ID, query,
		svc.Name, svc.Description, svc.RequiredDocuments, svc.Steps, svc.Fees, svc.WorkingHours, svc.ID)
}

func (r *municipalServiceRepository) List(ctx context.Context) ([]domain.MunicipalService, error) {
	const query = `
        SELECT id, name, description, required_documents, steps, fees, working_hours
        FROM municipal_services ORDER BY created_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.MunicipalService
	for rows.Next() {
		var svc domain.MunicipalService
		if err := rows.Scan(&svc.ID, &svc.Name, &svc.Description, &svc.RequiredDocuments,
			&svc.Steps, &svc.Fees, &svc.WorkingHours); err != nil {
			return nil, err
		}
		result = append(result, svc)
	}
	return result, rows.Err()
}

func (r *municipalServiceRepository) ListSettings(ctx context.Context) ([]domain.SiteSetting, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT id, setting_name, setting_value FROM site_settings ORDER BY setting_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.SiteSetting
	for rows.Next() {
		var s domain.SiteSetting
		if err := rows.Scan(&s.ID, &s.Name, &s.Value); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func (r *municipalServiceRepository) UpsertSetting(ctx context.Context, s *domain.SiteSetting) error {
	const query = `
        INSERT INTO site_settings (setting_name, setting_value)
        VALUES ($1,$2)
        ON CONFLICT (setting_name) DO UPDATE SET setting_value = EXCLUDED.setting_value
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query, s.Name, s.Value).Scan(&s.ID)
}
