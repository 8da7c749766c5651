package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// PublicationRepository stores the dated public records: announcements,
// council deliberations and municipal decisions.
type PublicationRepository interface {
	CreateAnnouncement(ctx context.Context, a *domain.Announcement) error
	UpdateAnnouncement(ctx context.Context, a *domain.Announcement) error
	ListAnnouncements(ctx context.Context) ([]domain.Announcement, error)

	CreateDeliberation(ctx context.Context, d *domain.Deliberation) error
	UpdateDeliberation(ctx context.Context, d *domain.Deliberation) error
	ListDeliberations(ctx context.Context) ([]domain.Deliberation, error)

	CreateDecision(ctx context.Context, d *domain.Decision) error
	UpdateDecision(ctx context.Context, d *domain.Decision) error
	ListDecisions(ctx context.Context) ([]domain.Decision, error)
}

type publicationRepository struct {
	pool *pgxpool.Pool
}

// NewPublicationRepository builds the repository.
func NewPublicationRepository(pool *pgxpool.Pool) PublicationRepository {
	return &publicationRepository{pool: pool}
}

func (r *publicationRepository) CreateAnnouncement(ctx context.Context, a *domain.Announcement) error {
	const query = `
        INSERT INTO announcements (title, content, date_published, author, announcement_type, document_url, image_url, deadline)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		a.Title, a.Content, a.DatePublished, a.Author, a.AnnouncementType, a.DocumentURL, a.ImageURL, a.Deadline,
	).Scan(&a.ID)
}

func (r *publicationRepository) UpdateAnnouncement(ctx context.Context, a *domain.Announcement) error {
	const query = `
        UPDATE announcements SET title=$1, content=$2, date_published=$3, author=$4,
            announcement_type=$5, document_url=$6, image_url=$7, deadline=$8
        WHERE id=$9`
	return execOne(ctx, r.pool, a.ID, query,
		a.Title, a.Content, a.DatePublished, a.Author, a.AnnouncementType, a.DocumentURL, a.ImageURL, a.Deadline, a.ID)
}

func (r *publicationRepository) ListAnnouncements(ctx context.Context) ([]domain.Announcement, error) {
	const query = `
        SELECT id, title, content, date_published, author, announcement_type, document_url, image_url, deadline
        FROM announcements ORDER BY date_published DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Announcement
	for rows.Next() {
		var a domain.Announcement
		if err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.DatePublished, &a.Author,
			&a.AnnouncementType, &a.DocumentURL, &a.ImageURL, &a.Deadline); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *publicationRepository) CreateDeliberation(ctx context.Context, d *domain.Deliberation) error {
	const query = `
        INSERT INTO deliberations (title, description, date, category, document_url, image_url)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query,
		d.Title, d.Description, d.Date, d.Category, d.DocumentURL, d.ImageURL,
	).Scan(&d.ID)
}

func (r *publicationRepository) UpdateDeliberation(ctx context.Context, d *domain.Deliberation) error {
	const query = `
        UPDATE deliberations SET title=$1, description=$2, date=$3, category=$4, document_url=$5, image_url=$6
        WHERE id=$7`
	return execOne(ctx, r.pool, d.ID, query, d.Title, d.Description, d.Date, d.Category, d.DocumentURL, d.ImageURL, d.ID)
}

func (r *publicationRepository) ListDeliberations(ctx context.Context) ([]domain.Deliberation, error) {
	const query = `
        SELECT id, title, description, date, category, document_url, image_url
        FROM deliberations ORDER BY date DESC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Deliberation
	for rows.Next() {
		var d domain.Deliberation
		if err := rows.Scan(&d.ID, &d.Title, &d.Description, &d.Date, &d.Category, &d.DocumentURL, &d.ImageURL); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

func (r *publicationRepository) CreateDecision(ctx context.Context, d *domain.Decision) error {
	const query = `
        INSERT INTO decisions (title, type, date, document_url)
        VALUES ($1,$2,$3,$4)
        RETURNING id`
	return conn(ctx, r.pool).QueryRow(ctx, query, d.Title, d.Type, d.Date, d.DocumentURL).Scan(&d.ID)
}

func (r *publicationRepository) UpdateDecision(ctx context.Context, d *domain.Decision) error {
	const query = `UPDATE decisions SET title=$1, type=$2, date=$3, document_url=$4 WHERE id=$5`
	return execOne(ctx, r.pool, d.ID, query, d.Title, d.Type, d.Date, d.DocumentURL, d.ID)
}

func (r *publicationRepository) ListDecisions(ctx context.Context) ([]domain.Decision, error) {
	rows, err := conn(ctx, r.pool).Query(ctx, `SELECT id, title, type, date, document_url FROM decisions ORDER BY date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Decision
	for rows.Next() {
		var d domain.Decision
		if err := rows.Scan(&d.ID, &d.Title, &d.Type, &d.Date, &d.DocumentURL); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
