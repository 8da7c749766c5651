package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/civicdesk/municipal-service/internal/domain"
	"github.com/civicdesk/municipal-service/internal/repository"
	"github.com/civicdesk/municipal-service/internal/validation"
	apperrors "github.com/civicdesk/municipal-service/pkg/util"
)

// CatalogKind names one public catalog collection.
type CatalogKind string

const (
	KindProjects      CatalogKind = "projects"
	KindDepartments   CatalogKind = "departments"
	KindAnnouncements CatalogKind = "announcements"
	KindDeliberations CatalogKind = "deliberations"
	KindDecisions     CatalogKind = "decisions"
	KindServices      CatalogKind = "services"
	KindSettings      CatalogKind = "settings"
)

// CatalogCache stores serialized list responses.
type CatalogCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type fieldRule struct {
	name     string
	required bool
	maxLen   int
	date     bool
}

// catalogSchemas declares the text field rules of each writable kind.
var catalogSchemas = map[CatalogKind][]fieldRule{
	KindProjects: {
		{name: "title", required: true, maxLen: 200},
		{name: "status", maxLen: 50},
		{name: "category", maxLen: 100},
		{name: "contractor", maxLen: 200},
		{name: "start_date", date: true},
		{name: "end_date", date: true},
		{name: "image_url", maxLen: 500},
	},
	KindDepartments: {
		{name: "name", required: true, maxLen: 100},
	},
	KindAnnouncements: {
		{name: "title", required: true, maxLen: 200},
		{name: "content", required: true},
		{name: "author", maxLen: 100},
		{name: "announcement_type", maxLen: 100},
		{name: "document_url", maxLen: 500},
		{name: "image_url", maxLen: 500},
	},
	KindDeliberations: {
		{name: "title", required: true, maxLen: 200},
		{name: "date", date: true},
		{name: "category", maxLen: 100},
		{name: "document_url", maxLen: 500},
		{name: "image_url", maxLen: 500},
	},
	KindDecisions: {
		{name: "title", required: true, maxLen: 200},
		{name: "type", maxLen: 100},
		{name: "date", date: true},
		{name: "document_url", maxLen: 500},
	},
	KindServices: {
		{name: "name", required: true, maxLen: 200},
		{name: "working_hours", maxLen: 200},
	},
	KindSettings: {
		{name: "setting_name", required: true, maxLen: 100},
	},
}

func validateFields(kind CatalogKind, values map[string]string, v validation.Violations) {
	for _, rule := range catalogSchemas[kind] {
		value := values[rule.name]
		if rule.required {
			validation.Required(rule.name, value, v)
		}
		if rule.maxLen > 0 {
			validation.MaxLength(rule.name, value, rule.maxLen, v)
		}
		if rule.date {
			validation.Date(rule.name, value, v)
		}
	}
}

// CatalogService serves the public municipal catalog and its admin writes.
type CatalogService struct {
	projects     repository.ProjectRepository
	departments  repository.DepartmentRepository
	publications repository.PublicationRepository
	services     repository.MunicipalServiceRepository
	cache        CatalogCache
	cacheTTL     time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// CatalogDependencies bundles repositories for the catalog service.
type CatalogDependencies struct {
	ProjectRepo     repository.ProjectRepository
	DepartmentRepo  repository.DepartmentRepository
	PublicationRepo repository.PublicationRepository
	ServiceRepo     repository.MunicipalServiceRepository
	Cache           CatalogCache
	CacheTTL        time.Duration
	Logger          *zap.Logger
}

// NewCatalogService constructs the service. A nil cache disables caching.
func NewCatalogService(deps CatalogDependencies) *CatalogService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogService{
		projects:     deps.ProjectRepo,
		departments:  deps.DepartmentRepo,
		publications: deps.PublicationRepo,
		services:     deps.ServiceRepo,
		cache:        deps.Cache,
		cacheTTL:     deps.CacheTTL,
		logger:       logger,
		now:          time.Now,
	}
}

func (s *CatalogService) ListProjects(ctx context.Context) ([]domain.Project, error) {
	return cachedList(ctx, s, KindProjects, s.projects.List)
}

func (s *CatalogService) GetProject(ctx context.Context, id string) (*domain.Project, error) {
	project, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "project", id)
	}
	return project, nil
}

func (s *CatalogService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return cachedList(ctx, s, KindDepartments, s.departments.List)
}

func (s *CatalogService) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "department", id)
	}
	return dept, nil
}

func (s *CatalogService) ListAnnouncements(ctx context.Context) ([]domain.Announcement, error) {
	return cachedList(ctx, s, KindAnnouncements, s.publications.ListAnnouncements)
}

func (s *CatalogService) ListDeliberations(ctx context.Context) ([]domain.Deliberation, error) {
	return cachedList(ctx, s, KindDeliberations, s.publications.ListDeliberations)
}

func (s *CatalogService) ListDecisions(ctx context.Context) ([]domain.Decision, error) {
	return cachedList(ctx, s, KindDecisions, s.publications.ListDecisions)
}

func (s *CatalogService) ListServices(ctx context.Context) ([]domain.MunicipalService, error) {
	return cachedList(ctx, s, KindServices, s.services.List)
}

func (s *CatalogService) ListSettings(ctx context.Context) ([]domain.SiteSetting, error) {
	return cachedList(ctx, s, KindSettings, s.services.ListSettings)
}

// SaveProject creates the project when ID is empty and replaces it otherwise.
func (s *CatalogService) SaveProject(ctx context.Context, actor *domain.Account, p *domain.Project) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	p.Title = strings.TrimSpace(p.Title)
	v := validation.Violations{}
	validateFields(KindProjects, map[string]string{
		"title":      p.Title,
		"status":     p.Status,
		"category":   p.Category,
		"contractor": p.Contractor,
		"start_date": p.StartDate,
		"end_date":   p.EndDate,
		"image_url":  p.ImageURL,
	}, v)
	validation.IntRange("progress_percentage", p.ProgressPercentage, 0, 100, v)
	validation.NonNegativeFloat("budget", p.Budget, v)
	if err := v.Err(); err != nil {
		return err
	}
	return s.write(ctx, KindProjects, p.ID, "project", func() error {
		if p.ID == "" {
			return s.projects.Create(ctx, p)
		}
		return s.projects.Update(ctx, p)
	})
}

func (s *CatalogService) DeleteProject(ctx context.Context, actor *domain.Account, id string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	return s.write(ctx, KindProjects, id, "project", func() error {
		return s.projects.Delete(ctx, id)
	})
}

func (s *CatalogService) SaveDepartment(ctx context.Context, actor *domain.Account, d *domain.Department) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	d.Name = strings.TrimSpace(d.Name)
	v := validation.Violations{}
	validateFields(KindDepartments, map[string]string{"name": d.Name}, v)
	if err := v.Err(); err != nil {
		return err
	}
	return s.write(ctx, KindDepartments, d.ID, "department", func() error {
		if d.ID == "" {
			return s.departments.Create(ctx, d)
		}
		return s.departments.Update(ctx, d)
	})
}

// SaveAnnouncement defaults the publication date to now.
func (s *CatalogService) SaveAnnouncement(ctx context.Context, actor *domain.Account, a *domain.Announcement) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	a.Title = strings.TrimSpace(a.Title)
	v := validation.Violations{}
	validateFields(KindAnnouncements, map[string]string{
		"title":             a.Title,
		"content":           a.Content,
		"author":            a.Author,
		"announcement_type": a.AnnouncementType,
		"document_url":      a.DocumentURL,
		"image_url":         a.ImageURL,
	}, v)
	if err := v.Err(); err != nil {
		return err
	}
	if a.DatePublished.IsZero() {
		a.DatePublished = s.now().UTC().Truncate(time.Microsecond)
	}
	return s.write(ctx, KindAnnouncements, a.ID, "announcement", func() error {
		if a.ID == "" {
			return s.publications.CreateAnnouncement(ctx, a)
		}
		return s.publications.UpdateAnnouncement(ctx, a)
	})
}

func (s *CatalogService) SaveDeliberation(ctx context.Context, actor *domain.Account, d *domain.Deliberation) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	d.Title = strings.TrimSpace(d.Title)
	v := validation.Violations{}
	validateFields(KindDeliberations, map[string]string{
		"title":        d.Title,
		"date":         d.Date,
		"category":     d.Category,
		"document_url": d.DocumentURL,
		"image_url":    d.ImageURL,
	}, v)
	if err := v.Err(); err != nil {
		return err
	}
	return s.write(ctx, KindDeliberations, d.ID, "deliberation", func() error {
		if d.ID == "" {
			return s.publications.CreateDeliberation(ctx, d)
		}
		return s.publications.UpdateDeliberation(ctx, d)
	})
}

func (s *CatalogService) SaveDecision(ctx context.Context, actor *domain.Account, d *domain.Decision) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	d.Title = strings.TrimSpace(d.Title)
	v := validation.Violations{}
	validateFields(KindDecisions, map[string]string{
		"title":        d.Title,
		"type":         d.Type,
		"date":         d.Date,
		"document_url": d.DocumentURL,
	}, v)
	if err := v.Err(); err != nil {
		return err
	}
	return s.write(ctx, KindDecisions, d.ID, "decision", func() error {
		if d.ID == "" {
			return s.publications.CreateDecision(ctx, d)
		}
		return s.publications.UpdateDecision(ctx, d)
	})
}

func (s *CatalogService) SaveService(ctx context.Context, actor *domain.Account, svc *domain.MunicipalService) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	svc.Name = strings.TrimSpace(svc.Name)
	v := validation.Violations{}
	validateFields(KindServices, map[string]string{
		"name":          svc.Name,
		"working_hours": svc.WorkingHours,
	}, v)
	validation.NonNegativeFloat("fees", svc.Fees, v)
	if err := v.Err(); err != nil {
		return err
	}
	return s.write(ctx, KindServices, svc.ID, "service", func() error {
		if svc.ID == "" {
			return s.services.Create(ctx, svc)
		}
		return s.services.Update(ctx, svc)
	})
}

// UpsertSetting writes a setting keyed by its name.
func (s *CatalogService) UpsertSetting(ctx context.Context, actor *domain.Account, setting *domain.SiteSetting) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	setting.Name = strings.TrimSpace(setting.Name)
	v := validation.Violations{}
	validateFields(KindSettings, map[string]string{"setting_name": setting.Name}, v)
	if err := v.Err(); err != nil {
		return err
	}
	return s.write(ctx, KindSettings, "", "setting", func() error {
		return s.services.UpsertSetting(ctx, setting)
	})
}

// write runs fn and drops the cached listing of kind on success.
func (s *CatalogService) write(ctx context.Context, kind CatalogKind, id, resource string, fn func() error) error {
	if err := fn(); err != nil {
		return notFoundOr(err, resource, id)
	}
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, string(kind)); err != nil {
			s.logger.Warn("catalog cache invalidation failed", zap.String("kind", string(kind)), zap.Error(err))
		}
	}
	return nil
}

// cachedList serves kind from the cache, loading and storing it on a miss.
// Cache failures fall through to the repository.
func cachedList[T any](ctx context.Context, s *CatalogService, kind CatalogKind, load func(context.Context) ([]T, error)) ([]T, error) {
	if s.cache == nil || s.cacheTTL <= 0 {
		return nonNil(load(ctx))
	}
	key := string(kind)
	if payload, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn("catalog cache read failed", zap.String("kind", key), zap.Error(err))
	} else if ok {
		var items []T
		if err := json.Unmarshal(payload, &items); err == nil {
			return items, nil
		}
	}

	items, err := nonNil(load(ctx))
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(items); err == nil {
		if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
			s.logger.Warn("catalog cache write failed", zap.String("kind", key), zap.Error(err))
		}
	}
	return items, nil
}

func nonNil[T any](items []T, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func requireAdmin(actor *domain.Account) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role != domain.RoleAdmin {
		return apperrors.NewForbidden("administrator role required")
	}
	return nil
}

func notFoundOr(err error, resource, id string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return err
}
