package memstore

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// replaceByID swaps the element whose id matches and reports whether it did.
func replaceByID[T any](items []T, id string, idOf func(T) string, next T) bool {
	for i := range items {
		if idOf(items[i]) == id {
			items[i] = next
			return true
		}
	}
	return false
}

type projectRepo struct{ s *Store }

func projectID(p domain.Project) string { return p.ID }

func (r projectRepo) Create(_ context.Context, p *domain.Project) error {
	if err := r.s.runHook("projects.Create"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p.ID = uuid.NewString()
	r.s.data.projects = append(r.s.data.projects, *p)
	return nil
}

func (r projectRepo) Update(_ context.Context, p *domain.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !replaceByID(r.s.data.projects, p.ID, projectID, *p) {
		return errNotFound
	}
	return nil
}

func (r projectRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, p := range r.s.data.projects {
		if p.ID == id {
			r.s.data.projects = append(r.s.data.projects[:i:i], r.s.data.projects[i+1:]...)
			return nil
		}
	}
	return errNotFound
}

func (r projectRepo) GetByID(_ context.Context, id string) (*domain.Project, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.data.projects {
		if p.ID == id {
			found := p
			return &found, nil
		}
	}
	return nil, errNotFound
}

func (r projectRepo) List(_ context.Context) ([]domain.Project, error) {
	if err := r.s.runHook("projects.List"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.Project(nil), r.s.data.projects...), nil
}

type departmentRepo struct{ s *Store }

func departmentID(d domain.Department) string { return d.ID }

func (r departmentRepo) Create(_ context.Context, d *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = uuid.NewString()
	r.s.data.departments = append(r.s.data.departments, *d)
	return nil
}

func (r departmentRepo) Update(_ context.Context, d *domain.Department) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !replaceByID(r.s.data.departments, d.ID, departmentID, *d) {
		return errNotFound
	}
	return nil
}

func (r departmentRepo) GetByID(_ context.Context, id string) (*domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, d := range r.s.data.departments {
		if d.ID == id {
			found := d
			return &found, nil
		}
	}
	return nil, errNotFound
}

func (r departmentRepo) List(_ context.Context) ([]domain.Department, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.Department(nil), r.s.data.departments...), nil
}

type publicationRepo struct{ s *Store }

func (r publicationRepo) CreateAnnouncement(_ context.Context, a *domain.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	a.ID = uuid.NewString()
	r.s.data.announcements = append(r.s.data.announcements, *a)
	return nil
}

func (r publicationRepo) UpdateAnnouncement(_ context.Context, a *domain.Announcement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !replaceByID(r.s.data.announcements, a.ID, func(x domain.Announcement) string { return x.ID }, *a) {
		return errNotFound
	}
	return nil
}

func (r publicationRepo) ListAnnouncements(_ context.Context) ([]domain.Announcement, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]domain.Announcement(nil), r.s.data.announcements...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DatePublished.After(out[j].DatePublished) })
	return out, nil
}

func (r publicationRepo) CreateDeliberation(_ context.Context, d *domain.Deliberation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = uuid.NewString()
	r.s.data.deliberations = append(r.s.data.deliberations, *d)
	return nil
}

func (r publicationRepo) UpdateDeliberation(_ context.Context, d *domain.Deliberation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !replaceByID(r.s.data.deliberations, d.ID, func(x domain.Deliberation) string { return x.ID }, *d) {
		return errNotFound
	}
	return nil
}

func (r publicationRepo) ListDeliberations(_ context.Context) ([]domain.Deliberation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]domain.Deliberation(nil), r.s.data.deliberations...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (r publicationRepo) CreateDecision(_ context.Context, d *domain.Decision) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d.ID = uuid.NewString()
	r.s.data.decisions = append(r.s.data.decisions, *d)
	return nil
}

func (r publicationRepo) UpdateDecision(_ context.Context, d *domain.Decision) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !replaceByID(r.s.data.decisions, d.ID, func(x domain.Decision) string { return x.ID }, *d) {
		return errNotFound
	}
	return nil
}

func (r publicationRepo) ListDecisions(_ context.Context) ([]domain.Decision, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]domain.Decision(nil), r.s.data.decisions...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

type serviceRepo struct{ s *Store }

func (r serviceRepo) Create(_ context.Context, svc *domain.MunicipalService) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	svc.ID = uuid.NewString()
	r.s.data.services = append(r.s.data.services, *svc)
	return nil
}

func (r serviceRepo) Update(_ context.Context, svc *domain.MunicipalService) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !replaceByID(r.s.data.services, svc.ID, func(x domain.MunicipalService) string { return x.ID }, *svc) {
		return errNotFound
	}
	return nil
}

func (r serviceRepo) List(_ context.Context) ([]domain.MunicipalService, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([]domain.MunicipalService(nil), r.s.data.services...), nil
}

func (r serviceRepo) ListSettings(_ context.Context) ([]domain.SiteSetting, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := append([]domain.SiteSetting(nil), r.s.data.settings...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r serviceRepo) UpsertSetting(_ context.Context, setting *domain.SiteSetting) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, existing := range r.s.data.settings {
		if existing.Name == setting.Name {
			setting.ID = existing.ID
			r.s.data.settings[i] = *setting
			return nil
		}
	}
	setting.ID = uuid.NewString()
	r.s.data.settings = append(r.s.data.settings, *setting)
	return nil
}
