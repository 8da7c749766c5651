package dto

import (
	"time"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// Catalog payloads double as request bodies and responses; field names
// follow the public site's JSON contract.

type ProjectPayload struct {
	ID                 string   `json:"id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	Status             string   `json:"status"`
	Category           string   `json:"category"`
	Budget             *float64 `json:"budget"`
	Contractor         string   `json:"contractor"`
	StartDate          string   `json:"start_date"`
	EndDate            string   `json:"end_date"`
	ProgressPercentage int      `json:"progress_percentage"`
	ImageURL           string   `json:"image_url"`
}

func (p ProjectPayload) ToDomain() domain.Project {
	return domain.Project{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		Status:             p.Status,
		Category:           p.Category,
		Budget:             p.Budget,
		Contractor:         p.Contractor,
		StartDate:          p.StartDate,
		EndDate:            p.EndDate,
		ProgressPercentage: p.ProgressPercentage,
		ImageURL:           p.ImageURL,
	}
}

func NewProjectPayload(p domain.Project) ProjectPayload {
	return ProjectPayload{
		ID:                 p.ID,
		Title:              p.Title,
		Description:        p.Description,
		Status:             p.Status,
		Category:           p.Category,
		Budget:             p.Budget,
		Contractor:         p.Contractor,
		StartDate:          p.StartDate,
		EndDate:            p.EndDate,
		ProgressPercentage: p.ProgressPercentage,
		ImageURL:           p.ImageURL,
	}
}

type DepartmentPayload struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (d DepartmentPayload) ToDomain() domain.Department {
	return domain.Department{ID: d.ID, Name: d.Name, Description: d.Description}
}

func NewDepartmentPayload(d domain.Department) DepartmentPayload {
	return DepartmentPayload{ID: d.ID, Name: d.Name, Description: d.Description}
}

type AnnouncementPayload struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Content          string     `json:"content"`
	DatePublished    *time.Time `json:"date_published"`
	Author           string     `json:"author"`
	AnnouncementType string     `json:"announcement_type"`
	DocumentURL      string     `json:"document_url"`
	ImageURL         string     `json:"image_url"`
	Deadline         *time.Time `json:"deadline"`
}

func (a AnnouncementPayload) ToDomain() domain.Announcement {
	out := domain.Announcement{
		ID:               a.ID,
		Title:            a.Title,
		Content:          a.Content,
		Author:           a.Author,
		AnnouncementType: a.AnnouncementType,
		DocumentURL:      a.DocumentURL,
		ImageURL:         a.ImageURL,
		Deadline:         a.Deadline,
	}
	if a.DatePublished != nil {
		out.DatePublished = *a.DatePublished
	}
	return out
}

func NewAnnouncementPayload(a domain.Announcement) AnnouncementPayload {
	published := a.DatePublished
	return AnnouncementPayload{
		ID:               a.ID,
		Title:            a.Title,
		Content:          a.Content,
		DatePublished:    &published,
		Author:           a.Author,
		AnnouncementType: a.AnnouncementType,
		DocumentURL:      a.DocumentURL,
		ImageURL:         a.ImageURL,
		Deadline:         a.Deadline,
	}
}

type DeliberationPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Category    string `json:"category"`
	DocumentURL string `json:"document_url"`
	ImageURL    string `json:"image_url"`
}

func (d DeliberationPayload) ToDomain() domain.Deliberation {
	return domain.Deliberation(d)
}

func NewDeliberationPayload(d domain.Deliberation) DeliberationPayload {
	return DeliberationPayload(d)
}

type DecisionPayload struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	Date        string `json:"date"`
	DocumentURL string `json:"document_url"`
}

func (d DecisionPayload) ToDomain() domain.Decision {
	return domain.Decision(d)
}

func NewDecisionPayload(d domain.Decision) DecisionPayload {
	return DecisionPayload(d)
}

type ServicePayload struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Description       string   `json:"description"`
	RequiredDocuments string   `json:"required_documents"`
	Steps             string   `json:"steps"`
	Fees              *float64 `json:"fees"`
	WorkingHours      string   `json:"working_hours"`
}

func (s ServicePayload) ToDomain() domain.MunicipalService {
	return domain.MunicipalService(s)
}

func NewServicePayload(s domain.MunicipalService) ServicePayload {
	return ServicePayload(s)
}

type SettingPayload struct {
	ID    string `json:"id"`
	Name  string `json:"setting_name"`
	Value string `json:"setting_value"`
}

func NewSettingPayload(s domain.SiteSetting) SettingPayload {
	return SettingPayload(s)
}
