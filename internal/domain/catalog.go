package domain

import "time"

// Department is a municipal administrative unit.
type Department struct {
	ID          string
	Name        string
	Description string
}

// Project is a public works project shown on the municipal site.
type Project struct {
	ID                 string
	Title              string
	Description        string
	Status             string
	Category           string
	Budget             *float64
	Contractor         string
	StartDate          string
	EndDate            string
	ProgressPercentage int
	ImageURL           string
}

// Announcement is a dated public notice (tenders, consultations, general news).
type Announcement struct {
	ID               string
	Title            string
	Content          string
	DatePublished    time.Time
	Author           string
	AnnouncementType string
	DocumentURL      string
	ImageURL         string
	Deadline         *time.Time
}

// Deliberation is a council deliberation record.
type Deliberation struct {
	ID          string
	Title       string
	Description string
	Date        string
	Category    string
	DocumentURL string
	ImageURL    string
}

// Decision is a published municipal decision.
type Decision struct {
	ID          string
	Title       string
	Type        string
	Date        string
	DocumentURL string
}

// MunicipalService describes an administrative service offered to citizens.
type MunicipalService struct {
	ID                string
	Name              string
	Description       string
	RequiredDocuments string
	Steps             string
	Fees              *float64
	WorkingHours      string
}

// SiteSetting is a named configuration value for the public site.
type SiteSetting struct {
	ID    string
	Name  string
	Value string
}
