package dto

import (
	"time"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// CreateRequestRequest payload.
type CreateRequestRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// TransitionRequest payload.
type TransitionRequest struct {
	Status string `json:"status"`
}

// RequestSummary response.
type RequestSummary struct {
	ID          string               `json:"id"`
	OwnerID     string               `json:"owner_id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Status      domain.RequestStatus `json:"status"`
	StatusLabel string               `json:"status_label"`
	Version     int64                `json:"version"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// RequestDetailResponse provides full request info.
type RequestDetailResponse struct {
	RequestSummary
	History []RequestHistoryResponse `json:"history"`
}

// RequestHistoryResponse is one audit entry.
type RequestHistoryResponse struct {
	ID        string               `json:"id"`
	ChangedBy string               `json:"changed_by"`
	OldStatus domain.RequestStatus `json:"old_status"`
	NewStatus domain.RequestStatus `json:"new_status"`
	CreatedAt time.Time            `json:"created_at"`
}

// NewRequestSummary maps a domain request.
func NewRequestSummary(r *domain.ServiceRequest) RequestSummary {
	return RequestSummary{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Status:      r.Status,
		StatusLabel: r.Status.Label(),
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// NewRequestDetail maps a request with its history.
func NewRequestDetail(r *domain.ServiceRequest, history []domain.RequestHistory) RequestDetailResponse {
	entries := make([]RequestHistoryResponse, 0, len(history))
	for _, h := range history {
		entries = append(entries, RequestHistoryResponse{
			ID:        h.ID,
			ChangedBy: h.ChangedBy,
			OldStatus: h.OldStatus,
			NewStatus: h.NewStatus,
			CreatedAt: h.CreatedAt,
		})
	}
	return RequestDetailResponse{RequestSummary: NewRequestSummary(r), History: entries}
}
