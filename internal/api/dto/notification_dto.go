package dto

import (
	"time"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// NotificationResponse response.
type NotificationResponse struct {
	ID        string     `json:"id"`
	RequestID *string    `json:"request_id"`
	Message   string     `json:"message"`
	Read      bool       `json:"read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewNotificationResponse maps a domain notification.
func NewNotificationResponse(n *domain.Notification) NotificationResponse {
	return NotificationResponse{
		ID:        n.ID,
		RequestID: n.RequestID,
		Message:   n.Message,
		Read:      n.Read,
		ReadAt:    n.ReadAt,
		CreatedAt: n.CreatedAt,
	}
}
