package domain

import "time"

// Notification is a one-way message to a request owner, produced by a
// lifecycle transition.
type Notification struct {
	ID          string
	RecipientID string
	RequestID   *string
	Message     string
	Read        bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}
