package domain

import "time"

// RequestHistory is an immutable audit entry for a status change.
type RequestHistory struct {
	ID        string
	RequestID string
	ChangedBy string
	OldStatus RequestStatus
	NewStatus RequestStatus
	CreatedAt time.Time
}
