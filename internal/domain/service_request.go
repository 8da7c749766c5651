package domain

import (
	"strings"
	"time"
)

// RequestStatus enumerates lifecycle states for citizen requests.
type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "PENDING"
	RequestStatusApproved   RequestStatus = "APPROVED"
	RequestStatusRejected   RequestStatus = "REJECTED"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusCompleted  RequestStatus = "COMPLETED"
)

var statusLabels = map[RequestStatus]string{
	RequestStatusPending:    "Pending",
	RequestStatusApproved:   "Approved",
	RequestStatusRejected:   "Rejected",
	RequestStatusInProgress: "In Progress",
	RequestStatusCompleted:  "Completed",
}

var allowedTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusPending:    {RequestStatusApproved, RequestStatusRejected, RequestStatusInProgress},
	RequestStatusApproved:   {RequestStatusInProgress, RequestStatusCompleted},
	RequestStatusInProgress: {RequestStatusCompleted},
	RequestStatusRejected:   {},
	RequestStatusCompleted:  {},
}

// Label returns the human readable name used in notifications.
func (s RequestStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Valid reports whether s is an enumerated status.
func (s RequestStatus) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Terminal statuses have no outgoing transitions.
func (s RequestStatus) Terminal() bool {
	next, ok := allowedTransitions[s]
	return ok && len(next) == 0
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, candidate := range allowedTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// ParseRequestStatus accepts either the stored code ("IN_PROGRESS") or the
// display label ("In Progress"), case-insensitively.
func ParseRequestStatus(raw string) (RequestStatus, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	normalized = strings.ReplaceAll(normalized, "-", "_")
	status := RequestStatus(normalized)
	if !status.Valid() {
		return "", false
	}
	return status, true
}

// ServiceRequest is a citizen-submitted issue tracked through a status lifecycle.
type ServiceRequest struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Category    string
	Status      RequestStatus
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
