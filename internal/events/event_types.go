package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/civicdesk/municipal-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventRequestCreated       EventType = "request.created"
	EventRequestStatusChanged EventType = "request.status_changed"
)

// Event represents a lifecycle event recorded in the outbox and relayed to subscribers.
type Event struct {
	ID        string          `json:"id"`
	Type      EventType       `json:"type"`
	RequestID string          `json:"request_id"`
	ActorID   string          `json:"actor_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// RequestCreatedPayload payload.
type RequestCreatedPayload struct {
	OwnerID  string `json:"owner_id"`
	Title    string `json:"title"`
	Category string `json:"category"`
}

// RequestStatusChangedPayload payload.
type RequestStatusChangedPayload struct {
	OwnerID        string               `json:"owner_id"`
	Title          string               `json:"title"`
	OldStatus      domain.RequestStatus `json:"old_status"`
	NewStatus      domain.RequestStatus `json:"new_status"`
	NotificationID string               `json:"notification_id"`
}

// NewEvent builds an event with a fresh id and a marshaled payload.
func NewEvent(eventType EventType, requestID, actorID string, at time.Time, payload any) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		ActorID:   actorID,
		Timestamp: at,
		Payload:   raw,
	}, nil
}

// Decode unmarshals the payload into dst.
func (e Event) Decode(dst any) error {
	return json.Unmarshal(e.Payload, dst)
}

// ToOutbox converts the event into its stored outbox form. The whole
// envelope is kept as the row payload so the relay can rebuild it.
func (e Event) ToOutbox() (domain.OutboxEvent, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return domain.OutboxEvent{}, err
	}
	return domain.OutboxEvent{
		ID:          e.ID,
		EventType:   string(e.Type),
		AggregateID: e.RequestID,
		Payload:     raw,
		CreatedAt:   e.Timestamp,
	}, nil
}

// FromOutbox rebuilds an event from a stored outbox row.
func FromOutbox(row domain.OutboxEvent) (Event, error) {
	var e Event
	if err := json.Unmarshal(row.Payload, &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
