package domain

import (
	"encoding/json"
	"time"
)

// OutboxEvent is a lifecycle event persisted alongside the state change that
// produced it and relayed to subscribers afterwards.
type OutboxEvent struct {
	ID          string
	EventType   string
	AggregateID string
	Payload     json.RawMessage
	Attempts    int
	CreatedAt   time.Time
	ProcessedAt *time.Time
}
