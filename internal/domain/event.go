package domain

import "time"

// EventKind identifies a lifecycle milestone of a help request.
type EventKind string

const (
	EventCreated   EventKind = "created"
	EventEscalated EventKind = "escalated"
	EventResponded EventKind = "responded"
	EventTimeout   EventKind = "timeout"
	EventResolved  EventKind = "resolved"
)

// LifecycleEvent is an immutable record of one transition or milestone.
type LifecycleEvent struct {
	ID        string    `json:"id"`
	RequestID string    `json:"request_id"`
	Kind      EventKind `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}
