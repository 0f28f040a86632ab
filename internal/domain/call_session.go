package domain

import (
	"time"
)

// CallStatus is the state of an inbound call handled by the receptionist.
type CallStatus string

const (
	CallActive    CallStatus = "active"
	CallEscalated CallStatus = "escalated"
	CallCompleted CallStatus = "completed"
)

// CallSession holds the transcript and escalations of one inbound call.
type CallSession struct {
	ID             string     `json:"id"`
	Contact        string     `json:"contact"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	Status         CallStatus `json:"status"`
	Transcript     []string   `json:"transcript"`
	HelpRequestIDs []string   `json:"help_request_ids"`
}

// AddLine appends a speaker-tagged line to the transcript.
func (c *CallSession) AddLine(speaker, message string) {
	c.Transcript = append(c.Transcript, speaker+": "+message)
}

// IsOpen returns true until the call is completed.
func (c *CallSession) IsOpen() bool {
	return c.Status != CallCompleted
}
