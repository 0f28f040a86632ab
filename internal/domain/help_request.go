// Package domain contains core domain types for the frontdesk escalation service.
package domain

import (
	"time"
)

// RequestStatus is the lifecycle state of a help request.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusResolved RequestStatus = "resolved"
	StatusTimeout  RequestStatus = "timeout"
)

// IsTerminal returns true for resolved and timeout.
func (s RequestStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusTimeout
}

// HelpRequest is a customer question the automated agent escalated to a human.
type HelpRequest struct {
	ID              string        `json:"id"`
	SessionID       string        `json:"session_id"`
	Question        string        `json:"question"`
	CustomerContact string        `json:"customer_contact"`
	Status          RequestStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	TimeoutAt       time.Time     `json:"timeout_at"`
	ResolvedAt      *time.Time    `json:"resolved_at,omitempty"`
	Answer          string        `json:"answer,omitempty"`
}

// IsPending returns true if the request still awaits a human answer.
func (r *HelpRequest) IsPending() bool {
	return r.Status == StatusPending
}

// TimeRemaining returns the time until the request times out.
// Returns 0 if the deadline has already passed.
func (r *HelpRequest) TimeRemaining(now time.Time) time.Duration {
	remaining := r.TimeoutAt.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ResolutionLatency returns how long the request took to leave pending.
// The second value is false while the request is still pending.
func (r *HelpRequest) ResolutionLatency() (time.Duration, bool) {
	if r.ResolvedAt == nil {
		return 0, false
	}
	return r.ResolvedAt.Sub(r.CreatedAt), true
}
