// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/ashureev/frontdesk/internal/domain"
)

var (
	// ErrNotFound is returned by updates that reference a missing record.
	ErrNotFound = errors.New("record not found")

	// ErrStatusConflict is returned when an update's ExpectStatus does not
	// match the stored status (optimistic lock failure).
	ErrStatusConflict = errors.New("status does not match expected status")
)

// NewHelpRequest carries the caller-supplied fields of a help request.
type NewHelpRequest struct {
	SessionID       string
	Question        string
	CustomerContact string
	CreatedAt       time.Time
	// Window is added to CreatedAt to compute the timeout deadline.
	Window time.Duration
}

// RequestPatch is a partial update of a help request. Nil fields are left unchanged.
type RequestPatch struct {
	// ExpectStatus, when non-empty, makes the update a compare-and-set:
	// it only applies if the stored status equals ExpectStatus.
	ExpectStatus domain.RequestStatus

	Status     *domain.RequestStatus
	ResolvedAt *time.Time
	Answer     *string
}

// Stats is a point-in-time summary of store contents.
type Stats struct {
	TotalRequests    int `json:"total_requests"`
	PendingRequests  int `json:"pending_requests"`
	ResolvedRequests int `json:"resolved_requests"`
	TimeoutRequests  int `json:"timeout_requests"`
	KnowledgeEntries int `json:"knowledge_entries"`
}

// RequestStore persists help requests.
type RequestStore interface {
	// CreateRequest stores a new pending request and assigns its ID and deadline.
	CreateRequest(ctx context.Context, req NewHelpRequest) (*domain.HelpRequest, error)

	// GetRequest retrieves a request by ID. Returns nil, nil if absent.
	GetRequest(ctx context.Context, id string) (*domain.HelpRequest, error)

	// ListRequests returns all requests, newest first.
	ListRequests(ctx context.Context) ([]*domain.HelpRequest, error)

	// ListPending returns pending requests, oldest first.
	ListPending(ctx context.Context) ([]*domain.HelpRequest, error)

	// ListExpired returns pending requests whose deadline is at or before now, oldest first.
	ListExpired(ctx context.Context, now time.Time) ([]*domain.HelpRequest, error)

	// UpdateRequest applies a partial update and returns the updated record.
	UpdateRequest(ctx context.Context, id string, patch RequestPatch) (*domain.HelpRequest, error)
}

// KnowledgeStore persists knowledge entries.
type KnowledgeStore interface {
	// AddKnowledgeEntry stores a new entry. Empty tags default to {"general"}.
	AddKnowledgeEntry(ctx context.Context, question, answer string, tags []string) (*domain.KnowledgeEntry, error)

	// GetKnowledgeEntry retrieves an entry by ID. Returns nil, nil if absent.
	GetKnowledgeEntry(ctx context.Context, id string) (*domain.KnowledgeEntry, error)

	// ListKnowledgeEntries returns all entries, newest first.
	ListKnowledgeEntries(ctx context.Context) ([]*domain.KnowledgeEntry, error)

	// IncrementUsage bumps the usage counter. Returns nil, nil if absent.
	IncrementUsage(ctx context.Context, id string) (*domain.KnowledgeEntry, error)

	// SearchKnowledge returns entries whose question, answer or tags contain
	// query (case-insensitive), most used first.
	SearchKnowledge(ctx context.Context, query string) ([]*domain.KnowledgeEntry, error)

	// DeleteKnowledgeEntry removes an entry and reports whether it existed.
	DeleteKnowledgeEntry(ctx context.Context, id string) (bool, error)
}

// Repository combines request and knowledge persistence.
type Repository interface {
	RequestStore
	KnowledgeStore

	// Stats summarizes store contents.
	Stats(ctx context.Context) (Stats, error)

	// Ping verifies the backing store is reachable.
	Ping(ctx context.Context) error

	// Close releases the backing store.
	Close() error
}
