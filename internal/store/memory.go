package store

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/google/uuid"
)

type memRequest struct {
	seq int64
	req domain.HelpRequest
}

type memEntry struct {
	seq   int64
	entry domain.KnowledgeEntry
}

// MemoryStore implements Repository in process memory.
// Records are copied on the way in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	seq       int64
	requests  map[string]*memRequest
	knowledge map[string]*memEntry
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		requests:  make(map[string]*memRequest),
		knowledge: make(map[string]*memEntry),
	}
}

func (s *MemoryStore) nextSeq() int64 {
	s.seq++
	return s.seq
}

func cloneRequest(r *domain.HelpRequest) *domain.HelpRequest {
	out := *r
	if r.ResolvedAt != nil {
		ts := *r.ResolvedAt
		out.ResolvedAt = &ts
	}
	return &out
}

func cloneEntry(e *domain.KnowledgeEntry) *domain.KnowledgeEntry {
	out := *e
	out.Tags = slices.Clone(e.Tags)
	return &out
}

// CreateRequest stores a new pending request.
func (s *MemoryStore) CreateRequest(_ context.Context, in NewHelpRequest) (*domain.HelpRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req := domain.HelpRequest{
		ID:              uuid.NewString(),
		SessionID:       in.SessionID,
		Question:        in.Question,
		CustomerContact: in.CustomerContact,
		Status:          domain.StatusPending,
		CreatedAt:       in.CreatedAt,
		TimeoutAt:       in.CreatedAt.Add(in.Window),
	}
	s.requests[req.ID] = &memRequest{seq: s.nextSeq(), req: req}
	slog.Debug("Created help request", "request_id", req.ID)
	return cloneRequest(&req), nil
}

// GetRequest retrieves a request by ID.
func (s *MemoryStore) GetRequest(_ context.Context, id string) (*domain.HelpRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return cloneRequest(&r.req), nil
}

func (s *MemoryStore) sortedRequests(keep func(*domain.HelpRequest) bool, oldestFirst bool) []*domain.HelpRequest {
	rows := make([]*memRequest, 0, len(s.requests))
	for _, r := range s.requests {
		if keep == nil || keep(&r.req) {
			rows = append(rows, r)
		}
	}
	slices.SortFunc(rows, func(a, b *memRequest) int {
		c := a.req.CreatedAt.Compare(b.req.CreatedAt)
		if c == 0 {
			c = cmp.Compare(a.seq, b.seq)
		}
		if oldestFirst {
			return c
		}
		return -c
	})

	out := make([]*domain.HelpRequest, len(rows))
	for i, r := range rows {
		out[i] = cloneRequest(&r.req)
	}
	return out
}

// ListRequests returns all requests, newest first.
func (s *MemoryStore) ListRequests(_ context.Context) ([]*domain.HelpRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedRequests(nil, false), nil
}

// ListPending returns pending requests, oldest first.
func (s *MemoryStore) ListPending(_ context.Context) ([]*domain.HelpRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedRequests((*domain.HelpRequest).IsPending, true), nil
}

// ListExpired returns pending requests past their deadline, oldest first.
func (s *MemoryStore) ListExpired(_ context.Context, now time.Time) ([]*domain.HelpRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedRequests(func(r *domain.HelpRequest) bool {
		return r.IsPending() && !r.TimeoutAt.After(now)
	}, true), nil
}

// UpdateRequest applies a partial update under the store lock, so an
// ExpectStatus check and the write happen atomically.
func (s *MemoryStore) UpdateRequest(_ context.Context, id string, patch RequestPatch) (*domain.HelpRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.ExpectStatus != "" && r.req.Status != patch.ExpectStatus {
		slog.Debug("UpdateRequest status mismatch",
			"request_id", id,
			"expected", patch.ExpectStatus,
			"actual", r.req.Status)
		return nil, ErrStatusConflict
	}

	if patch.Status != nil {
		r.req.Status = *patch.Status
	}
	if patch.ResolvedAt != nil {
		ts := *patch.ResolvedAt
		r.req.ResolvedAt = &ts
	}
	if patch.Answer != nil {
		r.req.Answer = *patch.Answer
	}
	return cloneRequest(&r.req), nil
}

// AddKnowledgeEntry stores a new knowledge entry.
func (s *MemoryStore) AddKnowledgeEntry(_ context.Context, question, answer string, tags []string) (*domain.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := domain.KnowledgeEntry{
		ID:        uuid.NewString(),
		Question:  question,
		Answer:    answer,
		Tags:      domain.NormalizeTags(tags),
		CreatedAt: time.Now(),
	}
	s.knowledge[entry.ID] = &memEntry{seq: s.nextSeq(), entry: entry}
	slog.Debug("Added knowledge entry", "entry_id", entry.ID)
	return cloneEntry(&entry), nil
}

// GetKnowledgeEntry retrieves a knowledge entry by ID.
func (s *MemoryStore) GetKnowledgeEntry(_ context.Context, id string) (*domain.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.knowledge[id]
	if !ok {
		return nil, nil
	}
	return cloneEntry(&e.entry), nil
}

// ListKnowledgeEntries returns all entries, newest first.
func (s *MemoryStore) ListKnowledgeEntries(_ context.Context) ([]*domain.KnowledgeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]*memEntry, 0, len(s.knowledge))
	for _, e := range s.knowledge {
		rows = append(rows, e)
	}
	slices.SortFunc(rows, func(a, b *memEntry) int {
		if c := b.entry.CreatedAt.Compare(a.entry.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.seq, a.seq)
	})

	out := make([]*domain.KnowledgeEntry, len(rows))
	for i, e := range rows {
		out[i] = cloneEntry(&e.entry)
	}
	return out, nil
}

// IncrementUsage bumps the usage counter of an entry.
func (s *MemoryStore) IncrementUsage(_ context.Context, id string) (*domain.KnowledgeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.knowledge[id]
	if !ok {
		return nil, nil
	}
	e.entry.UsageCount++
	slog.Debug("Updated knowledge usage", "entry_id", id, "usage_count", e.entry.UsageCount)
	return cloneEntry(&e.entry), nil
}

// SearchKnowledge returns entries containing query, most used first.
func (s *MemoryStore) SearchKnowledge(ctx context.Context, query string) ([]*domain.KnowledgeEntry, error) {
	all, err := s.ListKnowledgeEntries(ctx)
	if err != nil {
		return nil, err
	}

	q := strings.ToLower(query)
	var out []*domain.KnowledgeEntry
	for _, e := range all {
		if entryContains(e, q) {
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b *domain.KnowledgeEntry) int {
		return cmp.Compare(b.UsageCount, a.UsageCount)
	})
	return out, nil
}

func entryContains(e *domain.KnowledgeEntry, lowerQuery string) bool {
	if strings.Contains(strings.ToLower(e.Question), lowerQuery) ||
		strings.Contains(strings.ToLower(e.Answer), lowerQuery) {
		return true
	}
	for _, t := range e.Tags {
		if strings.Contains(strings.ToLower(t), lowerQuery) {
			return true
		}
	}
	return false
}

// DeleteKnowledgeEntry removes an entry.
func (s *MemoryStore) DeleteKnowledgeEntry(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.knowledge[id]; !ok {
		return false, nil
	}
	delete(s.knowledge, id)
	slog.Debug("Deleted knowledge entry", "entry_id", id)
	return true, nil
}

// Stats summarizes store contents.
func (s *MemoryStore) Stats(_ context.Context) (Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{TotalRequests: len(s.requests), KnowledgeEntries: len(s.knowledge)}
	for _, r := range s.requests {
		switch r.req.Status {
		case domain.StatusPending:
			st.PendingRequests++
		case domain.StatusResolved:
			st.ResolvedRequests++
		case domain.StatusTimeout:
			st.TimeoutRequests++
		}
	}
	return st, nil
}

// Ping always succeeds for the in-memory store.
func (s *MemoryStore) Ping(_ context.Context) error { return nil }

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

var _ Repository = (*MemoryStore)(nil)
