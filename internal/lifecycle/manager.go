// Package lifecycle owns a help request's life from escalation to resolution
// or timeout.
//
// Every request starts pending and moves exactly once, to resolved (a human
// answered through Resolve) or to timeout (its SLA window elapsed). Both
// paths go through a compare-and-set on status in the store, so when they
// race exactly one wins and the other observes the changed state.
//
// Each pending request has an in-process timer armed for its deadline. The
// periodic sweep started by Start catches requests whose timer was lost, for
// example after a restart with a persistent store.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/ashureev/frontdesk/internal/knowledge"
	"github.com/ashureev/frontdesk/internal/store"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

const (
	// DefaultSLAWindow is how long a request may stay pending.
	DefaultSLAWindow = 30 * time.Minute

	// DefaultSweepInterval is how often the sweep looks for overdue requests.
	DefaultSweepInterval = 5 * time.Minute
)

// Manager drives the help request state machine.
type Manager struct {
	store         store.Repository
	notifier      Notifier
	logger        *slog.Logger
	now           func() time.Time
	window        time.Duration
	sweepInterval time.Duration

	events    *EventLog
	listeners *listenerSet
	timers    *timerTable

	mu       sync.Mutex
	cron     *cron.Cron
	started  bool
	stopped  bool
	stopOnce sync.Once
}

// Option configures a Manager.
type Option func(*Manager)

// WithSLAWindow sets how long a request may stay pending.
func WithSLAWindow(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.window = d
		}
	}
}

// WithSweepInterval sets the period of the overdue-request sweep.
func WithSweepInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.sweepInterval = d
		}
	}
}

// WithEventLogCapacity sets how many events are retained across all requests.
func WithEventLogCapacity(n int) Option {
	return func(m *Manager) {
		m.events = NewEventLog(n)
	}
}

// WithNotifier sets the outbound notification hooks.
func WithNotifier(n Notifier) Option {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithClock replaces time.Now. Timers still run on the real clock.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// New creates a Manager over repo. Timers are armed as requests are created;
// call Start to re-arm existing pending requests and run the sweep.
func New(repo store.Repository, opts ...Option) *Manager {
	m := &Manager{
		store:         repo,
		logger:        slog.Default(),
		now:           time.Now,
		window:        DefaultSLAWindow,
		sweepInterval: DefaultSweepInterval,
		events:        NewEventLog(DefaultEventLogCapacity),
		timers:        newTimerTable(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.notifier == nil {
		m.notifier = NewLogNotifier("", m.logger)
	}
	m.listeners = &listenerSet{logger: m.logger}
	return m
}

// SLAWindow returns the configured pending window.
func (m *Manager) SLAWindow() time.Duration {
	return m.window
}

// CreateRequest escalates a question: it stores a pending request, logs a
// created event, arms the request's timeout timer and pages the supervisor.
func (m *Manager) CreateRequest(ctx context.Context, sessionID, question, contact string) (*domain.HelpRequest, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("create request: question is empty: %w", ErrInvalidInput)
	}

	req, err := m.store.CreateRequest(ctx, store.NewHelpRequest{
		SessionID:       sessionID,
		Question:        question,
		CustomerContact: contact,
		CreatedAt:       m.now(),
		Window:          m.window,
	})
	if err != nil {
		return nil, storeFailure("create request", err)
	}

	m.logEvent(req.ID, domain.EventCreated, "Help request created and escalated to supervisor")
	m.arm(req)

	if err := m.notifier.NotifySupervisor(ctx, req); err != nil {
		m.logger.Warn("Failed to notify supervisor", "request_id", req.ID, "error", err)
	} else {
		m.logEvent(req.ID, domain.EventEscalated, "Supervisor notified")
	}

	m.logger.Info("Created help request",
		"request_id", req.ID,
		"session_id", sessionID,
		"timeout", m.window)
	return req, nil
}

// Resolve records a human answer for a pending request, learns it into the
// knowledge store and follows up with the customer.
//
// It fails with ErrInvalidState if the request is missing (the error also
// matches ErrNotFound) or already resolved or timed out. Callers should not
// retry those.
func (m *Manager) Resolve(ctx context.Context, id, answer string) error {
	if strings.TrimSpace(answer) == "" {
		return fmt.Errorf("resolve %s: answer is empty: %w", id, ErrInvalidInput)
	}

	req, err := m.store.GetRequest(ctx, id)
	if err != nil {
		return storeFailure("get request", err)
	}
	if req == nil {
		return notFound("resolve", id)
	}
	if !req.IsPending() {
		return fmt.Errorf("resolve %s (status %s): %w", id, req.Status, ErrInvalidState)
	}

	m.timers.disarm(id)

	resolvedAt := m.now()
	status := domain.StatusResolved
	updated, err := m.store.UpdateRequest(ctx, id, store.RequestPatch{
		ExpectStatus: domain.StatusPending,
		Status:       &status,
		ResolvedAt:   &resolvedAt,
		Answer:       &answer,
	})
	switch {
	case errors.Is(err, store.ErrStatusConflict):
		return fmt.Errorf("resolve %s: lost race to another transition: %w", id, ErrInvalidState)
	case errors.Is(err, store.ErrNotFound):
		return notFound("resolve", id)
	case err != nil:
		// Still pending as far as we know; put the timer back.
		m.arm(req)
		return storeFailure("resolve request", err)
	}

	m.logEvent(id, domain.EventResponded, "Supervisor provided response: "+truncate(answer, 50))

	tags := knowledge.Classify(updated.Question)
	entry, err := m.store.AddKnowledgeEntry(ctx, updated.Question, answer, tags)
	if err != nil {
		m.logger.Error("Failed to update knowledge base", "request_id", id, "error", err)
	} else {
		m.logger.Info("Added knowledge entry",
			"request_id", id,
			"entry_id", entry.ID,
			"tags", tags)
	}

	if err := m.notifier.FollowUpCustomer(ctx, updated); err != nil {
		m.logger.Warn("Failed to follow up with customer", "request_id", id, "error", err)
	}

	m.logEvent(id, domain.EventResolved, "Request resolved and customer notified")
	m.logger.Info("Resolved help request", "request_id", id)
	return nil
}

// Timeout moves a pending request past its deadline to timeout. It is a
// silent no-op when the request is missing or already terminal, because
// the armed timer and the sweep routinely race with Resolve.
func (m *Manager) Timeout(ctx context.Context, id string) error {
	req, err := m.store.GetRequest(ctx, id)
	if err != nil {
		return storeFailure("get request", err)
	}
	if req == nil || !req.IsPending() {
		m.logger.Debug("Timeout skipped, request not pending", "request_id", id)
		return nil
	}

	resolvedAt := m.now()
	status := domain.StatusTimeout
	updated, err := m.store.UpdateRequest(ctx, id, store.RequestPatch{
		ExpectStatus: domain.StatusPending,
		Status:       &status,
		ResolvedAt:   &resolvedAt,
	})
	switch {
	case errors.Is(err, store.ErrStatusConflict), errors.Is(err, store.ErrNotFound):
		m.logger.Debug("Timeout lost race", "request_id", id)
		return nil
	case err != nil:
		return storeFailure("timeout request", err)
	}

	m.timers.disarm(id)
	m.logEvent(id, domain.EventTimeout,
		fmt.Sprintf("Request timed out after %s without supervisor response", m.window))

	if err := m.notifier.NotifyCustomerTimeout(ctx, updated); err != nil {
		m.logger.Warn("Failed to notify customer of timeout", "request_id", id, "error", err)
	}

	m.logger.Info("Help request timed out", "request_id", id, "window", m.window)
	return nil
}

// StatusReport is the current view of one request.
type StatusReport struct {
	Request *domain.HelpRequest     `json:"request"`
	Events  []domain.LifecycleEvent `json:"events"`
	// TimeRemaining is set only while the request is pending.
	TimeRemaining *time.Duration `json:"time_remaining,omitempty"`
}

// GetStatus returns the request, its retained events and, while pending,
// the time left before it times out.
func (m *Manager) GetStatus(ctx context.Context, id string) (*StatusReport, error) {
	req, err := m.store.GetRequest(ctx, id)
	if err != nil {
		return nil, storeFailure("get request", err)
	}
	if req == nil {
		return nil, fmt.Errorf("status %s: %w", id, ErrNotFound)
	}

	report := &StatusReport{
		Request: req,
		Events:  m.events.ForRequest(id),
	}
	if req.IsPending() {
		remaining := req.TimeRemaining(m.now())
		report.TimeRemaining = &remaining
	}
	return report, nil
}

// Events returns every retained event, newest first.
func (m *Manager) Events() []domain.LifecycleEvent {
	all := m.events.All()
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	return all
}

// RequestEvents returns the retained events of one request in creation order.
func (m *Manager) RequestEvents(id string) []domain.LifecycleEvent {
	return m.events.ForRequest(id)
}

// AddListener registers fn to be called synchronously, on the goroutine
// that produced the event, for every lifecycle event. Listeners run in
// registration order; a panicking listener is logged and skipped.
func (m *Manager) AddListener(fn func(domain.LifecycleEvent)) *Listener {
	return m.listeners.add(fn)
}

// RemoveListener unregisters l. Removing an unknown listener is a no-op.
func (m *Manager) RemoveListener(l *Listener) {
	m.listeners.remove(l)
}

func (m *Manager) logEvent(requestID string, kind domain.EventKind, detail string) {
	event := domain.LifecycleEvent{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Kind:      kind,
		Timestamp: m.now(),
		Detail:    detail,
	}
	m.events.Append(event)
	m.logger.Info("Lifecycle event",
		"kind", kind,
		"request_id", requestID,
		"detail", detail)
	m.listeners.notify(event)
}

// arm schedules Timeout for the request's remaining SLA time.
func (m *Manager) arm(req *domain.HelpRequest) {
	if !m.timers.arm(req.ID, req.TimeRemaining(m.now()), m.fireTimeout) {
		m.logger.Warn("Manager stopped, timeout timer not armed", "request_id", req.ID)
	}
}

func (m *Manager) fireTimeout(id string) {
	if err := m.Timeout(context.Background(), id); err != nil {
		m.logger.Error("Timeout timer failed, sweep will retry", "request_id", id, "error", err)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
