// Package receptionist answers inbound calls from the knowledge base and
// escalates what it cannot answer to a human supervisor.
package receptionist

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
	"github.com/ashureev/frontdesk/internal/lifecycle"
	"github.com/google/uuid"
)

// Transcript speakers.
const (
	SpeakerAI       = "AI"
	SpeakerCustomer = "Customer"
)

// HoldMessage is what the caller hears when their question is escalated.
const HoldMessage = "Let me check with my supervisor and get back to you. I'll have an answer for you shortly."

var (
	// ErrCallNotFound is returned for an unknown call id.
	ErrCallNotFound = errors.New("call not found")

	// ErrCallEnded is returned when asking on a completed call.
	ErrCallEnded = errors.New("call has ended")
)

// Answerer finds a known answer for a question.
type Answerer interface {
	Match(ctx context.Context, question string) (*domain.KnowledgeEntry, error)
}

// Escalator hands a question to a human.
type Escalator interface {
	CreateRequest(ctx context.Context, sessionID, question, contact string) (*domain.HelpRequest, error)
}

// Reply is the outcome of one customer question.
type Reply struct {
	Answer    string                 `json:"answer"`
	Escalated bool                   `json:"escalated"`
	Entry     *domain.KnowledgeEntry `json:"entry,omitempty"`
	Request   *domain.HelpRequest    `json:"request,omitempty"`
}

// Service tracks call sessions in memory.
type Service struct {
	answerer  Answerer
	escalator Escalator
	business  string
	logger    *slog.Logger
	now       func() time.Time

	mu        sync.RWMutex
	calls     map[string]*domain.CallSession
	byRequest map[string]string // help request id -> call id
}

// NewService creates a receptionist for the named business.
func NewService(answerer Answerer, escalator Escalator, business string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		answerer:  answerer,
		escalator: escalator,
		business:  business,
		logger:    logger,
		now:       time.Now,
		calls:     make(map[string]*domain.CallSession),
		byRequest: make(map[string]string),
	}
}

// Greeting is the first line of every call.
func (s *Service) Greeting() string {
	return "Hello! Thank you for calling " + s.business + ". How can I help you today?"
}

// ReceiveCall opens an active session for an inbound call.
func (s *Service) ReceiveCall(_ context.Context, contact string) (*domain.CallSession, error) {
	call := &domain.CallSession{
		ID:        "call_" + uuid.NewString(),
		Contact:   contact,
		StartedAt: s.now(),
		Status:    domain.CallActive,
	}
	call.AddLine(SpeakerAI, s.Greeting())

	s.mu.Lock()
	s.calls[call.ID] = call
	s.mu.Unlock()

	s.logger.Info("Incoming call", "call_id", call.ID, "contact", contact)
	return cloneCall(call), nil
}

// Ask answers a question on an open call. Known questions are answered from
// the knowledge base; anything else becomes a help request and the caller
// is put on hold.
func (s *Service) Ask(ctx context.Context, callID, question string) (*Reply, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("ask on call %s: question is empty: %w", callID, lifecycle.ErrInvalidInput)
	}

	contact, err := s.openCall(callID)
	if err != nil {
		return nil, err
	}
	s.appendLine(callID, SpeakerCustomer, question)

	entry, err := s.answerer.Match(ctx, question)
	switch {
	case err == nil:
		s.appendLine(callID, SpeakerAI, entry.Answer)
		s.logger.Info("Answered from knowledge base", "call_id", callID, "entry_id", entry.ID)
		return &Reply{Answer: entry.Answer, Entry: entry}, nil
	case !errors.Is(err, knowledge.ErrNoAnswer):
		// A broken knowledge base should not leave the caller without a human.
		s.logger.Error("Knowledge lookup failed, escalating", "call_id", callID, "error", err)
	}

	req, err := s.escalator.CreateRequest(ctx, callID, question, contact)
	if err != nil {
		return nil, fmt.Errorf("escalate question: %w", err)
	}

	s.mu.Lock()
	if call, ok := s.calls[callID]; ok {
		call.AddLine(SpeakerAI, HoldMessage)
		call.HelpRequestIDs = append(call.HelpRequestIDs, req.ID)
		if call.Status == domain.CallActive {
			call.Status = domain.CallEscalated
		}
	}
	s.byRequest[req.ID] = callID
	s.mu.Unlock()

	s.logger.Info("Escalated question", "call_id", callID, "request_id", req.ID)
	return &Reply{Answer: HoldMessage, Escalated: true, Request: req}, nil
}

// FollowUp records a supervisor's answer on the call that raised the
// request. Unknown requests are ignored.
func (s *Service) FollowUp(requestID, answer string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	call, ok := s.calls[s.byRequest[requestID]]
	if !ok {
		return false
	}
	call.AddLine(SpeakerAI, "Follow-up response: "+answer)
	return true
}

// Attach registers a listener on m that copies resolved answers into the
// transcript of the call that asked. The returned handle detaches it.
func (s *Service) Attach(m *lifecycle.Manager) *lifecycle.Listener {
	return m.AddListener(func(e domain.LifecycleEvent) {
		if e.Kind != domain.EventResolved {
			return
		}
		report, err := m.GetStatus(context.Background(), e.RequestID)
		if err != nil {
			s.logger.Warn("Failed to load resolved request", "request_id", e.RequestID, "error", err)
			return
		}
		if s.FollowUp(e.RequestID, report.Request.Answer) {
			s.logger.Info("Relayed supervisor answer to call", "request_id", e.RequestID)
		}
	})
}

// EndCall completes a call. Ending a call twice is not an error.
func (s *Service) EndCall(_ context.Context, callID string) (*domain.CallSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call, ok := s.calls[callID]
	if !ok {
		return nil, fmt.Errorf("end call %s: %w", callID, ErrCallNotFound)
	}
	if call.IsOpen() {
		ended := s.now()
		call.EndedAt = &ended
		call.Status = domain.CallCompleted
		s.logger.Info("Call ended", "call_id", callID, "escalations", len(call.HelpRequestIDs))
	}
	return cloneCall(call), nil
}

// GetCall returns a snapshot of a call.
func (s *Service) GetCall(_ context.Context, callID string) (*domain.CallSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	call, ok := s.calls[callID]
	if !ok {
		return nil, fmt.Errorf("get call %s: %w", callID, ErrCallNotFound)
	}
	return cloneCall(call), nil
}

func (s *Service) openCall(callID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	call, ok := s.calls[callID]
	if !ok {
		return "", fmt.Errorf("ask on call %s: %w", callID, ErrCallNotFound)
	}
	if !call.IsOpen() {
		return "", fmt.Errorf("ask on call %s: %w", callID, ErrCallEnded)
	}
	return call.Contact, nil
}

func (s *Service) appendLine(callID, speaker, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if call, ok := s.calls[callID]; ok {
		call.AddLine(speaker, message)
	}
}

func cloneCall(c *domain.CallSession) *domain.CallSession {
	out := *c
	out.Transcript = append([]string(nil), c.Transcript...)
	out.HelpRequestIDs = append([]string(nil), c.HelpRequestIDs...)
	if c.EndedAt != nil {
		ended := *c.EndedAt
		out.EndedAt = &ended
	}
	return &out
}
