package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/ashureev/frontdesk/internal/lifecycle"
	"github.com/go-chi/chi/v5"
)

type createRequestBody struct {
	SessionID       string `json:"session_id"`
	Question        string `json:"question"`
	CustomerContact string `json:"customer_contact"`
}

type resolveBody struct {
	Answer string `json:"answer"`
}

// statusResponse is the wire form of lifecycle.StatusReport.
type statusResponse struct {
	Request              *domain.HelpRequest     `json:"request"`
	Events               []domain.LifecycleEvent `json:"events"`
	TimeRemainingSeconds *float64                `json:"time_remaining_seconds,omitempty"`
}

func newStatusResponse(report *lifecycle.StatusReport) statusResponse {
	resp := statusResponse{Request: report.Request, Events: report.Events}
	if resp.Events == nil {
		resp.Events = []domain.LifecycleEvent{}
	}
	if report.TimeRemaining != nil {
		secs := report.TimeRemaining.Seconds()
		resp.TimeRemainingSeconds = &secs
	}
	return resp
}

// CreateRequest escalates a question to a supervisor.
func (h *Handler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if !decode(w, r, &body) {
		return
	}

	req, err := h.mgr.CreateRequest(r.Context(), body.SessionID, body.Question, body.CustomerContact)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, req)
}

// ListRequests returns stored requests, newest first. ?status= filters by status.
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	status := domain.RequestStatus(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", domain.StatusPending, domain.StatusResolved, domain.StatusTimeout:
	default:
		Error(w, http.StatusBadRequest, "unknown status "+strconv.Quote(string(status)))
		return
	}

	all, err := h.repo.ListRequests(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}

	out := make([]*domain.HelpRequest, 0, len(all))
	for _, req := range all {
		if status == "" || req.Status == status {
			out = append(out, req)
		}
	}
	JSON(w, http.StatusOK, out)
}

// GetRequest returns a request with its events and remaining time.
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	h.writeStatus(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

// ResolveRequest records a supervisor's answer.
func (h *Handler) ResolveRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body resolveBody
	if !decode(w, r, &body) {
		return
	}
	if err := h.mgr.Resolve(r.Context(), id, body.Answer); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeStatus(w, r, id, http.StatusOK)
}

// TimeoutRequest forces a pending request to time out now.
func (h *Handler) TimeoutRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.mgr.Timeout(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	h.writeStatus(w, r, id, http.StatusOK)
}

func (h *Handler) writeStatus(w http.ResponseWriter, r *http.Request, id string, code int) {
	report, err := h.mgr.GetStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, code, newStatusResponse(report))
}

// GetMetrics returns aggregate request outcomes.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.mgr.GetMetrics(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, metrics)
}

// ListEvents returns retained lifecycle events, newest first. ?limit= caps the count.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events := h.mgr.Events()
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			Error(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if limit < len(events) {
			events = events[:limit]
		}
	}
	JSON(w, http.StatusOK, events)
}

// GetStats returns store-level counts.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, stats)
}
