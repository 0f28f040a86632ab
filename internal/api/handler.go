// Package api provides HTTP handlers for the frontdesk API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/ashureev/frontdesk/internal/knowledge"
	"github.com/ashureev/frontdesk/internal/lifecycle"
	"github.com/ashureev/frontdesk/internal/receptionist"
	"github.com/ashureev/frontdesk/internal/store"
	"github.com/go-chi/chi/v5"
)

const maxRequestBodySize = 64 << 10

// Handler serves the REST API and the lifecycle event feed.
type Handler struct {
	mgr     *lifecycle.Manager
	repo    store.Repository
	matcher *knowledge.Matcher
	calls   *receptionist.Service
	hub     *EventHub
}

// NewHandler creates a Handler with its dependencies.
func NewHandler(mgr *lifecycle.Manager, repo store.Repository, matcher *knowledge.Matcher, calls *receptionist.Service, hub *EventHub) *Handler {
	return &Handler{
		mgr:     mgr,
		repo:    repo,
		matcher: matcher,
		calls:   calls,
		hub:     hub,
	}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/requests", func(r chi.Router) {
			r.Get("/", h.ListRequests)
			r.Post("/", h.CreateRequest)
			r.Get("/{id}", h.GetRequest)
			r.Post("/{id}/resolve", h.ResolveRequest)
			r.Post("/{id}/timeout", h.TimeoutRequest)
		})

		r.Get("/metrics", h.GetMetrics)
		r.Get("/events", h.ListEvents)
		r.Get("/stats", h.GetStats)

		r.Route("/knowledge", func(r chi.Router) {
			r.Get("/", h.ListKnowledge)
			r.Post("/", h.AddKnowledge)
			r.Get("/search", h.SearchKnowledge)
			r.Post("/match", h.MatchKnowledge)
			r.Delete("/{id}", h.DeleteKnowledge)
		})

		r.Route("/calls", func(r chi.Router) {
			r.Post("/", h.StartCall)
			r.Get("/{id}", h.GetCall)
			r.Post("/{id}/questions", h.AskQuestion)
			r.Post("/{id}/end", h.EndCall)
		})
	})

	if h.hub != nil {
		r.Get("/ws/events", h.hub.ServeHTTP)
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound), errors.Is(err, receptionist.ErrCallNotFound):
		Error(w, http.StatusNotFound, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidState), errors.Is(err, receptionist.ErrCallEnded):
		Error(w, http.StatusConflict, err.Error())
	case errors.Is(err, lifecycle.ErrInvalidInput):
		Error(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("Request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
	}
}

// decode reads a JSON body into v, writing a 400 and returning false on failure.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		case errors.Is(err, io.EOF):
			Error(w, http.StatusBadRequest, "request body is empty")
		default:
			Error(w, http.StatusBadRequest, "invalid request body")
		}
		return false
	}
	return true
}
