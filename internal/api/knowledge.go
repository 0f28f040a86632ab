package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ashureev/frontdesk/internal/domain"
	"github.com/ashureev/frontdesk/internal/knowledge"
	"github.com/go-chi/chi/v5"
)

type addKnowledgeBody struct {
	Question string   `json:"question"`
	Answer   string   `json:"answer"`
	Tags     []string `json:"tags"`
}

type matchBody struct {
	Question string `json:"question"`
}

// ListKnowledge returns every knowledge entry, newest first.
func (h *Handler) ListKnowledge(w http.ResponseWriter, r *http.Request) {
	entries, err := h.repo.ListKnowledgeEntries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, nonNil(entries))
}

// AddKnowledge stores a hand-written entry. Without tags the question is classified.
func (h *Handler) AddKnowledge(w http.ResponseWriter, r *http.Request) {
	var body addKnowledgeBody
	if !decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Question) == "" || strings.TrimSpace(body.Answer) == "" {
		Error(w, http.StatusBadRequest, "question and answer are required")
		return
	}

	tags := domain.NormalizeTags(body.Tags)
	if len(body.Tags) == 0 {
		tags = knowledge.Classify(body.Question)
	}

	entry, err := h.repo.AddKnowledgeEntry(r.Context(), body.Question, body.Answer, tags)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, entry)
}

// SearchKnowledge filters entries by a case-insensitive substring in ?q=.
func (h *Handler) SearchKnowledge(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		Error(w, http.StatusBadRequest, "q is required")
		return
	}
	entries, err := h.repo.SearchKnowledge(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, nonNil(entries))
}

// MatchKnowledge runs the fuzzy matcher and bumps the hit's usage count.
func (h *Handler) MatchKnowledge(w http.ResponseWriter, r *http.Request) {
	var body matchBody
	if !decode(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.Question) == "" {
		Error(w, http.StatusBadRequest, "question is required")
		return
	}

	entry, err := h.matcher.Match(r.Context(), body.Question)
	if errors.Is(err, knowledge.ErrNoAnswer) {
		Error(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, entry)
}

// DeleteKnowledge removes an entry.
func (h *Handler) DeleteKnowledge(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.repo.DeleteKnowledgeEntry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		Error(w, http.StatusNotFound, "knowledge entry not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func nonNil(entries []*domain.KnowledgeEntry) []*domain.KnowledgeEntry {
	if entries == nil {
		return []*domain.KnowledgeEntry{}
	}
	return entries
}
