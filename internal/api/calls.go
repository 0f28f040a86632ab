package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type startCallBody struct {
	Contact string `json:"contact"`
}

type askBody struct {
	Question string `json:"question"`
}

// StartCall opens a call session and returns it with the greeting.
func (h *Handler) StartCall(w http.ResponseWriter, r *http.Request) {
	var body startCallBody
	if !decode(w, r, &body) {
		return
	}
	call, err := h.calls.ReceiveCall(r.Context(), body.Contact)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusCreated, call)
}

// GetCall returns a call session with its transcript.
func (h *Handler) GetCall(w http.ResponseWriter, r *http.Request) {
	call, err := h.calls.GetCall(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, call)
}

// AskQuestion answers a caller's question or escalates it.
func (h *Handler) AskQuestion(w http.ResponseWriter, r *http.Request) {
	var body askBody
	if !decode(w, r, &body) {
		return
	}
	reply, err := h.calls.Ask(r.Context(), chi.URLParam(r, "id"), body.Question)
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, reply)
}

// EndCall completes a call session.
func (h *Handler) EndCall(w http.ResponseWriter, r *http.Request) {
	call, err := h.calls.EndCall(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, call)
}
