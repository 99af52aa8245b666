package api

import (
	"errors"
	"net/http"

	"github.com/ashureev/agent-factory/internal/agents"
	"github.com/ashureev/agent-factory/internal/chat"
	"github.com/go-chi/chi/v5"
)

type chatRequest struct {
	Message string `json:"message"`
}

// SendChat sends a user message to an agent and returns the reply.
func (h *Handler) SendChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	reply, err := h.chat.Send(r.Context(), id, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, chat.ErrEmptyMessage):
			Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, agents.ErrNotFound), errors.Is(err, agents.ErrNoSession):
			h.agentError(w, err, "failed to send message")
		case errors.Is(err, chat.ErrNotConfigured):
			Error(w, http.StatusServiceUnavailable, err.Error())
		default:
			Error(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	a, _ := h.agents.Get(id)
	JSON(w, http.StatusOK, map[string]interface{}{
		"reply":       reply,
		"chatHistory": a.ChatHistory,
		"messages":    a.Messages,
	})
}

// ClearChat empties an agent's chat history.
func (h *Handler) ClearChat(w http.ResponseWriter, r *http.Request) {
	if err := h.chat.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.agentError(w, err, "failed to clear chat")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
