package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ashureev/agent-factory/internal/publish"
)

type publishRequest struct {
	Token string `json:"token"`
}

// Publish exports an agent to a new source repository.
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	a, ok := h.agent(w, r)
	if !ok {
		return
	}
	var req publishRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		token = strings.TrimSpace(r.Header.Get("X-GitHub-Token"))
	}
	if h.publisher == nil {
		Error(w, http.StatusServiceUnavailable, "publishing is not available")
		return
	}

	repo, err := h.publisher.Publish(r.Context(), token, a)
	if err != nil {
		if errors.Is(err, publish.ErrNoToken) {
			Error(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Publish failed", "agent_id", a.ID, "error", err)
		Error(w, http.StatusBadGateway, err.Error())
		return
	}
	JSON(w, http.StatusCreated, map[string]interface{}{
		"url":  repo.HTMLURL,
		"repo": repo,
	})
}
