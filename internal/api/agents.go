package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/ashureev/agent-factory/internal/agents"
	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/ashureev/agent-factory/internal/generator"
	"github.com/ashureev/agent-factory/internal/identity"
	"github.com/go-chi/chi/v5"
)

// generateRequest accepts answers either as a list or as a keyed object.
type generateRequest struct {
	Goal      string          `json:"goal"`
	Tone      string          `json:"tone"`
	Expertise string          `json:"expertise"`
	Language  string          `json:"language"`
	Answers   json.RawMessage `json:"answers"`
	VoiceID   string          `json:"voiceId"`
}

func (g generateRequest) answers() ([]string, error) {
	if len(g.Answers) == 0 || string(g.Answers) == "null" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal(g.Answers, &list); err == nil {
		return list, nil
	}
	var keyed map[string]string
	if err := json.Unmarshal(g.Answers, &keyed); err != nil {
		return nil, err
	}
	return generator.AnswersFromMap(keyed), nil
}

// Questions returns the interview questions for a goal.
func (h *Handler) Questions(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string][]string{
		"questions": generator.GenerateQuestions(r.URL.Query().Get("goal")),
	})
}

// GenerateAgent builds a persona from the goal and answers and stores it as
// a new agent.
func (h *Handler) GenerateAgent(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	answers, err := req.answers()
	if err != nil {
		Error(w, http.StatusBadRequest, "answers must be a list or an object of strings")
		return
	}

	goal := strings.TrimSpace(req.Goal)
	cfg := generator.GenerateConfig(goal, generator.Options{
		Tone:      req.Tone,
		Expertise: req.Expertise,
		Language:  req.Language,
		Answers:   answers,
	})

	draft := cfg.Draft(goal)
	if req.VoiceID != "" {
		v, ok := h.voices.Lookup(req.VoiceID)
		if !ok {
			Error(w, http.StatusBadRequest, "unknown voice")
			return
		}
		draft.VoiceID, draft.VoiceName = v.ID, v.Name
	}

	id, err := h.agents.Create(r.Context(), identity.UserIDFromContext(r.Context()), draft)
	if id == "" {
		if errors.Is(err, agents.ErrOwnerMismatch) {
			Error(w, http.StatusConflict, "session changed, retry")
			return
		}
		if err != nil {
			h.logger.Error("Agent creation failed", "error", err)
			Error(w, http.StatusInternalServerError, "failed to create agent")
			return
		}
		Error(w, http.StatusUnauthorized, identity.ErrNoSession.Error())
		return
	}
	if err != nil {
		// The agent exists in memory even when the local write failed.
		h.logger.Error("Agent persisted partially", "agent_id", id, "error", err)
	}

	agent, _ := h.agents.Get(id)
	JSON(w, http.StatusCreated, map[string]interface{}{
		"id":     id,
		"agent":  agent,
		"config": cfg,
	})
}

// ListAgents returns the signed-in user's agents.
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, h.ownedAgents(identity.UserIDFromContext(r.Context())))
}

// ownedAgents returns the loaded agents owned by userID. A session switch
// between authentication and this call yields an empty list.
func (h *Handler) ownedAgents(userID string) []domain.Agent {
	all := h.agents.List()
	owned := make([]domain.Agent, 0, len(all))
	for _, a := range all {
		if a.OwnerID == userID {
			owned = append(owned, a)
		}
	}
	return owned
}

// GetAgent returns one agent.
func (h *Handler) GetAgent(w http.ResponseWriter, r *http.Request) {
	a, ok := h.agent(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, a)
}

// UpdateAgent applies a partial update to an agent.
func (h *Handler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	var patch domain.AgentPatch
	if err := decode(r, &patch); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if patch.IsEmpty() {
		Error(w, http.StatusBadRequest, "no fields to update")
		return
	}
	if patch.Status != nil && !patch.Status.Valid() {
		Error(w, http.StatusBadRequest, "invalid status")
		return
	}
	if patch.VoiceID != nil && *patch.VoiceID != "" {
		v, ok := h.voices.Lookup(*patch.VoiceID)
		if !ok {
			Error(w, http.StatusBadRequest, "unknown voice")
			return
		}
		if patch.VoiceName == nil {
			patch.VoiceName = &v.Name
		}
	}

	a, err := h.agents.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		h.agentError(w, err, "failed to update agent")
		return
	}
	JSON(w, http.StatusOK, a)
}

// DeleteAgent removes an agent.
func (h *Handler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	if err := h.agents.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.agentError(w, err, "failed to delete agent")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// agent resolves the {id} route parameter, writing 404 when it is unknown
// or belongs to someone other than the request's user.
func (h *Handler) agent(w http.ResponseWriter, r *http.Request) (domain.Agent, bool) {
	a, ok := h.agents.Get(chi.URLParam(r, "id"))
	if !ok || a.OwnerID != identity.UserIDFromContext(r.Context()) {
		Error(w, http.StatusNotFound, agents.ErrNotFound.Error())
		return domain.Agent{}, false
	}
	return a, true
}

// requireOwnedAgent rejects requests for agents the user does not own.
func (h *Handler) requireOwnedAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := h.agent(w, r); !ok {
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) agentError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, agents.ErrNotFound):
		Error(w, http.StatusNotFound, agents.ErrNotFound.Error())
	case errors.Is(err, agents.ErrNoSession):
		Error(w, http.StatusUnauthorized, agents.ErrNoSession.Error())
	default:
		h.logger.Error(msg, "error", err)
		Error(w, http.StatusInternalServerError, msg)
	}
}
