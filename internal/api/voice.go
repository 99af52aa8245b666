package api

import (
	"errors"
	"net/http"

	"github.com/ashureev/agent-factory/internal/identity"
	"github.com/ashureev/agent-factory/internal/voice"
	"github.com/go-chi/chi/v5"
)

type outboundCallRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

// Voices lists the selectable voices.
func (h *Handler) Voices(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"default": h.voices.Default().ID,
		"voices":  h.voices.List(),
	})
}

// VoiceSession returns what the browser SDK needs to start a call with the
// agent.
func (h *Handler) VoiceSession(w http.ResponseWriter, r *http.Request) {
	a, ok := h.agent(w, r)
	if !ok {
		return
	}
	a.VoiceID = h.voices.Resolve(a.VoiceID)
	JSON(w, http.StatusOK, map[string]interface{}{
		"enabled":   h.voicePublicKey != "",
		"publicKey": h.voicePublicKey,
		"assistant": voice.AgentSessionConfig(a),
	})
}

// VoiceRelay upgrades to the call event WebSocket for an agent.
func (h *Handler) VoiceRelay(w http.ResponseWriter, r *http.Request) {
	if h.relay == nil {
		Error(w, http.StatusServiceUnavailable, "voice relay is not available")
		return
	}
	h.relay.Serve(w, r, identity.UserIDFromContext(r.Context()), chi.URLParam(r, "id"))
}

// OutboundCall places a phone call from the agent.
func (h *Handler) OutboundCall(w http.ResponseWriter, r *http.Request) {
	a, ok := h.agent(w, r)
	if !ok {
		return
	}
	var req outboundCallRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if h.dispatcher == nil {
		Error(w, http.StatusServiceUnavailable, voice.ErrDispatchNotConfigured.Error())
		return
	}

	resp, err := h.dispatcher.Call(r.Context(), req.PhoneNumber, a.SystemPrompt, voice.OutboundGreeting(a), h.voices.Resolve(a.VoiceID))
	if err != nil {
		var dispatchErr *voice.DispatchError
		switch {
		case errors.Is(err, voice.ErrPhoneRequired):
			Error(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, voice.ErrDispatchNotConfigured):
			Error(w, http.StatusServiceUnavailable, err.Error())
		case errors.As(err, &dispatchErr):
			Error(w, http.StatusBadGateway, dispatchErr.Message)
		default:
			h.logger.Error("Outbound call failed", "agent_id", a.ID, "error", err)
			Error(w, http.StatusBadGateway, err.Error())
		}
		return
	}

	h.logger.Info("Outbound call placed", "agent_id", a.ID)
	JSON(w, http.StatusOK, map[string]interface{}{"call": resp})
}
