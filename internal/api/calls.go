package api

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"

	"github.com/ashureev/agent-factory/internal/calllog"
	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/ashureev/agent-factory/internal/identity"
)

type addCallRequest struct {
	PhoneNumber string            `json:"phoneNumber"`
	Duration    int               `json:"duration"`
	Status      domain.CallStatus `json:"status"`
	Transcript  string            `json:"transcript"`
}

// ListCalls returns an agent's calls, newest first.
func (h *Handler) ListCalls(w http.ResponseWriter, r *http.Request) {
	a, ok := h.agent(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, h.calls.List(r.Context(), a.ID))
}

// ExportCalls writes an agent's calls as CSV.
func (h *Handler) ExportCalls(w http.ResponseWriter, r *http.Request) {
	a, ok := h.agent(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := calllog.WriteCSV(&buf, h.calls.List(r.Context(), a.ID)); err != nil {
		h.logger.Error("Call log export failed", "agent_id", a.ID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to export calls")
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="calls-`+a.ID+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// AddCall records a call for an agent.
func (h *Handler) AddCall(w http.ResponseWriter, r *http.Request) {
	a, ok := h.agent(w, r)
	if !ok {
		return
	}
	var req addCallRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.calls.Add(r.Context(), domain.CallLogEntry{
		AgentID:     a.ID,
		PhoneNumber: req.PhoneNumber,
		Duration:    req.Duration,
		Status:      req.Status,
		Transcript:  req.Transcript,
	})
	if err != nil {
		switch {
		case errors.Is(err, calllog.ErrInvalidStatus), errors.Is(err, calllog.ErrInvalidEntry):
			Error(w, http.StatusBadRequest, err.Error())
		default:
			Error(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	JSON(w, http.StatusCreated, entry)
}

// RecentCalls returns the latest calls across all of the user's agents.
func (h *Handler) RecentCalls(w http.ResponseWriter, r *http.Request) {
	limit := calllog.DefaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	JSON(w, http.StatusOK, h.calls.Recent(r.Context(), h.ownedAgents(identity.UserIDFromContext(r.Context())), limit))
}
