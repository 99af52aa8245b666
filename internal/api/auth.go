package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/ashureev/agent-factory/internal/identity"
)

type signUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User   domain.User    `json:"user"`
	Agents []domain.Agent `json:"agents"`
}

// SignUp registers a user and signs them in.
func (h *Handler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		Error(w, http.StatusBadRequest, "email and password are required")
		return
	}

	ok, err := h.sessions.SignUp(r.Context(), strings.TrimSpace(req.Name), req.Email, req.Password)
	if err != nil {
		h.logger.Error("Sign up failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to sign up")
		return
	}
	if !ok {
		Error(w, http.StatusConflict, identity.ErrEmailTaken.Error())
		return
	}
	h.writeSession(w, http.StatusCreated)
}

// SignIn signs a user in with email and password.
func (h *Handler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := decode(r, &req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ok, err := h.sessions.SignIn(r.Context(), strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		h.logger.Error("Sign in failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to sign in")
		return
	}
	if !ok {
		Error(w, http.StatusUnauthorized, identity.ErrInvalidCredentials.Error())
		return
	}
	h.writeSession(w, http.StatusOK)
}

// SignOut clears the session. Signing out twice is not an error.
func (h *Handler) SignOut(w http.ResponseWriter, r *http.Request) {
	if u, ok := h.sessions.Current(); ok && h.relay != nil {
		h.relay.CloseUser(u.ID)
	}
	if err := h.sessions.SignOut(r.Context()); err != nil {
		h.logger.Error("Sign out failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to sign out")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// GetMe returns the signed-in user and their agents.
func (h *Handler) GetMe(w http.ResponseWriter, _ *http.Request) {
	h.writeSession(w, http.StatusOK)
}

// UpdateMe applies a partial profile update.
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var patch domain.ProfilePatch
	if err := decode(r, &patch); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, err := h.sessions.UpdateProfile(r.Context(), patch)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNoSession):
			Error(w, http.StatusUnauthorized, err.Error())
			return
		case errors.Is(err, identity.ErrEmailTaken):
			Error(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("Profile update failed", "error", err)
		Error(w, http.StatusInternalServerError, "failed to update profile")
		return
	}
	JSON(w, http.StatusOK, u)
}

func (h *Handler) writeSession(w http.ResponseWriter, status int) {
	u, ok := h.sessions.Current()
	if !ok {
		Error(w, http.StatusUnauthorized, identity.ErrNoSession.Error())
		return
	}
	JSON(w, status, sessionResponse{User: u, Agents: h.ownedAgents(u.ID)})
}
