// Package api provides HTTP handlers for the agent factory API.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/agent-factory/internal/agents"
	"github.com/ashureev/agent-factory/internal/calllog"
	"github.com/ashureev/agent-factory/internal/chat"
	"github.com/ashureev/agent-factory/internal/identity"
	"github.com/ashureev/agent-factory/internal/publish"
	"github.com/ashureev/agent-factory/internal/remote"
	"github.com/ashureev/agent-factory/internal/store"
	"github.com/ashureev/agent-factory/internal/voice"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// Deps are the services the handlers call into.
type Deps struct {
	Local          store.Repository
	Remote         remote.Repository
	Sessions       *identity.Manager
	Agents         *agents.Store
	Chat           *chat.Service
	Calls          *calllog.Service
	Voices         *voice.Catalog
	Dispatcher     *voice.Dispatcher
	Relay          *voice.Relay
	Publisher      *publish.Publisher
	VoicePublicKey string
	HealthTimeout  time.Duration
	Logger         *slog.Logger
}

// Handler serves the JSON API.
type Handler struct {
	local          store.Repository
	remote         remote.Repository
	sessions       *identity.Manager
	agents         *agents.Store
	chat           *chat.Service
	calls          *calllog.Service
	voices         *voice.Catalog
	dispatcher     *voice.Dispatcher
	relay          *voice.Relay
	publisher      *publish.Publisher
	voicePublicKey string
	healthTimeout  time.Duration
	logger         *slog.Logger
}

// NewHandler creates a new Handler with its dependencies.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Remote == nil {
		d.Remote = remote.Disabled{}
	}
	if d.Voices == nil {
		d.Voices = voice.DefaultCatalog()
	}
	if d.HealthTimeout <= 0 {
		d.HealthTimeout = 5 * time.Second
	}
	return &Handler{
		local:          d.Local,
		remote:         d.Remote,
		sessions:       d.Sessions,
		agents:         d.Agents,
		chat:           d.Chat,
		calls:          d.Calls,
		voices:         d.Voices,
		dispatcher:     d.Dispatcher,
		relay:          d.Relay,
		publisher:      d.Publisher,
		voicePublicKey: d.VoicePublicKey,
		healthTimeout:  d.HealthTimeout,
		logger:         d.Logger,
	}
}

// RegisterRoutes registers every API route on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", h.SignUp)
		r.Post("/auth/signin", h.SignIn)
		r.Post("/auth/signout", h.SignOut)
		r.Get("/questions", h.Questions)
		r.Get("/voices", h.Voices)

		r.Group(func(r chi.Router) {
			r.Use(h.sessions.RequireUser)

			r.Get("/me", h.GetMe)
			r.Patch("/me", h.UpdateMe)
			r.Get("/calls/recent", h.RecentCalls)

			r.Get("/agents", h.ListAgents)
			r.Post("/agents/generate", h.GenerateAgent)
			r.Route("/agents/{id}", func(r chi.Router) {
				r.Use(h.requireOwnedAgent)

				r.Get("/", h.GetAgent)
				r.Patch("/", h.UpdateAgent)
				r.Delete("/", h.DeleteAgent)
				r.Post("/chat", h.SendChat)
				r.Delete("/chat", h.ClearChat)
				r.Get("/voice", h.VoiceSession)
				r.Post("/call", h.OutboundCall)
				r.Get("/calls", h.ListCalls)
				r.Get("/calls.csv", h.ExportCalls)
				r.Post("/calls", h.AddCall)
				r.Post("/publish", h.Publish)
			})
		})
	})

	r.With(h.sessions.RequireUser, h.requireOwnedAgent).Get("/ws/voice/{id}", h.VoiceRelay)
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

// decode reads a JSON body into dst. An empty body leaves dst untouched.
func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
