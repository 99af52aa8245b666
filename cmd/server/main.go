// Agent Factory - dashboard backend server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/agent-factory/internal/agents"
	"github.com/ashureev/agent-factory/internal/api"
	"github.com/ashureev/agent-factory/internal/calllog"
	"github.com/ashureev/agent-factory/internal/chat"
	"github.com/ashureev/agent-factory/internal/config"
	"github.com/ashureev/agent-factory/internal/identity"
	"github.com/ashureev/agent-factory/internal/middleware"
	"github.com/ashureev/agent-factory/internal/mirror"
	"github.com/ashureev/agent-factory/internal/publish"
	"github.com/ashureev/agent-factory/internal/remote"
	"github.com/ashureev/agent-factory/internal/store"
	"github.com/ashureev/agent-factory/internal/voice"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Local store.
	local, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := local.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := local.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	rem := connectRemote(cfg.Remote)
	defer rem.Close()

	var mw *mirror.Writer
	if !remote.IsDisabled(rem) {
		mw = mirror.NewWriter(cfg.Mirror.QueueSize, cfg.Mirror.WriteTimeout, logger)
		defer func() {
			if closeErr := mw.Close(); closeErr != nil {
				slog.Warn("Mirror writer did not drain", "error", closeErr, "stats", mw.Stats())
			}
		}()
	}

	// Initialize services.
	agentStore := agents.NewStore(local, rem, mw, logger)
	sessions := identity.NewManager(local, rem, mw, agentStore, logger)
	if err := sessions.Restore(context.Background()); err != nil {
		slog.Error("Failed to restore session", "error", err)
		os.Exit(1)
	}

	completer, err := chat.NewCompleter(cfg.Chat)
	if err != nil {
		slog.Warn("Chat disabled", "provider", cfg.Chat.Provider, "error", err)
		completer = chat.Unavailable()
	} else {
		slog.Info("Chat enabled", "provider", cfg.Chat.Provider)
	}

	catalog := voice.DefaultCatalog()
	if cfg.Voice.CatalogPath != "" {
		catalog, err = voice.LoadCatalog(cfg.Voice.CatalogPath)
		if err != nil {
			slog.Error("Failed to load voice catalog", "path", cfg.Voice.CatalogPath, "error", err)
			os.Exit(1)
		}
	}

	dispatcher := voice.NewDispatcher(cfg.Voice.BaseURL, cfg.Voice.PrivateKey, cfg.Voice.PhoneNumberID)
	if !dispatcher.Configured() {
		slog.Info("Outbound calling disabled (VAPI_PRIVATE_KEY or VAPI_PHONE_NUMBER_ID not set)")
	}

	calls := calllog.NewService(rem, logger)
	relay := voice.NewRelay(agentStore, calls, originHosts(cfg.AllowedOrigins()), logger)

	handler := api.NewHandler(api.Deps{
		Local:          local,
		Remote:         rem,
		Sessions:       sessions,
		Agents:         agentStore,
		Chat:           chat.NewService(agentStore, completer, logger),
		Calls:          calls,
		Voices:         catalog,
		Dispatcher:     dispatcher,
		Relay:          relay,
		Publisher:      publish.NewPublisher(publish.NewGitHub(cfg.GitHubAPI), logger),
		VoicePublicKey: cfg.Voice.PublicKey,
		HealthTimeout:  cfg.Timeout.HealthCheck,
		Logger:         logger,
	})

	// Setup router.
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.AllowedOrigins()))

	handler.RegisterRoutes(r)

	// No WriteTimeout: the voice relay keeps long-lived WebSocket connections.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeout.Shutdown)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	if mw != nil {
		if err := mw.Flush(shutdownCtx); err != nil {
			slog.Warn("Pending remote writes abandoned", "error", err, "stats", mw.Stats())
		}
	}

	slog.Info("Server stopped successfully")
}

// connectRemote opens the remote store, falling back to a disabled one when
// it is not configured or unreachable.
func connectRemote(cfg remote.Config) remote.Repository {
	if !cfg.Enabled() {
		slog.Info("Remote store disabled (DATABASE_URL not set)")
		return remote.Disabled{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := remote.Connect(ctx, cfg)
	if err != nil {
		slog.Warn("Remote store unavailable, continuing with local store only", "error", err)
		return remote.Disabled{}
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		slog.Warn("Remote schema setup failed, continuing with local store only", "error", err)
		pg.Close()
		return remote.Disabled{}
	}
	slog.Info("Remote store connected")
	return pg
}

// originHosts converts CORS origins into WebSocket origin patterns.
func originHosts(origins []string) []string {
	hosts := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		hosts = append(hosts, u.Host)
	}
	return hosts
}
