// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ashureev/agent-factory/internal/chat"
	"github.com/ashureev/agent-factory/internal/remote"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string
	DBPath      string
	Remote      remote.Config
	Mirror      MirrorConfig
	Chat        chat.Config
	Voice       VoiceConfig
	GitHubAPI   string
	Timeout     TimeoutConfig
}

// MirrorConfig tunes the best-effort remote writer.
type MirrorConfig struct {
	QueueSize    int
	WriteTimeout time.Duration
}

// VoiceConfig holds the voice platform credentials.
type VoiceConfig struct {
	PublicKey     string
	PrivateKey    string
	PhoneNumberID string
	BaseURL       string
	CatalogPath   string
}

// TimeoutConfig holds server-side timeouts.
type TimeoutConfig struct {
	HealthCheck time.Duration
	Shutdown    time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", ""),
		DBPath:      getEnv("DB_PATH", "./data/agent-factory.db"),
		Remote: remote.Config{
			URL:               getEnv("DATABASE_URL", ""),
			MaxConns:          int32(getEnvInt("PG_MAX_CONNS", 0)),
			MinConns:          int32(getEnvInt("PG_MIN_CONNS", 0)),
			MaxConnIdleTime:   getEnvDuration("PG_MAX_CONN_IDLE", remote.DefaultMaxConnIdleTime),
			MaxConnLifetime:   getEnvDuration("PG_MAX_CONN_LIFETIME", remote.DefaultMaxConnLifetime),
			HealthCheckPeriod: getEnvDuration("PG_HEALTHCHECK_PERIOD", remote.DefaultHealthCheckPeriod),
		},
		Mirror: MirrorConfig{
			QueueSize:    getEnvInt("MIRROR_QUEUE_SIZE", 256),
			WriteTimeout: getEnvDuration("MIRROR_WRITE_TIMEOUT", 10*time.Second),
		},
		Chat: chat.Config{
			Provider:        strings.ToLower(getEnv("CHAT_PROVIDER", chat.ProviderOpenAI)),
			OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL:   getEnv("OPENAI_BASE_URL", ""),
			OpenAIModel:     getEnv("OPENAI_CHAT_MODEL", chat.DefaultOpenAIModel),
			AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:  getEnv("ANTHROPIC_CHAT_MODEL", chat.DefaultAnthropicModel),
		},
		Voice: VoiceConfig{
			PublicKey:     getEnv("VAPI_PUBLIC_KEY", ""),
			PrivateKey:    getEnv("VAPI_PRIVATE_KEY", ""),
			PhoneNumberID: getEnv("VAPI_PHONE_NUMBER_ID", ""),
			BaseURL:       getEnv("VAPI_BASE_URL", ""),
			CatalogPath:   getEnv("VOICE_CATALOG_PATH", ""),
		},
		GitHubAPI: getEnv("GITHUB_API_URL", ""),
		Timeout: TimeoutConfig{
			HealthCheck: getEnvDuration("HEALTH_CHECK_TIMEOUT", 5*time.Second),
			Shutdown:    getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.Remote.MaxConns < 0 || c.Remote.MinConns < 0 {
		return fmt.Errorf("PG_MAX_CONNS and PG_MIN_CONNS must be >= 0")
	}
	if c.Mirror.QueueSize <= 0 {
		return fmt.Errorf("MIRROR_QUEUE_SIZE must be > 0")
	}
	if c.Mirror.WriteTimeout <= 0 {
		return fmt.Errorf("MIRROR_WRITE_TIMEOUT must be > 0")
	}
	switch c.Chat.Provider {
	case chat.ProviderOpenAI, chat.ProviderAnthropic:
	default:
		return fmt.Errorf("CHAT_PROVIDER must be %q or %q", chat.ProviderOpenAI, chat.ProviderAnthropic)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	if env := os.Getenv("APP_ENV"); env != "" {
		return env == "development"
	}
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

// AllowedOrigins returns the origins allowed by CORS and the voice relay.
func (c *Config) AllowedOrigins() []string {
	if c.FrontendURL == "" || c.IsDevelopment() {
		return []string{"*"}
	}
	return []string{strings.TrimRight(c.FrontendURL, "/")}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
