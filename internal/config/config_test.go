package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_PATH", "CHAT_PROVIDER", "MIRROR_QUEUE_SIZE", "MIRROR_WRITE_TIMEOUT", "OPENAI_CHAT_MODEL", "APP_ENV", "FRONTEND_URL"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "8080")
	t.Setenv("DB_PATH", "./data/test.db")
	t.Setenv("CHAT_PROVIDER", "openai")
	t.Setenv("MIRROR_QUEUE_SIZE", "64")
	t.Setenv("MIRROR_WRITE_TIMEOUT", "3s")
	t.Setenv("OPENAI_CHAT_MODEL", "gpt-4-turbo")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Mirror.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64", cfg.Mirror.QueueSize)
	}
	if cfg.Mirror.WriteTimeout != 3*time.Second {
		t.Errorf("WriteTimeout = %v, want 3s", cfg.Mirror.WriteTimeout)
	}
	if cfg.Chat.OpenAIModel != "gpt-4-turbo" {
		t.Errorf("OpenAIModel = %q", cfg.Chat.OpenAIModel)
	}
	if !cfg.IsDevelopment() {
		t.Error("expected development mode with empty FRONTEND_URL")
	}
	if got := cfg.AllowedOrigins(); len(got) != 1 || got[0] != "*" {
		t.Errorf("AllowedOrigins() = %v, want [*]", got)
	}
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("CHAT_PROVIDER", "cohere")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		Port:   "8080",
		DBPath: "x.db",
		Mirror: MirrorConfig{QueueSize: 1, WriteTimeout: time.Second},
	}
	base.Chat.Provider = "anthropic"

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty port", func(c *Config) { c.Port = "" }, true},
		{"empty db path", func(c *Config) { c.DBPath = "" }, true},
		{"zero queue", func(c *Config) { c.Mirror.QueueSize = 0 }, true},
		{"zero timeout", func(c *Config) { c.Mirror.WriteTimeout = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base
			tt.mutate(&c)
			if err := c.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAllowedOriginsProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	c := &Config{FrontendURL: "https://app.example.com/"}
	got := c.AllowedOrigins()
	if len(got) != 1 || got[0] != "https://app.example.com" {
		t.Errorf("AllowedOrigins() = %v", got)
	}
}

func TestLoadRemotePoolDefaults(t *testing.T) {
	for _, key := range []string{"PG_MAX_CONNS", "PG_MIN_CONNS", "PG_MAX_CONN_LIFETIME", "PG_HEALTHCHECK_PERIOD", "CHAT_PROVIDER"} {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "8080")
	t.Setenv("DB_PATH", "./data/test.db")
	t.Setenv("MIRROR_QUEUE_SIZE", "64")
	t.Setenv("MIRROR_WRITE_TIMEOUT", "3s")
	t.Setenv("CHAT_PROVIDER", "openai")
	t.Setenv("DATABASE_URL", "postgres://localhost/agents")
	t.Setenv("PG_MAX_CONN_IDLE", "5m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Remote.Enabled() || cfg.Remote.MaxConns != 0 {
		t.Errorf("unexpected remote config: %+v", cfg.Remote)
	}
	if cfg.Remote.MaxConnIdleTime != 5*time.Minute {
		t.Errorf("MaxConnIdleTime = %v, want 5m", cfg.Remote.MaxConnIdleTime)
	}
	if cfg.Remote.MaxConnLifetime != time.Hour || cfg.Remote.HealthCheckPeriod != 30*time.Second {
		t.Errorf("unset durations should default, got %v and %v", cfg.Remote.MaxConnLifetime, cfg.Remote.HealthCheckPeriod)
	}
}
