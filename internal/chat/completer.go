// Package chat runs text conversations between a user and an agent persona
// through a hosted completion model.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/ashureev/agent-factory/internal/domain"
)

// Providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Default models.
const (
	DefaultOpenAIModel    = "gpt-4-turbo"
	DefaultAnthropicModel = "claude-sonnet-4-5-20250901"
	defaultMaxTokens      = 1024
)

// ErrNotConfigured is returned when the selected provider has no API key.
var ErrNotConfigured = errors.New("chat provider is not configured")

// Completer produces the next assistant reply for a conversation.
type Completer interface {
	Complete(ctx context.Context, systemPrompt string, turns []domain.ChatTurn) (string, error)
}

// Config selects and configures a completion provider.
type Config struct {
	Provider        string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModel     string
	AnthropicAPIKey string
	AnthropicModel  string
}

// NewCompleter builds the completer for cfg.Provider. An empty provider
// selects OpenAI.
func NewCompleter(cfg Config) (Completer, error) {
	switch cfg.Provider {
	case "", ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel), nil
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, ErrNotConfigured
		}
		return NewAnthropicCompleter(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	default:
		return nil, fmt.Errorf("unknown chat provider %q", cfg.Provider)
	}
}

// unavailable is used when no provider could be configured.
type unavailable struct{}

// Unavailable returns a Completer that always fails with ErrNotConfigured.
func Unavailable() Completer { return unavailable{} }

func (unavailable) Complete(context.Context, string, []domain.ChatTurn) (string, error) {
	return "", ErrNotConfigured
}
