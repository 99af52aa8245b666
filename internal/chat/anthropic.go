package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ashureev/agent-factory/internal/domain"
)

// AnthropicCompleter completes through the Messages API.
type AnthropicCompleter struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicCompleter creates a completer. model may be empty.
func NewAnthropicCompleter(apiKey, model string) *AnthropicCompleter {
	if model == "" {
		model = DefaultAnthropicModel
	}
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicCompleter{client: &client, model: model}
}

// Complete sends the conversation. System turns are folded into the system
// prompt since the Messages API only accepts user and assistant turns.
func (c *AnthropicCompleter) Complete(ctx context.Context, systemPrompt string, turns []domain.ChatTurn) (string, error) {
	system, messages := anthropicMessages(systemPrompt, turns)
	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: defaultMaxTokens,
		System:    []anthropic.TextBlockParam{{Text: system}},
		Messages:  messages,
	})
	if err != nil {
		return "", fmt.Errorf("anthropic completion: %w", err)
	}

	var content strings.Builder
	for _, block := range msg.Content {
		if b, ok := block.AsAny().(anthropic.TextBlock); ok {
			content.WriteString(b.Text)
		}
	}
	return content.String(), nil
}

func anthropicMessages(systemPrompt string, turns []domain.ChatTurn) (string, []anthropic.MessageParam) {
	system := []string{systemPrompt}
	msgs := make([]anthropic.MessageParam, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleUser:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(t.Content)))
		case domain.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(t.Content)))
		case domain.RoleSystem:
			system = append(system, t.Content)
		}
	}
	return strings.Join(system, "\n\n"), msgs
}
