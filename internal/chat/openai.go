package chat

import (
	"context"
	"fmt"

	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAICompleter completes through the Chat Completions API.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a completer. baseURL and model may be empty.
func NewOpenAICompleter(apiKey, baseURL, model string) *OpenAICompleter {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if model == "" {
		model = DefaultOpenAIModel
	}

	client := openai.NewClient(opts...)
	return &OpenAICompleter{client: &client, model: model}
}

// Complete sends the system prompt followed by every turn.
func (c *OpenAICompleter) Complete(ctx context.Context, systemPrompt string, turns []domain.ChatTurn) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: openAIMessages(systemPrompt, turns),
	})
	if err != nil {
		return "", fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

func openAIMessages(systemPrompt string, turns []domain.ChatTurn) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(turns)+1)
	msgs = append(msgs, openai.SystemMessage(systemPrompt))
	for _, t := range turns {
		switch t.Role {
		case domain.RoleUser:
			msgs = append(msgs, openai.UserMessage(t.Content))
		case domain.RoleAssistant:
			msgs = append(msgs, openai.AssistantMessage(t.Content))
		case domain.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(t.Content))
		}
	}
	return msgs
}
