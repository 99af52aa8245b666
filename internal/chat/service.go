package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/agent-factory/internal/agents"
	"github.com/ashureev/agent-factory/internal/domain"
)

// EmptyReply replaces a completion with no content.
const EmptyReply = "I apologize, I couldn't generate a response."

// ErrEmptyMessage is returned for blank user input.
var ErrEmptyMessage = errors.New("message is empty")

// AgentStore is the part of the agent store the chat service needs.
type AgentStore interface {
	Get(id string) (domain.Agent, bool)
	Update(ctx context.Context, id string, patch domain.AgentPatch) (domain.Agent, error)
	AppendChatTurns(ctx context.Context, id string, messagesDelta int, turns ...domain.ChatTurn) (domain.Agent, error)
}

// Service runs chat turns against an agent's persona.
type Service struct {
	agents    AgentStore
	completer Completer
	logger    *slog.Logger
	now       func() time.Time
}

// NewService creates a chat service.
func NewService(agents AgentStore, completer Completer, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if completer == nil {
		completer = Unavailable()
	}
	return &Service{agents: agents, completer: completer, logger: logger, now: time.Now}
}

// Send appends the user's message to the agent's history, asks the model
// for a reply and appends that too. The user turn is persisted before the
// model is called and stays in the history if the call fails.
func (s *Service) Send(ctx context.Context, agentID, text string) (domain.ChatTurn, error) {
	if strings.TrimSpace(text) == "" {
		return domain.ChatTurn{}, ErrEmptyMessage
	}
	if _, ok := s.agents.Get(agentID); !ok {
		return domain.ChatTurn{}, agents.ErrNotFound
	}

	userTurn := domain.ChatTurn{Role: domain.RoleUser, Content: text, Timestamp: s.now().UTC()}
	agent, err := s.agents.AppendChatTurns(ctx, agentID, 0, userTurn)
	if err != nil {
		return domain.ChatTurn{}, fmt.Errorf("record user turn: %w", err)
	}

	reply, err := s.completer.Complete(ctx, agent.SystemPrompt, agent.ChatHistory)
	if err != nil {
		s.logger.Error("Chat completion failed", "agent_id", agentID, "error", err)
		return domain.ChatTurn{}, err
	}
	if reply == "" {
		reply = EmptyReply
	}

	assistantTurn := domain.ChatTurn{Role: domain.RoleAssistant, Content: reply, Timestamp: s.now().UTC()}
	if _, err := s.agents.AppendChatTurns(ctx, agentID, 2, assistantTurn); err != nil {
		return assistantTurn, fmt.Errorf("record assistant turn: %w", err)
	}
	return assistantTurn, nil
}

// Clear empties the agent's chat history.
func (s *Service) Clear(ctx context.Context, agentID string) error {
	empty := []domain.ChatTurn{}
	if _, err := s.agents.Update(ctx, agentID, domain.AgentPatch{ChatHistory: &empty}); err != nil {
		return fmt.Errorf("clear chat: %w", err)
	}
	return nil
}
