// Package remote mirrors users, agents and call logs to a hosted PostgreSQL
// database. It is a best-effort secondary: callers fall back to the local
// store when it fails.
package remote

import (
	"context"
	"errors"

	"github.com/ashureev/agent-factory/internal/domain"
)

// ErrDisabled is returned by every call on a Disabled repository.
var ErrDisabled = errors.New("remote store is not configured")

// Repository is the remote store contract.
type Repository interface {
	ListAgents(ctx context.Context, ownerID string) ([]domain.Agent, error)
	CreateAgent(ctx context.Context, agent domain.Agent) error
	UpdateAgent(ctx context.Context, id string, patch domain.AgentPatch) error
	DeleteAgent(ctx context.Context, id string) error

	// GetUser returns nil, nil when the user does not exist.
	GetUser(ctx context.Context, id string) (*domain.User, error)
	CreateUser(ctx context.Context, user domain.User) error
	UpdateUser(ctx context.Context, id string, patch domain.ProfilePatch) error

	// ListCallLogs returns an agent's call logs, newest first.
	ListCallLogs(ctx context.Context, agentID string) ([]domain.CallLogEntry, error)
	CreateCallLog(ctx context.Context, entry domain.CallLogEntry) error

	Ping(ctx context.Context) error
	Close()
}

// Disabled is the Repository used when no database is configured.
type Disabled struct{}

// IsDisabled reports whether r is the Disabled repository.
func IsDisabled(r Repository) bool {
	_, ok := r.(Disabled)
	return ok
}

func (Disabled) ListAgents(context.Context, string) ([]domain.Agent, error) { return nil, ErrDisabled }
func (Disabled) CreateAgent(context.Context, domain.Agent) error            { return ErrDisabled }
func (Disabled) UpdateAgent(context.Context, string, domain.AgentPatch) error {
	return ErrDisabled
}
func (Disabled) DeleteAgent(context.Context, string) error                { return ErrDisabled }
func (Disabled) GetUser(context.Context, string) (*domain.User, error)    { return nil, ErrDisabled }
func (Disabled) CreateUser(context.Context, domain.User) error            { return ErrDisabled }
func (Disabled) UpdateUser(context.Context, string, domain.ProfilePatch) error {
	return ErrDisabled
}
func (Disabled) ListCallLogs(context.Context, string) ([]domain.CallLogEntry, error) {
	return nil, ErrDisabled
}
func (Disabled) CreateCallLog(context.Context, domain.CallLogEntry) error { return ErrDisabled }
func (Disabled) Ping(context.Context) error                               { return ErrDisabled }
func (Disabled) Close()                                                   {}
