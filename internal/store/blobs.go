package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ashureev/agent-factory/internal/domain"
)

// LoadCurrentUser returns the signed-in user, or nil if there is none.
func LoadCurrentUser(ctx context.Context, r Repository) (*domain.User, error) {
	var u domain.User
	ok, err := getJSON(ctx, r, KeyCurrentUser, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

// SaveCurrentUser records u as the signed-in user.
func SaveCurrentUser(ctx context.Context, r Repository, u domain.User) error {
	return setJSON(ctx, r, KeyCurrentUser, u)
}

// ClearCurrentUser forgets the signed-in user.
func ClearCurrentUser(ctx context.Context, r Repository) error {
	return r.Remove(ctx, KeyCurrentUser)
}

// LoadUsers returns every stored user, credentials included.
func LoadUsers(ctx context.Context, r Repository) ([]domain.StoredUser, error) {
	var users []domain.StoredUser
	if _, err := getJSON(ctx, r, KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// SaveUsers rewrites the all-users table.
func SaveUsers(ctx context.Context, r Repository, users []domain.StoredUser) error {
	if users == nil {
		users = []domain.StoredUser{}
	}
	return setJSON(ctx, r, KeyUsers, users)
}

// LoadAgents returns the agents of every user.
func LoadAgents(ctx context.Context, r Repository) ([]domain.Agent, error) {
	var agents []domain.Agent
	if _, err := getJSON(ctx, r, KeyAgents, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// SaveAgents rewrites the all-agents table.
func SaveAgents(ctx context.Context, r Repository, agents []domain.Agent) error {
	if agents == nil {
		agents = []domain.Agent{}
	}
	return setJSON(ctx, r, KeyAgents, agents)
}

func getJSON(ctx context.Context, r Repository, key string, dst any) (bool, error) {
	raw, ok, err := r.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func setJSON(ctx context.Context, r Repository, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.Set(ctx, key, raw)
}
