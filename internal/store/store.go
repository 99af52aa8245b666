// Package store provides the local persistent store: a key/value table of
// whole-value JSON blobs, read and rewritten in full on every mutation.
package store

import (
	"context"
)

// Fixed keys of the three logical tables.
const (
	// KeyCurrentUser holds the signed-in user, without credentials.
	KeyCurrentUser = "agent_factory_user"
	// KeyUsers holds every user together with their credentials.
	KeyUsers = "agent_factory_users"
	// KeyAgents holds the agents of all users.
	KeyAgents = "agent_factory_agents"
)

// Repository defines the interface for the local key/value store.
type Repository interface {
	// Get returns the raw value stored under key. ok is false if the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error

	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close() error
}
