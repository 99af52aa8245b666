// Package agents keeps the signed-in user's agents in memory and writes
// every change through to the local store, mirroring it to the remote store
// in the background.
package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/ashureev/agent-factory/internal/mirror"
	"github.com/ashureev/agent-factory/internal/remote"
	"github.com/ashureev/agent-factory/internal/store"
	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when the agent is not among the loaded agents.
	ErrNotFound = errors.New("agent not found")
	// ErrNoSession is returned when no user's agents are loaded.
	ErrNoSession = errors.New("no user is signed in")
	// ErrOwnerMismatch is returned when creating an agent for a user whose
	// agents are not the loaded ones.
	ErrOwnerMismatch = errors.New("agent owner is not the signed-in user")
)

// Store is the agent record store. The in-memory list reflects a write
// before it is persisted; persistence failures are not rolled back.
type Store struct {
	local  store.Repository
	remote remote.Repository
	mirror *mirror.Writer
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	gen    uint64
	owner  string
	agents []domain.Agent
}

// NewStore creates an empty store. Remote reads and writes are skipped when
// rem is nil or remote.Disabled.
func NewStore(local store.Repository, rem remote.Repository, mw *mirror.Writer, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if rem == nil {
		rem = remote.Disabled{}
	}
	if remote.IsDisabled(rem) {
		mw = nil
	}
	return &Store{
		local:  local,
		remote: rem,
		mirror: mw,
		logger: logger,
		now:    time.Now,
	}
}

// Load replaces the in-memory list with userID's agents. The remote store is
// tried first; if it fails or has none, the local all-agents table is
// filtered by owner. Only local store errors are returned. A Load overtaken
// by a later Load or Reset leaves the list alone.
func (s *Store) Load(ctx context.Context, userID string) error {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	var remoteAgents []domain.Agent
	err := remote.ErrDisabled
	if !remote.IsDisabled(s.remote) {
		remoteAgents, err = s.remote.ListAgents(ctx, userID)
	}
	if err != nil && !errors.Is(err, remote.ErrDisabled) {
		s.logger.Warn("Remote agents unavailable, using local store",
			"user_id", userID,
			"error", err,
		)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.gen != gen {
		s.logger.Debug("Discarded superseded agent load", "user_id", userID)
		return nil
	}

	if err == nil && len(remoteAgents) > 0 {
		s.owner = userID
		s.agents = ownedBy(remoteAgents, userID)
		s.logger.Info("Loaded agents from remote store", "user_id", userID, "count", len(s.agents))
		return nil
	}

	all, err := store.LoadAgents(ctx, s.local)
	if err != nil {
		s.owner = userID
		s.agents = nil
		return fmt.Errorf("load agents: %w", err)
	}
	s.owner = userID
	s.agents = ownedBy(all, userID)
	return nil
}

func ownedBy(all []domain.Agent, userID string) []domain.Agent {
	owned := make([]domain.Agent, 0, len(all))
	for _, a := range all {
		if a.OwnerID == userID {
			owned = append(owned, a)
		}
	}
	return owned
}

// Reset forgets the loaded agents.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.owner = ""
	s.agents = nil
}

// List returns copies of the loaded agents in creation order.
func (s *Store) List() []domain.Agent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Agent, len(s.agents))
	for i, a := range s.agents {
		out[i] = a.Clone()
	}
	return out
}

// Get returns a copy of the agent with id.
func (s *Store) Get(id string) (domain.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.agents[i].Clone(), true
	}
	return domain.Agent{}, false
}

// Create adds a new agent owned by ownerID and returns its id. It returns ""
// without error when ownerID is empty, and ErrOwnerMismatch when ownerID's
// agents are not loaded.
func (s *Store) Create(ctx context.Context, ownerID string, d domain.AgentDraft) (string, error) {
	if ownerID == "" {
		return "", nil
	}

	status := d.Status
	if status == "" {
		status = domain.StatusActive
	}
	a := domain.Agent{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Name:         d.Name,
		Role:         d.Role,
		Status:       status,
		Calls:        0,
		Messages:     0,
		Tools:        d.Tools,
		Autonomy:     domain.ClampAutonomy(d.Autonomy),
		CreatedAt:    s.now().UTC(),
		UserPrompt:   d.UserPrompt,
		SystemPrompt: d.SystemPrompt,
		FirstMessage: d.FirstMessage,
		VoiceID:      d.VoiceID,
		VoiceName:    d.VoiceName,
		ChatHistory:  []domain.ChatTurn{},
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner != ownerID {
		return "", ErrOwnerMismatch
	}
	s.agents = append(s.agents, a)

	created := a.Clone()
	s.mirrorOp("create_agent", func(ctx context.Context) error {
		return s.remote.CreateAgent(ctx, created)
	})

	all, err := store.LoadAgents(ctx, s.local)
	if err != nil {
		return a.ID, fmt.Errorf("create agent: %w", err)
	}
	all = append(all, a)
	if err := store.SaveAgents(ctx, s.local, all); err != nil {
		return a.ID, fmt.Errorf("create agent: %w", err)
	}

	s.logger.Info("Agent created", "agent_id", a.ID, "user_id", ownerID)
	return a.ID, nil
}

// Update shallow-merges patch into the agent with id and returns the result.
func (s *Store) Update(ctx context.Context, id string, patch domain.AgentPatch) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updateLocked(ctx, id, patch)
}

// AppendChatTurns appends turns to the agent's history and adds
// messagesDelta to its message counter.
func (s *Store) AppendChatTurns(ctx context.Context, id string, messagesDelta int, turns ...domain.ChatTurn) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner == "" {
		return domain.Agent{}, ErrNoSession
	}
	i := s.indexLocked(id)
	if i < 0 {
		return domain.Agent{}, ErrNotFound
	}
	cur := s.agents[i]

	history := make([]domain.ChatTurn, 0, len(cur.ChatHistory)+len(turns))
	history = append(history, cur.ChatHistory...)
	history = append(history, turns...)
	patch := domain.AgentPatch{ChatHistory: &history}
	if messagesDelta != 0 {
		messages := cur.Messages + messagesDelta
		patch.Messages = &messages
	}
	return s.updateLocked(ctx, id, patch)
}

// IncrementCalls adds one to the agent's call counter.
func (s *Store) IncrementCalls(ctx context.Context, id string) (domain.Agent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexLocked(id)
	if i < 0 {
		return domain.Agent{}, ErrNotFound
	}
	calls := s.agents[i].Calls + 1
	return s.updateLocked(ctx, id, domain.AgentPatch{Calls: &calls})
}

func (s *Store) updateLocked(ctx context.Context, id string, patch domain.AgentPatch) (domain.Agent, error) {
	if s.owner == "" {
		return domain.Agent{}, ErrNoSession
	}
	i := s.indexLocked(id)
	if i < 0 {
		return domain.Agent{}, ErrNotFound
	}
	if patch.Autonomy != nil {
		v := domain.ClampAutonomy(*patch.Autonomy)
		patch.Autonomy = &v
	}

	updated := s.agents[i].Apply(patch)
	s.agents[i] = updated

	s.mirrorOp("update_agent", func(ctx context.Context) error {
		return s.remote.UpdateAgent(ctx, id, patch)
	})

	all, err := store.LoadAgents(ctx, s.local)
	if err != nil {
		return updated.Clone(), fmt.Errorf("update agent: %w", err)
	}
	found := false
	for j := range all {
		if all[j].ID == id {
			all[j] = all[j].Apply(patch)
			found = true
		}
	}
	if !found {
		all = append(all, updated.Clone())
	}
	if err := store.SaveAgents(ctx, s.local, all); err != nil {
		return updated.Clone(), fmt.Errorf("update agent: %w", err)
	}

	return updated.Clone(), nil
}

// Delete removes the agent with id from memory and both stores.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.owner == "" {
		return ErrNoSession
	}
	i := s.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	s.agents = append(s.agents[:i:i], s.agents[i+1:]...)

	s.mirrorOp("delete_agent", func(ctx context.Context) error {
		return s.remote.DeleteAgent(ctx, id)
	})

	all, err := store.LoadAgents(ctx, s.local)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	kept := all[:0]
	for _, a := range all {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	if err := store.SaveAgents(ctx, s.local, kept); err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}

	s.logger.Info("Agent deleted", "agent_id", id)
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i := range s.agents {
		if s.agents[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) mirrorOp(name string, apply func(ctx context.Context) error) {
	if s.mirror == nil {
		return
	}
	s.mirror.Submit(mirror.Op{Name: name, Apply: apply})
}
