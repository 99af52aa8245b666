// Package identity manages the dashboard session: sign-up, sign-in,
// sign-out and profile updates against the local store, with best-effort
// mirroring of user records to the remote store.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/ashureev/agent-factory/internal/mirror"
	"github.com/ashureev/agent-factory/internal/remote"
	"github.com/ashureev/agent-factory/internal/store"
	"github.com/google/uuid"
)

var (
	// ErrNoSession is returned by operations that need a signed-in user.
	ErrNoSession = errors.New("no user is signed in")
	// ErrEmailTaken reports an email that another user already has.
	ErrEmailTaken = errors.New("email is already registered")
	// ErrInvalidCredentials reports a sign-in that matched no user.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// AgentLoader is the part of the agent store the session drives.
type AgentLoader interface {
	Load(ctx context.Context, userID string) error
	Reset()
}

// Manager owns the current session. It is safe for concurrent use.
type Manager struct {
	local  store.Repository
	remote remote.Repository
	mirror *mirror.Writer
	agents AgentLoader
	logger *slog.Logger

	// switchMu serializes session changes together with the agent load
	// that follows them, and keeps email checks atomic with the users write.
	// Lock it before mu.
	switchMu sync.Mutex

	mu      sync.RWMutex
	current *domain.User
}

// NewManager creates a signed-out manager. Call Restore to resume a session.
// Remote writes are skipped when rem is nil or remote.Disabled.
func NewManager(local store.Repository, rem remote.Repository, mw *mirror.Writer, agents AgentLoader, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if rem == nil {
		rem = remote.Disabled{}
	}
	if remote.IsDisabled(rem) {
		mw = nil
	}
	return &Manager{
		local:  local,
		remote: rem,
		mirror: mw,
		agents: agents,
		logger: logger,
	}
}

// Restore resumes the persisted session, if any, refreshes its profile from
// the remote store and loads its agents.
func (m *Manager) Restore(ctx context.Context) error {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	u, err := store.LoadCurrentUser(ctx, m.local)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}
	if u == nil {
		return nil
	}
	refreshed := m.refreshProfile(ctx, *u)

	m.logger.Info("Session restored", "user_id", refreshed.ID)
	return m.switchTo(ctx, refreshed)
}

// refreshProfile overlays the remote copy of u, when there is one, and
// persists the result locally. Remote failures keep the local profile.
func (m *Manager) refreshProfile(ctx context.Context, u domain.User) domain.User {
	if remote.IsDisabled(m.remote) {
		return u
	}
	ru, err := m.remote.GetUser(ctx, u.ID)
	if err != nil {
		m.logger.Warn("Remote profile unavailable, using local copy", "user_id", u.ID, "error", err)
		return u
	}
	if ru == nil {
		return u
	}

	refreshed := u.ApplyProfile(domain.ProfilePatch{})
	if ru.Name != "" {
		refreshed.Name = ru.Name
	}
	if ru.Email != "" {
		refreshed.Email = ru.Email
	}
	if ru.Preferences != nil {
		prefs := *ru.Preferences
		refreshed.Preferences = &prefs
	}
	if err := m.saveProfile(ctx, refreshed); err != nil {
		m.logger.Warn("Failed to store refreshed profile", "user_id", u.ID, "error", err)
		return u
	}
	return refreshed
}

// switchTo makes u the current user once u's agents are loaded. Until then
// nobody is signed in, so no caller sees one user with another's agents.
// The caller holds switchMu.
func (m *Manager) switchTo(ctx context.Context, u domain.User) error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	err := m.agents.Load(ctx, u.ID)

	m.mu.Lock()
	m.current = &u
	m.mu.Unlock()
	return err
}

// Current returns the signed-in user.
func (m *Manager) Current() (domain.User, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return domain.User{}, false
	}
	return m.current.ApplyProfile(domain.ProfilePatch{}), true
}

// SignUp registers a new user and signs them in. It reports false when the
// email already exists.
func (m *Manager) SignUp(ctx context.Context, name, email, password string) (bool, error) {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	users, err := store.LoadUsers(ctx, m.local)
	if err != nil {
		return false, fmt.Errorf("sign up: %w", err)
	}
	if emailTaken(users, email, "") {
		return false, nil
	}

	prefs := domain.DefaultPreferences()
	user := domain.User{
		ID:          uuid.NewString(),
		Name:        name,
		Email:       email,
		Preferences: &prefs,
	}

	users = append(users, domain.StoredUser{User: user, Password: password})
	if err := store.SaveUsers(ctx, m.local, users); err != nil {
		return false, fmt.Errorf("sign up: %w", err)
	}
	if err := store.SaveCurrentUser(ctx, m.local, user); err != nil {
		return false, fmt.Errorf("sign up: %w", err)
	}

	m.mirrorOp("create_user", func(ctx context.Context) error {
		return m.remote.CreateUser(ctx, user)
	})
	m.logger.Info("User signed up", "user_id", user.ID)

	return true, m.switchTo(ctx, user)
}

// SignIn signs in the user whose email and password both match exactly.
func (m *Manager) SignIn(ctx context.Context, email, password string) (bool, error) {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	users, err := store.LoadUsers(ctx, m.local)
	if err != nil {
		return false, fmt.Errorf("sign in: %w", err)
	}

	var found *domain.User
	for i := range users {
		if users[i].Email == email && users[i].Password == password {
			u := users[i].User
			found = &u
			break
		}
	}
	if found == nil {
		return false, nil
	}

	if err := store.SaveCurrentUser(ctx, m.local, *found); err != nil {
		return false, fmt.Errorf("sign in: %w", err)
	}

	m.logger.Info("User signed in", "user_id", found.ID)
	return true, m.switchTo(ctx, *found)
}

// SignOut ends the session and forgets the loaded agents.
func (m *Manager) SignOut(ctx context.Context) error {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()

	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	m.agents.Reset()
	if err := store.ClearCurrentUser(ctx, m.local); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// UpdateProfile merges patch into the current user and persists it in both
// the current-user record and the all-users table. Changing the email to
// one another user has fails with ErrEmailTaken.
func (m *Manager) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (domain.User, error) {
	m.switchMu.Lock()
	defer m.switchMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return domain.User{}, ErrNoSession
	}
	updated := m.current.ApplyProfile(patch)

	if patch.Email != nil && *patch.Email != m.current.Email {
		users, err := store.LoadUsers(ctx, m.local)
		if err != nil {
			return domain.User{}, fmt.Errorf("update profile: %w", err)
		}
		if emailTaken(users, updated.Email, updated.ID) {
			return domain.User{}, ErrEmailTaken
		}
	}

	if err := m.saveProfile(ctx, updated); err != nil {
		return domain.User{}, fmt.Errorf("update profile: %w", err)
	}
	m.current = &updated

	if !patch.IsEmpty() {
		id := updated.ID
		m.mirrorOp("update_user", func(ctx context.Context) error {
			return m.remote.UpdateUser(ctx, id, patch)
		})
	}

	return updated.ApplyProfile(domain.ProfilePatch{}), nil
}

// saveProfile writes u as the current user and rewrites its all-users
// entry, keeping the stored password.
func (m *Manager) saveProfile(ctx context.Context, u domain.User) error {
	if err := store.SaveCurrentUser(ctx, m.local, u); err != nil {
		return err
	}
	users, err := store.LoadUsers(ctx, m.local)
	if err != nil {
		return err
	}
	for i := range users {
		if users[i].ID == u.ID {
			users[i].User = u
		}
	}
	return store.SaveUsers(ctx, m.local, users)
}

// emailTaken reports whether a user other than exceptID has email.
func emailTaken(users []domain.StoredUser, email, exceptID string) bool {
	for _, u := range users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (m *Manager) mirrorOp(name string, apply func(ctx context.Context) error) {
	if m.mirror == nil {
		return
	}
	m.mirror.Submit(mirror.Op{Name: name, Apply: apply})
}
