package agents

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/ashureev/agent-factory/internal/mirror"
	"github.com/ashureev/agent-factory/internal/remote"
	"github.com/ashureev/agent-factory/internal/store"
)

type fakeRemote struct {
	remote.Disabled
	mu      sync.Mutex
	list    []domain.Agent
	listErr error
	created []domain.Agent
	updates []domain.AgentPatch
	deleted []string
}

func (f *fakeRemote) ListAgents(context.Context, string) ([]domain.Agent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.list, f.listErr
}

func (f *fakeRemote) CreateAgent(_ context.Context, a domain.Agent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, a)
	return nil
}

func (f *fakeRemote) UpdateAgent(_ context.Context, _ string, p domain.AgentPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, p)
	return nil
}

func (f *fakeRemote) DeleteAgent(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func newTestStore(t *testing.T, rem remote.Repository) (*Store, *store.Memory, *mirror.Writer) {
	t.Helper()
	local := store.NewMemory()
	mw := mirror.NewWriter(32, time.Second, nil)
	t.Cleanup(func() { _ = mw.Close() })
	return NewStore(local, rem, mw, nil), local, mw
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestCreateAssignsIdentityAndCounters(t *testing.T) {
	rem := &fakeRemote{}
	s, local, mw := newTestStore(t, rem)
	ctx := context.Background()
	if err := s.Load(ctx, "u1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	id, err := s.Create(ctx, "u1", domain.AgentDraft{Name: "Sam", Role: "Rep", Autonomy: 9, Tools: 4})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a non-empty id")
	}

	a, ok := s.Get(id)
	if !ok {
		t.Fatal("created agent not visible in memory")
	}
	if a.Calls != 0 || a.Messages != 0 || a.OwnerID != "u1" || a.Autonomy != 5 || a.Status != domain.StatusActive {
		t.Fatalf("unexpected agent: %+v", a)
	}
	if a.ChatHistory == nil || len(a.ChatHistory) != 0 {
		t.Fatalf("expected empty chat history, got %v", a.ChatHistory)
	}
	if a.CreatedAt.IsZero() || a.CreatedAt.Location() != time.UTC {
		t.Errorf("expected UTC creation time, got %v", a.CreatedAt)
	}

	persisted, _ := store.LoadAgents(ctx, local)
	if len(persisted) != 1 || persisted[0].ID != id {
		t.Fatalf("agent not persisted locally: %+v", persisted)
	}

	_ = mw.Flush(ctx)
	if len(rem.created) != 1 || rem.created[0].ID != id {
		t.Errorf("agent not mirrored: %+v", rem.created)
	}
}

func TestCreateWithoutOwner(t *testing.T) {
	s, local, _ := newTestStore(t, nil)

	id, err := s.Create(context.Background(), "", domain.AgentDraft{Name: "Ghost"})
	if err != nil || id != "" {
		t.Fatalf("Create without owner = %q, %v; want \"\", nil", id, err)
	}
	if raw, ok, _ := local.Get(context.Background(), store.KeyAgents); ok {
		t.Fatalf("nothing should be persisted, got %s", raw)
	}
}

func TestUpdateDisjointPatches(t *testing.T) {
	rem := &fakeRemote{}
	s, local, mw := newTestStore(t, rem)
	ctx := context.Background()
	_ = s.Load(ctx, "u1")
	id, _ := s.Create(ctx, "u1", domain.AgentDraft{Name: "Sam", Role: "Rep"})

	if _, err := s.Update(ctx, id, domain.AgentPatch{Name: strPtr("Samantha")}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	st := domain.StatusTraining
	if _, err := s.Update(ctx, id, domain.AgentPatch{Status: &st, Autonomy: intPtr(-3)}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	a, _ := s.Get(id)
	if a.Name != "Samantha" || a.Status != domain.StatusTraining || a.Role != "Rep" || a.Autonomy != 0 {
		t.Fatalf("disjoint patches not both applied: %+v", a)
	}

	persisted, _ := store.LoadAgents(ctx, local)
	if persisted[0].Name != "Samantha" || persisted[0].Status != domain.StatusTraining {
		t.Fatalf("local record not rewritten: %+v", persisted[0])
	}

	_ = mw.Flush(ctx)
	if len(rem.updates) != 2 || *rem.updates[1].Autonomy != 0 {
		t.Errorf("expected two mirrored updates with clamped autonomy, got %+v", rem.updates)
	}
}

func TestUpdateUnknownAgent(t *testing.T) {
	s, _, _ := newTestStore(t, nil)
	ctx := context.Background()

	if _, err := s.Update(ctx, "missing", domain.AgentPatch{}); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession before load, got %v", err)
	}
	_ = s.Load(ctx, "u1")
	if _, err := s.Update(ctx, "missing", domain.AgentPatch{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadPrefersRemote(t *testing.T) {
	rem := &fakeRemote{list: []domain.Agent{
		{ID: "r1", OwnerID: "u1", Name: "Remote"},
		{ID: "r2", OwnerID: "u2", Name: "Someone else's"},
	}}
	s, local, _ := newTestStore(t, rem)
	ctx := context.Background()
	_ = store.SaveAgents(ctx, local, []domain.Agent{{ID: "l1", OwnerID: "u1", Name: "Local"}})

	if err := s.Load(ctx, "u1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	list := s.List()
	if len(list) != 1 || list[0].ID != "r1" {
		t.Fatalf("expected u1's remote agents without merge, got %+v", list)
	}
}

func TestLoadFallsBackToLocalByOwner(t *testing.T) {
	cases := map[string]*fakeRemote{
		"remote error": {listErr: errors.New("connection refused")},
		"remote empty": {},
	}
	for name, rem := range cases {
		t.Run(name, func(t *testing.T) {
			s, local, _ := newTestStore(t, rem)
			ctx := context.Background()
			_ = store.SaveAgents(ctx, local, []domain.Agent{
				{ID: "a1", OwnerID: "u1"},
				{ID: "a2", OwnerID: "u2"},
				{ID: "a3", OwnerID: "u1"},
			})

			if err := s.Load(ctx, "u1"); err != nil {
				t.Fatalf("Load should not surface remote failures: %v", err)
			}
			list := s.List()
			if len(list) != 2 || list[0].ID != "a1" || list[1].ID != "a3" {
				t.Fatalf("expected u1's local agents, got %+v", list)
			}
		})
	}
}

func TestAppendChatTurns(t *testing.T) {
	s, _, _ := newTestStore(t, nil)
	ctx := context.Background()
	_ = s.Load(ctx, "u1")
	id, _ := s.Create(ctx, "u1", domain.AgentDraft{Name: "Sam"})

	now := time.Now().UTC()
	if _, err := s.AppendChatTurns(ctx, id, 0, domain.ChatTurn{Role: domain.RoleUser, Content: "hi", Timestamp: now}); err != nil {
		t.Fatalf("AppendChatTurns failed: %v", err)
	}
	a, err := s.AppendChatTurns(ctx, id, 2, domain.ChatTurn{Role: domain.RoleAssistant, Content: "hello", Timestamp: now})
	if err != nil {
		t.Fatalf("AppendChatTurns failed: %v", err)
	}
	if len(a.ChatHistory) != 2 || a.ChatHistory[0].Content != "hi" || a.ChatHistory[1].Content != "hello" {
		t.Fatalf("unexpected history: %+v", a.ChatHistory)
	}
	if a.Messages != 2 {
		t.Fatalf("messages = %d, want 2", a.Messages)
	}

	// Returned copies must not alias the stored history.
	a.ChatHistory[0].Content = "mutated"
	if got, _ := s.Get(id); got.ChatHistory[0].Content != "hi" {
		t.Fatal("store history was mutated through a returned copy")
	}
}

func TestIncrementCallsAndDelete(t *testing.T) {
	rem := &fakeRemote{}
	s, local, mw := newTestStore(t, rem)
	ctx := context.Background()
	_ = s.Load(ctx, "u1")
	id, _ := s.Create(ctx, "u1", domain.AgentDraft{Name: "Sam"})

	a, err := s.IncrementCalls(ctx, id)
	if err != nil || a.Calls != 1 {
		t.Fatalf("IncrementCalls = %d, %v", a.Calls, err)
	}

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := s.Get(id); ok {
		t.Fatal("deleted agent still in memory")
	}
	if persisted, _ := store.LoadAgents(ctx, local); len(persisted) != 0 {
		t.Fatalf("deleted agent still persisted: %+v", persisted)
	}
	if err := s.Delete(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	_ = mw.Flush(ctx)
	if len(rem.deleted) != 1 || rem.deleted[0] != id {
		t.Errorf("delete not mirrored: %v", rem.deleted)
	}
}

func TestResetClearsAgents(t *testing.T) {
	s, _, _ := newTestStore(t, nil)
	ctx := context.Background()
	_ = s.Load(ctx, "u1")
	_, _ = s.Create(ctx, "u1", domain.AgentDraft{Name: "Sam"})

	s.Reset()
	if len(s.List()) != 0 {
		t.Fatal("expected no agents after reset")
	}
}

type blockingRemote struct {
	fakeRemote
	started chan string
	release chan struct{}
}

func (b *blockingRemote) ListAgents(ctx context.Context, userID string) ([]domain.Agent, error) {
	b.started <- userID
	<-b.release
	return []domain.Agent{{ID: "stale", OwnerID: userID, Name: "Stale"}}, nil
}

func TestLoadSupersededByReset(t *testing.T) {
	rem := &blockingRemote{started: make(chan string, 1), release: make(chan struct{})}
	s, _, _ := newTestStore(t, rem)
	ctx := context.Background()

	done := make(chan error, 1)
	go func() { done <- s.Load(ctx, "u1") }()
	if got := <-rem.started; got != "u1" {
		t.Fatalf("ListAgents called for %q", got)
	}

	s.Reset()
	close(rem.release)
	if err := <-done; err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := s.List(); len(got) != 0 {
		t.Fatalf("superseded load must not install agents, got %+v", got)
	}
	if _, err := s.Create(ctx, "u1", domain.AgentDraft{Name: "Sam"}); !errors.Is(err, ErrOwnerMismatch) {
		t.Fatalf("expected ErrOwnerMismatch after reset, got %v", err)
	}
}

func TestCreateForUnloadedOwner(t *testing.T) {
	s, local, _ := newTestStore(t, nil)
	ctx := context.Background()
	if err := s.Load(ctx, "u1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	id, err := s.Create(ctx, "u2", domain.AgentDraft{Name: "Sam"})
	if !errors.Is(err, ErrOwnerMismatch) || id != "" {
		t.Fatalf("Create = %q, %v; want ErrOwnerMismatch", id, err)
	}
	if len(s.List()) != 0 {
		t.Fatal("rejected agent must not be listed")
	}
	if all, _ := store.LoadAgents(ctx, local); len(all) != 0 {
		t.Fatalf("rejected agent must not be persisted, got %d", len(all))
	}
}

func TestDisabledRemoteSkipsMirror(t *testing.T) {
	s, _, mw := newTestStore(t, remote.Disabled{})
	ctx := context.Background()
	if err := s.Load(ctx, "u1"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	id, err := s.Create(ctx, "u1", domain.AgentDraft{Name: "Sam"})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := s.Update(ctx, id, domain.AgentPatch{Name: strPtr("Max")}); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	_ = mw.Flush(ctx)
	if st := mw.Stats(); st.Submitted != 0 || st.Failed != 0 {
		t.Fatalf("no ops should reach the mirror, got %+v", st)
	}
}
