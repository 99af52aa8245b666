package remote

import (
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/ashureev/agent-factory/internal/domain"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestBuildAgentUpdateSkipsEmptyStrings(t *testing.T) {
	patch := domain.AgentPatch{
		Name:       strPtr(""),
		Role:       strPtr("Advisor"),
		Calls:      intPtr(0),
		UserPrompt: strPtr(""),
		Messages:   intPtr(4),
	}

	query, args, ok := buildAgentUpdate("a1", patch)
	if !ok {
		t.Fatal("expected an update statement")
	}
	want := "UPDATE agents SET role = $1, calls = $2 WHERE id = $3"
	if query != want {
		t.Errorf("query = %q, want %q", query, want)
	}
	if len(args) != 3 || args[0] != "Advisor" || args[1] != 0 || args[2] != "a1" {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestBuildAgentUpdateNoop(t *testing.T) {
	cases := map[string]domain.AgentPatch{
		"empty":         {},
		"blank strings": {Name: strPtr(""), FirstMessage: strPtr("")},
		"local only":    {Messages: intPtr(2), ChatHistory: &[]domain.ChatTurn{}},
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, ok := buildAgentUpdate("a1", patch); ok {
				t.Fatal("expected no statement")
			}
		})
	}
}

func TestBuildUserUpdateMergesPreferences(t *testing.T) {
	off := false
	query, args, ok, err := buildUserUpdate("u1", domain.ProfilePatch{
		Name:        strPtr("Grace"),
		Preferences: &domain.PreferencesPatch{Marketing: &off},
	})
	if err != nil || !ok {
		t.Fatalf("unexpected result ok=%v err=%v", ok, err)
	}
	if !strings.Contains(query, "preferences = preferences || $2::jsonb") {
		t.Errorf("preferences not merged: %q", query)
	}
	if args[1] != `{"marketing":false}` {
		t.Errorf("unexpected preferences arg: %v", args[1])
	}
	if args[len(args)-1] != "u1" {
		t.Errorf("id must be the last arg, got %v", args)
	}
}

func TestAgentRowDefaults(t *testing.T) {
	created := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := agentRow{
		ID:        "a1",
		OwnerID:   "u1",
		Name:      sql.NullString{String: "Sam", Valid: true},
		Status:    sql.NullString{String: "training", Valid: true},
		Calls:     sql.NullInt64{Int64: 3, Valid: true},
		CreatedAt: sql.NullTime{Time: created, Valid: true},
	}.toAgent()

	if a.Autonomy != domain.MaxAutonomy {
		t.Errorf("autonomy = %d, want %d", a.Autonomy, domain.MaxAutonomy)
	}
	if a.Messages != 0 || a.ChatHistory == nil || len(a.ChatHistory) != 0 {
		t.Errorf("messages and history must be reset: %+v", a)
	}
	if a.Status != domain.StatusTraining || a.Calls != 3 || !a.CreatedAt.Equal(created) {
		t.Errorf("unexpected mapping: %+v", a)
	}
	if a.UserPrompt != "" {
		t.Errorf("null prompt should map to empty, got %q", a.UserPrompt)
	}
}

func TestDisabledReturnsErrDisabled(t *testing.T) {
	var repo Repository = Disabled{}
	if _, err := repo.ListAgents(t.Context(), "u1"); err != ErrDisabled {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
	if err := repo.CreateCallLog(t.Context(), domain.CallLogEntry{}); err != ErrDisabled {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestPoolConfigDefaults(t *testing.T) {
	pc, err := Config{URL: "postgres://localhost/agents", MaxConns: 8}.poolConfig()
	if err != nil {
		t.Fatalf("poolConfig() error = %v", err)
	}
	if pc.MaxConns != 8 {
		t.Errorf("MaxConns = %d, want 8", pc.MaxConns)
	}
	if pc.MaxConnIdleTime != DefaultMaxConnIdleTime || pc.MaxConnLifetime != DefaultMaxConnLifetime || pc.HealthCheckPeriod != DefaultHealthCheckPeriod {
		t.Errorf("unset durations should take defaults, got %v %v %v", pc.MaxConnIdleTime, pc.MaxConnLifetime, pc.HealthCheckPeriod)
	}

	pc, err = Config{URL: "postgres://localhost/agents", MinConns: 20, MaxConns: 4, MaxConnIdleTime: 5 * time.Minute}.poolConfig()
	if err != nil {
		t.Fatalf("poolConfig() error = %v", err)
	}
	if pc.MinConns != 4 || pc.MaxConnIdleTime != 5*time.Minute {
		t.Errorf("overrides not applied: min %d idle %v", pc.MinConns, pc.MaxConnIdleTime)
	}
}

func TestConnectRequiresURL(t *testing.T) {
	if _, err := Connect(t.Context(), Config{}); err != ErrNotConfigured {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := Connect(t.Context(), Config{URL: "://bad"}); err == nil {
		t.Fatal("expected a parse error")
	}
}
