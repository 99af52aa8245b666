package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/ashureev/agent-factory/internal/agents"
	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/ashureev/agent-factory/internal/generator"
	"github.com/ashureev/agent-factory/internal/identity"
	"github.com/ashureev/agent-factory/internal/remote"
	"github.com/ashureev/agent-factory/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func signedInStore(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "store.db")

	local, err := store.NewSQLite(dbPath)
	require.NoError(t, err)
	defer local.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	as := agents.NewStore(local, remote.Disabled{}, nil, logger)
	mgr := identity.NewManager(local, remote.Disabled{}, nil, as, logger)
	ok, err := mgr.SignUp(context.Background(), "Ada", "ada@example.com", "secret")
	require.NoError(t, err)
	require.True(t, ok)
	return dbPath
}

func TestRootCmd_Definition(t *testing.T) {
	cmd := newRootCmd()
	names := map[string]bool{}
	for _, c := range cmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"questions", "generate", "voices", "agents"} {
		assert.True(t, names[want], "%s subcommand should exist", want)
	}
	require.NotNil(t, cmd.PersistentFlags().Lookup("db"))
}

func TestQuestionsCmd(t *testing.T) {
	out, err := run(t, "questions", "sell widgets")
	require.NoError(t, err)
	assert.Contains(t, out, "1. "+generator.Questions[0])
	assert.Contains(t, out, "3. "+generator.Questions[2])
}

func TestGenerateCmd_PrintsConfig(t *testing.T) {
	out, err := run(t, "generate", "--goal", "book demos", "-a", "Acme", "-a", "book a demo", "-a", "Sam")
	require.NoError(t, err)

	var cfg generator.Config
	require.NoError(t, json.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, "Sam", cfg.Name)
	assert.Equal(t, "Professional Representative at Acme", cfg.Role)
	assert.Equal(t, 5, cfg.Autonomy)
}

func TestGenerateCmd_SaveRequiresSession(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	_, err := run(t, "--db", dbPath, "generate", "--goal", "x", "--save")
	require.ErrorIs(t, err, errSignedOut)
}

func TestGenerateAndListAgents(t *testing.T) {
	t.Setenv("VOICE_CATALOG_PATH", "")
	dbPath := signedInStore(t)

	out, err := run(t, "--db", dbPath, "generate", "--goal", "book demos", "-a", "Acme", "--voice", "TxGEqnHWrfWFTfGW9XjX", "--save")
	require.NoError(t, err)
	var saved domain.Agent
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.Equal(t, "Josh", saved.VoiceName)
	assert.NotEmpty(t, saved.OwnerID)

	out, err = run(t, "--db", dbPath, "agents", "list", "--json")
	require.NoError(t, err)
	var listed []domain.Agent
	require.NoError(t, json.Unmarshal([]byte(out), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, saved.ID, listed[0].ID)

	out, err = run(t, "--db", dbPath, "agents", "list")
	require.NoError(t, err)
	assert.Contains(t, out, saved.ID)
	assert.Contains(t, out, "AUTONOMY")
}

func TestGenerateCmd_UnknownVoice(t *testing.T) {
	dbPath := signedInStore(t)
	_, err := run(t, "--db", dbPath, "generate", "--voice", "nope", "--save")
	require.Error(t, err)
}

func TestGenerateCmd_UsesConfiguredCatalog(t *testing.T) {
	catalog := filepath.Join(t.TempDir(), "voices.yaml")
	raw := "default: a1\nvoices:\n  - {id: a1, name: Asha}\n  - {id: b2, name: Ravi}\n"
	require.NoError(t, os.WriteFile(catalog, []byte(raw), 0o600))
	t.Setenv("VOICE_CATALOG_PATH", catalog)
	dbPath := signedInStore(t)

	out, err := run(t, "--db", dbPath, "generate", "--goal", "book demos", "--voice", "b2", "--save")
	require.NoError(t, err)
	var saved domain.Agent
	require.NoError(t, json.Unmarshal([]byte(out), &saved))
	assert.Equal(t, "b2", saved.VoiceID)
	assert.Equal(t, "Ravi", saved.VoiceName)

	_, err = run(t, "--db", dbPath, "generate", "--voice", "TxGEqnHWrfWFTfGW9XjX", "--save")
	require.Error(t, err, "built-in voices are not in a configured catalog")

	_, err = run(t, "--db", dbPath, "generate", "--catalog", "", "--voice", "TxGEqnHWrfWFTfGW9XjX", "--save")
	require.NoError(t, err)
}

func TestVoicesCmd(t *testing.T) {
	t.Setenv("VOICE_CATALOG_PATH", "")
	out, err := run(t, "voices")
	require.NoError(t, err)
	assert.Contains(t, out, "Rachel (default)")
	assert.Contains(t, out, "Elli")
}
