package remote

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	email TEXT NOT NULL,
	name TEXT NOT NULL,
	preferences JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS agents (
	id TEXT PRIMARY KEY,
	owner_id TEXT NOT NULL,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	calls INTEGER NOT NULL DEFAULT 0,
	tools INTEGER NOT NULL DEFAULT 0,
	autonomy INTEGER NOT NULL DEFAULT 5,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	user_prompt TEXT,
	system_prompt TEXT,
	first_message TEXT
);
CREATE INDEX IF NOT EXISTS idx_agents_owner ON agents(owner_id);

CREATE TABLE IF NOT EXISTS call_logs (
	id TEXT PRIMARY KEY,
	agent_id TEXT NOT NULL,
	phone_number TEXT NOT NULL,
	duration INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL DEFAULT 'completed',
	transcript TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_call_logs_agent ON call_logs(agent_id, created_at DESC);
`

// Postgres implements Repository on a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps an existing pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the mirror tables if they do not exist.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// agentRow is the snake_case shape of an agents row.
type agentRow struct {
	ID           string
	OwnerID      string
	Name         sql.NullString
	Role         sql.NullString
	Status       sql.NullString
	Calls        sql.NullInt64
	Tools        sql.NullInt64
	Autonomy     sql.NullInt64
	CreatedAt    sql.NullTime
	UserPrompt   sql.NullString
	SystemPrompt sql.NullString
	FirstMessage sql.NullString
}

// toAgent maps a row to the local shape. Messages and chat history are not
// mirrored, and an autonomy of zero reads back as the maximum.
func (r agentRow) toAgent() domain.Agent {
	autonomy := int(r.Autonomy.Int64)
	if autonomy == 0 {
		autonomy = domain.MaxAutonomy
	}
	return domain.Agent{
		ID:           r.ID,
		OwnerID:      r.OwnerID,
		Name:         r.Name.String,
		Role:         r.Role.String,
		Status:       domain.Status(r.Status.String),
		Calls:        int(r.Calls.Int64),
		Messages:     0,
		Tools:        int(r.Tools.Int64),
		Autonomy:     autonomy,
		CreatedAt:    r.CreatedAt.Time,
		UserPrompt:   r.UserPrompt.String,
		SystemPrompt: r.SystemPrompt.String,
		FirstMessage: r.FirstMessage.String,
		ChatHistory:  []domain.ChatTurn{},
	}
}

// ListAgents returns every agent owned by ownerID.
func (p *Postgres) ListAgents(ctx context.Context, ownerID string) ([]domain.Agent, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, owner_id, name, role, status, calls, tools, autonomy,
		       created_at, user_prompt, system_prompt, first_message
		FROM agents WHERE owner_id = $1
		ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	defer rows.Close()

	var agents []domain.Agent
	for rows.Next() {
		var r agentRow
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.Name, &r.Role, &r.Status, &r.Calls,
			&r.Tools, &r.Autonomy, &r.CreatedAt, &r.UserPrompt, &r.SystemPrompt, &r.FirstMessage); err != nil {
			return nil, fmt.Errorf("scan agent: %w", err)
		}
		agents = append(agents, r.toAgent())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate agents: %w", err)
	}
	return agents, nil
}

// CreateAgent inserts an agent row.
func (p *Postgres) CreateAgent(ctx context.Context, a domain.Agent) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO agents (id, owner_id, name, role, status, calls, tools, autonomy,
		                    created_at, user_prompt, system_prompt, first_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		a.ID, a.OwnerID, a.Name, a.Role, string(a.Status), a.Calls, a.Tools, a.Autonomy,
		a.CreatedAt, nullString(a.UserPrompt), nullString(a.SystemPrompt), nullString(a.FirstMessage))
	if err != nil {
		return fmt.Errorf("create agent %s: %w", a.ID, err)
	}
	return nil
}

// UpdateAgent writes the mirrored fields of patch. Empty strings are not sent.
func (p *Postgres) UpdateAgent(ctx context.Context, id string, patch domain.AgentPatch) error {
	query, args, ok := buildAgentUpdate(id, patch)
	if !ok {
		return nil
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update agent %s: %w", id, err)
	}
	return nil
}

// buildAgentUpdate renders the UPDATE statement for patch. ok is false when
// no mirrored column would change.
func buildAgentUpdate(id string, patch domain.AgentPatch) (query string, args []any, ok bool) {
	var sets []string
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	addString := func(col string, v *string) {
		if v != nil && *v != "" {
			add(col, *v)
		}
	}

	addString("name", patch.Name)
	addString("role", patch.Role)
	if patch.Status != nil && *patch.Status != "" {
		add("status", string(*patch.Status))
	}
	if patch.Calls != nil {
		add("calls", *patch.Calls)
	}
	if patch.Tools != nil {
		add("tools", *patch.Tools)
	}
	if patch.Autonomy != nil {
		add("autonomy", *patch.Autonomy)
	}
	addString("user_prompt", patch.UserPrompt)
	addString("system_prompt", patch.SystemPrompt)
	addString("first_message", patch.FirstMessage)

	if len(sets) == 0 {
		return "", nil, false
	}
	args = append(args, id)
	query = fmt.Sprintf("UPDATE agents SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return query, args, true
}

// DeleteAgent removes an agent row.
func (p *Postgres) DeleteAgent(ctx context.Context, id string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM agents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete agent %s: %w", id, err)
	}
	return nil
}

// GetUser returns the user with id, or nil if there is none.
func (p *Postgres) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var (
		u     domain.User
		prefs []byte
	)
	err := p.pool.QueryRow(ctx, `SELECT id, email, name, preferences FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &prefs)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	if len(prefs) > 0 {
		var pr domain.Preferences
		if err := json.Unmarshal(prefs, &pr); err != nil {
			return nil, fmt.Errorf("decode preferences for %s: %w", id, err)
		}
		u.Preferences = &pr
	}
	return &u, nil
}

// CreateUser inserts a user row.
func (p *Postgres) CreateUser(ctx context.Context, u domain.User) error {
	prefs, err := encodePreferences(u.Preferences)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, `INSERT INTO users (id, email, name, preferences) VALUES ($1, $2, $3, $4)`,
		u.ID, u.Email, u.Name, prefs)
	if err != nil {
		return fmt.Errorf("create user %s: %w", u.ID, err)
	}
	return nil
}

// UpdateUser applies a profile patch. Preferences are merged key by key.
func (p *Postgres) UpdateUser(ctx context.Context, id string, patch domain.ProfilePatch) error {
	query, args, ok, err := buildUserUpdate(id, patch)
	if err != nil || !ok {
		return err
	}
	if _, err := p.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	return nil
}

func buildUserUpdate(id string, patch domain.ProfilePatch) (query string, args []any, ok bool, err error) {
	var sets []string
	add := func(expr string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}
	if patch.Name != nil {
		add("name = $%d", *patch.Name)
	}
	if patch.Email != nil {
		add("email = $%d", *patch.Email)
	}
	if patch.Preferences != nil {
		raw, err := json.Marshal(patch.Preferences)
		if err != nil {
			return "", nil, false, fmt.Errorf("encode preferences: %w", err)
		}
		add("preferences = preferences || $%d::jsonb", string(raw))
	}
	if len(sets) == 0 {
		return "", nil, false, nil
	}
	args = append(args, id)
	query = fmt.Sprintf("UPDATE users SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))
	return query, args, true, nil
}

// ListCallLogs returns an agent's call logs, newest first.
func (p *Postgres) ListCallLogs(ctx context.Context, agentID string) ([]domain.CallLogEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, agent_id, phone_number, duration, status, transcript, created_at
		FROM call_logs WHERE agent_id = $1
		ORDER BY created_at DESC`, agentID)
	if err != nil {
		return nil, fmt.Errorf("list call logs: %w", err)
	}
	defer rows.Close()

	var logs []domain.CallLogEntry
	for rows.Next() {
		var (
			e          domain.CallLogEntry
			status     string
			transcript sql.NullString
			createdAt  time.Time
		)
		if err := rows.Scan(&e.ID, &e.AgentID, &e.PhoneNumber, &e.Duration, &status, &transcript, &createdAt); err != nil {
			return nil, fmt.Errorf("scan call log: %w", err)
		}
		e.Status = domain.CallStatus(status)
		e.Transcript = transcript.String
		e.CreatedAt = createdAt
		logs = append(logs, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate call logs: %w", err)
	}
	return logs, nil
}

// CreateCallLog inserts a call log row.
func (p *Postgres) CreateCallLog(ctx context.Context, e domain.CallLogEntry) error {
	status := e.Status
	if status == "" {
		status = domain.CallCompleted
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO call_logs (id, agent_id, phone_number, duration, status, transcript, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.AgentID, e.PhoneNumber, e.Duration, string(status), nullString(e.Transcript), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("create call log for %s: %w", e.AgentID, err)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func encodePreferences(p *domain.Preferences) (string, error) {
	if p == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode preferences: %w", err)
	}
	return string(raw), nil
}
