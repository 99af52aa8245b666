package voice

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/coder/websocket"
)

// AgentSource is the part of the agent store the relay needs.
type AgentSource interface {
	Get(id string) (domain.Agent, bool)
	IncrementCalls(ctx context.Context, id string) (domain.Agent, error)
}

// CallRecorder stores finished calls.
type CallRecorder interface {
	Add(ctx context.Context, entry domain.CallLogEntry) (domain.CallLogEntry, error)
}

// Frame is sent to the browser after every event.
type Frame struct {
	Type   string               `json:"type"`
	State  State                `json:"state"`
	Volume float64              `json:"volume"`
	Error  string               `json:"error,omitempty"`
	Call   *domain.CallLogEntry `json:"call,omitempty"`
}

// Relay accepts session events from the browser over a WebSocket, drives a
// Call through them and records the call when it finishes. One connection
// per user and agent is kept; a new one replaces the old.
type Relay struct {
	agents         AgentSource
	recorder       CallRecorder
	logger         *slog.Logger
	originPatterns []string

	mu     sync.Mutex
	active map[string]map[string]*websocket.Conn
}

// NewRelay creates a relay. originPatterns are passed to the WebSocket
// handshake; nil accepts any origin.
func NewRelay(agents AgentSource, recorder CallRecorder, originPatterns []string, logger *slog.Logger) *Relay {
	if logger == nil {
		logger = slog.Default()
	}
	if len(originPatterns) == 0 {
		originPatterns = []string{"*"}
	}
	return &Relay{
		agents:         agents,
		recorder:       recorder,
		logger:         logger,
		originPatterns: originPatterns,
		active:         make(map[string]map[string]*websocket.Conn),
	}
}

// Serve upgrades the request and relays events for agentID until the
// connection closes. Agents userID does not own are reported as not found.
func (r *Relay) Serve(w http.ResponseWriter, req *http.Request, userID, agentID string) {
	if a, ok := r.agents.Get(agentID); !ok || a.OwnerID != userID {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"agent not found"}` + "\n"))
		return
	}

	ws, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		OriginPatterns: r.originPatterns,
	})
	if err != nil {
		r.logger.Error("Failed to accept voice relay", "error", err, "agent_id", agentID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "call relay closed"); closeErr != nil {
			r.logger.Debug("Failed to close voice relay", "error", closeErr, "agent_id", agentID)
		}
	}()

	r.register(userID, agentID, ws)
	defer r.unregister(userID, agentID, ws)

	call := NewCall(agentID)
	ctx := req.Context()
	r.logger.Info("Voice relay connected", "user_id", userID, "agent_id", agentID)

	defer func() {
		// A dropped connection ends any call still in progress.
		if !call.Finished() && call.State() != StateIdle {
			if _, err := call.Handle(Event{Type: EventStopRequested}); err == nil {
				r.finish(call)
			}
		}
	}()

	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				r.logger.Debug("Voice relay closed by client", "agent_id", agentID)
			} else if !errors.Is(err, context.Canceled) {
				r.logger.Warn("Voice relay read error", "error", err, "agent_id", agentID)
			}
			return
		}

		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil || ev.Type == "" {
			r.write(ctx, ws, Frame{Type: "error", State: call.State(), Error: "invalid event"})
			continue
		}

		state, err := call.Handle(ev)
		if err != nil {
			r.logger.Debug("Ignored call event", "agent_id", agentID, "event", ev.Type, "state", state)
			r.write(ctx, ws, Frame{Type: "ignored", State: state, Volume: call.Volume(), Error: err.Error()})
			continue
		}

		frame := Frame{Type: "state", State: state, Volume: call.Volume()}
		if call.Finished() {
			frame.Call = r.finish(call)
		}
		r.write(ctx, ws, frame)
	}
}

// finish records the finished call and bumps the agent's call counter for
// calls that connected.
func (r *Relay) finish(call *Call) *domain.CallLogEntry {
	entry, ok := call.LogEntry()
	if !ok {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if entry.Status == domain.CallCompleted {
		if _, err := r.agents.IncrementCalls(ctx, entry.AgentID); err != nil {
			r.logger.Warn("Failed to count call", "agent_id", entry.AgentID, "error", err)
		}
	}
	if r.recorder != nil {
		saved, err := r.recorder.Add(ctx, entry)
		if err != nil {
			r.logger.Warn("Failed to record call", "agent_id", entry.AgentID, "error", err)
		} else {
			entry = saved
		}
	}
	return &entry
}

func (r *Relay) write(ctx context.Context, ws *websocket.Conn, f Frame) {
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	if err := ws.Write(ctx, websocket.MessageText, data); err != nil {
		r.logger.Debug("Voice relay write error", "error", err)
	}
}

func (r *Relay) register(userID, agentID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.active[userID]; !exists {
		r.active[userID] = make(map[string]*websocket.Conn)
	}
	if existing, exists := r.active[userID][agentID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "call relay replaced")
	}
	r.active[userID][agentID] = conn
}

func (r *Relay) unregister(userID, agentID string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conns, ok := r.active[userID]; ok {
		if current, exists := conns[agentID]; exists && current == conn {
			delete(conns, agentID)
			if len(conns) == 0 {
				delete(r.active, userID)
			}
		}
	}
}

// CloseUser terminates every relay connection of userID.
func (r *Relay) CloseUser(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for agentID, conn := range r.active[userID] {
		_ = conn.Close(websocket.StatusNormalClosure, "signed out")
		r.logger.Info("Voice relay closed", "user_id", userID, "agent_id", agentID)
	}
	delete(r.active, userID)
}

// Active reports the number of open relay connections.
func (r *Relay) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, conns := range r.active {
		n += len(conns)
	}
	return n
}
