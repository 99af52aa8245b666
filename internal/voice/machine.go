package voice

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ashureev/agent-factory/internal/domain"
)

// State is the lifecycle state of an in-browser call.
type State string

const (
	StateIdle       State = "idle"
	StateConnecting State = "connecting"
	StateListening  State = "listening"
	StateSpeaking   State = "speaking"
	StateEnded      State = "ended"
	StateErrored    State = "errored"
)

// EventType is a session event reported by the browser SDK or the user.
type EventType string

const (
	EventStartRequested EventType = "start-requested"
	EventCallStart      EventType = "call-start"
	EventSpeechStart    EventType = "speech-start"
	EventSpeechEnd      EventType = "speech-end"
	EventVolumeLevel    EventType = "volume-level"
	EventCallEnd        EventType = "call-end"
	EventError          EventType = "error"
	EventStopRequested  EventType = "stop-requested"
)

// WebCallNumber is recorded as the phone number of in-browser calls.
const WebCallNumber = "web"

// ErrInvalidTransition is returned for events the current state does not accept.
var ErrInvalidTransition = errors.New("invalid call transition")

// Event is one session event.
type Event struct {
	Type    EventType `json:"type"`
	Volume  float64   `json:"volume,omitempty"`
	Message string    `json:"message,omitempty"`
}

type transitionKey struct {
	from  State
	event EventType
}

// transitions lists every defined transition. speech-start means the user
// started talking, so the agent is listening; speech-end hands the turn to
// the agent.
var transitions = map[transitionKey]State{
	{StateIdle, EventStartRequested}:    StateConnecting,
	{StateEnded, EventStartRequested}:   StateConnecting,
	{StateErrored, EventStartRequested}: StateConnecting,

	{StateConnecting, EventCallStart}:     StateListening,
	{StateConnecting, EventCallEnd}:       StateEnded,
	{StateConnecting, EventStopRequested}: StateEnded,
	{StateConnecting, EventError}:         StateErrored,

	{StateListening, EventSpeechStart}:   StateListening,
	{StateListening, EventSpeechEnd}:     StateSpeaking,
	{StateListening, EventVolumeLevel}:   StateListening,
	{StateListening, EventCallEnd}:       StateEnded,
	{StateListening, EventStopRequested}: StateEnded,
	{StateListening, EventError}:         StateErrored,

	{StateSpeaking, EventSpeechStart}:   StateListening,
	{StateSpeaking, EventSpeechEnd}:     StateSpeaking,
	{StateSpeaking, EventVolumeLevel}:   StateSpeaking,
	{StateSpeaking, EventCallEnd}:       StateEnded,
	{StateSpeaking, EventStopRequested}: StateEnded,
	{StateSpeaking, EventError}:         StateErrored,
}

// Next returns the state reached from s on event, or ErrInvalidTransition.
func Next(s State, event EventType) (State, error) {
	next, ok := transitions[transitionKey{s, event}]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, s, event)
	}
	return next, nil
}

// Call tracks one in-browser call session. It is safe for concurrent use.
type Call struct {
	agentID string
	now     func() time.Time

	mu          sync.Mutex
	state       State
	requestedAt time.Time
	connectedAt time.Time
	endedAt     time.Time
	volume      float64
	lastError   string
}

// NewCall creates an idle call for agentID.
func NewCall(agentID string) *Call {
	return &Call{agentID: agentID, now: time.Now, state: StateIdle}
}

// State returns the current state.
func (c *Call) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Volume returns the last reported volume level.
func (c *Call) Volume() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.volume
}

// Handle applies ev. Undefined transitions leave the state unchanged and
// return ErrInvalidTransition.
func (c *Call) Handle(ev Event) (State, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	next, err := Next(c.state, ev.Type)
	if err != nil {
		return c.state, err
	}

	now := c.now()
	switch ev.Type {
	case EventStartRequested:
		c.requestedAt = now
		c.connectedAt = time.Time{}
		c.endedAt = time.Time{}
		c.volume = 0
		c.lastError = ""
	case EventCallStart:
		c.connectedAt = now
	case EventVolumeLevel:
		c.volume = ev.Volume
	case EventError:
		c.lastError = ev.Message
	}
	if next == StateEnded || next == StateErrored {
		c.endedAt = now
		c.volume = 0
	}

	c.state = next
	return next, nil
}

// Finished reports whether the call has reached a terminal state.
func (c *Call) Finished() bool {
	s := c.State()
	return s == StateEnded || s == StateErrored
}

// LogEntry summarizes a finished call. ok is false while the call is still
// in progress or was never started.
func (c *Call) LogEntry() (entry domain.CallLogEntry, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.requestedAt.IsZero() || (c.state != StateEnded && c.state != StateErrored) {
		return domain.CallLogEntry{}, false
	}

	entry = domain.CallLogEntry{
		AgentID:     c.agentID,
		PhoneNumber: WebCallNumber,
		CreatedAt:   c.requestedAt.UTC(),
	}
	switch {
	case c.state == StateErrored:
		entry.Status = domain.CallFailed
		entry.Transcript = c.lastError
	case c.connectedAt.IsZero():
		entry.Status = domain.CallMissed
	default:
		entry.Status = domain.CallCompleted
	}
	if !c.connectedAt.IsZero() {
		entry.Duration = int(c.endedAt.Sub(c.connectedAt).Round(time.Second) / time.Second)
	}
	return entry, true
}
