package domain

import "time"

// CallStatus is the outcome of a call.
type CallStatus string

const (
	CallCompleted CallStatus = "completed"
	CallFailed    CallStatus = "failed"
	CallMissed    CallStatus = "missed"
)

// Valid reports whether s is a known call status.
func (s CallStatus) Valid() bool {
	switch s {
	case CallCompleted, CallFailed, CallMissed:
		return true
	}
	return false
}

// CallLogEntry records one call made by an agent. Entries are append-only.
type CallLogEntry struct {
	ID          string     `json:"id"`
	AgentID     string     `json:"agentId"`
	PhoneNumber string     `json:"phoneNumber"`
	Duration    int        `json:"duration"`
	Status      CallStatus `json:"status"`
	Transcript  string     `json:"transcript,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}
