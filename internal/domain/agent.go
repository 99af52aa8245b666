package domain

import (
	"time"
)

// Status is the lifecycle status of an agent. Any status may follow any other.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusTraining Status = "training"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusTraining:
		return true
	}
	return false
}

// ChatRole identifies the author of a chat turn.
type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
	RoleSystem    ChatRole = "system"
)

// ChatTurn is a single entry in an agent's chat history.
type ChatTurn struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Autonomy bounds.
const (
	MinAutonomy = 0
	MaxAutonomy = 5
)

// ClampAutonomy bounds v to [MinAutonomy, MaxAutonomy].
func ClampAutonomy(v int) int {
	if v < MinAutonomy {
		return MinAutonomy
	}
	if v > MaxAutonomy {
		return MaxAutonomy
	}
	return v
}

// Agent is a persona configuration owned by a user.
type Agent struct {
	ID           string     `json:"id"`
	OwnerID      string     `json:"ownerId"`
	Name         string     `json:"name"`
	Role         string     `json:"role"`
	Status       Status     `json:"status"`
	Calls        int        `json:"calls"`
	Messages     int        `json:"messages"`
	Tools        int        `json:"tools"`
	Autonomy     int        `json:"autonomy"`
	CreatedAt    time.Time  `json:"createdAt"`
	UserPrompt   string     `json:"userPrompt,omitempty"`
	SystemPrompt string     `json:"systemPrompt,omitempty"`
	FirstMessage string     `json:"firstMessage,omitempty"`
	VoiceID      string     `json:"voiceId,omitempty"`
	VoiceName    string     `json:"voiceName,omitempty"`
	ChatHistory  []ChatTurn `json:"chatHistory,omitempty"`
}

// Clone returns a copy of a that shares no slices with it.
func (a Agent) Clone() Agent {
	if a.ChatHistory != nil {
		history := make([]ChatTurn, len(a.ChatHistory))
		copy(history, a.ChatHistory)
		a.ChatHistory = history
	}
	return a
}

// AgentDraft carries the caller-supplied fields of a new agent. Identity,
// ownership, timestamps and counters are assigned by the store.
type AgentDraft struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Status       Status `json:"status"`
	Tools        int    `json:"tools"`
	Autonomy     int    `json:"autonomy"`
	UserPrompt   string `json:"userPrompt,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	FirstMessage string `json:"firstMessage,omitempty"`
	VoiceID      string `json:"voiceId,omitempty"`
	VoiceName    string `json:"voiceName,omitempty"`
}

// AgentPatch is a partial agent update. A nil field is left untouched.
// There is deliberately no way to change ID, OwnerID or CreatedAt.
type AgentPatch struct {
	Name         *string     `json:"name,omitempty"`
	Role         *string     `json:"role,omitempty"`
	Status       *Status     `json:"status,omitempty"`
	Calls        *int        `json:"calls,omitempty"`
	Messages     *int        `json:"messages,omitempty"`
	Tools        *int        `json:"tools,omitempty"`
	Autonomy     *int        `json:"autonomy,omitempty"`
	UserPrompt   *string     `json:"userPrompt,omitempty"`
	SystemPrompt *string     `json:"systemPrompt,omitempty"`
	FirstMessage *string     `json:"firstMessage,omitempty"`
	VoiceID      *string     `json:"voiceId,omitempty"`
	VoiceName    *string     `json:"voiceName,omitempty"`
	ChatHistory  *[]ChatTurn `json:"chatHistory,omitempty"`
}

// IsEmpty reports whether the patch sets no field.
func (p AgentPatch) IsEmpty() bool {
	return p == AgentPatch{}
}

// Apply returns a copy of a with the patch shallow-merged in. ChatHistory is
// replaced wholesale, never merged.
func (a Agent) Apply(p AgentPatch) Agent {
	a = a.Clone()
	setString(&a.Name, p.Name)
	setString(&a.Role, p.Role)
	if p.Status != nil {
		a.Status = *p.Status
	}
	setInt(&a.Calls, p.Calls)
	setInt(&a.Messages, p.Messages)
	setInt(&a.Tools, p.Tools)
	if p.Autonomy != nil {
		a.Autonomy = ClampAutonomy(*p.Autonomy)
	}
	setString(&a.UserPrompt, p.UserPrompt)
	setString(&a.SystemPrompt, p.SystemPrompt)
	setString(&a.FirstMessage, p.FirstMessage)
	setString(&a.VoiceID, p.VoiceID)
	setString(&a.VoiceName, p.VoiceName)
	if p.ChatHistory != nil {
		history := make([]ChatTurn, len(*p.ChatHistory))
		copy(history, *p.ChatHistory)
		a.ChatHistory = history
	}
	return a
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
