package publish

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashureev/agent-factory/internal/domain"
)

// projectManifest is the agent.json file.
type projectManifest struct {
	Name         string `json:"name"`
	Role         string `json:"role"`
	Status       string `json:"status"`
	Autonomy     int    `json:"autonomy"`
	Tools        int    `json:"tools"`
	VoiceID      string `json:"voiceId,omitempty"`
	VoiceName    string `json:"voiceName,omitempty"`
	UserPrompt   string `json:"userPrompt,omitempty"`
	FirstMessage string `json:"firstMessage,omitempty"`
	CreatedAt    string `json:"createdAt"`
}

// ProjectFiles returns the files committed to a published agent's
// repository, keyed by path.
func ProjectFiles(a domain.Agent) (map[string]string, error) {
	manifest, err := json.MarshalIndent(projectManifest{
		Name:         a.Name,
		Role:         a.Role,
		Status:       string(a.Status),
		Autonomy:     a.Autonomy,
		Tools:        a.Tools,
		VoiceID:      a.VoiceID,
		VoiceName:    a.VoiceName,
		UserPrompt:   a.UserPrompt,
		FirstMessage: a.FirstMessage,
		CreatedAt:    a.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode agent manifest: %w", err)
	}

	return map[string]string{
		"README.md":         readme(a),
		"agent.json":        string(manifest) + "\n",
		"system_prompt.md":  a.SystemPrompt + "\n",
		"first_message.txt": a.FirstMessage + "\n",
	}, nil
}

func readme(a domain.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", a.Name)
	if a.Role != "" {
		fmt.Fprintf(&b, "%s\n\n", a.Role)
	}
	b.WriteString("## Files\n\n")
	b.WriteString("- `agent.json`: persona settings\n")
	b.WriteString("- `system_prompt.md`: instructions given to the model\n")
	b.WriteString("- `first_message.txt`: the greeting used to open calls\n")
	if a.UserPrompt != "" {
		fmt.Fprintf(&b, "\n## Goal\n\n%s\n", a.UserPrompt)
	}
	b.WriteString("\nAI Agent created with AgentFactory.\n")
	return b.String()
}
