// Package generator turns a short goal description and the answers to a
// fixed interview into an agent persona. Generation is template-based and
// deterministic; no model is called.
package generator

import (
	"bytes"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"text/template"

	"github.com/ashureev/agent-factory/internal/domain"
)

// Expertise levels offered by the creation wizard.
const (
	ExpertiseJunior     = "junior"
	ExpertiseMidLevel   = "mid-level"
	ExpertiseSenior     = "senior"
	ExpertiseExecutive  = "executive"
	ExpertiseWorldClass = "world-class"
)

// Fallback values for blank answers.
const (
	DefaultOrganization = "our organization"
	DefaultGoal         = "discuss an important opportunity"
	DefaultAgentName    = "Alex"
	DefaultTone         = "professional and friendly"
	DefaultExpertise    = "expert"
)

// Questions is the fixed interview, in answer order.
var Questions = []string{
	"What is the name of your organization or university?",
	"What is the main purpose of this call? (e.g., invite students, schedule appointments, etc.)",
	"What name should the AI agent use when introducing itself?",
}

// Options tune the generated persona.
type Options struct {
	Tone      string   `json:"tone,omitempty"`
	Expertise string   `json:"expertise,omitempty"`
	Language  string   `json:"language,omitempty"`
	Answers   []string `json:"answers,omitempty"`
}

// Config is a generated agent persona.
type Config struct {
	Name         string   `json:"name"`
	Role         string   `json:"role"`
	SystemPrompt string   `json:"systemPrompt"`
	FirstMessage string   `json:"firstMessage"`
	Tools        []string `json:"tools"`
	Autonomy     int      `json:"autonomy"`
}

// Draft converts c into the fields of a new agent record.
func (c Config) Draft(goal string) domain.AgentDraft {
	return domain.AgentDraft{
		Name:         c.Name,
		Role:         c.Role,
		Status:       domain.StatusActive,
		Tools:        len(c.Tools),
		Autonomy:     c.Autonomy,
		UserPrompt:   goal,
		SystemPrompt: c.SystemPrompt,
		FirstMessage: c.FirstMessage,
	}
}

// Fallback is the persona returned when the templates cannot be rendered.
func Fallback() Config {
	return Config{
		Name:         "Professional Consultant",
		Role:         "Strategic Advisor",
		SystemPrompt: "You are a professional consultant. Always be courteous, knowledgeable, and helpful.",
		FirstMessage: "Hello! I'm calling to discuss an important matter with you. How are you today?",
		Tools:        []string{"knowledge_base", "phone_call"},
		Autonomy:     domain.MaxAutonomy,
	}
}

// GenerateQuestions returns the interview questions. The goal does not
// influence them.
func GenerateQuestions(goal string) []string {
	out := make([]string, len(Questions))
	copy(out, Questions)
	return out
}

type promptData struct {
	Organization string
	Goal         string
	AgentName    string
	Tone         string
	Expertise    string
	Language     string
}

var (
	firstMessageTmpl = template.Must(template.New("first_message").Parse(firstMessageText))
	systemPromptTmpl = template.Must(template.New("system_prompt").Parse(systemPromptText))
)

// GenerateConfig builds a persona from the goal and options. It never fails.
func GenerateConfig(goal string, opts Options) Config {
	data := promptData{
		Organization: answerAt(opts.Answers, 0, DefaultOrganization),
		Goal:         answerAt(opts.Answers, 1, DefaultGoal),
		AgentName:    answerAt(opts.Answers, 2, DefaultAgentName),
		Tone:         orDefault(opts.Tone, DefaultTone),
		Expertise:    orDefault(opts.Expertise, DefaultExpertise),
		Language:     strings.TrimSpace(opts.Language),
	}

	firstMessage, err := render(firstMessageTmpl, data)
	if err != nil {
		slog.Error("Render first message failed, using fallback persona", "error", err)
		return Fallback()
	}
	systemPrompt, err := render(systemPromptTmpl, data)
	if err != nil {
		slog.Error("Render system prompt failed, using fallback persona", "error", err)
		return Fallback()
	}

	return Config{
		Name:         data.AgentName,
		Role:         "Professional Representative at " + data.Organization,
		SystemPrompt: systemPrompt,
		FirstMessage: firstMessage,
		Tools:        []string{"phone_call", "calendar_api", "email_send", "knowledge_base"},
		Autonomy:     domain.MaxAutonomy,
	}
}

// AnswersFromMap orders loosely keyed answers: integer keys ascending, then
// keys equal to an interview question in question order, then the rest
// lexically.
func AnswersFromMap(m map[string]string) []string {
	type entry struct {
		group int
		rank  int
		key   string
	}
	questionRank := make(map[string]int, len(Questions))
	for i, q := range Questions {
		questionRank[q] = i
	}

	entries := make([]entry, 0, len(m))
	for k := range m {
		if n, err := strconv.Atoi(k); err == nil && n >= 0 {
			entries = append(entries, entry{group: 0, rank: n, key: k})
		} else if r, ok := questionRank[k]; ok {
			entries = append(entries, entry{group: 1, rank: r, key: k})
		} else {
			entries = append(entries, entry{group: 2, key: k})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.group != b.group {
			return a.group < b.group
		}
		if a.rank != b.rank {
			return a.rank < b.rank
		}
		return a.key < b.key
	})

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = m[e.key]
	}
	return out
}

func answerAt(answers []string, i int, def string) string {
	if i < len(answers) {
		return orDefault(answers[i], def)
	}
	return def
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

func render(t *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
