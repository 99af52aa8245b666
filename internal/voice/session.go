package voice

import (
	"github.com/ashureev/agent-factory/internal/domain"
)

// Model settings shared by every call.
const (
	ModelProvider      = "openai"
	ModelName          = "gpt-4o"
	ModelTemperature   = 0.7
	SessionMaxTokens   = 500
	TranscriberName    = "deepgram"
	TranscriberModel   = "nova-2"
	TranscriberLang    = "multi"
	VoiceProvider      = "11labs"
	OutboundAssistant  = "Dynamic Agent"
	DefaultGreeting    = "Hello! It is a pleasure to speak with you."
	DefaultOutboundMsg = "Hello! I'm calling to discuss the details you provided."
)

// MultilingualInstruction is appended to every call's system prompt.
const MultilingualInstruction = `
CRITICAL INSTRUCTION: You are a highly capable agent designed for an Indian audience.
1. LANGUAGE: Speak in "Indian English" (clear, neutral, simple vocabulary).
2. ADAPTABILITY: If the user speaks Hindi, REPLY IN HINDI. If they mix Hindi/English (Hinglish), you do the same.
3. CLARITY: Speak at a moderate pace. Avoid distinct American idioms (e.g., "hit the ground running"). Use direct, polite phrasing common in India (e.g., "Please do the needful" or "I will surely help you").
4. PLAYING THE ROLE: Maintain your professional persona but be warm and respectful (use "Sir/Ma'am").
`

const warmthInstruction = "CRITICAL INSTRUCTION: You represent the gold standard of politeness and warmth. \n" +
	"1. Speak with genuine kindness, empathy, and patience.\n" +
	"2. Use polite language (Please, Thank you, It would be my pleasure).\n" +
	"3. Make the user feel valued and understood.\n" +
	"4. Never be abrupt or dismissive.\n" +
	"5. Answer fully and helpfully, but always with a 'smile' in your voice.\n" +
	"6. Provide detailed, comprehensive information. Avoid being too brief."

const outboundInstruction = "CRITICAL INSTRUCTION: Provide detailed and comprehensive responses. Do not be overly concise."

// Message is a model message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ModelConfig configures the conversation model.
type ModelConfig struct {
	Provider    string    `json:"provider"`
	Model       string    `json:"model"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"maxTokens,omitempty"`
	Messages    []Message `json:"messages"`
}

// TranscriberConfig configures speech-to-text.
type TranscriberConfig struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

// VoiceConfig configures speech synthesis.
type VoiceConfig struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

// SessionConfig is handed to the browser SDK to start an in-browser call.
type SessionConfig struct {
	Model        ModelConfig       `json:"model"`
	Transcriber  TranscriberConfig `json:"transcriber"`
	Voice        VoiceConfig       `json:"voice"`
	FirstMessage string            `json:"firstMessage"`
}

// BuildSessionConfig assembles the in-browser call configuration.
func BuildSessionConfig(systemPrompt, firstMessage, voiceID string) SessionConfig {
	if firstMessage == "" {
		firstMessage = DefaultGreeting
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	return SessionConfig{
		Model: ModelConfig{
			Provider:    ModelProvider,
			Model:       ModelName,
			Temperature: ModelTemperature,
			MaxTokens:   SessionMaxTokens,
			Messages: []Message{{
				Role:    "system",
				Content: systemPrompt + "\n\n" + MultilingualInstruction + "\n\n" + warmthInstruction,
			}},
		},
		Transcriber:  defaultTranscriber(),
		Voice:        VoiceConfig{Provider: VoiceProvider, VoiceID: voiceID},
		FirstMessage: firstMessage,
	}
}

func defaultTranscriber() TranscriberConfig {
	return TranscriberConfig{Provider: TranscriberName, Model: TranscriberModel, Language: TranscriberLang}
}

// BrowserGreeting is the first message of an in-browser call with a.
func BrowserGreeting(a domain.Agent) string {
	if a.FirstMessage != "" {
		return a.FirstMessage
	}
	return "Hello! I am " + a.Name + ". How can I help you today?"
}

// OutboundGreeting is the first message of an outbound call placed by a.
func OutboundGreeting(a domain.Agent) string {
	if a.FirstMessage != "" {
		return a.FirstMessage
	}
	name := a.Name
	if name == "" {
		name = "our organization"
	}
	return "Hello! I'm calling from " + name + " to discuss an important matter with you."
}

// AgentSessionConfig is the in-browser session for agent a.
func AgentSessionConfig(a domain.Agent) SessionConfig {
	return BuildSessionConfig(a.SystemPrompt, BrowserGreeting(a), a.VoiceID)
}
