package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is the voice platform API.
const DefaultBaseURL = "https://api.vapi.ai"

const dispatchFailedMessage = "Failed to initiate outbound call"

var (
	// ErrDispatch wraps failures reported by the voice platform.
	ErrDispatch = errors.New("outbound call failed")
	// ErrPhoneRequired is returned when no phone number is given.
	ErrPhoneRequired = errors.New("phone number required")
	// ErrDispatchNotConfigured is returned without a private key or phone number id.
	ErrDispatchNotConfigured = errors.New("outbound calling is not configured")
)

// DispatchError carries the platform's message verbatim.
type DispatchError struct {
	Status  int
	Message string
}

func (e *DispatchError) Error() string { return e.Message }

// Unwrap lets errors.Is match ErrDispatch.
func (e *DispatchError) Unwrap() error { return ErrDispatch }

// Customer is the callee.
type Customer struct {
	Number string `json:"number"`
}

// Assistant is the transient assistant placed on an outbound call.
type Assistant struct {
	Name         string            `json:"name"`
	FirstMessage string            `json:"firstMessage"`
	Transcriber  TranscriberConfig `json:"transcriber"`
	Model        ModelConfig       `json:"model"`
	Voice        VoiceConfig       `json:"voice"`
}

// PhoneCallRequest is the outbound call request body.
type PhoneCallRequest struct {
	PhoneNumberID string    `json:"phoneNumberId"`
	Customer      Customer  `json:"customer"`
	Assistant     Assistant `json:"assistant"`
}

// Dispatcher places outbound phone calls.
type Dispatcher struct {
	baseURL       string
	privateKey    string
	phoneNumberID string
	client        *http.Client
}

// NewDispatcher creates a dispatcher. An empty baseURL selects DefaultBaseURL.
func NewDispatcher(baseURL, privateKey, phoneNumberID string) *Dispatcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Dispatcher{
		baseURL:       strings.TrimRight(baseURL, "/"),
		privateKey:    privateKey,
		phoneNumberID: phoneNumberID,
		client:        &http.Client{},
	}
}

// Configured reports whether calls can be placed.
func (d *Dispatcher) Configured() bool {
	return d.privateKey != "" && d.phoneNumberID != ""
}

// BuildPhoneCallRequest assembles the request body for an outbound call.
func (d *Dispatcher) BuildPhoneCallRequest(phone, systemPrompt, firstMessage, voiceID string) PhoneCallRequest {
	if firstMessage == "" {
		firstMessage = DefaultOutboundMsg
	}
	if voiceID == "" {
		voiceID = DefaultVoiceID
	}
	return PhoneCallRequest{
		PhoneNumberID: d.phoneNumberID,
		Customer:      Customer{Number: phone},
		Assistant: Assistant{
			Name:         OutboundAssistant,
			FirstMessage: firstMessage,
			Transcriber:  defaultTranscriber(),
			Model: ModelConfig{
				Provider: ModelProvider,
				Model:    ModelName,
				Messages: []Message{{
					Role:    "system",
					Content: systemPrompt + "\n\n" + MultilingualInstruction + "\n\n" + outboundInstruction,
				}},
				Temperature: ModelTemperature,
			},
			Voice: VoiceConfig{Provider: VoiceProvider, VoiceID: voiceID},
		},
	}
}

// Call places an outbound call and returns the platform's response.
func (d *Dispatcher) Call(ctx context.Context, phone, systemPrompt, firstMessage, voiceID string) (map[string]any, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil, ErrPhoneRequired
	}
	if !d.Configured() {
		return nil, ErrDispatchNotConfigured
	}

	body, err := json.Marshal(d.BuildPhoneCallRequest(phone, systemPrompt, firstMessage, voiceID))
	if err != nil {
		return nil, fmt.Errorf("encode call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/call/phone", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+d.privateKey)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("place call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read call response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &DispatchError{Status: resp.StatusCode, Message: remoteMessage(raw)}
	}

	var result map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &result); err != nil {
			return nil, fmt.Errorf("decode call response: %w", err)
		}
	}
	return result, nil
}

// remoteMessage extracts the platform's "message" field. It may be a string
// or a list of strings.
func remoteMessage(raw []byte) string {
	var body struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Message) == 0 {
		return dispatchFailedMessage
	}
	var s string
	if err := json.Unmarshal(body.Message, &s); err == nil && s != "" {
		return s
	}
	var list []string
	if err := json.Unmarshal(body.Message, &list); err == nil && len(list) > 0 {
		return strings.Join(list, "; ")
	}
	return dispatchFailedMessage
}
