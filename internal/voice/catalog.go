// Package voice configures and tracks voice calls placed through the
// hosted voice platform: the voice catalog, session configuration, the
// in-browser call state machine and its event relay, and outbound dispatch.
package voice

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultVoiceID is Rachel.
const DefaultVoiceID = "21m00Tcm4TlvDq8ikWAM"

// Voice is a selectable synthesized voice.
type Voice struct {
	ID          string `json:"id" yaml:"id"`
	Name        string `json:"name" yaml:"name"`
	Provider    string `json:"provider" yaml:"provider"`
	Description string `json:"description" yaml:"description"`
	Gender      string `json:"gender" yaml:"gender"`
}

var builtinVoices = []Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel", Provider: "11labs", Description: "American, calm, conversational - Great for narration/assistants", Gender: "female"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi", Provider: "11labs", Description: "American, strong, emphatic - Good for news/authoritative", Gender: "female"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella", Provider: "11labs", Description: "American, soft, pleasant - Good for fast-paced conversation", Gender: "female"},
	{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni", Provider: "11labs", Description: "American, well-rounded - Good for general purpose", Gender: "male"},
	{ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh", Provider: "11labs", Description: "American, deep, resonant - Good for storytelling", Gender: "male"},
	{ID: "VR6AewLTigWg4xSOukaG", Name: "Arnold", Provider: "11labs", Description: "American, crisp, professional - Good for technical content", Gender: "male"},
	{ID: "MF3mGyEYCl7XYWbV9V6O", Name: "Elli", Provider: "11labs", Description: "American, clear, youthful - Good for friendly assistants", Gender: "female"},
}

// Catalog is an immutable list of voices.
type Catalog struct {
	voices    []Voice
	byID      map[string]int
	defaultID string
}

type catalogFile struct {
	Default string  `yaml:"default"`
	Voices  []Voice `yaml:"voices"`
}

// DefaultCatalog returns the built-in voices.
func DefaultCatalog() *Catalog {
	c, _ := newCatalog(builtinVoices, DefaultVoiceID)
	return c
}

// LoadCatalog reads a YAML voice catalog. An empty path yields the built-in
// catalog.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read voice catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes a YAML voice catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode voice catalog: %w", err)
	}
	if len(f.Voices) == 0 {
		return nil, fmt.Errorf("voice catalog has no voices")
	}
	def := f.Default
	if def == "" {
		def = f.Voices[0].ID
	}
	return newCatalog(f.Voices, def)
}

func newCatalog(voices []Voice, defaultID string) (*Catalog, error) {
	c := &Catalog{
		voices:    make([]Voice, 0, len(voices)),
		byID:      make(map[string]int, len(voices)),
		defaultID: defaultID,
	}
	for _, v := range voices {
		if v.ID == "" || v.Name == "" {
			return nil, fmt.Errorf("voice catalog: entry without id or name")
		}
		if _, dup := c.byID[v.ID]; dup {
			return nil, fmt.Errorf("voice catalog: duplicate id %q", v.ID)
		}
		if v.Provider == "" {
			v.Provider = "11labs"
		}
		c.byID[v.ID] = len(c.voices)
		c.voices = append(c.voices, v)
	}
	if _, ok := c.byID[defaultID]; !ok {
		return nil, fmt.Errorf("voice catalog: default voice %q not listed", defaultID)
	}
	return c, nil
}

// List returns the voices in catalog order.
func (c *Catalog) List() []Voice {
	out := make([]Voice, len(c.voices))
	copy(out, c.voices)
	return out
}

// Lookup finds a voice by id.
func (c *Catalog) Lookup(id string) (Voice, bool) {
	i, ok := c.byID[id]
	if !ok {
		return Voice{}, false
	}
	return c.voices[i], true
}

// Default returns the default voice.
func (c *Catalog) Default() Voice {
	return c.voices[c.byID[c.defaultID]]
}

// Resolve returns id when it is set, else the default voice id.
func (c *Catalog) Resolve(id string) string {
	if id == "" {
		return c.defaultID
	}
	return id
}
