package voice

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	voices := c.List()
	require.Len(t, voices, 7)
	assert.Equal(t, "Rachel", c.Default().Name)

	v, ok := c.Lookup("TxGEqnHWrfWFTfGW9XjX")
	require.True(t, ok)
	assert.Equal(t, "Josh", v.Name)
	assert.Equal(t, "male", v.Gender)

	_, ok = c.Lookup("nope")
	assert.False(t, ok)

	assert.Equal(t, DefaultVoiceID, c.Resolve(""))
	assert.Equal(t, "x", c.Resolve("x"))
}

func TestLoadCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voices.yaml")
	raw := `
default: b2
voices:
  - id: a1
    name: Asha
    description: Indian English, warm
    gender: female
  - id: b2
    name: Ravi
    provider: 11labs
    gender: male
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, "Ravi", c.Default().Name)
	v, ok := c.Lookup("a1")
	require.True(t, ok)
	assert.Equal(t, "11labs", v.Provider)
}

func TestParseCatalogRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":           "voices: []",
		"missing name":    "voices:\n  - id: a\n",
		"duplicate":       "voices:\n  - {id: a, name: A}\n  - {id: a, name: B}\n",
		"unknown default": "default: z\nvoices:\n  - {id: a, name: A}\n",
		"not yaml":        "voices: [",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCatalog([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestLoadCatalogEmptyPath(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)
	assert.Len(t, c.List(), 7)
}
