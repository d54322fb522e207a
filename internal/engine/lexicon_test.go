package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBandString(t *testing.T) {
	assert.Equal(t, "A1", BandA1.String())
	assert.Equal(t, "C2", BandC2.String())
	assert.Equal(t, "unknown", Band(99).String())
}

func TestBandAdvanced(t *testing.T) {
	assert.False(t, BandA1.Advanced())
	assert.False(t, BandB2.Advanced())
	assert.True(t, BandC1.Advanced())
	assert.True(t, BandC2.Advanced())
}

func TestDefaultLexiconCoverage(t *testing.T) {
	lex := DefaultLexicon()

	tests := []struct {
		word string
		band Band
	}{
		{"the", BandA1},
		{"shift", BandB2},
		{"paradigm", BandC1},
		{"ubiquitous", BandC2},
	}

	for _, tt := range tests {
		band, ok := lex[tt.word]
		require.True(t, ok, "expected %q in the built-in lexicon", tt.word)
		assert.Equal(t, tt.band, band, "word %q", tt.word)
	}
}

func writeLexiconFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lexicon.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadLexicon(t *testing.T) {
	path := writeLexiconFile(t, `
[bands]
a1 = ["cat", "Dog"]
c2 = ["ubiquitous"]
`)

	lex, err := LoadLexicon(path)
	require.NoError(t, err)

	assert.Equal(t, BandA1, lex["cat"])
	assert.Equal(t, BandA1, lex["dog"]) // normalized to lower case
	assert.Equal(t, BandC2, lex["ubiquitous"])
}

func TestLoadLexiconErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown band", "[bands]\nd1 = [\"word\"]\n"},
		{"empty word", "[bands]\na1 = [\"\"]\n"},
		{"conflicting duplicate", "[bands]\na1 = [\"cat\"]\nc2 = [\"cat\"]\n"},
		{"no bands", "title = \"empty\"\n"},
		{"malformed toml", "[bands\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadLexicon(writeLexiconFile(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadLexiconMissingFile(t *testing.T) {
	_, err := LoadLexicon(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
