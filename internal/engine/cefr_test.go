package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyVocabularyTiers(t *testing.T) {
	e := newTestEngine()
	words := extractWords("The ubiquitous paradigm shift")

	groups := e.ClassifyVocabulary(words, "en")

	assert.Equal(t, []string{"the"}, groups.Basic)
	assert.Equal(t, []string{"shift"}, groups.Independent)
	assert.Equal(t, []string{"ubiquitous", "paradigm"}, groups.Proficient)
	assert.Equal(t, 2, groups.AdvancedCount)
	assert.Equal(t, 1, groups.Distribution["A1"])
	assert.Equal(t, 1, groups.Distribution["B2"])
	assert.Equal(t, 1, groups.Distribution["C1"])
	assert.Equal(t, 1, groups.Distribution["C2"])
}

func TestClassifyVocabularyNonEnglishIsEmpty(t *testing.T) {
	e := newTestEngine()
	words := extractWords("The ubiquitous paradigm shift")

	for _, lang := range []string{"tl", "fil", "tagalog", "filipino"} {
		groups := e.ClassifyVocabulary(words, lang)

		assert.Empty(t, groups.Basic, "language %s", lang)
		assert.Empty(t, groups.Independent, "language %s", lang)
		assert.Empty(t, groups.Proficient, "language %s", lang)
		assert.Zero(t, groups.AdvancedCount, "language %s", lang)
		for band, n := range groups.Distribution {
			assert.Zero(t, n, "language %s band %s", lang, band)
		}
	}
}

func TestClassifyVocabularyDeduplicates(t *testing.T) {
	e := newTestEngine()
	words := []string{"The", "the", "THE", "shift", "shift"}

	groups := e.ClassifyVocabulary(words, "en")

	assert.Equal(t, []string{"the"}, groups.Basic)
	assert.Equal(t, []string{"shift"}, groups.Independent)
	assert.Equal(t, 1, groups.Distribution["A1"])
}

func TestClassifyVocabularyUnknownWordsExcluded(t *testing.T) {
	e := newTestEngine()
	words := []string{"floccinaucinihilipilification", "zxqwv"}

	groups := e.ClassifyVocabulary(words, "en")

	assert.Empty(t, groups.Basic)
	assert.Empty(t, groups.Independent)
	assert.Empty(t, groups.Proficient)
	for _, n := range groups.Distribution {
		assert.Zero(t, n)
	}
}

func TestNormalizeLanguage(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"en", "en"},
		{"English", "en"},
		{"ENG", "en"},
		{"tl", "tl"},
		{"Filipino", "tl"},
		{"tagalog", "tl"},
		{"", ""},
		{"es", "es"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, NormalizeLanguage(tt.input), "input %q", tt.input)
	}
}

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{"english prose", "The quick brown fox jumps over the lazy dog.", "en"},
		{"tagalog prose", "Ang mga bata ay naglalaro sa labas kasi maganda ang panahon.", "tl"},
		{"empty", "", "en"},
		{"ambiguous short", "OK", "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectLanguage(tt.text))
		})
	}
}
