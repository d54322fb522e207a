package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, DefaultMinTextLength, cfg.MinTextLength)
	assert.Equal(t, DefaultReadingSpeedWPM, cfg.ReadingSpeedWPM)
	assert.Equal(t, DefaultTieBreakMargin, cfg.TieBreakMargin)
	assert.Equal(t, DefaultNATCap, cfg.NATCap)

	assert.Equal(t, 2.0, cfg.TypeWeights["spelling"])
	assert.Equal(t, 0.4, cfg.TypeWeights["capitalization"])
	assert.Equal(t, 1.2, cfg.SeverityMultipliers["error"])
	assert.Equal(t, 95.0, cfg.NATScores["Advanced"])
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "calibration.toml"))
	assert.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.toml")
	content := `
min_text_length = 40
reading_speed_wpm = 180

[proficiency_bands]
developing = 45
proficient = 70
advanced = 88
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40, cfg.MinTextLength)
	assert.Equal(t, 180.0, cfg.ReadingSpeedWPM)
	assert.Equal(t, 45.0, cfg.Proficiency.Developing)
	assert.Equal(t, 88.0, cfg.Proficiency.Advanced)

	// Untouched knobs keep their defaults.
	assert.Equal(t, DefaultTieBreakMargin, cfg.TieBreakMargin)
	assert.Equal(t, 2.0, cfg.TypeWeights["spelling"])
}

func TestLoadRejectsInvalidCalibration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.toml")
	content := `
[proficiency_bands]
developing = 90
proficient = 75
advanced = 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Scoring)
		wantErr bool
	}{
		{"defaults pass", func(s *Scoring) {}, false},
		{"negative min length", func(s *Scoring) { s.MinTextLength = -1 }, true},
		{"zero reading speed", func(s *Scoring) { s.ReadingSpeedWPM = 0 }, true},
		{"tie margin out of range", func(s *Scoring) { s.TieBreakMargin = 1 }, true},
		{"non-increasing proficiency cuts", func(s *Scoring) { s.Proficiency.Proficient = s.Proficiency.Advanced }, true},
		{"non-increasing complexity cuts", func(s *Scoring) { s.Complexity.Inferential = s.Complexity.Evaluative }, true},
		{"zero type weight", func(s *Scoring) { s.TypeWeights["style"] = 0 }, true},
		{"negative severity multiplier", func(s *Scoring) { s.SeverityMultipliers["info"] = -0.5 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
