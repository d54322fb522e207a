package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Default calibration values. Every numeric policy knob in the scoring
// engine has a named default here and can be overridden from a TOML file,
// so nothing downstream inlines a magic cut-point.
const (
	// DefaultMinTextLength is the minimum number of characters accepted by
	// the feature extractor before a vector is statistically meaningless.
	DefaultMinTextLength = 25

	// DefaultReadingSpeedWPM drives the estimated reading time metric.
	DefaultReadingSpeedWPM = 150.0

	// DefaultTieBreakMargin is the confidence margin inside which the
	// trained classifier prefers the less advanced label.
	DefaultTieBreakMargin = 0.05

	// Heuristic proficiency band cut-points over the composite score.
	DefaultDevelopingCut = 50.0
	DefaultProficientCut = 75.0
	DefaultAdvancedCut   = 90.0

	// Heuristic complexity band cut-points over the composite score.
	DefaultInferentialCut = 40.0
	DefaultEvaluativeCut  = 75.0

	// DefaultNATCap caps the estimated standardized score.
	DefaultNATCap = 99.0
)

// ProficiencyBands are the heuristic score cut-points for proficiency.
type ProficiencyBands struct {
	Developing float64 `toml:"developing"`
	Proficient float64 `toml:"proficient"`
	Advanced   float64 `toml:"advanced"`
}

// ComplexityBands are the heuristic score cut-points for complexity.
type ComplexityBands struct {
	Inferential float64 `toml:"inferential"`
	Evaluative  float64 `toml:"evaluative"`
}

// Scoring is the full calibration for one engine instance.
type Scoring struct {
	MinTextLength   int     `toml:"min_text_length"`
	ReadingSpeedWPM float64 `toml:"reading_speed_wpm"`
	TieBreakMargin  float64 `toml:"tie_break_margin"`
	NATCap          float64 `toml:"nat_cap"`

	Proficiency ProficiencyBands `toml:"proficiency_bands"`
	Complexity  ComplexityBands  `toml:"complexity_bands"`

	// NATScores maps a proficiency label to its estimated standardized score.
	NATScores map[string]float64 `toml:"nat_scores"`

	// Grammar issue weighting tables.
	TypeWeights         map[string]float64 `toml:"type_weights"`
	SeverityMultipliers map[string]float64 `toml:"severity_multipliers"`
}

// Default returns the built-in calibration.
func Default() Scoring {
	return Scoring{
		MinTextLength:   DefaultMinTextLength,
		ReadingSpeedWPM: DefaultReadingSpeedWPM,
		TieBreakMargin:  DefaultTieBreakMargin,
		NATCap:          DefaultNATCap,
		Proficiency: ProficiencyBands{
			Developing: DefaultDevelopingCut,
			Proficient: DefaultProficientCut,
			Advanced:   DefaultAdvancedCut,
		},
		Complexity: ComplexityBands{
			Inferential: DefaultInferentialCut,
			Evaluative:  DefaultEvaluativeCut,
		},
		NATScores: map[string]float64{
			"Beginning":  30,
			"Developing": 60,
			"Proficient": 80,
			"Advanced":   95,
		},
		TypeWeights: map[string]float64{
			"spelling":       2.0,
			"grammar":        1.5,
			"punctuation":    0.8,
			"style":          0.6,
			"capitalization": 0.4,
		},
		SeverityMultipliers: map[string]float64{
			"error":   1.2,
			"warning": 0.8,
			"info":    0.5,
		},
	}
}

// Load reads a TOML calibration file over the defaults. A missing path
// returns the defaults; a malformed or invalid file is a configuration
// error and should abort startup.
func Load(path string) (Scoring, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read calibration file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse calibration file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid calibration in %s: %w", path, err)
	}

	return cfg, nil
}

// Validate rejects calibrations that would silently corrupt every verdict.
func (s Scoring) Validate() error {
	if s.MinTextLength < 0 {
		return fmt.Errorf("min_text_length must be non-negative, got %d", s.MinTextLength)
	}
	if s.ReadingSpeedWPM <= 0 {
		return fmt.Errorf("reading_speed_wpm must be positive, got %v", s.ReadingSpeedWPM)
	}
	if s.TieBreakMargin < 0 || s.TieBreakMargin >= 1 {
		return fmt.Errorf("tie_break_margin must be in [0,1), got %v", s.TieBreakMargin)
	}
	if !(s.Proficiency.Developing < s.Proficiency.Proficient && s.Proficiency.Proficient < s.Proficiency.Advanced) {
		return fmt.Errorf("proficiency cut-points must be strictly increasing")
	}
	if s.Complexity.Inferential >= s.Complexity.Evaluative {
		return fmt.Errorf("complexity cut-points must be strictly increasing")
	}
	for name, w := range s.TypeWeights {
		if w <= 0 {
			return fmt.Errorf("type weight %q must be positive, got %v", name, w)
		}
	}
	for name, m := range s.SeverityMultipliers {
		if m <= 0 {
			return fmt.Errorf("severity multiplier %q must be positive, got %v", name, m)
		}
	}
	return nil
}
