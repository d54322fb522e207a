package svm

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeArtifact(t *testing.T, art Artifact) string {
	t.Helper()
	data, err := json.Marshal(art)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func twoLabelArtifact() Artifact {
	return Artifact{
		Version: "v1",
		Labels:  []string{"Literal", "Evaluative"},
		Scaler: Scaler{
			Mean:  []float64{0, 0},
			Scale: []float64{1, 1},
		},
		Weights:    [][]float64{{1, 0}, {-1, 0}},
		Intercepts: []float64{0, 0},
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestLoadRejectsInvalidArtifacts(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Artifact)
	}{
		{"missing version", func(a *Artifact) { a.Version = "" }},
		{"single label", func(a *Artifact) { a.Labels = []string{"Only"} }},
		{"missing weight row", func(a *Artifact) { a.Weights = a.Weights[:1] }},
		{"scaler dimension mismatch", func(a *Artifact) { a.Scaler.Scale = []float64{1} }},
		{"weight dimension mismatch", func(a *Artifact) { a.Weights[0] = []float64{1} }},
		{"partial platt params", func(a *Artifact) { a.Platt = []PlattParams{{A: -1, B: 0}} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			art := twoLabelArtifact()
			tt.mutate(&art)

			_, err := Load(writeArtifact(t, art))
			assert.ErrorIs(t, err, ErrModelUnavailable)
		})
	}
}

func TestPredictPicksHighestScore(t *testing.T) {
	model, err := Load(writeArtifact(t, twoLabelArtifact()))
	require.NoError(t, err)

	// Positive first feature pushes the first decision function up.
	label, confidence, err := model.Predict([]float64{5, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Literal", label)
	assert.Greater(t, confidence, 0.5)

	label, _, err = model.Predict([]float64{-5, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Evaluative", label)
}

func TestPredictAppliesScaler(t *testing.T) {
	art := twoLabelArtifact()
	art.Scaler.Mean = []float64{10, 0}

	model, err := Load(writeArtifact(t, art))
	require.NoError(t, err)

	// Raw 5 scales to -5, flipping the winner relative to unscaled input.
	label, _, err := model.Predict([]float64{5, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Evaluative", label)
}

func TestPredictTieBreakPrefersLowerLabel(t *testing.T) {
	// Flat decision functions with a tiny edge for the higher label: within
	// the margin, the less advanced label must win.
	art := twoLabelArtifact()
	art.Weights = [][]float64{{0, 0}, {0, 0}}
	art.Intercepts = []float64{0, 0.01}

	model, err := Load(writeArtifact(t, art))
	require.NoError(t, err)

	label, _, err := model.Predict([]float64{1, 1}, 0.05)
	require.NoError(t, err)
	assert.Equal(t, "Literal", label)

	// With no margin the raw winner stands.
	label, _, err = model.Predict([]float64{1, 1}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Evaluative", label)
}

func TestPredictDimensionMismatch(t *testing.T) {
	model, err := Load(writeArtifact(t, twoLabelArtifact()))
	require.NoError(t, err)

	_, _, err = model.Predict([]float64{1, 2, 3}, 0)
	assert.Error(t, err)
}

func TestPredictPlattCalibratedConfidence(t *testing.T) {
	art := twoLabelArtifact()
	art.Platt = []PlattParams{{A: -1, B: 0}, {A: -1, B: 0}}

	model, err := Load(writeArtifact(t, art))
	require.NoError(t, err)

	label, confidence, err := model.Predict([]float64{3, 0}, 0)
	require.NoError(t, err)
	assert.Equal(t, "Literal", label)
	assert.Greater(t, confidence, 0.5)
	assert.LessOrEqual(t, confidence, 1.0)
}

func TestPredictDeterministic(t *testing.T) {
	model, err := Load(writeArtifact(t, twoLabelArtifact()))
	require.NoError(t, err)

	vector := []float64{1.3, -0.7}
	firstLabel, firstConf, err := model.Predict(vector, 0.05)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		label, conf, err := model.Predict(vector, 0.05)
		require.NoError(t, err)
		assert.Equal(t, firstLabel, label)
		assert.Equal(t, firstConf, conf)
	}
}

func TestHolderLoadsOnce(t *testing.T) {
	path := writeArtifact(t, twoLabelArtifact())
	holder := NewHolder(path)

	first, err := holder.Get()
	require.NoError(t, err)
	require.NotNil(t, first)

	// Removing the file after the first load must not matter.
	require.NoError(t, os.Remove(path))

	again, err := holder.Get()
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.True(t, holder.Available())
}

func TestHolderMissingArtifact(t *testing.T) {
	holder := NewHolder(filepath.Join(t.TempDir(), "missing.json"))

	_, err := holder.Get()
	assert.ErrorIs(t, err, ErrModelUnavailable)
	assert.False(t, holder.Available())

	// Stays unavailable on repeated checks.
	_, err = holder.Get()
	assert.ErrorIs(t, err, ErrModelUnavailable)
}

func TestHolderEmptyPath(t *testing.T) {
	holder := NewHolder("")
	assert.False(t, holder.Available())
}

func TestArtifactMetadataAccessors(t *testing.T) {
	model, err := Load(writeArtifact(t, twoLabelArtifact()))
	require.NoError(t, err)

	assert.Equal(t, "v1", model.Version())
	assert.Equal(t, []string{"Literal", "Evaluative"}, model.Labels())
	assert.Nil(t, model.Metrics())
}
