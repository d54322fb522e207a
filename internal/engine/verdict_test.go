package engine

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reyeslabs/lexigrade/internal/config"
	"github.com/reyeslabs/lexigrade/internal/models"
	"github.com/reyeslabs/lexigrade/internal/svm"
)

const sampleEssay = `The ancient library stood at the edge of the village, its weathered walls
holding centuries of accumulated knowledge. Scholars traveled from distant
provinces because the collection included manuscripts that existed nowhere
else. Although the building needed repairs, the community refused to abandon
it, and every generation contributed something to its preservation.`

func TestAnalyzeProficiencyRejectsShortText(t *testing.T) {
	e := newTestEngine()

	_, err := e.AnalyzeProficiency(context.Background(), AnalysisRequest{Text: "Too short."})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTextTooShort))
}

func TestAnalyzeComplexityRejectsShortText(t *testing.T) {
	e := newTestEngine()

	_, err := e.AnalyzeComplexity(context.Background(), AnalysisRequest{Text: "   hi   "})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTextTooShort))
}

func TestAnalyzeProficiencyHonorsContextCancellation(t *testing.T) {
	e := newTestEngine()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.AnalyzeProficiency(ctx, AnalysisRequest{Text: sampleEssay})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAnalyzeProficiencyHeuristicPath(t *testing.T) {
	e := newTestEngine()

	result, err := e.AnalyzeProficiency(context.Background(), AnalysisRequest{Text: sampleEssay})
	require.NoError(t, err)

	assert.Equal(t, models.KindProficiency, result.Kind)
	assert.Equal(t, models.ProvenanceHeuristic, result.Classification.Provenance)
	assert.Contains(t, models.ProficiencyLabels, result.Proficiency)
	assert.Equal(t, result.Proficiency, result.Classification.Label)

	band := instructionalBand[result.Proficiency]
	assert.Equal(t, band.Band, result.LearningBand)
	assert.Equal(t, band.IRI, result.PhilIRILevel)

	assert.LessOrEqual(t, result.NATScore, config.DefaultNATCap)
	assert.GreaterOrEqual(t, result.GrammarScore, 0.0)
	assert.LessOrEqual(t, result.GrammarScore, 100.0)
	assert.Equal(t, 100.0, result.GrammarScore) // no issues supplied
	assert.Nil(t, result.ContentScore)

	assert.Greater(t, result.WordCount, 0)
	assert.InDelta(t, round2(float64(result.WordCount)/config.DefaultReadingSpeedWPM), result.EstimatedReadingTime, 1e-9)
	assert.False(t, result.Features.InsufficientData)
}

func TestAnalyzeProficiencyGrammarIssuesLowerScore(t *testing.T) {
	e := newTestEngine()

	clean, err := e.AnalyzeProficiency(context.Background(), AnalysisRequest{Text: sampleEssay})
	require.NoError(t, err)

	flawed, err := e.AnalyzeProficiency(context.Background(), AnalysisRequest{
		Text: sampleEssay,
		Issues: []models.GrammarIssue{
			{Type: IssueSpelling, Severity: SeverityError},
			{Type: IssueGrammar, Severity: SeverityError},
		},
	})
	require.NoError(t, err)

	assert.Less(t, flawed.GrammarScore, clean.GrammarScore)
}

func writeArtifact(t *testing.T, art svm.Artifact) string {
	t.Helper()
	data, err := json.Marshal(art)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// advancedArtifact always predicts the highest proficiency label: every
// decision function is flat, with only the last intercept positive.
func advancedArtifact() svm.Artifact {
	dim := len(models.FeatureVector{}.Values())
	zeros := make([]float64, dim)
	ones := make([]float64, dim)
	for i := range ones {
		ones[i] = 1
	}

	labels := models.ProficiencyLabels
	weights := make([][]float64, len(labels))
	intercepts := make([]float64, len(labels))
	for i := range labels {
		weights[i] = zeros
		intercepts[i] = -10
	}
	intercepts[len(labels)-1] = 10

	return svm.Artifact{
		Version:    "test-v1",
		Labels:     labels,
		Scaler:     svm.Scaler{Mean: zeros, Scale: ones},
		Weights:    weights,
		Intercepts: intercepts,
	}
}

func TestAnalyzeProficiencyTrainedPath(t *testing.T) {
	path := writeArtifact(t, advancedArtifact())
	e := New(config.Default(), WithProficiencyModel(svm.NewHolder(path)))

	result, err := e.AnalyzeProficiency(context.Background(), AnalysisRequest{Text: sampleEssay})
	require.NoError(t, err)

	assert.Equal(t, models.ProvenanceTrained, result.Classification.Provenance)
	assert.Equal(t, "Advanced", result.Proficiency)
	assert.Equal(t, "Enhancement", result.LearningBand)
	assert.Equal(t, "Independent", result.PhilIRILevel)
	// NAT score comes from the label mapping on the trained path.
	assert.Equal(t, 95.0, result.NATScore)
}

func TestAnalyzeProficiencyMissingModelFallsBack(t *testing.T) {
	holder := svm.NewHolder(filepath.Join(t.TempDir(), "does-not-exist.json"))
	e := New(config.Default(), WithProficiencyModel(holder))

	result, err := e.AnalyzeProficiency(context.Background(), AnalysisRequest{Text: sampleEssay})
	require.NoError(t, err)

	// A missing artifact is a handled condition, never a request failure.
	assert.Equal(t, models.ProvenanceHeuristic, result.Classification.Provenance)
}

func TestAnalyzeComplexityComposesVerdict(t *testing.T) {
	e := newTestEngine()

	result, err := e.AnalyzeComplexity(context.Background(), AnalysisRequest{Text: sampleEssay})
	require.NoError(t, err)

	assert.Equal(t, models.KindComplexity, result.Kind)
	assert.Contains(t, models.ComplexityLabels, result.Level)

	assert.GreaterOrEqual(t, result.Score, 0.0)
	assert.LessOrEqual(t, result.Score, 100.0)
	assert.GreaterOrEqual(t, result.ReadabilityScore, 0.0)
	assert.LessOrEqual(t, result.ReadabilityScore, 100.0)

	assert.LessOrEqual(t, result.FixationDuration, 90.0)
	assert.GreaterOrEqual(t, result.FixationDuration, 30.0)
	assert.LessOrEqual(t, result.RegressionIndex, 50.0)
	assert.GreaterOrEqual(t, result.RegressionIndex, 10.0)

	assert.NotNil(t, result.Keywords)
	assert.LessOrEqual(t, len(result.Keywords), 5)
	assert.NotNil(t, result.HighlightedSegments)
	assert.Greater(t, result.WordCount, 0)
}

func TestAnalyzeProficiencyDetectsFilipino(t *testing.T) {
	e := newTestEngine()
	text := "Ang mga mag-aaral ay nagbabasa ng mga aklat sa silid-aklatan dahil may pagsusulit sila bukas at kailangan nilang maghanda."

	result, err := e.AnalyzeProficiency(context.Background(), AnalysisRequest{Text: text})
	require.NoError(t, err)

	// CEFR banding is English-only, so a Filipino sample gets empty groups.
	assert.Empty(t, result.WordGroups.Basic)
	assert.Empty(t, result.WordGroups.Independent)
	assert.Empty(t, result.WordGroups.Proficient)
	assert.Zero(t, result.WordGroups.AdvancedCount)
}

func TestAnalyzeProficiencyPassesContentScoreThrough(t *testing.T) {
	e := newTestEngine()
	content := 87.5

	result, err := e.AnalyzeProficiency(context.Background(), AnalysisRequest{
		Text:         sampleEssay,
		ContentScore: &content,
	})
	require.NoError(t, err)

	require.NotNil(t, result.ContentScore)
	assert.Equal(t, content, *result.ContentScore)
}
