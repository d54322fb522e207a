package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reyeslabs/lexigrade/internal/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate())
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleAnalysis(id string) *models.Analysis {
	now := time.Now().UTC().Truncate(time.Second)
	return &models.Analysis{
		ID:            id,
		Kind:          models.KindProficiency,
		Text:          "The students wrote thoughtful essays about their communities.",
		Language:      "en",
		ReferenceText: "Essay prompt: describe your community.",
		Stage:         models.StageQueued,
		Issues: []models.GrammarIssue{
			{Type: "spelling", Message: "Possible spelling mistake", Severity: "error"},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSaveAndGetAnalysis(t *testing.T) {
	db := newTestDB(t)

	original := sampleAnalysis("a1")
	require.NoError(t, db.SaveAnalysis(original))

	got, err := db.GetAnalysis("a1")
	require.NoError(t, err)

	assert.Equal(t, original.ID, got.ID)
	assert.Equal(t, original.Kind, got.Kind)
	assert.Equal(t, original.Text, got.Text)
	assert.Equal(t, original.Language, got.Language)
	assert.Equal(t, original.ReferenceText, got.ReferenceText)
	assert.Equal(t, models.StageQueued, got.Stage)
	require.Len(t, got.Issues, 1)
	assert.Equal(t, "spelling", got.Issues[0].Type)
	assert.Nil(t, got.Proficiency)
	assert.Nil(t, got.Complexity)
}

func TestGetAnalysisNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.GetAnalysis("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateAnalysisStoresVerdict(t *testing.T) {
	db := newTestDB(t)

	analysis := sampleAnalysis("a2")
	require.NoError(t, db.SaveAnalysis(analysis))

	analysis.Stage = models.StageScored
	analysis.Proficiency = &models.StudentDiagnosisResult{
		Kind:        models.KindProficiency,
		Proficiency: "Developing",
		Classification: models.ClassificationResult{
			Label:      "Developing",
			Confidence: 0.8,
			Provenance: models.ProvenanceHeuristic,
		},
		NATScore:     60,
		LearningBand: "Consolidation",
		PhilIRILevel: "Instructional",
		GrammarScore: 92.5,
		WordCount:    8,
	}
	require.NoError(t, db.UpdateAnalysis(analysis))

	got, err := db.GetAnalysis("a2")
	require.NoError(t, err)

	assert.Equal(t, models.StageScored, got.Stage)
	require.NotNil(t, got.Proficiency)
	assert.Equal(t, "Developing", got.Proficiency.Proficiency)
	assert.Equal(t, models.ProvenanceHeuristic, got.Proficiency.Classification.Provenance)
	assert.Equal(t, 92.5, got.Proficiency.GrammarScore)
}

func TestUpdateAnalysisNotFound(t *testing.T) {
	db := newTestDB(t)

	err := db.UpdateAnalysis(sampleAnalysis("ghost"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestComplexityVerdictRoundTrip(t *testing.T) {
	db := newTestDB(t)

	analysis := sampleAnalysis("c1")
	analysis.Kind = models.KindComplexity
	analysis.ReferenceText = ""
	analysis.Complexity = &models.TextComplexityResult{
		Kind:  models.KindComplexity,
		Level: "Inferential",
		Classification: models.ClassificationResult{
			Label:      "Inferential",
			Confidence: 0.7,
			Provenance: models.ProvenanceHeuristic,
		},
		Score:            55.2,
		ReadabilityScore: 44.8,
		Keywords:         []string{"communities"},
	}
	require.NoError(t, db.SaveAnalysis(analysis))

	got, err := db.GetAnalysis("c1")
	require.NoError(t, err)

	require.NotNil(t, got.Complexity)
	assert.Nil(t, got.Proficiency)
	assert.Empty(t, got.ReferenceText)
	assert.Equal(t, "Inferential", got.Complexity.Level)
	assert.Equal(t, 55.2, got.Complexity.Score)
	assert.Equal(t, []string{"communities"}, got.Complexity.Keywords)
}

func TestListAnalysesPagination(t *testing.T) {
	db := newTestDB(t)

	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []string{"p1", "p2", "p3"} {
		a := sampleAnalysis(id)
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		a.UpdatedAt = a.CreatedAt
		require.NoError(t, db.SaveAnalysis(a))
	}

	// Newest first.
	page, err := db.ListAnalyses("", 2, 0)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "p3", page[0].ID)
	assert.Equal(t, "p2", page[1].ID)

	rest, err := db.ListAnalyses("", 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "p1", rest[0].ID)
}

func TestListAnalysesKindFilter(t *testing.T) {
	db := newTestDB(t)

	prof := sampleAnalysis("f1")
	require.NoError(t, db.SaveAnalysis(prof))

	comp := sampleAnalysis("f2")
	comp.Kind = models.KindComplexity
	require.NoError(t, db.SaveAnalysis(comp))

	got, err := db.ListAnalyses(models.KindComplexity, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "f2", got[0].ID)

	count, err := db.CountAnalyses(models.KindComplexity)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	total, err := db.CountAnalyses("")
	require.NoError(t, err)
	assert.Equal(t, 2, total)
}

func TestListAnalysesEmpty(t *testing.T) {
	db := newTestDB(t)

	got, err := db.ListAnalyses("", 10, 0)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestDeleteAnalysis(t *testing.T) {
	db := newTestDB(t)

	require.NoError(t, db.SaveAnalysis(sampleAnalysis("d1")))
	require.NoError(t, db.DeleteAnalysis("d1"))

	_, err := db.GetAnalysis("d1")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, db.DeleteAnalysis("d1"), ErrNotFound)
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Migrate())
	require.NoError(t, db.Migrate())
}
