package models

import "time"

// Analysis kinds stored in the database. Exactly one verdict field is set
// per record, matching the Kind discriminant.
const (
	KindProficiency = "proficiency"
	KindComplexity  = "complexity"
)

// Provenance values for a classification result.
const (
	ProvenanceTrained   = "trained"
	ProvenanceHeuristic = "heuristic"
)

// Proficiency labels, ordered from least to most advanced.
var ProficiencyLabels = []string{"Beginning", "Developing", "Proficient", "Advanced"}

// Complexity labels, ordered from least to most demanding.
var ComplexityLabels = []string{"Literal", "Inferential", "Evaluative"}

// Pipeline stages for asynchronously processed analyses.
const (
	StageQueued   = "queued"
	StageScored   = "scored"
	StageEnhanced = "enhanced"
	StageFailed   = "failed"
)

// Analysis represents a stored analysis request and its verdict.
// ReferenceText, when present, is the passage the submission is graded
// against for content accuracy during AI enhancement.
type Analysis struct {
	ID            string                  `json:"id"`
	Kind          string                  `json:"kind"`
	Text          string                  `json:"text"`
	Language      string                  `json:"language"`
	ReferenceText string                  `json:"reference_text,omitempty"`
	Stage         string                  `json:"stage"`
	Issues        []GrammarIssue          `json:"issues,omitempty"`
	Proficiency   *StudentDiagnosisResult `json:"proficiency,omitempty"`
	Complexity    *TextComplexityResult   `json:"complexity,omitempty"`
	LastError     string                  `json:"last_error,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	UpdatedAt     time.Time               `json:"updated_at"`
}

// FeatureVector is the fixed 7-dimension linguistic feature vector.
// All fields are non-negative; ratio fields are in [0,1].
type FeatureVector struct {
	TTR                float64 `json:"ttr"`
	AvgSentenceLength  float64 `json:"avg_sentence_length"`
	DifficultWordRatio float64 `json:"difficult_word_ratio"`
	ClauseDensity      float64 `json:"clause_density"`
	AdvancedRatio      float64 `json:"advanced_ratio"`
	FleschKincaidGrade float64 `json:"flesch_kincaid_grade"`
	GunningFog         float64 `json:"gunning_fog"`

	// InsufficientData is set when the text had no words or sentences and
	// every divide-by-zero field was defined as 0.
	InsufficientData bool `json:"insufficient_data"`
}

// Values returns the vector in the canonical order expected by the
// persisted scaler and model.
func (v FeatureVector) Values() []float64 {
	return []float64{
		v.TTR,
		v.AvgSentenceLength,
		v.DifficultWordRatio,
		v.ClauseDensity,
		v.AdvancedRatio,
		v.FleschKincaidGrade,
		v.GunningFog,
	}
}

// Tokenization holds the word and sentence segmentation of a text sample,
// either from the external tagger or from the built-in splitter.
type Tokenization struct {
	Words     []string `json:"words"`
	Sentences []string `json:"sentences"`

	// VerbCount is supplied by a POS tagger; HasVerbCount distinguishes a
	// genuine zero from "tagger unavailable".
	VerbCount    int  `json:"verb_count"`
	HasVerbCount bool `json:"has_verb_count"`
}

// CEFRWordGroups buckets the recognised vocabulary of a text into the three
// CEFR macro tiers. Proficient preserves first-occurrence order because the
// caller highlights those words in the source text.
type CEFRWordGroups struct {
	Basic       []string `json:"basic"`       // A1-A2
	Independent []string `json:"independent"` // B1-B2
	Proficient  []string `json:"proficient"`  // C1-C2

	Distribution  map[string]int `json:"distribution"` // per-band raw counts
	AdvancedCount int            `json:"advanced_count"`
}

// ClassificationResult is a predicted level with its confidence and the
// path that produced it.
type ClassificationResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"` // [0,1]
	Provenance string  `json:"provenance"` // trained | heuristic
}

// GrammarIssue is a single finding from the rule-based checker or the AI
// enhancement service. Offsets index into the original text; issues may
// overlap and are never merged.
type GrammarIssue struct {
	Type         string   `json:"type"` // spelling, grammar, punctuation, style, capitalization
	Message      string   `json:"message"`
	Offset       int      `json:"offset"`
	Length       int      `json:"length"`
	Replacements []string `json:"replacements,omitempty"`
	Context      string   `json:"context,omitempty"`
	Severity     string   `json:"severity"` // error, warning, info
	RuleID       string   `json:"rule_id,omitempty"`
}

// ReadabilityIndices groups the standard published readability scores.
type ReadabilityIndices struct {
	FleschKincaid float64 `json:"flesch_kincaid"`
	GunningFog    float64 `json:"gunning_fog"`
}

// ProficiencyMetrics are the display metrics attached to a student verdict.
type ProficiencyMetrics struct {
	VocabularyRichness float64            `json:"vocabulary_richness"`
	SentenceComplexity float64            `json:"sentence_complexity"`
	GrammarAccuracy    float64            `json:"grammar_accuracy"`
	StructureCohesion  float64            `json:"structure_cohesion"`
	CEFRDistribution   map[string]int     `json:"cefr_distribution"`
	AdvancedWords      []string           `json:"advanced_words"`
	Readability        ReadabilityIndices `json:"readability"`
}

// StudentDiagnosisResult is the proficiency verdict for a writing sample.
type StudentDiagnosisResult struct {
	Kind           string               `json:"kind"` // always "proficiency"
	Proficiency    string               `json:"proficiency"`
	Classification ClassificationResult `json:"classification"`
	Metrics        ProficiencyMetrics   `json:"metrics"`
	WordGroups     CEFRWordGroups       `json:"cefr_word_groups"`
	Features       FeatureVector        `json:"features"`

	GrammarScore float64  `json:"grammar_score"`           // 0-100
	ContentScore *float64 `json:"content_score,omitempty"` // externally supplied, 0-100

	NATScore     float64 `json:"nat_score"`
	LearningBand string  `json:"learning_band"`  // Enhancement, Consolidation, Intervention
	PhilIRILevel string  `json:"phil_iri_level"` // Independent, Instructional, Frustration

	WordCount            int     `json:"word_count"`
	EstimatedReadingTime float64 `json:"estimated_reading_time"` // minutes
}

// TextComplexityResult is the complexity verdict for a reading passage.
type TextComplexityResult struct {
	Kind           string               `json:"kind"` // always "complexity"
	Level          string               `json:"level"`
	Classification ClassificationResult `json:"classification"`
	Features       FeatureVector        `json:"features"`
	WordGroups     CEFRWordGroups       `json:"cefr_word_groups"`

	Score            float64 `json:"score"`             // 0-100
	ReadabilityScore float64 `json:"readability_score"` // 0-100, inverse of Score

	GrammarScore float64  `json:"grammar_score"`
	ContentScore *float64 `json:"content_score,omitempty"`

	WordCount            int                `json:"word_count"`
	Keywords             []string           `json:"keywords"`
	HighlightedSegments  []string           `json:"highlighted_segments"`
	AvgSentenceLength    float64            `json:"avg_sentence_length"`
	DifficultWordRatio   float64            `json:"difficult_word_ratio"`
	FixationDuration     float64            `json:"fixation_duration"`
	RegressionIndex      float64            `json:"regression_index"`
	EstimatedReadingTime float64            `json:"estimated_reading_time"` // minutes
	Readability          ReadabilityIndices `json:"readability"`
}

// ModelMetrics is the evaluation metadata stored alongside a trained
// artifact, served by the evaluation endpoint.
type ModelMetrics struct {
	Accuracy  float64  `json:"accuracy"`
	F1        float64  `json:"f1"`
	Precision float64  `json:"precision"`
	Recall    float64  `json:"recall"`
	Labels    []string `json:"labels"`
	Matrix    [][]int  `json:"matrix"`
}
