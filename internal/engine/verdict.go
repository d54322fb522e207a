package engine

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/reyeslabs/lexigrade/internal/models"
)

// Eye-movement display metric calibration, kept from the original verdicts.
const (
	fixationBase  = 30.0
	fixationSlope = 0.5
	fixationCap   = 90.0

	regressionBase  = 10.0
	regressionSlope = 2.0
	regressionCap   = 50.0
)

// instructionalBand maps a proficiency label to its learning band and
// Phil-IRI instructional tier.
var instructionalBand = map[string]struct{ Band, IRI string }{
	"Advanced":   {"Enhancement", "Independent"},
	"Proficient": {"Enhancement", "Independent"},
	"Developing": {"Consolidation", "Instructional"},
	"Beginning":  {"Intervention", "Frustration"},
}

// AnalyzeProficiency scores a writing sample and composes the full student
// diagnosis verdict. All external inputs (tokenization, grammar issues,
// content score) arrive already resolved in the request; the call itself
// is pure CPU work with no I/O.
func (e *Engine) AnalyzeProficiency(ctx context.Context, req AnalysisRequest) (*models.StudentDiagnosisResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.checkLength(req.Text); err != nil {
		return nil, err
	}

	language := resolveLanguage(req)
	tok := e.tokenization(req)
	vector, stats := e.ExtractFeatures(req.Text, &tok)
	groups := e.ClassifyVocabulary(tok.Words, language)

	classification, heuristicScore := e.classifyProficiency(vector, groups.AdvancedCount)
	grammarScore := e.ScoreGrammar(req.Issues, stats.WordCount)

	nat := heuristicScore
	if classification.Provenance == models.ProvenanceTrained {
		if mapped, ok := e.cfg.NATScores[classification.Label]; ok {
			nat = mapped
		}
	}
	nat = math.Min(e.cfg.NATCap, round2(nat))

	band, ok := instructionalBand[classification.Label]
	if !ok {
		band = instructionalBand["Beginning"]
	}

	return &models.StudentDiagnosisResult{
		Kind:           models.KindProficiency,
		Proficiency:    classification.Label,
		Classification: classification,
		Metrics: models.ProficiencyMetrics{
			VocabularyRichness: math.Min(100, round2(vector.TTR*100+cefrBoost(groups.AdvancedCount))),
			SentenceComplexity: round2(vector.AvgSentenceLength * 2),
			GrammarAccuracy:    round2(grammarScore),
			StructureCohesion:  round2(structureCohesion(vector)),
			CEFRDistribution:   groups.Distribution,
			AdvancedWords:      groups.Proficient,
			Readability:        readabilityIndices(vector),
		},
		WordGroups:           groups,
		Features:             vector,
		GrammarScore:         round2(grammarScore),
		ContentScore:         req.ContentScore,
		NATScore:             nat,
		LearningBand:         band.Band,
		PhilIRILevel:         band.IRI,
		WordCount:            stats.WordCount,
		EstimatedReadingTime: round2(float64(stats.WordCount) / e.cfg.ReadingSpeedWPM),
	}, nil
}

// AnalyzeComplexity scores a reading passage and composes the text
// complexity verdict.
func (e *Engine) AnalyzeComplexity(ctx context.Context, req AnalysisRequest) (*models.TextComplexityResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.checkLength(req.Text); err != nil {
		return nil, err
	}

	language := resolveLanguage(req)
	tok := e.tokenization(req)
	vector, stats := e.ExtractFeatures(req.Text, &tok)
	groups := e.ClassifyVocabulary(tok.Words, language)

	classification, rawScore := e.classifyComplexity(vector, groups.AdvancedCount)
	grammarScore := e.ScoreGrammar(req.Issues, stats.WordCount)

	difficultPercent := vector.DifficultWordRatio * 100

	keywords := stats.DifficultWords
	if len(keywords) > 5 {
		keywords = keywords[:5]
	}

	return &models.TextComplexityResult{
		Kind:                 models.KindComplexity,
		Level:                classification.Label,
		Classification:       classification,
		Features:             vector,
		WordGroups:           groups,
		Score:                math.Min(100, round2(rawScore)),
		ReadabilityScore:     math.Max(0, round2(100-rawScore)),
		GrammarScore:         round2(grammarScore),
		ContentScore:         req.ContentScore,
		WordCount:            stats.WordCount,
		Keywords:             nonNil(keywords),
		HighlightedSegments:  nonNil(stats.DifficultWords),
		AvgSentenceLength:    round2(vector.AvgSentenceLength),
		DifficultWordRatio:   round2(difficultPercent),
		FixationDuration:     math.Min(fixationCap, round2(fixationBase+rawScore*fixationSlope)),
		RegressionIndex:      math.Min(regressionCap, round2(regressionBase+difficultPercent*regressionSlope)),
		EstimatedReadingTime: round2(float64(stats.WordCount) / e.cfg.ReadingSpeedWPM),
		Readability:          readabilityIndices(vector),
	}, nil
}

// checkLength enforces the minimum-length input policy before any feature
// work happens.
func (e *Engine) checkLength(text string) error {
	if len(strings.TrimSpace(text)) < e.cfg.MinTextLength {
		return fmt.Errorf("%w: need at least %d characters", ErrTextTooShort, e.cfg.MinTextLength)
	}
	return nil
}

// tokenization resolves the request's tokenization, falling back to the
// built-in splitter.
func (e *Engine) tokenization(req AnalysisRequest) models.Tokenization {
	if req.Tokenization != nil {
		return *req.Tokenization
	}
	return Tokenize(req.Text)
}

func readabilityIndices(v models.FeatureVector) models.ReadabilityIndices {
	return models.ReadabilityIndices{
		FleschKincaid: round2(v.FleschKincaidGrade),
		GunningFog:    round2(v.GunningFog),
	}
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
