package engine

import (
	"errors"
	"strings"

	"github.com/reyeslabs/lexigrade/internal/config"
	"github.com/reyeslabs/lexigrade/internal/models"
	"github.com/reyeslabs/lexigrade/internal/svm"
)

// Language tags understood by the engine.
const (
	LanguageEnglish  = "en"
	LanguageFilipino = "tl"
)

var (
	// ErrTextTooShort rejects input below the calibrated minimum length
	// before any feature extraction happens.
	ErrTextTooShort = errors.New("text is too short to analyze")
)

// Engine is the hybrid linguistic scoring engine. It is safe for
// concurrent use: the calibration and lexicon are read-only, and the model
// holders guard their one-time load internally.
type Engine struct {
	cfg     config.Scoring
	lexicon Lexicon

	proficiency *svm.Holder
	complexity  *svm.Holder
}

// Option configures an Engine.
type Option func(*Engine)

// WithLexicon replaces the built-in CEFR lexicon.
func WithLexicon(lex Lexicon) Option {
	return func(e *Engine) { e.lexicon = lex }
}

// WithProficiencyModel attaches a persisted proficiency model holder.
func WithProficiencyModel(h *svm.Holder) Option {
	return func(e *Engine) { e.proficiency = h }
}

// WithComplexityModel attaches a persisted complexity model holder.
func WithComplexityModel(h *svm.Holder) Option {
	return func(e *Engine) { e.complexity = h }
}

// New creates an engine with the given calibration.
func New(cfg config.Scoring, opts ...Option) *Engine {
	e := &Engine{
		cfg:     cfg,
		lexicon: DefaultLexicon(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AnalysisRequest carries one text sample plus the already-resolved results
// of the external collaborators. The engine never calls out itself.
type AnalysisRequest struct {
	Text     string
	Language string // empty means auto-detect

	// Tokenization from the external tagger; nil falls back to the
	// built-in splitter.
	Tokenization *models.Tokenization

	// Issues from the rule-based checker, possibly extended by the AI
	// enhancement service.
	Issues []models.GrammarIssue

	// ContentScore is an optional externally computed content-accuracy
	// score in [0,100].
	ContentScore *float64
}

// NormalizeLanguage maps the language tags accepted at the API boundary to
// the engine's canonical tags.
func NormalizeLanguage(language string) string {
	switch strings.ToLower(strings.TrimSpace(language)) {
	case "en", "eng", "english":
		return LanguageEnglish
	case "tl", "fil", "tagalog", "filipino":
		return LanguageFilipino
	case "":
		return ""
	default:
		return strings.ToLower(strings.TrimSpace(language))
	}
}

// tagalogMarkers are high-frequency Tagalog function words. A text where
// these dominate is almost certainly Filipino.
var tagalogMarkers = map[string]bool{
	"ang": true, "mga": true, "ng": true, "nang": true, "sa": true,
	"ako": true, "siya": true, "sila": true, "kami": true, "tayo": true,
	"ito": true, "iyan": true, "iyon": true, "hindi": true, "oo": true,
	"po": true, "naman": true, "lang": true, "kasi": true, "dahil": true,
	"kung": true, "para": true, "may": true, "wala": true, "meron": true,
}

// DetectLanguage guesses the language of a text sample. It only
// distinguishes English from Filipino; anything else defaults to English,
// mirroring the upstream checker's behavior for short or ambiguous input.
func DetectLanguage(text string) string {
	words := extractWords(text)
	if len(words) == 0 {
		return LanguageEnglish
	}

	markers := 0
	for _, w := range words {
		if tagalogMarkers[strings.ToLower(w)] {
			markers++
		}
	}

	if float64(markers)/float64(len(words)) >= 0.15 {
		return LanguageFilipino
	}
	return LanguageEnglish
}

// resolveLanguage picks the request language or falls back to detection.
func resolveLanguage(req AnalysisRequest) string {
	if lang := NormalizeLanguage(req.Language); lang != "" {
		return lang
	}
	return DetectLanguage(req.Text)
}
