package engine

import (
	"math"
	"strings"

	"github.com/reyeslabs/lexigrade/internal/models"
)

// Grammar issue types and severities.
const (
	IssueSpelling       = "spelling"
	IssueGrammar        = "grammar"
	IssuePunctuation    = "punctuation"
	IssueStyle          = "style"
	IssueCapitalization = "capitalization"

	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// ScoreGrammar aggregates an issue list into a single 0-100 quality score.
// Each issue contributes typeWeight x severityMultiplier, normalized by
// word count. Overlapping issues are deliberately counted in full: two
// findings on the same span are two independent problems, not one.
// A zero word count scores 100 (no words, no errors).
func (e *Engine) ScoreGrammar(issues []models.GrammarIssue, wordCount int) float64 {
	if wordCount <= 0 {
		return 100
	}

	var total float64
	for _, issue := range issues {
		total += e.issueWeight(issue)
	}

	score := 100 - (total/float64(wordCount))*100
	return math.Max(0, math.Min(100, score))
}

// issueWeight computes one issue's penalty. Issues whose message or rule
// identifier names a capitalization problem are weighted as capitalization
// regardless of their nominal type, because upstream checkers commonly file
// those under grammar or style.
func (e *Engine) issueWeight(issue models.GrammarIssue) float64 {
	issueType := strings.ToLower(issue.Type)
	if isCapitalizationIssue(issue) {
		issueType = IssueCapitalization
	}

	weight, ok := e.cfg.TypeWeights[issueType]
	if !ok {
		weight = e.cfg.TypeWeights[IssueGrammar]
	}

	multiplier, ok := e.cfg.SeverityMultipliers[strings.ToLower(issue.Severity)]
	if !ok {
		multiplier = 1.0
	}

	return weight * multiplier
}

func isCapitalizationIssue(issue models.GrammarIssue) bool {
	return strings.Contains(strings.ToLower(issue.Message), "capital") ||
		strings.Contains(strings.ToLower(issue.RuleID), "capital")
}
