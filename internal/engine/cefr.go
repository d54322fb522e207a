package engine

import (
	"strings"

	"github.com/reyeslabs/lexigrade/internal/models"
)

// ClassifyVocabulary buckets the unique words of a text into CEFR tiers.
// Proficiency banding is an English-only capability: for any other
// language every group is empty, because the lexicon only covers English.
// Words missing from the lexicon are excluded from the distribution
// entirely. Group ordering is first-occurrence order so the caller can
// highlight words in reading order.
func (e *Engine) ClassifyVocabulary(words []string, language string) models.CEFRWordGroups {
	groups := models.CEFRWordGroups{
		Basic:        []string{},
		Independent:  []string{},
		Proficient:   []string{},
		Distribution: emptyDistribution(),
	}

	if NormalizeLanguage(language) != LanguageEnglish {
		return groups
	}

	seen := make(map[string]bool, len(words))
	for _, w := range words {
		norm := strings.ToLower(w)
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true

		band, ok := e.lexicon[norm]
		if !ok {
			continue
		}

		groups.Distribution[band.String()]++
		switch {
		case band <= BandA2:
			groups.Basic = append(groups.Basic, norm)
		case band <= BandB2:
			groups.Independent = append(groups.Independent, norm)
		default:
			groups.Proficient = append(groups.Proficient, norm)
			groups.AdvancedCount++
		}
	}

	return groups
}

func emptyDistribution() map[string]int {
	return map[string]int{
		"A1": 0, "A2": 0,
		"B1": 0, "B2": 0,
		"C1": 0, "C2": 0,
	}
}
