package engine

import (
	"math"
	"regexp"
	"strings"

	"github.com/reyeslabs/lexigrade/internal/models"
)

// difficultWordLength is the length threshold beyond which a word counts
// as difficult for the difficult-word ratio.
const difficultWordLength = 9

// Readability formula constants, from the published Flesch-Kincaid grade
// level and Gunning Fog index definitions.
const (
	fkSentenceWeight = 0.39
	fkSyllableWeight = 11.8
	fkBase           = 15.59

	fogWeight           = 0.4
	fogComplexSyllables = 3
)

var (
	wordRe     = regexp.MustCompile(`[A-Za-z]+(?:'[A-Za-z]+)?`)
	sentenceRe = regexp.MustCompile(`[.!?]+`)
)

// extractWords pulls word tokens from text, preserving case.
func extractWords(text string) []string {
	return wordRe.FindAllString(text, -1)
}

// splitSentences segments text on terminal punctuation. Text without any
// terminal punctuation is a single sentence.
func splitSentences(text string) []string {
	parts := sentenceRe.Split(text, -1)
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			sentences = append(sentences, strings.TrimSpace(p))
		}
	}
	if len(sentences) == 0 && strings.TrimSpace(text) != "" {
		sentences = []string{strings.TrimSpace(text)}
	}
	return sentences
}

// Tokenize is the built-in whitespace/punctuation splitter used when the
// external tagger is unavailable. It never supplies a verb count.
func Tokenize(text string) models.Tokenization {
	return models.Tokenization{
		Words:     extractWords(text),
		Sentences: splitSentences(text),
	}
}

// countSyllablesInWord estimates syllables by counting vowel runs, with a
// silent-e adjustment. Every word has at least one syllable.
func countSyllablesInWord(word string) int {
	word = strings.ToLower(word)
	if word == "" {
		return 0
	}

	count := 0
	const vowels = "aeiouy"
	prevWasVowel := false
	for _, r := range word {
		isVowel := strings.ContainsRune(vowels, r)
		if isVowel && !prevWasVowel {
			count++
		}
		prevWasVowel = isVowel
	}

	if strings.HasSuffix(word, "e") && count > 1 {
		count--
	}
	if count == 0 {
		count = 1
	}
	return count
}

// clauseMarkers are coordinating and subordinating conjunctions. When the
// tagger supplies no verb count, clause density is approximated by counting
// these instead; the proxy undercounts simple clauses but tracks the same
// ordering across texts.
var clauseMarkers = map[string]bool{
	"and": true, "but": true, "or": true, "nor": true, "so": true, "yet": true,
	"because": true, "although": true, "though": true, "while": true,
	"since": true, "unless": true, "whereas": true, "if": true, "when": true,
	"after": true, "before": true, "until": true, "that": true, "which": true,
	"who": true, "whom": true, "whose": true,
}

// TextStats are the raw counts behind a feature vector that the verdict
// composer also needs for display metrics.
type TextStats struct {
	WordCount        int
	SentenceCount    int
	SyllableCount    int
	ComplexWordCount int
	UniqueWords      int
	DifficultWords   []string
}

// ExtractFeatures converts a text sample into the fixed feature vector.
// It is pure and total: empty or wordless input yields a zeroed vector
// with InsufficientData set instead of an error, so downstream consumers
// always receive a well-formed vector. Length policy is enforced by the
// analyze operations, not here.
func (e *Engine) ExtractFeatures(text string, tok *models.Tokenization) (models.FeatureVector, TextStats) {
	var t models.Tokenization
	if tok != nil {
		t = *tok
	} else {
		t = Tokenize(text)
	}

	stats := TextStats{
		WordCount:     len(t.Words),
		SentenceCount: len(t.Sentences),
	}

	var vector models.FeatureVector
	if stats.WordCount == 0 || stats.SentenceCount == 0 {
		vector.InsufficientData = true
		return vector, stats
	}

	unique := make(map[string]bool, stats.WordCount)
	clauseProxy := 0
	advancedCount := 0
	for _, w := range t.Words {
		norm := strings.ToLower(w)
		unique[norm] = true
		if clauseMarkers[norm] {
			clauseProxy++
		}
		if band, ok := e.lexicon[norm]; ok && band.Advanced() {
			advancedCount++
		}
		if len(w) > difficultWordLength {
			stats.DifficultWords = append(stats.DifficultWords, w)
		}
		syl := countSyllablesInWord(w)
		stats.SyllableCount += syl
		if syl >= fogComplexSyllables {
			stats.ComplexWordCount++
		}
	}
	stats.UniqueWords = len(unique)

	words := float64(stats.WordCount)
	sentences := float64(stats.SentenceCount)

	verbCount := clauseProxy
	if t.HasVerbCount {
		verbCount = t.VerbCount
	}

	vector.TTR = float64(stats.UniqueWords) / words
	vector.AvgSentenceLength = words / sentences
	vector.DifficultWordRatio = float64(len(stats.DifficultWords)) / words
	vector.ClauseDensity = float64(verbCount) / sentences
	vector.AdvancedRatio = float64(advancedCount) / words

	avgSyllables := float64(stats.SyllableCount) / words
	vector.FleschKincaidGrade = math.Max(0,
		fkSentenceWeight*vector.AvgSentenceLength+fkSyllableWeight*avgSyllables-fkBase)
	vector.GunningFog = fogWeight *
		(vector.AvgSentenceLength + 100*float64(stats.ComplexWordCount)/words)

	return vector, stats
}
