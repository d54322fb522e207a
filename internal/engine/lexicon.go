package engine

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Band is a CEFR vocabulary band, A1 (lowest) through C2 (highest).
type Band int

const (
	BandA1 Band = iota + 1
	BandA2
	BandB1
	BandB2
	BandC1
	BandC2
)

var bandNames = map[Band]string{
	BandA1: "A1", BandA2: "A2",
	BandB1: "B1", BandB2: "B2",
	BandC1: "C1", BandC2: "C2",
}

func (b Band) String() string {
	if name, ok := bandNames[b]; ok {
		return name
	}
	return "unknown"
}

// Advanced reports whether the band counts toward the advanced (C1/C2) tier.
func (b Band) Advanced() bool { return b >= BandC1 }

// Lexicon maps a normalized (lower-cased) word form to its CEFR band.
// Words absent from the lexicon have no band and are excluded from the
// CEFR distribution.
type Lexicon map[string]Band

// LoadLexicon reads a lexicon override from a TOML file shaped as
//
//	[bands]
//	a1 = ["the", "cat"]
//	c2 = ["ubiquitous"]
//
// A malformed file or an unknown band key is a configuration error: the
// caller should treat it as fatal at startup rather than silently scoring
// with a partial lexicon.
func LoadLexicon(path string) (Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read lexicon file: %w", err)
	}

	var raw struct {
		Bands map[string][]string `toml:"bands"`
	}
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse lexicon file: %w", err)
	}
	if len(raw.Bands) == 0 {
		return nil, fmt.Errorf("lexicon file %s defines no bands", path)
	}

	byName := map[string]Band{
		"a1": BandA1, "a2": BandA2,
		"b1": BandB1, "b2": BandB2,
		"c1": BandC1, "c2": BandC2,
	}

	lex := make(Lexicon)
	for name, words := range raw.Bands {
		band, ok := byName[strings.ToLower(name)]
		if !ok {
			return nil, fmt.Errorf("unknown CEFR band %q in %s", name, path)
		}
		for _, w := range words {
			norm := strings.ToLower(strings.TrimSpace(w))
			if norm == "" {
				return nil, fmt.Errorf("empty word in band %q of %s", name, path)
			}
			if prev, dup := lex[norm]; dup && prev != band {
				return nil, fmt.Errorf("word %q assigned to both %s and %s in %s", norm, prev, band, path)
			}
			lex[norm] = band
		}
	}

	return lex, nil
}

// DefaultLexicon returns the built-in English CEFR lexicon. It is a
// compact sample of the published CEFR-J / EVP word lists, enough for
// banding everyday student writing; deployments needing full coverage
// supply an override file.
func DefaultLexicon() Lexicon {
	byBand := map[Band][]string{
		BandA1: {
			"a", "about", "and", "answer", "apple", "ask", "bad", "be", "big",
			"book", "boy", "but", "can", "cat", "come", "day", "do", "dog",
			"eat", "family", "father", "food", "friend", "girl", "go", "good",
			"happy", "have", "he", "help", "here", "home", "house", "i", "in",
			"is", "it", "like", "live", "look", "make", "man", "mother", "my",
			"name", "new", "no", "not", "of", "old", "on", "people", "play",
			"read", "run", "say", "school", "see", "she", "small", "student",
			"teacher", "the", "they", "this", "time", "to", "want", "water",
			"we", "what", "when", "where", "who", "with", "work", "write",
			"year", "yes", "you",
		},
		BandA2: {
			"activity", "afraid", "agree", "air", "almost", "already", "animal",
			"arrive", "become", "begin", "believe", "build", "busy", "careful",
			"carry", "change", "city", "clean", "climb", "cloud", "country",
			"decide", "different", "difficult", "dream", "early", "earth",
			"easy", "enjoy", "enough", "example", "fast", "feel", "finish",
			"forest", "grow", "happen", "hard", "idea", "important", "island",
			"join", "keep", "kind", "know", "learn", "letter", "life", "lose",
			"mean", "message", "move", "nature", "need", "often", "plan",
			"problem", "quick", "quiet", "reason", "remember", "river", "sea",
			"send", "slow", "special", "start", "story", "strong", "study",
			"travel", "tree", "understand", "use", "visit", "weather", "wild",
			"wind", "world", "young",
		},
		BandB1: {
			"achieve", "advantage", "advice", "affect", "ancient", "argument",
			"atmosphere", "attitude", "average", "aware", "behavior", "benefit",
			"century", "challenge", "character", "communicate", "community",
			"compare", "condition", "connect", "create", "culture", "curious",
			"describe", "develop", "discover", "discuss", "effect", "effort",
			"encourage", "environment", "experience", "explain", "explore",
			"express", "giant", "government", "identify", "imagine", "improve",
			"increase", "influence", "involve", "knowledge", "language",
			"local", "measure", "medicine", "memory", "mention", "natural",
			"network", "observe", "opinion", "opportunity", "organize",
			"particular", "patient", "perform", "population", "prefer",
			"prepare", "process", "produce", "protect", "provide", "purpose",
			"realize", "recognize", "reduce", "relationship", "research",
			"resource", "respond", "result", "scientist", "share", "similar",
			"situation", "society", "solution", "source", "succeed", "suggest",
			"support", "survive", "system", "threat", "value", "various",
		},
		BandB2: {
			"abandon", "abstract", "academic", "access", "accurate", "adapt",
			"adequate", "analyze", "analysis", "approach", "appropriate",
			"aspect", "assess", "assume", "attribute", "capacity", "complex",
			"concept", "conclude", "consequence", "considerable", "consist",
			"constant", "construct", "consume", "context", "contribute",
			"crucial", "data", "debate", "decline", "demonstrate", "derive",
			"distinct", "diverse", "domain", "dominant", "emerge", "emphasis",
			"enable", "establish", "estimate", "evaluate", "evidence",
			"evolve", "expand", "factor", "feature", "framework", "function",
			"fundamental", "generate", "hypothesis", "impact", "imply",
			"indicate", "individual", "initial", "insight", "interact",
			"interpret", "investigate", "justify", "maintain", "majority",
			"method", "obtain", "occur", "perceive", "perspective",
			"phenomenon", "potential", "precise", "previous", "primary",
			"principle", "priority", "range", "relevant", "rely", "require",
			"reveal", "shift", "significant", "specific", "strategy",
			"structure", "sufficient", "sustain", "theory", "transform",
			"trend", "undergo", "vary",
		},
		BandC1: {
			"aggregate", "albeit", "ambiguous", "analogous", "anomaly",
			"arbitrary", "cohesion", "coincide", "commence", "compelling",
			"comprehensive", "comprise", "confound", "conjecture",
			"connotation", "consolidate", "constitute", "contemplate",
			"contingent", "converge", "correlate", "criterion", "cumulative",
			"deduce", "delineate", "discern", "discourse", "discrepancy",
			"disparate", "divergent", "elicit", "elucidate", "empirical",
			"encompass", "entail", "exacerbate", "exemplify", "explicit",
			"facilitate", "feasible", "hierarchy", "implication", "implicit",
			"inevitable", "infer", "inherent", "integral", "intrinsic",
			"longevity", "manifest", "mitigate", "nuance", "paradigm",
			"pertinent", "plausible", "preliminary", "presumably", "profound",
			"proponent", "ramification", "rationale", "reciprocal",
			"rigorous", "salient", "scrutiny", "subsequent", "substantiate",
			"synthesis", "tangible", "transcend", "underlying", "unprecedented",
			"viable", "warrant",
		},
		BandC2: {
			"abrogate", "acquiesce", "anachronism", "antithesis", "apocryphal",
			"assiduous", "capricious", "circumlocution", "conflate",
			"deleterious", "demagogue", "desultory", "dialectic", "didactic",
			"ebullient", "efficacious", "egregious", "ephemeral", "equanimity",
			"equivocal", "esoteric", "exigent", "expediency", "fastidious",
			"hegemony", "iconoclast", "idiosyncratic", "inchoate", "inexorable",
			"insidious", "intractable", "intransigent", "inveterate",
			"juxtaposition", "laconic", "magnanimous", "mellifluous",
			"mercurial", "obfuscate", "obsequious", "ostensible", "panacea",
			"paucity", "pejorative", "perfunctory", "pernicious", "perspicacious",
			"precipitous", "proclivity", "promulgate", "quintessential",
			"recalcitrant", "sagacious", "sanguine", "solipsism", "sycophant",
			"tautology", "trenchant", "ubiquitous", "vacillate", "verisimilitude",
			"vicissitude",
		},
	}

	lex := make(Lexicon)
	for band, words := range byBand {
		for _, w := range words {
			lex[w] = band
		}
	}
	return lex
}
