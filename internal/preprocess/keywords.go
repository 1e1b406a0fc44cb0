// Package preprocess turns extracted document text into prioritized,
// size-bounded chunks and provider-ready batches for flashcard generation.
package preprocess

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"gopkg.in/yaml.v3"
)

var (
	pageNumberPattern   = regexp.MustCompile(`^\s*\d+\s*$`)
	headerFooterPattern = regexp.MustCompile(`(?i)^\s*(page\b|chapter\b|\d+\s+of\s+\d+|©|\(c\)|copyright\b)`)
	definitionPattern   = regexp.MustCompile(`(?i)(:|\bdefinition\b|\bis defined as\b|\bmeans\b)`)
	examplePattern      = regexp.MustCompile(`(?i)(\bexample\b|\bfor instance\b|\bsuch as\b|\be\.g)`)
	emphasisPattern     = regexp.MustCompile(`(?i)(\bimportant\b|\bkey concept\b|\bnote:)`)
)

var defaultKeywords = map[domain.Subject][]string{
	domain.SubjectProgramming: {
		"function", "variable", "class", "method", "algorithm", "loop", "array",
		"object", "syntax", "compile", "runtime", "interface", "recursion", "pointer",
	},
	domain.SubjectMathematics: {
		"theorem", "proof", "equation", "formula", "function", "derivative", "integral",
		"matrix", "vector", "lemma", "axiom", "probability", "limit",
	},
	domain.SubjectScience: {
		"hypothesis", "experiment", "theory", "cell", "energy", "molecule", "atom",
		"reaction", "force", "evolution", "organism", "element",
	},
	domain.SubjectHistory: {
		"war", "empire", "revolution", "treaty", "century", "dynasty", "civilization",
		"reform", "colony", "battle", "king", "government",
	},
	domain.SubjectLiterature: {
		"character", "theme", "metaphor", "narrative", "plot", "poem", "author",
		"novel", "symbolism", "grammar", "verb", "noun", "tense",
	},
	domain.SubjectBusiness: {
		"market", "revenue", "profit", "strategy", "management", "customer", "finance",
		"investment", "marketing", "budget", "stakeholder", "competitive",
	},
	domain.SubjectMedicine: {
		"diagnosis", "symptom", "treatment", "disease", "patient", "clinical", "anatomy",
		"dose", "therapy", "syndrome", "pathology", "infection",
	},
	domain.SubjectLaw: {
		"statute", "court", "plaintiff", "defendant", "contract", "liability", "jurisdiction",
		"tort", "precedent", "constitution", "rights", "evidence",
	},
	domain.SubjectGeneral: {
		"concept", "theory", "principle", "method", "process", "analysis", "important", "key",
	},
}

// KeywordLibrary holds per-subject keyword sets. It is read-only once built
// and safe for concurrent use.
type KeywordLibrary struct {
	sets map[domain.Subject][]string
}

// DefaultKeywordLibrary returns the built-in keyword sets. The language
// subject shares the literature set.
func DefaultKeywordLibrary() *KeywordLibrary {
	sets := make(map[domain.Subject][]string, len(defaultKeywords)+1)
	for subject, keywords := range defaultKeywords {
		sets[subject] = keywords
	}
	sets[domain.SubjectLanguage] = defaultKeywords[domain.SubjectLiterature]
	return NewKeywordLibrary(sets)
}

// NewKeywordLibrary builds a library from sets. Keywords are lowercased,
// trimmed and de-duplicated. A missing general set falls back to the
// built-in one so lookups always have a target.
func NewKeywordLibrary(sets map[domain.Subject][]string) *KeywordLibrary {
	lib := &KeywordLibrary{sets: make(map[domain.Subject][]string, len(sets)+1)}
	for subject, keywords := range sets {
		lib.sets[subject] = normalizeKeywords(keywords)
	}
	if _, ok := lib.sets[domain.SubjectGeneral]; !ok {
		lib.sets[domain.SubjectGeneral] = normalizeKeywords(defaultKeywords[domain.SubjectGeneral])
	}
	return lib
}

// LoadKeywordLibrary reads a YAML mapping of subject to keyword list and
// merges it over the defaults. Unknown subjects are rejected.
func LoadKeywordLibrary(path string) (*KeywordLibrary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}
	return ParseKeywordLibrary(data)
}

// ParseKeywordLibrary parses YAML keyword overrides and merges them over the
// defaults.
func ParseKeywordLibrary(data []byte) (*KeywordLibrary, error) {
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse keywords file: %w", err)
	}

	sets := DefaultKeywordLibrary().sets
	merged := make(map[domain.Subject][]string, len(sets))
	for subject, keywords := range sets {
		merged[subject] = keywords
	}
	for name, keywords := range raw {
		subject := domain.Subject(strings.ToLower(strings.TrimSpace(name)))
		if !domain.IsValidSubject(subject) {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeConfiguration, "unknown subject in keywords file", fmt.Errorf("%q", name))
		}
		merged[subject] = keywords
	}
	return NewKeywordLibrary(merged), nil
}

// Keywords returns the keyword set for subject, falling back to the general
// set for subjects without one. The returned slice must not be modified.
func (l *KeywordLibrary) Keywords(subject domain.Subject) []string {
	if keywords, ok := l.sets[subject]; ok {
		return keywords
	}
	return l.sets[domain.SubjectGeneral]
}

// MarshalYAML renders the library as a subject to keywords mapping.
func (l *KeywordLibrary) MarshalYAML() (interface{}, error) {
	out := make(map[string][]string, len(l.sets))
	for subject, keywords := range l.sets {
		out[string(subject)] = keywords
	}
	return out, nil
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// containsKeyword reports whether lowered contains any keyword.
func containsKeyword(lowered string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

// relevanceScore measures keyword density plus educational marker bonuses,
// capped at 1.0. Each distinct keyword present adds 0.1.
func relevanceScore(text string, keywords []string) float64 {
	lowered := strings.ToLower(text)
	score := 0.0
	for _, k := range keywords {
		if strings.Contains(lowered, k) {
			score += 0.1
		}
	}
	if definitionPattern.MatchString(text) {
		score += 0.2
	}
	if examplePattern.MatchString(text) {
		score += 0.1
	}
	if emphasisPattern.MatchString(text) {
		score += 0.1
	}
	return clamp(score)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
