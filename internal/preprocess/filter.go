package preprocess

import (
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/cardsmith/internal/domain"
)

// MinLineLength is the trimmed length below which a line is treated as noise.
const MinLineLength = 15

// RelevanceFilter strips noise lines and keeps lines that look like study
// material for the requested subject.
type RelevanceFilter struct {
	library            *KeywordLibrary
	preserveParagraphs bool
}

// NewRelevanceFilter creates a filter over library. With preserveParagraphs
// set, a blank line is emitted where a paragraph break separated kept lines.
func NewRelevanceFilter(library *KeywordLibrary, preserveParagraphs bool) *RelevanceFilter {
	if library == nil {
		library = DefaultKeywordLibrary()
	}
	return &RelevanceFilter{library: library, preserveParagraphs: preserveParagraphs}
}

// Filter returns the surviving lines of text joined by newlines, in their
// original order. It never fails; unknown subjects use the general set.
func (f *RelevanceFilter) Filter(text string, subject domain.Subject) string {
	keywords := f.library.Keywords(subject)
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")

	kept := make([]string, 0, len(lines))
	pendingBreak := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			pendingBreak = len(kept) > 0
			continue
		}
		if isNoise(trimmed) || !f.isRelevant(trimmed, keywords) {
			continue
		}
		if f.preserveParagraphs && pendingBreak {
			kept = append(kept, "")
		}
		pendingBreak = false
		kept = append(kept, line)
	}

	return strings.Join(kept, "\n")
}

func isNoise(trimmed string) bool {
	if utf8.RuneCountInString(trimmed) < MinLineLength {
		return true
	}
	return pageNumberPattern.MatchString(trimmed) || headerFooterPattern.MatchString(trimmed)
}

func (f *RelevanceFilter) isRelevant(line string, keywords []string) bool {
	if containsKeyword(strings.ToLower(line), keywords) {
		return true
	}
	return definitionPattern.MatchString(line) || examplePattern.MatchString(line)
}
