package preprocess

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/cloo-solutions/cardsmith/internal/domain"
)

// MinSectionLength is the trimmed length below which a paragraph is dropped.
const MinSectionLength = 50

var paragraphBreak = regexp.MustCompile(`\n[ \t\r\f\v]*\n`)

// priorityBonuses are additive; a paragraph may collect several. A bonus is
// granted once when any of its markers is present.
var priorityBonuses = []struct {
	markers []string
	bonus   float64
}{
	{[]string{"definition", "is defined as"}, 0.3},
	{[]string{"example"}, 0.2},
	{[]string{"important"}, 0.2},
	{[]string{"key concept"}, 0.3},
	{[]string{"note:"}, 0.2},
}

// SectionSplitter splits filtered text into scored paragraph sections.
type SectionSplitter struct {
	library *KeywordLibrary
}

// NewSectionSplitter creates a splitter that scores relevance against library.
func NewSectionSplitter(library *KeywordLibrary) *SectionSplitter {
	if library == nil {
		library = DefaultKeywordLibrary()
	}
	return &SectionSplitter{library: library}
}

// Split scores sections without any subject keywords, so relevance only
// reflects educational markers.
func (s *SectionSplitter) Split(text string) []domain.ContentChunk {
	return s.split(text, nil)
}

// SplitForSubject scores section relevance against the subject's keywords.
func (s *SectionSplitter) SplitForSubject(text string, subject domain.Subject) []domain.ContentChunk {
	return s.split(text, s.library.Keywords(subject))
}

func (s *SectionSplitter) split(text string, keywords []string) []domain.ContentChunk {
	paragraphs := paragraphBreak.Split(text, -1)

	sections := make([]domain.ContentChunk, 0, len(paragraphs))
	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if utf8.RuneCountInString(p) < MinSectionLength {
			continue
		}
		label := fmt.Sprintf("Section %d", len(sections)+1)
		sections = append(sections, domain.NewContentChunk(p, label, scorePriority(p), relevanceScore(p, keywords)))
	}
	return sections
}

// scorePriority starts at 0.5 and adds a bonus per testable-material marker.
func scorePriority(text string) float64 {
	lowered := strings.ToLower(text)
	score := 0.5
	for _, b := range priorityBonuses {
		if containsKeyword(lowered, b.markers) {
			score += b.bonus
		}
	}
	return clamp(score)
}
