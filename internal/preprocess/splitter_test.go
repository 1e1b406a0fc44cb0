package preprocess

import (
	"testing"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSectionSplitter_SplitsOnBlankLines(t *testing.T) {
	s := NewSectionSplitter(DefaultKeywordLibrary())
	text := "The first paragraph is long enough to survive the length cut.\n\n" +
		"Too short.\n  \n" +
		"The second surviving paragraph also has more than fifty characters."

	sections := s.Split(text)

	require.Len(t, sections, 2)
	assert.Equal(t, "Section 1", sections[0].Section)
	assert.Equal(t, "Section 2", sections[1].Section)
	assert.Equal(t, "The first paragraph is long enough to survive the length cut.", sections[0].Text)
	assert.Equal(t, 11, sections[0].WordCount)
}

func TestSectionSplitter_DropsShortParagraphs(t *testing.T) {
	s := NewSectionSplitter(nil)
	assert.Empty(t, s.Split("short one\n\nanother short one"))
	assert.Empty(t, s.Split(""))
}

func TestScorePriority(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
	}{
		{"baseline", "plain prose", 0.5},
		{"definition", "the definition of a set", 0.8},
		{"is defined as", "a set is defined as a collection", 0.8},
		{"example", "an example follows", 0.7},
		{"important", "this is IMPORTANT", 0.7},
		{"key concept", "a key concept here", 0.8},
		{"note", "Note: remember this", 0.7},
		{"overlapping bonuses", "definition with an example", 1.0},
		{"clamped", "definition, example, important, key concept, note:", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, scorePriority(tt.text), 1e-9)
		})
	}
}

func TestSectionSplitter_SplitIsSubjectAgnostic(t *testing.T) {
	s := NewSectionSplitter(DefaultKeywordLibrary())
	text := "A recursion calls itself with a smaller input until the base case."

	agnostic := s.Split(text)
	scored := s.SplitForSubject(text, domain.SubjectProgramming)

	require.Len(t, agnostic, 1)
	require.Len(t, scored, 1)
	assert.Equal(t, 0.0, agnostic[0].RelevanceScore)
	assert.InDelta(t, 0.1, scored[0].RelevanceScore, 1e-9)
	assert.Equal(t, agnostic[0].Priority, scored[0].Priority)
}
