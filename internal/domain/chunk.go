package domain

import (
	"fmt"
	"strings"
)

// ContentChunk is a unit of source text ready for one generation sub-request.
type ContentChunk struct {
	Text           string  `json:"text"`
	Priority       float64 `json:"priority"`
	Section        string  `json:"section"`
	WordCount      int     `json:"word_count"`
	RelevanceScore float64 `json:"relevance_score"`
}

// NewContentChunk creates a ContentChunk and derives its word count from text.
func NewContentChunk(text, section string, priority, relevance float64) ContentChunk {
	return ContentChunk{
		Text:           text,
		Priority:       priority,
		Section:        section,
		WordCount:      CountWords(text),
		RelevanceScore: relevance,
	}
}

// WithText returns a copy of c carrying text, with the word count recomputed.
func (c ContentChunk) WithText(text string) ContentChunk {
	c.Text = text
	c.WordCount = CountWords(text)
	return c
}

// CountWords returns the number of whitespace separated tokens in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// PreprocessingResult is the pipeline output for one document and subject.
type PreprocessingResult struct {
	Chunks          []ContentChunk `json:"chunks"`
	TotalTokens     int            `json:"total_tokens"`
	EstimatedCost   float64        `json:"estimated_cost"`
	Provider        string         `json:"provider"`
	FilteredContent string         `json:"filtered_content"`
}

// Batch is a group of chunks submitted together as one generation request.
type Batch struct {
	Index  int            `json:"index"`
	Chunks []ContentChunk `json:"chunks"`
	Tokens int            `json:"tokens"`
}

// ValidateContentChunk validates a ContentChunk instance
func ValidateContentChunk(c ContentChunk) error {
	if strings.TrimSpace(c.Text) == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidChunk.Message, fmt.Errorf("text is required"))
	}

	if c.Priority < 0 || c.Priority > 1 {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidChunk.Message, fmt.Errorf("priority %v out of range [0,1]", c.Priority))
	}

	if c.RelevanceScore < 0 || c.RelevanceScore > 1 {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidChunk.Message, fmt.Errorf("relevance score %v out of range [0,1]", c.RelevanceScore))
	}

	if c.Section == "" {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidChunk.Message, fmt.Errorf("section label is required"))
	}

	if c.WordCount != CountWords(c.Text) {
		return NewDomainErrorWithCause(ErrCodeValidation, ErrInvalidChunk.Message, fmt.Errorf("word count %d does not match text", c.WordCount))
	}

	return nil
}

// ValidatePreprocessingResult validates every chunk and the aggregate totals.
func ValidatePreprocessingResult(r *PreprocessingResult) error {
	if r == nil {
		return fmt.Errorf("preprocessing result cannot be nil")
	}

	for i, c := range r.Chunks {
		if err := ValidateContentChunk(c); err != nil {
			return fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	if r.TotalTokens < 0 {
		return fmt.Errorf("preprocessing result TotalTokens cannot be negative")
	}

	if r.EstimatedCost < 0 {
		return fmt.Errorf("preprocessing result EstimatedCost cannot be negative")
	}

	if len(r.Chunks) == 0 && (r.TotalTokens != 0 || r.EstimatedCost != 0) {
		return fmt.Errorf("preprocessing result without chunks must have zero totals")
	}

	return nil
}
