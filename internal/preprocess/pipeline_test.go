package preprocess

import (
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPipeline(t *testing.T, cfg Config) *Pipeline {
	t.Helper()
	p, err := NewPipeline(cfg, nil, nil)
	require.NoError(t, err)
	return p
}

func TestPipeline_DefinitionWithExample(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	sentence := "A variable is defined as a named storage location. For example, let x = 5."

	result := p.Preprocess("Page 3\n\n"+sentence, domain.SubjectProgramming)

	require.Len(t, result.Chunks, 1)
	chunk := result.Chunks[0]
	assert.Equal(t, sentence, chunk.Text)
	assert.Equal(t, "Section 1", chunk.Section)
	assert.InDelta(t, 1.0, chunk.Priority, 1e-9)
	assert.InDelta(t, 0.4, chunk.RelevanceScore, 1e-9)
	assert.Equal(t, sentence, result.FilteredContent)
	assert.Equal(t, EstimateTokens(sentence), result.TotalTokens)
	assert.InDelta(t, float64(result.TotalTokens)/1000*0.002, result.EstimatedCost, 1e-12)
	assert.Equal(t, ProviderStandard, result.Provider)
	assert.NoError(t, domain.ValidatePreprocessingResult(result))
}

func TestPipeline_EmptyInput(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())

	result := p.Preprocess("", domain.SubjectGeneral)

	assert.NotNil(t, result.Chunks)
	assert.Empty(t, result.Chunks)
	assert.Equal(t, 0, result.TotalTokens)
	assert.Equal(t, 0.0, result.EstimatedCost)
	assert.NoError(t, domain.ValidatePreprocessingResult(result))
}

func TestPipeline_IrrelevantInput(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())

	result := p.Preprocess("The weather was pleasant all afternoon long\nWe walked along the river bank", domain.SubjectProgramming)

	assert.Empty(t, result.Chunks)
	assert.Empty(t, result.FilteredContent)
	assert.Equal(t, 0, result.TotalTokens)
}

func TestPipeline_LongDocumentIsBounded(t *testing.T) {
	p := newTestPipeline(t, Config{MaxChunkSize: 500})
	var lines []string
	for i := 0; i < 80; i++ {
		lines = append(lines, "Each function call pushes a frame onto the stack.")
	}

	result := p.Preprocess(strings.Join(lines, "\n"), domain.SubjectProgramming)

	require.Greater(t, len(result.Chunks), 1)
	for _, c := range result.Chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 500)
	}
	assert.Equal(t, TotalTokens(result.Chunks), result.TotalTokens)
	assertSorted(t, result.Chunks)

	batches := p.Batches(result.Chunks)
	seen := 0
	for _, b := range batches {
		assert.LessOrEqual(t, len(b.Chunks), DefaultMaxBatchSize)
		seen += len(b.Chunks)
	}
	assert.Equal(t, len(result.Chunks), seen)
}

func TestPipeline_Idempotent(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	text := "Important: an algorithm is a finite sequence of steps.\nA loop repeats while the condition holds."

	first := p.Preprocess(text, domain.SubjectProgramming)
	second := p.Preprocess(text, domain.SubjectProgramming)

	assert.Equal(t, first, second)
}

func TestPipeline_ConcurrentUse(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	text := "A variable is defined as a named storage location. For example, let x = 5."
	want := p.Preprocess(text, domain.SubjectProgramming)

	var wg sync.WaitGroup
	results := make([]*domain.PreprocessingResult, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = p.Preprocess(text, domain.SubjectProgramming)
		}(i)
	}
	wg.Wait()

	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestNewPipeline_UnknownProvider(t *testing.T) {
	_, err := NewPipeline(Config{Provider: "mystery"}, nil, nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnknownProvider)
}

func TestNewPipeline_FillsDefaults(t *testing.T) {
	p := newTestPipeline(t, Config{})

	assert.Equal(t, DefaultConfig(), p.Config())
}

func TestPipeline_BatchesWithSize(t *testing.T) {
	p := newTestPipeline(t, DefaultConfig())
	chunks := chunksWithTokens(1000, 1000, 1000, 1000, 1000, 1000, 1000)

	batches := p.BatchesWithSize(chunks, 3)

	require.Len(t, batches, 3)
	assert.Len(t, batches[0].Chunks, 3)
	assert.Len(t, batches[1].Chunks, 3)
	assert.Len(t, batches[2].Chunks, 1)
	assert.Equal(t, 3000, batches[0].Tokens)
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func assertChunksFromFiltered(t *testing.T, result *domain.PreprocessingResult) {
	t.Helper()
	filtered := normalizeSpace(result.FilteredContent)
	for _, c := range result.Chunks {
		assert.Contains(t, filtered, normalizeSpace(c.Text))
	}
}

func TestPipeline_ChunksComeFromFilteredContent(t *testing.T) {
	p := newTestPipeline(t, Config{MaxChunkSize: 120})
	text := strings.Join([]string{
		"A function is defined as a reusable block of code. It may return a value! Does a function need parameters? Not always.",
		"Page 2",
		"",
		"For example, a loop repeats statements while a condition holds. An array stores items in order. A map stores key value pairs.",
		"Note: a variable holds a value that the program can change later on.",
		"",
		"Important: recursion means a function calls itself. Each call pushes a new frame onto the stack until the base case returns.",
	}, "\n")

	result := p.Preprocess(text, domain.SubjectProgramming)

	require.Greater(t, len(result.Chunks), 3)
	assertChunksFromFiltered(t, result)
	for _, c := range result.Chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Text), 120)
	}
}

func TestPipeline_InvalidUTF8SurvivesSplitting(t *testing.T) {
	p := newTestPipeline(t, Config{MaxChunkSize: 60})

	result := p.Preprocess("The function \xff returns a value. A loop repeats statements. An array stores items in order.", domain.SubjectProgramming)

	require.Greater(t, len(result.Chunks), 1)
	assertChunksFromFiltered(t, result)
	assert.Contains(t, result.Chunks[0].Text+result.Chunks[1].Text, "\xff")
	for _, c := range result.Chunks {
		assert.NotContains(t, c.Text, "\uFFFD")
	}
}
