package preprocess

import (
	"fmt"

	"github.com/cloo-solutions/cardsmith/internal/domain"
)

// Config controls chunk sizing, batching and cost estimation.
type Config struct {
	MaxChunkSize       int
	MaxBatchSize       int
	MaxBatchTokens     int
	Provider           string
	PreserveParagraphs bool
}

// DefaultConfig provides the standard pipeline settings.
func DefaultConfig() Config {
	return Config{
		MaxChunkSize:   DefaultMaxChunkSize,
		MaxBatchSize:   DefaultMaxBatchSize,
		MaxBatchTokens: MaxBatchTokens,
		Provider:       DefaultProvider,
	}
}

// Pipeline runs filter, chunk and estimate over one document at a time. It
// holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	cfg       Config
	filter    *RelevanceFilter
	chunker   *Chunker
	estimator *Estimator
	packer    *Packer
}

// NewPipeline wires a pipeline over library. It fails when cfg names a
// provider missing from costs, so Preprocess itself never has to.
func NewPipeline(cfg Config, library *KeywordLibrary, costs CostTable) (*Pipeline, error) {
	defaults := DefaultConfig()
	if cfg.MaxChunkSize <= 0 {
		cfg.MaxChunkSize = defaults.MaxChunkSize
	}
	if cfg.Provider == "" {
		cfg.Provider = defaults.Provider
	}
	if library == nil {
		library = DefaultKeywordLibrary()
	}

	estimator := NewEstimator(costs)
	if _, err := estimator.costs.CostPer1K(cfg.Provider); err != nil {
		return nil, fmt.Errorf("invalid pipeline provider: %w", err)
	}

	packer := NewPacker(cfg.MaxBatchSize, cfg.MaxBatchTokens)
	cfg.MaxBatchSize = packer.MaxBatchSize
	cfg.MaxBatchTokens = packer.MaxBatchTokens

	return &Pipeline{
		cfg:       cfg,
		filter:    NewRelevanceFilter(library, cfg.PreserveParagraphs),
		chunker:   NewChunker(NewSectionSplitter(library)),
		estimator: estimator,
		packer:    packer,
	}, nil
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Estimator returns the pipeline's estimator.
func (p *Pipeline) Estimator() *Estimator {
	return p.estimator
}

// Preprocess filters text for subject, chunks it and totals the estimates.
// Empty or irrelevant input yields an empty result, not an error.
func (p *Pipeline) Preprocess(text string, subject domain.Subject) *domain.PreprocessingResult {
	filtered := p.filter.Filter(text, subject)
	chunks := p.chunker.ChunkForSubject(filtered, subject, p.cfg.MaxChunkSize)
	tokens := TotalTokens(chunks)

	// NewPipeline rejects unknown providers, so pricing cannot fail here.
	cost, _ := p.estimator.EstimateProcessingCost(chunks, p.cfg.Provider)

	return &domain.PreprocessingResult{
		Chunks:          chunks,
		TotalTokens:     tokens,
		EstimatedCost:   cost,
		Provider:        p.cfg.Provider,
		FilteredContent: filtered,
	}
}

// Batches packs chunks with the pipeline's batch limits.
func (p *Pipeline) Batches(chunks []domain.ContentChunk) []domain.Batch {
	return p.packer.Batches(chunks)
}

// BatchesWithSize packs chunks with an explicit per-batch chunk limit.
func (p *Pipeline) BatchesWithSize(chunks []domain.ContentChunk, maxBatchSize int) []domain.Batch {
	return NewPacker(maxBatchSize, p.cfg.MaxBatchTokens).Batches(chunks)
}
