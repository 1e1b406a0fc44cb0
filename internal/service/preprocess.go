package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/preprocess"
	"github.com/cloo-solutions/cardsmith/internal/telemetry"
)

// PreprocessService runs the preprocessing pipeline synchronously. It keeps
// no state between calls.
type PreprocessService struct {
	pipeline *preprocess.Pipeline
}

func NewPreprocessService(pipeline *preprocess.Pipeline) *PreprocessService {
	return &PreprocessService{pipeline: pipeline}
}

type PreprocessInput struct {
	Text    string
	Subject domain.Subject
}

type BatchesInput struct {
	Chunks       []domain.ContentChunk
	MaxBatchSize int
}

// EstimateInput prices either pre-built chunks or raw text. Chunks win when
// both are set. An empty Provider selects the pipeline's provider.
type EstimateInput struct {
	Chunks   []domain.ContentChunk
	Text     string
	Provider string
}

type EstimateOutput struct {
	Provider      string  `json:"provider"`
	TotalTokens   int     `json:"total_tokens"`
	EstimatedCost float64 `json:"estimated_cost"`
}

// Preprocess filters, chunks and estimates input.Text. Input without
// relevant content yields an empty, valid result.
func (s *PreprocessService) Preprocess(ctx context.Context, input PreprocessInput) (*domain.PreprocessingResult, error) {
	_, span := telemetry.StartSpan(ctx, "PreprocessService.Preprocess", telemetry.SpanAttributes{
		Subject:   string(input.Subject),
		Operation: "preprocess",
	})
	defer span.End()

	subject := input.Subject
	if !domain.IsValidSubject(subject) {
		subject = domain.SubjectGeneral
	}

	result := s.pipeline.Preprocess(input.Text, subject)
	if err := domain.ValidatePreprocessingResult(result); err != nil {
		span.SetError(err)
		return nil, fmt.Errorf("pipeline produced an invalid result: %w", err)
	}

	span.SetData("chunks", len(result.Chunks))
	span.SetData("total_tokens", result.TotalTokens)
	return result, nil
}

// Batches packs already ordered chunks into provider-ready batches. A
// non-positive MaxBatchSize selects the configured batch size.
func (s *PreprocessService) Batches(ctx context.Context, input BatchesInput) ([]domain.Batch, error) {
	_, span := telemetry.StartSpan(ctx, "PreprocessService.Batches", telemetry.SpanAttributes{
		Operation: "batches",
	})
	defer span.End()

	for i, c := range input.Chunks {
		if err := domain.ValidateContentChunk(c); err != nil {
			return nil, fmt.Errorf("chunk %d: %w", i, err)
		}
	}

	if input.MaxBatchSize > 0 {
		return s.pipeline.BatchesWithSize(input.Chunks, input.MaxBatchSize), nil
	}
	return s.pipeline.Batches(input.Chunks), nil
}

// Estimate returns the token count and provider cost of the input.
func (s *PreprocessService) Estimate(ctx context.Context, input EstimateInput) (*EstimateOutput, error) {
	_, span := telemetry.StartSpan(ctx, "PreprocessService.Estimate", telemetry.SpanAttributes{
		Operation: "estimate",
	})
	defer span.End()

	provider := strings.ToLower(strings.TrimSpace(input.Provider))
	if provider == "" {
		provider = s.pipeline.Config().Provider
	}

	tokens := preprocess.EstimateTokens(input.Text)
	if len(input.Chunks) > 0 {
		tokens = preprocess.TotalTokens(input.Chunks)
	}

	cost, err := s.pipeline.Estimator().CostForTokens(tokens, provider)
	if err != nil {
		return nil, err
	}

	return &EstimateOutput{
		Provider:      provider,
		TotalTokens:   tokens,
		EstimatedCost: cost,
	}, nil
}
