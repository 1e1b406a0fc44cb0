package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ResultRepository stores preprocessing output, one row per document.
type ResultRepository struct {
	db dbtx
}

func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: pool}
}

func NewResultRepositoryWithTx(tx pgx.Tx) *ResultRepository {
	return &ResultRepository{db: tx}
}

// Save inserts or replaces the result for res.DocumentID.
func (r *ResultRepository) Save(ctx context.Context, res *domain.DocumentResult) error {
	chunks := res.Result.Chunks
	if chunks == nil {
		chunks = []domain.ContentChunk{}
	}
	batches := res.Batches
	if batches == nil {
		batches = []domain.Batch{}
	}

	chunksJSON, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("failed to encode chunks: %w", err)
	}
	batchesJSON, err := json.Marshal(batches)
	if err != nil {
		return fmt.Errorf("failed to encode batches: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO preprocessing_results (document_id, chunks, batches, total_tokens, estimated_cost, provider, filtered_content, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (document_id) DO UPDATE
		 SET chunks = EXCLUDED.chunks,
		     batches = EXCLUDED.batches,
		     total_tokens = EXCLUDED.total_tokens,
		     estimated_cost = EXCLUDED.estimated_cost,
		     provider = EXCLUDED.provider,
		     filtered_content = EXCLUDED.filtered_content,
		     created_at = EXCLUDED.created_at`,
		res.DocumentID, chunksJSON, batchesJSON, res.Result.TotalTokens,
		decimal.NewFromFloat(res.Result.EstimatedCost).Round(6), res.Result.Provider,
		res.Result.FilteredContent, res.CreatedAt,
	)
	return err
}

func (r *ResultRepository) GetByDocumentID(ctx context.Context, documentID string) (*domain.DocumentResult, error) {
	var res domain.DocumentResult
	var chunksJSON, batchesJSON []byte
	var cost decimal.Decimal
	err := r.db.QueryRow(ctx,
		`SELECT document_id, chunks, batches, total_tokens, estimated_cost::text, provider, filtered_content, created_at
		 FROM preprocessing_results WHERE document_id = $1`,
		documentID,
	).Scan(&res.DocumentID, &chunksJSON, &batchesJSON, &res.Result.TotalTokens, &cost,
		&res.Result.Provider, &res.Result.FilteredContent, &res.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrResultNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(chunksJSON, &res.Result.Chunks); err != nil {
		return nil, fmt.Errorf("failed to decode chunks: %w", err)
	}
	if err := json.Unmarshal(batchesJSON, &res.Batches); err != nil {
		return nil, fmt.Errorf("failed to decode batches: %w", err)
	}
	res.Result.EstimatedCost = cost.InexactFloat64()
	return &res, nil
}
