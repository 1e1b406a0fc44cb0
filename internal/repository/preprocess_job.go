package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const preprocessJobColumns = `id, document_id, status, retries, error, created_at, processed_at`

type PreprocessJobRepository struct {
	db dbtx
}

func NewPreprocessJobRepository(pool *pgxpool.Pool) *PreprocessJobRepository {
	return &PreprocessJobRepository{db: pool}
}

func NewPreprocessJobRepositoryWithTx(tx pgx.Tx) *PreprocessJobRepository {
	return &PreprocessJobRepository{db: tx}
}

func (r *PreprocessJobRepository) Create(ctx context.Context, job *domain.PreprocessJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO preprocess_jobs (id, document_id, status, retries, error, created_at, processed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		job.ID, job.DocumentID, job.Status, job.Retries, nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *PreprocessJobRepository) GetByID(ctx context.Context, id string) (*domain.PreprocessJob, error) {
	job, err := scanPreprocessJob(r.db.QueryRow(ctx,
		`SELECT `+preprocessJobColumns+` FROM preprocess_jobs WHERE id = $1`,
		id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// GetLatestByDocumentID returns the most recently created job for a document.
func (r *PreprocessJobRepository) GetLatestByDocumentID(ctx context.Context, documentID string) (*domain.PreprocessJob, error) {
	job, err := scanPreprocessJob(r.db.QueryRow(ctx,
		`SELECT `+preprocessJobColumns+` FROM preprocess_jobs
		 WHERE document_id = $1
		 ORDER BY created_at DESC
		 LIMIT 1`,
		documentID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, err
	}
	return job, nil
}

// ClaimPending marks up to limit pending jobs as processing and returns them.
// Concurrent workers never claim the same job.
func (r *PreprocessJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.PreprocessJob, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM preprocess_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE preprocess_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE preprocess_jobs.id = cte.id
		 RETURNING preprocess_jobs.id, preprocess_jobs.document_id, preprocess_jobs.status,
		           preprocess_jobs.retries, preprocess_jobs.error, preprocess_jobs.created_at, preprocess_jobs.processed_at`,
		domain.JobStatusPending, limit, domain.JobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*domain.PreprocessJob
	for rows.Next() {
		job, err := scanPreprocessJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func (r *PreprocessJobRepository) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.JobStatusCompleted || status == domain.JobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE preprocess_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func (r *PreprocessJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE preprocess_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func scanPreprocessJob(row pgx.Row) (*domain.PreprocessJob, error) {
	var job domain.PreprocessJob
	var errMsg pgtype.Text
	if err := row.Scan(&job.ID, &job.DocumentID, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
		return nil, err
	}
	job.Error = errMsg.String
	return &job, nil
}
