package preprocess

import "github.com/cloo-solutions/cardsmith/internal/domain"

const (
	// DefaultMaxBatchSize is the default number of chunks per batch.
	DefaultMaxBatchSize = 3
	// MaxBatchTokens is the token ceiling for a single batch.
	MaxBatchTokens = 6000
)

// Packer groups ordered chunks into batches bounded by count and tokens.
type Packer struct {
	MaxBatchSize   int
	MaxBatchTokens int
}

// NewPacker creates a Packer, substituting defaults for non-positive limits.
func NewPacker(maxBatchSize, maxBatchTokens int) *Packer {
	if maxBatchSize <= 0 {
		maxBatchSize = DefaultMaxBatchSize
	}
	if maxBatchTokens <= 0 {
		maxBatchTokens = MaxBatchTokens
	}
	return &Packer{MaxBatchSize: maxBatchSize, MaxBatchTokens: maxBatchTokens}
}

// Pack groups chunks with the fixed 6000-token ceiling, preserving order.
func Pack(chunks []domain.ContentChunk, maxBatchSize int) [][]domain.ContentChunk {
	return NewPacker(maxBatchSize, MaxBatchTokens).Pack(chunks)
}

// Pack groups chunks in their incoming order. A new batch starts when the
// current one is full or the next chunk would push it over the token
// ceiling; a chunk larger than the ceiling ends up alone in its batch.
func (p *Packer) Pack(chunks []domain.ContentChunk) [][]domain.ContentChunk {
	batches := p.pack(chunks)
	out := make([][]domain.ContentChunk, len(batches))
	for i, b := range batches {
		out[i] = b.Chunks
	}
	return out
}

// Batches is Pack returning indexed batches with their token totals.
func (p *Packer) Batches(chunks []domain.ContentChunk) []domain.Batch {
	return p.pack(chunks)
}

func (p *Packer) pack(chunks []domain.ContentChunk) []domain.Batch {
	batches := make([]domain.Batch, 0, len(chunks)/p.MaxBatchSize+1)
	var current []domain.ContentChunk
	tokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		batches = append(batches, domain.Batch{Index: len(batches), Chunks: current, Tokens: tokens})
		current = nil
		tokens = 0
	}

	for _, c := range chunks {
		t := EstimateTokens(c.Text)
		if len(current) >= p.MaxBatchSize || tokens+t > p.MaxBatchTokens {
			flush()
		}
		current = append(current, c)
		tokens += t
	}
	flush()

	return batches
}
