package retrieval

import (
	"context"

	"github.com/kailas-cloud/analyst/internal/domain"
)

// VectorIndex is the dense side of retrieval.
type VectorIndex interface {
	Query(ctx context.Context, text string, category domain.Category, n int) ([]domain.Chunk, error)
	Count(ctx context.Context) (int, error)
}

// Scorer returns one relevance score per corpus chunk, aligned to corpus order.
type Scorer interface {
	Scores(tokens []string) []float64
}
