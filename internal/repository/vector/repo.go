// Package vector is the dense side of retrieval: it embeds query text and runs
// a KNN search over the chunk index, optionally pre-filtered by category.
package vector

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/db"
	"github.com/kailas-cloud/analyst/internal/domain"
	"github.com/kailas-cloud/analyst/internal/domain/search/filter"
	"github.com/kailas-cloud/analyst/internal/repository/corpus"
)

// store is the consumer interface for vector search (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	IndexInfo(ctx context.Context, name string) (db.IndexInfo, error)
}

// Repo queries the chunk vector index by raw text.
type Repo struct {
	store    store
	embedder domain.Embedder
	schema   corpus.Schema
	timeout  time.Duration
	logger   *zap.Logger
}

// New creates a vector repository.
func New(s store, emb domain.Embedder, schema corpus.Schema, logger *zap.Logger) *Repo {
	return &Repo{store: s, embedder: emb, schema: schema, logger: logger}
}

// WithTimeout bounds each Query (embedding plus search). Zero disables the bound.
func (r *Repo) WithTimeout(d time.Duration) *Repo {
	r.timeout = d
	return r
}

// Query returns up to n chunks ordered by similarity. An empty category
// searches the whole index. A deadline hit inside the bound is reported as
// domain.ErrRetrievalTimeout.
func (r *Repo) Query(ctx context.Context, text string, category domain.Category, n int) ([]domain.Chunk, error) {
	if n <= 0 {
		return nil, nil
	}

	qctx := ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		qctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	chunks, err := r.query(qctx, text, category, n)
	if err != nil {
		if ctx.Err() == nil && errors.Is(qctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: vector query exceeded %s", domain.ErrRetrievalTimeout, r.timeout)
		}
		return nil, err
	}
	return chunks, nil
}

func (r *Repo) query(ctx context.Context, text string, category domain.Category, n int) ([]domain.Chunk, error) {
	emb, err := r.embedder.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	q := &db.KNNQuery{
		IndexName:   r.schema.IndexName,
		VectorField: r.schema.VectorField,
		Vector:      emb.Embedding,
		K:           n,
	}
	if category != "" {
		expr, err := filter.Equals(r.schema.CategoryField, string(category))
		if err != nil {
			return nil, fmt.Errorf("build category filter: %w", err)
		}
		q.Filters = expr
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", r.schema.IndexName, err)
	}
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	entries := sr.Entries
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})

	chunks := make([]domain.Chunk, 0, min(len(entries), n))
	for _, e := range entries {
		c, ok := r.schema.Decode(e.Fields)
		if !ok {
			r.logger.Debug("Skipping vector hit without content", zap.String("key", e.Key))
			continue
		}
		chunks = append(chunks, c)
		if len(chunks) == n {
			break
		}
	}
	return chunks, nil
}

// Count returns the number of documents in the vector index.
func (r *Repo) Count(ctx context.Context) (int, error) {
	info, err := r.store.IndexInfo(ctx, r.schema.IndexName)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return 0, fmt.Errorf("%w: %s", domain.ErrIndexNotFound, r.schema.IndexName)
		}
		return 0, fmt.Errorf("index info %s: %w", r.schema.IndexName, err)
	}
	return info.NumDocs, nil
}
