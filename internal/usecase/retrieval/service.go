// Package retrieval implements hybrid search: a dense vector query and a
// lexical BM25 ranking over the same corpus, fused by reciprocal rank.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/domain"
	"github.com/kailas-cloud/analyst/internal/lexical"
	"github.com/kailas-cloud/analyst/internal/metrics"
)

// Defaults.
const (
	DefaultTopN  = 5
	DefaultFetch = 20
)

// Query is one hybrid search request. Zero values take the service defaults.
type Query struct {
	Text     string
	Category domain.Category // empty searches every category
	TopN     int
	Fetch    int
	K        int
}

// Config holds the service-wide defaults applied to each Query.
type Config struct {
	TopN  int
	Fetch int
	K     int
}

// DefaultConfig returns top 5 of 20 candidates per list fused with k=60.
func DefaultConfig() Config {
	return Config{TopN: DefaultTopN, Fetch: DefaultFetch, K: DefaultRRFK}
}

// Service answers hybrid queries. Read-only after construction and safe for
// concurrent use.
type Service struct {
	vectors VectorIndex
	scorer  Scorer
	corpus  []domain.Chunk
	cfg     Config
	logger  *zap.Logger
}

// New creates a retrieval service. scorer must return scores aligned to corpus.
func New(vectors VectorIndex, scorer Scorer, corpus []domain.Chunk, cfg Config, logger *zap.Logger) *Service {
	def := DefaultConfig()
	if cfg.TopN <= 0 {
		cfg.TopN = def.TopN
	}
	if cfg.Fetch <= 0 {
		cfg.Fetch = def.Fetch
	}
	if cfg.K <= 0 {
		cfg.K = def.K
	}
	return &Service{vectors: vectors, scorer: scorer, corpus: corpus, cfg: cfg, logger: logger}
}

// NewFromCorpus builds the lexical index over corpus and creates the service.
func NewFromCorpus(vectors VectorIndex, corpus []domain.Chunk, cfg Config, logger *zap.Logger) *Service {
	docs := make([][]string, len(corpus))
	for i, c := range corpus {
		docs[i] = lexical.Tokenize(c.Content)
	}
	return New(vectors, lexical.New(docs), corpus, cfg, logger)
}

// CorpusSize returns the number of chunks the lexical side ranks.
func (s *Service) CorpusSize() int {
	return len(s.corpus)
}

// Search returns at most TopN chunks with distinct identities.
//
// A dense failure other than a timeout or cancellation degrades the search to
// the lexical ranking alone. Timeouts and cancellation are returned.
func (s *Service) Search(ctx context.Context, q Query) ([]domain.Chunk, error) {
	q = s.withDefaults(q)
	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	}()

	dense, err := s.dense(ctx, q)
	if err != nil {
		if isFatal(ctx, err) {
			return nil, err
		}
		metrics.RetrievalDegradedTotal.Inc()
		s.logger.Warn("Dense retrieval failed, using lexical ranking only",
			zap.String("category", string(q.Category)),
			zap.Error(err),
		)
		dense = nil
	}

	sparse := s.sparse(q)

	return fuseRRF(q.K, q.TopN, dense, sparse), nil
}

func (s *Service) withDefaults(q Query) Query {
	if q.TopN <= 0 {
		q.TopN = s.cfg.TopN
	}
	if q.Fetch <= 0 {
		q.Fetch = s.cfg.Fetch
	}
	if q.K <= 0 {
		q.K = s.cfg.K
	}
	return q
}

func (s *Service) dense(ctx context.Context, q Query) ([]domain.Chunk, error) {
	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.WithLabelValues("dense").Observe(time.Since(start).Seconds())
	}()

	size, err := s.vectors.Count(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("count vector index: %w", err)
	}
	n := min(q.Fetch, size)
	if n <= 0 {
		return nil, nil
	}

	chunks, err := s.vectors.Query(ctx, q.Text, q.Category, n)
	if err != nil {
		return nil, fmt.Errorf("query vector index: %w", err)
	}
	return chunks, nil
}

func (s *Service) sparse(q Query) []domain.Chunk {
	start := time.Now()
	defer func() {
		metrics.RetrievalDuration.WithLabelValues("sparse").Observe(time.Since(start).Seconds())
	}()

	if len(s.corpus) == 0 {
		return nil
	}

	scores := s.scorer.Scores(lexical.Tokenize(q.Text))
	if len(scores) != len(s.corpus) {
		s.logger.Warn("Lexical scores misaligned with corpus",
			zap.Int("scores", len(scores)),
			zap.Int("corpus", len(s.corpus)),
		)
		return nil
	}

	idx := make([]int, 0, len(s.corpus))
	for i, c := range s.corpus {
		if q.Category != "" && c.Category() != q.Category {
			continue
		}
		idx = append(idx, i)
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return scores[idx[a]] > scores[idx[b]]
	})
	if len(idx) > q.Fetch {
		idx = idx[:q.Fetch]
	}

	out := make([]domain.Chunk, len(idx))
	for i, j := range idx {
		out[i] = s.corpus[j]
	}
	return out
}

func isFatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return true
	}
	return errors.Is(err, domain.ErrRetrievalTimeout) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}
