package corpus

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/domain"
)

const defaultBatchSize = 500

// store is the consumer interface for corpus loading (ISP).
type store interface {
	Scan(ctx context.Context, pattern string) ([]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
}

// Repo loads the full chunk corpus from the hash keyspace.
type Repo struct {
	store     store
	schema    Schema
	batchSize int
	logger    *zap.Logger
}

// New creates a corpus repository.
func New(s store, schema Schema, logger *zap.Logger) *Repo {
	return &Repo{store: s, schema: schema, batchSize: defaultBatchSize, logger: logger}
}

// Load reads every chunk under the schema prefix. Keys are sorted so the corpus
// order, and with it lexical tie-breaking, is stable across restarts.
func (r *Repo) Load(ctx context.Context) ([]domain.Chunk, error) {
	keys, err := r.store.Scan(ctx, r.schema.KeyPrefix+"*")
	if err != nil {
		return nil, fmt.Errorf("scan corpus keys: %w", err)
	}
	slices.Sort(keys)

	chunks := make([]domain.Chunk, 0, len(keys))
	skipped := 0
	for start := 0; start < len(keys); start += r.batchSize {
		end := min(start+r.batchSize, len(keys))
		hashes, err := r.store.HGetAllMulti(ctx, keys[start:end])
		if err != nil {
			return nil, fmt.Errorf("load corpus batch %d-%d: %w", start, end, err)
		}
		for _, h := range hashes {
			c, ok := r.schema.Decode(h)
			if !ok {
				skipped++
				continue
			}
			chunks = append(chunks, c)
		}
	}

	if skipped > 0 {
		r.logger.Warn("Skipped corpus entries without content", zap.Int("skipped", skipped))
	}
	r.logger.Info("Corpus loaded",
		zap.Int("chunks", len(chunks)),
		zap.String("prefix", r.schema.KeyPrefix),
	)
	return chunks, nil
}
