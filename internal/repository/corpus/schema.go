package corpus

import (
	"github.com/kailas-cloud/analyst/internal/db"
	"github.com/kailas-cloud/analyst/internal/domain"
)

// Schema names the hash fields written by the corpus indexer.
type Schema struct {
	KeyPrefix     string // e.g. "analyst:chunk:"
	IndexName     string
	ContentField  string
	CategoryField string
	VectorField   string
}

// DefaultSchema matches the layout produced by the indexing job.
func DefaultSchema() Schema {
	return Schema{
		KeyPrefix:     domain.KeyPrefix + "chunk:",
		IndexName:     domain.KeyPrefix + "chunks:idx",
		ContentField:  "content",
		CategoryField: domain.MetaContentType,
		VectorField:   db.DefaultVectorField,
	}
}

// Decode turns a hash into a chunk. Hashes without content are rejected.
// The category field is normalized onto the content_type metadata key and the
// raw vector bytes are dropped.
func (s Schema) Decode(fields map[string]string) (domain.Chunk, bool) {
	content := fields[s.ContentField]
	if content == "" {
		return domain.Chunk{}, false
	}

	meta := make(map[string]string, len(fields))
	for k, v := range fields {
		switch k {
		case s.ContentField, s.VectorField:
			continue
		case s.CategoryField:
			meta[domain.MetaContentType] = v
		default:
			meta[k] = v
		}
	}
	return domain.Chunk{Content: content, Metadata: meta}, true
}
