package domain

// Category is the closed set of chunk content types produced by the corpus chunker.
type Category string

const (
	// CategoryText is narrative prose (risk factors, MD&A, strategy).
	CategoryText Category = "text"
	// CategoryTable is tabular financial data (statements, footnotes).
	CategoryTable Category = "table"
)

// IsValid checks if the category is one of the supported values.
func (c Category) IsValid() bool {
	return c == CategoryText || c == CategoryTable
}

// Metadata keys written by the corpus indexer.
const (
	MetaContentType = "content_type"
	MetaType        = "type"
	MetaItemNumber  = "item_number"
	MetaSection     = "section"
	MetaPage        = "page"
)

// Identity prefix lengths. Two chunks sharing the leading runes are the same chunk.
const (
	RankKeyLen    = 120 // fusion deduplication
	DisplayKeyLen = 100 // source list deduplication
)

// Chunk is a retrievable unit of the corpus. Chunks are immutable once loaded.
type Chunk struct {
	Content  string
	Metadata map[string]string
}

// Category returns the chunk's content_type metadata value.
func (c Chunk) Category() Category {
	return Category(c.Metadata[MetaContentType])
}

// Meta returns the metadata value for key, or fallback when absent or empty.
func (c Chunk) Meta(key, fallback string) string {
	if v, ok := c.Metadata[key]; ok && v != "" {
		return v
	}
	return fallback
}

// Key returns the identity of the chunk: its first n runes.
func (c Chunk) Key(n int) string {
	return prefixRunes(c.Content, n)
}

func prefixRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// KeyPrefix namespaces every key the service writes.
const KeyPrefix = "analyst:"
