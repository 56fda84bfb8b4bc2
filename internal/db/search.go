package db

import "github.com/kailas-cloud/analyst/internal/domain/search/filter"

// DefaultVectorField is the hash field holding the chunk embedding.
const DefaultVectorField = "embedding"

// KNNQuery is the input for vector similarity search.
type KNNQuery struct {
	IndexName   string
	VectorField string // defaults to DefaultVectorField
	Filters     filter.Expression
	Vector      []float32
	K           int
	// ReturnFields limits returned hash fields. Empty returns every field.
	ReturnFields []string
}

// IndexInfo is the subset of FT.INFO the service needs.
type IndexInfo struct {
	Name    string
	NumDocs int
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Score  float64
	Fields map[string]string
}
