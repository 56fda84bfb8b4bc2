package analyst

import "github.com/kailas-cloud/analyst/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyQuestion          = domain.ErrEmptyQuestion
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrModelProviderError     = domain.ErrModelProviderError
	ErrModelTimeout           = domain.ErrModelTimeout
	ErrRetrievalTimeout       = domain.ErrRetrievalTimeout
	ErrIndexNotFound          = domain.ErrIndexNotFound
)
