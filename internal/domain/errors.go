package domain

import "errors"

var (
	// ErrEmptyQuestion signals a blank question.
	ErrEmptyQuestion = errors.New("question is empty")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrModelProviderError signals a language model provider failure.
	ErrModelProviderError = errors.New("model provider error")
	// ErrModelTimeout signals that a model call exceeded its bound.
	ErrModelTimeout = errors.New("model timeout")
	// ErrRetrievalTimeout signals that the vector index did not answer in time.
	ErrRetrievalTimeout = errors.New("retrieval timeout")
	// ErrIndexNotFound signals that the chunk index has not been built.
	ErrIndexNotFound = errors.New("chunk index not found")
	// ErrConversationOrder signals a turn appended out of protocol order.
	ErrConversationOrder = errors.New("conversation order violated")
)
