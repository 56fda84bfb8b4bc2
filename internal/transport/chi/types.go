package chi

// ErrorCode is a machine-readable error class.
type ErrorCode string

const (
	CodeBadRequest        ErrorCode = "bad_request"
	CodeValidation        ErrorCode = "validation_failed"
	CodeUnauthorized      ErrorCode = "unauthorized"
	CodeModelProvider     ErrorCode = "model_provider_error"
	CodeEmbeddingProvider ErrorCode = "embedding_provider_error"
	CodeTimeout           ErrorCode = "timeout"
	CodeCanceled          ErrorCode = "canceled"
	CodeInternal          ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	Question string `json:"question"`
}

// AskResponse is the answer plus what was retrieved to produce it.
type AskResponse struct {
	RunID      string   `json:"run_id"`
	Answer     string   `json:"answer"`
	State      string   `json:"state"`
	Iterations int      `json:"iterations"`
	Elapsed    float64  `json:"elapsed_seconds"`
	Sources    []Source `json:"sources"`
	Searches   []Search `json:"searches"`
	Counts     Counts   `json:"counts"`
}

// Source is one distinct retrieved chunk.
type Source struct {
	Index    int    `json:"index"`
	Category string `json:"category"`
	Item     string `json:"item"`
	Page     string `json:"page"`
	Preview  string `json:"preview"`
}

// Search is one executed tool call.
type Search struct {
	Iteration int    `json:"iteration"`
	Tool      string `json:"tool"`
	Query     string `json:"query"`
}

// Counts summarizes the response.
type Counts struct {
	Sources  int `json:"sources"`
	Searches int `json:"searches"`
}

// SamplesResponse lists example questions.
type SamplesResponse struct {
	Questions []string `json:"questions"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Chunks int               `json:"chunks"`
	Corpus int               `json:"corpus"`
}
