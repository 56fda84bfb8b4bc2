package analyst

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/domain/conversation"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

const (
	defaultChatModel      = "gpt-4o"
	defaultEmbeddingModel = "text-embedding-3-small"
	defaultMaxTokens      = 4096
	defaultVectorTimeout  = 10 * time.Second
	defaultModelTimeout   = 120 * time.Second
)

type clientConfig struct {
	driver   string // "valkey" or "redis"
	addrs    []string
	password string

	apiKey  string
	baseURL string

	embedder       Embedder
	embeddingModel string
	dimensions     int
	cacheTTL       time.Duration
	cacheEnabled   bool

	chatModel     string
	maxTokens     int
	modelTimeout  time.Duration
	maxIterations int
	systemPrompt  string

	topN, fetch, rrfK int
	vectorTimeout     time.Duration

	sink       TraceSink
	logger     *zap.Logger
	metricsReg prometheus.Registerer

	// model replaces the chat provider; set by tests.
	model conversation.Model
}

func defaultClientConfig() *clientConfig {
	return &clientConfig{
		embeddingModel: defaultEmbeddingModel,
		chatModel:      defaultChatModel,
		maxTokens:      defaultMaxTokens,
		vectorTimeout:  defaultVectorTimeout,
		modelTimeout:   defaultModelTimeout,
		logger:         zap.NewNop(),
	}
}

// WithValkey configures the client to connect to a Valkey instance.
func WithValkey(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "valkey"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithRedis configures the client to connect to a Redis instance.
func WithRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = "redis"
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithOpenAI sets credentials for the OpenAI-compatible chat and embedding
// endpoints. An empty baseURL uses api.openai.com.
func WithOpenAI(apiKey, baseURL string) Option {
	return optionFunc(func(c *clientConfig) {
		c.apiKey = apiKey
		c.baseURL = baseURL
	})
}

// WithEmbedder replaces the OpenAI query embedder. The vectors must come from
// the model the corpus was indexed with.
func WithEmbedder(e Embedder) Option {
	return optionFunc(func(c *clientConfig) {
		c.embedder = e
	})
}

// WithEmbeddingModel sets the OpenAI embedding model and its output dimension.
// dimensions <= 0 keeps the model's native size and skips the size check.
// Default: text-embedding-3-small.
func WithEmbeddingModel(model string, dimensions int) Option {
	return optionFunc(func(c *clientConfig) {
		c.embeddingModel = model
		c.dimensions = dimensions
	})
}

// WithEmbeddingCache stores query vectors in the database for ttl.
// Zero ttl keeps them forever.
func WithEmbeddingCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.cacheEnabled = true
		c.cacheTTL = ttl
	})
}

// WithModel sets the chat model name. Default: gpt-4o.
func WithModel(name string) Option {
	return optionFunc(func(c *clientConfig) {
		c.chatModel = name
	})
}

// WithModelTimeout bounds every model call. Default: 120s.
func WithModelTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.modelTimeout = d
	})
}

// WithSystemPrompt replaces the analyst system prompt.
func WithSystemPrompt(p string) Option {
	return optionFunc(func(c *clientConfig) {
		c.systemPrompt = p
	})
}

// WithRetrieval tunes hybrid search: topN fused chunks per search, fetch
// candidates per ranked list and the RRF constant k.
// Zero keeps the default (5, 20, 60).
func WithRetrieval(topN, fetch, k int) Option {
	return optionFunc(func(c *clientConfig) {
		c.topN = topN
		c.fetch = fetch
		c.rrfK = k
	})
}

// WithVectorTimeout bounds each vector query. Default: 10s.
func WithVectorTimeout(d time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.vectorTimeout = d
	})
}

// WithMaxIterations caps model calls per question. Default: 8.
func WithMaxIterations(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.maxIterations = n
	})
}

// WithTraceSink records every run as nested spans.
// Sink errors and panics are logged and never fail a question.
func WithTraceSink(s TraceSink) Option {
	return optionFunc(func(c *clientConfig) {
		c.sink = s
	})
}

// WithLogger enables structured logging. Pass nil to disable (default).
func WithLogger(l *zap.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		if l == nil {
			l = zap.NewNop()
		}
		c.logger = l
	})
}

// WithPrometheus registers client metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
