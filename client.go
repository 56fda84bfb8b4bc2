package analyst

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/analyst/internal/db"
	dbRedis "github.com/kailas-cloud/analyst/internal/db/redis"
	"github.com/kailas-cloud/analyst/internal/domain"
	"github.com/kailas-cloud/analyst/internal/domain/conversation"
	"github.com/kailas-cloud/analyst/internal/metrics"
	"github.com/kailas-cloud/analyst/internal/repository/corpus"
	"github.com/kailas-cloud/analyst/internal/repository/embcache"
	"github.com/kailas-cloud/analyst/internal/repository/vector"
	"github.com/kailas-cloud/analyst/internal/transport/openai"
	"github.com/kailas-cloud/analyst/internal/usecase/agent"
	"github.com/kailas-cloud/analyst/internal/usecase/embedding"
	"github.com/kailas-cloud/analyst/internal/usecase/retrieval"
	"github.com/kailas-cloud/analyst/internal/usecase/tools"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interface for swapping in tests.
type agentUseCase interface {
	Run(ctx context.Context, question string) (agent.Result, error)
}

// Client is the analyst entry point. It is safe for concurrent use.
type Client struct {
	store      db.Store
	agent      agentUseCase
	corpusSize int
	obs        *observer
}

// New connects to the database, loads the chunk corpus and wires the agent.
// The provided context bounds the readiness check and the corpus load.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("analyst: database address required (use WithValkey or WithRedis)")
	}
	if cfg.embedder == nil && cfg.apiKey == "" {
		return nil, errors.New("analyst: embedding provider required (use WithOpenAI or WithEmbedder)")
	}
	if cfg.model == nil && cfg.apiKey == "" {
		return nil, errors.New("analyst: model provider required (use WithOpenAI)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("analyst: database not ready: %w", err)
	}

	c, err := wireClient(ctx, store, cfg)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("analyst: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("analyst: unknown driver %q", cfg.driver)
	}
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig) (*Client, error) {
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	schema := corpus.DefaultSchema()
	chunks, err := corpus.New(store, schema, cfg.logger).Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("analyst: load corpus: %w", err)
	}

	vectors := vector.New(store, queryEmbedder(store, cfg), schema, cfg.logger).
		WithTimeout(cfg.vectorTimeout)
	retriever := retrieval.NewFromCorpus(vectors, chunks, retrieval.Config{
		TopN:  cfg.topN,
		Fetch: cfg.fetch,
		K:     cfg.rrfK,
	}, cfg.logger)

	loop := agent.New(chatModel(cfg), tools.New(retriever, cfg.logger), cfg.logger).
		WithMaxIterations(cfg.maxIterations).
		WithModelTimeout(cfg.modelTimeout).
		WithSystemPrompt(cfg.systemPrompt)
	if cfg.sink != nil {
		loop = loop.WithSink(sinkAdapter{inner: cfg.sink})
	}

	return &Client{
		store:      store,
		agent:      loop,
		corpusSize: retriever.CorpusSize(),
		obs:        obs,
	}, nil
}

// queryEmbedder builds the chain: provider -> cache -> instrumented.
func queryEmbedder(store db.Store, cfg *clientConfig) domain.Embedder {
	provider := "openai"
	var emb domain.Embedder
	if cfg.embedder != nil {
		provider = "custom"
		emb = &embedderAdapter{inner: cfg.embedder}
	} else {
		emb = openai.NewEmbedder(&openai.EmbedderConfig{
			APIKey:     cfg.apiKey,
			BaseURL:    cfg.baseURL,
			Model:      cfg.embeddingModel,
			Dimensions: cfg.dimensions,
			Provider:   provider,
			Logger:     cfg.logger,
		})
	}

	if cfg.cacheEnabled {
		emb = embcache.New(emb, store, cfg.embeddingModel, metrics.EmbeddingCacheTotal, cfg.logger).
			WithTTL(cfg.cacheTTL)
	}

	return embedding.NewInstrumentedEmbedder(emb, provider, cfg.embeddingModel, cfg.dimensions, cfg.logger)
}

func chatModel(cfg *clientConfig) conversation.Model {
	if cfg.model != nil {
		return cfg.model
	}
	return openai.NewModel(&openai.ModelConfig{
		APIKey:    cfg.apiKey,
		BaseURL:   cfg.baseURL,
		Model:     cfg.chatModel,
		MaxTokens: cfg.maxTokens,
		Logger:    cfg.logger,
	})
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// CorpusSize returns the number of chunks loaded at construction.
func (c *Client) CorpusSize() int {
	return c.corpusSize
}

// Ask answers one question about the filing.
//
// The Answer is returned together with the error whenever the run started,
// so partial searches stay visible after a failure. A blank question returns
// ErrEmptyQuestion and no Answer.
func (c *Client) Ask(ctx context.Context, question string) (ans *Answer, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ask", start, err) }()

	res, err := c.agent.Run(ctx, question)
	if res.RunID != "" {
		ans = newAnswer(res)
	}
	if err != nil {
		return ans, fmt.Errorf("ask: %w", err)
	}
	return ans, nil
}
