package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/analyst/internal/config"
	"github.com/kailas-cloud/analyst/internal/db"
	dbRedis "github.com/kailas-cloud/analyst/internal/db/redis"
	"github.com/kailas-cloud/analyst/internal/domain"
	logpkg "github.com/kailas-cloud/analyst/internal/logger"
	"github.com/kailas-cloud/analyst/internal/metrics"
	"github.com/kailas-cloud/analyst/internal/repository/corpus"
	"github.com/kailas-cloud/analyst/internal/repository/embcache"
	"github.com/kailas-cloud/analyst/internal/repository/vector"
	"github.com/kailas-cloud/analyst/internal/tracing"
	chiTransport "github.com/kailas-cloud/analyst/internal/transport/chi"
	openaiTransport "github.com/kailas-cloud/analyst/internal/transport/openai"
	"github.com/kailas-cloud/analyst/internal/usecase/agent"
	embeddinguc "github.com/kailas-cloud/analyst/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/analyst/internal/usecase/health"
	"github.com/kailas-cloud/analyst/internal/usecase/retrieval"
	"github.com/kailas-cloud/analyst/internal/usecase/tools"
	"github.com/kailas-cloud/analyst/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting analyst API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("llm_model", cfg.LLM.Model),
	)

	// Valkey and Redis speak the same FT dialect; one rueidis store serves both.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterLLMMetrics()
	metrics.RegisterAgentMetrics()

	schema := corpus.Schema{
		KeyPrefix:     cfg.Corpus.KeyPrefix,
		IndexName:     cfg.Corpus.IndexName,
		ContentField:  cfg.Corpus.ContentField,
		CategoryField: cfg.Corpus.CategoryField,
		VectorField:   cfg.Corpus.VectorField,
	}
	chunks, err := corpus.New(store, schema, logger).Load(ctx)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}
	if len(chunks) == 0 {
		logger.Warn("Corpus is empty; lexical search will return nothing",
			zap.String("key_prefix", schema.KeyPrefix))
	}
	logger.Info("Corpus loaded", zap.Int("chunks", len(chunks)))

	queryEmbedder := buildEmbedder(cfg.Embedding, store, logger)
	logger.Info("Query embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.CacheEnabled),
	)

	vectors := vector.New(store, queryEmbedder, schema, logger).
		WithTimeout(cfg.Retrieval.VectorTimeoutDuration())
	retriever := retrieval.NewFromCorpus(vectors, chunks, retrieval.Config{
		TopN:  cfg.Retrieval.TopN,
		Fetch: cfg.Retrieval.Fetch,
		K:     cfg.Retrieval.RRFK,
	}, logger)
	executor := tools.New(retriever, logger)

	model := openaiTransport.NewModel(&openaiTransport.ModelConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Logger:      logger,
	})

	loop := agent.New(model, executor, logger).
		WithMaxIterations(cfg.Agent.MaxIterations).
		WithModelTimeout(cfg.LLM.RequestTimeoutDuration()).
		WithSystemPrompt(cfg.Agent.SystemPrompt)

	if cfg.Tracing.Enabled {
		tp, err := tracing.NewProvider(ctx, tracing.Config{
			Exporter:       cfg.Tracing.Exporter,
			Endpoint:       cfg.Tracing.Endpoint,
			Insecure:       cfg.Tracing.Insecure,
			ServiceName:    cfg.Tracing.ServiceName,
			ServiceVersion: version.Version,
			SamplingRate:   cfg.Tracing.SamplingRate,
		})
		if err != nil {
			// Tracing never blocks answering.
			logger.Error("Tracing disabled", zap.Error(err))
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(sctx); err != nil {
					logger.Warn("Trace provider shutdown failed", zap.Error(err))
				}
			}()
			loop = loop.WithSink(tracing.NewOTel(tp))
			logger.Info("Tracing enabled",
				zap.String("exporter", cfg.Tracing.Exporter),
				zap.String("endpoint", cfg.Tracing.Endpoint),
			)
		}
	}

	healthSvc := healthuc.New(store, vectors, queryEmbedder, retriever.CorpusSize())
	server := chiTransport.NewServer(loop, healthSvc, logger)
	handler := chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(cfg config.EmbeddingConfig, store db.Store, logger *zap.Logger) *embedderChain {
	base := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   cfg.Provider,
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if cfg.CacheEnabled {
		embedder = embcache.New(base, store, cfg.Model, metrics.EmbeddingCacheTotal, logger).
			WithTTL(time.Duration(cfg.CacheTTLSec) * time.Second)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, cfg.Dimensions, logger)

	// Instruction prefix is outermost so the cache key includes it.
	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}

	return &embedderChain{Embedder: embedder}
}

// embedderChain exposes the provider health check to the health service.
type embedderChain struct {
	domain.Embedder
}

func (e *embedderChain) HealthCheck(ctx context.Context) error {
	if hc, ok := e.Embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
