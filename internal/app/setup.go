package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/db"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/config"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/embedding"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/history"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/llm"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/observability"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/rag"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/vectorstore"
)

// Setup builds the application from configuration: migrations, connection
// pool, embedding client, vector store, history store, LLM client, and the
// RAG engine and indexer on top of them. On error everything already
// initialized is released.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (_ *App, retErr error) {
	if logger == nil {
		logger = log.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	shutdown, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}
	a.otelShutdown = shutdown

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	embedder, err := embedding.New(ctx, embedding.Config{
		Host:       cfg.OllamaHost,
		Model:      cfg.EmbedderModel,
		Dimensions: config.EmbeddingDimensions,
	})
	if err != nil {
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}
	a.Embedder = embedder

	a.VectorStore = vectorstore.New(pool, config.EmbeddingDimensions, logger)
	a.History = history.New(pool, logger)

	llmClient, err := llm.New(ctx, llm.Config{
		APIKey:      cfg.GeminiAPIKey,
		Model:       cfg.ModelName,
		Temperature: cfg.Temperature,
		MaxTokens:   int32(cfg.MaxTokens),
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("creating llm client: %w", err)
	}
	a.LLM = llmClient

	a.Engine = rag.NewEngine(embedder, a.VectorStore, llmClient, a.History, logger)
	a.Indexer = rag.NewIndexer(cfg.ProfilePath, cfg.IndexLockPath, embedder, a.VectorStore, logger)

	logger.Info("application initialized",
		"model", cfg.ModelName,
		"embedder", cfg.EmbedderModel)
	return a, nil
}

// provideDBPool runs migrations and opens a bounded connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database URL: %w", err)
	}
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2
	poolCfg.MaxConnLifetime = 30 * time.Minute
	poolCfg.MaxConnIdleTime = 5 * time.Minute
	poolCfg.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return pool, nil
}
