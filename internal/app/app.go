// Package app assembles the application: configuration in, fully wired
// components out. Call Setup once at startup and Close on shutdown.
package app

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/config"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/embedding"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/history"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/llm"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/log"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/rag"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/vectorstore"
)

// App is the application container. Fields are wired once in Setup and
// read-only afterwards.
type App struct {
	Config *config.Config
	Logger log.Logger

	DBPool      *pgxpool.Pool
	Embedder    *embedding.Client
	VectorStore *vectorstore.Store
	History     *history.Store
	LLM         *llm.Client
	Engine      *rag.Engine
	Indexer     *rag.Indexer

	otelShutdown func(context.Context) error
}

// Close releases all resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.otelShutdown(ctx); err != nil && a.Logger != nil {
			a.Logger.Warn("tracer shutdown", "error", err)
		}
	}

	if a.DBPool != nil {
		a.DBPool.Close()
	}
	return nil
}
