package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/api"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/app"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/rag"
)

// Server timeout configuration.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 2 * time.Minute // SSE streaming needs a long write window
	idleTimeout       = 2 * time.Minute
	shutdownTimeout   = 30 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err = cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting portfolio backend", "version", AppVersion)

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	// Populate the vector index before accepting traffic. An already
	// populated index or a concurrent run elsewhere is not a startup
	// failure; the chat endpoint degrades to fewer context chunks until
	// indexing completes.
	if result, indexErr := a.Indexer.Run(ctx, false); indexErr != nil {
		if errors.Is(indexErr, rag.ErrIndexLocked) {
			logger.Info("index locked by another process, continuing startup")
		} else {
			logger.Warn("startup indexing failed", "error", indexErr)
		}
	} else {
		logger.Info("index ready",
			"chunks_processed", result.ChunksProcessed,
			"documents_stored", result.DocumentsStored,
			"message", result.Message,
		)
	}

	apiServer, err := api.NewServer(api.ServerConfig{
		Logger:  logger,
		Engine:  a.Engine,
		History: a.History,
		HealthChecks: map[string]api.Pinger{
			"database":   a.DBPool,
			"embeddings": a.Embedder,
			"vector_store": api.PingerFunc(func(ctx context.Context) error {
				_, err := a.VectorStore.Count(ctx)
				return err
			}),
			"llm": nil, // configured, no cheap liveness probe
		},
		CORSOrigins:        cfg.CORSOrigins,
		TrustProxy:         cfg.TrustProxy,
		RateLimitPerSecond: cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		MaxQuestionLength:  cfg.MaxQuestionLength,
		IsDev:              cfg.Environment == "development",
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logger.Info("HTTP server ready",
		"addr", cfg.ServerAddr,
		"chat", "POST /api/chat",
		"history", "/api/chat/history/{session_id}",
		"health", "GET /health",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down HTTP server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP server: %w", err)
	}
}
