package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/app"
	"github.com/rushikeshxdev/AI-Powered-Portfolio/internal/rag"
)

var indexForce bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Build the vector index from the profile document",
	Long: `Chunks the profile document, generates embeddings, and stores them in
the vector index. A populated index is left untouched unless --force is
given, which clears and rebuilds it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIndex()
	},
}

func init() {
	indexCmd.Flags().BoolVar(&indexForce, "force", false, "clear and rebuild an already populated index")
	rootCmd.AddCommand(indexCmd)
}

func runIndex() error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if err = cfg.ValidateServe(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	result, err := a.Indexer.Run(ctx, indexForce)
	if err != nil {
		if errors.Is(err, rag.ErrIndexLocked) {
			return errors.New("another indexing run is in progress")
		}
		return fmt.Errorf("indexing: %w", err)
	}

	fmt.Println(result.Message)
	fmt.Printf("  chunks processed:     %d\n", result.ChunksProcessed)
	fmt.Printf("  embeddings generated: %d\n", result.EmbeddingsGenerated)
	fmt.Printf("  documents stored:     %d\n", result.DocumentsStored)
	return nil
}
