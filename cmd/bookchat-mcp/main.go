// Package main provides the MCP server entry point for the book
// companion.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/inkwell/bookchat/internal/bookstore"
	"github.com/inkwell/bookchat/internal/chunker"
	"github.com/inkwell/bookchat/internal/config"
	"github.com/inkwell/bookchat/internal/embedding"
	"github.com/inkwell/bookchat/internal/gutenberg"
	"github.com/inkwell/bookchat/internal/index"
	"github.com/inkwell/bookchat/internal/ingest"
	"github.com/inkwell/bookchat/internal/intent"
	"github.com/inkwell/bookchat/internal/llm"
	mcpserver "github.com/inkwell/bookchat/internal/mcp"
	"github.com/inkwell/bookchat/internal/orchestrator"
	"github.com/inkwell/bookchat/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(getEnv("BOOKCHAT_CONFIG", "bookchat.yaml"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Stdout carries the MCP protocol, so all logging goes to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	store, err := storage.NewQdrantStorage(cfg.Qdrant.Host, cfg.Qdrant.Port)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure collection: %v", err)
	}

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0) // Use default batch size

	ck, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		log.Fatalf("invalid chunking config: %v", err)
	}

	books, err := bookstore.New(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open book store: %v", err)
	}

	ix := index.New(embedder, store, logger)
	coordinator := ingest.NewCoordinator(ix, ck, logger)
	gateway := llm.NewGateway(embeddingClient.Client(), cfg.LLM.Model, cfg.LLMTimeout())
	resolver := intent.NewResolver(gateway, logger)
	catalog := gutenberg.NewClient("")

	orch := orchestrator.New(resolver, catalog, books, coordinator, ix, gateway, orchestrator.Options{
		TopKSummary:   cfg.Retrieval.TopKSummary,
		TopKQuestion:  cfg.Retrieval.TopKQuestion,
		ContextBudget: cfg.Retrieval.ContextBudget,
	}, logger)

	server := mcpserver.NewServer(&mcpserver.Config{
		Catalog:      catalog,
		Orchestrator: orch,
		Library:      store,
	})

	log.Println("Starting bookchat MCP server (stdio mode)...")
	if err := server.Run(ctx); err != nil {
		log.Printf("server error: %v", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
