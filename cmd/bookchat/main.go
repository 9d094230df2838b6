// Package main provides the bookchat CLI for chatting with
// public-domain books.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/inkwell/bookchat/internal/bookstore"
	"github.com/inkwell/bookchat/internal/chunker"
	"github.com/inkwell/bookchat/internal/config"
	"github.com/inkwell/bookchat/internal/embedding"
	"github.com/inkwell/bookchat/internal/gutenberg"
	"github.com/inkwell/bookchat/internal/index"
	"github.com/inkwell/bookchat/internal/ingest"
	"github.com/inkwell/bookchat/internal/intent"
	"github.com/inkwell/bookchat/internal/llm"
	"github.com/inkwell/bookchat/internal/orchestrator"
	"github.com/inkwell/bookchat/internal/storage"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bookchat",
	Short: "Chat with public-domain books",
	Long:  "Interactive companion for questioning, summarizing and continuing public-domain books indexed in Qdrant",
}

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive reading session",
	Long: `Searches the catalog for a book, downloads and indexes it, then
answers questions, summarizes and continues the story in a REPL.

Environment variables:
  OPENAI_API_KEY OpenAI API key for embeddings and chat (required)`,
	RunE: runChat,
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every indexed book from Qdrant",
	RunE:  runReset,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "bookchat.yaml", "path to the YAML config file")
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(resetCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app bundles the wired components behind the REPL.
type app struct {
	catalog *gutenberg.Client
	orch    *orchestrator.Orchestrator
	store   *storage.QdrantStorage
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := storage.NewQdrantStorage(cfg.Qdrant.Host, cfg.Qdrant.Port)
	if err != nil {
		return nil, fmt.Errorf("connecting to Qdrant: %w", err)
	}
	if err := store.EnsureCollection(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("ensuring collection: %w", err)
	}

	embeddingClient, err := embedding.NewClient()
	if err != nil {
		store.Close()
		return nil, err
	}
	embedder := embedding.NewEmbedder(embeddingClient, 0) // Use default batch size

	ck, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("invalid chunking config: %w", err)
	}

	books, err := bookstore.New(cfg.DataDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("opening book store: %w", err)
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

	return &app{catalog: catalog, orch: orch, store: store}, nil
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.store.Close()

	reader := bufio.NewReader(os.Stdin)

	book, err := pickBook(ctx, a.catalog, reader)
	if err != nil {
		return err
	}

	fmt.Printf("\nPreparing '%s'...\n", book.Title)
	title, err := a.orch.EnsureAvailable(ctx, book)
	if err != nil {
		return fmt.Errorf("preparing %q: %w", book.Title, err)
	}
	fmt.Printf("\n'%s' is ready. Ask a question, request a summary, or say \"continue\". Type \"exit\" to quit.\n\n", title)

	active := title
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			fmt.Println()
			return nil
		}
		utterance := strings.TrimSpace(line)
		if utterance == "" {
			continue
		}
		if utterance == "exit" || utterance == "quit" {
			return nil
		}

		response, next := a.orch.Orchestrate(ctx, utterance, active)
		active = next
		fmt.Println()
		fmt.Println(response)
		fmt.Println()
	}
}

// pickBook loops until the user selects a catalog match.
func pickBook(ctx context.Context, catalog *gutenberg.Client, reader *bufio.Reader) (gutenberg.Book, error) {
	for {
		fmt.Print("Search for a book: ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return gutenberg.Book{}, err
		}
		query := strings.TrimSpace(line)
		if query == "" {
			continue
		}

		books, err := catalog.Search(ctx, query)
		if err != nil {
			fmt.Printf("Search failed: %v\n", err)
			continue
		}
		if len(books) == 0 {
			fmt.Println("No matches found, try another title.")
			continue
		}

		for i, b := range books {
			fmt.Printf("  %d. %s by %s\n", i+1, b.Title, b.Author)
		}
		fmt.Print("Pick a number: ")
		line, err = reader.ReadString('\n')
		if err != nil {
			return gutenberg.Book{}, err
		}
		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil || n < 1 || n > len(books) {
			fmt.Println("Not a valid choice.")
			continue
		}
		return books[n-1], nil
	}
}

func runReset(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := storage.NewQdrantStorage(cfg.Qdrant.Host, cfg.Qdrant.Port)
	if err != nil {
		return fmt.Errorf("connecting to Qdrant: %w", err)
	}
	defer store.Close()

	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("ensuring collection: %w", err)
	}
	if err := store.ClearCollection(ctx); err != nil {
		return fmt.Errorf("clearing collection: %w", err)
	}

	fmt.Println("Collection cleared")
	return nil
}
