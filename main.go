package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"legalrag/api"
	"legalrag/chat"
	"legalrag/config"
	"legalrag/database"
	"legalrag/embeddings"
	"legalrag/llm"
	"legalrag/retrieval"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg := config.Load()

	switch os.Args[1] {
	case "serve":
		serveCmd(cfg, logger, os.Args[2:])
	case "chat":
		chatCmd(cfg, logger, os.Args[2:])
	case "schema":
		schemaCmd(cfg, logger, os.Args[2:])
	default:
		logger.Printf("unknown command: %s", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func buildService(ctx context.Context, cfg config.Config, logger *log.Logger) (*chat.Service, func(), error) {
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres connection: %w", err)
	}

	embedder, err := embeddings.NewEmbedder(cfg)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("embedder setup: %w", err)
	}

	llmClient, err := llm.NewClient(cfg)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("llm setup: %w", err)
	}

	store := retrieval.NewPostgresVectorStore(pool, cfg.EmbeddingDimension, cfg.QueryTimeout)
	retriever := retrieval.NewRetriever(store, embedder, cfg.TopK, logger)
	svc := chat.NewService(retriever, llmClient, chat.Config{
		MaxContextTokens: cfg.MaxContextTokens,
		GenerateTimeout:  cfg.GenerateTimeout,
	}, logger)

	return svc, pool.Close, nil
}

func serveCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := flags.String("addr", cfg.ListenAddr, "listen address")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse serve flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, closePool, err := buildService(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer closePool()

	server := api.NewServer(*addr, svc, logger)

	go func() {
		<-ctx.Done()
		if err := server.Shutdown(); err != nil {
			logger.Printf("shutdown: %v", err)
		}
	}()

	if err := server.Run(); err != nil {
		logger.Fatalf("serve: %v", err)
	}
}

func chatCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("chat", flag.ExitOnError)
	question := flags.String("question", "", "question to ask")
	limit := flags.Int("limit", 0, "number of documents and articles to retrieve (0 uses the configured default)")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse chat flags: %v", err)
	}

	if strings.TrimSpace(*question) == "" {
		fmt.Print("Enter your question: ")
		scanner := bufio.NewScanner(os.Stdin)
		if scanner.Scan() {
			*question = scanner.Text()
		}
		if err := scanner.Err(); err != nil {
			logger.Fatalf("read question: %v", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	svc, closePool, err := buildService(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	defer closePool()

	session := chat.NewSession()
	resp, err := svc.Respond(ctx, session, *question, chat.TurnConfig{TopK: *limit}, &terminalTransport{})
	if err != nil {
		logger.Fatalf("chat failed: %v", err)
	}

	fmt.Println()
	if len(resp.Sources) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for idx, source := range resp.Sources {
			fmt.Printf("%d. %s (%d articles)\n", idx+1, source.Title, len(source.Articles))
		}
	}
}

func schemaCmd(cfg config.Config, logger *log.Logger, args []string) {
	flags := flag.NewFlagSet("schema", flag.ExitOnError)
	dimension := flags.Int("dimension", cfg.EmbeddingDimension, "embedding vector dimension")
	if err := flags.Parse(args); err != nil {
		logger.Fatalf("parse schema flags: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("postgres connection: %v", err)
	}
	defer pool.Close()

	if err := database.EnsureCorpusSchema(ctx, pool, *dimension); err != nil {
		logger.Fatalf("apply schema: %v", err)
	}
	logger.Println("corpus schema ready")
}

// terminalTransport prints chunks to stdout as they arrive.
type terminalTransport struct{}

func (t *terminalTransport) SendSources(ctx context.Context, elements []chat.SourceElement) error {
	return nil
}

func (t *terminalTransport) StreamToken(ctx context.Context, token string) error {
	_, err := fmt.Print(token)
	return err
}

func (t *terminalTransport) FinishMessage(ctx context.Context, answer string) error {
	return nil
}

func printUsage() {
	fmt.Println("Usage: legalrag <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  serve    Start the HTTP conversation API")
	fmt.Println("  chat     Ask a one-shot question from the terminal")
	fmt.Println("  schema   Apply the corpus schema to the configured database")
}
