package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/notionvec/notionvec/internal/config"
	"github.com/notionvec/notionvec/internal/embedder"
	"github.com/notionvec/notionvec/internal/index"
	"github.com/notionvec/notionvec/internal/mcp"
	"github.com/notionvec/notionvec/internal/searcher"
	"github.com/notionvec/notionvec/internal/source"
	"github.com/notionvec/notionvec/internal/syncer"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("notionvec\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", index.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", index.DriverName)
		fmt.Printf("Vector Extension: %v\n", index.VectorExtensionAvailable)
		os.Exit(0)
	}

	// All logging to stderr; stdout carries MCP protocol in serve mode and
	// search results otherwise.
	log.SetOutput(os.Stderr)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	switch os.Args[1] {
	case "sync":
		runSync(cfg)
	case "search":
		runSearch(cfg, os.Args[2:])
	case "serve":
		runServe(cfg)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `notionvec - change-aware Notion to vector index sync

Usage:
  notionvec sync             synchronize the workspace into the vector index
  notionvec search <query>   search indexed pages
  notionvec serve            run the MCP server on stdio
  notionvec --version        print build information
`)
}

// buildPipeline wires the collaborators shared by sync and search.
func buildPipeline(cfg *config.Config) (*index.SQLiteIndex, source.Source, embedder.Embedder) {
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	idx, err := index.NewSQLiteIndex(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open index: %v", err)
	}

	src, err := source.NewNotion(cfg.NotionToken)
	if err != nil {
		log.Fatalf("Failed to create Notion client: %v", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.EmbeddingProvider,
		Model:     cfg.EmbeddingModel,
		APIKey:    cfg.OpenAIAPIKey,
		OllamaURL: cfg.OllamaURL,
	})
	if err != nil {
		log.Fatalf("Failed to create embedder: %v", err)
	}

	return idx, src, emb
}

func runSync(cfg *config.Config) {
	idx, src, emb := buildPipeline(cfg)
	defer func() { _ = idx.Close() }()
	defer func() { _ = emb.Close() }()

	s, err := syncer.New(src, emb, idx, syncer.Config{
		ChunkSize:     cfg.ChunkSize,
		EmbedWorkers:  cfg.EmbedWorkers,
		WorkspaceName: cfg.WorkspaceName,
	}, log.Default())
	if err != nil {
		log.Fatalf("Failed to create syncer: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	log.Printf("notionvec v%s: sync starting (provider=%s, db=%s)",
		version, cfg.EmbeddingProvider, cfg.DBPath)

	stats, err := s.Run(ctx)
	if err != nil {
		log.Fatalf("Sync failed: %v", err)
	}

	fmt.Printf("Found:     %d\n", stats.Found)
	fmt.Printf("Inserted:  %d\n", stats.Inserted)
	fmt.Printf("Updated:   %d\n", stats.Updated)
	fmt.Printf("Unchanged: %d\n", stats.Unchanged)
	fmt.Printf("No text:   %d\n", stats.NoContent)
	fmt.Printf("Failed:    %d\n", stats.Failed)
	if stats.Failed > 0 {
		os.Exit(1)
	}
}

func runSearch(cfg *config.Config, args []string) {
	if len(args) == 0 {
		log.Fatal("search requires a query")
	}
	query := strings.Join(args, " ")

	idx, _, emb := buildPipeline(cfg)
	defer func() { _ = idx.Close() }()
	defer func() { _ = emb.Close() }()

	ctx, cancel := signalContext()
	defer cancel()

	s := searcher.New(idx, emb)
	resp, err := s.Search(ctx, searcher.Request{Query: query, Limit: cfg.SearchLimit})
	if err != nil {
		log.Fatalf("Search failed: %v", err)
	}

	if resp.TotalResults == 0 {
		fmt.Println("No results.")
		return
	}
	for _, r := range resp.Results {
		fmt.Printf("%2d. [%.3f] %s (%s)\n", r.Rank, r.Score, r.Title, r.URL)
		fmt.Printf("    %s\n", r.ChunkText)
	}
}

func runServe(cfg *config.Config) {
	log.Printf("notionvec MCP server v%s starting...", version)
	log.Printf("Build Mode: %s, Driver: %s, Vector Extension: %v",
		index.BuildMode, index.DriverName, index.VectorExtensionAvailable)

	server, err := mcp.NewServer(cfg, log.Default())
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Println("Server stopped")
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
