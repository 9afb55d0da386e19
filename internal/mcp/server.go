package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"

	"github.com/notionvec/notionvec/internal/config"
	"github.com/notionvec/notionvec/internal/embedder"
	"github.com/notionvec/notionvec/internal/index"
	"github.com/notionvec/notionvec/internal/searcher"
	"github.com/notionvec/notionvec/internal/source"
	"github.com/notionvec/notionvec/internal/syncer"
)

const (
	// ServerName is the MCP server name
	ServerName = "notionvec"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	idx      *index.SQLiteIndex
	syncer   *syncer.Syncer
	searcher *searcher.Searcher
	logger   *log.Logger
}

// NewServer builds the full dependency graph from configuration and
// registers the tools. The logger must write to stderr; stdout carries the
// MCP protocol.
func NewServer(cfg *config.Config, logger *log.Logger) (*Server, error) {
	if logger == nil {
		logger = log.Default()
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	idx, err := index.NewSQLiteIndex(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize index: %w", err)
	}

	src, err := source.NewNotion(cfg.NotionToken)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to initialize source: %w", err)
	}

	emb, err := embedder.New(embedder.Config{
		Provider:  cfg.EmbeddingProvider,
		Model:     cfg.EmbeddingModel,
		APIKey:    cfg.OpenAIAPIKey,
		OllamaURL: cfg.OllamaURL,
	})
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	sync, err := syncer.New(src, emb, idx, syncer.Config{
		ChunkSize:     cfg.ChunkSize,
		EmbedWorkers:  cfg.EmbedWorkers,
		WorkspaceName: cfg.WorkspaceName,
	}, logger)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("failed to initialize syncer: %w", err)
	}

	s := &Server{
		mcp:      server.NewMCPServer(ServerName, ServerVersion),
		idx:      idx,
		syncer:   sync,
		searcher: searcher.New(idx, emb),
		logger:   logger,
	}
	s.registerTools()
	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.idx.Close() }()
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(syncWorkspaceTool(), s.handleSyncWorkspace)
	s.mcp.AddTool(searchPagesTool(), s.handleSearchPages)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
}
