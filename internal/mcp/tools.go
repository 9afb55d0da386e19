package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/notionvec/notionvec/internal/index"
	"github.com/notionvec/notionvec/internal/searcher"
	"github.com/notionvec/notionvec/internal/syncer"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeSyncInProgress = -32001 // Another sync run is already executing
	ErrorCodeEmptyQuery     = -32002 // Query parameter is empty
)

// handleSyncWorkspace handles the sync_workspace tool invocation
func (s *Server) handleSyncWorkspace(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.syncer.Run(ctx)
	if errors.Is(err, syncer.ErrRunInProgress) {
		return nil, newMCPError(ErrorCodeSyncInProgress, "a sync run is already in progress", nil)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "sync failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Searches after a sync must see the fresh index.
	s.searcher.InvalidateCache()

	response := map[string]interface{}{
		"run_id":      stats.RunID,
		"found":       stats.Found,
		"inserted":    stats.Inserted,
		"updated":     stats.Updated,
		"unchanged":   stats.Unchanged,
		"no_content":  stats.NoContent,
		"failed":      stats.Failed,
		"duration_ms": stats.Duration.Milliseconds(),
	}
	if len(stats.Errors) > 0 {
		errorCount := len(stats.Errors)
		if errorCount > 5 {
			response["errors"] = stats.Errors[:5]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchPages handles the search_pages tool invocation
func (s *Server) handleSearchPages(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", 10)
	if limit < 1 || limit > 100 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 100", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	resp, err := s.searcher.Search(ctx, searcher.Request{
		Query:    query,
		Limit:    limit,
		UseCache: true,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = map[string]interface{}{
			"rank":        r.Rank,
			"score":       r.Score,
			"document_id": r.DocumentID,
			"chunk_id":    r.ChunkID,
			"title":       r.Title,
			"url":         r.URL,
			"text":        r.ChunkText,
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":         query,
		"total_results": resp.TotalResults,
		"cache_hit":     resp.CacheHit,
		"duration_ms":   resp.Duration.Milliseconds(),
		"results":       results,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	response := map[string]interface{}{
		"build_mode":    index.BuildMode,
		"index_size_mb": fmt.Sprintf("%.2f", s.idx.SizeMB(ctx)),
	}

	chunks, err := s.idx.Count(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index", map[string]interface{}{
			"error": err.Error(),
		})
	}
	docs, err := s.idx.CountDocuments(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read index", map[string]interface{}{
			"error": err.Error(),
		})
	}
	response["chunks_count"] = chunks
	response["documents_count"] = docs

	ws, err := s.idx.GetWorkspace(ctx)
	switch {
	case errors.Is(err, index.ErrNotFound):
		response["synced"] = false
		response["message"] = "No completed sync. Use the sync_workspace tool first."
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "failed to read workspace status", map[string]interface{}{
			"error": err.Error(),
		})
	default:
		response["synced"] = true
		response["workspace"] = map[string]interface{}{
			"name":            ws.Name,
			"total_documents": ws.TotalDocuments,
			"total_chunks":    ws.TotalChunks,
			"last_synced_at":  ws.LastSyncedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
