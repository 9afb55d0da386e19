package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// syncWorkspaceTool returns the tool definition for sync_workspace
func syncWorkspaceTool() mcp.Tool {
	return mcp.Tool{
		Name:        "sync_workspace",
		Description: "Synchronize the Notion workspace into the vector index, reprocessing only changed pages",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// searchPagesTool returns the tool definition for search_pages
func searchPagesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_pages",
		Description: "Search indexed Notion pages by semantic similarity",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-100)",
					"default":     10,
					"minimum":     1,
					"maximum":     100,
				},
			},
			Required: []string{"query"},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics and the last completed sync",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
