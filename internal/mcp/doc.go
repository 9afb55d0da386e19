// Package mcp implements the Model Context Protocol (MCP) server for
// notionvec.
//
// The server exposes three tools to AI assistants:
//   - sync_workspace: Synchronize the Notion workspace into the vector index
//   - search_pages: Search indexed pages with natural language queries
//   - get_status: Report index statistics and the last completed sync
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server reads protocol messages on stdin and writes responses to
// stdout, so all logging goes to stderr.
//
// # Basic Usage
//
// The server is started via the serve command:
//
//	notionvec serve
//
// # Tool: search_pages
//
//	Request:
//	{
//	  "name": "search_pages",
//	  "arguments": {
//	    "query": "onboarding checklist for new hires",
//	    "limit": 10
//	  }
//	}
//
// Results carry rank, similarity score, page title, URL, and the matching
// chunk text.
package mcp
