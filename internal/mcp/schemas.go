package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// buildCorpusTool returns the tool definition for build_corpus
func buildCorpusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "build_corpus",
		Description: "Merge the stored fragments into a canonical documentation corpus and snapshot its symbols",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"strict": map[string]any{
					"type":        "boolean",
					"description": "If true, any symbol that fails to decode or merge fails the whole build",
					"default":     true,
				},
				"workers": map[string]any{
					"type":        "integer",
					"description": "Number of concurrent merge workers (0 uses every CPU)",
					"default":     0,
					"minimum":     0,
					"maximum":     256,
				},
			},
		},
	}
}

// getSymbolTool returns the tool definition for get_symbol
func getSymbolTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_symbol",
		Description: "Get the merged description of one symbol by its id",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "Symbol id as 40 hex digits",
				},
			},
			Required: []string{"id"},
		},
	}
}

// listSymbolsTool returns the tool definition for list_symbols
func listSymbolsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_symbols",
		Description: "List symbols of the last build in canonical order, optionally filtered by qualified name prefix",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"prefix": map[string]any{
					"type":        "string",
					"description": "Case-sensitive qualified name prefix (e.g., 'ns1::')",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum number of symbols to return (1-1000)",
					"default":     100,
					"minimum":     1,
					"maximum":     1000,
				},
			},
		},
	}
}

// getIndexTool returns the tool definition for get_index
func getIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_index",
		Description: "Get the symbol index tree of the current corpus, rooted at the global namespace or at a symbol",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "Optional symbol id to root the tree at",
				},
				"depth": map[string]any{
					"type":        "integer",
					"description": "Number of levels of children to include (1-16)",
					"default":     1,
					"minimum":     1,
					"maximum":     16,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report stored fragments, the last build and whether a corpus is loaded",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]any{},
		},
	}
}
