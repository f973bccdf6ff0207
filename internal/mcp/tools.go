package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/doccorpus/internal/corpus"
	"github.com/dshills/doccorpus/internal/indexer"
	"github.com/dshills/doccorpus/internal/storage"
	"github.com/dshills/doccorpus/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeSymbolNotFound  = -32001 // No symbol with the requested id
	ErrorCodeBuildInProgress = -32002 // Another build is already running
	ErrorCodeNotBuilt        = -32003 // No corpus has been built yet
	ErrorCodeBuildFailed     = -32004 // The build or canonicalization failed
)

// maxReportedErrors caps the error messages included in a build response
const maxReportedErrors = 5

// handleBuildCorpus handles the build_corpus tool invocation
func (s *Server) handleBuildCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	strict := getBoolDefault(args, "strict", s.build.Strict)
	workers := getIntDefault(args, "workers", s.build.Workers)
	if workers < 0 || workers > 256 {
		return nil, newMCPError(ErrorCodeInvalidParams, "workers must be between 0 and 256", map[string]any{
			"param": "workers",
			"value": workers,
		})
	}

	if !s.lock.TryAcquire() {
		return nil, newMCPError(ErrorCodeBuildInProgress, "a build is already running", nil)
	}
	defer s.lock.Release()

	config := &indexer.Config{
		Workers: workers,
		Strict:  strict,
		Verbose: s.build.Verbose,
	}
	c, stats, err := s.indexer.Build(ctx, s.storage, config)
	if err != nil {
		data := map[string]any{"error": err.Error()}
		if stats != nil {
			addErrors(data, stats.ErrorMessages)
		}
		return nil, newMCPError(ErrorCodeBuildFailed, "build failed", data)
	}

	s.log.Info().Msg("Canonicalizing...")
	if err := c.Canonicalize(); err != nil {
		return nil, newMCPError(ErrorCodeBuildFailed, "canonicalization failed", map[string]any{
			"error": err.Error(),
		})
	}

	build := &storage.Build{
		Groups:    stats.Groups,
		Fragments: stats.Fragments,
		Symbols:   c.Len(),
		Failed:    stats.GroupsFailed,
		Canonical: true,
		Duration:  stats.Duration,
	}
	if err := s.snapshot(ctx, c, build); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to store snapshot", map[string]any{
			"error": err.Error(),
		})
	}

	s.mu.Lock()
	s.corpus = c
	s.mu.Unlock()
	s.metrics.StoredFragments.Set(float64(stats.Fragments))

	response := map[string]any{
		"built":          true,
		"build_id":       build.ID,
		"groups":         stats.Groups,
		"fragments":      stats.Fragments,
		"symbols":        c.Len(),
		"groups_failed":  stats.GroupsFailed,
		"strict":         strict,
		"duration_ms":    stats.Duration.Milliseconds(),
		"symbols_merged": stats.SymbolsMerged,
	}
	addErrors(response, stats.ErrorMessages)

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// snapshot stores the symbols of c and the build record atomically
func (s *Server) snapshot(ctx context.Context, c *corpus.Corpus, build *storage.Build) error {
	tx, err := s.storage.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.ReplaceSymbols(ctx, storage.SnapshotSymbols(c)); err != nil {
		return err
	}
	if err := tx.RecordBuild(ctx, build); err != nil {
		return err
	}
	return tx.Commit()
}

// handleGetSymbol handles the get_symbol tool invocation
func (s *Server) handleGetSymbol(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}
	id, err := symbolIDParam(args, "id", true)
	if err != nil {
		return nil, err
	}

	// Full description from the loaded corpus
	if c := s.currentCorpus(); c != nil {
		info, ok := c.Lookup(id)
		if !ok {
			return nil, symbolNotFound(id)
		}
		b := info.Base()
		response := map[string]any{
			"id":             id,
			"kind":           b.Kind,
			"qualified_name": c.QualifiedName(id),
			"info":           info,
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}

	// Summary from the snapshot of an earlier process
	sym, err := s.storage.GetSymbol(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, symbolNotFound(id)
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get symbol", map[string]any{
			"error": err.Error(),
		})
	}
	response := symbolJSON(sym)
	response["loaded"] = false
	response["message"] = "Corpus not loaded. Use build_corpus for the full description."
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListSymbols handles the list_symbols tool invocation
func (s *Server) handleListSymbols(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	prefix := getStringDefault(args, "prefix", "")
	limit := getIntDefault(args, "limit", storage.DefaultListLimit)
	if limit < 1 || limit > 1000 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 1000", map[string]any{
			"param": "limit",
			"value": limit,
		})
	}

	symbols, err := s.storage.ListSymbols(ctx, prefix, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list symbols", map[string]any{
			"error": err.Error(),
		})
	}

	list := make([]map[string]any, 0, len(symbols))
	for _, sym := range symbols {
		list = append(list, symbolJSON(sym))
	}
	response := map[string]any{
		"prefix":  prefix,
		"count":   len(list),
		"symbols": list,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetIndex handles the get_index tool invocation
func (s *Server) handleGetIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	depth := getIntDefault(args, "depth", 1)
	if depth < 1 || depth > 16 {
		return nil, newMCPError(ErrorCodeInvalidParams, "depth must be between 1 and 16", map[string]any{
			"param": "depth",
			"value": depth,
		})
	}
	id, err := symbolIDParam(args, "id", false)
	if err != nil {
		return nil, err
	}

	c := s.currentCorpus()
	if c == nil {
		return nil, newMCPError(ErrorCodeNotBuilt, "no corpus loaded; use build_corpus first", nil)
	}
	node, ok := c.IndexNodeOf(id)
	if !ok {
		return nil, symbolNotFound(id)
	}

	return mcp.NewToolResultText(formatJSON(indexJSON(node, depth))), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fragments, err := s.storage.CountFragments(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count fragments", map[string]any{
			"error": err.Error(),
		})
	}
	s.metrics.StoredFragments.Set(float64(fragments))

	response := map[string]any{
		"fragments":      fragments,
		"building":       s.lock.Busy(),
		"corpus_loaded":  false,
		"database":       s.dbPath,
		"server_version": ServerVersion,
	}
	if c := s.currentCorpus(); c != nil {
		response["corpus_loaded"] = true
		response["symbols"] = c.Len()
	}

	build, err := s.storage.LatestBuild(ctx)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		response["message"] = "No build recorded. Use build_corpus to build the corpus."
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "failed to get last build", map[string]any{
			"error": err.Error(),
		})
	default:
		response["last_build"] = map[string]any{
			"id":          build.ID,
			"groups":      build.Groups,
			"fragments":   build.Fragments,
			"symbols":     build.Symbols,
			"failed":      build.Failed,
			"canonical":   build.Canonical,
			"duration_ms": build.Duration.Milliseconds(),
			"built_at":    build.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data any) error {
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
	Data    any
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func symbolNotFound(id types.SymbolID) error {
	return newMCPError(ErrorCodeSymbolNotFound, "symbol not found", map[string]any{
		"id": id.String(),
	})
}

// arguments returns the tool arguments, treating absent arguments as empty
func arguments(request mcp.CallToolRequest) (map[string]any, error) {
	switch args := request.Params.Arguments.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return args, nil
	default:
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
}

// symbolIDParam parses a hex symbol id argument. An absent optional id is
// the global namespace.
func symbolIDParam(args map[string]any, key string, required bool) (types.SymbolID, error) {
	raw, ok := args[key].(string)
	if !ok || raw == "" {
		if required {
			return types.SymbolID{}, newMCPError(ErrorCodeInvalidParams, key+" parameter is required", map[string]any{
				"param":  key,
				"reason": "missing or empty",
			})
		}
		return types.GlobalNamespaceID, nil
	}
	id, err := types.ParseSymbolID(raw)
	if err != nil {
		return types.SymbolID{}, newMCPError(ErrorCodeInvalidParams, "invalid symbol id", map[string]any{
			"param":  key,
			"reason": err.Error(),
		})
	}
	return id, nil
}

func symbolJSON(sym *storage.Symbol) map[string]any {
	return map[string]any{
		"id":             sym.ID,
		"kind":           sym.Kind,
		"name":           sym.Name,
		"qualified_name": sym.QualifiedName,
		"path":           sym.Path,
		"position":       sym.Position,
	}
}

// indexJSON renders node and depth levels of its children
func indexJSON(node *corpus.IndexNode, depth int) map[string]any {
	out := map[string]any{
		"id":   node.ID,
		"name": node.Name,
		"kind": node.Kind,
	}
	if node.Path != "" {
		out["path"] = node.Path
	}
	out["child_count"] = len(node.Children)
	if depth > 0 && len(node.Children) > 0 {
		children := make([]map[string]any, 0, len(node.Children))
		for _, child := range node.Children {
			children = append(children, indexJSON(child, depth-1))
		}
		out["children"] = children
	}
	return out
}

// addErrors includes the first few error messages in a response
func addErrors(response map[string]any, messages []string) {
	if len(messages) == 0 {
		return
	}
	if len(messages) > maxReportedErrors {
		response["errors"] = messages[:maxReportedErrors]
		response["error_count"] = len(messages)
		return
	}
	response["errors"] = messages
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]any) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]any, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]any, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]any, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}
