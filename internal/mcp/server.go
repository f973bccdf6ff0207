package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/doccorpus/internal/corpus"
	"github.com/dshills/doccorpus/internal/indexer"
	"github.com/dshills/doccorpus/internal/logger"
	"github.com/dshills/doccorpus/internal/metrics"
	"github.com/dshills/doccorpus/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "doccorpus"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Options configures a Server
type Options struct {
	DBPath  string          // SQLite database file, "~" is expanded
	Build   *indexer.Config // Defaults for build_corpus
	Logger  *logger.Logger
	Metrics *metrics.Metrics
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp     *server.MCPServer
	storage storage.Storage
	indexer *indexer.Indexer
	build   indexer.Config
	log     *logger.Logger
	metrics *metrics.Metrics
	dbPath  string

	lock indexer.BuildLock

	mu     sync.RWMutex
	corpus *corpus.Corpus // Last canonical corpus, nil until a build succeeds
}

// NewServer opens the database at opts.DBPath and creates a new MCP server
func NewServer(opts Options) (*Server, error) {
	dbPath, err := ExpandPath(opts.DBPath)
	if err != nil {
		return nil, err
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	opts.DBPath = dbPath
	return newServer(store, opts), nil
}

func newServer(store storage.Storage, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}
	build := indexer.DefaultConfig()
	if opts.Build != nil {
		build = opts.Build
	}

	s := &Server{
		mcp:     server.NewMCPServer(ServerName, ServerVersion),
		storage: store,
		indexer: indexer.New(log, m),
		build:   *build,
		log:     log.Component("mcp"),
		metrics: m,
		dbPath:  opts.DBPath,
	}
	s.registerTools()
	return s
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()

	s.log.LogServerStart(ServerName, ServerVersion, s.dbPath)
	defer s.log.LogServerShutdown()
	return server.ServeStdio(s.mcp)
}

// Close releases the storage
func (s *Server) Close() error {
	return s.storage.Close()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcp.AddTool(buildCorpusTool(), s.instrument("build_corpus", s.handleBuildCorpus))
	s.mcp.AddTool(getSymbolTool(), s.instrument("get_symbol", s.handleGetSymbol))
	s.mcp.AddTool(listSymbolsTool(), s.instrument("list_symbols", s.handleListSymbols))
	s.mcp.AddTool(getIndexTool(), s.instrument("get_index", s.handleGetIndex))
	s.mcp.AddTool(getStatusTool(), s.instrument("get_status", s.handleGetStatus))
}

// instrument counts every call of a tool handler
func (s *Server) instrument(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := h(ctx, request)
		s.metrics.RecordToolCall(name, err)
		if err != nil {
			s.log.Debug().Str("tool", name).Err(err).Msg("Tool call failed")
		}
		return result, err
	}
}

// currentCorpus returns the corpus of the last successful build
func (s *Server) currentCorpus() *corpus.Corpus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.corpus
}

// ExpandPath expands a leading "~" to the user's home directory
func ExpandPath(path string) (string, error) {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
	}
	return path, nil
}
