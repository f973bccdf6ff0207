package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/dshills/doccorpus/internal/bitcode"
	"github.com/dshills/doccorpus/pkg/types"
)

func testID(b byte) types.SymbolID {
	var id types.SymbolID
	id[0] = b
	return id
}

var (
	globalRef = types.Reference{ID: types.GlobalNamespaceID, Kind: types.KindNamespace}
	ns1Ref    = types.Reference{ID: testID(1), Name: "ns1", Kind: types.KindNamespace}
	zetaRef   = types.Reference{ID: testID(2), Name: "zeta", Kind: types.KindFunction}
	alphaRef  = types.Reference{ID: testID(3), Name: "Alpha", Kind: types.KindFunction}
)

// fixtureInfos describes namespace ns1 { void zeta(); void Alpha(); }
func fixtureInfos() []types.Info {
	global := types.NewInfo(types.KindNamespace, types.GlobalNamespaceID).(*types.NamespaceInfo)
	global.Children.Namespaces = []types.Reference{ns1Ref}

	ns1 := types.NewInfo(types.KindNamespace, ns1Ref.ID).(*types.NamespaceInfo)
	ns1.Name = "ns1"
	ns1.Namespace = []types.Reference{globalRef}
	ns1.Children.Functions = []types.Reference{zetaRef, alphaRef}

	infos := []types.Info{global, ns1}
	for _, ref := range []types.Reference{zetaRef, alphaRef} {
		fn := types.NewInfo(types.KindFunction, ref.ID).(*types.FunctionInfo)
		fn.Name = ref.Name
		fn.Namespace = []types.Reference{globalRef, ns1Ref}
		fn.Parent = ns1Ref
		fn.ReturnType = types.TypeInfo{Type: types.Reference{Name: "void"}}
		infos = append(infos, fn)
	}
	return infos
}

// ServerTestSuite exercises the tool handlers against an on-disk database
type ServerTestSuite struct {
	suite.Suite
	server *Server
	dbPath string
	ctx    context.Context
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

// SetupTest creates a fresh server and fragment store for each test
func (s *ServerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.dbPath = filepath.Join(s.T().TempDir(), "nested", "doccorpus.db")

	srv, err := NewServer(Options{DBPath: s.dbPath})
	s.Require().NoError(err)
	s.server = srv

	for _, unit := range []string{"a.cpp", "b.cpp"} {
		for _, info := range fixtureInfos() {
			data, err := bitcode.Serialize(info)
			s.Require().NoError(err)
			s.Require().NoError(s.server.storage.PutFragment(s.ctx, types.Fragment{
				ID: info.Base().ID, Unit: unit, Data: data,
			}))
		}
	}
}

// TearDownTest closes the database
func (s *ServerTestSuite) TearDownTest() {
	_ = s.server.Close()
}

// call invokes a handler and decodes its JSON response
func (s *ServerTestSuite) call(h server.ToolHandlerFunc, args map[string]any) (map[string]any, error) {
	request := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
	result, err := h(s.ctx, request)
	if err != nil {
		return nil, err
	}
	s.Require().NotNil(result)
	s.Require().NotEmpty(result.Content)

	text, ok := result.Content[0].(mcp.TextContent)
	s.Require().True(ok, "response should be text")

	var out map[string]any
	s.Require().NoError(json.Unmarshal([]byte(text.Text), &out))
	return out, nil
}

func (s *ServerTestSuite) requireCode(err error, code int) {
	s.Require().Error(err)
	var mcpErr *MCPError
	s.Require().True(errors.As(err, &mcpErr), "expected MCPError, got %v", err)
	s.Equal(code, mcpErr.Code, mcpErr.Message)
}

func (s *ServerTestSuite) build() map[string]any {
	out, err := s.call(s.server.handleBuildCorpus, nil)
	s.Require().NoError(err)
	return out
}

func (s *ServerTestSuite) TestBuildCorpus() {
	out := s.build()

	s.Equal(true, out["built"])
	s.EqualValues(4, out["groups"])
	s.EqualValues(8, out["fragments"])
	s.EqualValues(4, out["symbols"])
	s.EqualValues(0, out["groups_failed"])
	s.NotContains(out, "errors")

	status, err := s.call(s.server.handleGetStatus, nil)
	s.Require().NoError(err)
	s.Equal(true, status["corpus_loaded"])
	s.EqualValues(8, status["fragments"])
	s.Equal(false, status["building"])

	last, ok := status["last_build"].(map[string]any)
	s.Require().True(ok)
	s.Equal(true, last["canonical"])
	s.EqualValues(4, last["symbols"])
}

func (s *ServerTestSuite) TestStatusBeforeBuild() {
	status, err := s.call(s.server.handleGetStatus, nil)
	s.Require().NoError(err)
	s.Equal(false, status["corpus_loaded"])
	s.NotContains(status, "last_build")
	s.Contains(status["message"], "build_corpus")
}

func (s *ServerTestSuite) TestBuildCorpus_StrictFailure() {
	s.Require().NoError(s.server.storage.PutFragment(s.ctx, types.Fragment{
		ID: testID(0x50), Unit: "c.cpp", Data: []byte("junk"),
	}))

	_, err := s.call(s.server.handleBuildCorpus, map[string]any{"strict": true})
	s.requireCode(err, ErrorCodeBuildFailed)

	var mcpErr *MCPError
	s.Require().True(errors.As(err, &mcpErr))
	data, ok := mcpErr.Data.(map[string]any)
	s.Require().True(ok)
	s.Contains(data["error"], "build failed")

	// Lenient builds leave the broken symbol out
	out, err := s.call(s.server.handleBuildCorpus, map[string]any{"strict": false})
	s.Require().NoError(err)
	s.EqualValues(1, out["groups_failed"])
	s.EqualValues(4, out["symbols"])
	s.Len(out["errors"], 1)
}

func (s *ServerTestSuite) TestBuildCorpus_InProgress() {
	s.Require().True(s.server.lock.TryAcquire())
	defer s.server.lock.Release()

	_, err := s.call(s.server.handleBuildCorpus, nil)
	s.requireCode(err, ErrorCodeBuildInProgress)
}

func (s *ServerTestSuite) TestBuildCorpus_InvalidWorkers() {
	_, err := s.call(s.server.handleBuildCorpus, map[string]any{"workers": float64(-1)})
	s.requireCode(err, ErrorCodeInvalidParams)
}

func (s *ServerTestSuite) TestGetSymbol() {
	_, err := s.call(s.server.handleGetSymbol, map[string]any{"id": zetaRef.ID.String()})
	s.requireCode(err, ErrorCodeSymbolNotFound)

	s.build()

	out, err := s.call(s.server.handleGetSymbol, map[string]any{"id": zetaRef.ID.String()})
	s.Require().NoError(err)
	s.Equal(zetaRef.ID.String(), out["id"])
	s.Equal("function", out["kind"])
	s.Equal("ns1::zeta", out["qualified_name"])

	info, ok := out["info"].(map[string]any)
	s.Require().True(ok)
	s.Equal("zeta", info["Name"])

	_, err = s.call(s.server.handleGetSymbol, map[string]any{"id": testID(0x77).String()})
	s.requireCode(err, ErrorCodeSymbolNotFound)
}

func (s *ServerTestSuite) TestGetSymbol_InvalidID() {
	tests := []map[string]any{
		nil,
		{"id": ""},
		{"id": "xyz"},
		{"id": "0a"},
	}
	for _, args := range tests {
		_, err := s.call(s.server.handleGetSymbol, args)
		s.requireCode(err, ErrorCodeInvalidParams)
	}
}

func (s *ServerTestSuite) TestGetSymbol_FromSnapshot() {
	s.build()
	s.Require().NoError(s.server.Close())

	// A new process sees the snapshot but has no corpus loaded
	srv, err := NewServer(Options{DBPath: s.dbPath})
	s.Require().NoError(err)
	s.server = srv

	out, err := s.call(s.server.handleGetSymbol, map[string]any{"id": alphaRef.ID.String()})
	s.Require().NoError(err)
	s.Equal(false, out["loaded"])
	s.Equal("ns1::Alpha", out["qualified_name"])
	s.EqualValues(2, out["position"])
}

func (s *ServerTestSuite) TestListSymbols() {
	s.build()

	out, err := s.call(s.server.handleListSymbols, map[string]any{"prefix": "ns1::"})
	s.Require().NoError(err)
	s.EqualValues(2, out["count"])

	symbols, ok := out["symbols"].([]any)
	s.Require().True(ok)
	var names []string
	for _, sym := range symbols {
		names = append(names, sym.(map[string]any)["qualified_name"].(string))
	}
	s.Equal([]string{"ns1::Alpha", "ns1::zeta"}, names)

	out, err = s.call(s.server.handleListSymbols, map[string]any{"limit": float64(1)})
	s.Require().NoError(err)
	s.EqualValues(1, out["count"])

	_, err = s.call(s.server.handleListSymbols, map[string]any{"limit": float64(0)})
	s.requireCode(err, ErrorCodeInvalidParams)
}

func (s *ServerTestSuite) TestGetIndex() {
	_, err := s.call(s.server.handleGetIndex, nil)
	s.requireCode(err, ErrorCodeNotBuilt)

	s.build()

	root, err := s.call(s.server.handleGetIndex, nil)
	s.Require().NoError(err)
	s.EqualValues(1, root["child_count"])
	children, ok := root["children"].([]any)
	s.Require().True(ok)
	ns1 := children[0].(map[string]any)
	s.Equal("ns1", ns1["name"])
	s.NotContains(ns1, "children", "depth 1 stops below the root's children")

	deep, err := s.call(s.server.handleGetIndex, map[string]any{"depth": float64(2)})
	s.Require().NoError(err)
	ns1 = deep["children"].([]any)[0].(map[string]any)
	var names []string
	for _, child := range ns1["children"].([]any) {
		names = append(names, child.(map[string]any)["name"].(string))
	}
	s.Equal([]string{"Alpha", "zeta"}, names)

	sub, err := s.call(s.server.handleGetIndex, map[string]any{"id": ns1Ref.ID.String()})
	s.Require().NoError(err)
	s.Equal("namespace", sub["kind"])
	s.EqualValues(2, sub["child_count"])

	_, err = s.call(s.server.handleGetIndex, map[string]any{"id": testID(0x77).String()})
	s.requireCode(err, ErrorCodeSymbolNotFound)

	_, err = s.call(s.server.handleGetIndex, map[string]any{"depth": float64(17)})
	s.requireCode(err, ErrorCodeInvalidParams)
}

func (s *ServerTestSuite) TestInstrumentCountsCalls() {
	h := s.server.instrument("get_symbol", s.server.handleGetSymbol)
	_, err := s.call(h, map[string]any{"id": "bad"})
	s.Error(err)

	s.Equal(1.0, testutil.ToFloat64(s.server.metrics.ToolCallsTotal.WithLabelValues("get_symbol", "error")))
	s.Equal(0.0, testutil.ToFloat64(s.server.metrics.ToolCallsTotal.WithLabelValues("get_symbol", "ok")))
}

func (s *ServerTestSuite) TestInvalidArguments() {
	request := mcp.CallToolRequest{Params: mcp.CallToolParams{Arguments: "not a map"}}
	_, err := s.server.handleListSymbols(s.ctx, request)
	s.requireCode(err, ErrorCodeInvalidParams)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
	}{
		{"~", home},
		{"~/.doccorpus/doccorpus.db", filepath.Join(home, ".doccorpus", "doccorpus.db")},
		{"/tmp/db.sqlite", "/tmp/db.sqlite"},
		{"relative.db", "relative.db"},
		{"~user/db", "~user/db"},
	}
	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMCPError(t *testing.T) {
	err := newMCPError(ErrorCodeNotBuilt, "no corpus", nil)
	assert.Equal(t, "MCP error -32003: no corpus", err.Error())
}
