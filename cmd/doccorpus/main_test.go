package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/doccorpus/internal/bitcode"
	"github.com/dshills/doccorpus/internal/config"
	"github.com/dshills/doccorpus/internal/indexer"
	"github.com/dshills/doccorpus/pkg/types"
)

// writeFragments lays out a global namespace holding one function, as
// seen by two units
func writeFragments(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	var fnID types.SymbolID
	fnID[0] = 0xA
	global := types.NewInfo(types.KindNamespace, types.GlobalNamespaceID).(*types.NamespaceInfo)
	fn := types.NewInfo(types.KindFunction, fnID).(*types.FunctionInfo)
	fn.Name = "main"
	fn.Namespace = []types.Reference{global.Ref()}
	fn.Parent = global.Ref()
	global.Children.Functions = []types.Reference{fn.Ref()}

	for _, unit := range []string{"a.cpp", "b.cpp"} {
		for _, info := range []types.Info{global, fn} {
			data, err := bitcode.Serialize(info)
			require.NoError(t, err)
			_, err = indexer.WriteFragment(root, types.Fragment{ID: info.Base().ID, Unit: unit, Data: data})
			require.NoError(t, err)
		}
	}
	return root
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(config.EnvDBPath, "")

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestIngestThenBuild(t *testing.T) {
	fragments := writeFragments(t)
	db := filepath.Join(t.TempDir(), "db", "doccorpus.db")

	out, err := run(t, "ingest", fragments, "--db", db, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Ingested 4 fragments (4 stored)")

	// Ingesting again replaces the same fragments
	out, err = run(t, "ingest", fragments, "--db", db, "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "(4 stored)")

	metricsFile := filepath.Join(t.TempDir(), "build.prom")
	out, err = run(t, "build", "--db", db, "--log-level", "error", "--metrics-file", metricsFile)
	require.NoError(t, err)
	assert.Contains(t, out, "Symbols:   2")
	assert.Contains(t, out, "Fragments: 4")
	assert.Contains(t, out, "Snapshot:  build 1")

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `doccorpus_builds_total{status="ok"} 1`)
}

func TestBuildFromDirectory(t *testing.T) {
	fragments := writeFragments(t)

	out, err := run(t, "build", fragments, "--no-snapshot", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "Symbols:   2")
	assert.NotContains(t, out, "Snapshot")
}

func TestBuildStrictFailure(t *testing.T) {
	fragments := writeFragments(t)
	var id types.SymbolID
	id[0] = 0x50
	_, err := indexer.WriteFragment(fragments, types.Fragment{ID: id, Unit: "c.cpp", Data: []byte("junk")})
	require.NoError(t, err)

	_, err = run(t, "build", fragments, "--no-snapshot", "--log-level", "error")
	assert.ErrorIs(t, err, types.ErrBuildFailed)

	out, err := run(t, "build", fragments, "--no-snapshot", "--lenient", "--log-level", "error")
	require.NoError(t, err)
	assert.Contains(t, out, "(1 failed)")
}

func TestConfigFile(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "doccorpus.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("log_level: shout\n"), 0o644))

	_, err := run(t, "build", "--config", cfgPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown log level")
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "doccorpus dev")
	assert.Contains(t, out, "Fragment Version: 1")
}
