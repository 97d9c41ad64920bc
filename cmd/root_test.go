package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/attribution-cli/internal/attribution"
	"github.com/sells-group/attribution-cli/internal/flowgraph"
	"github.com/sells-group/attribution-cli/internal/store"
)

// execute runs the CLI with args against a temp SQLite store and returns
// stdout.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("ATTRIBUTION_LOG_LEVEL", "error")
	t.Setenv("ATTRIBUTION_STORE_DRIVER", "sqlite")
	t.Setenv("ATTRIBUTION_STORE_DATABASE_URL", filepath.Join(dir, "cli.db"))
	return dir
}

func writeExport(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"attribute", "compare", "graph", "import", "batches", "models", "serve"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "attribution-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestSourceFlags(t *testing.T) {
	for _, c := range []*cobra.Command{attributeCmd, compareCmd, graphCmd} {
		for _, name := range []string{"input", "input-format", "batch", "sample"} {
			assert.NotNil(t, c.Flags().Lookup(name), "%s should have --%s", c.Name(), name)
		}
	}
}

func TestAttribute_SampleJSON(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "attribute", "--sample", "--model", "linear", "--format", "json")
	require.NoError(t, err)

	var report creditReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, attribution.Linear, report.Model)
	assert.Equal(t, 30, report.Summary.Journeys)
	assert.InDelta(t, 30.0, report.Total, 1e-9)
	require.NotEmpty(t, report.Credits)

	var shares float64
	for _, v := range report.Shares {
		shares += v
	}
	assert.InDelta(t, 1.0, shares, 1e-9)
}

func TestAttribute_Table(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "attribute", "--sample")
	require.NoError(t, err)
	assert.Contains(t, out, "Model: Last Click (last_click)")
	assert.Contains(t, out, "CHANNEL")
	assert.Contains(t, out, "Email")
}

func TestAttribute_InputFile(t *testing.T) {
	dir := setupEnv(t)
	path := writeExport(t, dir, "journeys.csv", "id,steps,revenue\n1,Google>Email,100\n2,Facebook,\n")

	out, err := execute(t, "attribute", "--input", path, "--model", "first_click", "--revenue", "--format", "json")
	require.NoError(t, err)

	var report creditReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Revenue)
	assert.InDelta(t, 101.0, report.Total, 1e-9)
	require.Len(t, report.Credits, 2)
	assert.Equal(t, attribution.ChannelCredit{Channel: "Google", Credit: 100}, report.Credits[0])
}

func TestAttribute_Errors(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "attribute", "--sample", "--model", "markov")
	assert.ErrorIs(t, err, attribution.ErrInvalidModel)

	_, err = execute(t, "attribute")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of")

	_, err = execute(t, "attribute", "--sample", "--batch", "q3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of")

	_, err = execute(t, "attribute", "--sample", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}

func TestAttribute_DefaultModelFromConfig(t *testing.T) {
	setupEnv(t)
	t.Setenv("ATTRIBUTION_ATTRIBUTION_DEFAULT_MODEL", "time_decay")

	out, err := execute(t, "attribute", "--sample", "--format", "json")
	require.NoError(t, err)

	var report creditReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, attribution.TimeDecay, report.Model)
}

func TestCompare_Sample(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "compare", "--sample", "--models", "last_click, first_click", "--format", "json")
	require.NoError(t, err)

	var cmp attribution.Comparison
	require.NoError(t, json.Unmarshal([]byte(out), &cmp))
	assert.Equal(t, []attribution.Model{attribution.LastClick, attribution.FirstClick}, cmp.Models)
	require.Len(t, cmp.Credits, 2)
	assert.InDelta(t, 30.0, cmp.Credits[0].Total(), 1e-9)
	assert.InDelta(t, 30.0, cmp.Credits[1].Total(), 1e-9)

	out, err = execute(t, "compare", "--sample")
	require.NoError(t, err)
	assert.Contains(t, out, "POSITION_BASED")
	assert.Contains(t, out, "Google")
}

func TestGraph_SampleVerified(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "graph", "--sample", "--verify")
	require.NoError(t, err)

	var g flowgraph.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.NotEmpty(t, g.Nodes)
	assert.NotEmpty(t, g.Edges)
	assert.NoError(t, flowgraph.Verify(&g))
}

func TestImportAndBatches(t *testing.T) {
	dir := setupEnv(t)
	path := writeExport(t, dir, "q3.json", `[
		{"id": "1", "steps": ["Google", "Facebook", "Email"]},
		{"id": "2", "steps": ["Email", "Google"]}
	]`)

	out, err := execute(t, "import", "--input", path, "--batch", "q3")
	require.NoError(t, err)
	assert.Contains(t, out, `Imported 2 journeys into batch "q3".`)

	out, err = execute(t, "batches", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "BATCH")
	assert.Contains(t, out, "q3")

	out, err = execute(t, "attribute", "--batch", "q3", "--model", "first_click", "--format", "json")
	require.NoError(t, err)
	var report creditReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, 2, report.Summary.Journeys)

	out, err = execute(t, "graph", "--batch", "q3")
	require.NoError(t, err)
	var g flowgraph.Graph
	require.NoError(t, json.Unmarshal([]byte(out), &g))
	assert.Len(t, g.Rejected, 1)

	out, err = execute(t, "batches", "delete", "q3")
	require.NoError(t, err)
	assert.Contains(t, out, "2 journeys")

	_, err = execute(t, "batches", "delete", "q3")
	assert.ErrorIs(t, err, store.ErrBatchNotFound)

	_, err = execute(t, "attribute", "--batch", "q3")
	assert.ErrorIs(t, err, store.ErrBatchNotFound)
}

func TestImport_RequiresFlags(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "import", "--batch", "q3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input")
}

func TestImport_UnknownFormat(t *testing.T) {
	dir := setupEnv(t)
	path := writeExport(t, dir, "journeys.txt", "hello")

	_, err := execute(t, "import", "--input", path, "--batch", "q3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestModels(t *testing.T) {
	setupEnv(t)

	out, err := execute(t, "models")
	require.NoError(t, err)
	assert.Contains(t, out, "position_based")
	assert.Contains(t, out, "Position-based (U-shaped)")
	assert.Contains(t, out, "*")
}
