package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-argstore/pkg/state/filestore"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeDefaults(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defaults.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const paintDefaults = `_:
  color: red
  size: 1
paint:
  color: blue
`

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	assert.Equal(t, "argctl", cmd.Use)

	for _, name := range []string{"resolve", "trace", "describe", "set", "patch", "import", "export"} {
		found, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s", name)
		assert.Equal(t, name, found.Name())
	}

	for _, flag := range []string{"config", "format", "db", "file", "namespace", "wildcard", "patch-mode", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "flag %s", flag)
	}
	assert.Equal(t, "text", cmd.PersistentFlags().Lookup("format").DefValue)
	assert.Equal(t, "_", cmd.PersistentFlags().Lookup("wildcard").DefValue)
}

func TestInvalidFormatIsUserError(t *testing.T) {
	_, err := execute(t, "--format", "xml", "resolve", "paint")
	require.Error(t, err)
	assert.True(t, IsUser(err))
	assert.Contains(t, err.Error(), "invalid format")
}

func TestResolveLayersFileOverridesAndSetFlags(t *testing.T) {
	path := writeDefaults(t, paintDefaults)

	out, err := execute(t, "--file", path, "resolve", "paint", "--set", "size=3")
	require.NoError(t, err)
	assert.Equal(t, "color = \"blue\"\nsize = 3\n", out)

	out, err = execute(t, "--file", path, "resolve", "paint", "--override", `{"color":"green"}`, "--set", "color=black")
	require.NoError(t, err)
	assert.Equal(t, "color = \"black\"\nsize = 1\n", out)

	out, err = execute(t, "--file", path, "resolve", "_")
	require.NoError(t, err)
	assert.Equal(t, "color = \"red\"\nsize = 1\n", out)
}

func TestResolveWithoutBackingStore(t *testing.T) {
	out, err := execute(t, "resolve", "paint")
	require.NoError(t, err)
	assert.Equal(t, "(no arguments)\n", out)
}

func TestResolveJSONEnvelope(t *testing.T) {
	path := writeDefaults(t, paintDefaults)

	out, err := execute(t, "--file", path, "--format", "json", "resolve", "paint")
	require.NoError(t, err)

	var resp struct {
		Status string         `json:"status"`
		Data   map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"color": "blue", "size": float64(1)}, resp.Data)
}

func TestResolveRejectsMalformedOverrides(t *testing.T) {
	_, err := execute(t, "resolve", "paint", "--override", "[1,2]")
	require.Error(t, err)
	assert.True(t, IsUser(err))

	_, err = execute(t, "resolve", "paint", "--set", "=3")
	require.Error(t, err)
	assert.True(t, IsUser(err))
}

func TestTraceMarksEffectiveAndShadowed(t *testing.T) {
	path := writeDefaults(t, paintDefaults)

	out, err := execute(t, "--file", path, "trace", "paint", "color")
	require.NoError(t, err)
	assert.Contains(t, out, "paint.color\n")
	assert.Contains(t, out, "override  (not set)")
	assert.Contains(t, out, `function  "blue"  effective`)
	assert.Contains(t, out, `wildcard  "red"  shadowed`)
}

func TestDescribeListsTypes(t *testing.T) {
	path := writeDefaults(t, paintDefaults)

	out, err := execute(t, "--file", path, "describe", "paint", "--set", `brush={"width":2}`)
	require.NoError(t, err)
	assert.Contains(t, out, "brush.width\tfloat64\n")
	assert.Contains(t, out, "color\tstring\n")
}

func TestSetAndPatchPersistToFile(t *testing.T) {
	path := writeDefaults(t, paintDefaults)

	out, err := execute(t, "--file", path, "set", "paint", "size", "4")
	require.NoError(t, err)
	assert.Equal(t, "color = \"blue\"\nsize = 4\n", out)

	_, err = execute(t, "--file", path, "patch", "paint", `{"color":"green","opacity":0.5}`)
	require.NoError(t, err)

	snapshot, err := filestore.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"color": "green", "size": 4, "opacity": 0.5}, map[string]any(snapshot["paint"]))
	assert.Equal(t, "red", snapshot["_"]["color"])
}

func TestPatchNestOldFromEnvironment(t *testing.T) {
	path := writeDefaults(t, paintDefaults)
	t.Setenv("ARGCTL_PATCH_MODE", "nest-old")

	out, err := execute(t, "--file", path, "--format", "json", "patch", "paint", `{"size":2}`)
	require.NoError(t, err)

	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, float64(2), resp.Data["size"])
	assert.Equal(t, map[string]any{"color": "blue"}, resp.Data["old"])
}

func TestEditRequiresBackingStore(t *testing.T) {
	_, err := execute(t, "set", "paint", "size", "4")
	require.Error(t, err)
	assert.True(t, IsUser(err))
	assert.Contains(t, err.Error(), "--db or --file")
}

func TestFileMustBeYAML(t *testing.T) {
	_, err := execute(t, "--file", filepath.Join(t.TempDir(), "defaults.yml"), "resolve", "paint")
	require.Error(t, err)
	assert.True(t, IsUser(err))
}

func TestDBAndFileAreExclusive(t *testing.T) {
	dir := t.TempDir()
	_, err := execute(t, "--db", filepath.Join(dir, "args.db"), "--file", filepath.Join(dir, "d.yaml"), "resolve", "paint")
	require.Error(t, err)
	assert.True(t, IsUser(err))
}

func TestImportAndExportThroughSQLite(t *testing.T) {
	source := writeDefaults(t, paintDefaults)
	db := filepath.Join(t.TempDir(), "args.db")

	out, err := execute(t, "--db", db, "import", source)
	require.NoError(t, err)
	assert.Equal(t, "imported 2 records (2 total)\n", out)

	out, err = execute(t, "--db", db, "resolve", "paint")
	require.NoError(t, err)
	assert.Equal(t, "color = \"blue\"\nsize = 1\n", out)

	out, err = execute(t, "--db", db, "export")
	require.NoError(t, err)
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "export", []byte(out))
	snapshot, err := filestore.Decode(bytes.NewBufferString(out))
	require.NoError(t, err)
	assert.Equal(t, "blue", snapshot["paint"]["color"])
	assert.Equal(t, "red", snapshot["_"]["color"])

	out, err = execute(t, "--db", db, "--namespace", "other", "export")
	require.NoError(t, err)
	assert.Equal(t, "{}\n", out)
}

func TestImportMissingFileIsUserError(t *testing.T) {
	_, err := execute(t, "--db", filepath.Join(t.TempDir(), "args.db"), "import", "/does/not/exist.yaml")
	require.Error(t, err)
	assert.True(t, IsUser(err))
}

func TestConfigFileSetsWildcardMarker(t *testing.T) {
	dir := t.TempDir()
	defaults := filepath.Join(dir, "defaults.yaml")
	require.NoError(t, os.WriteFile(defaults, []byte("\"*\":\n  color: red\n"), 0o644))
	config := filepath.Join(dir, "argctl.yaml")
	require.NoError(t, os.WriteFile(config, []byte("wildcard: \"*\"\nfile: "+defaults+"\n"), 0o644))

	out, err := execute(t, "--config", config, "resolve", "paint")
	require.NoError(t, err)
	assert.Equal(t, "color = \"red\"\n", out)

	_, err = execute(t, "--config", filepath.Join(dir, "missing.yaml"), "resolve", "paint")
	require.Error(t, err)
	assert.True(t, IsUser(err))
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "resolve", "paint")
	require.Error(t, err)
	assert.True(t, IsUser(err))
}
