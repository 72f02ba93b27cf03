package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const helloPlugin = `
Hello = { name = "hello", version = "1.0.0", description = "Says hello" }
function Hello:run()
    print("Hello, world!")
end
`

func pluginsDir(t *testing.T, files map[string]string) string {
	t.Helper()
	// keep a stray go-editor.yaml in the working directory out of the test
	t.Chdir(t.TempDir())
	dir := t.TempDir()
	for name, source := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(source), 0o644))
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootWithoutHelloPlugin(t *testing.T) {
	dir := pluginsDir(t, nil)

	out, err := execute(t, "--plugins-dir", dir)
	require.NoError(t, err)
	require.Equal(t, "Available plugins: [upper wordcount]\nNo plugin found with name: hello\n", out)
}

func TestRootRunsHelloPlugin(t *testing.T) {
	dir := pluginsDir(t, map[string]string{"hello.lua": helloPlugin})

	out, err := execute(t, "--plugins-dir", dir)
	require.NoError(t, err)
	require.Equal(t, "Available plugins: [hello upper wordcount]\nHello, world!\n", out)
}

func TestRootMissingPluginsDir(t *testing.T) {
	dir := pluginsDir(t, nil)

	_, err := execute(t, "--plugins-dir", filepath.Join(dir, "missing"))
	require.Error(t, err)
}

func TestRunCommandPrintsBuffer(t *testing.T) {
	dir := pluginsDir(t, nil)

	out, err := execute(t, "run", "upper", "--text", "shout this", "--plugins-dir", dir)
	require.NoError(t, err)
	require.Equal(t, "SHOUT THIS\n", out)
}

func TestRunCommandUnknownPlugin(t *testing.T) {
	dir := pluginsDir(t, nil)

	out, err := execute(t, "run", "nope", "--plugins-dir", dir)
	require.Error(t, err)
	require.Contains(t, out, "No plugin found with name: nope")
}

func TestListCommandJSON(t *testing.T) {
	dir := pluginsDir(t, map[string]string{"hello.lua": helloPlugin})

	out, err := execute(t, "list", "-o", "json", "--plugins-dir", dir)
	require.NoError(t, err)

	var infos []PluginInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 3)
	require.Equal(t, "hello", infos[0].Name)
	require.Equal(t, "Says hello", infos[0].Description)
	require.Equal(t, filepath.Join(dir, "hello.lua"), infos[0].Source)
}

func TestListCommandTable(t *testing.T) {
	dir := pluginsDir(t, map[string]string{"hello.lua": helloPlugin})

	out, err := execute(t, "list", "--plugins-dir", dir)
	require.NoError(t, err)
	require.Contains(t, out, "hello")
	require.Contains(t, out, "wordcount")
}

func TestListCommandRejectsUnknownFormat(t *testing.T) {
	dir := pluginsDir(t, nil)

	_, err := execute(t, "list", "-o", "xml", "--plugins-dir", dir)
	require.Error(t, err)
}

func TestConfigFileDisablesBuiltins(t *testing.T) {
	dir := pluginsDir(t, map[string]string{"hello.lua": helloPlugin})
	cfg := filepath.Join(t.TempDir(), "go-editor.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("builtins: false\nentry_plugin: none\n"), 0o644))

	out, err := execute(t, "--config", cfg, "--plugins-dir", dir)
	require.NoError(t, err)
	require.Equal(t, "Available plugins: [hello]\nNo plugin found with name: none\n", out)
}

func TestStorageEnabledThroughConfig(t *testing.T) {
	dir := pluginsDir(t, map[string]string{"counter.lua": `
Counter = { name = "counter" }
function Counter:run()
    local n = tonumber(storage.get("runs") or "0") + 1
    storage.set("runs", tostring(n))
    self.editor.set_text(tostring(n))
end
`})
	t.Setenv("GO_EDITOR_STORAGE_PATH", filepath.Join(t.TempDir(), "state", "storage.db"))

	out, err := execute(t, "run", "counter", "--plugins-dir", dir)
	require.NoError(t, err)
	require.Equal(t, "1\n", out)

	out, err = execute(t, "run", "counter", "--plugins-dir", dir)
	require.NoError(t, err)
	require.Equal(t, "2\n", out)
}

func TestFlagsOverrideConfigFile(t *testing.T) {
	dir := pluginsDir(t, map[string]string{"hello.lua": helloPlugin})
	cfg := filepath.Join(t.TempDir(), "go-editor.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("plugins_dir: /does/not/exist\nlog_level: not-a-level\n"), 0o644))

	out, err := execute(t, "run", "upper", "--config", cfg, "--plugins-dir", dir, "--text", "shout")
	require.NoError(t, err)
	require.Equal(t, "SHOUT\n", out)
}

func TestMissingConfigFileIsAnError(t *testing.T) {
	dir := pluginsDir(t, nil)

	_, err := execute(t, "--config", filepath.Join(dir, "missing.yaml"), "--plugins-dir", dir)
	require.Error(t, err)
}
