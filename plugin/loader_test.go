package plugin

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	text    string
	console bytes.Buffer
}

func (h *fakeHost) Text() string        { return h.text }
func (h *fakeHost) SetText(text string) { h.text = text }
func (h *fakeHost) Console() io.Writer  { return &h.console }

func writeScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func loadScript(t *testing.T, source string) (*Unit, *fakeHost, error) {
	t.Helper()
	host := &fakeHost{}
	path := writeScript(t, t.TempDir(), "script.lua", source)
	loader := &Loader{Timeout: time.Second}
	unit, err := loader.LoadFile(context.Background(), path, host)
	if unit != nil {
		t.Cleanup(unit.Close)
	}
	return unit, host, err
}

func TestLoader_LoadFileConstructsEveryDeclaration(t *testing.T) {
	unit, host, err := loadScript(t, `
Greeter = { name = "greet", version = "0.1.0" }
function Greeter:run() self.editor.append("hi ") end

Shout = { name = "shout" }
function Shout:run() editor.set_text(string.upper(editor.get_text())) end
`)
	require.NoError(t, err)
	require.Len(t, unit.Plugins, 2)
	require.Equal(t, "greet", unit.Plugins[0].Name())
	require.Equal(t, "0.1.0", unit.Plugins[0].Manifest().Version)
	require.Equal(t, unit.Path, unit.Plugins[0].Manifest().Source)
	require.Equal(t, "shout", unit.Plugins[1].Name())

	ctx := context.Background()
	require.NoError(t, unit.Plugins[0].Run(ctx))
	require.NoError(t, unit.Plugins[1].Run(ctx))
	require.Equal(t, "HI ", host.text)
}

func TestLoader_NoDeclarationsIsNotAnError(t *testing.T) {
	unit, _, err := loadScript(t, `Helper = { value = 1 }`)
	require.NoError(t, err)
	require.Empty(t, unit.Plugins)
}

func TestLoader_InitRunsAsConstructor(t *testing.T) {
	unit, _, err := loadScript(t, `
P = { name = "draft" }
function P:init()
    self.greeting = "hello from " .. self.name
    self.name = "renamed"
end
function P:run() self.editor.set_text(self.greeting) end
`)
	require.NoError(t, err)
	require.Len(t, unit.Plugins, 1)
	require.Equal(t, "renamed", unit.Plugins[0].Name())
}

func TestLoader_FailuresSkipWholeFile(t *testing.T) {
	cases := map[string]string{
		"syntax error": `P = { name = "p", run = function() end`,
		"runtime error": `
Good = { name = "good", run = function() end }
error("boom")`,
		"init error": `
Good = { name = "good", run = function() end }
Bad = { name = "bad", run = function() end, init = function() error("nope") end }`,
	}

	for label, source := range cases {
		t.Run(label, func(t *testing.T) {
			unit, _, err := loadScript(t, source)
			require.Error(t, err)
			require.Nil(t, unit)
		})
	}
}

func TestLoader_MissingFile(t *testing.T) {
	loader := &Loader{}
	_, err := loader.LoadFile(context.Background(), filepath.Join(t.TempDir(), "gone.lua"), &fakeHost{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_PluginBaseIsNeverRegistered(t *testing.T) {
	unit, _, err := loadScript(t, `Alias = PluginBase`)
	require.NoError(t, err)
	require.Empty(t, unit.Plugins)
}

func TestLoader_ExtendWithoutRunIsNotImplemented(t *testing.T) {
	unit, _, err := loadScript(t, `
Lazy = PluginBase.extend({ name = "lazy" })
Default = PluginBase:extend({})
`)
	require.NoError(t, err)
	require.Len(t, unit.Plugins, 2)

	// Default inherits the base name
	require.Equal(t, BaseName, unit.Plugins[0].Name())
	require.Equal(t, "lazy", unit.Plugins[1].Name())

	err = unit.Plugins[1].Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), ErrNotImplemented.Error())
}

func TestLoader_PrintAndJSON(t *testing.T) {
	unit, host, err := loadScript(t, `
P = { name = "p" }
function P:run()
    local decoded = json.decode('{"items":[1,2,3],"label":"x"}')
    print(decoded.label, #decoded.items)
    self.editor.set_text(json.encode({ 1, 2 }))
end
`)
	require.NoError(t, err)
	require.NoError(t, unit.Plugins[0].Run(context.Background()))
	require.Equal(t, "x\t3\n", host.console.String())
	require.Equal(t, "[1,2]", host.text)
}

func TestBase_RunIsNotImplemented(t *testing.T) {
	host := &fakeHost{}
	b := NewBase(host)
	require.Equal(t, BaseName, b.Name())
	require.Same(t, host, b.Host())
	require.ErrorIs(t, b.Run(context.Background()), ErrNotImplemented)
}

func TestIsCandidate(t *testing.T) {
	require.True(t, IsCandidate("hello.lua", ".lua"))
	require.False(t, IsCandidate("_private.lua", ".lua"))
	require.False(t, IsCandidate("notes.txt", ".lua"))
}
