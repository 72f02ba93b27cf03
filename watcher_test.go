package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/require"

	"go-editor/config"
	"go-editor/observability"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestApp(t *testing.T, dir string, console *syncBuffer) *App {
	t.Helper()
	cfg := config.Default()
	cfg.PluginsDir = dir
	disabled := false
	cfg.Builtins = &disabled
	return &App{cfg: cfg, logger: observability.NewNop(), console: console}
}

func TestPluginWatcher_Relevant(t *testing.T) {
	w := &PluginWatcher{app: newTestApp(t, t.TempDir(), &syncBuffer{})}

	require.True(t, w.relevant(fsnotify.Event{Name: "/p/hello.lua", Op: fsnotify.Create}))
	require.True(t, w.relevant(fsnotify.Event{Name: "/p/hello.lua", Op: fsnotify.Remove}))
	require.False(t, w.relevant(fsnotify.Event{Name: "/p/hello.lua", Op: fsnotify.Chmod}))
	require.False(t, w.relevant(fsnotify.Event{Name: "/p/_draft.lua", Op: fsnotify.Write}))
	require.False(t, w.relevant(fsnotify.Event{Name: "/p/notes.txt", Op: fsnotify.Write}))
}

func TestPluginWatcher_ReloadsOnNewScript(t *testing.T) {
	dir := t.TempDir()
	console := &syncBuffer{}
	w, err := NewPluginWatcher(newTestApp(t, dir, console))
	require.NoError(t, err)
	w.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(console.String(), "Available plugins: []")
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.lua"), []byte(helloPlugin), 0o644))

	require.Eventually(t, func() bool {
		return strings.Contains(console.String(), "Available plugins: [hello]")
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
