package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"go-editor/editor"
	"go-editor/plugin"
)

const reloadDebounce = 500 * time.Millisecond

// PluginWatcher rebuilds the editor whenever a script in the plugins directory changes
type PluginWatcher struct {
	app      *App
	watcher  *fsnotify.Watcher
	editor   *editor.Editor
	debounce time.Duration
}

// NewPluginWatcher creates a watcher for the app's plugins directory
func NewPluginWatcher(app *App) (*PluginWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &PluginWatcher{
		app:      app,
		watcher:  watcher,
		debounce: reloadDebounce,
	}, nil
}

// Run loads the plugins once, then reloads after every burst of changes until ctx is done.
// Reloads happen on this goroutine only.
func (w *PluginWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	dir := w.app.cfg.PluginsDir
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	w.app.logger.Infow("watching plugins", "dir", dir)

	w.reload(ctx)
	defer w.closeEditor()

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			// Debounce: wait until the directory has been quiet for a while
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.app.logger.Warnw("watcher error", "error", err)
		}
	}
}

// relevant reports whether event touches a loadable script
func (w *PluginWatcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
		return false
	}
	return plugin.IsCandidate(filepath.Base(event.Name), w.app.cfg.ScriptExt)
}

func (w *PluginWatcher) reload(ctx context.Context) {
	ed, err := w.app.NewEditor(ctx)
	if err != nil {
		w.app.logger.Errorw("failed to reload plugins", "error", err)
		return
	}

	// carry the buffer across reloads
	if w.editor != nil {
		ed.SetText(w.editor.Text())
	}
	w.closeEditor()
	w.editor = ed

	fmt.Fprintln(w.app.console, "Available plugins:", ed.Names())
}

func (w *PluginWatcher) closeEditor() {
	if w.editor != nil {
		w.editor.Close()
		w.editor = nil
	}
}
