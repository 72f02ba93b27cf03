// Package editor is the plugin host: it owns the text buffer and the
// name-to-plugin registry built by a load pass over a scripts directory.
package editor

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go-editor/observability"
	"go-editor/plugin"
)

var (
	ErrPluginNotFound  = errors.New("plugin not found")
	ErrDuplicatePlugin = errors.New("duplicate plugin name")
)

// DefaultScriptExt is the suffix of loadable script files
const DefaultScriptExt = ".lua"

// DuplicatePolicy decides what happens when a second plugin declares a name already registered
type DuplicatePolicy string

const (
	DuplicateReplace DuplicatePolicy = "replace" // last loaded wins
	DuplicateKeep    DuplicatePolicy = "keep"    // first loaded wins
	DuplicateReject  DuplicatePolicy = "error"   // the whole later file is reported as a load error
)

// ParseDuplicatePolicy validates a policy name; empty means replace
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch p := DuplicatePolicy(s); p {
	case "":
		return DuplicateReplace, nil
	case DuplicateReplace, DuplicateKeep, DuplicateReject:
		return p, nil
	default:
		return "", fmt.Errorf("unknown duplicate policy %q", s)
	}
}

type Option func(*Editor)

func WithLogger(l *observability.Logger) Option { return func(e *Editor) { e.logger = l } }

// WithConsole sets where user-facing messages are printed (stdout by default)
func WithConsole(w io.Writer) Option { return func(e *Editor) { e.console = w } }

func WithTimeout(d time.Duration) Option { return func(e *Editor) { e.loader.Timeout = d } }

// WithStore enables the storage module for scripts
func WithStore(db *sql.DB) Option { return func(e *Editor) { e.loader.Store = db } }

func WithDuplicatePolicy(p DuplicatePolicy) Option { return func(e *Editor) { e.duplicates = p } }

func WithScriptExt(ext string) Option { return func(e *Editor) { e.ext = ext } }

func WithText(text string) Option { return func(e *Editor) { e.text = text } }

// Editor holds the text buffer and the plugin registry
type Editor struct {
	plugins    map[string]plugin.Plugin
	text       string
	units      []*plugin.Unit
	loader     *plugin.Loader
	ext        string
	duplicates DuplicatePolicy
	logger     *observability.Logger
	console    io.Writer
}

// New creates an editor with an empty registry
func New(opts ...Option) *Editor {
	e := &Editor{
		plugins:    make(map[string]plugin.Plugin),
		loader:     &plugin.Loader{Timeout: plugin.DefaultTimeout},
		ext:        DefaultScriptExt,
		duplicates: DuplicateReplace,
		logger:     observability.NewNop(),
		console:    os.Stdout,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.loader.Logger = e.logger.Named("script")
	return e
}

// LoadPlugins loads every script in dir, in file name order. A file that
// fails to load is reported and skipped. Only an unreadable directory is
// returned as an error.
func (e *Editor) LoadPlugins(ctx context.Context, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read plugins directory: %w", err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() || !plugin.IsCandidate(entry.Name(), e.ext) {
			continue
		}

		unit, err := e.loader.LoadFile(ctx, filepath.Join(dir, entry.Name()), e)
		if err != nil {
			e.reportLoadError(entry.Name(), err)
			continue
		}
		plugins := make([]plugin.Plugin, len(unit.Plugins))
		for i, p := range unit.Plugins {
			plugins[i] = p
		}
		if err := e.checkDuplicates(plugins); err != nil {
			unit.Close()
			e.reportLoadError(entry.Name(), err)
			continue
		}
		e.units = append(e.units, unit)

		for _, p := range unit.Plugins {
			e.register(p)
		}
	}
	return nil
}

// LoadBuiltins constructs every compile-time registered plugin
func (e *Editor) LoadBuiltins() {
	for _, ctor := range plugin.Registered() {
		p, err := ctor(e)
		if err != nil {
			e.reportLoadError("builtin", err)
			continue
		}
		if err := e.checkDuplicates([]plugin.Plugin{p}); err != nil {
			e.reportLoadError("builtin", err)
			continue
		}
		e.register(p)
	}
}

// checkDuplicates rejects a whole unit under DuplicateReject when any of its
// names is already registered or repeats within the unit.
func (e *Editor) checkDuplicates(plugins []plugin.Plugin) error {
	if e.duplicates != DuplicateReject {
		return nil
	}
	seen := make(map[string]bool, len(plugins))
	for _, p := range plugins {
		name := p.Name()
		if _, ok := e.plugins[name]; ok || seen[name] {
			return fmt.Errorf("%w: %s", ErrDuplicatePlugin, name)
		}
		seen[name] = true
	}
	return nil
}

func (e *Editor) register(p plugin.Plugin) {
	name := p.Name()
	if _, ok := e.plugins[name]; ok {
		if e.duplicates == DuplicateKeep {
			e.logger.Warnw("duplicate plugin ignored", "name", name)
			return
		}
		e.logger.Warnw("duplicate plugin replaces earlier one", "name", name)
	}
	e.plugins[name] = p
	e.logger.Debugw("registered plugin", "name", name)
}

func (e *Editor) reportLoadError(file string, err error) {
	fmt.Fprintf(e.console, "Error loading plugin %s: %v\n", file, err)
	e.logger.Errorw("failed to load plugin", "file", file, "error", err)
}

// RunPlugin invokes the named plugin. An unknown name prints a message and
// returns an error wrapping ErrPluginNotFound.
func (e *Editor) RunPlugin(ctx context.Context, name string) error {
	p, ok := e.plugins[name]
	if !ok {
		fmt.Fprintf(e.console, "No plugin found with name: %s\n", name)
		e.logger.Warnw("plugin not found", "name", name)
		return fmt.Errorf("%w: %s", ErrPluginNotFound, name)
	}

	if err := p.Run(ctx); err != nil {
		e.logger.Errorw("plugin run failed", "name", name, "error", err)
		return fmt.Errorf("plugin %s: %w", name, err)
	}
	return nil
}

// Plugin looks up a registered plugin
func (e *Editor) Plugin(name string) (plugin.Plugin, bool) {
	p, ok := e.plugins[name]
	return p, ok
}

// Names returns the registered plugin names, sorted
func (e *Editor) Names() []string {
	names := make([]string, 0, len(e.plugins))
	for name := range e.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Manifests describes every registered plugin, ordered by name
func (e *Editor) Manifests() []*plugin.Manifest {
	out := make([]*plugin.Manifest, 0, len(e.plugins))
	for _, name := range e.Names() {
		if m, ok := e.plugins[name].(interface{ Manifest() *plugin.Manifest }); ok {
			out = append(out, m.Manifest())
			continue
		}
		out = append(out, &plugin.Manifest{Name: name})
	}
	return out
}

func (e *Editor) Text() string { return e.text }

func (e *Editor) SetText(text string) { e.text = text }

func (e *Editor) Console() io.Writer { return e.console }

// Close shuts down every loaded script and empties the registry
func (e *Editor) Close() {
	for _, u := range e.units {
		u.Close()
	}
	e.units = nil
	e.plugins = make(map[string]plugin.Plugin)
}
