package plugin

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"go-editor/observability"
)

// ScriptPlugin is a plugin declared by a Lua table
type ScriptPlugin struct {
	manifest *Manifest
	table    *lua.LTable
	sandbox  *Sandbox
}

func (p *ScriptPlugin) Name() string { return p.manifest.Name }

// Manifest returns the metadata parsed from the declaring table
func (p *ScriptPlugin) Manifest() *Manifest { return p.manifest }

// Run calls the table's run method inside its sandbox
func (p *ScriptPlugin) Run(ctx context.Context) error {
	return p.sandbox.CallMethod(ctx, p.table, "run")
}

// Unit is one loaded script file and the plugins it declared
type Unit struct {
	Path    string
	Sandbox *Sandbox
	Plugins []*ScriptPlugin
}

// Close shuts down the unit's sandbox
func (u *Unit) Close() {
	if u.Sandbox != nil {
		u.Sandbox.Close()
	}
}

// Loader turns script files into plugin instances
type Loader struct {
	Timeout time.Duration
	Store   *sql.DB
	Logger  *observability.Logger
}

// LoadFile loads the script at path into a fresh sandbox and constructs every
// conforming declaration for host. Either all declarations of the file are
// returned or none are.
func (l *Loader) LoadFile(ctx context.Context, path string, host Host) (*Unit, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin file: %w", err)
	}

	logger := l.Logger
	if logger == nil {
		logger = observability.NewNop()
	}
	unitName := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	sandbox := NewSandbox(path, l.Timeout)
	L := sandbox.L

	base := NewBaseAPI().Register(L)
	editorMod := NewEditorAPI(host).Register(L)
	NewUtilsAPI(logger, unitName).Register(L)
	NewStorageAPI(l.Store, unitName).Register(L)

	if err := sandbox.LoadSource(ctx, string(source)); err != nil {
		sandbox.Close()
		return nil, fmt.Errorf("failed to load source: %w", err)
	}

	unit := &Unit{Path: path, Sandbox: sandbox}
	for _, decl := range Discover(sandbox.Globals(), base) {
		decl.Table.RawSetString("editor", editorMod)

		if _, ok := decl.Table.RawGetString("init").(*lua.LFunction); ok {
			if err := sandbox.CallMethod(ctx, decl.Table, "init"); err != nil {
				sandbox.Close()
				return nil, fmt.Errorf("failed to construct %s: %w", decl.Manifest.Name, err)
			}
		}

		// init may rename the instance
		manifest, err := ParseManifest(decl.Manifest.Symbol, decl.Table)
		if err != nil {
			sandbox.Close()
			return nil, fmt.Errorf("failed to construct %s: %w", decl.Manifest.Name, err)
		}
		manifest.Source = path

		unit.Plugins = append(unit.Plugins, &ScriptPlugin{
			manifest: manifest,
			table:    decl.Table,
			sandbox:  sandbox,
		})
	}

	logger.Debugw("loaded script", "path", path, "plugins", len(unit.Plugins))
	return unit, nil
}

// IsCandidate reports whether a directory entry name should be loaded as a script
func IsCandidate(name, ext string) bool {
	return strings.HasSuffix(name, ext) && !strings.HasPrefix(name, "_")
}
