package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	_ "go-editor/builtin"
	"go-editor/config"
	"go-editor/editor"
	"go-editor/observability"
)

const (
	FlagConfig     = "config"
	FlagPluginsDir = "plugins-dir"
	FlagLogLevel   = "log-level"
	FlagText       = "text"
	FlagOutput     = "output"
	FlagAddr       = "addr"
)

// main is the entry point of the application
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// App holds what every command needs: resolved config, logger and the optional storage db
type App struct {
	cfg     *config.Config
	logger  *observability.Logger
	db      *sql.DB
	text    string
	console io.Writer
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "go-editor",
		Short: "Text editor host for Lua plugins",
		Long: `Loads the built-in plugins and every *.lua script in the plugins directory,
prints the available plugin names and runs the entry plugin ("hello" unless configured).`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withEditor(cmd, func(app *App, ed *editor.Editor) error {
				fmt.Fprintln(app.console, "Available plugins:", ed.Names())
				if err := ed.RunPlugin(cmd.Context(), app.cfg.EntryPlugin); err != nil && !errors.Is(err, editor.ErrPluginNotFound) {
					return err
				}
				return nil
			})
		},
	}

	flags := cmd.PersistentFlags()
	flags.String(FlagConfig, "", "path to the config file (default "+config.DefaultPath+" if present)")
	flags.String(FlagPluginsDir, "", "directory to load *.lua plugins from")
	flags.String(FlagLogLevel, "", "log level (debug, info, warn, error)")
	flags.String(FlagText, "", "initial contents of the editor buffer")

	cmd.AddCommand(newListCmd(), newRunCmd(), newWatchCmd(), newServeCmd())
	return cmd
}

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loaded plugins",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, err := cmd.Flags().GetString(FlagOutput)
			if err != nil {
				return err
			}
			return withEditor(cmd, func(app *App, ed *editor.Editor) error {
				return renderPlugins(app.console, pluginInfos(ed), output)
			})
		},
	}
	cmd.Flags().StringP(FlagOutput, "o", "table", "output format (table, json, yaml)")
	return cmd
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run NAME...",
		Short: "Run plugins in order and print the resulting buffer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEditor(cmd, func(app *App, ed *editor.Editor) error {
				var errs error
				for _, name := range args {
					errs = errors.Join(errs, ed.RunPlugin(cmd.Context(), name))
				}
				fmt.Fprintln(app.console, ed.Text())
				return errs
			})
		},
	}
}

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload plugins whenever the plugins directory changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			w, err := NewPluginWatcher(app)
			if err != nil {
				return err
			}
			return w.Run(cmd.Context())
		},
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the plugin list and plugin runs over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			addr, err := cmd.Flags().GetString(FlagAddr)
			if err != nil {
				return err
			}
			return withEditor(cmd, func(app *App, ed *editor.Editor) error {
				if addr == "" {
					addr = app.cfg.ServeAddr
				}
				return NewPluginService(ed, app.logger).ListenAndServe(cmd.Context(), addr)
			})
		},
	}
	cmd.Flags().String(FlagAddr, "", "listen address (default from config)")
	return cmd
}

// newApp resolves config from file, environment and flags, then builds the logger and store
func newApp(cmd *cobra.Command) (*App, error) {
	flags := cmd.Flags()
	path, err := flags.GetString(FlagConfig)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	dir, err := flags.GetString(FlagPluginsDir)
	if err != nil {
		return nil, err
	}
	if dir != "" {
		cfg.PluginsDir = dir
	}
	logLevel, err := flags.GetString(FlagLogLevel)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	text, err := flags.GetString(FlagText)
	if err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	db, err := openStore(cfg.StoragePath, logger)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		text:    text,
		console: cmd.OutOrStdout(),
	}, nil
}

// NewEditor builds an editor from the config and runs the load pass
func (a *App) NewEditor(ctx context.Context) (*editor.Editor, error) {
	policy, err := editor.ParseDuplicatePolicy(a.cfg.OnDuplicate)
	if err != nil {
		return nil, err
	}

	opts := []editor.Option{
		editor.WithLogger(a.logger.Named("editor")),
		editor.WithConsole(a.console),
		editor.WithTimeout(a.cfg.Timeout),
		editor.WithDuplicatePolicy(policy),
		editor.WithScriptExt(a.cfg.ScriptExt),
		editor.WithText(a.text),
	}
	if a.db != nil {
		opts = append(opts, editor.WithStore(a.db))
	}

	ed := editor.New(opts...)
	if a.cfg.BuiltinsEnabled() {
		ed.LoadBuiltins()
	}
	if err := ed.LoadPlugins(ctx, a.cfg.PluginsDir); err != nil {
		ed.Close()
		return nil, err
	}
	return ed, nil
}

// Close releases the store and flushes the logger
func (a *App) Close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warnw("failed to close storage", "error", err)
		}
	}
	_ = a.logger.Sync()
}

func withEditor(cmd *cobra.Command, fn func(app *App, ed *editor.Editor) error) error {
	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer app.Close()

	ed, err := app.NewEditor(cmd.Context())
	if err != nil {
		return err
	}
	defer ed.Close()

	return fn(app, ed)
}

func renderPlugins(w io.Writer, infos []PluginInfo, format string) error {
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(infos)
	case "table":
		t := table.NewWriter()
		t.SetOutputMirror(w)
		t.AppendHeader(table.Row{"Name", "Version", "Source", "Description"})
		for _, info := range infos {
			t.AppendRow(table.Row{info.Name, info.Version, info.Source, info.Description})
		}
		style := table.StyleLight
		style.Options.DrawBorder = false
		t.SetStyle(style)
		t.Render()
		return nil
	default:
		return fmt.Errorf("invalid output format %q", format)
	}
}
