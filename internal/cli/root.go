package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/artpar/arbor/internal/app"
	"github.com/artpar/arbor/internal/logging"
	starreddb "github.com/artpar/arbor/internal/starred/sqlite"
	"github.com/artpar/arbor/internal/tui/views"
	"github.com/artpar/arbor/internal/watcher"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

// RootOptions holds the flags shared by every command and the browser.
type RootOptions struct {
	ConfigPath  string
	DataSource  string
	Script      string
	ClearPolicy string
	LogLevel    string

	Delay       time.Duration
	IndentSize  int
	Placeholder string
	NoFilter    bool
	Debounce    time.Duration
	Watch       bool
	LogFile     string
	StarredDB   string
}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "arbor",
		Short:   "Arbor - browse taxonomy trees in the terminal",
		Long:    "Arbor is a searchable, collapsible tree browser for taxonomies stored as JSON, YAML or SQLite.",
		Version: version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, opts)
		},
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.DataSource, "data", "d", "", "Dataset file (.json, .yaml) or database (.db); empty uses the bundled taxonomy")
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "Config file (default <data-dir>/config.yaml)")
	pf.StringVar(&opts.Script, "script", "", "JavaScript match expression over item and term")
	pf.StringVar(&opts.ClearPolicy, "clear-policy", "collapse", "What clearing the search does to expansion: collapse or restore")
	pf.StringVar(&opts.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")

	f := cmd.Flags()
	f.DurationVar(&opts.Delay, "delay", app.DefaultConfig().Delay, "Simulated load latency")
	f.IntVar(&opts.IndentSize, "indent", app.DefaultConfig().IndentSize, "Indentation per level in tenths of a cell")
	f.StringVar(&opts.Placeholder, "placeholder", app.DefaultConfig().Placeholder, "Search input placeholder")
	f.BoolVar(&opts.NoFilter, "no-filter", false, "Hide the search input")
	f.DurationVar(&opts.Debounce, "debounce", app.DefaultConfig().Debounce, "Delay before a typed search term is applied")
	f.BoolVarP(&opts.Watch, "watch", "w", false, "Reload when the dataset file changes")
	f.StringVar(&opts.LogFile, "log-file", "", "Log file (default <data-dir>/arbor.log)")
	f.StringVar(&opts.StarredDB, "starred-db", "", "Starred taxa database (default <data-dir>/starred.db)")

	// Add subcommands
	cmd.AddCommand(NewPrintCommand(opts))
	cmd.AddCommand(NewSearchCommand(opts))
	cmd.AddCommand(NewImportCommand())

	return cmd
}

// resolveConfig loads the config file and applies explicitly set flags on
// top of it.
func resolveConfig(cmd *cobra.Command, opts *RootOptions) (app.Config, error) {
	path, optional := opts.ConfigPath, false
	if path == "" {
		path, optional = app.DefaultConfig().ConfigPath(), true
	}
	cfg, err := app.LoadConfig(path, optional)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataSource = opts.DataSource
	}
	if flags.Changed("script") {
		cfg.Script = opts.Script
	}
	if flags.Changed("clear-policy") {
		cfg.ClearPolicy = opts.ClearPolicy
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if flags.Changed("delay") {
		cfg.Delay = opts.Delay
	}
	if flags.Changed("indent") {
		cfg.IndentSize = opts.IndentSize
	}
	if flags.Changed("placeholder") {
		cfg.Placeholder = opts.Placeholder
	}
	if flags.Changed("no-filter") {
		cfg.Filter = !opts.NoFilter
	}
	if flags.Changed("debounce") {
		cfg.Debounce = opts.Debounce
	}
	if flags.Changed("watch") {
		cfg.Watch = opts.Watch
	}
	if flags.Changed("log-file") {
		cfg.LogFile = opts.LogFile
	}
	if flags.Changed("starred-db") {
		cfg.StarredDB = opts.StarredDB
	}

	if _, ok := logging.ParseLevel(cfg.LogLevel); !ok {
		return cfg, fmt.Errorf("invalid log level %q", cfg.LogLevel)
	}
	return cfg, cfg.Validate()
}

// tuiModel wraps the TaxonomyView for bubbletea
type tuiModel struct {
	view *views.TaxonomyView
}

func (m tuiModel) Init() tea.Cmd {
	return m.view.Init()
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	updated, cmd := m.view.Update(msg)
	m.view = updated.(*views.TaxonomyView)
	return m, cmd
}

func (m tuiModel) View() string {
	return m.view.View()
}

// runTUI starts the TUI application
func runTUI(cmd *cobra.Command, opts *RootOptions) error {
	cfg, err := resolveConfig(cmd, opts)
	if err != nil {
		return err
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger, closeLog, err := logging.Open(cfg.LogPath(), level)
	if err != nil {
		return err
	}
	defer closeLog()

	appOpts := []app.Option{app.WithConfig(cfg), app.WithLogger(logger)}
	if store := openStarred(cfg.StarredPath(), logger); store != nil {
		appOpts = append(appOpts, app.WithStarred(store))
	}
	application := app.New(appOpts...)
	defer application.Close()

	view, err := views.NewTaxonomyView(application)
	if err != nil {
		return err
	}
	defer view.Close()

	p := tea.NewProgram(tuiModel{view: view}, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if cfg.Watch {
		w, err := startWatcher(cfg, p, logger)
		if err != nil {
			return err
		}
		if w != nil {
			defer w.Stop()
		}
	}

	logger.Info("starting browser", "data", cfg.DataSource, "clear_policy", cfg.ClearPolicy)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		return err
	}
	return nil
}

// openStarred opens the starred database. Starring is optional, so a
// failure is logged and browsing continues without it.
func openStarred(path string, logger *slog.Logger) *starreddb.Store {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		logger.Warn("starring disabled", "path", path, "error", err)
		return nil
	}
	store, err := starreddb.New(path)
	if err != nil {
		logger.Warn("starring disabled", "path", path, "error", err)
		return nil
	}
	return store
}

// startWatcher reloads the view whenever the dataset file changes. The
// bundled taxonomy has no file, so there is nothing to watch.
func startWatcher(cfg app.Config, p *tea.Program, logger *slog.Logger) (*watcher.Watcher, error) {
	if cfg.DataSource == "" {
		logger.Info("watch ignored for the bundled taxonomy")
		return nil, nil
	}
	path := app.ExpandPath(cfg.DataSource)

	w, err := watcher.NewWatcher(path,
		watcher.WithOnChange(func() {
			p.Send(views.DatasetChangedMsg{Path: path})
		}),
		watcher.WithOnError(func(err error) {
			logger.Warn("watch dataset", "path", path, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := w.Start(); err != nil {
		return nil, fmt.Errorf("failed to watch %s: %w", path, err)
	}
	logger.Info("watching dataset", "path", w.Path())
	return w, nil
}
