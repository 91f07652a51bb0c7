package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/artpar/arbor/internal/core"
	"github.com/artpar/arbor/internal/dataset"
	"github.com/artpar/arbor/internal/logging"
	"github.com/artpar/arbor/internal/script"
	"github.com/artpar/arbor/internal/starred"
	"github.com/artpar/arbor/internal/tree"
)

// Hook names.
const (
	HookItemClicked = "item.clicked"
	HookItemToggled = "item.toggled"
	HookLoaded      = "dataset.loaded"
)

// HookHandler is a function that handles a hook event.
type HookHandler func(ctx context.Context, data any) (any, error)

// App wires configuration to the loader, matcher and stores.
type App struct {
	config  Config
	logger  *slog.Logger
	loader  dataset.Loader
	starred starred.Store
	hooks   map[string][]HookHandler
}

// Option is a function that configures the App.
type Option func(*App)

// New creates a new App with the given options.
func New(opts ...Option) *App {
	app := &App{
		config: DefaultConfig(),
		logger: logging.NewNop(),
		hooks:  make(map[string][]HookHandler),
	}

	for _, opt := range opts {
		opt(app)
	}

	return app
}

// WithConfig sets the application configuration.
func WithConfig(cfg Config) Option {
	return func(a *App) {
		a.config = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithLoader overrides the loader derived from the config.
func WithLoader(loader dataset.Loader) Option {
	return func(a *App) {
		a.loader = loader
	}
}

// WithStarred sets the starred store.
func WithStarred(store starred.Store) Option {
	return func(a *App) {
		a.starred = store
	}
}

// Config returns the application configuration.
func (a *App) Config() Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Starred returns the starred store, or nil when starring is disabled.
func (a *App) Starred() starred.Store {
	return a.starred
}

// Loader returns the dataset loader. Without an override it opens the
// configured source and applies the configured delay.
func (a *App) Loader() (dataset.Loader, error) {
	if a.loader != nil {
		return a.loader, nil
	}
	loader, err := dataset.Open(ExpandPath(a.config.DataSource))
	if err != nil {
		return nil, err
	}
	return dataset.WithDelay(loader, a.config.Delay), nil
}

// Matcher returns the search predicate: the configured script expression,
// or the built-in name/common name/rank match.
func (a *App) Matcher() (tree.Matcher[*core.Taxon], error) {
	if a.config.Script == "" {
		return core.MatchTaxon, nil
	}
	engine := script.NewEngine(script.WithLogger(a.logger))
	m, err := script.Compile[*core.Taxon](engine, a.config.Script)
	if err != nil {
		return nil, fmt.Errorf("invalid match script: %w", err)
	}
	return m.Func(a.logger), nil
}

// TreeOptions returns engine options for taxa using the configured matcher
// and clear policy.
func (a *App) TreeOptions() (tree.Options[*core.Taxon], error) {
	match, err := a.Matcher()
	if err != nil {
		return tree.Options[*core.Taxon]{}, err
	}
	return tree.Options[*core.Taxon]{
		Children:    core.TaxonChildren,
		Key:         core.TaxonKey,
		Match:       match,
		ClearPolicy: a.config.Policy(),
	}, nil
}

// RegisterHook registers a hook handler for the given hook name.
func (a *App) RegisterHook(hook string, handler HookHandler) {
	a.hooks[hook] = append(a.hooks[hook], handler)
}

// GetHooks returns all handlers for the given hook.
func (a *App) GetHooks(hook string) []HookHandler {
	return a.hooks[hook]
}

// ExecuteHooks executes all handlers for the given hook in order, each
// receiving the previous result.
func (a *App) ExecuteHooks(ctx context.Context, hook string, data any) (any, error) {
	result := data
	for _, handler := range a.hooks[hook] {
		var err error
		result, err = handler(ctx, result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Close releases the starred store.
func (a *App) Close() error {
	if a.starred == nil {
		return nil
	}
	return a.starred.Close()
}
