package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/artpar/arbor/internal/core"
	"github.com/artpar/arbor/internal/dataset"
	"github.com/artpar/arbor/internal/starred/sqlite"
	"github.com/artpar/arbor/internal/tree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewApp(t *testing.T) {
	t.Run("creates app with defaults", func(t *testing.T) {
		app := New()
		assert.Equal(t, DefaultConfig(), app.Config())
		assert.NotNil(t, app.Logger())
		assert.Nil(t, app.Starred())
		assert.NoError(t, app.Close())
	})

	t.Run("creates app with config", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DataDir = "/tmp/arbor"
		app := New(WithConfig(cfg))
		assert.Equal(t, "/tmp/arbor", app.Config().DataDir)
	})

	t.Run("creates app with starred store", func(t *testing.T) {
		store, err := sqlite.NewInMemory()
		require.NoError(t, err)
		app := New(WithStarred(store))
		assert.Same(t, store, app.Starred())
		assert.NoError(t, app.Close())
	})
}

func TestApp_Loader(t *testing.T) {
	t.Run("bundled with delay", func(t *testing.T) {
		l, err := New().Loader()
		require.NoError(t, err)
		assert.IsType(t, &dataset.DelayedLoader{}, l)
		assert.Equal(t, "bundled taxonomy", l.Source())
	})

	t.Run("zero delay", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Delay = 0
		l, err := New(WithConfig(cfg)).Loader()
		require.NoError(t, err)

		roots, err := l.Load(context.Background())
		require.NoError(t, err)
		assert.Len(t, roots, 3)
	})

	t.Run("override", func(t *testing.T) {
		override := dataset.Bundled()
		l, err := New(WithLoader(override)).Loader()
		require.NoError(t, err)
		assert.Equal(t, override, l)
	})

	t.Run("unsupported source", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.DataSource = "taxa.csv"
		_, err := New(WithConfig(cfg)).Loader()
		assert.ErrorIs(t, err, dataset.ErrUnsupportedFormat)
	})
}

func TestApp_Matcher(t *testing.T) {
	lion := &core.Taxon{Taxon: "Species", Name: "Panthera leo", CommonName: "Lion"}

	t.Run("built-in", func(t *testing.T) {
		match, err := New().Matcher()
		require.NoError(t, err)
		assert.True(t, match(lion, "LION"))
	})

	t.Run("script", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Script = "item.taxon === term"
		match, err := New(WithConfig(cfg)).Matcher()
		require.NoError(t, err)
		assert.True(t, match(lion, "Species"))
		assert.False(t, match(lion, "Lion"))
	})

	t.Run("bad script", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Script = "item.("
		_, err := New(WithConfig(cfg)).Matcher()
		assert.Error(t, err)
	})
}

func TestApp_TreeOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ClearPolicy = "restore"
	opts, err := New(WithConfig(cfg)).TreeOptions()
	require.NoError(t, err)

	assert.Equal(t, tree.ClearRestoreManual, opts.ClearPolicy)
	assert.NotNil(t, opts.Children)
	assert.NotNil(t, opts.Key)
	assert.NotNil(t, opts.Match)
}

func TestApp_Hooks(t *testing.T) {
	t.Run("executes hooks in order", func(t *testing.T) {
		app := New()
		var order []int
		app.RegisterHook(HookItemClicked, func(ctx context.Context, data any) (any, error) {
			order = append(order, 1)
			return data.(string) + "-a", nil
		})
		app.RegisterHook(HookItemClicked, func(ctx context.Context, data any) (any, error) {
			order = append(order, 2)
			return data.(string) + "-b", nil
		})

		result, err := app.ExecuteHooks(context.Background(), HookItemClicked, "leo")
		require.NoError(t, err)
		assert.Equal(t, "leo-a-b", result)
		assert.Equal(t, []int{1, 2}, order)
		assert.Len(t, app.GetHooks(HookItemClicked), 2)
	})

	t.Run("stops on error", func(t *testing.T) {
		app := New()
		called := false
		app.RegisterHook(HookLoaded, func(ctx context.Context, data any) (any, error) {
			return nil, errors.New("stop")
		})
		app.RegisterHook(HookLoaded, func(ctx context.Context, data any) (any, error) {
			called = true
			return data, nil
		})

		_, err := app.ExecuteHooks(context.Background(), HookLoaded, nil)
		assert.Error(t, err)
		assert.False(t, called)
	})

	t.Run("no hooks passes data through", func(t *testing.T) {
		result, err := New().ExecuteHooks(context.Background(), HookItemToggled, 42)
		require.NoError(t, err)
		assert.Equal(t, 42, result)
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("overrides defaults", func(t *testing.T) {
		path := filepath.Join(dir, "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
data: taxa.yaml
delay: 2s
indent: 40
clear_policy: restore
filter: false
`), 0644))

		cfg, err := LoadConfig(path, false)
		require.NoError(t, err)
		assert.Equal(t, "taxa.yaml", cfg.DataSource)
		assert.Equal(t, 2*time.Second, cfg.Delay)
		assert.Equal(t, 40, cfg.IndentSize)
		assert.Equal(t, tree.ClearRestoreManual, cfg.Policy())
		assert.False(t, cfg.Filter)
		assert.Equal(t, "Search Taxonomy...", cfg.Placeholder, "unset keys keep defaults")
	})

	t.Run("missing optional file", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"), true)
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("missing required file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(dir, "missing.yaml"), false)
		assert.Error(t, err)
	})

	t.Run("invalid policy", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("clear_policy: sometimes\n"), 0644))
		_, err := LoadConfig(path, false)
		assert.Error(t, err)
	})
}

func TestConfig_Paths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/data"
	assert.Equal(t, "/data/config.yaml", cfg.ConfigPath())
	assert.Equal(t, "/data/arbor.log", cfg.LogPath())
	assert.Equal(t, "/data/starred.db", cfg.StarredPath())

	cfg.LogFile = "/tmp/x.log"
	cfg.StarredDB = "/tmp/s.db"
	assert.Equal(t, "/tmp/x.log", cfg.LogPath())
	assert.Equal(t, "/tmp/s.db", cfg.StarredPath())
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".arbor"), ExpandPath("~/.arbor"))
	assert.Equal(t, "/abs", ExpandPath("/abs"))
	assert.Equal(t, "~user/x", ExpandPath("~user/x"))
}
