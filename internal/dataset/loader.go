package dataset

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/artpar/arbor/internal/core"
	"github.com/artpar/arbor/internal/dataset/sqlite"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// DefaultDelay is the simulated fetch latency of the bundled dataset.
const DefaultDelay = 800 * time.Millisecond

// Common errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported dataset format")
)

//go:embed taxonomy.json
var bundled embed.FS

// Loader produces a taxonomy forest.
type Loader interface {
	// Load reads the forest. Implementations honor ctx cancellation.
	Load(ctx context.Context) ([]*core.Taxon, error)

	// Source describes where the data comes from.
	Source() string
}

// Format identifies an on-disk encoding.
type Format string

const (
	FormatJSON   Format = "json"
	FormatYAML   Format = "yaml"
	FormatSQLite Format = "sqlite"
)

// DetectFormat maps a file extension to a Format.
func DetectFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".db", ".sqlite", ".sqlite3":
		return FormatSQLite, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
}

// Open returns the loader for source. An empty source selects the bundled
// taxonomy.
func Open(source string) (Loader, error) {
	if source == "" {
		return Bundled(), nil
	}
	format, err := DetectFormat(source)
	if err != nil {
		return nil, err
	}
	if format == FormatSQLite {
		return &sqliteLoader{path: source}, nil
	}
	return NewFileLoader(source), nil
}

// Decode parses data in format and fills in missing ids.
func Decode(data []byte, format Format) ([]*core.Taxon, error) {
	var roots []*core.Taxon
	switch format {
	case FormatJSON:
		if err := json.Unmarshal(data, &roots); err != nil {
			return nil, fmt.Errorf("failed to unmarshal taxonomy json: %w", err)
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &roots); err != nil {
			return nil, fmt.Errorf("failed to unmarshal taxonomy yaml: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	core.AssignIDs(roots)
	return roots, nil
}

// Encode serializes roots in format.
func Encode(roots []*core.Taxon, format Format) ([]byte, error) {
	switch format {
	case FormatJSON:
		return json.MarshalIndent(roots, "", "  ")
	case FormatYAML:
		return yaml.Marshal(roots)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}

// FileLoader reads a json or yaml file.
type FileLoader struct {
	path string
}

// NewFileLoader creates a loader for path.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{path: path}
}

// Load reads and decodes the file.
func (l *FileLoader) Load(ctx context.Context) ([]*core.Taxon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format, err := DetectFormat(l.path)
	if err != nil {
		return nil, err
	}
	content, err := os.ReadFile(l.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset file: %w", err)
	}
	return Decode(content, format)
}

// Source returns the file path.
func (l *FileLoader) Source() string {
	return l.path
}

// Save writes roots to path in the format implied by its extension.
func Save(path string, roots []*core.Taxon) error {
	format, err := DetectFormat(path)
	if err != nil {
		return err
	}
	content, err := Encode(roots, format)
	if err != nil {
		return fmt.Errorf("failed to marshal taxonomy: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create dataset directory: %w", err)
		}
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write dataset file: %w", err)
	}
	return nil
}

type bundledLoader struct{}

// Bundled returns the loader for the embedded demo taxonomy.
func Bundled() Loader {
	return bundledLoader{}
}

func (bundledLoader) Load(ctx context.Context) ([]*core.Taxon, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	content, err := bundled.ReadFile("taxonomy.json")
	if err != nil {
		return nil, fmt.Errorf("failed to read bundled taxonomy: %w", err)
	}
	return Decode(content, FormatJSON)
}

func (bundledLoader) Source() string {
	return "bundled taxonomy"
}

type sqliteLoader struct {
	path string
}

func (l *sqliteLoader) Load(ctx context.Context) ([]*core.Taxon, error) {
	if _, err := os.Stat(l.path); err != nil {
		return nil, fmt.Errorf("failed to open dataset database: %w", err)
	}
	store, err := sqlite.New(l.path)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	return store.Load(ctx)
}

func (l *sqliteLoader) Source() string {
	return l.path
}

// DelayedLoader waits before delegating, standing in for a slow fetch. The
// wait ends early when ctx is cancelled.
type DelayedLoader struct {
	inner Loader
	delay time.Duration
}

// WithDelay wraps inner. A zero delay returns inner unchanged.
func WithDelay(inner Loader, delay time.Duration) Loader {
	if delay <= 0 {
		return inner
	}
	return &DelayedLoader{inner: inner, delay: delay}
}

// Load waits for the delay, then loads.
func (l *DelayedLoader) Load(ctx context.Context) ([]*core.Taxon, error) {
	timer := time.NewTimer(l.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
	}
	return l.inner.Load(ctx)
}

// Source returns the wrapped loader's source.
func (l *DelayedLoader) Source() string {
	return l.inner.Source()
}
