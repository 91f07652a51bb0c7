package watcher

import (
	"context"
	"errors"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Common errors.
var (
	ErrFileRemoved    = errors.New("watched file was removed")
	ErrAlreadyStarted = errors.New("watcher already started")
)

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithOnChange sets the callback invoked after a debounced change.
func WithOnChange(fn func()) WatcherOption {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// WithOnError sets the callback invoked on errors.
func WithOnError(fn func(error)) WatcherOption {
	return func(w *Watcher) {
		w.onError = fn
	}
}

// Watcher reports changes to a single dataset file. It watches the parent
// directory so that editors which save by rename are still seen.
type Watcher struct {
	path     string
	onChange func()
	onError  func(error)

	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer

	cancel  context.CancelFunc
	started bool
	mu      sync.RWMutex
}

// NewWatcher creates a watcher for path. Call Start to begin.
func NewWatcher(path string, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:      absPath,
		onChange:  func() {},
		onError:   func(error) {},
		debouncer: NewDebouncer(DefaultDebounceDuration),
	}
	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return ErrAlreadyStarted
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.fsWatcher = fsw
	w.cancel = cancel
	w.started = true
	go w.watch(ctx, fsw.Events, fsw.Errors)
	return nil
}

// Stop stops watching and drops any pending change.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return
	}

	w.cancel()
	w.fsWatcher.Close()
	w.fsWatcher = nil
	w.debouncer.Cancel()
	w.started = false
}

// IsStarted reports whether the watcher is running.
func (w *Watcher) IsStarted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.started
}

// Path returns the absolute watched path.
func (w *Watcher) Path() string {
	return w.path
}

func (w *Watcher) watch(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error) {
	target := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}

			switch {
			case event.Op&fsnotify.Remove != 0:
				w.onError(ErrFileRemoved)
			case event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0:
				w.debouncer.Trigger(w.notifyChange)
			}

		case err, ok := <-errs:
			if !ok {
				return
			}
			w.onError(err)
		}
	}
}

func (w *Watcher) notifyChange() {
	if !w.IsStarted() {
		return
	}

	w.onChange()
}
