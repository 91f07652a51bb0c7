package script

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"
)

// DefaultTimeout bounds a single evaluation.
const DefaultTimeout = 50 * time.Millisecond

// Common errors.
var (
	ErrNotBoolean = errors.New("match expression did not return a boolean")
)

// ConsoleHandler receives console output from scripts.
type ConsoleHandler func(level, message string)

// Engine wraps a goja runtime. A runtime is not safe for concurrent use, so
// every call holds the engine lock.
type Engine struct {
	mu             sync.Mutex
	runtime        *goja.Runtime
	consoleHandler ConsoleHandler
	timeout        time.Duration
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) EngineOption {
	return func(e *Engine) { e.timeout = d }
}

// WithConsoleHandler routes console.* calls to handler.
func WithConsoleHandler(handler ConsoleHandler) EngineOption {
	return func(e *Engine) { e.consoleHandler = handler }
}

// WithLogger routes console.* calls to logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return WithConsoleHandler(func(level, message string) {
		switch level {
		case "error":
			logger.Error(message, "source", "script")
		case "warn":
			logger.Warn(message, "source", "script")
		default:
			logger.Debug(message, "source", "script", "level", level)
		}
	})
}

// NewEngine creates a JavaScript engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	e.runtime = goja.New()
	e.runtime.SetFieldNameMapper(goja.TagFieldNameMapper("json", true))
	e.setupConsole()
	return e
}

func (e *Engine) setupConsole() {
	console := e.runtime.NewObject()
	for _, level := range []string{"log", "info", "warn", "error"} {
		level := level
		console.Set(level, func(call goja.FunctionCall) goja.Value {
			if e.consoleHandler == nil {
				return goja.Undefined()
			}
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = fmt.Sprintf("%v", arg.Export())
			}
			e.consoleHandler(level, strings.Join(parts, " "))
			return goja.Undefined()
		})
	}
	e.runtime.Set("console", console)
}

// Execute runs source and returns the exported result. Long-running scripts
// are interrupted when ctx is done or the engine timeout passes.
func (e *Engine) Execute(ctx context.Context, source string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	program, err := goja.Compile("script", source, true)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}
	v, err := e.run(ctx, func() (goja.Value, error) {
		return e.runtime.RunProgram(program)
	})
	if err != nil {
		return nil, err
	}
	return v.Export(), nil
}

// run calls fn under the interrupt watchdog. The caller holds e.mu.
func (e *Engine) run(ctx context.Context, fn func() (goja.Value, error)) (goja.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.runtime.ClearInterrupt()
	timer := time.AfterFunc(e.timeout, func() {
		e.runtime.Interrupt("timeout")
	})
	defer timer.Stop()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			e.runtime.Interrupt("context cancelled")
		case <-done:
		}
	}()

	v, err := fn()
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("script interrupted: %v", interrupted.Value())
		}
		return nil, fmt.Errorf("runtime error: %w", err)
	}
	return v, nil
}
