package script

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dop251/goja"
)

// Matcher evaluates a user-supplied JavaScript expression as a search
// predicate. The expression sees the item as `item`, its json field names
// as properties, and the search term as `term`:
//
//	item.common_name.toLowerCase().includes(term.toLowerCase())
type Matcher[T any] struct {
	engine *Engine
	fn     goja.Callable
	expr   string
}

// Compile wraps expr in a function and compiles it on engine.
func Compile[T any](engine *Engine, expr string) (*Matcher[T], error) {
	source := "(function(item, term) { return (" + expr + "); })"

	engine.mu.Lock()
	defer engine.mu.Unlock()

	program, err := goja.Compile("match", source, true)
	if err != nil {
		return nil, fmt.Errorf("compile error: %w", err)
	}
	v, err := engine.run(context.Background(), func() (goja.Value, error) {
		return engine.runtime.RunProgram(program)
	})
	if err != nil {
		return nil, err
	}
	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, fmt.Errorf("compile error: %q is not an expression", expr)
	}
	return &Matcher[T]{engine: engine, fn: fn, expr: expr}, nil
}

// Expr returns the source expression.
func (m *Matcher[T]) Expr() string { return m.expr }

// Match evaluates the expression for item and term.
func (m *Matcher[T]) Match(ctx context.Context, item T, term string) (bool, error) {
	m.engine.mu.Lock()
	defer m.engine.mu.Unlock()

	rt := m.engine.runtime
	v, err := m.engine.run(ctx, func() (goja.Value, error) {
		return m.fn(goja.Undefined(), rt.ToValue(item), rt.ToValue(term))
	})
	if err != nil {
		return false, err
	}
	result, ok := v.Export().(bool)
	if !ok {
		return false, fmt.Errorf("%w: got %v", ErrNotBoolean, v.Export())
	}
	return result, nil
}

// Func adapts m to a plain predicate. Evaluation errors count as a miss and
// are logged.
func (m *Matcher[T]) Func(logger *slog.Logger) func(T, string) bool {
	return func(item T, term string) bool {
		ok, err := m.Match(context.Background(), item, term)
		if err != nil {
			logger.Warn("match expression failed", "expr", m.expr, "error", err)
			return false
		}
		return ok
	}
}
