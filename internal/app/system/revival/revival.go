// internal/app/system/revival/revival.go
//
// Package revival compiles legacy formatter source text found in older
// chart payloads into callbacks.Behavior values. Each function runs in its
// own goja runtime with no host bindings, and every compile and call is cut
// off after a timeout.
package revival

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"github.com/dop251/goja"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a single compile or call.
const DefaultTimeout = 50 * time.Millisecond

// maxSourceLen rejects oversized source text before compiling.
const maxSourceLen = 4096

// errNotFunction is reported when the text evaluates to something other
// than a function.
var errNotFunction = errors.New("source does not evaluate to a function")

// IsCandidate reports whether text looks like function source: after
// trimming it starts with "function" or "(".
func IsCandidate(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasPrefix(t, "function") || strings.HasPrefix(t, "(")
}

// Reviver implements callbacks.Reviver.
type Reviver struct {
	timeout  time.Duration
	logger   *zap.Logger
	failures atomic.Int64
}

// New returns a Reviver. A non-positive timeout uses DefaultTimeout.
func New(timeout time.Duration, logger *zap.Logger) *Reviver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reviver{timeout: timeout, logger: logger}
}

// Failures returns how many candidates failed to compile.
func (r *Reviver) Failures() int64 { return r.failures.Load() }

// Revive compiles text. Non-candidates return false without a diagnostic;
// candidates that fail to compile return false and are logged.
func (r *Reviver) Revive(text string) (callbacks.Behavior, bool) {
	if !IsCandidate(text) {
		return nil, false
	}
	fn, err := r.compile(text)
	if err != nil {
		r.failures.Add(1)
		r.logger.Warn("legacy callback revival failed",
			zap.Error(err),
			zap.String("source", preview(text)),
		)
		return nil, false
	}
	return fn.behavior(r), true
}

type compiled struct {
	mu sync.Mutex
	vm *goja.Runtime
	fn goja.Callable
}

func (r *Reviver) compile(text string) (*compiled, error) {
	if len(text) > maxSourceLen {
		return nil, fmt.Errorf("source exceeds %d bytes", maxSourceLen)
	}

	vm := goja.New()
	global := vm.GlobalObject()
	for _, name := range []string{"eval", "Function"} {
		if err := global.Delete(name); err != nil {
			return nil, fmt.Errorf("isolate runtime: %w", err)
		}
	}

	var v goja.Value
	err := r.guard(vm, func() error {
		var runErr error
		v, runErr = vm.RunString("(" + strings.TrimSpace(text) + "\n)")
		return runErr
	})
	if err != nil {
		return nil, err
	}

	fn, ok := goja.AssertFunction(v)
	if !ok {
		return nil, errNotFunction
	}
	return &compiled{vm: vm, fn: fn}, nil
}

// guard runs fn with an interrupt armed after the timeout. Panics from the
// runtime are converted to errors.
func (r *Reviver) guard(vm *goja.Runtime, fn func() error) (err error) {
	timer := time.AfterFunc(r.timeout, func() {
		vm.Interrupt("timeout")
	})
	defer func() {
		timer.Stop()
		vm.ClearInterrupt()
		if p := recover(); p != nil {
			err = fmt.Errorf("runtime panic: %v", p)
		}
	}()
	return fn()
}

func (c *compiled) behavior(r *Reviver) callbacks.Behavior {
	return func(inv callbacks.Invocation) callbacks.Lines {
		c.mu.Lock()
		defer c.mu.Unlock()

		var result goja.Value
		err := r.guard(c.vm, func() error {
			args := c.arguments(inv)
			var callErr error
			result, callErr = c.fn(goja.Undefined(), args...)
			return callErr
		})
		if err != nil {
			r.logger.Warn("legacy callback invocation failed", zap.Error(err))
			return nil
		}
		return toLines(result)
	}
}

// arguments mirrors the chart library's calling conventions: tooltip hooks
// receive a context object, tick formatters receive the value and index.
// Everything is copied so the script cannot reach host data.
func (c *compiled) arguments(inv callbacks.Invocation) []goja.Value {
	if inv.Dataset == nil && len(inv.Items) == 0 {
		return []goja.Value{c.vm.ToValue(clone(inv.Value)), c.vm.ToValue(inv.DataIndex)}
	}
	if len(inv.Items) > 0 {
		items := make([]any, len(inv.Items))
		for i, it := range inv.Items {
			items[i] = map[string]any{
				"raw":          clone(it.Value),
				"parsed":       clone(it.Parsed),
				"dataIndex":    it.DataIndex,
				"datasetIndex": it.DatasetIndex,
			}
		}
		return []goja.Value{c.vm.ToValue(items)}
	}
	return []goja.Value{c.vm.ToValue(map[string]any{
		"raw":          clone(inv.Value),
		"parsed":       clone(inv.Parsed),
		"label":        inv.Label,
		"dataIndex":    inv.DataIndex,
		"datasetIndex": inv.DatasetIndex,
		"dataset":      clone(inv.Dataset),
	})}
}

// clone deep-copies maps and slices.
func clone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = clone(item)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = clone(item)
		}
		return out
	case []float64:
		return append([]float64(nil), x...)
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}

func toLines(v goja.Value) callbacks.Lines {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	switch x := v.Export().(type) {
	case string:
		return callbacks.Text(x)
	case []any:
		out := make(callbacks.Lines, 0, len(x))
		for _, item := range x {
			if s := fmt.Sprint(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	default:
		return callbacks.Text(v.String())
	}
}

func preview(text string) string {
	t := strings.TrimSpace(text)
	if len(t) > 80 {
		return t[:80] + "..."
	}
	return t
}
