// internal/app/system/callbacks/hydrate.go
package callbacks

import (
	"sort"

	"go.uber.org/zap"
)

// Reviver turns legacy function source text into a Behavior. It reports
// false when the text is not a candidate or does not compile.
type Reviver interface {
	Revive(text string) (Behavior, bool)
}

// Report summarizes one hydration pass.
type Report struct {
	Resolved   int
	Revived    int
	Unresolved []string
}

// Hydrator replaces descriptors in a chart configuration tree with live
// behaviors. It never fails: unknown ids and uncompilable text degrade to
// placeholders and are logged.
type Hydrator struct {
	registry *Registry
	reviver  Reviver
	logger   *zap.Logger
}

// NewHydrator returns a Hydrator. reviver may be nil to disable revival of
// legacy function text.
func NewHydrator(registry *Registry, reviver Reviver, logger *zap.Logger) *Hydrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hydrator{registry: registry, reviver: reviver, logger: logger}
}

// Hydrate returns a copy of node with descriptors resolved.
func (h *Hydrator) Hydrate(node any) any {
	out, _ := h.HydrateWithReport(node)
	return out
}

// HydrateMap is Hydrate for a map root. A nil map stays nil.
func (h *Hydrator) HydrateMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out, _ := h.Hydrate(m).(map[string]any)
	return out
}

// HydrateWithReport hydrates node and reports what it resolved.
func (h *Hydrator) HydrateWithReport(node any) (any, Report) {
	w := walker{h: h, missing: map[string]bool{}}
	out := w.walk(node)

	rep := Report{Resolved: w.resolved, Revived: w.revived}
	for id := range w.missing {
		rep.Unresolved = append(rep.Unresolved, id)
	}
	sort.Strings(rep.Unresolved)
	for _, id := range rep.Unresolved {
		h.logger.Warn("unresolved chart callback", zap.String("callback_id", id))
	}
	return out, rep
}

type walker struct {
	h        *Hydrator
	resolved int
	revived  int
	missing  map[string]bool
}

func (w *walker) walk(node any) any {
	switch n := node.(type) {
	case []any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = w.walk(v)
		}
		return out
	case []map[string]any:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = w.walk(v)
		}
		return out
	case []string:
		out := make([]any, len(n))
		for i, v := range n {
			out[i] = w.walk(v)
		}
		return out
	case map[string]any:
		if d, ok := AsDescriptor(n); ok {
			return w.descriptor(d)
		}
		out := make(map[string]any, len(n))
		for k, v := range n {
			out[k] = w.walk(v)
		}
		return out
	case Descriptor, *Descriptor:
		d, _ := AsDescriptor(n)
		return w.descriptor(d)
	case string:
		if w.h.reviver == nil {
			return n
		}
		if b, ok := w.h.reviver.Revive(n); ok {
			w.revived++
			return b
		}
		return n
	default:
		return node
	}
}

func (w *walker) descriptor(d Descriptor) any {
	if b, ok := w.h.registry.Build(d); ok {
		w.resolved++
		return b
	}
	w.missing[d.ID] = true
	return Unresolved()
}

// Unresolved is the placeholder that stands in for an id the registry does
// not know. It produces no lines; the miss is reported by HydrateWithReport.
func Unresolved() Behavior {
	return func(Invocation) Lines { return nil }
}
