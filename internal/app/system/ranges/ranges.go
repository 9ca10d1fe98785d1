// internal/app/system/ranges/ranges.go
//
// Package ranges holds the fixed catalog of relative time windows a chart
// can be viewed over, and the pure functions that pick a window and turn it
// into concrete bounds.
package ranges

import (
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/viz"
)

// DefaultKey is used when a requested key is not in the catalog.
const DefaultKey = "1y"

// Offset is a calendar offset applied with time.Time.AddDate.
type Offset struct {
	Years, Months, Days int
}

// Preset is a named window. A nil Offset means the window is unbounded.
type Preset struct {
	Key    string
	Label  string
	Offset *Offset
}

var catalog = []Preset{
	{Key: "1m", Label: "1 month", Offset: &Offset{Months: -1}},
	{Key: "3m", Label: "3 months", Offset: &Offset{Months: -3}},
	{Key: "1y", Label: "1 year", Offset: &Offset{Years: -1}},
	{Key: "2y", Label: "2 years", Offset: &Offset{Years: -2}},
	{Key: "all", Label: "All", Offset: nil},
}

// Presets returns the catalog in display order.
func Presets() []Preset {
	out := make([]Preset, len(catalog))
	copy(out, catalog)
	return out
}

// Keys returns the catalog keys in display order.
func Keys() []string {
	keys := make([]string, len(catalog))
	for i, p := range catalog {
		keys[i] = p.Key
	}
	return keys
}

// Lookup finds a preset by key.
func Lookup(key string) (Preset, bool) {
	for _, p := range catalog {
		if p.Key == key {
			return p, true
		}
	}
	return Preset{}, false
}

// Allowed filters keys to those in the catalog, keeping their order. An
// empty result falls back to the whole catalog.
func Allowed(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if _, ok := Lookup(k); ok && !seen[k] {
			out = append(out, k)
			seen[k] = true
		}
	}
	if len(out) == 0 {
		return Keys()
	}
	return out
}

// Resolve picks the active key. The requested key wins when it is allowed;
// otherwise defaultKey is used if allowed, else the first allowed key.
func Resolve(requested, defaultKey string, allowed []string) string {
	keys := Allowed(allowed)
	def := keys[0]
	if contains(keys, defaultKey) {
		def = defaultKey
	}
	if requested != "" && contains(keys, requested) {
		return requested
	}
	return def
}

// Filters carries the range request for a dashboard view: a global Range
// plus per-chart overrides keyed by chart id.
type Filters struct {
	Range  string
	Ranges map[string]string
}

// Requested returns the per-chart override for chartID or the global range.
func (f Filters) Requested(chartID string) string {
	if r, ok := f.Ranges[chartID]; ok && r != "" {
		return r
	}
	return f.Range
}

// ResolveSelected is Resolve applied to the filters' request for chartID.
func ResolveSelected(f Filters, chartID, defaultKey string, allowed []string) string {
	return Resolve(f.Requested(chartID), defaultKey, allowed)
}

// FiltersFromQuery reads ?range=1y and ?ranges[chart]=3m style parameters.
func FiltersFromQuery(q url.Values) Filters {
	f := Filters{Range: strings.TrimSpace(q.Get("range"))}
	for name, vals := range q {
		if !strings.HasPrefix(name, "ranges[") || !strings.HasSuffix(name, "]") || len(vals) == 0 {
			continue
		}
		chartID := name[len("ranges[") : len(name)-1]
		if chartID == "" {
			continue
		}
		if f.Ranges == nil {
			f.Ranges = make(map[string]string)
		}
		f.Ranges[chartID] = strings.TrimSpace(vals[0])
	}
	return f
}

// Bounds is a concrete window. A nil Start means unbounded. Whether End is
// inclusive is up to the caller.
type Bounds struct {
	Start *time.Time
	End   time.Time
}

// CalculateBounds resolves key against end. Unknown keys use DefaultKey.
func CalculateBounds(key string, end time.Time) Bounds {
	p, ok := Lookup(key)
	if !ok {
		p, _ = Lookup(DefaultKey)
	}
	b := Bounds{End: end}
	if p.Offset != nil {
		start := end.AddDate(p.Offset.Years, p.Offset.Months, p.Offset.Days)
		b.Start = &start
	}
	return b
}

// Selection builds the envelope's range metadata for the allowed keys with
// labels passed through translate. A nil translate leaves labels as is.
func Selection(active string, allowed []string, translate func(string) string) *viz.RangeSelection {
	if translate == nil {
		translate = func(s string) string { return s }
	}
	sel := &viz.RangeSelection{}
	for _, k := range Allowed(allowed) {
		p, _ := Lookup(k)
		sel.Options.Set(k, viz.RangeOption{Label: translate(p.Label)})
	}
	if active != "" && sel.Options.Has(active) {
		a := active
		sel.Active = &a
	}
	return sel
}

func contains(keys []string, k string) bool {
	for _, x := range keys {
		if x == k {
			return true
		}
	}
	return false
}
