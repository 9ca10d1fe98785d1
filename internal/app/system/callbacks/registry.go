// internal/app/system/callbacks/registry.go
package callbacks

import (
	"sort"

	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
)

// Registered callback ids.
const (
	SeriesValue         = "series_value"
	ValueFormat         = "value_format"
	DatasetSharePercent = "dataset_share_percent"
	CohortAfterBody     = "tooltip_after_body_cohort"
	DatasetMembersCount = "dataset_members_count"
)

// Registry maps callback ids to factories. It is built once and read-only
// afterwards, so one instance can be shared by concurrent renders.
type Registry struct {
	factories map[string]Factory
}

// Option customizes a Registry during construction.
type Option func(*Registry)

// WithFactory adds or replaces the factory for id.
func WithFactory(id string, f Factory) Option {
	return func(r *Registry) {
		r.factories[id] = f
	}
}

// NewRegistry returns the standard registry. Labels produced by behaviors
// pass through translate; nil leaves them as is. A nil formatter uses
// numfmt.Default.
func NewRegistry(f *numfmt.Formatter, translate func(string) string, opts ...Option) *Registry {
	if f == nil {
		f = numfmt.Default
	}
	if translate == nil {
		translate = func(s string) string { return s }
	}
	b := builtins{fmt: f, t: translate}
	r := &Registry{factories: map[string]Factory{
		SeriesValue:         b.seriesValue,
		ValueFormat:         b.valueFormat,
		DatasetSharePercent: b.datasetSharePercent,
		CohortAfterBody:     b.cohortAfterBody,
		DatasetMembersCount: b.datasetMembersCount,
	}}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Lookup returns the factory for id.
func (r *Registry) Lookup(id string) (Factory, bool) {
	if r == nil {
		return nil, false
	}
	f, ok := r.factories[id]
	return f, ok
}

// Build returns the behavior a descriptor names.
func (r *Registry) Build(d Descriptor) (Behavior, bool) {
	f, ok := r.Lookup(d.ID)
	if !ok || f == nil {
		return nil, false
	}
	return f(d.Options), true
}

// IDs lists registered ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
