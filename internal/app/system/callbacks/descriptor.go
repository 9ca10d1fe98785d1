// internal/app/system/callbacks/descriptor.go
//
// Package callbacks carries formatting behavior through chart payloads as
// data. Builders place a Descriptor wherever the chart configuration expects
// a function; before rendering, a Hydrator swaps each descriptor for the
// Behavior the Registry builds from it.
package callbacks

import (
	"encoding/json"
	"strings"
)

// Marker is the reserved key that identifies a descriptor map on the wire.
const Marker = "__callback"

// Descriptor names a registered behavior and the options to build it with.
// It serializes as {"__callback": id, "options": {...}}.
type Descriptor struct {
	ID      string
	Options map[string]any
}

// New returns a Descriptor for id.
func New(id string, options map[string]any) Descriptor {
	return Descriptor{ID: id, Options: options}
}

// MarshalJSON implements json.Marshaler.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	opts := d.Options
	if opts == nil {
		opts = map[string]any{}
	}
	return json.Marshal(map[string]any{
		Marker:    d.ID,
		"options": opts,
	})
}

// AsDescriptor recognizes a descriptor in either its typed form or its
// decoded wire form.
func AsDescriptor(v any) (Descriptor, bool) {
	switch d := v.(type) {
	case Descriptor:
		return d, true
	case *Descriptor:
		if d == nil {
			return Descriptor{}, false
		}
		return *d, true
	case map[string]any:
		raw, ok := d[Marker]
		if !ok {
			return Descriptor{}, false
		}
		id, _ := raw.(string)
		opts, _ := d["options"].(map[string]any)
		return Descriptor{ID: strings.TrimSpace(id), Options: opts}, true
	}
	return Descriptor{}, false
}

// Lines is the output of a Behavior. Tooltip hooks may produce several
// lines; formatters produce one. An empty Lines means omit the output.
type Lines []string

// Text returns Lines holding s, or nil when s is empty.
func Text(s string) Lines {
	if s == "" {
		return nil
	}
	return Lines{s}
}

// String joins the lines with newlines.
func (l Lines) String() string {
	return strings.Join(l, "\n")
}

// Invocation is the context a Behavior is called with. It mirrors what the
// chart library hands a tooltip or tick callback: the point's raw and
// parsed values, its dataset and position, and the chart's datasets.
type Invocation struct {
	Value        any
	Parsed       any
	Label        string
	AxisID       string
	DataIndex    int
	DatasetIndex int
	Dataset      map[string]any
	Datasets     []map[string]any
	Items        []Invocation
}

// Behavior is a live formatter produced from a descriptor.
type Behavior func(Invocation) Lines

// Call invokes b, treating a nil Behavior as producing nothing.
func (b Behavior) Call(inv Invocation) Lines {
	if b == nil {
		return nil
	}
	return b(inv)
}

// Factory builds a Behavior from descriptor options.
type Factory func(options map[string]any) Behavior
