// internal/app/system/viz/payload.go
//
// Package viz defines the visualization payloads chart builders emit and the
// envelope they travel in. A Payload is one of Chart, Table, Markup,
// Container or Unknown; Unknown only comes from decoding wire data whose type
// tag is missing or unrecognized.
package viz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the wire tag stored in a payload's "type" field.
type Kind string

const (
	KindChart     Kind = "chart"
	KindTable     Kind = "table"
	KindMarkup    Kind = "markup"
	KindContainer Kind = "container"
	KindUnknown   Kind = "unknown"
)

// LibraryChartJS is the only chart library the renderer recognizes.
const LibraryChartJS = "chartjs"

// Chart types understood by the renderer. Anything else renders as a line.
const (
	ChartBar      = "bar"
	ChartLine     = "line"
	ChartPie      = "pie"
	ChartDoughnut = "doughnut"
)

// PairClass marks a Container whose children render side by side.
const PairClass = "pie-chart-pair-container"

// Payload is the closed set of visualization variants.
type Payload interface {
	Kind() Kind
	isPayload()
}

// Chart is a plotted visualization. Data and Options follow the chart
// library's configuration shape and may hold callback descriptors anywhere
// a formatting function is expected.
type Chart struct {
	Library   string
	ChartType string
	Data      map[string]any
	Options   map[string]any
}

// Table is a literal grid. Empty overrides the generic no-data message.
type Table struct {
	Header []string
	Rows   [][]string
	Empty  *string
}

// Markup is pre-rendered HTML. Producers sanitize it before emitting.
type Markup struct {
	HTML string
}

// Container groups child payloads under ordered keys.
type Container struct {
	Attributes map[string]any
	Children   Children
}

// Unknown stands in for wire data with no recognizable type tag.
type Unknown struct {
	Type string
}

func (Chart) Kind() Kind     { return KindChart }
func (Table) Kind() Kind     { return KindTable }
func (Markup) Kind() Kind    { return KindMarkup }
func (Container) Kind() Kind { return KindContainer }
func (Unknown) Kind() Kind   { return KindUnknown }

func (Chart) isPayload()     {}
func (Table) isPayload()     {}
func (Markup) isPayload()    {}
func (Container) isPayload() {}
func (Unknown) isPayload()   {}

// NewChart returns a chartjs Chart of the given type.
func NewChart(chartType string, data, options map[string]any) Chart {
	return Chart{Library: LibraryChartJS, ChartType: chartType, Data: data, Options: options}
}

// NewTable returns a Table. A non-empty empty message is kept as the
// table's custom no-data text.
func NewTable(header []string, rows [][]string, empty string) Table {
	t := Table{Header: header, Rows: rows}
	if empty != "" {
		t.Empty = &empty
	}
	return t
}

// NewContainer returns a Container holding children in the given order.
func NewContainer(attrs map[string]any, children ...Child) Container {
	return Container{Attributes: attrs, Children: NewChildren(children...)}
}

// EffectiveType maps the chart type onto the renderer's plot kinds.
func (c Chart) EffectiveType() string {
	switch strings.ToLower(c.ChartType) {
	case ChartBar:
		return ChartBar
	case ChartPie, ChartDoughnut:
		return ChartPie
	default:
		return ChartLine
	}
}

// Classes returns the container's class attribute split into names. The
// attribute may be a space separated string or a list.
func (c Container) Classes() []string {
	switch v := c.Attributes["class"].(type) {
	case string:
		return strings.Fields(v)
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, strings.Fields(s)...)
			}
		}
		return out
	}
	return nil
}

// HasClass reports whether class is among the container's classes.
func (c Container) HasClass(class string) bool {
	for _, cl := range c.Classes() {
		if cl == class {
			return true
		}
	}
	return false
}

// Child is one keyed entry of a Container.
type Child = Entry[Payload]

// Children is the ordered child map of a Container.
type Children struct {
	Ordered[Payload]
}

// NewChildren builds Children in order.
func NewChildren(entries ...Child) Children {
	return Children{NewOrdered(entries...)}
}

// UnmarshalJSON decodes each child through DecodePayload.
func (c *Children) UnmarshalJSON(data []byte) error {
	c.entries = nil
	return decodeObject(data, func(key string, raw json.RawMessage) error {
		p, err := DecodePayload(raw)
		if err != nil {
			return fmt.Errorf("child %q: %w", key, err)
		}
		if p == nil {
			return nil
		}
		c.Set(key, p)
		return nil
	})
}

/* ---------------------------- JSON encoding ---------------------------- */

type chartWire struct {
	Type      Kind           `json:"type"`
	Library   string         `json:"library"`
	ChartType string         `json:"chartType"`
	Data      map[string]any `json:"data"`
	Options   map[string]any `json:"options"`
}

type tableWire struct {
	Type   Kind       `json:"type"`
	Header []string   `json:"header"`
	Rows   [][]string `json:"rows"`
	Empty  *string    `json:"empty"`
}

type markupWire struct {
	Type   Kind   `json:"type"`
	Markup string `json:"markup"`
	HTML   string `json:"html,omitempty"`
}

type containerWire struct {
	Type       Kind           `json:"type"`
	Attributes map[string]any `json:"attributes"`
	Children   Children       `json:"children"`
}

// MarshalJSON implements json.Marshaler.
func (c Chart) MarshalJSON() ([]byte, error) {
	opts := c.Options
	if opts == nil {
		opts = map[string]any{}
	}
	return json.Marshal(chartWire{
		Type:      KindChart,
		Library:   c.Library,
		ChartType: c.ChartType,
		Data:      c.Data,
		Options:   opts,
	})
}

// MarshalJSON implements json.Marshaler.
func (t Table) MarshalJSON() ([]byte, error) {
	header, rows := t.Header, t.Rows
	if header == nil {
		header = []string{}
	}
	if rows == nil {
		rows = [][]string{}
	}
	return json.Marshal(tableWire{Type: KindTable, Header: header, Rows: rows, Empty: t.Empty})
}

// MarshalJSON implements json.Marshaler.
func (m Markup) MarshalJSON() ([]byte, error) {
	return json.Marshal(markupWire{Type: KindMarkup, Markup: m.HTML})
}

// MarshalJSON implements json.Marshaler.
func (c Container) MarshalJSON() ([]byte, error) {
	attrs := c.Attributes
	if attrs == nil {
		attrs = map[string]any{}
	}
	return json.Marshal(containerWire{Type: KindContainer, Attributes: attrs, Children: c.Children})
}

// MarshalJSON implements json.Marshaler.
func (u Unknown) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type Kind `json:"type"`
	}{KindUnknown})
}

// DecodePayload decodes a visualization from JSON. A null document yields a
// nil Payload. A missing or unrecognized type yields Unknown.
func DecodePayload(data []byte) (Payload, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(trimmed, &head); err != nil {
		return nil, fmt.Errorf("decode visualization: %w", err)
	}

	switch Kind(head.Type) {
	case KindChart:
		var w struct {
			Library   string          `json:"library"`
			ChartType string          `json:"chartType"`
			Data      json.RawMessage `json:"data"`
			Options   json.RawMessage `json:"options"`
		}
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, fmt.Errorf("decode chart: %w", err)
		}
		data, err := decodeMap(w.Data)
		if err != nil {
			return nil, fmt.Errorf("decode chart data: %w", err)
		}
		opts, err := decodeMap(w.Options)
		if err != nil {
			return nil, fmt.Errorf("decode chart options: %w", err)
		}
		return Chart{Library: w.Library, ChartType: w.ChartType, Data: data, Options: opts}, nil
	case KindTable:
		var w tableWire
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, fmt.Errorf("decode table: %w", err)
		}
		return Table{Header: w.Header, Rows: w.Rows, Empty: w.Empty}, nil
	case KindMarkup:
		var w markupWire
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, fmt.Errorf("decode markup: %w", err)
		}
		html := w.Markup
		if html == "" {
			html = w.HTML
		}
		return Markup{HTML: html}, nil
	case KindContainer:
		var w struct {
			Attributes json.RawMessage `json:"attributes"`
			Children   Children        `json:"children"`
		}
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return nil, fmt.Errorf("decode container: %w", err)
		}
		attrs, err := decodeMap(w.Attributes)
		if err != nil {
			return nil, fmt.Errorf("decode container attributes: %w", err)
		}
		return Container{Attributes: attrs, Children: w.Children}, nil
	default:
		return Unknown{Type: head.Type}, nil
	}
}

// decodeMap decodes a JSON object. Null yields nil and an empty array
// yields an empty map.
func decodeMap(raw json.RawMessage) (map[string]any, error) {
	trimmed := bytes.TrimSpace(raw)
	switch {
	case len(trimmed) == 0, bytes.Equal(trimmed, []byte("null")):
		return nil, nil
	case bytes.Equal(trimmed, []byte("[]")):
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(trimmed, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// Normalize returns p in its wire shape: every typed value inside chart
// data and options, such as a callback descriptor, becomes the plain map it
// serializes to. In-process consumers use it so they see exactly what an
// HTTP client would.
func Normalize(p Payload) (Payload, error) {
	if p == nil {
		return nil, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("normalize %s payload: %w", p.Kind(), err)
	}
	return DecodePayload(raw)
}
