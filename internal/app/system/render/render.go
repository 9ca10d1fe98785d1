// internal/app/system/render/render.go
//
// Package render turns visualization payloads into a Node tree and HTML.
// Charts are hydrated through the callback bridge, plotted to SVG and
// followed by a per-point details table built from the tooltip callbacks.
package render

import (
	"html/template"
	"strconv"
	"strings"

	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"github.com/dalemusser/stratadash/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"go.uber.org/zap"
)

// Kind identifies what a Node displays.
type Kind string

const (
	KindChart       Kind = "chart"
	KindTable       Kind = "table"
	KindMarkup      Kind = "markup"
	KindContainer   Kind = "container"
	KindEmpty       Kind = "empty"
	KindUnsupported Kind = "unsupported"
)

const (
	msgNoData      = "No data available."
	msgUnsupported = "Unsupported chart type."

	// TwoUpClass is added to containers carrying viz.PairClass.
	TwoUpClass = "viz-container--two-up"

	defaultWidth  = 640
	defaultHeight = 320
)

// Point is one row of a chart's details table: the hovered category and
// the lines its tooltip would show.
type Point struct {
	Title string
	Lines []string
}

// Row is a table row with a key derived from its position.
type Row struct {
	Key   string
	Cells []string
}

// Node is the rendered form of a payload.
type Node struct {
	Kind      Kind
	Key       string
	Class     string
	ChartType string
	Message   string
	SVG       template.HTML
	Points    []Point
	Header    []string
	Rows      []Row
	HTML      template.HTML
	Children  []*Node
}

// Child returns the direct child tagged with key.
func (n *Node) Child(key string) *Node {
	if n == nil {
		return nil
	}
	for _, c := range n.Children {
		if c.Key == key {
			return c
		}
	}
	return nil
}

// Renderer renders payloads. It is safe for concurrent use.
type Renderer struct {
	hydrator *callbacks.Hydrator
	fmt      *numfmt.Formatter
	t        func(string) string
	logger   *zap.Logger
	width    int
	height   int
	sanitize bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithSize sets the SVG canvas size.
func WithSize(width, height int) Option {
	return func(r *Renderer) {
		if width > 0 {
			r.width = width
		}
		if height > 0 {
			r.height = height
		}
	}
}

// WithSanitizedMarkup runs markup payloads through htmlsanitize before
// display. Use it when payloads come from a server that is not trusted;
// by default markup is trusted producer output.
func WithSanitizedMarkup() Option {
	return func(r *Renderer) { r.sanitize = true }
}

// WithFormatter sets the formatter used for default tooltip lines.
func WithFormatter(f *numfmt.Formatter) Option {
	return func(r *Renderer) {
		if f != nil {
			r.fmt = f
		}
	}
}

// New returns a Renderer. A nil hydrator gets one backed by the built-in
// callback registry without revival; a nil translate is the identity.
func New(h *callbacks.Hydrator, translate func(string) string, logger *zap.Logger, opts ...Option) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if translate == nil {
		translate = func(s string) string { return s }
	}
	if h == nil {
		h = callbacks.NewHydrator(callbacks.NewRegistry(numfmt.Default, translate), nil, logger)
	}
	r := &Renderer{
		hydrator: h,
		fmt:      numfmt.Default,
		t:        translate,
		logger:   logger,
		width:    defaultWidth,
		height:   defaultHeight,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns the node tree for p. It returns nil for a nil payload and
// for a container with nothing to show.
func (r *Renderer) Render(p viz.Payload) *Node {
	return r.render(p, "")
}

func (r *Renderer) render(p viz.Payload, key string) *Node {
	var n *Node
	switch v := deref(p).(type) {
	case nil:
		return nil
	case viz.Chart:
		n = r.chart(v, key)
	case viz.Table:
		n = r.table(v)
	case viz.Markup:
		n = &Node{Kind: KindMarkup, HTML: r.markup(v.HTML)}
	case viz.Container:
		n = r.container(v)
	default:
		n = r.unsupported()
	}
	if n != nil {
		n.Key = key
	}
	return n
}

func deref(p viz.Payload) viz.Payload {
	switch v := p.(type) {
	case *viz.Chart:
		if v == nil {
			return nil
		}
		return *v
	case *viz.Table:
		if v == nil {
			return nil
		}
		return *v
	case *viz.Markup:
		if v == nil {
			return nil
		}
		return *v
	case *viz.Container:
		if v == nil {
			return nil
		}
		return *v
	case *viz.Unknown:
		if v == nil {
			return nil
		}
		return *v
	}
	return p
}

func (r *Renderer) empty(msg string) *Node {
	return &Node{Kind: KindEmpty, Message: msg}
}

func (r *Renderer) unsupported() *Node {
	return &Node{Kind: KindUnsupported, Message: r.t(msgUnsupported)}
}

func (r *Renderer) table(t viz.Table) *Node {
	if len(t.Rows) == 0 {
		if t.Empty != nil && *t.Empty != "" {
			return r.empty(*t.Empty)
		}
		return r.empty(r.t(msgNoData))
	}
	n := &Node{Kind: KindTable, Header: t.Header, Rows: make([]Row, len(t.Rows))}
	for i, cells := range t.Rows {
		n.Rows[i] = Row{Key: "row-" + strconv.Itoa(i), Cells: cells}
	}
	return n
}

func (r *Renderer) container(c viz.Container) *Node {
	entries := c.Children.Entries()
	if len(entries) == 0 {
		return nil
	}
	classes := c.Classes()
	if c.HasClass(viz.PairClass) {
		classes = append(classes, TwoUpClass)
	}
	n := &Node{Kind: KindContainer, Class: strings.Join(classes, " ")}
	for _, e := range entries {
		if child := r.render(e.Value, e.Key); child != nil {
			n.Children = append(n.Children, child)
		}
	}
	if len(n.Children) == 0 {
		return nil
	}
	return n
}

func (r *Renderer) markup(fragment string) template.HTML {
	if r.sanitize {
		return htmlsanitize.Safe(fragment)
	}
	return template.HTML(fragment)
}

func (r *Renderer) chart(c viz.Chart, key string) *Node {
	if c.Library != viz.LibraryChartJS {
		return r.unsupported()
	}
	if c.Data == nil {
		return r.empty(r.t(msgNoData))
	}

	p := newPlot(r.hydrator.HydrateMap(c.Data), r.hydrator.HydrateMap(c.Options))
	n := &Node{
		Kind:      KindChart,
		Class:     "viz-chart--" + c.EffectiveType(),
		ChartType: c.EffectiveType(),
		Points:    r.details(p),
	}
	svg, err := r.draw(c.EffectiveType(), p)
	if err != nil {
		r.logger.Warn("chart plot failed",
			zap.String("key", key),
			zap.String("chart_type", c.ChartType),
			zap.Error(err),
		)
	}
	n.SVG = svg
	return n
}

// details emulates the chart library's tooltip for every category.
func (r *Renderer) details(p plot) []Point {
	cb := p.tooltipCallbacks()
	title := behavior(cb["title"])
	label := behavior(cb["label"])
	afterLabel := behavior(cb["afterLabel"])
	afterBody := behavior(cb["afterBody"])

	specs := p.specs()
	var points []Point
	for i := 0; i < p.size(); i++ {
		var items []callbacks.Invocation
		for j := range p.datasets {
			if inv, ok := p.invocation(i, j, specs); ok {
				items = append(items, inv)
			}
		}
		if len(items) == 0 {
			continue
		}

		pt := Point{Title: p.label(i)}
		if title != nil {
			if lines := title.Call(callbacks.Invocation{Items: items, Datasets: specs, DataIndex: i, Label: p.label(i)}); len(lines) > 0 {
				pt.Title = lines.String()
			}
		}
		for _, inv := range items {
			if label != nil {
				pt.Lines = append(pt.Lines, label.Call(inv)...)
			} else {
				pt.Lines = append(pt.Lines, r.defaultLabel(inv)...)
			}
			if afterLabel != nil {
				pt.Lines = append(pt.Lines, afterLabel.Call(inv)...)
			}
		}
		if afterBody != nil {
			pt.Lines = append(pt.Lines, afterBody.Call(callbacks.Invocation{Items: items, Datasets: specs, DataIndex: i})...)
		}
		points = append(points, pt)
	}
	return points
}

func (r *Renderer) defaultLabel(inv callbacks.Invocation) callbacks.Lines {
	v, ok := callbacks.PointValue(inv)
	if !ok {
		return nil
	}
	opts := numfmt.Options{Format: numfmt.Integer}
	if v != float64(int64(v)) {
		opts = numfmt.Options{Format: numfmt.Decimal, Decimals: numfmt.Places(2)}
	}
	out := r.fmt.Format(v, opts)
	if inv.Label != "" {
		out = inv.Label + ": " + out
	}
	return callbacks.Text(out)
}

func behavior(v any) callbacks.Behavior {
	b, _ := v.(callbacks.Behavior)
	return b
}
