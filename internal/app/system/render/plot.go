// internal/app/system/render/plot.go
package render

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"math"

	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// palette is used for datasets that carry no color of their own.
var palette = []string{"#2563eb", "#16a34a", "#f97316", "#dc2626", "#7c3aed", "#0d9488", "#6366f1", "#f59e0b"}

var errNoSeries = errors.New("no plottable series")

type dataset struct {
	label  string
	spec   map[string]any
	raw    []any
	values []float64
	ok     []bool
}

// plot is a hydrated chart configuration in a shape the drawing code can
// walk without repeated type assertions.
type plot struct {
	labels   []string
	datasets []dataset
	options  map[string]any
}

func newPlot(data, options map[string]any) plot {
	p := plot{options: options}
	for _, l := range asSlice(data["labels"]) {
		p.labels = append(p.labels, labelText(l))
	}
	for _, d := range asSlice(data["datasets"]) {
		m, ok := d.(map[string]any)
		if !ok {
			continue
		}
		ds := dataset{spec: m}
		ds.label, _ = m["label"].(string)
		for _, v := range asSlice(m["data"]) {
			f, ok := callbacks.PointValue(callbacks.Invocation{Value: v})
			ds.raw = append(ds.raw, v)
			ds.values = append(ds.values, f)
			ds.ok = append(ds.ok, ok)
		}
		p.datasets = append(p.datasets, ds)
	}
	return p
}

func (p plot) size() int {
	n := len(p.labels)
	for _, ds := range p.datasets {
		if len(ds.raw) > n {
			n = len(ds.raw)
		}
	}
	return n
}

func (p plot) label(i int) string {
	if i < len(p.labels) {
		return p.labels[i]
	}
	return ""
}

func (p plot) specs() []map[string]any {
	out := make([]map[string]any, len(p.datasets))
	for i, ds := range p.datasets {
		out[i] = ds.spec
	}
	return out
}

func (p plot) invocation(i, j int, specs []map[string]any) (callbacks.Invocation, bool) {
	ds := p.datasets[j]
	if i >= len(ds.raw) || ds.raw[i] == nil {
		return callbacks.Invocation{}, false
	}
	inv := callbacks.Invocation{
		Value:        ds.raw[i],
		Label:        ds.label,
		DataIndex:    i,
		DatasetIndex: j,
		Dataset:      ds.spec,
		Datasets:     specs,
	}
	if ds.ok[i] {
		inv.Parsed = ds.values[i]
	}
	inv.AxisID, _ = ds.spec["yAxisID"].(string)
	return inv, true
}

func (p plot) tooltipCallbacks() map[string]any {
	return dig(p.options, "plugins", "tooltip", "callbacks")
}

// tickFormatter adapts an axis tick callback to go-chart.
func (p plot) tickFormatter(axisID string) chart.ValueFormatter {
	b := behavior(dig(p.options, "scales", axisID, "ticks")["callback"])
	if b == nil {
		return nil
	}
	return func(v interface{}) string {
		return b.Call(callbacks.Invocation{Value: v, AxisID: axisID}).String()
	}
}

func (p plot) primaryAxis() string {
	for _, ds := range p.datasets {
		if id, ok := ds.spec["yAxisID"].(string); ok && id != "" {
			return id
		}
	}
	return "y"
}

// draw plots p and returns the SVG markup. Plot failures, including
// panics inside the drawing library, come back as errors.
func (r *Renderer) draw(chartType string, p plot) (svg template.HTML, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			svg, err = "", fmt.Errorf("plot panic: %v", rec)
		}
	}()

	var g interface {
		Render(chart.RendererProvider, io.Writer) error
	}
	switch chartType {
	case viz.ChartBar:
		g, err = r.barChart(p)
	case viz.ChartPie:
		g, err = r.pieChart(p)
	default:
		g, err = r.lineChart(p)
	}
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := g.Render(chart.SVG, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (r *Renderer) lineChart(p plot) (*chart.Chart, error) {
	primary := p.primaryAxis()
	g := &chart.Chart{
		Width:  r.width,
		Height: r.height,
		XAxis:  chart.XAxis{Ticks: p.ticks()},
		YAxis:  chart.YAxis{ValueFormatter: p.tickFormatter(primary)},
	}
	for j, ds := range p.datasets {
		var xs, ys []float64
		for i, ok := range ds.ok {
			if ok {
				xs = append(xs, float64(i))
				ys = append(ys, ds.values[i])
			}
		}
		if len(xs) == 0 {
			continue
		}
		s := chart.ContinuousSeries{Name: ds.label, XValues: xs, YValues: ys, Style: lineStyle(ds, j)}
		if axis, _ := ds.spec["yAxisID"].(string); axis != "" && axis != primary {
			s.YAxis = chart.YAxisSecondary
			g.YAxisSecondary.ValueFormatter = p.tickFormatter(axis)
		}
		g.Series = append(g.Series, s)
	}
	if len(g.Series) == 0 {
		return nil, errNoSeries
	}
	g.Elements = []chart.Renderable{chart.Legend(g)}
	return g, nil
}

func (p plot) ticks() []chart.Tick {
	ticks := make([]chart.Tick, 0, len(p.labels))
	for i, l := range p.labels {
		ticks = append(ticks, chart.Tick{Value: float64(i), Label: l})
	}
	return ticks
}

func (r *Renderer) barChart(p plot) (interface {
	Render(chart.RendererProvider, io.Writer) error
}, error) {
	p = p.barsOnly()
	if len(p.datasets) == 0 {
		return nil, errNoSeries
	}
	if p.stacked() {
		return r.stackedBarChart(p), nil
	}

	bc := &chart.BarChart{
		Width:        r.width,
		Height:       r.height,
		BarSpacing:   8,
		UseBaseValue: true,
		YAxis:        chart.YAxis{ValueFormatter: p.tickFormatter(p.primaryAxis())},
	}
	minValue, maxValue := 0.0, 0.0
	for i := 0; i < p.size(); i++ {
		for j, ds := range p.datasets {
			if i >= len(ds.ok) || !ds.ok[i] {
				continue
			}
			label := ""
			if j == 0 {
				label = p.label(i)
			}
			c := colorOf(ds.spec["backgroundColor"], i, j)
			bc.Bars = append(bc.Bars, chart.Value{
				Label: label,
				Value: ds.values[i],
				Style: chart.Style{FillColor: c, StrokeColor: c},
			})
			minValue = math.Min(minValue, ds.values[i])
			maxValue = math.Max(maxValue, ds.values[i])
		}
	}
	if len(bc.Bars) == 0 {
		return nil, errNoSeries
	}
	// The axis always includes zero so bars grow from the baseline.
	if maxValue > minValue {
		bc.YAxis.Range = &chart.ContinuousRange{Min: minValue, Max: maxValue}
	}
	return bc, nil
}

// barsOnly drops datasets overlaid as lines on a bar chart. They still
// appear in the details table.
func (p plot) barsOnly() plot {
	out := p
	out.datasets = nil
	for _, ds := range p.datasets {
		if t, _ := ds.spec["type"].(string); t == viz.ChartLine {
			continue
		}
		out.datasets = append(out.datasets, ds)
	}
	return out
}

func (p plot) stacked() bool {
	for _, ds := range p.datasets {
		if _, ok := ds.spec["stack"]; ok {
			return true
		}
	}
	stacked, _ := dig(p.options, "scales", "x")["stacked"].(bool)
	return stacked
}

// stackedBarChart draws one bar per category with a segment per dataset.
func (r *Renderer) stackedBarChart(p plot) *chart.StackedBarChart {
	sb := &chart.StackedBarChart{Width: r.width, Height: r.height, BarSpacing: 8}
	for i := 0; i < p.size(); i++ {
		bar := chart.StackedBar{Name: p.label(i)}
		for j, ds := range p.datasets {
			if i >= len(ds.ok) || !ds.ok[i] || ds.values[i] <= 0 {
				continue
			}
			c := colorOf(ds.spec["backgroundColor"], i, j)
			bar.Values = append(bar.Values, chart.Value{
				Label: ds.label,
				Value: ds.values[i],
				Style: chart.Style{FillColor: c, StrokeColor: c},
			})
		}
		if len(bar.Values) > 0 {
			sb.Bars = append(sb.Bars, bar)
		}
	}
	return sb
}

// pieChart plots the first dataset. Slice labels come from the datalabels
// formatter when one is configured.
func (r *Renderer) pieChart(p plot) (*chart.PieChart, error) {
	if len(p.datasets) == 0 {
		return nil, errNoSeries
	}
	formatter := behavior(dig(p.options, "plugins", "datalabels")["formatter"])
	ds := p.datasets[0]
	specs := p.specs()

	pc := &chart.PieChart{Width: r.width, Height: r.height}
	for i, ok := range ds.ok {
		if !ok || ds.values[i] <= 0 {
			continue
		}
		label := p.label(i)
		if formatter != nil {
			if inv, ok := p.invocation(i, 0, specs); ok {
				if lines := formatter.Call(inv); len(lines) > 0 {
					label = lines.String()
				}
			}
		}
		c := colorOf(ds.spec["backgroundColor"], i, i)
		pc.Values = append(pc.Values, chart.Value{
			Label: label,
			Value: ds.values[i],
			Style: chart.Style{FillColor: c, StrokeColor: drawing.ColorWhite},
		})
	}
	if len(pc.Values) == 0 {
		return nil, errNoSeries
	}
	return pc, nil
}

func lineStyle(ds dataset, j int) chart.Style {
	stroke := colorOf(ds.spec["borderColor"], 0, j)
	s := chart.Style{StrokeColor: stroke, StrokeWidth: 2}
	if w, ok := numfmt.ToFloat(ds.spec["borderWidth"]); ok && w > 0 {
		s.StrokeWidth = w
	}
	if dash := floats(ds.spec["borderDash"]); len(dash) > 0 {
		s.StrokeDashArray = dash
	}
	if fill, _ := ds.spec["fill"].(bool); fill {
		s.FillColor = colorOf(ds.spec["backgroundColor"], 0, j).WithAlpha(64)
	}
	if radius, ok := numfmt.ToFloat(ds.spec["pointRadius"]); ok && radius > 0 {
		s.DotWidth = radius
		s.DotColor = stroke
	}
	return s
}

// colorOf reads a single color or the i-th entry of a color list, falling
// back to the palette entry for fallback.
func colorOf(v any, i, fallback int) drawing.Color {
	var raw string
	switch c := v.(type) {
	case string:
		raw = c
	case []any:
		if len(c) > 0 {
			raw, _ = c[i%len(c)].(string)
		}
	case []string:
		if len(c) > 0 {
			raw = c[i%len(c)]
		}
	}
	if raw != "" {
		if col := drawing.ParseColor(raw); !col.IsZero() {
			return col
		}
	}
	return drawing.ParseColor(palette[fallback%len(palette)])
}

func floats(v any) []float64 {
	var out []float64
	for _, item := range asSlice(v) {
		if f, ok := numfmt.ToFloat(item); ok {
			out = append(out, f)
		}
	}
	return out
}

func asSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case []float64:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case []int:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case []map[string]any:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	}
	return nil
}

func labelText(v any) string {
	switch l := v.(type) {
	case string:
		return l
	case nil, callbacks.Behavior:
		return ""
	default:
		return fmt.Sprint(l)
	}
}

// dig walks nested maps and returns the map at path, or nil.
func dig(m map[string]any, path ...string) map[string]any {
	cur := m
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}
