// internal/app/charts/base.go
package charts

import (
	"context"
	"errors"
	"sort"
	"time"

	snapshotstore "github.com/dalemusser/stratadash/internal/app/store/snapshots"
	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"github.com/dalemusser/stratadash/internal/app/system/htmlsanitize"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/trend"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/dalemusser/stratadash/internal/domain/models"
)

// TrendColor is the line color of fitted trend datasets.
const TrendColor = "#9ca3af"

// Palette is the default dataset color cycle.
var Palette = []string{
	"#2563eb",
	"#16a34a",
	"#f97316",
	"#dc2626",
	"#7c3aed",
	"#0d9488",
	"#6366f1",
	"#f59e0b",
}

// Color returns the palette color for dataset i.
func Color(i int) string {
	return Palette[i%len(Palette)]
}

// Deps are shared by every builder.
type Deps struct {
	Source    Source
	Translate func(string) string
	Now       func() time.Time
}

// Base carries a builder's identity and the helpers builders compose.
type Base struct {
	Deps
	Section string
	Chart   string
	Order   int
}

// NewBase returns a Base for one chart.
func NewBase(deps Deps, section, chart string, weight int) Base {
	return Base{Deps: deps, Section: section, Chart: chart, Order: weight}
}

func (b Base) SectionID() string { return b.Section }
func (b Base) ChartID() string   { return b.Chart }
func (b Base) Weight() int       { return b.Order }

// T translates s.
func (b Base) T(s string) string {
	if b.Translate == nil {
		return s
	}
	return b.Translate(s)
}

// Clock returns the current time.
func (b Base) Clock() time.Time {
	if b.Now == nil {
		return time.Now().UTC()
	}
	return b.Now().UTC()
}

// NewDefinition fills in the builder's ids and weight.
func (b Base) NewDefinition(title, description string, p viz.Payload, notes ...string) *viz.Definition {
	return &viz.Definition{
		SectionID:     b.Section,
		ChartID:       b.Chart,
		Title:         title,
		Description:   description,
		Notes:         notes,
		Visualization: p,
		Weight:        b.Order,
	}
}

// Window resolves the requested range for this chart and its bounds
// ending now.
func (b Base) Window(filters ranges.Filters, defaultKey string, allowed []string) (string, ranges.Bounds) {
	key := ranges.ResolveSelected(filters, b.Chart, defaultKey, allowed)
	return key, ranges.CalculateBounds(key, b.Clock())
}

// Selection builds the range metadata with translated labels.
func (b Base) Selection(active string, allowed []string) *viz.RangeSelection {
	return ranges.Selection(active, allowed, b.Translate)
}

// Monthly reads one snapshot per month within bounds.
func (b Base) Monthly(ctx context.Context, bounds ranges.Bounds) ([]models.Snapshot, error) {
	return b.Source.Monthly(ctx, bounds.Start, bounds.End)
}

// Latest reads the newest snapshot. A store without snapshots yields nil.
func (b Base) Latest(ctx context.Context) (*models.Snapshot, error) {
	snap, err := b.Source.Latest(ctx)
	if errors.Is(err, snapshotstore.ErrNotFound) {
		return nil, nil
	}
	return snap, err
}

// Markup sanitizes html into a markup payload.
func (b Base) Markup(html string) viz.Markup {
	return viz.Markup{HTML: htmlsanitize.Sanitize(html)}
}

// Callback returns a descriptor for a registered behavior.
func Callback(id string, options map[string]any) callbacks.Descriptor {
	return callbacks.New(id, options)
}

// TrendDataset returns a dashed least-squares line over values, or nil
// when no trend can be fitted.
func TrendDataset(label string, values []float64) map[string]any {
	fitted := trend.Line(values)
	if len(fitted) == 0 {
		return nil
	}
	return map[string]any{
		"label":            label,
		"data":             trend.RoundAll(fitted, 2),
		"borderColor":      TrendColor,
		"backgroundColor":  TrendColor,
		"borderDash":       []any{6, 4},
		"pointRadius":      0,
		"pointHoverRadius": 0,
		"pointHitRadius":   0,
		"borderWidth":      2,
		"tension":          0,
		"fill":             false,
	}
}

// MonthLabels formats each snapshot period as "Jan 2024".
func MonthLabels(snaps []models.Snapshot) []string {
	out := make([]string, len(snaps))
	for i, s := range snaps {
		out[i] = s.Period.Format("Jan 2006")
	}
	return out
}

// Series extracts one metric per snapshot. Missing values are zero.
func Series(snaps []models.Snapshot, metric string) []float64 {
	out := make([]float64, len(snaps))
	for i, s := range snaps {
		out[i], _ = s.Metric(metric)
	}
	return out
}

// HasValues reports whether any value is non-zero.
func HasValues(values ...[]float64) bool {
	for _, vs := range values {
		for _, v := range vs {
			if v != 0 {
				return true
			}
		}
	}
	return false
}

// SortedKeys returns a distribution's keys in ascending order.
func SortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
