// internal/app/charts/overview/overview.go
package overview

import (
	"context"

	"github.com/dalemusser/stratadash/internal/app/charts"
	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/trend"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/dalemusser/stratadash/internal/domain/models"
)

// SectionID is the overview section.
const SectionID = "overview"

// smoothingRadius is the neighbours averaged on each side of a month.
const smoothingRadius = 2

// Builders returns the overview section's charts.
func Builders(deps charts.Deps) []charts.Builder {
	return []charts.Builder{
		&MembersTrend{Base: charts.NewBase(deps, SectionID, "members_trend", 10)},
		&NetChange{Base: charts.NewBase(deps, SectionID, "net_change", 20)},
	}
}

// MembersTrend plots active members per month with a fitted trend.
type MembersTrend struct {
	charts.Base
}

func (c *MembersTrend) Build(ctx context.Context, filters ranges.Filters) (*viz.Definition, error) {
	allowed := ranges.Keys()
	key, bounds := c.Window(filters, ranges.DefaultKey, allowed)
	snaps, err := c.Monthly(ctx, bounds)
	if err != nil {
		return nil, err
	}
	active := charts.Series(snaps, models.MetricMembersActive)
	if !charts.HasValues(active) {
		return nil, nil
	}

	datasets := []any{
		map[string]any{
			"label":           c.T("Active members"),
			"data":            active,
			"borderColor":     charts.Color(0),
			"backgroundColor": charts.Color(0),
			"pointRadius":     2,
			"tension":         0.25,
			"fill":            false,
		},
	}
	if td := charts.TrendDataset(c.T("Trend"), active); td != nil {
		datasets = append(datasets, td)
	}

	p := viz.NewChart(viz.ChartLine, map[string]any{
		"labels":   charts.MonthLabels(snaps),
		"datasets": datasets,
	}, map[string]any{
		"plugins": map[string]any{
			"legend": map[string]any{"position": "bottom"},
			"tooltip": map[string]any{
				"mode":      "index",
				"intersect": false,
				"callbacks": map[string]any{
					"label": charts.Callback(callbacks.SeriesValue, map[string]any{"format": "integer"}),
				},
			},
		},
		"scales": map[string]any{
			"y": map[string]any{
				"beginAtZero": false,
				"ticks": map[string]any{
					"callback": charts.Callback(callbacks.ValueFormat, map[string]any{"format": "integer"}),
				},
			},
		},
	})

	def := c.NewDefinition(
		c.T("Active Members"),
		c.T("Members holding an active membership at the end of each month."),
		p,
		c.T("Source: Monthly membership snapshots."),
		c.T("Processing: Uses the latest snapshot taken in each month; the dashed line is a least-squares fit."),
	)
	def.Range = c.Selection(key, allowed)
	return def, nil
}

// NetChange plots joins minus departures per month and a smoothed line.
type NetChange struct {
	charts.Base
}

var netChangeRanges = []string{"3m", "1y", "2y", "all"}

func (c *NetChange) Build(ctx context.Context, filters ranges.Filters) (*viz.Definition, error) {
	key, bounds := c.Window(filters, ranges.DefaultKey, netChangeRanges)
	snaps, err := c.Monthly(ctx, bounds)
	if err != nil {
		return nil, err
	}
	joined := charts.Series(snaps, models.MetricMembersJoined)
	ended := charts.Series(snaps, models.MetricMembersEnded)
	if !charts.HasValues(joined, ended) {
		return nil, nil
	}

	net := make([]float64, len(snaps))
	for i := range snaps {
		net[i] = joined[i] - ended[i]
	}

	p := viz.NewChart(viz.ChartLine, map[string]any{
		"labels": charts.MonthLabels(snaps),
		"datasets": []any{
			map[string]any{
				"label":           c.T("Net change"),
				"data":            net,
				"borderColor":     charts.Color(1),
				"backgroundColor": charts.Color(1),
				"pointRadius":     2,
				"fill":            false,
			},
			map[string]any{
				"label":           c.T("Five-month average"),
				"data":            trend.MovingAverage(net, smoothingRadius),
				"borderColor":     charts.Color(4),
				"backgroundColor": charts.Color(4),
				"borderDash":      []any{4, 4},
				"pointRadius":     0,
				"fill":            false,
			},
		},
	}, map[string]any{
		"plugins": map[string]any{
			"tooltip": map[string]any{
				"callbacks": map[string]any{
					"label": charts.Callback(callbacks.SeriesValue, map[string]any{
						"format":     "integer",
						"perDataset": map[string]any{"1": map[string]any{"format": "decimal", "decimals": 1}},
					}),
				},
			},
		},
		"scales": map[string]any{
			"y": map[string]any{
				"ticks": map[string]any{
					"callback": charts.Callback(callbacks.ValueFormat, map[string]any{"format": "integer"}),
				},
			},
		},
	})

	def := c.NewDefinition(
		c.T("Net Membership Change"),
		c.T("New members minus ended memberships per month."),
		p,
		c.T("Source: Monthly membership snapshots (joined and ended counts)."),
		c.T("Processing: The average covers up to two months on either side and narrows at the edges."),
	)
	def.Range = c.Selection(key, netChangeRanges)
	return def, nil
}
