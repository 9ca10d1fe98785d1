// internal/app/charts/development/development.go
package development

import (
	"context"
	"time"

	"github.com/dalemusser/stratadash/internal/app/charts"
	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/dalemusser/stratadash/internal/domain/models"
)

// SectionID is the development (fundraising) section.
const SectionID = "development"

const (
	axisDonors = "yDonors"
	axisAmount = "yAmount"
)

// Builders returns the development section's charts.
func Builders(deps charts.Deps) []charts.Builder {
	return []charts.Builder{
		&MemberDonorTrend{Base: charts.NewBase(deps, SectionID, "member_donor_trend", 10)},
		&GivingMix{Base: charts.NewBase(deps, SectionID, "giving_mix", 20)},
	}
}

// MemberDonorTrend compares member and non-member donors (stacked bars)
// with the amount each group gave (lines on a second axis).
type MemberDonorTrend struct {
	charts.Base
}

var donorRanges = []string{"1y", "2y", "all"}

func (c *MemberDonorTrend) Build(ctx context.Context, filters ranges.Filters) (*viz.Definition, error) {
	key, bounds := c.Window(filters, "2y", donorRanges)
	snaps, err := c.Monthly(ctx, bounds)
	if err != nil {
		return nil, err
	}
	memberDonors := charts.Series(snaps, models.MetricMemberDonors)
	otherDonors := charts.Series(snaps, models.MetricNonMemberDonors)
	memberGiving := charts.Series(snaps, models.MetricMemberGiving)
	otherGiving := charts.Series(snaps, models.MetricNonMemberGiving)
	if !charts.HasValues(memberDonors, otherDonors, memberGiving, otherGiving) {
		return nil, nil
	}

	p := viz.NewChart(viz.ChartBar, map[string]any{
		"labels": charts.MonthLabels(snaps),
		"datasets": []any{
			map[string]any{
				"label":           c.T("Member donors"),
				"data":            memberDonors,
				"backgroundColor": "#2563eb",
				"stack":           "donors",
				"yAxisID":         axisDonors,
			},
			map[string]any{
				"label":           c.T("Non-member donors"),
				"data":            otherDonors,
				"backgroundColor": "#93c5fd",
				"stack":           "donors",
				"yAxisID":         axisDonors,
			},
			map[string]any{
				"type":            viz.ChartLine,
				"label":           c.T("Member giving"),
				"data":            memberGiving,
				"borderColor":     "#16a34a",
				"backgroundColor": "#16a34a",
				"yAxisID":         axisAmount,
				"tension":         0.25,
			},
			map[string]any{
				"type":            viz.ChartLine,
				"label":           c.T("Non-member giving"),
				"data":            otherGiving,
				"borderColor":     "#f97316",
				"backgroundColor": "#f97316",
				"yAxisID":         axisAmount,
				"tension":         0.25,
			},
		},
	}, map[string]any{
		"interaction": map[string]any{"mode": "index", "intersect": false},
		"plugins": map[string]any{
			"legend": map[string]any{"position": "bottom"},
			"tooltip": map[string]any{
				"callbacks": map[string]any{
					"label": charts.Callback(callbacks.SeriesValue, map[string]any{
						"format": "integer",
						"perAxis": map[string]any{
							axisAmount: map[string]any{"format": "currency", "decimals": 0},
						},
					}),
				},
			},
		},
		"scales": map[string]any{
			"x": map[string]any{"stacked": true},
			axisDonors: map[string]any{
				"position": "left",
				"stacked":  true,
				"title":    map[string]any{"display": true, "text": c.T("Donors")},
				"ticks": map[string]any{
					"callback": charts.Callback(callbacks.ValueFormat, map[string]any{"format": "integer"}),
				},
			},
			axisAmount: map[string]any{
				"position": "right",
				"grid":     map[string]any{"drawOnChartArea": false},
				"title":    map[string]any{"display": true, "text": c.T("Amount given")},
				"ticks": map[string]any{
					"callback": charts.Callback(callbacks.ValueFormat, map[string]any{"format": "currency", "decimals": 0}),
				},
			},
		},
	})

	def := c.NewDefinition(
		c.T("Member vs Non-member Donors"),
		c.T("Monthly donor counts and amount given, split by membership status at the time of the gift."),
		p,
		c.T("Source: Monthly development snapshots."),
		c.T("Processing: A donor is counted once per month regardless of the number of gifts."),
	)
	def.Range = c.Selection(key, donorRanges)
	return def, nil
}

// GivingMix shows the latest month's giving by channel.
type GivingMix struct {
	charts.Base
}

func (c *GivingMix) Build(ctx context.Context, _ ranges.Filters) (*viz.Definition, error) {
	snap, err := c.Latest(ctx)
	if err != nil || snap == nil {
		return nil, err
	}
	channels := snap.Breakdown(models.BreakdownGivingChannel)
	labels := charts.SortedKeys(channels)
	values := make([]float64, len(labels))
	colors := make([]any, len(labels))
	for i, l := range labels {
		values[i] = channels[l]
		colors[i] = charts.Color(i)
	}
	if !charts.HasValues(values) {
		return nil, nil
	}

	p := viz.NewChart(viz.ChartDoughnut, map[string]any{
		"labels": labels,
		"datasets": []any{
			map[string]any{
				"label":           c.T("Giving"),
				"data":            values,
				"backgroundColor": colors,
			},
		},
	}, map[string]any{
		"plugins": map[string]any{
			"legend": map[string]any{"position": "right"},
			"datalabels": map[string]any{
				"formatter": charts.Callback(callbacks.DatasetSharePercent, map[string]any{"decimals": 0}),
			},
			"tooltip": map[string]any{
				"callbacks": map[string]any{
					"label": charts.Callback(callbacks.SeriesValue, map[string]any{"format": "currency", "decimals": 0}),
					"afterLabel": charts.Callback(callbacks.DatasetSharePercent, map[string]any{
						"decimals": 1,
						"suffix":   "% " + c.T("of total"),
					}),
				},
			},
		},
	})

	def := c.NewDefinition(
		c.T("Giving by Channel"),
		c.T("Share of gifts received through each channel in the latest month."),
		p,
		c.T("Source: Latest development snapshot."),
	)
	def.Cache = viz.CacheHints{MaxAge: time.Hour}
	return def, nil
}
