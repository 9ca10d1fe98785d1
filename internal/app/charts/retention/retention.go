// internal/app/charts/retention/retention.go
package retention

import (
	"context"
	"fmt"
	"html"
	"sort"
	"time"

	"github.com/dalemusser/stratadash/internal/app/charts"
	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/trend"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/dalemusser/stratadash/internal/domain/models"
)

// SectionID is the retention section.
const SectionID = "retention"

// Builders returns the retention section's charts.
func Builders(deps charts.Deps) []charts.Builder {
	return []charts.Builder{
		&CohortComposition{Base: charts.NewBase(deps, SectionID, "annual_cohorts", 5)},
		&AnnualRetention{Base: charts.NewBase(deps, SectionID, "annual_retention", 10)},
		&GoalProgress{Base: charts.NewBase(deps, SectionID, "goal_members", 20)},
		&Highlights{Base: charts.NewBase(deps, SectionID, "highlights", 90)},
	}
}

// CohortComposition stacks still-active and lapsed members per join year.
type CohortComposition struct {
	charts.Base
}

func (c *CohortComposition) Build(ctx context.Context, _ ranges.Filters) (*viz.Definition, error) {
	snap, err := c.Latest(ctx)
	if err != nil || snap == nil {
		return nil, err
	}
	activeBy := snap.Breakdown(models.BreakdownCohortActive)
	inactiveBy := snap.Breakdown(models.BreakdownCohortInactive)

	seen := map[string]bool{}
	var years []string
	for _, m := range []map[string]float64{activeBy, inactiveBy} {
		for y := range m {
			if !seen[y] {
				seen[y] = true
				years = append(years, y)
			}
		}
	}
	sort.Strings(years)

	active := make([]float64, len(years))
	inactive := make([]float64, len(years))
	for i, y := range years {
		active[i] = activeBy[y]
		inactive[i] = max(0, inactiveBy[y])
	}
	if !charts.HasValues(active, inactive) {
		return nil, nil
	}

	p := viz.NewChart(viz.ChartBar, map[string]any{
		"labels": years,
		"datasets": []any{
			map[string]any{
				"label":           c.T("Still active"),
				"data":            active,
				"backgroundColor": "#ef4444",
				"stack":           "cohort",
			},
			map[string]any{
				"label":           c.T("No longer active"),
				"data":            inactive,
				"backgroundColor": "#94a3b8",
				"stack":           "cohort",
			},
		},
	}, map[string]any{
		"plugins": map[string]any{
			"tooltip": map[string]any{
				"callbacks": map[string]any{
					"afterBody": charts.Callback(callbacks.CohortAfterBody, nil),
				},
			},
		},
	})

	return c.NewDefinition(
		c.T("Cohort Composition by Join Year"),
		c.T("Active vs inactive members for each join year cohort."),
		p,
		c.T("Source: Member join dates grouped by calendar year."),
		c.T("Processing: A member counts as active when they hold an active membership today."),
		c.T(`Definitions: "Still active" reflects an active membership today; "No longer active" covers everyone else in the cohort.`),
	), nil
}

// AnnualRetention plots the trailing twelve-month retention rate.
type AnnualRetention struct {
	charts.Base
}

func (c *AnnualRetention) Build(ctx context.Context, filters ranges.Filters) (*viz.Definition, error) {
	allowed := ranges.Keys()
	key, bounds := c.Window(filters, "2y", allowed)
	snaps, err := c.Monthly(ctx, bounds)
	if err != nil {
		return nil, err
	}
	rates := charts.Series(snaps, models.MetricRetention12Month)
	if !charts.HasValues(rates) {
		return nil, nil
	}

	datasets := []any{
		map[string]any{
			"label":           c.T("Retention"),
			"data":            rates,
			"borderColor":     charts.Color(5),
			"backgroundColor": charts.Color(5),
			"pointRadius":     2,
			"fill":            true,
		},
	}
	if td := charts.TrendDataset(c.T("Trend"), rates); td != nil {
		datasets = append(datasets, td)
	}

	p := viz.NewChart(viz.ChartLine, map[string]any{
		"labels":   charts.MonthLabels(snaps),
		"datasets": datasets,
	}, map[string]any{
		"plugins": map[string]any{
			"tooltip": map[string]any{
				"callbacks": map[string]any{
					"label": charts.Callback(callbacks.SeriesValue, map[string]any{"format": "percent", "decimals": 1}),
				},
			},
		},
		"scales": map[string]any{
			"y": map[string]any{
				"suggestedMax": 100,
				"ticks": map[string]any{
					"callback": charts.Callback(callbacks.ValueFormat, map[string]any{"format": "percent"}),
				},
			},
		},
	})

	def := c.NewDefinition(
		c.T("Twelve-Month Retention"),
		c.T("Share of members active twelve months ago who are still active."),
		p,
		c.T("Source: Monthly membership snapshots."),
	)
	def.Range = c.Selection(key, allowed)
	return def, nil
}

// GoalProgress shows, per member goal, the share of members who report
// meeting it. Raw member counts ride along for the tooltip.
type GoalProgress struct {
	charts.Base
}

func (c *GoalProgress) Build(ctx context.Context, _ ranges.Filters) (*viz.Definition, error) {
	snap, err := c.Latest(ctx)
	if err != nil || snap == nil {
		return nil, err
	}
	members := snap.Breakdown(models.BreakdownGoalMembers)
	met := snap.Breakdown(models.BreakdownGoalMet)

	goals := make([]string, 0, len(members))
	for g, n := range members {
		if n > 0 {
			goals = append(goals, g)
		}
	}
	if len(goals) == 0 {
		return nil, nil
	}
	sort.Slice(goals, func(i, j int) bool {
		if members[goals[i]] != members[goals[j]] {
			return members[goals[i]] > members[goals[j]]
		}
		return goals[i] < goals[j]
	})

	pct := make([]float64, len(goals))
	counts := make([]float64, len(goals))
	for i, g := range goals {
		counts[i] = members[g]
		pct[i] = trend.Round(min(met[g], members[g])/members[g]*100, 1)
	}

	p := viz.NewChart(viz.ChartBar, map[string]any{
		"labels": goals,
		"datasets": []any{
			map[string]any{
				"label":           c.T("Goal met"),
				"data":            pct,
				"memberCounts":    counts,
				"backgroundColor": charts.Color(1),
			},
		},
	}, map[string]any{
		"indexAxis": "y",
		"plugins": map[string]any{
			"legend": map[string]any{"display": false},
			"tooltip": map[string]any{
				"callbacks": map[string]any{
					"label":      charts.Callback(callbacks.SeriesValue, map[string]any{"format": "percent", "decimals": 1}),
					"afterLabel": charts.Callback(callbacks.DatasetMembersCount, map[string]any{"showLabel": false}),
				},
			},
		},
		"scales": map[string]any{
			"x": map[string]any{"max": 100},
			"y": map[string]any{
				"ticks": map[string]any{
					"callback": charts.Callback(callbacks.ValueFormat, map[string]any{"format": "percent"}),
				},
			},
		},
	})

	return c.NewDefinition(
		c.T("Member Goals Met"),
		c.T("Percent of members pursuing each goal who report having met it."),
		p,
		c.T("Source: Member goal survey answers in the latest snapshot."),
	), nil
}

// Highlights summarizes the latest snapshot as formatted markup.
type Highlights struct {
	charts.Base
}

func (c *Highlights) Build(ctx context.Context, _ ranges.Filters) (*viz.Definition, error) {
	snap, err := c.Latest(ctx)
	if err != nil || snap == nil {
		return nil, err
	}
	active, okActive := snap.Metric(models.MetricMembersActive)
	rate, okRate := snap.Metric(models.MetricRetention12Month)
	if !okActive && !okRate {
		return nil, nil
	}

	integer := numfmt.Options{Format: numfmt.Integer}
	percent := numfmt.Options{Format: numfmt.Percent, Decimals: numfmt.Places(1)}

	body := fmt.Sprintf("<h3>%s</h3><ul>", html.EscapeString(snap.Period.Format("January 2006")))
	if okActive {
		body += fmt.Sprintf("<li><strong>%s</strong> %s</li>",
			numfmt.Format(active, integer), html.EscapeString(c.T("active members")))
	}
	if okRate {
		body += fmt.Sprintf("<li><strong>%s</strong> %s</li>",
			numfmt.Format(rate, percent), html.EscapeString(c.T("retained over twelve months")))
	}
	if joined, ok := snap.Metric(models.MetricMembersJoined); ok {
		ended, _ := snap.Metric(models.MetricMembersEnded)
		body += fmt.Sprintf("<li><strong>%s</strong> %s, <strong>%s</strong> %s</li>",
			numfmt.Format(joined, integer), html.EscapeString(c.T("joined")),
			numfmt.Format(ended, integer), html.EscapeString(c.T("ended")))
	}
	body += "</ul>"

	def := c.NewDefinition(
		c.T("Retention Highlights"),
		c.T("Headline figures from the most recent snapshot."),
		c.Markup(body),
	)
	def.Cache = viz.CacheHints{MaxAge: 5 * time.Minute}
	return def, nil
}
