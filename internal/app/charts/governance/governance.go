// internal/app/charts/governance/governance.go
package governance

import (
	"context"
	"sort"

	"github.com/dalemusser/stratadash/internal/app/charts"
	"github.com/dalemusser/stratadash/internal/app/system/callbacks"
	"github.com/dalemusser/stratadash/internal/app/system/numfmt"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/trend"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/dalemusser/stratadash/internal/domain/models"
)

// SectionID is the governance section.
const SectionID = "governance"

// otherColor is used for categories outside colorMap.
const otherColor = "#9ca3af"

var colorMap = map[string]string{
	"Man":        "#2563eb",
	"Woman":      "#dc2626",
	"Non-binary": "#f97316",
	"Unknown":    "#7c3aed",
}

// Builders returns the governance section's charts.
func Builders(deps charts.Deps) []charts.Builder {
	return []charts.Builder{
		&BoardComposition{Base: charts.NewBase(deps, SectionID, "board_composition", 10)},
		&BoardRoster{Base: charts.NewBase(deps, SectionID, "board_roster_summary", 20)},
	}
}

// shares converts counts to percentages of their total, rounded to two
// places. A zero total yields nil.
func shares(counts map[string]float64) map[string]float64 {
	var total float64
	for _, v := range counts {
		total += v
	}
	if total <= 0 {
		return nil
	}
	out := make(map[string]float64, len(counts))
	for k, v := range counts {
		out[k] = trend.Round(v/total*100, 2)
	}
	return out
}

// categories returns the union of keys, ordered by the first map's count
// descending and then by name.
func categories(primary, secondary map[string]float64) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range []map[string]float64{primary, secondary} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		if primary[keys[i]] != primary[keys[j]] {
			return primary[keys[i]] > primary[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// BoardComposition shows board and membership gender side by side.
type BoardComposition struct {
	charts.Base
}

func (c *BoardComposition) Build(ctx context.Context, _ ranges.Filters) (*viz.Definition, error) {
	snap, err := c.Latest(ctx)
	if err != nil || snap == nil {
		return nil, err
	}
	board := shares(snap.Breakdown(models.BreakdownBoardGender))
	members := shares(snap.Breakdown(models.BreakdownMemberGender))
	if board == nil && members == nil {
		return nil, nil
	}

	var children []viz.Child
	if board != nil {
		children = append(children, viz.Child{Key: "board", Value: c.pie(c.T("Board"), board)})
	}
	if members != nil {
		children = append(children, viz.Child{Key: "members", Value: c.pie(c.T("Membership"), members)})
	}

	p := viz.NewContainer(map[string]any{"class": viz.PairClass}, children...)
	return c.NewDefinition(
		c.T("Board Gender Identity"),
		c.T("Board composition compared with the membership it serves."),
		p,
		c.T("Source: Board roster and member profiles in the latest snapshot."),
		c.T("Processing: Percentages are of people with a recorded response; Unknown covers members who declined."),
	), nil
}

func (c *BoardComposition) pie(title string, values map[string]float64) viz.Chart {
	labels := charts.SortedKeys(values)
	data := make([]float64, len(labels))
	colors := make([]any, len(labels))
	for i, l := range labels {
		data[i] = values[l]
		if col, ok := colorMap[l]; ok {
			colors[i] = col
		} else {
			colors[i] = otherColor
		}
	}
	return viz.NewChart(viz.ChartPie, map[string]any{
		"labels": labels,
		"datasets": []any{
			map[string]any{
				"label":           title,
				"data":            data,
				"backgroundColor": colors,
			},
		},
	}, map[string]any{
		"plugins": map[string]any{
			"legend": map[string]any{"display": false},
			"title":  map[string]any{"display": true, "text": title},
			"datalabels": map[string]any{
				"formatter": charts.Callback(callbacks.ValueFormat, map[string]any{
					"format":    "percent",
					"decimals":  1,
					"showLabel": false,
				}),
			},
			"tooltip": map[string]any{
				"callbacks": map[string]any{
					"label": charts.Callback(callbacks.SeriesValue, map[string]any{"format": "percent", "decimals": 1}),
				},
			},
		},
	})
}

// BoardRoster tabulates board seats per category against membership.
type BoardRoster struct {
	charts.Base
}

func (c *BoardRoster) Build(ctx context.Context, _ ranges.Filters) (*viz.Definition, error) {
	snap, err := c.Latest(ctx)
	if err != nil || snap == nil {
		return nil, err
	}
	board := snap.Breakdown(models.BreakdownBoardGender)
	members := snap.Breakdown(models.BreakdownMemberGender)
	if len(board) == 0 {
		return nil, nil
	}
	boardPct := shares(board)
	memberPct := shares(members)

	integer := numfmt.Options{Format: numfmt.Integer}
	percent := numfmt.Options{Format: numfmt.Percent, Decimals: numfmt.Places(1)}
	var rows [][]string
	for _, k := range categories(board, members) {
		memberCell := "–"
		if memberPct != nil {
			memberCell = numfmt.Format(memberPct[k], percent)
		}
		boardCell := "–"
		if boardPct != nil {
			boardCell = numfmt.Format(boardPct[k], percent)
		}
		rows = append(rows, []string{
			c.T(k),
			numfmt.Format(board[k], integer),
			boardCell,
			memberCell,
		})
	}

	p := viz.NewTable(
		[]string{c.T("Gender identity"), c.T("Board seats"), c.T("Board %"), c.T("Membership %")},
		rows,
		c.T("No board roster has been recorded."),
	)
	return c.NewDefinition(
		c.T("Board Roster Summary"),
		c.T("Seats held per gender identity."),
		p,
	), nil
}
