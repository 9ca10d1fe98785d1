package governance

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/stratadash/internal/app/charts"
	snapshotstore "github.com/dalemusser/stratadash/internal/app/store/snapshots"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/dalemusser/stratadash/internal/domain/models"
)

func storeWith(breakdowns map[string]map[string]float64) *snapshotstore.Memory {
	return snapshotstore.NewMemory(models.Snapshot{
		Period:     time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Metrics:    map[string]float64{},
		Breakdowns: breakdowns,
	})
}

func TestBoardComposition_Pair(t *testing.T) {
	deps := charts.Deps{Source: storeWith(map[string]map[string]float64{
		models.BreakdownBoardGender:  {"Woman": 3, "Man": 1},
		models.BreakdownMemberGender: {"Woman": 50, "Man": 50},
	})}
	b := &BoardComposition{Base: charts.NewBase(deps, SectionID, "board_composition", 10)}

	def, err := b.Build(context.Background(), ranges.Filters{})
	if err != nil || def == nil {
		t.Fatalf("Build() = %v, %v", def, err)
	}
	c, ok := def.Visualization.(viz.Container)
	if !ok {
		t.Fatalf("visualization is %T, want Container", def.Visualization)
	}
	if !c.HasClass(viz.PairClass) {
		t.Error("container is missing the pair class")
	}
	if keys := c.Children.Keys(); len(keys) != 2 || keys[0] != "board" || keys[1] != "members" {
		t.Errorf("children = %v", keys)
	}

	board, _ := c.Children.Get("board")
	ds := board.(viz.Chart).Data["datasets"].([]any)[0].(map[string]any)
	data := ds["data"].([]float64)
	// Labels are sorted: Man, Woman.
	if data[0] != 25 || data[1] != 75 {
		t.Errorf("board shares = %v, want [25 75]", data)
	}
}

func TestBoardComposition_OnlyMembers(t *testing.T) {
	deps := charts.Deps{Source: storeWith(map[string]map[string]float64{
		models.BreakdownMemberGender: {"Woman": 1},
	})}
	b := &BoardComposition{Base: charts.NewBase(deps, SectionID, "board_composition", 10)}
	def, _ := b.Build(context.Background(), ranges.Filters{})
	if def == nil {
		t.Fatal("expected a definition")
	}
	if keys := def.Visualization.(viz.Container).Children.Keys(); len(keys) != 1 || keys[0] != "members" {
		t.Errorf("children = %v", keys)
	}
}

func TestBoardComposition_NoData(t *testing.T) {
	deps := charts.Deps{Source: storeWith(map[string]map[string]float64{
		models.BreakdownBoardGender: {"Woman": 0},
	})}
	b := &BoardComposition{Base: charts.NewBase(deps, SectionID, "board_composition", 10)}
	if def, err := b.Build(context.Background(), ranges.Filters{}); def != nil || err != nil {
		t.Errorf("Build() = %v, %v; want nil, nil", def, err)
	}
}

func TestBoardRoster(t *testing.T) {
	deps := charts.Deps{Source: storeWith(map[string]map[string]float64{
		models.BreakdownBoardGender:  {"Woman": 5, "Man": 4, "Non-binary": 1},
		models.BreakdownMemberGender: {"Woman": 40, "Man": 50, "Unknown": 10},
	})}
	b := &BoardRoster{Base: charts.NewBase(deps, SectionID, "board_roster_summary", 20)}

	def, err := b.Build(context.Background(), ranges.Filters{})
	if err != nil || def == nil {
		t.Fatalf("Build() = %v, %v", def, err)
	}
	table := def.Visualization.(viz.Table)
	if len(table.Header) != 4 {
		t.Errorf("header = %v", table.Header)
	}
	want := [][]string{
		{"Woman", "5", "50.0%", "40.0%"},
		{"Man", "4", "40.0%", "50.0%"},
		{"Non-binary", "1", "10.0%", "0.0%"},
		{"Unknown", "0", "0.0%", "10.0%"},
	}
	if len(table.Rows) != len(want) {
		t.Fatalf("rows = %v", table.Rows)
	}
	for i := range want {
		for j := range want[i] {
			if table.Rows[i][j] != want[i][j] {
				t.Errorf("row %d col %d = %q, want %q", i, j, table.Rows[i][j], want[i][j])
			}
		}
	}
	if table.Empty == nil || *table.Empty == "" {
		t.Error("expected a custom empty message")
	}
}
