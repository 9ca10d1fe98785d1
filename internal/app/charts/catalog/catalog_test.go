package catalog

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratadash/internal/app/charts"
	snapshotstore "github.com/dalemusser/stratadash/internal/app/store/snapshots"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/render"
	"github.com/dalemusser/stratadash/internal/app/system/seeding"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"go.uber.org/zap"
)

var now = time.Date(2026, 10, 16, 12, 0, 0, 0, time.UTC)

func demoManager(t *testing.T) *charts.Manager {
	t.Helper()
	snaps, err := seeding.Demo(now)
	if err != nil {
		t.Fatal(err)
	}
	m, err := New(charts.Deps{
		Source: snapshotstore.NewMemory(snaps...),
		Now:    func() time.Time { return now },
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return m
}

func TestNew_Sections(t *testing.T) {
	m := demoManager(t)
	want := []string{"overview", "development", "governance", "retention"}
	got := m.Sections()
	if len(got) != len(want) {
		t.Fatalf("Sections() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sections()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestEveryChartBuildsAndRenders(t *testing.T) {
	m := demoManager(t)
	r := render.New(nil, nil, zap.NewNop())
	ctx := context.Background()

	for _, section := range m.Sections() {
		defs, err := m.BuildSection(ctx, section, ranges.Filters{})
		if err != nil {
			t.Fatalf("BuildSection(%s) error: %v", section, err)
		}
		if len(defs) != len(m.Section(section)) {
			t.Errorf("section %s: %d of %d charts have data", section, len(defs), len(m.Section(section)))
		}
		for _, def := range defs {
			raw, err := json.Marshal(def)
			if err != nil {
				t.Fatalf("%s: marshal: %v", def.Key(), err)
			}
			if strings.Contains(string(raw), "function") {
				t.Errorf("%s: payload carries function text", def.Key())
			}

			var decoded viz.Definition
			if err := json.Unmarshal(raw, &decoded); err != nil {
				t.Fatalf("%s: unmarshal: %v", def.Key(), err)
			}
			node := r.Render(decoded.Visualization)
			if node == nil {
				t.Errorf("%s: rendered nothing", def.Key())
				continue
			}
			if node.Kind == render.KindUnsupported {
				t.Errorf("%s: rendered as unsupported", def.Key())
			}
		}
	}
}

func TestMembersTrend_OneYear(t *testing.T) {
	m := demoManager(t)
	def, err := m.Build(context.Background(), "overview", "members_trend", ranges.Filters{})
	if err != nil || def == nil {
		t.Fatalf("Build() = %v, %v", def, err)
	}
	if def.Range.ActiveKey() != "1y" {
		t.Errorf("active range = %q, want 1y", def.Range.ActiveKey())
	}
	if keys := def.Range.Options.Keys(); len(keys) != 5 {
		t.Errorf("range options = %v", keys)
	}

	c := def.Visualization.(viz.Chart)
	labels := c.Data["labels"].([]string)
	if len(labels) != 13 || labels[0] != "Oct 2025" || labels[12] != "Oct 2026" {
		t.Errorf("labels = %v", labels)
	}
	datasets := c.Data["datasets"].([]any)
	if len(datasets) != 2 {
		t.Fatalf("datasets = %d, want series and trend", len(datasets))
	}
	trendData := datasets[1].(map[string]any)["data"].([]float64)
	if len(trendData) != 13 {
		t.Errorf("trend points = %d", len(trendData))
	}
}

func TestMembersTrend_RangeOverride(t *testing.T) {
	m := demoManager(t)
	def, err := m.Build(context.Background(), "overview", "members_trend", ranges.Filters{Range: "3m"})
	if err != nil || def == nil {
		t.Fatalf("Build() = %v, %v", def, err)
	}
	if def.Range.ActiveKey() != "3m" {
		t.Errorf("active range = %q", def.Range.ActiveKey())
	}
	labels := def.Visualization.(viz.Chart).Data["labels"].([]string)
	if len(labels) != 4 {
		t.Errorf("3m window = %d months, want 4", len(labels))
	}
}

func TestEmptyStore_NoData(t *testing.T) {
	m, err := New(charts.Deps{Source: snapshotstore.NewMemory(), Now: func() time.Time { return now }}, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, section := range m.Sections() {
		defs, err := m.BuildSection(context.Background(), section, ranges.Filters{})
		if err != nil {
			t.Fatalf("BuildSection(%s) error: %v", section, err)
		}
		if len(defs) != 0 {
			t.Errorf("section %s produced %d charts from an empty store", section, len(defs))
		}
	}
}
