package seeding

import (
	"context"
	"testing"
	"time"

	snapshotstore "github.com/dalemusser/stratadash/internal/app/store/snapshots"
	"github.com/dalemusser/stratadash/internal/domain/models"
	"go.uber.org/zap"
)

var now = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func TestDemo(t *testing.T) {
	snaps, err := Demo(now)
	if err != nil {
		t.Fatalf("Demo() error: %v", err)
	}
	if len(snaps) != 36 {
		t.Fatalf("Demo() = %d snapshots, want 36", len(snaps))
	}

	first, last := snaps[0], snaps[len(snaps)-1]
	if want := time.Date(2023, 11, 1, 0, 0, 0, 0, time.UTC); !first.Period.Equal(want) {
		t.Errorf("first period = %v, want %v", first.Period, want)
	}
	if want := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC); !last.Period.Equal(want) {
		t.Errorf("last period = %v, want %v", last.Period, want)
	}
	if v, ok := last.Metric(models.MetricMembersActive); !ok || v != 665 {
		t.Errorf("last members_active = %v, %v", v, ok)
	}
	if last.Breakdown(models.BreakdownBoardGender)["Woman"] != 5 {
		t.Errorf("board gender breakdown missing on last snapshot: %v", last.Breakdowns)
	}
	if first.Breakdowns != nil {
		t.Errorf("breakdowns should only be on the last snapshot")
	}
}

func TestExpand(t *testing.T) {
	f, err := Parse([]byte(`
end: 2024-03
series:
  members_active: [10, 20, 30]
  members_joined: [5]
snapshots:
  - period: 2023-06-15T00:00:00Z
    metrics:
      members_active: 1
`))
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	snaps, err := f.Expand(now)
	if err != nil {
		t.Fatalf("Expand() error: %v", err)
	}
	if len(snaps) != 4 {
		t.Fatalf("Expand() = %d snapshots, want 4", len(snaps))
	}
	if got := snaps[0].Period.Format("2006-01"); got != "2024-01" {
		t.Errorf("first period = %s, want 2024-01", got)
	}
	if _, ok := snaps[0].Metric(models.MetricMembersJoined); ok {
		t.Errorf("short series should align to the end")
	}
	if v, _ := snaps[2].Metric(models.MetricMembersJoined); v != 5 {
		t.Errorf("members_joined in March = %v, want 5", v)
	}
	if got := snaps[3].Period.Format("2006-01-02"); got != "2023-06-01" {
		t.Errorf("explicit snapshot period = %s, want truncated to 2023-06-01", got)
	}
	if snaps[3].Kind != models.SnapshotKindMonthly {
		t.Errorf("explicit snapshot kind = %q", snaps[3].Kind)
	}
}

func TestExpand_BadEnd(t *testing.T) {
	f := Fixture{End: "March", Series: map[string][]float64{"x": {1}}}
	if _, err := f.Expand(now); err == nil {
		t.Error("expected error for malformed end")
	}
}

func TestSeedAll(t *testing.T) {
	ctx := context.Background()
	store := snapshotstore.NewMemory()
	snaps, err := Demo(now)
	if err != nil {
		t.Fatal(err)
	}

	n, err := SeedAll(ctx, store, snaps, zap.NewNop())
	if err != nil {
		t.Fatalf("SeedAll() error: %v", err)
	}
	if n != 36 {
		t.Errorf("SeedAll() wrote %d, want 36", n)
	}

	n, err = SeedAll(ctx, store, snaps, zap.NewNop())
	if err != nil || n != 0 {
		t.Errorf("second SeedAll() = %d, %v; want 0, nil", n, err)
	}
}
