// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dalemusser/stratadash/internal/domain/models"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed demo.yaml
var demoYAML []byte

// Fixture describes snapshots in YAML. Series are monthly values, oldest
// first, ending at the month named by End (or the month the fixture is
// expanded in). Breakdowns are attached to the last month. Snapshots are
// taken as written and appended after the series.
type Fixture struct {
	End        string                        `yaml:"end"` // "2006-01"
	Series     map[string][]float64          `yaml:"series"`
	Breakdowns map[string]map[string]float64 `yaml:"breakdowns"`
	Snapshots  []models.Snapshot             `yaml:"snapshots"`
}

// Parse decodes a YAML fixture.
func Parse(data []byte) (Fixture, error) {
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Fixture{}, fmt.Errorf("parse fixture: %w", err)
	}
	return f, nil
}

// Load reads and expands the fixture at path relative to now.
func Load(path string, now time.Time) ([]models.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f.Expand(now)
}

// Demo returns the embedded demo snapshots ending at now's month.
func Demo(now time.Time) ([]models.Snapshot, error) {
	f, err := Parse(demoYAML)
	if err != nil {
		return nil, err
	}
	return f.Expand(now)
}

// Expand turns the fixture into snapshots ordered by period.
func (f Fixture) Expand(now time.Time) ([]models.Snapshot, error) {
	end := models.MonthStart(now)
	if f.End != "" {
		t, err := time.Parse("2006-01", f.End)
		if err != nil {
			return nil, fmt.Errorf("fixture end %q: %w", f.End, err)
		}
		end = t
	}

	months := 0
	for _, values := range f.Series {
		months = max(months, len(values))
	}

	names := make([]string, 0, len(f.Series))
	for name := range f.Series {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]models.Snapshot, 0, months+len(f.Snapshots))
	for i := 0; i < months; i++ {
		period := end.AddDate(0, i-months+1, 0)
		snap := models.Snapshot{
			Period:  period,
			Kind:    models.SnapshotKindMonthly,
			TakenAt: period,
			Metrics: map[string]float64{},
		}
		// Shorter series are aligned to the end.
		for _, name := range names {
			values := f.Series[name]
			if j := i - (months - len(values)); j >= 0 {
				snap.Metrics[name] = values[j]
			}
		}
		if i == months-1 && len(f.Breakdowns) > 0 {
			snap.Breakdowns = f.Breakdowns
		}
		out = append(out, snap)
	}

	for _, s := range f.Snapshots {
		if s.Period.IsZero() {
			return nil, fmt.Errorf("fixture snapshot without period")
		}
		if s.Kind == "" {
			s.Kind = models.SnapshotKindMonthly
		}
		s.Period = models.MonthStart(s.Period)
		out = append(out, s)
	}
	return out, nil
}

// Target is the store seeding writes to.
type Target interface {
	Count(ctx context.Context) (int64, error)
	Upsert(ctx context.Context, snap models.Snapshot) error
}

// SeedAll writes snaps into an empty store. A store that already holds
// snapshots is left alone. It returns the number written.
func SeedAll(ctx context.Context, store Target, snaps []models.Snapshot, logger *zap.Logger) (int, error) {
	n, err := store.Count(ctx)
	if err != nil {
		logger.Error("failed to count snapshots", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		logger.Debug("snapshots present; skipping seed", zap.Int64("count", n))
		return 0, nil
	}

	for _, snap := range snaps {
		if err := store.Upsert(ctx, snap); err != nil {
			logger.Error("failed to seed snapshot",
				zap.Time("period", snap.Period),
				zap.Error(err))
			return 0, err
		}
	}
	logger.Info("seeded snapshots", zap.Int("count", len(snaps)))
	return len(snaps), nil
}
