// internal/app/charts/charts.go
//
// Package charts defines chart builders and the manager that indexes them
// by section and chart id. Builders read metric snapshots and return a
// viz.Definition, or nil when there is nothing to show.
package charts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/dalemusser/stratadash/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrUnknownChart is returned for a section/chart pair with no builder.
var ErrUnknownChart = errors.New("unknown chart")

// Source is the snapshot data builders read.
type Source interface {
	Latest(ctx context.Context) (*models.Snapshot, error)
	Monthly(ctx context.Context, from *time.Time, to time.Time) ([]models.Snapshot, error)
}

// Builder produces one chart definition.
type Builder interface {
	SectionID() string
	ChartID() string
	Weight() int
	Build(ctx context.Context, filters ranges.Filters) (*viz.Definition, error)
}

// Manager indexes builders by "section:chart". It is read-only after
// construction.
type Manager struct {
	byKey    map[string]Builder
	sections map[string][]Builder
	order    []string
	logger   *zap.Logger
}

// NewManager indexes builders. Two builders with the same key are an error.
func NewManager(logger *zap.Logger, builders ...Builder) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &Manager{
		byKey:    make(map[string]Builder, len(builders)),
		sections: make(map[string][]Builder),
		logger:   logger,
	}
	for _, b := range builders {
		key := viz.Key(b.SectionID(), b.ChartID())
		if _, dup := m.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate chart builder %q", key)
		}
		m.byKey[key] = b
		if _, seen := m.sections[b.SectionID()]; !seen {
			m.order = append(m.order, b.SectionID())
		}
		m.sections[b.SectionID()] = append(m.sections[b.SectionID()], b)
	}
	for _, list := range m.sections {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Weight() != list[j].Weight() {
				return list[i].Weight() < list[j].Weight()
			}
			return list[i].ChartID() < list[j].ChartID()
		})
	}
	return m, nil
}

// Get returns the builder for a section and chart.
func (m *Manager) Get(sectionID, chartID string) (Builder, error) {
	b, ok := m.byKey[viz.Key(sectionID, chartID)]
	if !ok {
		return nil, ErrUnknownChart
	}
	return b, nil
}

// Sections returns section ids in registration order.
func (m *Manager) Sections() []string {
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// HasSection reports whether any builder belongs to sectionID.
func (m *Manager) HasSection(sectionID string) bool {
	_, ok := m.sections[sectionID]
	return ok
}

// Section returns a section's builders ordered by weight, then chart id.
func (m *Manager) Section(sectionID string) []Builder {
	list := m.sections[sectionID]
	out := make([]Builder, len(list))
	copy(out, list)
	return out
}

// Build runs one builder. A nil definition means the chart has no data.
func (m *Manager) Build(ctx context.Context, sectionID, chartID string, filters ranges.Filters) (*viz.Definition, error) {
	b, err := m.Get(sectionID, chartID)
	if err != nil {
		return nil, err
	}
	def, err := b.Build(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", viz.Key(sectionID, chartID), err)
	}
	return def, nil
}

// BuildSection runs a section's builders concurrently and returns their
// definitions in weight order, skipping charts without data. The first
// builder error cancels the rest.
func (m *Manager) BuildSection(ctx context.Context, sectionID string, filters ranges.Filters) ([]*viz.Definition, error) {
	list := m.sections[sectionID]
	if len(list) == 0 {
		return nil, ErrUnknownChart
	}

	defs := make([]*viz.Definition, len(list))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range list {
		g.Go(func() error {
			def, err := b.Build(gctx, filters)
			if err != nil {
				return fmt.Errorf("build %s: %w", viz.Key(b.SectionID(), b.ChartID()), err)
			}
			defs[i] = def
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := defs[:0]
	for i, def := range defs {
		if def == nil {
			m.logger.Debug("chart has no data",
				zap.String("section", sectionID),
				zap.String("chart", list[i].ChartID()))
			continue
		}
		out = append(out, def)
	}
	return out, nil
}
