// internal/app/system/widget/widget.go
//
// Package widget holds the per-chart state behind a dashboard tile: the
// range selector, the fetch for the selected range and the guard that
// keeps a slow response from overwriting a newer one.
package widget

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrStale is returned by Select when a newer selection superseded the
// fetch before it completed. Its result was discarded.
var ErrStale = errors.New("widget: stale response discarded")

// RangeOption is one entry of the range selector.
type RangeOption struct {
	Key   string
	Label string
}

// State is a snapshot of a widget.
type State struct {
	Selected string
	Options  []RangeOption
	Data     *viz.Definition
	Loading  bool
	Err      error
	// Pending is the key being fetched, empty when idle.
	Pending string
}

// Config configures a Widget.
type Config struct {
	SectionID string
	ChartID   string
	// Initial is the server-rendered definition, if any. Its range
	// selection seeds the selector.
	Initial *viz.Definition
	Fetcher Fetcher
	Logger  *zap.Logger
}

// Widget is one chart tile.
type Widget struct {
	id        string
	sectionID string
	chartID   string
	fetcher   Fetcher
	logger    *zap.Logger

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
	state  State
}

// New returns a Widget. Without an initial definition the widget starts
// in the loading state until Load or Select completes.
func New(cfg Config) *Widget {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Widget{
		id:        uuid.NewString(),
		sectionID: cfg.SectionID,
		chartID:   cfg.ChartID,
		fetcher:   cfg.Fetcher,
		logger:    logger,
	}
	if cfg.Initial != nil {
		w.apply(cfg.Initial)
	} else {
		w.state.Loading = true
	}
	return w
}

// ID returns the widget's instance id.
func (w *Widget) ID() string { return w.id }

// SectionID returns the section the widget belongs to.
func (w *Widget) SectionID() string { return w.sectionID }

// ChartID returns the chart the widget displays.
func (w *Widget) ChartID() string { return w.chartID }

// State returns a copy of the current state.
func (w *Widget) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	s := w.state
	s.Options = append([]RangeOption(nil), w.state.Options...)
	return s
}

// Load fetches the currently selected range.
func (w *Widget) Load(ctx context.Context) error {
	w.mu.Lock()
	key := w.state.Selected
	w.mu.Unlock()
	return w.Select(ctx, key)
}

// Select switches to rangeKey and fetches it. Only the latest selection's
// response is applied; an earlier call still in flight returns ErrStale
// once it completes, and its context is cancelled.
func (w *Widget) Select(ctx context.Context, rangeKey string) error {
	if w.fetcher == nil {
		return errors.New("widget: no fetcher configured")
	}

	w.mu.Lock()
	w.seq++
	gen := w.seq
	if w.cancel != nil {
		w.cancel()
	}
	fctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.state.Selected = rangeKey
	w.state.Pending = rangeKey
	w.state.Loading = true
	w.state.Err = nil
	w.mu.Unlock()

	def, err := w.fetcher.Fetch(fctx, w.sectionID, w.chartID, rangeKey)

	w.mu.Lock()
	defer w.mu.Unlock()
	if gen != w.seq {
		return ErrStale
	}
	cancel()
	w.cancel = nil
	w.state.Pending = ""
	w.state.Loading = false

	if err != nil {
		w.state.Err = err
		w.logger.Warn("chart fetch failed",
			zap.String("widget_id", w.id),
			zap.String("section", w.sectionID),
			zap.String("chart", w.chartID),
			zap.String("range", rangeKey),
			zap.Error(err),
		)
		return err
	}
	w.applyLocked(def)
	return nil
}

func (w *Widget) apply(def *viz.Definition) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.applyLocked(def)
}

// applyLocked stores def and reconciles the selector with the range the
// server actually applied.
func (w *Widget) applyLocked(def *viz.Definition) {
	w.state.Data = def
	w.state.Loading = false
	if def == nil || def.Range == nil {
		return
	}
	if def.Range.Options.Len() > 0 {
		opts := make([]RangeOption, 0, def.Range.Options.Len())
		for _, e := range def.Range.Options.Entries() {
			opts = append(opts, RangeOption{Key: e.Key, Label: e.Value.Label})
		}
		w.state.Options = opts
	}
	if active := def.Range.ActiveKey(); active != "" && active != w.state.Selected {
		w.state.Selected = active
	}
}

// Close cancels any fetch in flight.
func (w *Widget) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.seq++
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
}
