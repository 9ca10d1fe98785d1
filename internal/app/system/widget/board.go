// internal/app/system/widget/board.go
package widget

import (
	"sync"

	"go.uber.org/zap"
)

// Board tracks the widgets mounted on a page. Mounting an id twice returns
// the existing widget; unmounting releases it exactly once.
type Board struct {
	fetcher Fetcher
	logger  *zap.Logger

	mu      sync.Mutex
	widgets map[string]*Widget
	order   []string
}

// NewBoard returns a Board whose widgets default to fetcher.
func NewBoard(fetcher Fetcher, logger *zap.Logger) *Board {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{fetcher: fetcher, logger: logger, widgets: map[string]*Widget{}}
}

// Mount returns the widget mounted under id, creating it from cfg the
// first time. The second result reports whether a widget was created.
func (b *Board) Mount(id string, cfg Config) (*Widget, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.widgets[id]; ok {
		return w, false
	}
	if cfg.Fetcher == nil {
		cfg.Fetcher = b.fetcher
	}
	if cfg.Logger == nil {
		cfg.Logger = b.logger
	}
	w := New(cfg)
	b.widgets[id] = w
	b.order = append(b.order, id)
	b.logger.Debug("widget mounted",
		zap.String("mount_id", id),
		zap.String("widget_id", w.ID()),
		zap.String("section", cfg.SectionID),
		zap.String("chart", cfg.ChartID),
	)
	return w, true
}

// Get returns the widget mounted under id.
func (b *Board) Get(id string) (*Widget, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.widgets[id]
	return w, ok
}

// Widgets returns the mounted widgets in mount order.
func (b *Board) Widgets() []*Widget {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Widget, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, b.widgets[id])
	}
	return out
}

// Len returns the number of mounted widgets.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.widgets)
}

// Unmount closes and removes the widget under id. It reports false when
// nothing was mounted there.
func (b *Board) Unmount(id string) bool {
	b.mu.Lock()
	w, ok := b.widgets[id]
	if ok {
		delete(b.widgets, id)
		for i, o := range b.order {
			if o == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
	b.mu.Unlock()

	if ok {
		w.Close()
	}
	return ok
}

// Close unmounts every widget.
func (b *Board) Close() {
	b.mu.Lock()
	ids := append([]string(nil), b.order...)
	b.mu.Unlock()
	for _, id := range ids {
		b.Unmount(id)
	}
}
