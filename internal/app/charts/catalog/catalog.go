// internal/app/charts/catalog/catalog.go
package catalog

import (
	"github.com/dalemusser/stratadash/internal/app/charts"
	"github.com/dalemusser/stratadash/internal/app/charts/development"
	"github.com/dalemusser/stratadash/internal/app/charts/governance"
	"github.com/dalemusser/stratadash/internal/app/charts/overview"
	"github.com/dalemusser/stratadash/internal/app/charts/retention"
	"go.uber.org/zap"
)

// New returns a manager holding every dashboard chart. Sections are
// listed in navigation order.
func New(deps charts.Deps, logger *zap.Logger) (*charts.Manager, error) {
	var all []charts.Builder
	all = append(all, overview.Builders(deps)...)
	all = append(all, development.Builders(deps)...)
	all = append(all, governance.Builders(deps)...)
	all = append(all, retention.Builders(deps)...)
	return charts.NewManager(logger, all...)
}
