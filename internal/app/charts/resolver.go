// internal/app/charts/resolver.go
package charts

import (
	"context"
	"net/url"
	"strings"

	"github.com/dalemusser/stratadash/internal/app/system/chartcache"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
)

// DefaultAPIBase is where the chart JSON API is mounted.
const DefaultAPIBase = "/api/chart"

// Resolver serves definitions through the chart cache and stamps each
// envelope with its download URL. Cached definitions are never mutated.
type Resolver struct {
	manager *Manager
	cache   *chartcache.Cache
	apiBase string
}

// NewResolver returns a Resolver. A nil cache builds on every call.
func NewResolver(m *Manager, cache *chartcache.Cache, apiBase string) *Resolver {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	return &Resolver{manager: m, cache: cache, apiBase: strings.TrimRight(apiBase, "/")}
}

// Manager returns the underlying builder manager.
func (r *Resolver) Manager() *Manager { return r.manager }

// Definition returns the envelope for one chart. It returns ErrUnknownChart
// when no builder is registered and nil, nil when the chart has no data.
func (r *Resolver) Definition(ctx context.Context, sectionID, chartID string, filters ranges.Filters) (*viz.Definition, error) {
	if _, err := r.manager.Get(sectionID, chartID); err != nil {
		return nil, err
	}
	build := func(ctx context.Context) (*viz.Definition, error) {
		return r.manager.Build(ctx, sectionID, chartID, filters)
	}

	var (
		def *viz.Definition
		err error
	)
	if r.cache == nil {
		def, err = build(ctx)
	} else {
		key := chartcache.Key(sectionID, chartID, cacheRange(filters, chartID))
		def, err = r.cache.GetOrBuild(ctx, key, build)
	}
	if err != nil || def == nil {
		return nil, err
	}

	out := *def
	out.DownloadURL = DownloadPath(r.apiBase, sectionID, chartID, "csv", def.Range.ActiveKey())
	return &out, nil
}

// cacheRange is the requested range for chartID, or "" when it names no
// preset. Builders resolve unknown keys and "" to the same default, so junk
// query values share one entry.
func cacheRange(f ranges.Filters, chartID string) string {
	key := f.Requested(chartID)
	if _, ok := ranges.Lookup(key); !ok {
		return ""
	}
	return key
}

// DownloadPath returns {base}/{section}/{chart}/download.{format}, with
// the range appended when set.
func DownloadPath(base, sectionID, chartID, format, rangeKey string) string {
	p := strings.TrimRight(base, "/") + "/" + url.PathEscape(sectionID) + "/" + url.PathEscape(chartID) + "/download." + format
	if rangeKey != "" {
		p += "?" + url.Values{"range": {rangeKey}}.Encode()
	}
	return p
}
