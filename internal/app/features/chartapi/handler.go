// internal/app/features/chartapi/handler.go
package chartapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/stratadash/internal/app/charts"
	errorsfeature "github.com/dalemusser/stratadash/internal/app/features/errors"
	"github.com/dalemusser/stratadash/internal/app/system/jsonutil"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/timeouts"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// notFoundMessage is the body of every 404 this API returns.
const notFoundMessage = "Chart not found."

// Handler serves chart definitions and their data exports.
type Handler struct {
	resolver *charts.Resolver
	errLog   *errorsfeature.ErrorLogger
	logger   *zap.Logger
}

// NewHandler creates a new chart API handler.
func NewHandler(resolver *charts.Resolver, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		errLog:   errLog,
		logger:   logger,
	}
}

// filtersFor applies ?range= both as the global range and as the chart's
// own override, so a chart that ignores the global range still honors it.
func filtersFor(r *http.Request, chartID string) ranges.Filters {
	f := ranges.FiltersFromQuery(r.URL.Query())
	if f.Range != "" {
		if f.Ranges == nil {
			f.Ranges = make(map[string]string)
		}
		if _, set := f.Ranges[chartID]; !set {
			f.Ranges[chartID] = f.Range
		}
	}
	return f
}

// load resolves the requested definition. It writes the error response
// and returns nil when there is nothing to serve.
func (h *Handler) load(w http.ResponseWriter, r *http.Request) *viz.Definition {
	sectionID := chi.URLParam(r, "section")
	chartID := chi.URLParam(r, "chart")

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Build())
	defer cancel()

	def, err := h.resolver.Definition(ctx, sectionID, chartID, filtersFor(r, chartID))
	switch {
	case errors.Is(err, charts.ErrUnknownChart):
		jsonutil.NotFound(w, notFoundMessage)
		return nil
	case err != nil:
		h.errLog.LogWithFields(r, "chart build failed", err,
			zap.String("section", sectionID),
			zap.String("chart", chartID))
		jsonutil.InternalError(w, "Unable to build chart.")
		return nil
	case def == nil:
		h.logger.Debug("chart has no data",
			zap.String("section", sectionID),
			zap.String("chart", chartID))
		jsonutil.NotFound(w, notFoundMessage)
		return nil
	}
	return def
}

// ServeChart returns the chart's JSON envelope.
func (h *Handler) ServeChart(w http.ResponseWriter, r *http.Request) {
	def := h.load(w, r)
	if def == nil {
		return
	}
	jsonutil.Cached(w, def.Cache.EffectiveMaxAge(), def)
}

// ServeCSV streams the chart's labels × datasets grid as CSV.
func (h *Handler) ServeCSV(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, csvExport)
}

// ServeXLSX returns the chart's labels × datasets grid as a workbook.
func (h *Handler) ServeXLSX(w http.ResponseWriter, r *http.Request) {
	h.serveExport(w, r, xlsxExport)
}

func (h *Handler) serveExport(w http.ResponseWriter, r *http.Request, e exporter) {
	def := h.load(w, r)
	if def == nil {
		return
	}
	g, ok := GridOf(def.Visualization)
	if !ok {
		jsonutil.NotFound(w, notFoundMessage)
		return
	}

	w.Header().Set("Content-Type", e.contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+def.ChartID+"."+e.ext+`"`)
	jsonutil.SetCacheControl(w, def.Cache.EffectiveMaxAge())
	if err := e.write(w, g, def.Title); err != nil {
		// Headers are already sent; all that is left is to log.
		h.errLog.LogWithFields(r, "chart export failed", err,
			zap.String("chart", def.Key()),
			zap.String("format", e.ext))
	}
}
