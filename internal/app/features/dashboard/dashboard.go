// internal/app/features/dashboard/dashboard.go
package dashboard

import (
	"bytes"
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/dalemusser/stratadash/internal/app/charts"
	errorsfeature "github.com/dalemusser/stratadash/internal/app/features/errors"
	"github.com/dalemusser/stratadash/internal/app/resources"
	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/render"
	"github.com/dalemusser/stratadash/internal/app/system/timeouts"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"github.com/dalemusser/stratadash/internal/app/system/widget"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Base is where the dashboard is mounted. Range links point back here.
const Base = "/dashboard"

// Handler serves dashboard pages and single-widget fragments.
type Handler struct {
	resolver  *charts.Resolver
	renderer  *render.Renderer
	translate func(string) string
	siteName  string
	errPages  *errorsfeature.Handler
	errLog    *errorsfeature.ErrorLogger
	logger    *zap.Logger
}

// Config carries the handler's presentation settings.
type Config struct {
	SiteName  string
	Translate func(string) string
}

// NewHandler creates a new dashboard Handler.
func NewHandler(resolver *charts.Resolver, renderer *render.Renderer, cfg Config, errPages *errorsfeature.Handler, errLog *errorsfeature.ErrorLogger, logger *zap.Logger) *Handler {
	t := cfg.Translate
	if t == nil {
		t = func(s string) string { return s }
	}
	return &Handler{
		resolver:  resolver,
		renderer:  renderer,
		translate: t,
		siteName:  cfg.SiteName,
		errPages:  errPages,
		errLog:    errLog,
		logger:    logger,
	}
}

// Fetcher returns a widget fetcher that resolves definitions in process.
// Payloads are normalized through their wire form so widgets see exactly
// what an API client would.
func (h *Handler) Fetcher() widget.Fetcher {
	return widget.FuncFetcher(func(ctx context.Context, sectionID, chartID, rangeKey string) (*viz.Definition, error) {
		f := ranges.Filters{Range: rangeKey}
		if rangeKey != "" {
			f.Ranges = map[string]string{chartID: rangeKey}
		}
		def, err := h.resolver.Definition(ctx, sectionID, chartID, f)
		if err != nil || def == nil {
			return nil, err
		}
		p, err := viz.Normalize(def.Visualization)
		if err != nil {
			return nil, err
		}
		out := *def
		out.Visualization = p
		return &out, nil
	})
}

func (h *Handler) viewOptions() widget.ViewOptions {
	return widget.ViewOptions{FragmentBase: Base, Translate: h.translate}
}

func (h *Handler) redirectToFirst(w http.ResponseWriter, r *http.Request) {
	sections := h.resolver.Manager().Sections()
	if len(sections) == 0 {
		h.errPages.NotFound(w, r)
		return
	}
	http.Redirect(w, r, Base+"/"+sections[0], http.StatusFound)
}

// ServeSection renders a section page with one widget per chart, in
// weight order. Widgets load concurrently; a failing chart shows its own
// error state without failing the page.
func (h *Handler) ServeSection(w http.ResponseWriter, r *http.Request) {
	sectionID := chi.URLParam(r, "section")
	m := h.resolver.Manager()
	if !m.HasSection(sectionID) {
		h.errPages.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Build())
	defer cancel()

	filters := ranges.FiltersFromQuery(r.URL.Query())
	board := widget.NewBoard(h.Fetcher(), h.logger)
	defer board.Close()

	var g errgroup.Group
	for _, b := range m.Section(sectionID) {
		wd, _ := board.Mount(b.ChartID(), widget.Config{SectionID: sectionID, ChartID: b.ChartID()})
		rangeKey := filters.Requested(b.ChartID())
		g.Go(func() error {
			// Failures are kept in the widget's state and rendered inline.
			_ = wd.Select(ctx, rangeKey)
			return nil
		})
	}
	_ = g.Wait()

	var body bytes.Buffer
	body.WriteString(`<div class="dashboard-grid">`)
	for _, wd := range board.Widgets() {
		html, err := wd.View(h.renderer, h.viewOptions())
		if err != nil {
			h.errLog.LogWithFields(r, "widget render failed", err, zap.String("chart", wd.ChartID()))
			h.errPages.InternalError(w, r)
			return
		}
		body.WriteString(string(html))
	}
	body.WriteString(`</div>`)

	page := resources.Page{
		Title:    sectionTitle(sectionID),
		SiteName: h.siteName,
		Nav:      h.nav(sectionID),
		Body:     template.HTML(body.String()),
	}
	if err := resources.RenderPage(w, http.StatusOK, page); err != nil {
		h.errLog.Log(r, "dashboard page render failed", err)
	}
}

// ServeWidget renders one widget for the requested range. Range links
// swap it in place.
func (h *Handler) ServeWidget(w http.ResponseWriter, r *http.Request) {
	sectionID := chi.URLParam(r, "section")
	chartID := chi.URLParam(r, "chart")
	if _, err := h.resolver.Manager().Get(sectionID, chartID); errors.Is(err, charts.ErrUnknownChart) {
		h.errPages.NotFound(w, r)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Build())
	defer cancel()

	wd := widget.New(widget.Config{
		SectionID: sectionID,
		ChartID:   chartID,
		Fetcher:   h.Fetcher(),
		Logger:    h.logger,
	})
	defer wd.Close()
	_ = wd.Select(ctx, r.URL.Query().Get("range"))

	html, err := wd.View(h.renderer, h.viewOptions())
	if err != nil {
		h.errLog.LogWithFields(r, "widget render failed", err, zap.String("chart", chartID))
		h.errPages.InternalError(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Vary", "HX-Request")
	_, _ = w.Write([]byte(html))
}

func (h *Handler) nav(current string) []resources.NavItem {
	sections := h.resolver.Manager().Sections()
	out := make([]resources.NavItem, 0, len(sections))
	for _, s := range sections {
		out = append(out, resources.NavItem{
			Label:   h.translate(sectionTitle(s)),
			Href:    Base + "/" + s,
			Current: s == current,
		})
	}
	return out
}

var titleCaser = cases.Title(language.English)

// sectionTitle turns a section id such as "annual_giving" into "Annual Giving".
func sectionTitle(id string) string {
	b := []byte(id)
	for i, c := range b {
		if c == '_' || c == '-' {
			b[i] = ' '
		}
	}
	return titleCaser.String(string(b))
}
