// internal/app/bootstrap/routes.go
package bootstrap

import (
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/stratadash/internal/app/charts"
	chartapifeature "github.com/dalemusser/stratadash/internal/app/features/chartapi"
	dashboardfeature "github.com/dalemusser/stratadash/internal/app/features/dashboard"
	errorsfeature "github.com/dalemusser/stratadash/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stratadash/internal/app/features/health"
	appresources "github.com/dalemusser/stratadash/internal/app/resources"
	"github.com/dalemusser/stratadash/internal/app/system/apicors"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup and
// Startup have completed. Startup has already assembled the chart
// pipeline; this mounts the feature routers over it:
//   - /api/chart: JSON definitions and CSV/XLSX exports, read-only CORS
//   - /dashboard: server-rendered section pages and widget fragments
//   - /health, /ready, /readyz, /livez: probes
//   - /assets: embedded CSS and JS
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	if pipe == nil {
		return nil, errors.New("chart pipeline not initialized; Startup must run first")
	}

	// Create error logger and error pages for handlers.
	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler(appCfg.SiteName, logger)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes
	// ─────────────────────────────────────────────────────────────────────────────

	// Chart API: read-only, so cross-origin reads are allowed per config.
	chartapiHandler := chartapifeature.NewHandler(pipe.resolver, errLog, logger)
	r.Route(charts.DefaultAPIBase, func(r chi.Router) {
		r.Use(apicors.MiddlewareWithOrigins(appCfg.APIAllowedOrigins...))
		r.Mount("/", chartapifeature.Routes(chartapiHandler))
	})

	// Dashboard pages and widget fragments
	dashboardHandler := dashboardfeature.NewHandler(
		pipe.resolver,
		pipe.renderer,
		dashboardfeature.Config{SiteName: appCfg.SiteName},
		errorsHandler,
		errLog,
		logger,
	)
	r.Mount(dashboardfeature.Base, dashboardfeature.Routes(dashboardHandler))
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, dashboardfeature.Base+"/", http.StatusFound)
	})

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(healthfeature.MongoPinger(deps.MongoClient), pipe.cache, taskRunner, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle(appresources.DefaultAssetBase+"/*", appresources.AssetsHandler(appresources.DefaultAssetBase))

	// 404 and 405 for unmatched routes
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	return r, nil
}
