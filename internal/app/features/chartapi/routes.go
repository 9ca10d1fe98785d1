// internal/app/features/chartapi/routes.go
package chartapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns the router for the chart API. Mount it at /api/chart.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/{section}/{chart}", h.ServeChart)
	r.Get("/{section}/{chart}/download.csv", h.ServeCSV)
	r.Get("/{section}/{chart}/download.xlsx", h.ServeXLSX)
	return r
}
