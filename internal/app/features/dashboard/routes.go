// internal/app/features/dashboard/routes.go
package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes returns a chi.Router with dashboard routes mounted.
// /{section} renders a full page; /{section}/{chart} renders one widget
// for in-place range swaps.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.redirectToFirst)
	r.Get("/{section}", h.ServeSection)
	r.Get("/{section}/{chart}", h.ServeWidget)
	return r
}
