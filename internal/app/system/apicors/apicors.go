// Package apicors provides CORS middleware for the read-only chart API.
//
// Chart definitions carry no credentials and the API never mutates state,
// so cross-origin reads are allowed without cookies. Embedding pages on
// other hosts can fetch a chart directly.
package apicors

import (
	"net/http"
)

const (
	allowMethods = "GET, HEAD, OPTIONS"
	allowHeaders = "Accept, Content-Type"
	maxAge       = "86400" // 24 hours
)

// Middleware returns CORS middleware that allows any origin to read.
//
// Usage in routes.go:
//
//	r.Route("/api/chart", func(r chi.Router) {
//	    r.Use(apicors.Middleware())
//	    r.Mount("/", chartapi.Routes(h))
//	})
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			writeCommon(w)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// MiddlewareWithOrigins returns CORS middleware that only allows specific
// origins. An empty list behaves like Middleware.
func MiddlewareWithOrigins(allowedOrigins ...string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		return Middleware()
	}
	originSet := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		originSet[o] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")
			if origin := r.Header.Get("Origin"); origin != "" {
				// Unlisted origins get no CORS headers and the browser blocks them.
				if _, allowed := originSet[origin]; allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
				}
			}
			writeCommon(w)

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeCommon(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Methods", allowMethods)
	w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
	w.Header().Set("Access-Control-Max-Age", maxAge)
}
