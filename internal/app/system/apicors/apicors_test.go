package apicors

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestMiddleware(t *testing.T) {
	h := Middleware()(okHandler)

	tests := []struct {
		name       string
		method     string
		wantStatus int
	}{
		{"get passes through", http.MethodGet, http.StatusOK},
		{"preflight short-circuits", http.MethodOptions, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/chart/overview/members_trend", nil)
			req.Header.Set("Origin", "https://reports.example.org")
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
				t.Errorf("Allow-Origin = %q, want *", got)
			}
			if got := rec.Header().Get("Access-Control-Allow-Methods"); got != allowMethods {
				t.Errorf("Allow-Methods = %q", got)
			}
		})
	}
}

func TestMiddlewareWithOrigins(t *testing.T) {
	h := MiddlewareWithOrigins("https://allowed.example.org")(okHandler)

	tests := []struct {
		name   string
		origin string
		want   string
	}{
		{"listed origin echoed", "https://allowed.example.org", "https://allowed.example.org"},
		{"unlisted origin omitted", "https://other.example.org", ""},
		{"no origin", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/chart/x/y", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.want)
			}
			if rec.Header().Get("Vary") != "Origin" {
				t.Error("Vary: Origin not set")
			}
		})
	}
}

func TestMiddlewareWithOrigins_EmptyAllowsAll(t *testing.T) {
	h := MiddlewareWithOrigins()(okHandler)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Allow-Origin = %q, want *", got)
	}
}
