package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewHandler(t *testing.T) {
	h := NewHandler("Stratadash", nil)
	if h == nil {
		t.Fatal("NewHandler() returned nil")
	}
}

func TestHandler_HTMLPages(t *testing.T) {
	h := NewHandler("Stratadash", zap.NewNop())

	tests := []struct {
		name       string
		handle     http.HandlerFunc
		wantStatus int
		wantText   string
	}{
		{"not found", h.NotFound, http.StatusNotFound, "does not exist"},
		{"method not allowed", h.MethodNotAllowed, http.StatusMethodNotAllowed, "does not support"},
		{"internal error", h.InternalError, http.StatusInternalServerError, "Something went wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/dashboard/nope", nil)
			rec := httptest.NewRecorder()
			tt.handle(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
				t.Errorf("Content-Type = %q", ct)
			}
			if !strings.Contains(rec.Body.String(), tt.wantText) {
				t.Errorf("body missing %q", tt.wantText)
			}
		})
	}
}

func TestHandler_JSONForAPI(t *testing.T) {
	h := NewHandler("Stratadash", zap.NewNop())

	tests := []struct {
		name   string
		path   string
		accept string
	}{
		{"api path", "/api/chart/x", ""},
		{"accept header", "/somewhere", "application/json"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			rec := httptest.NewRecorder()
			h.NotFound(rec, req)

			if rec.Code != http.StatusNotFound {
				t.Errorf("status = %d", rec.Code)
			}
			var got map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("body is not JSON: %v", err)
			}
			if got["error"] == "" {
				t.Error("error message missing")
			}
		})
	}
}

func TestErrorLogger_LogWithFields(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	el := NewErrorLogger(zap.New(core))

	req := httptest.NewRequest(http.MethodGet, "/api/chart/overview/members_trend", nil)
	el.LogWithFields(req, "chart build failed", errors.New("boom"), zap.String("section", "overview"))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("logged %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["path"] != "/api/chart/overview/members_trend" || fields["section"] != "overview" {
		t.Errorf("fields = %v", fields)
	}
	if fields["error"] != "boom" {
		t.Errorf("error field = %v", fields["error"])
	}
}
