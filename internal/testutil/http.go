package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
)

// NewRequest creates an HTTP request for testing.
func NewRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}

// ResponseRecorder wraps httptest.ResponseRecorder with helper methods.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

// NewRecorder creates a new ResponseRecorder.
func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// Serve runs h against req and returns the recorded response.
func Serve(h http.Handler, req *http.Request) *ResponseRecorder {
	rec := NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status code: got %d, want %d", r.Code, expected)
	}
}

// AssertHeader checks a response header value.
func (r *ResponseRecorder) AssertHeader(t interface{ Errorf(string, ...any) }, name, expected string) {
	if got := r.Header().Get(name); got != expected {
		t.Errorf("header %s: got %q, want %q", name, got, expected)
	}
}

// AssertContains checks if the response body contains the expected string.
func (r *ResponseRecorder) AssertContains(t interface{ Errorf(string, ...any) }, expected string) {
	body := r.Body.String()
	if !strings.Contains(body, expected) {
		t.Errorf("response body does not contain %q", expected)
	}
}

// DecodeJSON decodes the response body into v.
func (r *ResponseRecorder) DecodeJSON(t interface {
	Fatalf(string, ...any)
}, v any) {
	if err := json.Unmarshal(r.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response body: %v\n%s", err, r.Body.String())
	}
}
