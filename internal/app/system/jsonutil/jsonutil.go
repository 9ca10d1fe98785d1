// Package jsonutil provides helper functions for JSON API responses.
//
// Use these helpers in API handlers to ensure consistent JSON responses
// with proper Content-Type headers and error formatting.
package jsonutil

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

// JSON writes a JSON response with the given status code.
//
// Usage:
//
//	jsonutil.JSON(w, http.StatusOK, def)
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// OK writes a 200 OK JSON response.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Cached writes a 200 OK JSON response that private caches may keep for
// maxAge. Sub-second ages round down; a non-positive age disables caching.
func Cached(w http.ResponseWriter, maxAge time.Duration, data any) {
	SetCacheControl(w, maxAge)
	JSON(w, http.StatusOK, data)
}

// SetCacheControl sets a private Cache-Control header for maxAge, or
// no-store when maxAge is not positive.
func SetCacheControl(w http.ResponseWriter, maxAge time.Duration) {
	secs := int64(maxAge / time.Second)
	if secs <= 0 {
		w.Header().Set("Cache-Control", "no-store")
		return
	}
	w.Header().Set("Cache-Control", "private, max-age="+strconv.FormatInt(secs, 10))
}

// Error writes an error response with the given status code.
// The response body is {"error": message}.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, message string) {
	Error(w, http.StatusBadRequest, message)
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// InternalError writes a 500 Internal Server Error response.
// Use this for unexpected server errors. Do not expose internal details
// to clients - log the actual error separately.
func InternalError(w http.ResponseWriter, message string) {
	Error(w, http.StatusInternalServerError, message)
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
func ServiceUnavailable(w http.ResponseWriter, message string) {
	Error(w, http.StatusServiceUnavailable, message)
}
