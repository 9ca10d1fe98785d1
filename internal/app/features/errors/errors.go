// internal/app/features/errors/errors.go
package errors

import (
	"html/template"
	"net/http"
	"strings"

	"github.com/dalemusser/stratadash/internal/app/resources"
	"github.com/dalemusser/stratadash/internal/app/system/jsonutil"
	"go.uber.org/zap"
)

// ErrorLogger wraps the zap logger for error logging.
type ErrorLogger struct {
	logger *zap.Logger
}

// NewErrorLogger creates a new ErrorLogger.
func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{logger: logger}
}

// Log logs an error with the given message and error.
func (e *ErrorLogger) Log(r *http.Request, msg string, err error) {
	e.logger.Error(msg,
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	)
}

// LogWithFields logs an error with additional fields.
func (e *ErrorLogger) LogWithFields(r *http.Request, msg string, err error, fields ...zap.Field) {
	allFields := append([]zap.Field{
		zap.Error(err),
		zap.String("path", r.URL.Path),
		zap.String("method", r.Method),
	}, fields...)
	e.logger.Error(msg, allFields...)
}

// Handler provides error page handlers. API requests get a JSON body,
// everything else an HTML page in the shared layout.
type Handler struct {
	siteName string
	logger   *zap.Logger
}

// NewHandler creates a new error Handler.
func NewHandler(siteName string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{siteName: siteName, logger: logger}
}

// wantsJSON reports whether the request should get a JSON error.
func wantsJSON(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request, status int, title, message string) {
	if wantsJSON(r) {
		jsonutil.Error(w, status, message)
		return
	}
	body := template.HTML(`<div class="error-page"><p>` + template.HTMLEscapeString(message) + `</p></div>`)
	if err := resources.RenderPage(w, status, resources.Page{Title: title, SiteName: h.siteName, Body: body}); err != nil {
		h.logger.Error("error page render failed", zap.Error(err), zap.String("path", r.URL.Path))
		http.Error(w, message, status)
	}
}

// NotFound renders the 404 not found page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusNotFound, "Not Found", "The page you requested does not exist.")
}

// MethodNotAllowed renders the 405 page.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusMethodNotAllowed, "Method Not Allowed", "This resource does not support that method.")
}

// InternalError renders the 500 internal server error page.
func (h *Handler) InternalError(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, http.StatusInternalServerError, "Server Error", "Something went wrong. Please try again later.")
}
