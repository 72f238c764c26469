package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/eshaffer321/cartsync/internal/api/dto"
	"github.com/eshaffer321/cartsync/internal/api/middleware"
	"github.com/eshaffer321/cartsync/internal/api/shop"
)

//go:embed templates/*.html
var templateFiles embed.FS

var pages = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// Base provides shared functionality for all handlers.
type Base struct {
	logger *slog.Logger
}

// NewBase creates a new base handler.
func NewBase(logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{logger: logger}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// Render executes a named page template. The page is buffered so a
// template error can still produce a clean 500.
func (b *Base) Render(w http.ResponseWriter, name string, data interface{}) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		b.logger.Error("failed to render page", "template", name, slog.Any("error", err))
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

// Session returns the request's session or writes a 500 when the session
// middleware is missing.
func (b *Base) Session(w http.ResponseWriter, r *http.Request) (*shop.Session, bool) {
	sess, ok := middleware.SessionFrom(r.Context())
	if !ok {
		b.logger.Error("request has no session", "path", r.URL.Path)
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
	return sess, ok
}

// ParseIntForm parses an integer form value. ok is false when the value is
// present but not an integer.
func ParseIntForm(r *http.Request, name string, defaultVal int) (int, bool) {
	val := strings.TrimSpace(r.PostFormValue(name))
	if val == "" {
		return defaultVal, true
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal, false
	}
	return parsed, true
}
