// internal/app/resources/resources.go
package resources

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
)

// DefaultAssetBase is where AssetsHandler is mounted.
const DefaultAssetBase = "/assets"

// Embed the shared page layout.
//
//go:embed templates/*.gohtml
var sharedFS embed.FS

//go:embed assets/css/*.css assets/js/*.js
var assetsFS embed.FS

var (
	layoutOnce sync.Once
	layout     *template.Template
	layoutErr  error
)

// NavItem is one link of the section navigation.
type NavItem struct {
	Label   string
	Href    string
	Current bool
}

// Page is the data the shared layout renders.
type Page struct {
	Title     string
	SiteName  string
	AssetBase string
	Nav       []NavItem
	Body      template.HTML
}

// Layout returns the parsed shared layout.
func Layout() (*template.Template, error) {
	layoutOnce.Do(func() {
		layout, layoutErr = template.ParseFS(sharedFS, "templates/*.gohtml")
	})
	return layout, layoutErr
}

// RenderPage writes p wrapped in the shared layout with the given status.
// The page is rendered to a buffer first so a template error can still
// produce a clean 500.
func RenderPage(w http.ResponseWriter, status int, p Page) error {
	t, err := Layout()
	if err != nil {
		return fmt.Errorf("parse layout: %w", err)
	}
	if p.AssetBase == "" {
		p.AssetBase = DefaultAssetBase
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", p); err != nil {
		return fmt.Errorf("render layout: %w", err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// Assets returns the embedded assets filesystem.
func Assets() fs.FS {
	sub, err := fs.Sub(assetsFS, "assets")
	if err != nil {
		panic("failed to get assets subdirectory: " + err.Error())
	}
	return sub
}

// AssetsHandler returns an http.Handler that serves embedded assets.
// The prefix is stripped from the request path before looking up files.
func AssetsHandler(prefix string) http.Handler {
	fileServer := http.FileServer(http.FS(Assets()))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, prefix)
		path = strings.TrimPrefix(path, "/")

		r.URL.Path = "/" + path
		fileServer.ServeHTTP(w, r)
	})
}
