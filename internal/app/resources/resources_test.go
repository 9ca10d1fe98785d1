package resources

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRenderPage(t *testing.T) {
	rec := httptest.NewRecorder()
	err := RenderPage(rec, http.StatusOK, Page{
		Title:    "Overview",
		SiteName: "Stratadash",
		Nav: []NavItem{
			{Label: "Overview", Href: "/dashboard/overview", Current: true},
			{Label: "Retention", Href: "/dashboard/retention"},
		},
		Body: `<div id="content">charts</div>`,
	})
	if err != nil {
		t.Fatalf("RenderPage() error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Overview · Stratadash</title>",
		`href="/assets/css/dashboard.css"`,
		`aria-current="page"`,
		`<div id="content">charts</div>`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestRenderPage_EscapesTitle(t *testing.T) {
	rec := httptest.NewRecorder()
	if err := RenderPage(rec, http.StatusNotFound, Page{Title: "<b>x</b>", SiteName: "S"}); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "<b>x</b>") {
		t.Error("title was not escaped")
	}
}

func TestAssetsHandler(t *testing.T) {
	h := AssetsHandler("/assets")
	for _, path := range []string{"/assets/css/dashboard.css", "/assets/js/dashboard.js"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d", path, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/assets/missing.css", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing asset status = %d", rec.Code)
	}
}
