package widget

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/ranges"
	"github.com/dalemusser/stratadash/internal/app/system/render"
	"github.com/dalemusser/stratadash/internal/app/system/viz"
	"go.uber.org/zap"
)

func definition(active string) *viz.Definition {
	return &viz.Definition{
		SectionID:     "overview",
		ChartID:       "members",
		Title:         "Members",
		Notes:         []string{"Counts exclude staff."},
		Visualization: viz.Markup{HTML: "<p>range " + active + "</p>"},
		Range:         ranges.Selection(active, nil, nil),
	}
}

func TestSelect_StaleResponseDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan context.Context, 1)

	f := FuncFetcher(func(ctx context.Context, _, _, key string) (*viz.Definition, error) {
		if key == "1m" {
			started <- ctx
			<-release
		}
		return definition(key), nil
	})
	w := New(Config{SectionID: "overview", ChartID: "members", Fetcher: f, Logger: zap.NewNop()})

	errc := make(chan error, 1)
	go func() { errc <- w.Select(context.Background(), "1m") }()

	var slowCtx context.Context
	select {
	case slowCtx = <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first fetch never started")
	}

	if err := w.Select(context.Background(), "1y"); err != nil {
		t.Fatalf("Select(1y) = %v", err)
	}
	select {
	case <-slowCtx.Done():
	default:
		t.Error("superseded fetch context was not cancelled")
	}

	close(release)
	if err := <-errc; !errors.Is(err, ErrStale) {
		t.Errorf("slow Select = %v, want ErrStale", err)
	}

	s := w.State()
	if s.Selected != "1y" || s.Data == nil || s.Data.Range.ActiveKey() != "1y" {
		t.Errorf("state = selected %q, data %+v", s.Selected, s.Data)
	}
	if s.Pending != "" || s.Loading {
		t.Errorf("widget still busy: %+v", s)
	}
}

func TestSelect_ServerConfirmedRangeWins(t *testing.T) {
	f := FuncFetcher(func(ctx context.Context, _, _, key string) (*viz.Definition, error) {
		return definition(ranges.Resolve(key, ranges.DefaultKey, nil)), nil
	})
	w := New(Config{SectionID: "overview", ChartID: "members", Fetcher: f})
	if err := w.Select(context.Background(), "5y"); err != nil {
		t.Fatal(err)
	}
	if got := w.State().Selected; got != "1y" {
		t.Errorf("Selected = %q, want server value 1y", got)
	}
	if n := len(w.State().Options); n != len(ranges.Keys()) {
		t.Errorf("options = %d", n)
	}
}

func TestSelect_FetchFailure(t *testing.T) {
	boom := errors.New("boom")
	f := FuncFetcher(func(context.Context, string, string, string) (*viz.Definition, error) {
		return nil, boom
	})
	w := New(Config{SectionID: "s", ChartID: "c", Initial: definition("1y"), Fetcher: f})
	if err := w.Select(context.Background(), "3m"); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	html, err := w.View(render.New(nil, nil, nil), ViewOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(html), "Unable to load chart data.") {
		t.Errorf("error indicator missing:\n%s", html)
	}
}

func TestNew_WithoutInitialIsLoading(t *testing.T) {
	w := New(Config{SectionID: "s", ChartID: "c"})
	if !w.State().Loading {
		t.Error("widget without data should be loading")
	}
	html, err := w.View(render.New(nil, nil, nil), ViewOptions{})
	if err != nil {
		t.Fatal(err)
	}
	s := string(html)
	if !strings.Contains(s, "chart-widget__loading") {
		t.Errorf("loading indicator missing:\n%s", s)
	}
	if strings.Contains(s, "chart-widget__ranges") {
		t.Errorf("range controls rendered without options:\n%s", s)
	}
	if err := w.Load(context.Background()); err == nil {
		t.Error("Load without a fetcher should fail")
	}
}

func TestView_RangeControls(t *testing.T) {
	w := New(Config{SectionID: "overview", ChartID: "members", Initial: definition("3m")})
	html, err := w.View(render.New(nil, nil, nil), ViewOptions{FragmentBase: "/dash"})
	if err != nil {
		t.Fatal(err)
	}
	s := string(html)
	for _, want := range []string{
		"chart-widget__ranges",
		`href="/dash/overview/members?range=3m"`,
		"is-active",
		"<p>range 3m</p>",
		"Counts exclude staff.",
		"<h3>Members</h3>",
	} {
		if !strings.Contains(s, want) {
			t.Errorf("view missing %q:\n%s", want, s)
		}
	}
	if strings.Count(s, "is-active") != 1 {
		t.Errorf("exactly one active control expected")
	}
}

func TestBoard_MountLifecycle(t *testing.T) {
	b := NewBoard(nil, zap.NewNop())
	w1, created := b.Mount("a", Config{SectionID: "s", ChartID: "c"})
	if !created {
		t.Fatal("first mount should create")
	}
	w2, created := b.Mount("a", Config{SectionID: "s", ChartID: "other"})
	if created || w1 != w2 {
		t.Error("second mount should return the existing widget")
	}
	b.Mount("b", Config{SectionID: "s", ChartID: "d"})
	if b.Len() != 2 || b.Widgets()[1].ChartID() != "d" {
		t.Errorf("widgets = %d", b.Len())
	}

	if !b.Unmount("a") {
		t.Error("Unmount(a) = false")
	}
	if b.Unmount("a") {
		t.Error("second Unmount(a) = true")
	}
	b.Close()
	if b.Len() != 0 {
		t.Errorf("Len after Close = %d", b.Len())
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/chart/overview/members":
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(definition(r.URL.Query().Get("range")))
		case "/api/chart/overview/broken":
			http.Error(w, "nope", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(srv.URL+"/", time.Second)
	ctx := context.Background()

	def, err := f.Fetch(ctx, "overview", "members", "2y")
	if err != nil {
		t.Fatal(err)
	}
	if def.Title != "Members" || def.Range.ActiveKey() != "2y" {
		t.Errorf("def = %+v", def)
	}
	if _, ok := def.Visualization.(viz.Markup); !ok {
		t.Errorf("visualization = %T", def.Visualization)
	}

	def, err = f.Fetch(ctx, "overview", "missing", "")
	if err != nil || def != nil {
		t.Errorf("404 = %v, %v; want nil, nil", def, err)
	}

	if _, err := f.Fetch(ctx, "overview", "broken", ""); err == nil {
		t.Error("500 should fail")
	}
}
