// internal/app/system/widget/fetcher.go
package widget

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/stratadash/internal/app/system/viz"
)

// Fetcher loads the definition of one chart for a range key. A nil
// definition with a nil error means the chart has no data.
type Fetcher interface {
	Fetch(ctx context.Context, sectionID, chartID, rangeKey string) (*viz.Definition, error)
}

// FuncFetcher adapts a function to Fetcher.
type FuncFetcher func(ctx context.Context, sectionID, chartID, rangeKey string) (*viz.Definition, error)

// Fetch calls f.
func (f FuncFetcher) Fetch(ctx context.Context, sectionID, chartID, rangeKey string) (*viz.Definition, error) {
	return f(ctx, sectionID, chartID, rangeKey)
}

// HTTPFetcher loads definitions from the chart API.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHTTPFetcher returns an HTTPFetcher for baseURL with a bounded client.
func NewHTTPFetcher(baseURL string, timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  &http.Client{Timeout: timeout},
	}
}

// Fetch issues GET {base}/api/chart/{section}/{chart}?range={key}.
func (f *HTTPFetcher) Fetch(ctx context.Context, sectionID, chartID, rangeKey string) (*viz.Definition, error) {
	u := fmt.Sprintf("%s/api/chart/%s/%s", strings.TrimRight(f.BaseURL, "/"),
		url.PathEscape(sectionID), url.PathEscape(chartID))
	if rangeKey != "" {
		u += "?" + url.Values{"range": {rangeKey}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build chart request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch chart %s/%s: %w", sectionID, chartID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("fetch chart %s/%s: status %d: %s", sectionID, chartID, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var def viz.Definition
	if err := json.NewDecoder(resp.Body).Decode(&def); err != nil {
		return nil, fmt.Errorf("decode chart %s/%s: %w", sectionID, chartID, err)
	}
	return &def, nil
}
