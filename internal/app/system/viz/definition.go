// internal/app/system/viz/definition.go
package viz

import (
	"encoding/json"
	"fmt"
	"time"
)

// DefaultMaxAge is the cache lifetime used when a definition sets none.
const DefaultMaxAge = 900 * time.Second

// RangeOption is one selectable time window.
type RangeOption struct {
	Label string `json:"label"`
}

// RangeSelection lists a chart's selectable windows in display order and
// the one currently applied.
type RangeSelection struct {
	Active  *string              `json:"active"`
	Options Ordered[RangeOption] `json:"options"`
}

// ActiveKey returns the active key or "".
func (r *RangeSelection) ActiveKey() string {
	if r == nil || r.Active == nil {
		return ""
	}
	return *r.Active
}

// CacheHints tells the HTTP layer how long a definition may be reused.
type CacheHints struct {
	MaxAge time.Duration
}

// EffectiveMaxAge returns MaxAge or DefaultMaxAge when unset.
func (c CacheHints) EffectiveMaxAge() time.Duration {
	if c.MaxAge <= 0 {
		return DefaultMaxAge
	}
	return c.MaxAge
}

// Definition is one chart's complete description as sent to the browser.
// Weight orders charts within a section and Cache drives response caching;
// neither is serialized.
type Definition struct {
	SectionID     string          `json:"sectionId"`
	ChartID       string          `json:"chartId"`
	Title         string          `json:"title"`
	Description   string          `json:"description"`
	Notes         []string        `json:"notes"`
	Visualization Payload         `json:"visualization"`
	Range         *RangeSelection `json:"range"`
	DownloadURL   string          `json:"downloadUrl,omitempty"`

	Weight int        `json:"-"`
	Cache  CacheHints `json:"-"`
}

// Key returns the "section:chart" identifier.
func (d Definition) Key() string {
	return Key(d.SectionID, d.ChartID)
}

// Key joins a section and chart id.
func Key(sectionID, chartID string) string {
	return sectionID + ":" + chartID
}

type definitionAlias Definition

// MarshalJSON always emits notes as an array.
func (d Definition) MarshalJSON() ([]byte, error) {
	a := definitionAlias(d)
	if a.Notes == nil {
		a.Notes = []string{}
	}
	return json.Marshal(a)
}

// UnmarshalJSON decodes the envelope, routing the visualization through
// DecodePayload.
func (d *Definition) UnmarshalJSON(data []byte) error {
	var w struct {
		SectionID     string          `json:"sectionId"`
		ChartID       string          `json:"chartId"`
		Title         string          `json:"title"`
		Description   string          `json:"description"`
		Notes         []string        `json:"notes"`
		Visualization json.RawMessage `json:"visualization"`
		Range         *RangeSelection `json:"range"`
		DownloadURL   string          `json:"downloadUrl"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("decode definition: %w", err)
	}
	p, err := DecodePayload(w.Visualization)
	if err != nil {
		return err
	}
	*d = Definition{
		SectionID:     w.SectionID,
		ChartID:       w.ChartID,
		Title:         w.Title,
		Description:   w.Description,
		Notes:         w.Notes,
		Visualization: p,
		Range:         w.Range,
		DownloadURL:   w.DownloadURL,
	}
	return nil
}
