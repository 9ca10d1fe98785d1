// Package htmlsanitize cleans the HTML fragments shown in markup panels.
// Builders sanitize when they emit a panel and the renderer sanitizes again
// before display, since payloads can arrive from another server.
package htmlsanitize

import (
	"html/template"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// panelPolicy extends bluemonday's UGC policy with what summary panels use:
// tables, light inline emphasis and dashboard stylesheet classes.
var panelPolicy = sync.OnceValue(func() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td", "caption")
	p.AllowAttrs("colspan", "rowspan", "scope").OnElements("th", "td")
	p.AllowElements("u", "s", "sub", "sup", "mark", "small")
	p.AllowAttrs("class").Matching(bluemonday.SpaceSeparatedTokens).Globally()
	p.AllowAttrs("role").Matching(bluemonday.SpaceSeparatedTokens).OnElements("div", "p", "span", "ul")
	return p
})

// Sanitize strips scripts, event handlers, unsafe URLs and embedded frames
// from fragment.
func Sanitize(fragment string) string {
	if fragment == "" {
		return ""
	}
	return panelPolicy().Sanitize(fragment)
}

// Safe sanitizes fragment for direct use in a template.
func Safe(fragment string) template.HTML {
	return template.HTML(Sanitize(fragment))
}
