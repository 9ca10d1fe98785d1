// internal/app/system/widget/view.go
package widget

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"

	"github.com/dalemusser/stratadash/internal/app/system/render"
)

// DefaultFragmentBase prefixes the range-control links.
const DefaultFragmentBase = "/dashboard"

const viewTemplate = `<section class="chart-widget" id="{{.DOMID}}" data-section="{{.SectionID}}" data-chart="{{.ChartID}}"{{if .Busy}} aria-busy="true"{{end}}>
{{- with .Title}}
<header class="chart-widget__header"><h3>{{.}}</h3>{{with $.Description}}<p>{{.}}</p>{{end}}</header>
{{- end}}
{{- if .Controls}}
<nav class="chart-widget__ranges" aria-label="{{.RangeLabel}}">
{{- range .Controls}}
<a href="{{.Href}}" hx-get="{{.Href}}" hx-target="#{{$.DOMID}}" hx-swap="outerHTML" class="chart-widget__range{{if .Active}} is-active{{end}}{{if .Pending}} is-pending{{end}}"{{if .Active}} aria-current="true"{{end}}{{if $.Busy}} aria-disabled="true"{{end}}>{{.Label}}</a>
{{- end}}
</nav>
{{- end}}
<div class="chart-widget__body">
{{- if .Error}}
<div class="chart-widget__error" role="alert">{{.Error}}</div>
{{- else if .Loading}}
<div class="chart-widget__loading" role="status">{{.Loading}}</div>
{{- else}}
{{.Body}}
{{- end}}
</div>
{{- with .Notes}}
<ul class="chart-widget__notes">{{range .}}<li>{{.}}</li>{{end}}</ul>
{{- end}}
{{- with .DownloadURL}}
<a class="chart-widget__download" href="{{.}}">{{$.DownloadLabel}}</a>
{{- end}}
</section>`

var viewTmpl = template.Must(template.New("widget").Parse(viewTemplate))

type control struct {
	Label   string
	Href    string
	Active  bool
	Pending bool
}

type viewModel struct {
	DOMID         string
	SectionID     string
	ChartID       string
	Title         string
	Description   string
	RangeLabel    string
	Controls      []control
	Busy          bool
	Error         string
	Loading       string
	Body          template.HTML
	Notes         []string
	DownloadURL   string
	DownloadLabel string
}

// ViewOptions controls how View renders a widget.
type ViewOptions struct {
	// FragmentBase prefixes range links: {base}/{section}/{chart}?range=.
	FragmentBase string
	Translate    func(string) string
}

// View renders the widget: range controls when the chart offers ranges,
// then the error indicator, the loading indicator or the visualization.
func (w *Widget) View(r *render.Renderer, opts ViewOptions) (template.HTML, error) {
	t := opts.Translate
	if t == nil {
		t = func(s string) string { return s }
	}
	base := opts.FragmentBase
	if base == "" {
		base = DefaultFragmentBase
	}

	s := w.State()
	vm := viewModel{
		DOMID:         "widget-" + w.id,
		SectionID:     w.sectionID,
		ChartID:       w.chartID,
		RangeLabel:    t("Time range"),
		Busy:          s.Pending != "",
		DownloadLabel: t("Download CSV"),
	}
	for _, o := range s.Options {
		vm.Controls = append(vm.Controls, control{
			Label:   o.Label,
			Href:    fmt.Sprintf("%s/%s/%s?%s", base, url.PathEscape(w.sectionID), url.PathEscape(w.chartID), url.Values{"range": {o.Key}}.Encode()),
			Active:  o.Key == s.Selected,
			Pending: o.Key == s.Pending,
		})
	}

	switch {
	case s.Err != nil:
		vm.Error = t("Unable to load chart data.")
	case s.Data == nil && s.Loading:
		vm.Loading = t("Loading…")
	case s.Data == nil:
		vm.Body = template.HTML(`<div class="viz viz-empty" role="note">` + template.HTMLEscapeString(t("No data available.")) + `</div>`)
	default:
		vm.Title = s.Data.Title
		vm.Description = s.Data.Description
		vm.Notes = s.Data.Notes
		vm.DownloadURL = s.Data.DownloadURL
		body, err := r.HTML(s.Data.Visualization)
		if err != nil {
			return "", err
		}
		vm.Body = body
	}

	var buf bytes.Buffer
	if err := viewTmpl.Execute(&buf, vm); err != nil {
		return "", fmt.Errorf("render widget %s/%s: %w", w.sectionID, w.chartID, err)
	}
	return template.HTML(buf.String()), nil
}
