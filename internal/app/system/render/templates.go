// internal/app/system/render/templates.go
package render

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/dalemusser/stratadash/internal/app/system/viz"
)

const nodeTemplate = `
{{- define "node" -}}
{{- if eq .Kind "chart" -}}
<figure class="viz viz-chart {{.Class}}"{{with .Key}} data-key="{{.}}"{{end}}>
{{- .SVG -}}
{{- with .Points}}
<table class="viz-chart__details">
<tbody>
{{- range .}}
<tr><th scope="row">{{.Title}}</th><td>{{range $i, $l := .Lines}}{{if $i}}<br>{{end}}{{$l}}{{end}}</td></tr>
{{- end}}
</tbody>
</table>
{{- end}}
</figure>
{{- else if eq .Kind "table" -}}
<table class="viz viz-table"{{with .Key}} data-key="{{.}}"{{end}}>
{{- with .Header}}
<thead><tr>{{range .}}<th scope="col">{{.}}</th>{{end}}</tr></thead>
{{- end}}
<tbody>
{{- range .Rows}}
<tr data-row="{{.Key}}">{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
{{- end}}
</tbody>
</table>
{{- else if eq .Kind "markup" -}}
<div class="viz viz-markup"{{with .Key}} data-key="{{.}}"{{end}}>{{.HTML}}</div>
{{- else if eq .Kind "container" -}}
<div class="viz viz-container {{.Class}}"{{with .Key}} data-key="{{.}}"{{end}}>
{{- range .Children}}
<div class="viz-container__item">{{template "node" .}}</div>
{{- end}}
</div>
{{- else if eq .Kind "unsupported" -}}
<div class="viz viz-unsupported" role="note"{{with .Key}} data-key="{{.}}"{{end}}>{{.Message}}</div>
{{- else -}}
<div class="viz viz-empty" role="note"{{with .Key}} data-key="{{.}}"{{end}}>{{.Message}}</div>
{{- end -}}
{{- end -}}
`

var tmpl = template.Must(template.New("render").Parse(nodeTemplate))

// WriteNode renders n as HTML. A nil node renders nothing.
func WriteNode(n *Node) (template.HTML, error) {
	if n == nil {
		return "", nil
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "node", n); err != nil {
		return "", fmt.Errorf("render node: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// HTML renders p straight to HTML.
func (r *Renderer) HTML(p viz.Payload) (template.HTML, error) {
	return WriteNode(r.Render(p))
}
