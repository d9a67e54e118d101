package format

import (
	"fmt"
	htmltemplate "html/template"
	"io"
	"net/http"

	"github.com/kailas-cloud/entrydex/internal/domain/view"
	"github.com/kailas-cloud/entrydex/internal/usecase/render"
)

var htmlTemplates = htmltemplate.Must(htmltemplate.New("page").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>{{template "container" .}}</body></html>
{{define "container"}}<div class="entrydex-view" data-items="{{.Meta.Items}}" data-total="{{.Meta.Total}}">
{{- range .Rows}}
<div class="entrydex-entry"><dl>
{{- range .}}<dt data-key="{{.Key}}">{{.Label}}</dt><dd>{{.Value}}</dd>{{end -}}
</dl></div>
{{- else}}
<p class="entrydex-no-results">No entries match your request.</p>
{{- end}}
</div>
{{end}}`))

type htmlData struct {
	Title string
	Meta  Meta
	Rows  [][]render.Cell
}

// htmlFormatter buffers the page rows and executes the template on End.
type htmlFormatter struct {
	w      io.Writer
	opts   Options
	data   htmlData
	begun  bool
	closed bool
}

func newHTML(w io.Writer, opts Options) *htmlFormatter {
	return &htmlFormatter{w: w, opts: opts, data: htmlData{Title: opts.Title}}
}

func (f *htmlFormatter) Begin(h http.Header, meta Meta) error {
	if f.begun {
		return fmt.Errorf("begin html: formatter already started")
	}
	f.begun = true
	f.data.Meta = meta
	setMeta(h, view.FormatHTML, meta)
	return nil
}

func (f *htmlFormatter) Row(cells []render.Cell) error {
	if !f.begun {
		return fmt.Errorf("write html row: Begin not called")
	}
	if f.closed {
		return ErrClosed
	}
	f.data.Rows = append(f.data.Rows, cells)
	return nil
}

func (f *htmlFormatter) End() error {
	if f.closed {
		return nil
	}
	if !f.begun {
		return fmt.Errorf("end html: Begin not called")
	}
	f.closed = true
	name := "page"
	if f.opts.Fragment {
		name = "container"
	}
	if err := htmlTemplates.ExecuteTemplate(f.w, name, f.data); err != nil {
		return fmt.Errorf("execute html template: %w", err)
	}
	return nil
}
