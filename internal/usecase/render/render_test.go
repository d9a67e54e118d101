package render

import (
	"context"
	htmltemplate "html/template"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kailas-cloud/entrydex/internal/domain/entry"
	"github.com/kailas-cloud/entrydex/internal/domain/searchfield"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
	"github.com/kailas-cloud/entrydex/internal/logger"
	"github.com/kailas-cloud/entrydex/internal/metrics"
	"github.com/kailas-cloud/entrydex/internal/usecase/fields"
)

func testView(t *testing.T, specs ...view.FieldSpec) view.View {
	t.Helper()
	form, err := view.NewForm("1", "Contacts", []view.FormField{
		{ID: "name", Label: "Name", Type: "text"},
		{ID: "tags", Label: "Tags", Type: "multiselect"},
		{ID: "files", Label: "Files", Type: "fileupload"},
		{ID: "hours", Label: "Hours", Type: "business_hours"},
		{ID: "items", Label: "Items", Type: "list"},
	})
	require.NoError(t, err)
	list := make(view.FieldList, 0, len(specs))
	for _, s := range specs {
		f, err := view.NewField(s)
		require.NoError(t, err)
		list = append(list, f)
	}
	v, err := view.New("contacts", "", "Contacts", form, list, searchfield.Collection{}, view.Settings{})
	require.NoError(t, err)
	return v
}

func testEntry(approved bool, values map[string]string) entry.Entry {
	return entry.Reconstruct("7", "1", entry.Meta{
		Approved:    approved,
		DateCreated: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}, values)
}

func resolved(t *testing.T, v view.View, format view.Format) []fields.OutputField {
	t.Helper()
	return fields.Resolve(v, view.ContextDirectory, fields.Options{Format: format})
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"Bob", "Bob"},
		{"=SUM(A1:A2)", "'=SUM(A1:A2)"},
		{"+1", "'+1"},
		{"-1", "'-1"},
		{"@cmd", "'@cmd"},
		{"\tx", "'\tx"},
		{"\rx", "'\rx"},
		{"a=b", "a=b"},
		{"'=already", "'=already"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Sanitize(tt.in), "input %q", tt.in)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	for _, v := range []string{"=1+2", "+x", "-", "@", "=", "plain", "", "\t=", "'+"} {
		once := Sanitize(v)
		assert.Equal(t, once, Sanitize(once), "value %q", v)
	}
}

func TestRender_TextPerFormat(t *testing.T) {
	v := testView(t, view.FieldSpec{ID: "name", Position: "directory_table-columns"})
	en := testEntry(true, map[string]string{"name": "=<b>Bob</b>"})

	tests := []struct {
		format view.Format
		want   any
	}{
		{view.FormatHTML, htmltemplate.HTML("=&lt;b&gt;Bob&lt;/b&gt;")},
		{view.FormatJSON, "=<b>Bob</b>"},
		{view.FormatCSV, "'=<b>Bob</b>"},
		{view.FormatTSV, "'=<b>Bob</b>"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			out := resolved(t, v, tt.format)
			cell := Render(context.Background(), out[0], Context{View: v, Entry: en, Format: tt.format})
			assert.Equal(t, "name", cell.Key)
			assert.Equal(t, "Name", cell.Label)
			assert.Equal(t, tt.want, cell.Value)
		})
	}
}

func TestRender_LabelFallback(t *testing.T) {
	v := testView(t,
		view.FieldSpec{ID: "name", Position: "directory_table-columns", CustomLabel: "Full name"},
		view.FieldSpec{ID: "name", Position: "directory_table-columns"},
		view.FieldSpec{ID: "unknown", Type: "text", Position: "directory_table-columns"},
	)
	en := testEntry(true, map[string]string{"name": "Bob"})
	cells := Row(context.Background(), resolved(t, v, view.FormatHTML), Context{View: v, Entry: en, Format: view.FormatHTML})

	require.Len(t, cells, 3)
	assert.Equal(t, "Full name", cells[0].Label)
	assert.Equal(t, "Name", cells[1].Label)
	assert.Equal(t, "name(2)", cells[1].Key)
	assert.Equal(t, "unknown", cells[2].Label)
}

func TestRender_ShowAsLink(t *testing.T) {
	v := testView(t, view.FieldSpec{ID: "name", Position: "directory_table-columns", ShowAsLink: true})
	en := testEntry(true, map[string]string{"name": "Bob & Co"})

	html := Render(context.Background(), resolved(t, v, view.FormatHTML)[0],
		Context{View: v, Entry: en, Format: view.FormatHTML, BaseURL: "https://example.test/"})
	assert.Equal(t,
		htmltemplate.HTML(`<a href="https://example.test/views/contacts/entries/7.html">Bob &amp; Co</a>`),
		html.Value)

	csv := Render(context.Background(), resolved(t, v, view.FormatCSV)[0],
		Context{View: v, Entry: en, Format: view.FormatCSV, BaseURL: "https://example.test"})
	assert.Equal(t, "Bob & Co", csv.Value)
}

func TestRender_EntryLink(t *testing.T) {
	v := testView(t, view.FieldSpec{ID: "link", Type: view.TypeEntryLink, Position: "directory_table-columns"})
	en := testEntry(true, nil)

	html := Render(context.Background(), resolved(t, v, view.FormatHTML)[0],
		Context{View: v, Entry: en, Format: view.FormatHTML, BaseURL: "http://h"})
	assert.Equal(t, htmltemplate.HTML(`<a href="http://h/views/contacts/entries/7.html">View Details</a>`), html.Value)

	csv := Render(context.Background(), resolved(t, v, view.FormatCSV)[0],
		Context{View: v, Entry: en, Format: view.FormatCSV, BaseURL: "http://h"})
	assert.Equal(t, "http://h/views/contacts/entries/7.html", csv.Value)
}

func TestRender_CustomContent(t *testing.T) {
	v := testView(t, view.FieldSpec{
		ID:       "card",
		Type:     view.TypeCustom,
		Position: "directory_table-columns",
		Content:  `<p><strong>{Name:name}</strong></p><p>since {Created:date_created}</p>{Missing:nope}`,
	})
	en := testEntry(true, map[string]string{"name": "<Bob>"})

	html := Render(context.Background(), resolved(t, v, view.FormatHTML)[0], Context{View: v, Entry: en, Format: view.FormatHTML})
	assert.Equal(t,
		htmltemplate.HTML(`<p><strong>&lt;Bob&gt;</strong></p><p>since 2026-03-01 09:30:00</p>`),
		html.Value)

	csv := Render(context.Background(), resolved(t, v, view.FormatCSV)[0], Context{View: v, Entry: en, Format: view.FormatCSV})
	assert.Equal(t, "<Bob> since 2026-03-01 09:30:00", csv.Value)

	en = testEntry(true, map[string]string{"name": "Ann"})
	json := Render(context.Background(), resolved(t, v, view.FormatJSON)[0], Context{View: v, Entry: en, Format: view.FormatJSON})
	assert.Equal(t, "Ann since 2026-03-01 09:30:00", json.Value)
}

func TestRender_ApprovedOnly(t *testing.T) {
	v := testView(t,
		view.FieldSpec{ID: "name", Position: "directory_table-columns"},
		view.FieldSpec{ID: "tags", Position: "directory_table-columns", Visibility: view.Visibility{ApprovedOnly: true}},
	)
	values := map[string]string{"name": "Bob", "tags": `["a","b"]`}

	cells := Row(context.Background(), resolved(t, v, view.FormatCSV),
		Context{View: v, Entry: testEntry(false, values), Format: view.FormatCSV})
	require.Len(t, cells, 2)
	assert.Equal(t, "Bob", cells[0].Value)
	assert.Equal(t, "tags", cells[1].Key)
	assert.Equal(t, "", cells[1].Value)

	cells = Row(context.Background(), resolved(t, v, view.FormatCSV),
		Context{View: v, Entry: testEntry(true, values), Format: view.FormatCSV})
	assert.Equal(t, "a, b", cells[1].Value)
}

func TestRender_DecodedShapes(t *testing.T) {
	v := testView(t,
		view.FieldSpec{ID: "tags", Position: "directory_table-columns"},
		view.FieldSpec{ID: "files", Position: "directory_table-columns"},
		view.FieldSpec{ID: "hours", Position: "directory_table-columns"},
		view.FieldSpec{ID: "items", Position: "directory_table-columns"},
	)
	en := testEntry(true, map[string]string{
		"tags":  `["red","blue"]`,
		"files": `["https://cdn.test/u/a.pdf?x=1","https://cdn.test/u/b.png"]`,
		"hours": `[{"day":"Mon","open":"09:00","close":"17:00"}]`,
		"items": `[{"qty":"2","item":"pen"},{"item":"ink","qty":"1"}]`,
	})

	t.Run("json", func(t *testing.T) {
		cells := Row(context.Background(), resolved(t, v, view.FormatJSON), Context{View: v, Entry: en, Format: view.FormatJSON})
		assert.Equal(t, []string{"red", "blue"}, cells[0].Value)
		assert.Equal(t, []string{"https://cdn.test/u/a.pdf?x=1", "https://cdn.test/u/b.png"}, cells[1].Value)
		assert.Equal(t, []BusinessHours{{Day: "Mon", Open: "09:00", Close: "17:00"}}, cells[2].Value)
		assert.Equal(t, []map[string]string{{"item": "pen", "qty": "2"}, {"item": "ink", "qty": "1"}}, cells[3].Value)
	})

	t.Run("csv", func(t *testing.T) {
		cells := Row(context.Background(), resolved(t, v, view.FormatCSV), Context{View: v, Entry: en, Format: view.FormatCSV})
		assert.Equal(t, "red, blue", cells[0].Value)
		assert.Equal(t, "https://cdn.test/u/a.pdf?x=1, https://cdn.test/u/b.png", cells[1].Value)
		assert.Equal(t, "Mon 09:00-17:00", cells[2].Value)
		assert.Equal(t, "pen | 2; ink | 1", cells[3].Value)
	})

	t.Run("html", func(t *testing.T) {
		cells := Row(context.Background(), resolved(t, v, view.FormatHTML), Context{View: v, Entry: en, Format: view.FormatHTML})
		assert.Equal(t, htmltemplate.HTML(`<ul class="entrydex-list"><li>red</li><li>blue</li></ul>`), cells[0].Value)
		assert.Equal(t, htmltemplate.HTML(
			`<a href="https://cdn.test/u/a.pdf?x=1">a.pdf</a><br/><a href="https://cdn.test/u/b.png">b.png</a>`),
			cells[1].Value)
		assert.Contains(t, string(cells[2].Value.(htmltemplate.HTML)), "<span>Mon</span> 09:00 - 17:00")
		assert.Equal(t, htmltemplate.HTML(
			`<table class="entrydex-list"><thead><tr><th>item</th><th>qty</th></tr></thead>`+
				`<tbody><tr><td>pen</td><td>2</td></tr><tr><td>ink</td><td>1</td></tr></tbody></table>`),
			cells[3].Value)
	})
}

func TestRender_ScalarFallbackForSingleValues(t *testing.T) {
	v := testView(t, view.FieldSpec{ID: "files", Position: "directory_table-columns"})
	en := testEntry(true, map[string]string{"files": "https://cdn.test/one.pdf"})
	cell := Render(context.Background(), resolved(t, v, view.FormatJSON)[0], Context{View: v, Entry: en, Format: view.FormatJSON})
	assert.Equal(t, []string{"https://cdn.test/one.pdf"}, cell.Value)
}

func TestRender_DecodeFailureFallsBackToRaw(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	ctx := logger.ContextWithLogger(context.Background(), zap.New(core))

	v := testView(t,
		view.FieldSpec{ID: "name", Position: "directory_table-columns"},
		view.FieldSpec{ID: "hours", Position: "directory_table-columns"},
		view.FieldSpec{ID: "items", Position: "directory_table-columns"},
	)
	en := testEntry(true, map[string]string{
		"name":  "Bob",
		"hours": `[{"day":`,
		"items": `=not json`,
	})
	before := testutil.ToFloat64(metrics.FieldDecodeErrorsTotal.WithLabelValues(view.TypeBusinessHours))

	cells := Row(ctx, resolved(t, v, view.FormatCSV), Context{View: v, Entry: en, Format: view.FormatCSV})

	require.Len(t, cells, 3)
	assert.Equal(t, "Bob", cells[0].Value)
	assert.Equal(t, `[{"day":`, cells[1].Value)
	assert.Equal(t, "'=not json", cells[2].Value, "raw fallback is still sanitized")

	assert.InDelta(t, before+1, testutil.ToFloat64(metrics.FieldDecodeErrorsTotal.WithLabelValues(view.TypeBusinessHours)), 0)
	require.Equal(t, 2, logs.Len())
	entryLog := logs.All()[0]
	assert.Equal(t, "hours", entryLog.ContextMap()["field"])
	assert.Equal(t, "7", entryLog.ContextMap()["entry_id"])
}

func TestRender_BusinessHoursRequiresDay(t *testing.T) {
	v := testView(t, view.FieldSpec{ID: "hours", Position: "directory_table-columns"})
	raw := `[{"open":"09:00","close":"17:00"}]`
	en := testEntry(true, map[string]string{"hours": raw})
	cell := Render(context.Background(), resolved(t, v, view.FormatJSON)[0], Context{View: v, Entry: en, Format: view.FormatJSON})
	assert.Equal(t, raw, cell.Value)
}

func TestRender_Override(t *testing.T) {
	v := testView(t,
		view.FieldSpec{ID: "name", Position: "directory_table-columns"},
		view.FieldSpec{ID: "tags", Position: "directory_table-columns"},
	)
	en := testEntry(true, map[string]string{"name": "Bob", "tags": `["x"]`})
	override := OverrideFunc(func(f fields.OutputField, _ Context) (any, bool) {
		if f.Field.ID() != "name" {
			return nil, false
		}
		return htmltemplate.HTML("<em>=hidden</em>"), true
	})

	cells := Row(context.Background(), resolved(t, v, view.FormatCSV),
		Context{View: v, Entry: en, Format: view.FormatCSV, Override: override})
	assert.Equal(t, "'=hidden", cells[0].Value)
	assert.Equal(t, "x", cells[1].Value)

	cells = Row(context.Background(), resolved(t, v, view.FormatHTML),
		Context{View: v, Entry: en, Format: view.FormatHTML, Override: override})
	assert.Equal(t, htmltemplate.HTML("<em>=hidden</em>"), cells[0].Value)
}

func TestRender_OverrideRespectsApprovedOnly(t *testing.T) {
	v := testView(t,
		view.FieldSpec{ID: "name", Position: "directory_table-columns", Visibility: view.Visibility{ApprovedOnly: true}},
	)
	values := map[string]string{"name": "Secret Bob"}
	override := OverrideFunc(func(f fields.OutputField, rc Context) (any, bool) {
		raw, _ := rc.Entry.Value(f.Field.ID())
		return raw, true
	})

	cells := Row(context.Background(), resolved(t, v, view.FormatCSV),
		Context{View: v, Entry: testEntry(false, values), Format: view.FormatCSV, Override: override})
	require.Len(t, cells, 1)
	assert.Equal(t, "", cells[0].Value)

	cells = Row(context.Background(), resolved(t, v, view.FormatCSV),
		Context{View: v, Entry: testEntry(true, values), Format: view.FormatCSV, Override: override})
	assert.Equal(t, "Secret Bob", cells[0].Value)
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain  text\n here", "plain text here"},
		{"<p>a</p><p>b</p>", "a b"},
		{"<b>bo</b>ld &amp; <i>it</i>", "bold & it"},
		{"line<br>break", "line break"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripMarkup(tt.in), "input %q", tt.in)
	}
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "a.pdf", fileName("https://x.test/u/a.pdf?sig=1"))
	assert.Equal(t, "b.png", fileName("https://x.test/b.png#frag"))
	assert.Equal(t, "/", fileName("/"))
}
