// Package render maps (field, entry, context, format) to an output value.
// A field that fails to decode renders its raw stored value; it never fails
// the row.
package render

import (
	"context"
	htmltemplate "html/template"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/domain"
	"github.com/kailas-cloud/entrydex/internal/domain/entry"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
	"github.com/kailas-cloud/entrydex/internal/logger"
	"github.com/kailas-cloud/entrydex/internal/metrics"
	"github.com/kailas-cloud/entrydex/internal/usecase/fields"
)

// DefaultLinkText is the anchor text of entry_link fields without a custom label.
const DefaultLinkText = "View Details"

// Context is constructed once per entry per response.
type Context struct {
	View           view.View
	Entry          entry.Entry
	DisplayContext string
	Format         view.Format
	// BaseURL prefixes links to the single entry page.
	BaseURL string
	// Override, when set, is consulted before the field's natural renderer.
	Override Override
}

// Override renders a field in place of its natural renderer.
// Returning false hands the field back to the natural renderer.
type Override interface {
	Render(f fields.OutputField, rc Context) (any, bool)
}

// OverrideFunc adapts a function to Override.
type OverrideFunc func(f fields.OutputField, rc Context) (any, bool)

// Render calls f.
func (f OverrideFunc) Render(of fields.OutputField, rc Context) (any, bool) { return f(of, rc) }

// Cell is one rendered (entry, field) pair.
type Cell struct {
	Key   string
	Label string
	// Value is template.HTML for HTML, string for CSV/TSV and a JSON-ready
	// value (string, []string, []map[string]string, []BusinessHours) for JSON.
	Value any
}

// Label resolves the field label: custom label, form label, then the output key.
func Label(f fields.OutputField, v view.View) string {
	if l := f.Field.Label(v); l != "" {
		return l
	}
	return f.Key
}

// EntryURL returns the single entry page of en in the given format.
func EntryURL(baseURL string, v view.View, en entry.Entry, format view.Format) string {
	return strings.TrimRight(baseURL, "/") + "/views/" + v.Slug() + "/entries/" + en.ID() + "." + string(format)
}

// Row renders every output field of one entry, in order.
func Row(ctx context.Context, out []fields.OutputField, rc Context) []Cell {
	cells := make([]Cell, len(out))
	for i, f := range out {
		cells[i] = Render(ctx, f, rc)
	}
	return cells
}

// Render produces the cell for one field of rc.Entry.
func Render(ctx context.Context, f fields.OutputField, rc Context) Cell {
	cell := Cell{Key: f.Key, Label: Label(f, rc.View)}

	if f.Field.Visibility().ApprovedOnly && !rc.Entry.IsApproved() {
		cell.Value = empty(rc.Format)
		return cell
	}

	if rc.Override != nil {
		if v, ok := rc.Override.Render(f, rc); ok {
			cell.Value = finish(v, rc.Format)
			return cell
		}
	}

	v, err := natural(f, rc)
	if err != nil {
		raw, _ := rc.Entry.Value(f.Field.ID())
		de := &domain.DecodeError{Field: f.Field.ID(), Err: err}
		metrics.FieldDecodeErrorsTotal.WithLabelValues(f.Field.Type()).Inc()
		logger.FromContext(ctx).Warn("Field value rendered raw",
			zap.String("field", f.Field.ID()),
			zap.String("entry_id", rc.Entry.ID()),
			zap.Error(de),
		)
		v = text(raw, rc.Format)
	}
	if rc.Format == view.FormatHTML && f.Field.ShowAsLink() {
		v = link(EntryURL(rc.BaseURL, rc.View, rc.Entry, view.FormatHTML), v.(htmltemplate.HTML))
	}
	cell.Value = v
	return cell
}

// natural dispatches on field type.
func natural(f fields.OutputField, rc Context) (any, error) {
	fid := f.Field.ID()
	raw, _ := rc.Entry.Value(fid)

	switch f.Field.Type() {
	case view.TypeCustom:
		return custom(f.Field.Content(), rc), nil
	case view.TypeEntryLink:
		u := EntryURL(rc.BaseURL, rc.View, rc.Entry, view.FormatHTML)
		if rc.Format != view.FormatHTML {
			return text(u, rc.Format), nil
		}
		label := f.Field.CustomLabel()
		if label == "" {
			label = DefaultLinkText
		}
		return link(u, htmltemplate.HTML(htmltemplate.HTMLEscapeString(label))), nil //nolint:gosec // escaped above
	case view.TypeList:
		items, tbl, err := decodeList(raw)
		if err != nil {
			return nil, err
		}
		if tbl != nil {
			return tableValue(tbl, rc.Format), nil
		}
		return listValue(items, rc.Format), nil
	case view.TypeMultiselect, view.TypeCheckbox:
		items, err := decodeStrings(raw)
		if err != nil {
			return nil, err
		}
		return listValue(items, rc.Format), nil
	case view.TypeFileUpload:
		urls, err := decodeStrings(raw)
		if err != nil {
			return nil, err
		}
		return filesValue(urls, rc.Format), nil
	case view.TypeBusinessHours:
		hours, err := decodeBusinessHours(raw)
		if err != nil {
			return nil, err
		}
		return hoursValue(hours, rc.Format), nil
	default:
		return text(raw, rc.Format), nil
	}
}

// custom renders view-authored content with merge tags resolved.
// Flat formats get the text content only.
func custom(content string, rc Context) any {
	if rc.Format == view.FormatHTML {
		return htmltemplate.HTML(mergeTags(content, rc.Entry, true)) //nolint:gosec // view-authored markup
	}
	flat := mergeTags(stripMarkup(content), rc.Entry, false)
	return text(strings.Join(strings.Fields(flat), " "), rc.Format)
}

// text converts a plain string to the representation of format.
func text(s string, format view.Format) any {
	switch format {
	case view.FormatHTML:
		return htmltemplate.HTML(htmltemplate.HTMLEscapeString(s)) //nolint:gosec // escaped
	case view.FormatCSV, view.FormatTSV:
		return Sanitize(s)
	default:
		return s
	}
}

func empty(format view.Format) any { return text("", format) }

// finish coerces override output to the cell type of format.
func finish(v any, format view.Format) any {
	switch t := v.(type) {
	case htmltemplate.HTML:
		if format == view.FormatHTML {
			return t
		}
		return text(stripMarkup(string(t)), format)
	case string:
		return text(t, format)
	default:
		if format == view.FormatJSON {
			return t
		}
		return text(scalarString(t), format)
	}
}

func link(href string, inner htmltemplate.HTML) htmltemplate.HTML {
	return htmltemplate.HTML(`<a href="` + htmltemplate.HTMLEscapeString(href) + `">` + string(inner) + `</a>`) //nolint:gosec // escaped
}

func listValue(items []string, format view.Format) any {
	switch format {
	case view.FormatJSON:
		if items == nil {
			return []string{}
		}
		return items
	case view.FormatHTML:
		if len(items) == 0 {
			return htmltemplate.HTML("")
		}
		var b strings.Builder
		b.WriteString(`<ul class="entrydex-list">`)
		for _, it := range items {
			b.WriteString("<li>" + htmltemplate.HTMLEscapeString(it) + "</li>")
		}
		b.WriteString("</ul>")
		return htmltemplate.HTML(b.String()) //nolint:gosec // escaped
	default:
		return text(strings.Join(items, ", "), format)
	}
}

func tableValue(t *table, format view.Format) any {
	switch format {
	case view.FormatJSON:
		return t.rows
	case view.FormatHTML:
		var b strings.Builder
		b.WriteString(`<table class="entrydex-list"><thead><tr>`)
		for _, c := range t.columns {
			b.WriteString("<th>" + htmltemplate.HTMLEscapeString(c) + "</th>")
		}
		b.WriteString("</tr></thead><tbody>")
		for _, r := range t.rows {
			b.WriteString("<tr>")
			for _, c := range t.columns {
				b.WriteString("<td>" + htmltemplate.HTMLEscapeString(r[c]) + "</td>")
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")
		return htmltemplate.HTML(b.String()) //nolint:gosec // escaped
	default:
		return text(t.flat(), format)
	}
}

func filesValue(urls []string, format view.Format) any {
	switch format {
	case view.FormatJSON:
		if urls == nil {
			return []string{}
		}
		return urls
	case view.FormatHTML:
		links := make([]string, 0, len(urls))
		for _, u := range urls {
			links = append(links, string(link(u, htmltemplate.HTML(htmltemplate.HTMLEscapeString(fileName(u)))))) //nolint:gosec // escaped
		}
		return htmltemplate.HTML(strings.Join(links, "<br/>")) //nolint:gosec // escaped
	default:
		return text(strings.Join(urls, ", "), format)
	}
}

func hoursValue(hours []BusinessHours, format view.Format) any {
	switch format {
	case view.FormatJSON:
		if hours == nil {
			return []BusinessHours{}
		}
		return hours
	case view.FormatHTML:
		var b strings.Builder
		b.WriteString(`<ul class="entrydex-business-hours">`)
		for _, h := range hours {
			b.WriteString("<li><span>" + htmltemplate.HTMLEscapeString(h.Day) + "</span> " +
				htmltemplate.HTMLEscapeString(h.Open) + " - " + htmltemplate.HTMLEscapeString(h.Close) + "</li>")
		}
		b.WriteString("</ul>")
		return htmltemplate.HTML(b.String()) //nolint:gosec // escaped
	default:
		return text(hoursFlat(hours), format)
	}
}
