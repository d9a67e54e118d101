// Package format writes rendered rows as HTML, JSON, CSV or TSV responses.
package format

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/kailas-cloud/entrydex/internal/domain/view"
	"github.com/kailas-cloud/entrydex/internal/usecase/render"
)

// Response headers carrying paging metadata.
const (
	HeaderItemCount  = "X-Item-Count"
	HeaderTotalCount = "X-Total-Count"
)

// ErrClosed is returned when a formatter is used after End.
var ErrClosed = errors.New("formatter already closed")

// Meta is the paging metadata of one response.
type Meta struct {
	// Items is the number of entries in this response.
	Items int
	// Total is the number of matching entries across all pages.
	Total int
}

// Options configure a formatter.
type Options struct {
	// Title heads HTML pages.
	Title string
	// Filename is the download name without extension (CSV/TSV).
	Filename string
	// UseLabels writes resolved labels instead of field keys in the CSV/TSV header.
	UseLabels bool
	// BOM prefixes CSV/TSV output with a UTF-8 byte order mark.
	BOM bool
	// Fragment renders HTML without the surrounding document.
	Fragment bool
}

// Formatter streams one response. Begin must be called once before any Row;
// End flushes and closes the formatter.
type Formatter interface {
	Begin(h http.Header, meta Meta) error
	Row(cells []render.Cell) error
	End() error
}

// New returns the formatter of f writing to w.
func New(f view.Format, w io.Writer, opts Options) (Formatter, error) {
	switch f {
	case view.FormatHTML:
		return newHTML(w, opts), nil
	case view.FormatJSON:
		return newJSON(w), nil
	case view.FormatCSV:
		return NewDelimited(w, ',', f, opts), nil
	case view.FormatTSV:
		return NewDelimited(w, '\t', f, opts), nil
	default:
		return nil, fmt.Errorf("unsupported format %q", f)
	}
}

// ContentType returns the media type of f.
func ContentType(f view.Format) string {
	switch f {
	case view.FormatHTML:
		return "text/html; charset=utf-8"
	case view.FormatJSON:
		return "application/json"
	case view.FormatCSV:
		return "text/csv; charset=utf-8"
	case view.FormatTSV:
		return "text/tab-separated-values; charset=utf-8"
	default:
		return "application/octet-stream"
	}
}

// setMeta writes the shared response headers.
func setMeta(h http.Header, f view.Format, meta Meta) {
	if h == nil {
		return
	}
	h.Set("Content-Type", ContentType(f))
	h.Set(HeaderItemCount, strconv.Itoa(meta.Items))
	h.Set(HeaderTotalCount, strconv.Itoa(meta.Total))
}

// ContentDisposition returns the attachment header value for name.ext.
func ContentDisposition(name string, f view.Format) string {
	if name == "" {
		name = "entries"
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": name + "." + string(f)})
}
