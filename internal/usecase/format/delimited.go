package format

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"

	"github.com/kailas-cloud/entrydex/internal/domain/view"
	"github.com/kailas-cloud/entrydex/internal/metrics"
	"github.com/kailas-cloud/entrydex/internal/usecase/render"
)

// bom is the UTF-8 byte order mark.
var bom = []byte{0xEF, 0xBB, 0xBF}

type delimitedState int

const (
	stateNew delimitedState = iota
	stateOpen
	stateRows
	stateClosed
)

// Delimited writes CSV or TSV rows as they arrive:
// open, header once, rows, flush, close.
type Delimited struct {
	w      io.Writer
	csv    *csv.Writer
	format view.Format
	opts   Options
	state  delimitedState
}

// NewDelimited creates a writer separating cells with comma.
func NewDelimited(w io.Writer, comma rune, f view.Format, opts Options) *Delimited {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	return &Delimited{w: w, csv: cw, format: f, opts: opts}
}

// Begin sets the download headers and writes the byte order mark.
func (d *Delimited) Begin(h http.Header, meta Meta) error {
	if d.state != stateNew {
		return fmt.Errorf("begin %s: formatter already started", d.format)
	}
	setMeta(h, d.format, meta)
	if h != nil {
		h.Set("Content-Disposition", ContentDisposition(d.opts.Filename, d.format))
	}
	d.state = stateOpen
	if d.opts.BOM {
		if _, err := d.w.Write(bom); err != nil {
			return fmt.Errorf("write bom: %w", err)
		}
	}
	return nil
}

// Row writes one entry. The first row also writes the header from its cells.
func (d *Delimited) Row(cells []render.Cell) error {
	switch d.state {
	case stateNew:
		return fmt.Errorf("write %s row: Begin not called", d.format)
	case stateClosed:
		return ErrClosed
	case stateOpen:
		header := make([]string, len(cells))
		for i, c := range cells {
			name := c.Key
			if d.opts.UseLabels {
				name = c.Label
			}
			header[i] = render.Sanitize(name)
		}
		if err := d.csv.Write(header); err != nil {
			return fmt.Errorf("write %s header: %w", d.format, err)
		}
		d.state = stateRows
	}

	record := make([]string, len(cells))
	for i, c := range cells {
		record[i] = render.Sanitize(cellString(c.Value))
	}
	if err := d.csv.Write(record); err != nil {
		return fmt.Errorf("write %s row: %w", d.format, err)
	}
	metrics.ExportRowsTotal.WithLabelValues(string(d.format)).Inc()
	return nil
}

// Flush pushes buffered rows to the underlying writer.
func (d *Delimited) Flush() error {
	d.csv.Flush()
	return d.csv.Error()
}

// End flushes and closes the writer. End is idempotent.
func (d *Delimited) End() error {
	if d.state == stateClosed {
		return nil
	}
	d.state = stateClosed
	if err := d.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", d.format, err)
	}
	return nil
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
