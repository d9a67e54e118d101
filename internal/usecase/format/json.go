package format

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/kailas-cloud/entrydex/internal/domain/view"
	"github.com/kailas-cloud/entrydex/internal/usecase/render"
)

// jsonFormatter streams {"entries":[...],"total":N}. Row objects keep field order.
type jsonFormatter struct {
	w      *bufio.Writer
	total  int
	rows   int
	begun  bool
	closed bool
}

func newJSON(w io.Writer) *jsonFormatter {
	return &jsonFormatter{w: bufio.NewWriter(w)}
}

func (j *jsonFormatter) Begin(h http.Header, meta Meta) error {
	if j.begun {
		return fmt.Errorf("begin json: formatter already started")
	}
	j.begun = true
	j.total = meta.Total
	setMeta(h, view.FormatJSON, meta)
	_, err := j.w.WriteString(`{"entries":[`)
	return err
}

func (j *jsonFormatter) Row(cells []render.Cell) error {
	if !j.begun {
		return fmt.Errorf("write json row: Begin not called")
	}
	if j.closed {
		return ErrClosed
	}
	if j.rows > 0 {
		if err := j.w.WriteByte(','); err != nil {
			return err
		}
	}
	j.rows++
	if err := j.w.WriteByte('{'); err != nil {
		return err
	}
	for i, c := range cells {
		if i > 0 {
			if err := j.w.WriteByte(','); err != nil {
				return err
			}
		}
		key, err := json.Marshal(c.Key)
		if err != nil {
			return fmt.Errorf("encode key %q: %w", c.Key, err)
		}
		val, err := json.Marshal(c.Value)
		if err != nil {
			return fmt.Errorf("encode field %q: %w", c.Key, err)
		}
		if _, err := j.w.Write(key); err != nil {
			return err
		}
		if err := j.w.WriteByte(':'); err != nil {
			return err
		}
		if _, err := j.w.Write(val); err != nil {
			return err
		}
	}
	return j.w.WriteByte('}')
}

func (j *jsonFormatter) End() error {
	if j.closed {
		return nil
	}
	if !j.begun {
		return fmt.Errorf("end json: Begin not called")
	}
	j.closed = true
	if _, err := j.w.WriteString(`],"total":` + strconv.Itoa(j.total) + "}\n"); err != nil {
		return err
	}
	return j.w.Flush()
}
