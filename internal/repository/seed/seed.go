// Package seed reads entries from the JSON interchange file used by
// `entrydex import` and the memory driver.
package seed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kailas-cloud/entrydex/internal/domain/entry"
)

// DateLayout is the stored date_created layout (UTC).
const DateLayout = "2006-01-02 15:04:05"

type record struct {
	ID          json.Number                `json:"id"`
	FormID      json.Number                `json:"form_id"`
	Status      string                     `json:"status"`
	IsApproved  bool                       `json:"is_approved"`
	IsStarred   bool                       `json:"is_starred"`
	IsRead      bool                       `json:"is_read"`
	DateCreated string                     `json:"date_created"`
	Fields      map[string]json.RawMessage `json:"fields"`
}

// ReadFile reads entries from a JSON file.
func ReadFile(path string) ([]entry.Entry, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return Read(f, "")
}

// Read decodes a JSON array of entries. A non-empty formID overrides the
// form of every record and is required when records omit form_id.
func Read(r io.Reader, formID string) ([]entry.Entry, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var records []record
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}

	out := make([]entry.Entry, 0, len(records))
	for i, rec := range records {
		en, err := rec.toEntry(formID)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		out = append(out, en)
	}
	return out, nil
}

func (rec record) toEntry(formID string) (entry.Entry, error) {
	if formID == "" {
		formID = rec.FormID.String()
	}
	created, err := parseDate(rec.DateCreated)
	if err != nil {
		return entry.Entry{}, err
	}
	fields := make(map[string]string, len(rec.Fields))
	for k, raw := range rec.Fields {
		fields[k] = fieldValue(raw)
	}
	//nolint:wrapcheck // entry.New names the offending entry
	return entry.New(rec.ID.String(), formID, entry.Meta{
		Status:      entry.Status(rec.Status),
		Approved:    rec.IsApproved,
		Starred:     rec.IsStarred,
		Read:        rec.IsRead,
		DateCreated: created,
	}, fields)
}

// fieldValue keeps strings as-is and stores any other JSON value in its
// compact encoding, so lists end up as JSON arrays.
func fieldValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation(DateLayout, s, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("date_created %q: want %q or RFC 3339", s, DateLayout)
	}
	return t.UTC(), nil
}
