package render

import (
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
)

// BusinessHours is one opening interval of a business_hours field.
type BusinessHours struct {
	Day   string `json:"day"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

// table is a decoded list field with named columns.
type table struct {
	columns []string
	rows    []map[string]string
}

// decodeStrings reads a JSON string array. A value that is not an array is a
// single item, so plain single uploads and legacy scalar choices still render.
func decodeStrings(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if !strings.HasPrefix(raw, "[") {
		return []string{raw}, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode string list: %w", err)
	}
	return out, nil
}

// decodeList reads a list field: either a JSON array of strings or an array
// of objects (multi-column list). Each row contributes its keys in sorted order;
// columns keep the order in which keys first appear.
func decodeList(raw string) ([]string, *table, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, nil, fmt.Errorf("decode list: %w", err)
	}
	if len(items) == 0 {
		return []string{}, nil, nil
	}
	if strings.HasPrefix(strings.TrimSpace(string(items[0])), "{") {
		t := &table{}
		seen := make(map[string]bool)
		for i, it := range items {
			var row map[string]any
			if err := json.Unmarshal(it, &row); err != nil {
				return nil, nil, fmt.Errorf("decode list row %d: %w", i, err)
			}
			keys := make([]string, 0, len(row))
			for k := range row {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			flat := make(map[string]string, len(row))
			for _, k := range keys {
				if !seen[k] {
					seen[k] = true
					t.columns = append(t.columns, k)
				}
				flat[k] = scalarString(row[k])
			}
			t.rows = append(t.rows, flat)
		}
		return nil, t, nil
	}
	out := make([]string, 0, len(items))
	for i, it := range items {
		var v any
		if err := json.Unmarshal(it, &v); err != nil {
			return nil, nil, fmt.Errorf("decode list item %d: %w", i, err)
		}
		out = append(out, scalarString(v))
	}
	return out, nil, nil
}

func decodeBusinessHours(raw string) ([]BusinessHours, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var out []BusinessHours
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("decode business hours: %w", err)
	}
	for i, h := range out {
		if h.Day == "" {
			return nil, fmt.Errorf("decode business hours: interval %d has no day", i)
		}
	}
	return out, nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64, bool:
		return fmt.Sprint(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func (t *table) flat() string {
	rows := make([]string, 0, len(t.rows))
	for _, r := range t.rows {
		cells := make([]string, 0, len(t.columns))
		for _, c := range t.columns {
			cells = append(cells, r[c])
		}
		rows = append(rows, strings.Join(cells, " | "))
	}
	return strings.Join(rows, "; ")
}

func hoursFlat(hours []BusinessHours) string {
	parts := make([]string, 0, len(hours))
	for _, h := range hours {
		parts = append(parts, fmt.Sprintf("%s %s-%s", h.Day, h.Open, h.Close))
	}
	return strings.Join(parts, "; ")
}

// fileName returns the last path element of an upload URL.
func fileName(u string) string {
	if i := strings.IndexAny(u, "?#"); i >= 0 {
		u = u[:i]
	}
	name := path.Base(u)
	if name == "." || name == "/" {
		return u
	}
	return name
}
