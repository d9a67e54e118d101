// Package criteria defines the compiled, store-agnostic entry query.
package criteria

import (
	"fmt"
	"strings"
	"time"
)

// Mode combines field filters.
type Mode string

const (
	// ModeAny matches entries satisfying at least one filter.
	ModeAny Mode = "any"
	// ModeAll matches entries satisfying every filter.
	ModeAll Mode = "all"
)

// IsValid checks if the mode is supported.
func (m Mode) IsValid() bool {
	return m == ModeAny || m == ModeAll
}

// Operator is the comparison applied by a FieldFilter.
type Operator string

// Supported operators.
const (
	OpIs       Operator = "is"
	OpContains Operator = "contains"
	OpIn       Operator = "in"
	OpGTE      Operator = ">="
	OpLTE      Operator = "<="
	OpFullText Operator = "fulltext"
	OpWithin   Operator = "within"
)

// Synthetic filter keys that do not address a stored field value.
const (
	KeySearchAll = "search_all"
	KeyEntryID   = "entry_id"
	KeyEntryDate = "entry_date"
)

// GeoRadius is a circle around a point, radius in kilometers.
type GeoRadius struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// FieldFilter is a single {key, operator, value} clause.
type FieldFilter struct {
	key      string
	operator Operator
	value    string
	values   []string
	geo      *GeoRadius
}

// NewFilter creates a scalar filter (is, contains, >=, <=, fulltext).
func NewFilter(key string, op Operator, value string) (FieldFilter, error) {
	if key == "" {
		return FieldFilter{}, fmt.Errorf("filter key is required")
	}
	switch op {
	case OpIs, OpContains, OpGTE, OpLTE, OpFullText:
	default:
		return FieldFilter{}, fmt.Errorf("operator %q is not scalar", op)
	}
	if strings.TrimSpace(value) == "" {
		return FieldFilter{}, fmt.Errorf("value is required for key %q", key)
	}
	return FieldFilter{key: key, operator: op, value: value}, nil
}

// NewInFilter creates a membership filter over a non-empty value list.
func NewInFilter(key string, values []string) (FieldFilter, error) {
	if key == "" {
		return FieldFilter{}, fmt.Errorf("filter key is required")
	}
	if len(values) == 0 {
		return FieldFilter{}, fmt.Errorf("at least one value is required for key %q", key)
	}
	cp := make([]string, len(values))
	copy(cp, values)
	return FieldFilter{key: key, operator: OpIn, values: cp}, nil
}

// NewGeoFilter creates a radius filter. Latitude must be within [-90, 90],
// longitude within [-180, 180] and the radius positive.
func NewGeoFilter(key string, g GeoRadius) (FieldFilter, error) {
	if key == "" {
		return FieldFilter{}, fmt.Errorf("filter key is required")
	}
	if g.Lat < -90 || g.Lat > 90 {
		return FieldFilter{}, fmt.Errorf("latitude %v out of range", g.Lat)
	}
	if g.Lng < -180 || g.Lng > 180 {
		return FieldFilter{}, fmt.Errorf("longitude %v out of range", g.Lng)
	}
	if g.RadiusKm <= 0 {
		return FieldFilter{}, fmt.Errorf("radius must be positive")
	}
	return FieldFilter{key: key, operator: OpWithin, geo: &g}, nil
}

// Key returns the filtered field key.
func (f FieldFilter) Key() string { return f.key }

// Operator returns the comparison operator.
func (f FieldFilter) Operator() Operator { return f.operator }

// Value returns the scalar operand.
func (f FieldFilter) Value() string { return f.value }

// Values returns the operand list of an "in" filter.
func (f FieldFilter) Values() []string { return f.values }

// Geo returns the radius operand of a "within" filter.
func (f FieldFilter) Geo() *GeoRadius { return f.geo }

// Terms splits a full-text value into search terms.
func (f FieldFilter) Terms() []string { return Terms(f.value) }

// Terms splits s on whitespace, keeping double-quoted phrases whole.
func Terms(s string) []string {
	var (
		terms  []string
		cur    strings.Builder
		quoted bool
	)
	flush := func() {
		if t := strings.TrimSpace(cur.String()); t != "" {
			terms = append(terms, t)
		}
		cur.Reset()
	}
	for _, r := range s {
		switch {
		case r == '"':
			flush()
			quoted = !quoted
		case !quoted && (r == ' ' || r == '\t' || r == '\n' || r == '\r'):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return terms
}

// Direction orders results.
type Direction string

const (
	// Asc sorts ascending.
	Asc Direction = "asc"
	// Desc sorts descending.
	Desc Direction = "desc"
)

// Sort names the ordering field.
type Sort struct {
	Field     string
	Direction Direction
}

// Paging selects a page. PageSize 0 means no limit.
type Paging struct {
	Page     int
	PageSize int
}

// Offset returns the zero-based index of the first entry on the page.
func (p Paging) Offset() int {
	if p.Page <= 1 || p.PageSize == 0 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// SearchCriteria is the compiled query handed to the entry store.
type SearchCriteria struct {
	filters      []FieldFilter
	mode         Mode
	start        *time.Time
	end          *time.Time
	paging       Paging
	sort         *Sort
	approvedOnly bool
	formID       string
}

// New validates and creates SearchCriteria.
func New(filters []FieldFilter, mode Mode, paging Paging) (SearchCriteria, error) {
	if mode == "" {
		mode = ModeAny
	}
	if !mode.IsValid() {
		return SearchCriteria{}, fmt.Errorf("invalid match mode %q", mode)
	}
	if paging.Page < 1 {
		paging.Page = 1
	}
	if paging.PageSize < 0 {
		return SearchCriteria{}, fmt.Errorf("page size must be non-negative")
	}
	cp := make([]FieldFilter, len(filters))
	copy(cp, filters)
	return SearchCriteria{filters: cp, mode: mode, paging: paging}, nil
}

// WithDateRange returns a copy bounded by entry creation date.
func (c SearchCriteria) WithDateRange(start, end *time.Time) SearchCriteria {
	c.start, c.end = start, end
	return c
}

// WithSort returns a copy ordered by s.
func (c SearchCriteria) WithSort(s Sort) SearchCriteria {
	c.sort = &s
	return c
}

// WithPaging returns a copy with different paging.
func (c SearchCriteria) WithPaging(p Paging) SearchCriteria {
	if p.Page < 1 {
		p.Page = 1
	}
	c.paging = p
	return c
}

// WithApprovedOnly returns a copy restricted to approved entries.
func (c SearchCriteria) WithApprovedOnly(v bool) SearchCriteria {
	c.approvedOnly = v
	return c
}

// Filters returns the field filters.
func (c SearchCriteria) Filters() []FieldFilter { return c.filters }

// Mode returns the match mode.
func (c SearchCriteria) Mode() Mode { return c.mode }

// StartDate returns the inclusive lower creation-date bound.
func (c SearchCriteria) StartDate() *time.Time { return c.start }

// EndDate returns the inclusive upper creation-date bound.
func (c SearchCriteria) EndDate() *time.Time { return c.end }

// Paging returns the requested page.
func (c SearchCriteria) Paging() Paging { return c.paging }

// Sort returns the ordering, nil for store default.
func (c SearchCriteria) Sort() *Sort { return c.sort }

// ApprovedOnly reports whether unapproved entries are excluded.
func (c SearchCriteria) ApprovedOnly() bool { return c.approvedOnly }

// WithForm returns a copy scoped to the entries of one form.
func (c SearchCriteria) WithForm(formID string) SearchCriteria {
	c.formID = formID
	return c
}

// FormID returns the form the criteria select from.
func (c SearchCriteria) FormID() string { return c.formID }

// HasFilter reports whether any filter addresses key.
func (c SearchCriteria) HasFilter(key string) bool {
	for _, f := range c.filters {
		if f.key == key {
			return true
		}
	}
	return false
}
