// Package memory is an in-process entry store with the same matching
// semantics as the Redis repository.
package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kailas-cloud/entrydex/internal/domain"
	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	"github.com/kailas-cloud/entrydex/internal/domain/entry"
)

// Store holds entries per form, keyed by entry id.
type Store struct {
	mu    sync.RWMutex
	forms map[string]map[string]entry.Entry
}

// New creates a Store seeded with entries.
func New(entries ...entry.Entry) *Store {
	s := &Store{forms: make(map[string]map[string]entry.Entry)}
	s.put(entries)
	return s
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Upsert stores or replaces entries.
func (s *Store) Upsert(_ context.Context, entries []entry.Entry) error {
	s.put(entries)
	return nil
}

func (s *Store) put(entries []entry.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, en := range entries {
		form, ok := s.forms[en.FormID()]
		if !ok {
			form = make(map[string]entry.Entry)
			s.forms[en.FormID()] = form
		}
		form[en.ID()] = en
	}
}

// Delete removes one entry. Missing entries are ignored.
func (s *Store) Delete(_ context.Context, formID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.forms[formID], id)
	return nil
}

// Get returns one entry of a form regardless of status.
func (s *Store) Get(_ context.Context, formID, id string) (entry.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	en, ok := s.forms[formID][id]
	if !ok {
		return entry.Entry{}, domain.ErrNotFound
	}
	return en, nil
}

// Query returns one page of active entries matching c. A page size of 0
// returns every match.
func (s *Store) Query(_ context.Context, c criteria.SearchCriteria) (entry.Page, error) {
	if c.FormID() == "" {
		return entry.Page{}, errors.New("criteria carry no form id")
	}

	s.mu.RLock()
	matched := make([]entry.Entry, 0, len(s.forms[c.FormID()]))
	for _, en := range s.forms[c.FormID()] {
		if matches(en, c) {
			matched = append(matched, en)
		}
	}
	s.mu.RUnlock()

	sortEntries(matched, c.Sort())

	total := len(matched)
	p := c.Paging()
	if p.PageSize == 0 {
		return entry.Page{Entries: matched, Total: total}, nil
	}
	lo := min(p.Offset(), total)
	hi := min(lo+p.PageSize, total)
	return entry.Page{Entries: matched[lo:hi], Total: total}, nil
}

// Count returns the number of active entries of a form.
func (s *Store) Count(_ context.Context, formID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, en := range s.forms[formID] {
		if en.Status() == entry.StatusActive {
			n++
		}
	}
	return n, nil
}

// DistinctValues lists the sorted distinct values of a field across active
// entries. List values contribute each element.
func (s *Store) DistinctValues(_ context.Context, formID, field string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	for _, en := range s.forms[formID] {
		if en.Status() != entry.StatusActive {
			continue
		}
		v, ok := en.Value(field)
		if !ok || v == "" {
			continue
		}
		for _, e := range entry.ListValues(v) {
			seen[e] = true
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out, nil
}

func matches(en entry.Entry, c criteria.SearchCriteria) bool {
	if en.Status() != entry.StatusActive {
		return false
	}
	if c.ApprovedOnly() && !en.IsApproved() {
		return false
	}
	if st := c.StartDate(); st != nil && en.DateCreated().Before(*st) {
		return false
	}
	if e := c.EndDate(); e != nil && en.DateCreated().After(*e) {
		return false
	}

	filters := c.Filters()
	if len(filters) == 0 {
		return true
	}
	all := c.Mode() == criteria.ModeAll
	for _, f := range filters {
		ok := matchFilter(en, f, all)
		if all && !ok {
			return false
		}
		if !all && ok {
			return true
		}
	}
	return all
}

func matchFilter(en entry.Entry, f criteria.FieldFilter, all bool) bool {
	switch f.Key() {
	case criteria.KeySearchAll:
		return matchFullText(en, f.Terms(), all)
	case criteria.KeyEntryID:
		return f.Operator() == criteria.OpIs && en.ID() == f.Value()
	}

	v, ok := en.Value(f.Key())
	if !ok || v == "" {
		return false
	}

	switch f.Operator() {
	case criteria.OpIs:
		for _, e := range entry.ListValues(v) {
			if e == f.Value() {
				return true
			}
		}
	case criteria.OpIn:
		for _, e := range entry.ListValues(v) {
			for _, want := range f.Values() {
				if e == want {
					return true
				}
			}
		}
	case criteria.OpContains:
		lv := strings.ToLower(v)
		for _, w := range strings.Fields(f.Value()) {
			if !strings.Contains(lv, strings.ToLower(w)) {
				return false
			}
		}
		return true
	case criteria.OpGTE, criteria.OpLTE:
		got, ok1 := entry.NumericValue(v)
		bound, ok2 := entry.NumericValue(f.Value())
		if !ok1 || !ok2 {
			return false
		}
		if f.Operator() == criteria.OpGTE {
			return got >= bound
		}
		return got <= bound
	case criteria.OpFullText:
		return matchFullText(en, f.Terms(), all)
	case criteria.OpWithin:
		g := f.Geo()
		lat, lng, ok := entry.GeoValue(v)
		return ok && g != nil && haversineKm(lat, lng, g.Lat, g.Lng) <= g.RadiusKm
	}
	return false
}

// matchFullText checks terms against every field value, case-insensitively.
func matchFullText(en entry.Entry, terms []string, all bool) bool {
	if len(terms) == 0 {
		return false
	}
	values := make([]string, 0, len(en.Fields()))
	for _, v := range en.Fields() {
		values = append(values, strings.ToLower(v))
	}
	for _, t := range terms {
		t = strings.ToLower(t)
		hit := false
		for _, v := range values {
			if strings.Contains(v, t) {
				hit = true
				break
			}
		}
		if all && !hit {
			return false
		}
		if !all && hit {
			return true
		}
	}
	return all
}

// sortEntries orders by the sort key, then by numeric id. Without a sort key
// entries come back in id order.
func sortEntries(entries []entry.Entry, s *criteria.Sort) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if s != nil {
			if c := compareBy(a, b, s.Field); c != 0 {
				if s.Direction == criteria.Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return idNum(a) < idNum(b)
	})
}

func compareBy(a, b entry.Entry, field string) int {
	switch field {
	case "id", criteria.KeyEntryID:
		return cmpFloat(float64(idNum(a)), float64(idNum(b)))
	case "date_created", criteria.KeyEntryDate:
		return a.DateCreated().Compare(b.DateCreated())
	}
	av, _ := a.Value(field)
	bv, _ := b.Value(field)
	return strings.Compare(av, bv)
}

func cmpFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func idNum(en entry.Entry) uint64 {
	n, _ := strconv.ParseUint(en.ID(), 10, 64)
	return n
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	rad := math.Pi / 180
	dLat := (lat2 - lat1) * rad
	dLng := (lng2 - lng1) * rad
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*rad)*math.Cos(lat2*rad)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}
