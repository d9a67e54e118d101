// Package compiler turns a view's search bar plus raw request parameters into
// SearchCriteria. Only parameters that answer to a configured search field
// ever become filters.
package compiler

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	"github.com/kailas-cloud/entrydex/internal/domain/fieldtype"
	"github.com/kailas-cloud/entrydex/internal/domain/searchfield"
	"github.com/kailas-cloud/entrydex/internal/logger"
	"github.com/kailas-cloud/entrydex/internal/metrics"
)

// ModeParam is the request parameter selecting the match mode.
const ModeParam = "mode"

// Drop reasons reported to metrics and logs.
const (
	dropInvalidChoice = "invalid_choice"
	dropInvalidValue  = "invalid_value"
)

// dateLayouts are the accepted date input formats; output is always time.DateOnly.
var dateLayouts = []string{time.DateOnly, "01/02/2006", "2006/01/02", "02.01.2006"}

// Result is the compiled criteria plus the values bound to each definition,
// used to render the search bar back to the user.
type Result struct {
	Criteria criteria.SearchCriteria
	Bindings map[string]searchfield.Binding
}

// handler compiles one definition. It may append filters, set the entry date
// range and record a binding.
type handler func(s *state, d searchfield.Definition, desc fieldtype.Descriptor)

var handlers = map[fieldtype.Type]handler{
	fieldtype.Text:           containsHandler,
	fieldtype.Textarea:       containsHandler,
	fieldtype.Select:         isHandler,
	fieldtype.Radio:          isHandler,
	fieldtype.SingleCheckbox: isHandler,
	fieldtype.Hidden:         isHandler,
	fieldtype.Multiselect:    inHandler,
	fieldtype.Checkbox:       inHandler,
	fieldtype.Link:           linkHandler,
	fieldtype.Date:           dateHandler,
	fieldtype.DateRange:      dateRangeHandler,
	fieldtype.NumberRange:    numberRangeHandler,
	fieldtype.EntryID:        entryIDHandler,
	fieldtype.EntryDate:      entryDateHandler,
	fieldtype.GeoRadius:      geoHandler,
	fieldtype.SearchAll:      searchAllHandler,
	fieldtype.ChainedSelect:  chainedHandler,
}

type state struct {
	log      *zap.Logger
	params   params
	filters  []criteria.FieldFilter
	bindings map[string]searchfield.Binding
	start    *time.Time
	end      *time.Time
}

// Compile builds SearchCriteria from the collection and raw parameters.
// Parameters with no matching definition are ignored.
func Compile(
	ctx context.Context, col searchfield.Collection, raw url.Values, defaultMode criteria.Mode,
) (criteria.SearchCriteria, error) {
	res, err := CompileWithBindings(ctx, col, raw, defaultMode)
	if err != nil {
		return criteria.SearchCriteria{}, err
	}
	return res.Criteria, nil
}

// CompileWithBindings is Compile that also returns the per-definition bindings.
func CompileWithBindings(
	ctx context.Context, col searchfield.Collection, raw url.Values, defaultMode criteria.Mode,
) (Result, error) {
	s := &state{
		log:      logger.FromContext(ctx),
		params:   params(raw),
		bindings: make(map[string]searchfield.Binding),
	}

	for _, d := range col.Definitions() {
		desc, err := fieldtype.Describe(d.InputType())
		if err != nil {
			metrics.UnknownFieldTypesTotal.WithLabelValues(string(d.InputType())).Inc()
			s.log.Warn("Skipping search field",
				zap.String("field", d.Key()),
				zap.Error(err),
			)
			continue
		}
		h, ok := handlers[desc.Type]
		if !ok {
			s.log.Warn("No compile handler for search field type",
				zap.String("field", d.Key()),
				zap.String("type", string(desc.Type)),
			)
			continue
		}
		h(s, d, desc)
	}

	mode := defaultMode
	if col.ModeOverridable() {
		if m, ok := s.params.scalar(ModeParam); ok && criteria.Mode(m).IsValid() {
			mode = criteria.Mode(m)
		}
	}

	c, err := criteria.New(s.filters, mode, criteria.Paging{})
	if err != nil {
		return Result{}, err
	}
	return Result{Criteria: c.WithDateRange(s.start, s.end), Bindings: s.bindings}, nil
}

func (s *state) add(f criteria.FieldFilter, err error) {
	if err != nil {
		s.drop("", dropInvalidValue, err)
		return
	}
	s.filters = append(s.filters, f)
}

func (s *state) drop(key, reason string, err error) {
	metrics.FiltersDroppedTotal.WithLabelValues(reason).Inc()
	fields := []zap.Field{zap.String("reason", reason)}
	if key != "" {
		fields = append(fields, zap.String("field", key))
	}
	if err != nil {
		fields = append(fields, zap.Error(err))
	}
	s.log.Debug("Search parameter dropped", fields...)
}

func scalarOp(op criteria.Operator) handler {
	return func(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
		v, ok := s.params.scalar(names(d.Key(), desc.Aliases)...)
		if !ok {
			return
		}
		s.bindings[d.Key()] = searchfield.Binding{Value: v}
		s.add(criteria.NewFilter(d.Key(), op, v))
	}
}

var (
	containsHandler = scalarOp(criteria.OpContains)
	isHandler       = scalarOp(criteria.OpIs)
)

func searchAllHandler(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
	v, ok := s.params.scalar(names(d.Key(), desc.Aliases)...)
	if !ok {
		return
	}
	s.bindings[d.Key()] = searchfield.Binding{Value: v}
	if len(criteria.Terms(v)) == 0 {
		return
	}
	s.add(criteria.NewFilter(criteria.KeySearchAll, criteria.OpFullText, v))
}

func inHandler(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
	vals := s.params.list(names(d.Key(), desc.Aliases)...)
	if len(vals) == 0 {
		return
	}
	s.bindings[d.Key()] = searchfield.Binding{Values: vals}
	s.add(criteria.NewInFilter(d.Key(), vals))
}

func linkHandler(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
	v, ok := s.params.scalar(names(d.Key(), desc.Aliases)...)
	if !ok {
		return
	}
	if !d.HasChoice(v) {
		s.drop(d.Key(), dropInvalidChoice, nil)
		return
	}
	s.bindings[d.Key()] = searchfield.Binding{Value: v}
	s.add(criteria.NewFilter(d.Key(), criteria.OpIs, v))
}

func entryIDHandler(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
	v, ok := s.params.scalar(names(d.Key(), desc.Aliases)...)
	if !ok {
		return
	}
	s.bindings[d.Key()] = searchfield.Binding{Value: v}
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		s.drop(d.Key(), dropInvalidValue, err)
		return
	}
	s.add(criteria.NewFilter(criteria.KeyEntryID, criteria.OpIs, strconv.FormatUint(id, 10)))
}

func dateHandler(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
	v, ok := s.params.scalar(names(d.Key(), desc.Aliases)...)
	if !ok {
		return
	}
	s.bindings[d.Key()] = searchfield.Binding{Value: v}
	t, ok := parseDate(v)
	if !ok {
		s.drop(d.Key(), dropInvalidValue, nil)
		return
	}
	s.add(criteria.NewFilter(d.Key(), criteria.OpIs, t.Format(time.DateOnly)))
}

// rangeParts reads the structured parts of a range input. Registry aliases
// use underscore style (gv_start) instead of brackets.
func (s *state) rangeParts(d searchfield.Definition, desc fieldtype.Descriptor) map[string]string {
	base := names(d.Key(), nil)
	out := make(map[string]string, len(desc.Parts))
	for _, part := range desc.Parts {
		v, ok := s.params.part(base, part)
		if !ok {
			for _, a := range desc.Aliases {
				if v, ok = s.params.scalar(a + "_" + part); ok {
					break
				}
			}
		}
		if ok {
			out[part] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	s.bindings[d.Key()] = searchfield.Binding{Parts: out}
	return out
}

func dateRangeHandler(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
	parts := s.rangeParts(d, desc)
	if v, ok := parts["start"]; ok {
		if t, ok := parseDate(v); ok {
			s.add(criteria.NewFilter(d.Key(), criteria.OpGTE, t.Format(time.DateOnly)))
		} else {
			s.drop(d.Key(), dropInvalidValue, nil)
		}
	}
	if v, ok := parts["end"]; ok {
		if t, ok := parseDate(v); ok {
			s.add(criteria.NewFilter(d.Key(), criteria.OpLTE, t.Format(time.DateOnly)))
		} else {
			s.drop(d.Key(), dropInvalidValue, nil)
		}
	}
}

func numberRangeHandler(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
	parts := s.rangeParts(d, desc)
	bounds := []struct {
		part string
		op   criteria.Operator
	}{
		{"min", criteria.OpGTE},
		{"max", criteria.OpLTE},
	}
	for _, b := range bounds {
		v, ok := parts[b.part]
		if !ok {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.drop(d.Key(), dropInvalidValue, err)
			continue
		}
		s.add(criteria.NewFilter(d.Key(), b.op, strconv.FormatFloat(n, 'f', -1, 64)))
	}
}

// entryDateHandler bounds the entry creation date; it adds no field filter.
func entryDateHandler(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
	parts := s.rangeParts(d, desc)
	if v, ok := parts["start"]; ok {
		if t, ok := parseDate(v); ok {
			s.start = &t
		} else {
			s.drop(d.Key(), dropInvalidValue, nil)
		}
	}
	if v, ok := parts["end"]; ok {
		if t, ok := parseDate(v); ok {
			eod := t.Add(24*time.Hour - time.Second)
			s.end = &eod
		} else {
			s.drop(d.Key(), dropInvalidValue, nil)
		}
	}
}

func geoHandler(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
	parts := s.rangeParts(d, desc)
	if len(parts) == 0 {
		return
	}
	var g criteria.GeoRadius
	for part, dst := range map[string]*float64{"lat": &g.Lat, "lng": &g.Lng, "radius": &g.RadiusKm} {
		v, ok := parts[part]
		if !ok {
			s.drop(d.Key(), dropInvalidValue, nil)
			return
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.drop(d.Key(), dropInvalidValue, err)
			return
		}
		*dst = n
	}
	s.add(criteria.NewGeoFilter(d.Key(), g))
}

// chainedHandler emits one "is" filter per selected level, keyed <key>.<level>.
func chainedHandler(s *state, d searchfield.Definition, desc fieldtype.Descriptor) {
	lv := s.params.levels(names(d.Key(), desc.Aliases)...)
	if len(lv) == 0 {
		return
	}
	b := searchfield.Binding{Parts: make(map[string]string, len(lv))}
	for _, l := range sortedLevels(lv) {
		key := d.Key() + "." + strconv.Itoa(l)
		b.Parts[strconv.Itoa(l)] = lv[l]
		s.add(criteria.NewFilter(key, criteria.OpIs, lv[l]))
	}
	s.bindings[d.Key()] = b
}

func parseDate(v string) (time.Time, bool) {
	v = strings.TrimSpace(v)
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, v, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
