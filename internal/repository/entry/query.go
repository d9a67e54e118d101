package entry

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/entrydex/internal/db"
	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	domentry "github.com/kailas-cloud/entrydex/internal/domain/entry"
)

// buildQuery translates criteria into an FT.SEARCH query over a form index.
// indexed reports whether a field id is part of the index schema. The second
// return is false when the criteria cannot match any entry.
func buildQuery(c criteria.SearchCriteria, indexed func(string) bool) (string, bool) {
	parts := []string{"@" + attrStatus + ":{" + string(domentry.StatusActive) + "}"}
	if c.ApprovedOnly() {
		parts = append(parts, "@"+attrApproved+":{1}")
	}
	if c.StartDate() != nil || c.EndDate() != nil {
		lo, hi := "-inf", "+inf"
		if s := c.StartDate(); s != nil {
			lo = strconv.FormatInt(s.Unix(), 10)
		}
		if e := c.EndDate(); e != nil {
			hi = strconv.FormatInt(e.Unix(), 10)
		}
		parts = append(parts, fmt.Sprintf("@%s:[%s %s]", attrDateCreated, lo, hi))
	}

	filters := c.Filters()
	clauses := make([]string, 0, len(filters))
	for _, f := range filters {
		clause, ok := buildClause(f, c.Mode(), indexed)
		if !ok {
			if c.Mode() == criteria.ModeAll {
				return "", false
			}
			continue
		}
		clauses = append(clauses, clause)
	}

	switch {
	case len(filters) == 0:
	case len(clauses) == 0:
		return "", false
	case c.Mode() == criteria.ModeAll:
		parts = append(parts, clauses...)
	default:
		parts = append(parts, "("+strings.Join(clauses, " | ")+")")
	}
	return strings.Join(parts, " "), true
}

func buildClause(f criteria.FieldFilter, mode criteria.Mode, indexed func(string) bool) (string, bool) {
	key := f.Key()

	switch key {
	case criteria.KeySearchAll:
		return fullTextClause(f.Terms(), mode)
	case criteria.KeyEntryID, "id":
		n, err := strconv.ParseUint(f.Value(), 10, 64)
		if err != nil || f.Operator() != criteria.OpIs {
			return "", false
		}
		return fmt.Sprintf("@%s:[%d %d]", attrID, n, n), true
	}
	if attr, ok := metaTags[key]; ok {
		if f.Operator() != criteria.OpIs {
			return "", false
		}
		return "@" + attr + ":{" + db.EscapeTag(f.Value()) + "}", true
	}
	if !indexed(key) {
		return "", false
	}

	switch f.Operator() {
	case criteria.OpIs:
		return "@" + alias(key) + ":{" + db.EscapeTag(f.Value()) + "}", true

	case criteria.OpIn:
		vals := make([]string, len(f.Values()))
		for i, v := range f.Values() {
			vals[i] = db.EscapeTag(v)
		}
		return "@" + alias(key) + ":{" + strings.Join(vals, " | ") + "}", true

	case criteria.OpContains:
		words := strings.Fields(f.Value())
		if len(words) == 0 {
			return "", false
		}
		for i, w := range words {
			words[i] = "*" + db.EscapeText(w) + "*"
		}
		return "@" + textAlias(key) + ":(" + strings.Join(words, " ") + ")", true

	case criteria.OpGTE, criteria.OpLTE:
		n, ok := domentry.NumericValue(f.Value())
		if !ok {
			return "", false
		}
		bound := strconv.FormatFloat(n, 'f', -1, 64)
		if f.Operator() == criteria.OpGTE {
			return fmt.Sprintf("@%s:[%s +inf]", numAlias(key), bound), true
		}
		return fmt.Sprintf("@%s:[-inf %s]", numAlias(key), bound), true

	case criteria.OpFullText:
		return fullTextClause(f.Terms(), mode)

	case criteria.OpWithin:
		g := f.Geo()
		if g == nil {
			return "", false
		}
		return fmt.Sprintf("@%s:[%g %g %g km]", geoAlias(key), g.Lng, g.Lat, g.RadiusKm), true
	}
	return "", false
}

// fullTextClause matches terms against the concatenated field values. Single
// words match as infixes; phrases match exactly.
func fullTextClause(terms []string, mode criteria.Mode) (string, bool) {
	if len(terms) == 0 {
		return "", false
	}
	parts := make([]string, len(terms))
	for i, t := range terms {
		words := strings.Fields(t)
		if len(words) == 1 {
			parts[i] = "*" + db.EscapeText(t) + "*"
			continue
		}
		for j, w := range words {
			words[j] = db.EscapeText(w)
		}
		parts[i] = `"` + strings.Join(words, " ") + `"`
	}
	sep := " | "
	if mode == criteria.ModeAll {
		sep = " "
	}
	return "@" + attrContent + ":(" + strings.Join(parts, sep) + ")", true
}

// sortAttr maps a sort key to a SORTABLE attribute.
func sortAttr(field string, indexed func(string) bool) (string, bool) {
	switch field {
	case "id", criteria.KeyEntryID:
		return attrID, true
	case "date_created", criteria.KeyEntryDate:
		return attrDateCreated, true
	}
	if indexed(field) {
		return textAlias(field), true
	}
	return "", false
}
