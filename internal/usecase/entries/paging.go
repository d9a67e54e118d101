package entries

import (
	"strings"

	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
)

// Sort keys accepted for every view in addition to display field ids.
var metaSortKeys = map[string]bool{"id": true, "date_created": true}

// pageSize picks the requested limit, then the view page size, then the
// service default, clamped to the service maximum.
func (s *Service) pageSize(v view.View, limit int) int {
	size := limit
	if size <= 0 {
		size = v.Settings().PageSize
	}
	if size <= 0 {
		size = s.cfg.DefaultPageSize
	}
	if s.cfg.MaxPageSize > 0 && (size <= 0 || size > s.cfg.MaxPageSize) {
		size = s.cfg.MaxPageSize
	}
	return size
}

// resolveSort honors the requested sort when the view allows it and the key
// is sortable, else falls back to the view default.
func resolveSort(v view.View, key, dir string) (criteria.Sort, bool) {
	st := v.Settings()
	if key != "" && st.SortOverridable && (metaSortKeys[key] || v.Fields().Contains(key)) {
		d := criteria.Asc
		if strings.EqualFold(dir, string(criteria.Desc)) {
			d = criteria.Desc
		}
		return criteria.Sort{Field: key, Direction: d}, true
	}
	if st.DefaultSort != nil {
		return *st.DefaultSort, true
	}
	return criteria.Sort{}, false
}
