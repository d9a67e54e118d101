package entry

import (
	"testing"
	"time"

	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
)

func mustFilter(t *testing.T, key string, op criteria.Operator, value string) criteria.FieldFilter {
	t.Helper()
	f, err := criteria.NewFilter(key, op, value)
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func mustCriteria(t *testing.T, mode criteria.Mode, filters ...criteria.FieldFilter) criteria.SearchCriteria {
	t.Helper()
	c, err := criteria.New(filters, mode, criteria.Paging{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	return c.WithForm("3")
}

func TestBuildQuery(t *testing.T) {
	in, err := criteria.NewInFilter("4.1", []string{"vip", "new"})
	if err != nil {
		t.Fatal(err)
	}
	geo, err := criteria.NewGeoFilter("5", criteria.GeoRadius{Lat: 59.9, Lng: 10.7, RadiusKm: 5})
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		c    criteria.SearchCriteria
		want string
	}{
		{"no filters", mustCriteria(t, criteria.ModeAny), "@__status:{active}"},
		{
			"approved only, all mode",
			mustCriteria(t, criteria.ModeAll, mustFilter(t, "2", criteria.OpIs, "Oslo")).WithApprovedOnly(true),
			"@__status:{active} @__is_approved:{1} @f_2:{Oslo}",
		},
		{
			"any mode groups clauses",
			mustCriteria(t, criteria.ModeAny,
				mustFilter(t, "1", criteria.OpContains, "Clara"),
				mustFilter(t, "2", criteria.OpIs, "Rome"),
			),
			"@__status:{active} (@f_1_text:(*Clara*) | @f_2:{Rome})",
		},
		{
			"search all any mode",
			mustCriteria(t, criteria.ModeAny, mustFilter(t, criteria.KeySearchAll, criteria.OpFullText, "Clara training")),
			"@__status:{active} (@__content:(*Clara* | *training*))",
		},
		{
			"search all phrase all mode",
			mustCriteria(t, criteria.ModeAll, mustFilter(t, criteria.KeySearchAll, criteria.OpFullText, `"new york" oslo`)),
			`@__status:{active} @__content:("new york" *oslo*)`,
		},
		{
			"entry id",
			mustCriteria(t, criteria.ModeAll, mustFilter(t, criteria.KeyEntryID, criteria.OpIs, "7")),
			"@__status:{active} @__id:[7 7]",
		},
		{"in", mustCriteria(t, criteria.ModeAll, in), "@__status:{active} @f_4_1:{vip | new}"},
		{
			"date lower bound",
			mustCriteria(t, criteria.ModeAll, mustFilter(t, "2", criteria.OpGTE, "2024-02-01")),
			"@__status:{active} @f_2_num:[1706745600 +inf]",
		},
		{
			"number upper bound",
			mustCriteria(t, criteria.ModeAll, mustFilter(t, "1", criteria.OpLTE, "9.5")),
			"@__status:{active} @f_1_num:[-inf 9.5]",
		},
		{"within", mustCriteria(t, criteria.ModeAll, geo), "@__status:{active} @f_5_geo:[10.7 59.9 5 km]"},
		{
			"entry date range",
			mustCriteria(t, criteria.ModeAny).WithDateRange(&start, nil),
			"@__status:{active} @__date_created:[1706745600 +inf]",
		},
		{
			"meta flag",
			mustCriteria(t, criteria.ModeAll, mustFilter(t, "is_starred", criteria.OpIs, "1")),
			"@__status:{active} @__is_starred:{1}",
		},
		{
			"escaped tag",
			mustCriteria(t, criteria.ModeAll, mustFilter(t, "2", criteria.OpIs, "New York")),
			`@__status:{active} @f_2:{New\ York}`,
		},
		{
			"unindexed clause dropped in any mode",
			mustCriteria(t, criteria.ModeAny,
				mustFilter(t, "99", criteria.OpIs, "x"),
				mustFilter(t, "2", criteria.OpIs, "Oslo"),
			),
			"@__status:{active} (@f_2:{Oslo})",
		},
	}

	indexed := func(id string) bool { return id == "1" || id == "2" || id == "4.1" || id == "5" }
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := buildQuery(tt.c, indexed)
			if !ok {
				t.Fatal("expected a matchable query")
			}
			if got != tt.want {
				t.Errorf("query = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuildQuery_Unmatchable(t *testing.T) {
	indexed := func(id string) bool { return id == "2" }
	tests := []struct {
		name string
		c    criteria.SearchCriteria
	}{
		{"unindexed in all mode", mustCriteria(t, criteria.ModeAll,
			mustFilter(t, "99", criteria.OpIs, "x"),
			mustFilter(t, "2", criteria.OpIs, "Oslo"),
		)},
		{"only unindexed in any mode", mustCriteria(t, criteria.ModeAny, mustFilter(t, "99", criteria.OpIs, "x"))},
		{"non numeric bound", mustCriteria(t, criteria.ModeAll, mustFilter(t, "2", criteria.OpGTE, "soon"))},
		{"non numeric entry id", mustCriteria(t, criteria.ModeAll, mustFilter(t, criteria.KeyEntryID, criteria.OpIs, "x"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if q, ok := buildQuery(tt.c, indexed); ok {
				t.Errorf("expected no query, got %q", q)
			}
		})
	}
}

func TestSortAttr(t *testing.T) {
	indexed := func(id string) bool { return id == "1" }
	tests := []struct {
		field  string
		want   string
		wantOK bool
	}{
		{"id", "__id", true},
		{"date_created", "__date_created", true},
		{"1", "f_1_text", true},
		{"99", "", false},
	}
	for _, tt := range tests {
		got, ok := sortAttr(tt.field, indexed)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("sortAttr(%q) = %q, %v; want %q, %v", tt.field, got, ok, tt.want, tt.wantOK)
		}
	}
}
