package criteria

import (
	"reflect"
	"testing"
	"time"
)

func TestNewFilter_Validation(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		op      Operator
		value   string
		wantErr bool
	}{
		{"valid is", "name", OpIs, "Bob", false},
		{"valid fulltext", KeySearchAll, OpFullText, "Clara", false},
		{"empty key", "", OpIs, "Bob", true},
		{"whitespace value", "name", OpIs, "  ", true},
		{"in is not scalar", "name", OpIn, "a", true},
		{"within is not scalar", "loc", OpWithin, "a", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFilter(tt.key, tt.op, tt.value)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewFilter() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewInFilter(t *testing.T) {
	if _, err := NewInFilter("tags", nil); err == nil {
		t.Error("expected error for empty values")
	}
	in := []string{"a", "b"}
	f, err := NewInFilter("tags", in)
	if err != nil {
		t.Fatal(err)
	}
	in[0] = "z"
	if f.Values()[0] != "a" {
		t.Error("filter shares caller slice")
	}
	if f.Operator() != OpIn {
		t.Errorf("operator = %q", f.Operator())
	}
}

func TestNewGeoFilter(t *testing.T) {
	if _, err := NewGeoFilter("loc", GeoRadius{Lat: 91, Lng: 0, RadiusKm: 1}); err == nil {
		t.Error("expected latitude error")
	}
	if _, err := NewGeoFilter("loc", GeoRadius{Lat: 0, Lng: 181, RadiusKm: 1}); err == nil {
		t.Error("expected longitude error")
	}
	if _, err := NewGeoFilter("loc", GeoRadius{Lat: 0, Lng: 0}); err == nil {
		t.Error("expected radius error")
	}
	f, err := NewGeoFilter("loc", GeoRadius{Lat: 40.7, Lng: -74, RadiusKm: 5})
	if err != nil {
		t.Fatal(err)
	}
	if f.Geo().RadiusKm != 5 || f.Operator() != OpWithin {
		t.Errorf("unexpected filter %+v", f)
	}
}

func TestTerms(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Clara training", []string{"Clara", "training"}},
		{`  "Clara Thompson"  training `, []string{"Clara Thompson", "training"}},
		{`"unterminated phrase`, []string{"unterminated phrase"}},
		{"   ", nil},
		{"a\tb\nc", []string{"a", "b", "c"}},
	}
	for _, tt := range tests {
		if got := Terms(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Terms(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(nil, "", Paging{})
	if err != nil {
		t.Fatal(err)
	}
	if c.Mode() != ModeAny {
		t.Errorf("default mode = %q", c.Mode())
	}
	if c.Paging().Page != 1 {
		t.Errorf("page = %d", c.Paging().Page)
	}
	if c.Paging().PageSize != 0 {
		t.Errorf("page size must pass through, got %d", c.Paging().PageSize)
	}

	if _, err := New(nil, "some", Paging{}); err == nil {
		t.Error("expected invalid mode error")
	}
	if _, err := New(nil, ModeAll, Paging{PageSize: -1}); err == nil {
		t.Error("expected negative page size error")
	}
}

func TestSearchCriteria_CopyOnWrite(t *testing.T) {
	f, _ := NewFilter("name", OpIs, "Bob")
	base, _ := New([]FieldFilter{f}, ModeAll, Paging{Page: 2, PageSize: 10})
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	derived := base.WithApprovedOnly(true).
		WithSort(Sort{Field: "id", Direction: Desc}).
		WithDateRange(&start, nil)

	if base.ApprovedOnly() || base.Sort() != nil || base.StartDate() != nil {
		t.Error("base criteria mutated")
	}
	if !derived.ApprovedOnly() || derived.Sort().Direction != Desc || !derived.StartDate().Equal(start) {
		t.Errorf("derived criteria wrong: %+v", derived)
	}
	if !derived.HasFilter("name") || derived.HasFilter("city") {
		t.Error("HasFilter mismatch")
	}
}

func TestPaging_Offset(t *testing.T) {
	tests := []struct {
		p    Paging
		want int
	}{
		{Paging{Page: 1, PageSize: 25}, 0},
		{Paging{Page: 3, PageSize: 25}, 50},
		{Paging{Page: 3, PageSize: 0}, 0},
		{Paging{Page: 0, PageSize: 10}, 0},
	}
	for _, tt := range tests {
		if got := tt.p.Offset(); got != tt.want {
			t.Errorf("%+v.Offset() = %d, want %d", tt.p, got, tt.want)
		}
	}
}

func TestWithForm(t *testing.T) {
	base, err := New(nil, ModeAll, Paging{})
	if err != nil {
		t.Fatal(err)
	}
	scoped := base.WithForm("3")
	if base.FormID() != "" || scoped.FormID() != "3" {
		t.Errorf("FormID = %q / %q", base.FormID(), scoped.FormID())
	}
}
