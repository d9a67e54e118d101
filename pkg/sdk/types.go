package entrydex

import (
	"net/http"
	"time"
)

// Format is an output format of the renderer.
type Format string

// Format constants.
const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// Display contexts accepted by ResolveOutputFields.
const (
	ContextDirectory = "directory"
	ContextSingle    = "single"
)

// Capability is a permission held by a principal.
type Capability string

// Capability constants.
const (
	CapEditViews      Capability = "edit_views"
	CapApproveEntries Capability = "approve_entries"
)

// Principal identifies the requester. The zero value is anonymous.
type Principal struct {
	ID           string
	Capabilities []Capability
}

// Requester carries everything access control looks at.
type Requester struct {
	Principal Principal
	Password  string // view password, when the view has one
	Embedded  bool   // rendered inside a host page
}

// EntryStatus is the lifecycle state of an entry.
type EntryStatus string

// Entry status constants.
const (
	StatusActive EntryStatus = "active"
	StatusSpam   EntryStatus = "spam"
	StatusTrash  EntryStatus = "trash"
)

// Entry is a stored form submission.
// Fields maps field ids ("1", "4.3") to stored string values.
type Entry struct {
	ID          string
	FormID      string
	Status      EntryStatus // empty means active
	Approved    bool
	Starred     bool
	Read        bool
	DateCreated time.Time
	Fields      map[string]string
}

// Criteria is the compiled form of a set of search parameters.
type Criteria struct {
	Mode    string // "any" or "all"
	Filters []Filter
	Start   *time.Time
	End     *time.Time
}

// Filter is one {key, operator, value} clause.
type Filter struct {
	Key      string
	Operator string
	Value    string
	Values   []string   // set for "in"
	Geo      *GeoRadius // set for "within"
}

// GeoRadius is a circle around a point, radius in kilometers.
type GeoRadius struct {
	Lat      float64
	Lng      float64
	RadiusKm float64
}

// OutputField is a display field bound to its output key.
type OutputField struct {
	Key   string // field id, suffixed "(2)", "(3)" on repeats
	ID    string
	Type  string
	Label string
}

// RenderRequest selects a page (or a full export) of a view.
type RenderRequest struct {
	View      string // id or slug
	Format    Format
	Params    map[string][]string
	Requester Requester
	Page      int
	Limit     int
	Sort      string
	Dir       string
	Nonce     string
	Columns   []string
	UseLabels *bool
	Fragment  bool
	Override  FieldOverride
	// Filename names CSV/TSV downloads. Nil or an empty result falls back to
	// the view's export filename, then its slug.
	Filename  func(view string, format Format, c Criteria) string
}

// RenderResult describes a finished render.
type RenderResult struct {
	Items      int
	Total      int
	FullExport bool
	Header     http.Header // Content-Type, Content-Disposition, X-Total-Count
}

// EntryRenderRequest selects one entry of a view.
type EntryRenderRequest struct {
	View      string
	Entry     string
	Format    Format
	Requester Requester
	Override  FieldOverride
}

// OverrideInput is one (entry, field) pair handed to a FieldOverride.
type OverrideInput struct {
	Field   OutputField
	EntryID string
	Format  Format
	Fields  map[string]string
}

// FieldOverride renders a field in place of its natural renderer. Returning
// false keeps the natural value. For HTML the result is trusted markup; flat
// formats strip markup and sanitize the cell. Fields hidden from the
// requester, or visible to approved entries only, never reach the override.
type FieldOverride func(in OverrideInput) (string, bool)
