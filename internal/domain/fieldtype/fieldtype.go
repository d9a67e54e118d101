// Package fieldtype is the static registry of search input types.
package fieldtype

import "github.com/kailas-cloud/entrydex/internal/domain"

// Type is a search input type tag.
type Type string

// Registered search input types.
const (
	Text           Type = "text"
	Textarea       Type = "textarea"
	Select         Type = "select"
	Multiselect    Type = "multiselect"
	Checkbox       Type = "checkbox"
	SingleCheckbox Type = "single_checkbox"
	Radio          Type = "radio"
	Date           Type = "date"
	DateRange      Type = "date_range"
	NumberRange    Type = "number_range"
	EntryID        Type = "entry_id"
	EntryDate      Type = "entry_date"
	GeoRadius      Type = "geo_radius"
	SearchAll      Type = "search_all"
	Hidden         Type = "hidden"
	Link           Type = "link"
	ChainedSelect  Type = "chainedselect"
)

// ValueShape describes how a search input carries its value in the request.
type ValueShape string

// Value shapes.
const (
	// Scalar is a single string parameter.
	Scalar ValueShape = "scalar"
	// Array is a repeated or bracketed list parameter.
	Array ValueShape = "array"
	// Range is a structured parameter with named parts.
	Range ValueShape = "range"
)

// IndexKind tells a store how values of this input should be indexed.
type IndexKind string

// Index kinds.
const (
	IndexTag     IndexKind = "tag"
	IndexText    IndexKind = "text"
	IndexNumeric IndexKind = "numeric"
	IndexGeo     IndexKind = "geo"
	IndexNone    IndexKind = "none"
)

// Descriptor is the registry row for one input type.
type Descriptor struct {
	Type            Type
	RequiresChoices bool
	ValueShape      ValueShape
	TemplateID      string
	// Parts lists the structured parameter suffixes read for Range inputs.
	Parts []string
	Index IndexKind
	// Aliases are extra request parameter names accepted for the input.
	Aliases []string
}

var registry = map[Type]Descriptor{
	Text:           {Type: Text, ValueShape: Scalar, TemplateID: "search-field-text", Index: IndexText},
	Textarea:       {Type: Textarea, ValueShape: Scalar, TemplateID: "search-field-text", Index: IndexText},
	Select:         {Type: Select, RequiresChoices: true, ValueShape: Scalar, TemplateID: "search-field-select", Index: IndexTag},
	Multiselect:    {Type: Multiselect, RequiresChoices: true, ValueShape: Array, TemplateID: "search-field-multiselect", Index: IndexTag},
	Checkbox:       {Type: Checkbox, RequiresChoices: true, ValueShape: Array, TemplateID: "search-field-checkbox", Index: IndexTag},
	SingleCheckbox: {Type: SingleCheckbox, ValueShape: Scalar, TemplateID: "search-field-single_checkbox", Index: IndexTag},
	Radio:          {Type: Radio, RequiresChoices: true, ValueShape: Scalar, TemplateID: "search-field-radio", Index: IndexTag},
	Date:           {Type: Date, ValueShape: Scalar, TemplateID: "search-field-date", Index: IndexNumeric},
	DateRange: {
		Type: DateRange, ValueShape: Range, TemplateID: "search-field-date_range",
		Parts: []string{"start", "end"}, Index: IndexNumeric,
	},
	NumberRange: {
		Type: NumberRange, ValueShape: Range, TemplateID: "search-field-number_range",
		Parts: []string{"min", "max"}, Index: IndexNumeric,
	},
	EntryID: {
		Type: EntryID, ValueShape: Scalar, TemplateID: "search-field-entry_id",
		Index: IndexNone, Aliases: []string{"gv_id"},
	},
	EntryDate: {
		Type: EntryDate, ValueShape: Range, TemplateID: "search-field-entry_date",
		Parts: []string{"start", "end"}, Index: IndexNone, Aliases: []string{"gv"},
	},
	GeoRadius: {
		Type: GeoRadius, ValueShape: Range, TemplateID: "search-field-geo_radius",
		Parts: []string{"lat", "lng", "radius"}, Index: IndexGeo,
	},
	SearchAll: {
		Type: SearchAll, ValueShape: Scalar, TemplateID: "search-field-search_all",
		Index: IndexNone, Aliases: []string{"gv_search"},
	},
	Hidden:        {Type: Hidden, ValueShape: Scalar, TemplateID: "search-field-hidden", Index: IndexTag},
	Link:          {Type: Link, RequiresChoices: true, ValueShape: Scalar, TemplateID: "search-field-link", Index: IndexTag},
	ChainedSelect: {Type: ChainedSelect, ValueShape: Array, TemplateID: "search-field-chainedselect", Index: IndexTag},
}

// Describe returns the registry row for t.
// Unregistered tags yield an *UnknownFieldTypeError; callers skip the field.
func Describe(t Type) (Descriptor, error) {
	d, ok := registry[t]
	if !ok {
		return Descriptor{}, &domain.UnknownFieldTypeError{Type: string(t)}
	}
	return d, nil
}

// All returns every registered type in declaration order.
func All() []Type {
	return []Type{
		Text, Textarea, Select, Multiselect, Checkbox, SingleCheckbox, Radio, Date, DateRange,
		NumberRange, EntryID, EntryDate, GeoRadius, SearchAll, Hidden, Link, ChainedSelect,
	}
}

// IsRegistered reports whether t has a registry row.
func IsRegistered(t Type) bool {
	_, ok := registry[t]
	return ok
}
