package view

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/entrydex/internal/domain/access"
	"github.com/kailas-cloud/entrydex/internal/domain/position"
)

// Display contexts.
const (
	ContextDirectory = "directory"
	ContextSingle    = "single"
	ContextEdit      = "edit"
)

// Field types with renderer special cases. Other types render the stored value.
const (
	TypeCustom        = "custom"
	TypeList          = "list"
	TypeMultiselect   = "multiselect"
	TypeCheckbox      = "checkbox"
	TypeFileUpload    = "fileupload"
	TypeBusinessHours = "business_hours"
	TypeEntryLink     = "entry_link"
)

// Visibility restricts who sees a display field.
type Visibility struct {
	// LoggedInOnly hides the field from anonymous requesters.
	LoggedInOnly bool
	// Capability hides the field unless the requester holds it.
	Capability access.Capability
	// ApprovedOnly renders the field empty for unapproved entries.
	ApprovedOnly bool
}

// Field is a display field placed in a view position (immutable value object).
type Field struct {
	id          string
	fieldType   string
	position    string
	showAsLink  bool
	customLabel string
	content     string
	visibility  Visibility
}

// FieldSpec carries the settings of a display field.
type FieldSpec struct {
	ID          string
	Type        string
	Position    string
	ShowAsLink  bool
	CustomLabel string
	Content     string
	Visibility  Visibility
}

// NewField validates and creates a Field.
func NewField(s FieldSpec) (Field, error) {
	if s.ID == "" {
		return Field{}, fmt.Errorf("display field id is required")
	}
	switch position.Section(s.Position) {
	case ContextDirectory, ContextSingle, ContextEdit:
	default:
		return Field{}, fmt.Errorf("display field %q: position %q must start with directory_, single_ or edit_", s.ID, s.Position)
	}
	if s.Type == TypeCustom && strings.TrimSpace(s.Content) == "" {
		return Field{}, fmt.Errorf("custom field %q has no content", s.ID)
	}
	return Field{
		id:          s.ID,
		fieldType:   s.Type,
		position:    s.Position,
		showAsLink:  s.ShowAsLink,
		customLabel: s.CustomLabel,
		content:     s.Content,
		visibility:  s.Visibility,
	}, nil
}

// ID returns the underlying entry field identifier.
func (f Field) ID() string { return f.id }

// Type returns the field type.
func (f Field) Type() string { return f.fieldType }

// Position returns the placement.
func (f Field) Position() string { return f.position }

// ShowAsLink reports whether the value links to the single entry page.
func (f Field) ShowAsLink() bool { return f.showAsLink }

// CustomLabel returns the view-level label override.
func (f Field) CustomLabel() string { return f.customLabel }

// Content returns view-authored content of a custom field.
func (f Field) Content() string { return f.content }

// Visibility returns the visibility rule.
func (f Field) Visibility() Visibility { return f.visibility }

// WithoutLink returns a copy with the link-to-single override removed.
func (f Field) WithoutLink() Field {
	f.showAsLink = false
	return f
}

// WithType returns a copy with the type resolved from form metadata.
func (f Field) WithType(t string) Field {
	f.fieldType = t
	return f
}

// Label resolves the display label: custom label first, then form label.
// Empty means no label is configured.
func (f Field) Label(v View) string {
	if f.customLabel != "" {
		return f.customLabel
	}
	return v.Form().Label(f.id)
}

// VisibleTo reports whether p passes the field visibility rule.
func (f Field) VisibleTo(p access.Principal) bool {
	if f.visibility.LoggedInOnly && !p.IsAuthenticated() {
		return false
	}
	if f.visibility.Capability != "" && !p.Can(f.visibility.Capability) {
		return false
	}
	return true
}

// FieldList is an ordered list of display fields. Filters return new lists.
type FieldList []Field

// ByPosition keeps fields whose position matches glob, preserving order.
func (l FieldList) ByPosition(glob string) FieldList {
	out := make(FieldList, 0, len(l))
	for _, f := range l {
		if position.Match(glob, f.position) {
			out = append(out, f)
		}
	}
	return out
}

// ByVisible keeps fields p may see.
func (l FieldList) ByVisible(p access.Principal) FieldList {
	out := make(FieldList, 0, len(l))
	for _, f := range l {
		if f.VisibleTo(p) {
			out = append(out, f)
		}
	}
	return out
}

// IDs returns the field ids in order.
func (l FieldList) IDs() []string {
	ids := make([]string, len(l))
	for i, f := range l {
		ids[i] = f.id
	}
	return ids
}

// Contains reports whether a field with id is present.
func (l FieldList) Contains(id string) bool {
	for _, f := range l {
		if f.id == id {
			return true
		}
	}
	return false
}

// Format is an output representation of rendered entries.
type Format string

// Output formats.
const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatHTML, FormatJSON, FormatCSV, FormatTSV:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// IsDelimited reports whether the format is CSV or TSV.
func (f Format) IsDelimited() bool { return f == FormatCSV || f == FormatTSV }
