// Package view holds the parsed configuration of a view: its form, display
// fields, search bar and settings.
package view

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	"github.com/kailas-cloud/entrydex/internal/domain/searchfield"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Status is the publication state of a view.
type Status string

const (
	// StatusPublish is publicly visible.
	StatusPublish Status = "publish"
	// StatusPrivate is visible to editors only.
	StatusPrivate Status = "private"
	// StatusDraft is an unpublished view.
	StatusDraft Status = "draft"
)

// FormField is the form metadata of one entry field.
type FormField struct {
	ID    string
	Label string
	Type  string
}

// Form describes the form a view reads entries from.
type Form struct {
	id     string
	title  string
	fields []FormField
}

// NewForm creates a Form.
func NewForm(id, title string, fields []FormField) (*Form, error) {
	if id == "" {
		return nil, fmt.Errorf("form id is required")
	}
	cp := make([]FormField, len(fields))
	copy(cp, fields)
	return &Form{id: id, title: title, fields: cp}, nil
}

// ID returns the form id.
func (f *Form) ID() string {
	if f == nil {
		return ""
	}
	return f.id
}

// Title returns the form title.
func (f *Form) Title() string {
	if f == nil {
		return ""
	}
	return f.title
}

// Fields returns the form field metadata.
func (f *Form) Fields() []FormField {
	if f == nil {
		return nil
	}
	out := make([]FormField, len(f.fields))
	copy(out, f.fields)
	return out
}

// lookup finds id, falling back to the parent of a sub-input ("1.3" -> "1").
func (f *Form) lookup(id string) (FormField, bool) {
	if f == nil {
		return FormField{}, false
	}
	for _, ff := range f.fields {
		if ff.ID == id {
			return ff, true
		}
	}
	if parent, _, ok := strings.Cut(id, "."); ok {
		for _, ff := range f.fields {
			if ff.ID == parent {
				return ff, true
			}
		}
	}
	return FormField{}, false
}

// Label returns the form label of field id, empty if unknown.
func (f *Form) Label(id string) string {
	ff, _ := f.lookup(id)
	return ff.Label
}

// FieldType returns the form type of field id, empty if unknown.
func (f *Form) FieldType(id string) string {
	ff, _ := f.lookup(id)
	return ff.Type
}

// Settings are the view-level switches consulted by access, query and export.
type Settings struct {
	RESTEnabled       bool
	Status            Status
	Password          string
	EmbedOnly         bool
	NoDirectAccess    bool
	CSVEnabled        bool
	TSVEnabled        bool
	ShowOnlyApproved  bool
	PageSize          int
	DefaultSort       *criteria.Sort
	SortOverridable   bool
	DefaultMode       criteria.Mode
	UseLabels         bool
	ExtraExportFields []string
	// ExportFilename names CSV/TSV downloads (no extension). Empty means the slug.
	ExportFilename    string
}

// View is a configured entry listing (immutable after load).
type View struct {
	id       string
	slug     string
	title    string
	form     *Form
	fields   FieldList
	search   searchfield.Collection
	settings Settings
}

// New validates and creates a View. A nil form is allowed and reported by
// access checks as no_form_attached.
func New(
	id, slug, title string, form *Form, fields FieldList,
	search searchfield.Collection, settings Settings,
) (View, error) {
	if id == "" {
		return View{}, fmt.Errorf("view id is required")
	}
	if slug == "" {
		slug = id
	}
	if !slugRegex.MatchString(slug) {
		return View{}, fmt.Errorf("view %q: slug %q must be lowercase alphanumeric with _ or -", id, slug)
	}
	if settings.Status == "" {
		settings.Status = StatusPublish
	}
	if settings.DefaultMode == "" {
		settings.DefaultMode = criteria.ModeAny
	}
	if !settings.DefaultMode.IsValid() {
		return View{}, fmt.Errorf("view %q: invalid match mode %q", id, settings.DefaultMode)
	}
	if settings.PageSize < 0 {
		return View{}, fmt.Errorf("view %q: page size must be non-negative", id)
	}
	resolved := make(FieldList, len(fields))
	for i, f := range fields {
		if f.fieldType == "" {
			f = f.WithType(form.FieldType(f.id))
		}
		resolved[i] = f
	}
	return View{
		id:       id,
		slug:     slug,
		title:    title,
		form:     form,
		fields:   resolved,
		search:   search,
		settings: settings,
	}, nil
}

// ID returns the view id.
func (v View) ID() string { return v.id }

// Slug returns the URL-safe name, used in export filenames.
func (v View) Slug() string { return v.slug }

// Title returns the human title.
func (v View) Title() string { return v.title }

// Form returns the attached form, nil when none is attached.
func (v View) Form() *Form { return v.form }

// Fields returns every display field.
func (v View) Fields() FieldList { return v.fields }

// Search returns the search bar configuration.
func (v View) Search() searchfield.Collection { return v.search }

// Settings returns the view settings.
func (v View) Settings() Settings { return v.settings }

// FieldByID returns the first display field with id in any position.
func (v View) FieldByID(id string) (Field, bool) {
	for _, f := range v.fields {
		if f.id == id {
			return f, true
		}
	}
	return Field{}, false
}
