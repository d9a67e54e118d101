// Package view loads view definitions from YAML and serves them by id or slug.
package view

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/entrydex/internal/domain"
	"github.com/kailas-cloud/entrydex/internal/domain/access"
	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	"github.com/kailas-cloud/entrydex/internal/domain/fieldtype"
	"github.com/kailas-cloud/entrydex/internal/domain/searchfield"
	domview "github.com/kailas-cloud/entrydex/internal/domain/view"
)

// Repo is a read-only set of parsed views.
type Repo struct {
	byID   map[string]domview.View
	bySlug map[string]string
	forms  []*domview.Form
}

// LoadFile parses a views YAML file.
func LoadFile(path string) (*Repo, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read views %s: %w", path, err)
	}
	return Parse(data)
}

// Parse builds a Repo from a views YAML document. Any malformed view fails
// the whole document with a *domain.ConfigurationError.
func Parse(data []byte) (*Repo, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, domain.NewConfigurationError("", "parse views: %v", err)
	}

	r := &Repo{
		byID:   make(map[string]domview.View, len(doc.Views)),
		bySlug: make(map[string]string, len(doc.Views)),
	}

	forms := make(map[string]*domview.Form, len(doc.Forms))
	for _, fd := range doc.Forms {
		if _, dup := forms[fd.ID]; dup {
			return nil, domain.NewConfigurationError("", "duplicate form id %q", fd.ID)
		}
		fields := make([]domview.FormField, len(fd.Fields))
		for i, f := range fd.Fields {
			fields[i] = domview.FormField{ID: f.ID, Label: f.Label, Type: f.Type}
		}
		form, err := domview.NewForm(fd.ID, fd.Title, fields)
		if err != nil {
			return nil, domain.NewConfigurationError("", "%v", err)
		}
		forms[fd.ID] = form
		r.forms = append(r.forms, form)
	}

	for _, vd := range doc.Views {
		v, err := buildView(vd, forms)
		if err != nil {
			return nil, err
		}
		if _, dup := r.byID[v.ID()]; dup {
			return nil, domain.NewConfigurationError(v.ID(), "duplicate view id")
		}
		if _, dup := r.bySlug[v.Slug()]; dup {
			return nil, domain.NewConfigurationError(v.ID(), "duplicate slug %q", v.Slug())
		}
		r.byID[v.ID()] = v
		r.bySlug[v.Slug()] = v.ID()
	}
	return r, nil
}

// Get returns a view by id, or by slug when no id matches.
func (r *Repo) Get(_ context.Context, id string) (domview.View, error) {
	if v, ok := r.byID[id]; ok {
		return v, nil
	}
	if vid, ok := r.bySlug[id]; ok {
		return r.byID[vid], nil
	}
	return domview.View{}, fmt.Errorf("view %q: %w", id, domain.ErrNotFound)
}

// Count returns the number of loaded views.
func (r *Repo) Count(_ context.Context) (int, error) {
	return len(r.byID), nil
}

// List returns every view ordered by id.
func (r *Repo) List() []domview.View {
	out := make([]domview.View, 0, len(r.byID))
	for _, v := range r.byID {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Forms returns the declared forms in file order.
func (r *Repo) Forms() []*domview.Form {
	out := make([]*domview.Form, len(r.forms))
	copy(out, r.forms)
	return out
}

func buildView(vd viewDoc, forms map[string]*domview.Form) (domview.View, error) {
	var form *domview.Form
	if vd.Form != "" {
		f, ok := forms[vd.Form]
		if !ok {
			return domview.View{}, domain.NewConfigurationError(vd.ID, "unknown form %q", vd.Form)
		}
		form = f
	}

	settings, err := buildSettings(vd.ID, vd.Settings)
	if err != nil {
		return domview.View{}, err
	}

	fields := make(domview.FieldList, 0, len(vd.Fields))
	for _, fd := range vd.Fields {
		f, err := domview.NewField(domview.FieldSpec{
			ID:          fd.ID,
			Type:        fd.Type,
			Position:    fd.Position,
			ShowAsLink:  fd.ShowAsLink,
			CustomLabel: fd.Label,
			Content:     fd.Content,
			Visibility: domview.Visibility{
				LoggedInOnly: fd.Visibility.LoggedInOnly,
				Capability:   access.Capability(fd.Visibility.Capability),
				ApprovedOnly: fd.Visibility.ApprovedOnly,
			},
		})
		if err != nil {
			return domview.View{}, domain.NewConfigurationError(vd.ID, "%v", err)
		}
		fields = append(fields, f)
	}

	search, err := buildSearch(vd.ID, vd.Search)
	if err != nil {
		return domview.View{}, err
	}

	v, err := domview.New(vd.ID, vd.Slug, vd.Title, form, fields, search, settings)
	if err != nil {
		return domview.View{}, domain.NewConfigurationError(vd.ID, "%v", err)
	}
	return v, nil
}

func buildSettings(viewID string, sd settingsDoc) (domview.Settings, error) {
	st := domview.Settings{
		RESTEnabled:       sd.RESTEnabled == nil || *sd.RESTEnabled,
		Status:            domview.Status(sd.Status),
		Password:          sd.Password,
		EmbedOnly:         sd.EmbedOnly,
		NoDirectAccess:    sd.NoDirectAccess,
		CSVEnabled:        sd.CSVEnabled,
		TSVEnabled:        sd.TSVEnabled,
		ShowOnlyApproved:  sd.ShowOnlyApproved,
		PageSize:          sd.PageSize,
		SortOverridable:   sd.SortOverridable,
		DefaultMode:       criteria.Mode(strings.ToLower(sd.Mode)),
		UseLabels:         sd.UseLabels,
		ExtraExportFields: sd.Export.ExtraFields,
		ExportFilename:    sd.Export.Filename,
	}
	switch st.Status {
	case "", domview.StatusPublish, domview.StatusPrivate, domview.StatusDraft:
	default:
		return domview.Settings{}, domain.NewConfigurationError(viewID, "unknown status %q", sd.Status)
	}
	if sd.Sort != nil && sd.Sort.Field != "" {
		dir := criteria.Asc
		switch strings.ToLower(sd.Sort.Direction) {
		case "", string(criteria.Asc):
		case string(criteria.Desc):
			dir = criteria.Desc
		default:
			return domview.Settings{}, domain.NewConfigurationError(viewID, "unknown sort direction %q", sd.Sort.Direction)
		}
		st.DefaultSort = &criteria.Sort{Field: sd.Sort.Field, Direction: dir}
	}
	return st, nil
}

func buildSearch(viewID string, sd searchDoc) (searchfield.Collection, error) {
	areas := make([]searchfield.Area, 0, len(sd.Areas))
	for _, ad := range sd.Areas {
		defs := make([]searchfield.Definition, 0, len(ad.Fields))
		for _, f := range ad.Fields {
			choices := make([]searchfield.Choice, len(f.Choices))
			for i, c := range f.Choices {
				text := c.Text
				if text == "" {
					text = c.Value
				}
				choices[i] = searchfield.Choice{Value: c.Value, Text: text}
			}
			d, err := searchfield.NewDefinition(
				f.Key, fieldtype.Type(f.Type), f.Label, choices, f.OnlyExistingChoices, f.Advanced,
			)
			if err != nil {
				return searchfield.Collection{}, domain.NewConfigurationError(viewID, "%v", err)
			}
			defs = append(defs, d)
		}
		area, err := searchfield.NewArea(ad.Position, searchfield.Layout(ad.Layout), ad.Row, ad.Column, defs)
		if err != nil {
			return searchfield.Collection{}, domain.NewConfigurationError(viewID, "%v", err)
		}
		areas = append(areas, area)
	}
	col, err := searchfield.NewCollection(areas, sd.ModeOverridable)
	if err != nil {
		return searchfield.Collection{}, domain.NewConfigurationError(viewID, "%v", err)
	}
	return col, nil
}
