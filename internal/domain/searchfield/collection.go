package searchfield

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kailas-cloud/entrydex/internal/domain/fieldtype"
	"github.com/kailas-cloud/entrydex/internal/domain/position"
)

// Area groups definitions under a "{section}_{areaId}" position.
type Area struct {
	position string
	layout   Layout
	row      int
	column   int
	fields   []Definition
}

// NewArea validates and creates an Area. Row and column order the area within its section.
func NewArea(pos string, layout Layout, row, column int, fields []Definition) (Area, error) {
	section, areaID, ok := strings.Cut(pos, "_")
	if !ok || section == "" || areaID == "" {
		return Area{}, fmt.Errorf("area position %q must be {section}_{areaId}", pos)
	}
	if layout == "" {
		layout = LayoutColumn
	}
	if !layout.IsValid() {
		return Area{}, fmt.Errorf("area %q: invalid layout %q", pos, layout)
	}
	if row < 0 || column < 0 {
		return Area{}, fmt.Errorf("area %q: row and column must be non-negative", pos)
	}
	cp := make([]Definition, len(fields))
	copy(cp, fields)
	return Area{position: pos, layout: layout, row: row, column: column, fields: cp}, nil
}

// Position returns the area position.
func (a Area) Position() string { return a.position }

// Section returns the section part of the position.
func (a Area) Section() string { return position.Section(a.position) }

// Layout returns the area layout.
func (a Area) Layout() Layout { return a.layout }

// Row returns the row index within the section.
func (a Area) Row() int { return a.row }

// Column returns the column index within the row.
func (a Area) Column() int { return a.column }

// Fields returns the definitions of the area in configured order.
func (a Area) Fields() []Definition {
	out := make([]Definition, len(a.fields))
	copy(out, a.fields)
	return out
}

// Collection is the ordered set of search areas of a view.
// Every filtering method returns a new Collection over the same definitions.
type Collection struct {
	areas           []Area
	modeOverridable bool
}

func sectionRank(section string) int {
	switch section {
	case SectionGeneral:
		return 0
	case SectionAdvanced:
		return 1
	default:
		return 2
	}
}

// NewCollection validates and creates a Collection.
// Each definition key may appear in exactly one area. Areas are ordered by
// section (general, advanced, others), then row, then column.
func NewCollection(areas []Area, modeOverridable bool) (Collection, error) {
	seenPos := make(map[string]bool, len(areas))
	seenKey := make(map[string]string)
	for _, a := range areas {
		if seenPos[a.position] {
			return Collection{}, fmt.Errorf("duplicate search area %q", a.position)
		}
		seenPos[a.position] = true
		for _, d := range a.fields {
			if prev, dup := seenKey[d.key]; dup {
				return Collection{}, fmt.Errorf("search field %q placed in both %q and %q", d.key, prev, a.position)
			}
			seenKey[d.key] = a.position
		}
	}
	sorted := make([]Area, len(areas))
	copy(sorted, areas)
	sort.SliceStable(sorted, func(i, j int) bool {
		ri, rj := sectionRank(sorted[i].Section()), sectionRank(sorted[j].Section())
		if ri != rj {
			return ri < rj
		}
		if sorted[i].row != sorted[j].row {
			return sorted[i].row < sorted[j].row
		}
		return sorted[i].column < sorted[j].column
	})
	return Collection{areas: sorted, modeOverridable: modeOverridable}, nil
}

// ModeOverridable reports whether the request may choose the match mode.
func (c Collection) ModeOverridable() bool { return c.modeOverridable }

// Areas returns the ordered areas.
func (c Collection) Areas() []Area {
	out := make([]Area, len(c.areas))
	copy(out, c.areas)
	return out
}

// Len returns the number of definitions across all areas.
func (c Collection) Len() int {
	n := 0
	for _, a := range c.areas {
		n += len(a.fields)
	}
	return n
}

// ByPosition returns the areas whose position matches glob, in original order.
func (c Collection) ByPosition(glob string) Collection {
	out := Collection{modeOverridable: c.modeOverridable}
	for _, a := range c.areas {
		if position.Match(glob, a.position) {
			out.areas = append(out.areas, a)
		}
	}
	return out
}

// Section returns the areas of one section.
func (c Collection) Section(section string) Collection {
	return c.ByPosition(section + "_*")
}

// AreaConfiguration returns the area at the exact position.
func (c Collection) AreaConfiguration(pos string) (Area, bool) {
	for _, a := range c.areas {
		if a.position == pos {
			return a, true
		}
	}
	return Area{}, false
}

// Definitions returns every definition in area order.
func (c Collection) Definitions() []Definition {
	out := make([]Definition, 0, c.Len())
	for _, a := range c.areas {
		out = append(out, a.fields...)
	}
	return out
}

// Lookup finds the definition with the given key.
func (c Collection) Lookup(key string) (Definition, bool) {
	for _, a := range c.areas {
		for _, d := range a.fields {
			if d.key == key {
				return d, true
			}
		}
	}
	return Definition{}, false
}

// Binding is the request value resolved for one definition.
type Binding struct {
	Value  string
	Values []string
	Parts  map[string]string
}

// TemplateField is a definition with its request value bound in, ready for
// rendering the search bar back to the user.
type TemplateField struct {
	Key        string
	InputType  fieldtype.Type
	Label      string
	TemplateID string
	Position   string
	Layout     Layout
	Advanced   bool
	Choices    []Choice
	Value      string
	Values     []string
	Parts      map[string]string
}

// ToTemplateData binds request values into the definitions.
// For onlyExistingChoices definitions with an entry in existing, choices are
// pruned to stored values. Definitions with an unregistered input type are
// omitted and reported in the returned errors.
func (c Collection) ToTemplateData(bindings map[string]Binding, existing map[string][]string) ([]TemplateField, []error) {
	var (
		out  []TemplateField
		errs []error
	)
	for _, a := range c.areas {
		for _, d := range a.fields {
			desc, err := fieldtype.Describe(d.inputType)
			if err != nil {
				errs = append(errs, fmt.Errorf("search field %q: %w", d.key, err))
				continue
			}
			choices := d.Choices()
			if vals, ok := existing[d.key]; ok && d.onlyExistingChoices {
				choices = pruneChoices(choices, vals)
			}
			b := bindings[d.key]
			out = append(out, TemplateField{
				Key:        d.key,
				InputType:  d.inputType,
				Label:      d.label,
				TemplateID: desc.TemplateID,
				Position:   a.position,
				Layout:     a.layout,
				Advanced:   d.isAdvanced,
				Choices:    choices,
				Value:      b.Value,
				Values:     b.Values,
				Parts:      b.Parts,
			})
		}
	}
	return out, errs
}

func pruneChoices(choices []Choice, existing []string) []Choice {
	have := make(map[string]bool, len(existing))
	for _, v := range existing {
		have[v] = true
	}
	out := make([]Choice, 0, len(choices))
	for _, ch := range choices {
		if have[ch.Value] {
			out = append(out, ch)
		}
	}
	return out
}
