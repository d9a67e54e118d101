// Package searchfield holds the configured search inputs of a view and their layout.
package searchfield

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/entrydex/internal/domain/fieldtype"
)

// Choice is one selectable option of a choice-based input.
type Choice struct {
	Value string
	Text  string
}

// Definition is a single configured search input (immutable value object).
type Definition struct {
	key                 string
	inputType           fieldtype.Type
	label               string
	choices             []Choice
	onlyExistingChoices bool
	isAdvanced          bool
}

// NewDefinition validates and creates a Definition.
// The input type is not checked against the registry; unknown tags are
// skipped at compile time.
func NewDefinition(
	key string, inputType fieldtype.Type, label string,
	choices []Choice, onlyExistingChoices, isAdvanced bool,
) (Definition, error) {
	if strings.TrimSpace(key) == "" {
		return Definition{}, fmt.Errorf("search field key is required")
	}
	if inputType == "" {
		return Definition{}, fmt.Errorf("search field %q: input type is required", key)
	}
	seen := make(map[string]bool, len(choices))
	for _, c := range choices {
		if seen[c.Value] {
			return Definition{}, fmt.Errorf("search field %q: duplicate choice value %q", key, c.Value)
		}
		seen[c.Value] = true
	}
	cp := make([]Choice, len(choices))
	copy(cp, choices)
	return Definition{
		key:                 key,
		inputType:           inputType,
		label:               label,
		choices:             cp,
		onlyExistingChoices: onlyExistingChoices,
		isAdvanced:          isAdvanced,
	}, nil
}

// Key returns the entry field identifier (or synthetic key) the input filters on.
func (d Definition) Key() string { return d.key }

// InputType returns the registry tag.
func (d Definition) InputType() fieldtype.Type { return d.inputType }

// Label returns the configured label.
func (d Definition) Label() string { return d.label }

// Choices returns a copy of the configured choices.
func (d Definition) Choices() []Choice {
	out := make([]Choice, len(d.choices))
	copy(out, d.choices)
	return out
}

// OnlyExistingChoices reports whether displayed choices are pruned to stored values.
func (d Definition) OnlyExistingChoices() bool { return d.onlyExistingChoices }

// IsAdvanced reports whether the input lives in the advanced section.
func (d Definition) IsAdvanced() bool { return d.isAdvanced }

// HasChoice reports whether value equals one of the configured choice values.
func (d Definition) HasChoice(value string) bool {
	for _, c := range d.choices {
		if c.Value == value {
			return true
		}
	}
	return false
}

// Layout arranges the inputs of an area.
type Layout string

const (
	// LayoutColumn stacks inputs vertically.
	LayoutColumn Layout = "column"
	// LayoutRow places inputs side by side.
	LayoutRow Layout = "row"
)

// IsValid checks if the layout is supported.
func (l Layout) IsValid() bool {
	return l == LayoutColumn || l == LayoutRow
}

// Sections of a search bar.
const (
	SectionGeneral  = "general"
	SectionAdvanced = "advanced"
)
