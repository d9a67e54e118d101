// Package fields resolves which display fields a response may carry and
// under which output keys.
package fields

import (
	"strconv"

	"github.com/kailas-cloud/entrydex/internal/domain/access"
	"github.com/kailas-cloud/entrydex/internal/domain/position"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
)

// OutputField is a display field bound to its disambiguated output key.
type OutputField struct {
	Key   string
	Field view.Field
}

// Extension adds or removes fields by id after position and visibility filtering.
type Extension interface {
	Apply(v view.View, format view.Format, fields view.FieldList) view.FieldList
}

// ExtensionFunc adapts a function to Extension.
type ExtensionFunc func(v view.View, format view.Format, fields view.FieldList) view.FieldList

// Apply calls f.
func (f ExtensionFunc) Apply(v view.View, format view.Format, fields view.FieldList) view.FieldList {
	return f(v, format, fields)
}

// Options parameterize Resolve.
type Options struct {
	Principal  access.Principal
	Format     view.Format
	Extensions []Extension
}

// Resolve computes the ordered output fields of a display context:
// position filter, visibility filter, extensions, key deduplication, then
// removal of link overrides for every format except HTML.
func Resolve(v view.View, displayContext string, opts Options) []OutputField {
	list := v.Fields().ByPosition(position.Context(displayContext)).ByVisible(opts.Principal)
	for _, ext := range opts.Extensions {
		list = ext.Apply(v, opts.Format, list)
	}

	out := make([]OutputField, 0, len(list))
	keys := newKeyAllocator(list)
	for _, f := range list {
		key := keys.next(f.ID())
		if opts.Format != view.FormatHTML {
			f = f.WithoutLink()
		}
		out = append(out, OutputField{Key: key, Field: f})
	}
	return out
}

// keyAllocator hands out "id", then "id(2)", "id(3)" for repeats. A numbered
// key never shadows the literal id of another field in the list.
type keyAllocator struct {
	ids   map[string]bool
	used  map[string]bool
	count map[string]int
}

func newKeyAllocator(list view.FieldList) *keyAllocator {
	a := &keyAllocator{
		ids:   make(map[string]bool, len(list)),
		used:  make(map[string]bool, len(list)),
		count: make(map[string]int, len(list)),
	}
	for _, f := range list {
		a.ids[f.ID()] = true
	}
	return a
}

func (a *keyAllocator) next(id string) string {
	key := id
	if a.used[key] {
		n := max(a.count[id], 1)
		for {
			n++
			key = id + "(" + strconv.Itoa(n) + ")"
			if !a.used[key] && !a.ids[key] {
				break
			}
		}
		a.count[id] = n
	}
	a.used[key] = true
	return key
}

// Keys returns the output keys in order.
func Keys(fields []OutputField) []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	return keys
}
