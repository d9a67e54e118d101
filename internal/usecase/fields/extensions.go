package fields

import (
	"github.com/kailas-cloud/entrydex/internal/domain/view"
)

// Columns narrows the field set to the given ids, keeping view order.
// It never adds a field. An empty id list leaves the set unchanged.
func Columns(ids []string) Extension {
	return ExtensionFunc(func(_ view.View, _ view.Format, list view.FieldList) view.FieldList {
		if len(ids) == 0 {
			return list
		}
		want := make(map[string]bool, len(ids))
		for _, id := range ids {
			want[id] = true
		}
		out := make(view.FieldList, 0, len(list))
		for _, f := range list {
			if want[f.ID()] {
				out = append(out, f)
			}
		}
		return out
	})
}

// ExtraExportFields appends the view's export extra fields for CSV and TSV
// output. Fields already present are not repeated.
func ExtraExportFields() Extension {
	return ExtensionFunc(func(v view.View, format view.Format, list view.FieldList) view.FieldList {
		extra := v.Settings().ExtraExportFields
		if !format.IsDelimited() || len(extra) == 0 {
			return list
		}
		out := make(view.FieldList, len(list), len(list)+len(extra))
		copy(out, list)
		for _, id := range extra {
			if out.Contains(id) {
				continue
			}
			f, err := view.NewField(view.FieldSpec{
				ID:       id,
				Type:     v.Form().FieldType(id),
				Position: view.ContextDirectory + "_export",
			})
			if err != nil {
				continue
			}
			out = append(out, f)
		}
		return out
	})
}
