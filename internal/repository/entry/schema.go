package entry

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kailas-cloud/entrydex/internal/db"
	domentry "github.com/kailas-cloud/entrydex/internal/domain/entry"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
)

// Reserved hash attributes. Field values are stored under their field id.
const (
	attrID          = "__id"
	attrFormID      = "__form_id"
	attrStatus      = "__status"
	attrApproved    = "__is_approved"
	attrStarred     = "__is_starred"
	attrRead        = "__is_read"
	attrDateCreated = "__date_created"
	attrContent     = "__content"

	shadowTag = "__tag_"
	shadowNum = "__num_"
	shadowGeo = "__geo_"

	tagSeparator = "|"
)

// metaTags maps entry meta keys to their TAG attributes.
var metaTags = map[string]string{
	"status":      attrStatus,
	"is_approved": attrApproved,
	"is_starred":  attrStarred,
	"is_read":     attrRead,
}

// alias derives the index attribute alias of a field id. RediSearch
// identifiers cannot hold dots, so "1.3" becomes "f_1_3".
func alias(fieldID string) string {
	var b strings.Builder
	b.WriteString("f_")
	for _, r := range fieldID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func textAlias(fieldID string) string { return alias(fieldID) + "_text" }
func numAlias(fieldID string) string  { return alias(fieldID) + "_num" }
func geoAlias(fieldID string) string  { return alias(fieldID) + "_geo" }

// buildIndex creates the FT index of a form: meta attributes plus four
// views (text, tag, numeric, geo) of every form field.
func buildIndex(prefix string, form *view.Form) (*db.IndexDefinition, error) {
	b := db.NewIndex(indexName(prefix, form.ID())).
		Prefix(formPrefix(prefix, form.ID())).
		Numeric(attrID, "").
		Tag(attrStatus).
		Tag(attrApproved).
		Tag(attrStarred).
		Tag(attrRead).
		Numeric(attrDateCreated, "").
		Text(attrContent, "", false)

	for _, ff := range form.Fields() {
		a := alias(ff.ID)
		b = b.Text(ff.ID, textAlias(ff.ID), true).
			TagWithOpts(shadowTag+a, a, tagSeparator, true).
			Add(db.IndexField{Name: shadowNum + a, Alias: numAlias(ff.ID), Type: db.IndexFieldNumeric}).
			Geo(shadowGeo+a, geoAlias(ff.ID))
	}
	return b.Build()
}

// buildHashFields flattens an entry into HSET fields.
func buildHashFields(en domentry.Entry) map[string]string {
	fields := en.Fields()
	m := make(map[string]string, 8+len(fields)*3)
	m[attrID] = en.ID()
	m[attrFormID] = en.FormID()
	m[attrStatus] = string(en.Status())
	m[attrApproved] = flag(en.IsApproved())
	m[attrStarred] = flag(en.IsStarred())
	m[attrRead] = flag(en.IsRead())
	if !en.DateCreated().IsZero() {
		m[attrDateCreated] = strconv.FormatInt(en.DateCreated().Unix(), 10)
	}

	content := make([]string, 0, len(fields))
	for id, v := range fields {
		m[id] = v
		if v == "" {
			continue
		}
		a := alias(id)
		content = append(content, v)
		vals := domentry.ListValues(v)
		m[shadowTag+a] = strings.Join(vals, tagSeparator)
		if n, ok := domentry.NumericValue(v); ok {
			m[shadowNum+a] = strconv.FormatFloat(n, 'f', -1, 64)
		}
		if lat, lng, ok := domentry.GeoValue(v); ok {
			m[shadowGeo+a] = fmt.Sprintf("%g,%g", lng, lat)
		}
	}
	m[attrContent] = strings.Join(content, " ")
	return m
}

// parseHashFields hydrates an entry from a stored hash.
func parseHashFields(formID string, m map[string]string) domentry.Entry {
	meta := domentry.Meta{
		Status:   domentry.Status(m[attrStatus]),
		Approved: m[attrApproved] == "1",
		Starred:  m[attrStarred] == "1",
		Read:     m[attrRead] == "1",
	}
	if ts, err := strconv.ParseInt(m[attrDateCreated], 10, 64); err == nil {
		meta.DateCreated = time.Unix(ts, 0).UTC()
	}
	if f := m[attrFormID]; f != "" {
		formID = f
	}

	fields := make(map[string]string, len(m))
	for k, v := range m {
		if strings.HasPrefix(k, "__") {
			continue
		}
		fields[k] = v
	}
	return domentry.Reconstruct(m[attrID], formID, meta, fields)
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formPrefix(prefix, formID string) string {
	return fmt.Sprintf("%sform:%s:entry:", prefix, formID)
}

func entryKey(prefix, formID, id string) string {
	return formPrefix(prefix, formID) + id
}

func indexName(prefix, formID string) string {
	return fmt.Sprintf("%sidx:form:%s", prefix, formID)
}
