// Package entry is the read-only projection of a stored form submission.
package entry

import (
	"fmt"
	"strconv"
	"time"
)

// Status is the lifecycle state of an entry.
type Status string

const (
	// StatusActive is a regular entry.
	StatusActive Status = "active"
	// StatusSpam is an entry flagged as spam.
	StatusSpam Status = "spam"
	// StatusTrash is a deleted entry.
	StatusTrash Status = "trash"
)

// IsValid checks if the status is supported.
func (s Status) IsValid() bool {
	return s == StatusActive || s == StatusSpam || s == StatusTrash
}

// Entry is a stored submission (immutable value object).
type Entry struct {
	id          string
	formID      string
	status      Status
	approved    bool
	starred     bool
	read        bool
	dateCreated time.Time
	fields      map[string]string
}

// Meta holds the entry flags and timestamps.
type Meta struct {
	Status      Status
	Approved    bool
	Starred     bool
	Read        bool
	DateCreated time.Time
}

// New validates and creates an Entry. IDs are numeric strings.
func New(id, formID string, meta Meta, fields map[string]string) (Entry, error) {
	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return Entry{}, fmt.Errorf("entry id %q must be numeric", id)
	}
	if formID == "" {
		return Entry{}, fmt.Errorf("entry %s: form id is required", id)
	}
	if meta.Status == "" {
		meta.Status = StatusActive
	}
	if !meta.Status.IsValid() {
		return Entry{}, fmt.Errorf("entry %s: invalid status %q", id, meta.Status)
	}
	return Reconstruct(id, formID, meta, fields), nil
}

// Reconstruct creates an Entry without validation (storage hydration).
func Reconstruct(id, formID string, meta Meta, fields map[string]string) Entry {
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	if meta.Status == "" {
		meta.Status = StatusActive
	}
	return Entry{
		id:          id,
		formID:      formID,
		status:      meta.Status,
		approved:    meta.Approved,
		starred:     meta.Starred,
		read:        meta.Read,
		dateCreated: meta.DateCreated,
		fields:      cp,
	}
}

// ID returns the entry id.
func (e Entry) ID() string { return e.id }

// FormID returns the id of the form the entry was submitted to.
func (e Entry) FormID() string { return e.formID }

// Status returns the lifecycle state.
func (e Entry) Status() Status { return e.status }

// IsApproved reports whether a moderator approved the entry.
func (e Entry) IsApproved() bool { return e.approved }

// IsStarred reports the starred flag.
func (e Entry) IsStarred() bool { return e.starred }

// IsRead reports the read flag.
func (e Entry) IsRead() bool { return e.read }

// DateCreated returns the submission time.
func (e Entry) DateCreated() time.Time { return e.dateCreated }

// Meta returns the entry flags and timestamps.
func (e Entry) Meta() Meta {
	return Meta{
		Status:      e.status,
		Approved:    e.approved,
		Starred:     e.starred,
		Read:        e.read,
		DateCreated: e.dateCreated,
	}
}

// Value returns a field value by key. Meta keys (id, form_id, status,
// is_approved, is_starred, is_read, date_created) resolve to entry metadata.
func (e Entry) Value(key string) (string, bool) {
	switch key {
	case "id":
		return e.id, true
	case "form_id":
		return e.formID, true
	case "status":
		return string(e.status), true
	case "is_approved":
		return boolFlag(e.approved), true
	case "is_starred":
		return boolFlag(e.starred), true
	case "is_read":
		return boolFlag(e.read), true
	case "date_created":
		if e.dateCreated.IsZero() {
			return "", true
		}
		return e.dateCreated.UTC().Format(time.DateTime), true
	}
	v, ok := e.fields[key]
	return v, ok
}

// Fields returns a copy of the stored field values.
func (e Entry) Fields() map[string]string {
	cp := make(map[string]string, len(e.fields))
	for k, v := range e.fields {
		cp[k] = v
	}
	return cp
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Page is one page of query results. Total counts every match, not just this page.
type Page struct {
	Entries []Entry
	Total   int
}
