// Package access models the requesting principal and access decisions.
package access

import "github.com/kailas-cloud/entrydex/internal/domain"

// Capability is a named permission held by a principal.
type Capability string

// Known capabilities.
const (
	// CapEditViews allows full exports and access to non-public views.
	CapEditViews Capability = "edit_views"
	// CapApproveEntries lifts the approved-only restriction.
	CapApproveEntries Capability = "approve_entries"
)

// Principal is the authenticated (or anonymous) requester.
type Principal struct {
	id   string
	caps map[Capability]bool
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal { return Principal{} }

// NewPrincipal creates an authenticated principal.
func NewPrincipal(id string, caps ...Capability) Principal {
	m := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		m[c] = true
	}
	return Principal{id: id, caps: m}
}

// ID returns the principal id, empty for anonymous.
func (p Principal) ID() string { return p.id }

// IsAuthenticated reports whether the principal is logged in.
func (p Principal) IsAuthenticated() bool { return p.id != "" }

// Can reports whether the principal holds capability c.
func (p Principal) Can(c Capability) bool { return p.caps[c] }

// Capabilities returns the held capabilities.
func (p Principal) Capabilities() []Capability {
	out := make([]Capability, 0, len(p.caps))
	for c := range p.caps {
		out = append(out, c)
	}
	return out
}

// Decision is the outcome of an access check.
type Decision struct {
	Allowed bool
	Reason  domain.Reason
}

// Allow is the positive decision.
func Allow() Decision { return Decision{Allowed: true} }

// Deny is a negative decision carrying a reason code.
func Deny(reason domain.Reason) Decision { return Decision{Reason: reason} }

// Err converts a denial to an *AccessDeniedError and an approval to nil.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return domain.NewAccessDenied(d.Reason)
}
