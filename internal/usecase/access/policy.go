// Package access decides whether a request may read a view and issues
// export nonces.
package access

import (
	"crypto/subtle"

	"github.com/kailas-cloud/entrydex/internal/domain"
	domaccess "github.com/kailas-cloud/entrydex/internal/domain/access"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
)

// Surface is where a request enters the service.
type Surface string

// Request surfaces.
const (
	// SurfaceREST is the public REST route.
	SurfaceREST Surface = "rest"
	// SurfaceCLI is the local command line.
	SurfaceCLI Surface = "cli"
	// SurfaceSDK is an embedding Go program.
	SurfaceSDK Surface = "sdk"
)

// Request describes the requester of a view.
type Request struct {
	Principal domaccess.Principal
	Surface   Surface
	// Password is the view password supplied by the requester.
	Password string
	// Embedded is true when the view is rendered inside a host page.
	Embedded bool
}

// Policy is the default access control.
type Policy struct{}

// NewPolicy creates the default policy.
func NewPolicy() *Policy { return &Policy{} }

// CanAccessView checks v against req. Editors bypass every rule except a
// missing form. embed_only guards the REST surface; no_direct_access guards
// every surface.
func (p *Policy) CanAccessView(v view.View, req Request) domaccess.Decision {
	if v.Form() == nil {
		return domaccess.Deny(domain.ReasonNoFormAttached)
	}
	pr := req.Principal
	if pr.Can(domaccess.CapEditViews) {
		return domaccess.Allow()
	}

	s := v.Settings()
	if req.Surface == SurfaceREST && !s.RESTEnabled {
		return domaccess.Deny(domain.ReasonRESTDisabled)
	}
	switch s.Status {
	case view.StatusPublish:
	case view.StatusPrivate:
		if !pr.IsAuthenticated() {
			return domaccess.Deny(domain.ReasonNotPublic)
		}
		return domaccess.Deny(domain.ReasonForbidden)
	default:
		return domaccess.Deny(domain.ReasonNotPublic)
	}
	if s.Password != "" && subtle.ConstantTimeCompare([]byte(s.Password), []byte(req.Password)) != 1 {
		return domaccess.Deny(domain.ReasonPasswordRequired)
	}
	if s.EmbedOnly && req.Surface == SurfaceREST && !req.Embedded {
		return domaccess.Deny(domain.ReasonEmbedOnly)
	}
	if s.NoDirectAccess && !req.Embedded {
		return domaccess.Deny(domain.ReasonNoDirectAccess)
	}
	return domaccess.Allow()
}
