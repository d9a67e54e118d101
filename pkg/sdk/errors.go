package entrydex

import (
	"errors"

	"github.com/kailas-cloud/entrydex/internal/domain"
)

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound         = domain.ErrNotFound
	ErrConfiguration    = domain.ErrConfiguration
	ErrAccessDenied     = domain.ErrAccessDenied
	ErrUnknownFieldType = domain.ErrUnknownFieldType
	ErrDecode           = domain.ErrDecode
	ErrStore            = domain.ErrStore
	ErrInvalidRequest   = domain.ErrInvalidRequest
)

// AccessDeniedReason extracts the machine-readable reason of an access
// denial, or "" when err is not one.
func AccessDeniedReason(err error) string {
	var ade *domain.AccessDeniedError
	if errors.As(err, &ade) {
		return string(ade.Reason)
	}
	return ""
}
