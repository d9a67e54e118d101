package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing view or entry.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration signals a misconfigured view (missing field, position, form).
	ErrConfiguration = errors.New("configuration error")
	// ErrAccessDenied signals that the requester may not see the view.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnknownFieldType signals a field type tag missing from the registry.
	ErrUnknownFieldType = errors.New("unknown field type")
	// ErrDecode signals a stored value that could not be decoded.
	ErrDecode = errors.New("decode error")
	// ErrStore signals a failure reported by the entry store.
	ErrStore = errors.New("store error")
	// ErrInvalidRequest signals malformed request parameters.
	ErrInvalidRequest = errors.New("invalid request")
)

// Reason is the machine-readable cause attached to an access denial.
type Reason string

// Access denial reasons.
const (
	ReasonRESTDisabled       Reason = "rest_disabled"
	ReasonPasswordRequired   Reason = "post_password_required"
	ReasonNotPublic          Reason = "not_public"
	ReasonEmbedOnly          Reason = "embed_only"
	ReasonNoDirectAccess     Reason = "no_direct_access"
	ReasonNoFormAttached     Reason = "no_form_attached"
	ReasonForbidden          Reason = "forbidden"
	ReasonUnauthenticated    Reason = "unauthenticated"
	ReasonInvalidExportNonce Reason = "invalid_export_nonce"
	ReasonEntryNotAccessible Reason = "entry_not_accessible"
)

// AccessDeniedError wraps ErrAccessDenied with a reason code.
type AccessDeniedError struct {
	Reason Reason
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrAccessDenied.Error(), e.Reason)
}

func (e *AccessDeniedError) Unwrap() error { return ErrAccessDenied }

// NewAccessDenied creates an access denial with the given reason.
func NewAccessDenied(reason Reason) error {
	return &AccessDeniedError{Reason: reason}
}

// ConfigurationError names the view setting that is wrong.
type ConfigurationError struct {
	View string
	Msg  string
}

func (e *ConfigurationError) Error() string {
	if e.View == "" {
		return fmt.Sprintf("%s: %s", ErrConfiguration.Error(), e.Msg)
	}
	return fmt.Sprintf("%s: view %q: %s", ErrConfiguration.Error(), e.View, e.Msg)
}

func (e *ConfigurationError) Unwrap() error { return ErrConfiguration }

// NewConfigurationError creates a configuration error for a view.
func NewConfigurationError(view, format string, args ...any) error {
	return &ConfigurationError{View: view, Msg: fmt.Sprintf(format, args...)}
}

// UnknownFieldTypeError carries the unregistered type tag.
type UnknownFieldTypeError struct {
	Type string
}

func (e *UnknownFieldTypeError) Error() string {
	return fmt.Sprintf("%s: %q", ErrUnknownFieldType.Error(), e.Type)
}

func (e *UnknownFieldTypeError) Unwrap() error { return ErrUnknownFieldType }

// DecodeError carries the field whose stored payload failed to decode.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: field %q: %v", ErrDecode.Error(), e.Field, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *DecodeError) Unwrap() []error { return []error{ErrDecode, e.Err} }

// StoreError wraps a failure from the entry store, keeping the cause intact.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStore.Error(), e.Op, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *StoreError) Unwrap() []error { return []error{ErrStore, e.Err} }
