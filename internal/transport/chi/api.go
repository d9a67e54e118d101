package chi

import "time"

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes. Access denials use their reason code instead.
const (
	ErrorCodeBadRequest    ErrorCode = "bad_request"
	ErrorCodeUnauthorized  ErrorCode = "unauthorized"
	ErrorCodeNotFound      ErrorCode = "not_found"
	ErrorCodeConfiguration ErrorCode = "configuration_error"
	ErrorCodeStore         ErrorCode = "store_error"
	ErrorCodeInternal      ErrorCode = "internal_error"
)

// Request headers read by the boundary.
const (
	HeaderViewPassword = "X-View-Password"
	// HeaderEmbedded marks a request issued by a host page embedding the view.
	HeaderEmbedded = "X-Entrydex-Embed"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ListEntriesParams are the query parameters of GET /views/{view}/entries.{format}.
// Search parameters are read from the raw query by the compiler.
type ListEntriesParams struct {
	Page      *int      `form:"page,omitempty" json:"page,omitempty"`
	Limit     *int      `form:"limit,omitempty" json:"limit,omitempty"`
	Sort      *string   `form:"sort,omitempty" json:"sort,omitempty"`
	Dir       *string   `form:"dir,omitempty" json:"dir,omitempty"`
	Nonce     *string   `form:"_nonce,omitempty" json:"_nonce,omitempty"`
	Columns   *[]string `form:"columns,omitempty" json:"columns,omitempty"`
	UseLabels *bool     `form:"use_labels,omitempty" json:"use_labels,omitempty"`
	Fragment  *bool     `form:"fragment,omitempty" json:"fragment,omitempty"`
}

// SearchChoice is one option of a search input.
type SearchChoice struct {
	Value string `json:"value"`
	Text  string `json:"text"`
}

// SearchField is a search input with the request values bound in.
type SearchField struct {
	Key        string            `json:"key"`
	InputType  string            `json:"input_type"`
	Label      string            `json:"label"`
	TemplateID string            `json:"template_id"`
	Position   string            `json:"position"`
	Layout     string            `json:"layout"`
	Advanced   bool              `json:"advanced"`
	Choices    []SearchChoice    `json:"choices,omitempty"`
	Value      string            `json:"value,omitempty"`
	Values     []string          `json:"values,omitempty"`
	Parts      map[string]string `json:"parts,omitempty"`
}

// SearchFieldsResponse is the body of GET /views/{view}/search.
type SearchFieldsResponse struct {
	View   string        `json:"view"`
	Fields []SearchField `json:"fields"`
}

// ExportNonceResponse is the body of GET /views/{view}/export-nonce.
type ExportNonceResponse struct {
	View      string    `json:"view"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Views  int               `json:"views"`
}
