package client

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Format is a listing format served by the REST boundary.
type Format string

// Format constants.
const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
)

// ListOptions narrow a listing. Params carries the search parameters
// (gv_search, filter_3, filter_4[start], ...) as they appear in a URL.
type ListOptions struct {
	Params    url.Values
	Page      int
	Limit     int
	Sort      string
	Dir       string
	Nonce     string
	Columns   []string
	UseLabels *bool
	Fragment  bool

	// Password unlocks a password-protected view.
	Password string
	// Embedded marks the request as issued from a host page.
	Embedded bool
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	for k, vs := range o.Params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Sort != "" {
		q.Set("sort", o.Sort)
	}
	if o.Dir != "" {
		q.Set("dir", o.Dir)
	}
	if o.Nonce != "" {
		q.Set("_nonce", o.Nonce)
	}
	if len(o.Columns) > 0 {
		q.Set("columns", strings.Join(o.Columns, ","))
	}
	if o.UseLabels != nil {
		q.Set("use_labels", strconv.FormatBool(*o.UseLabels))
	}
	if o.Fragment {
		q.Set("fragment", "true")
	}
	return q
}

// Page is a decoded JSON listing. Each entry maps output keys to rendered
// values.
type Page struct {
	Entries []map[string]any `json:"entries"`
	Total   int              `json:"total"`
}

// Meta carries the listing headers of a streamed download.
type Meta struct {
	ContentType string
	Filename    string
	Items       int
	Total       int
}

// Nonce unlocks a full CSV/TSV export until ExpiresAt.
type Nonce struct {
	View      string    `json:"view"`
	Nonce     string    `json:"nonce"`
	ExpiresAt time.Time `json:"expires_at"`
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

// SearchFields is the search bar of a view.
type SearchFields struct {
	View   string        `json:"view"`
	Fields []SearchField `json:"fields"`
}

// Health is the service health report.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
	Views  int               `json:"views"`
}

// APIError is a non-2xx response. Code is the server error code, or the
// access denial reason (not_public, post_password_required, ...).
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("entrydex: http %d", e.StatusCode)
	}
	return fmt.Sprintf("entrydex: http %d: %s: %s", e.StatusCode, e.Code, e.Message)
}
