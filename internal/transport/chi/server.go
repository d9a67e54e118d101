package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/domain"
	"github.com/kailas-cloud/entrydex/internal/domain/searchfield"
	domview "github.com/kailas-cloud/entrydex/internal/domain/view"
	"github.com/kailas-cloud/entrydex/internal/logger"
	accessuc "github.com/kailas-cloud/entrydex/internal/usecase/access"
	entriesuc "github.com/kailas-cloud/entrydex/internal/usecase/entries"
	formatuc "github.com/kailas-cloud/entrydex/internal/usecase/format"
	healthuc "github.com/kailas-cloud/entrydex/internal/usecase/health"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// NonceIssuer issues export nonces bound to a view id.
type NonceIssuer interface {
	Issue(viewID string) (string, time.Time)
}

// Server implements ServerInterface over the entry pipeline.
type Server struct {
	entries       *entriesuc.Service
	nonces        NonceIssuer
	health        *healthuc.Service
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates the REST boundary. nonces may be nil, which disables
// GET /views/{view}/export-nonce.
func NewServer(entries *entriesuc.Service, nonces NonceIssuer, health *healthuc.Service) *Server {
	s := &Server{
		entries: entries,
		nonces:  nonces,
		health:  health,
	}
	s.errorHandlers = []errorHandler{
		accessDeniedHandler,
		sentinelHandler(domain.ErrConfiguration, http.StatusInternalServerError, ErrorCodeConfiguration),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeBadRequest),
		sentinelHandler(domain.ErrStore, http.StatusBadGateway, ErrorCodeStore),
	}
	return s
}

// ListEntries renders one page of a view, or a full CSV/TSV export.
func (s *Server) ListEntries(
	w http.ResponseWriter,
	r *http.Request,
	view string,
	format string,
	params ListEntriesParams,
) {
	f, err := domview.ParseFormat(format)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, err.Error())
		return
	}

	req := entriesuc.ListRequest{
		ViewID:    view,
		Format:    f,
		Params:    r.URL.Query(),
		Access:    accessRequest(r),
		Page:      derefInt(params.Page),
		Limit:     derefInt(params.Limit),
		Sort:      derefString(params.Sort),
		Dir:       derefString(params.Dir),
		Nonce:     derefString(params.Nonce),
		UseLabels: params.UseLabels,
		Fragment:  params.Fragment != nil && *params.Fragment,
	}
	if params.Columns != nil {
		req.Columns = *params.Columns
	}

	bw := &bodyWriter{w: w}
	if _, err := s.entries.RenderEntries(r.Context(), req, bw, w.Header()); err != nil {
		s.handleRenderError(w, r, bw, err)
	}
}

// GetEntry renders a single entry of a view.
func (s *Server) GetEntry(w http.ResponseWriter, r *http.Request, view string, entry int64, format string) {
	f, err := domview.ParseFormat(format)
	if err != nil {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, err.Error())
		return
	}

	bw := &bodyWriter{w: w}
	err = s.entries.RenderEntry(r.Context(), entriesuc.EntryRequest{
		ViewID:  view,
		EntryID: strconv.FormatInt(entry, 10),
		Format:  f,
		Access:  accessRequest(r),
	}, bw, w.Header())
	if err != nil {
		s.handleRenderError(w, r, bw, err)
	}
}

// GetSearchFields returns the search bar of a view with request values bound in.
func (s *Server) GetSearchFields(w http.ResponseWriter, r *http.Request, view string) {
	data, err := s.entries.SearchData(r.Context(), view, r.URL.Query(), accessRequest(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	items := make([]SearchField, len(data))
	for i, d := range data {
		items[i] = searchFieldToAPI(d)
	}
	writeJSON(w, http.StatusOK, SearchFieldsResponse{View: view, Fields: items})
}

// GetExportNonce issues a full-export nonce for a view with CSV or TSV enabled.
func (s *Server) GetExportNonce(w http.ResponseWriter, r *http.Request, view string) {
	if s.nonces == nil {
		writeError(w, http.StatusNotFound, ErrorCodeNotFound, "export nonces are disabled")
		return
	}
	v, err := s.entries.View(r.Context(), view, accessRequest(r))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	if st := v.Settings(); !st.CSVEnabled && !st.TSVEnabled {
		s.handleDomainError(w, r, domain.NewAccessDenied(domain.ReasonForbidden))
		return
	}

	nonce, exp := s.nonces.Issue(v.ID())
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, ExportNonceResponse{View: v.ID(), Nonce: nonce, ExpiresAt: exp.UTC()})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
		Views:  report.Views,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func accessRequest(r *http.Request) accessuc.Request {
	return accessuc.Request{
		Principal: PrincipalFromContext(r.Context()),
		Surface:   accessuc.SurfaceREST,
		Password:  r.Header.Get(HeaderViewPassword),
		Embedded:  r.Header.Get(HeaderEmbedded) == "1",
	}
}

// bodyWriter records whether the response body was started.
type bodyWriter struct {
	w       http.ResponseWriter
	written int
}

func (b *bodyWriter) Write(p []byte) (int, error) {
	n, err := b.w.Write(p)
	b.written += n
	return n, err //nolint:wrapcheck // delegating to underlying ResponseWriter
}

// handleRenderError answers with an error body unless a streamed body is
// already on the wire, in which case the failure is only logged.
func (s *Server) handleRenderError(w http.ResponseWriter, r *http.Request, bw *bodyWriter, err error) {
	if bw.written == 0 {
		for _, k := range []string{"Content-Disposition", formatuc.HeaderItemCount, formatuc.HeaderTotalCount} {
			w.Header().Del(k)
		}
		s.handleDomainError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Error("Response aborted mid-stream",
		zap.Int("bytes_written", bw.written),
		zap.Error(err),
	)
}

func searchFieldToAPI(d searchfield.TemplateField) SearchField {
	out := SearchField{
		Key:        d.Key,
		InputType:  string(d.InputType),
		Label:      d.Label,
		TemplateID: d.TemplateID,
		Position:   d.Position,
		Layout:     string(d.Layout),
		Advanced:   d.Advanced,
		Value:      d.Value,
		Values:     d.Values,
		Parts:      d.Parts,
	}
	for _, c := range d.Choices {
		out.Choices = append(out.Choices, SearchChoice{Value: c.Value, Text: c.Text})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var ade *domain.AccessDeniedError
	if errors.As(err, &ade) {
		return ade.Error()
	}
	sentinels := []error{
		domain.ErrConfiguration,
		domain.ErrNotFound,
		domain.ErrInvalidRequest,
		domain.ErrStore,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// accessDeniedHandler maps a denial to 401, 403 or 404 with the reason as code.
// Reasons that would reveal a hidden view answer 404.
func accessDeniedHandler(w http.ResponseWriter, err error, msg string) bool {
	var ade *domain.AccessDeniedError
	if !errors.As(err, &ade) {
		return false
	}
	writeError(w, accessDeniedStatus(ade.Reason), ErrorCode(ade.Reason), msg)
	return true
}

func accessDeniedStatus(reason domain.Reason) int {
	switch reason {
	case domain.ReasonPasswordRequired, domain.ReasonUnauthenticated:
		return http.StatusUnauthorized
	case domain.ReasonNotPublic, domain.ReasonNoDirectAccess, domain.ReasonRESTDisabled,
		domain.ReasonEntryNotAccessible:
		return http.StatusNotFound
	default:
		return http.StatusForbidden
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			if errors.Is(err, domain.ErrConfiguration) || errors.Is(err, domain.ErrStore) {
				log.Error("Request failed", zap.Error(err))
			} else {
				log.Warn("domain error", zap.Error(err))
			}
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternal, "internal error")
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefString(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
