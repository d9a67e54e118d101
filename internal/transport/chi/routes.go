package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/domain/access"
	"github.com/kailas-cloud/entrydex/internal/metrics"
)

// ServerInterface is the REST surface served by HandlerWithOptions.
type ServerInterface interface {
	// ListEntries handles GET /views/{view}/entries.{format}.
	ListEntries(w http.ResponseWriter, r *http.Request, view string, format string, params ListEntriesParams)
	// GetEntry handles GET /views/{view}/entries/{entry}.{format}.
	GetEntry(w http.ResponseWriter, r *http.Request, view string, entry int64, format string)
	// GetSearchFields handles GET /views/{view}/search.
	GetSearchFields(w http.ResponseWriter, r *http.Request, view string)
	// GetExportNonce handles GET /views/{view}/export-nonce.
	GetExportNonce(w http.ResponseWriter, r *http.Request, view string)
	// HealthCheck handles GET /health.
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// Metrics handles GET /metrics.
	Metrics(w http.ResponseWriter, r *http.Request)
}

// MiddlewareFunc wraps a single route handler.
type MiddlewareFunc func(http.Handler) http.Handler

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseURL          string
	BaseRouter       chi.Router
	Middlewares      []MiddlewareFunc
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// InvalidParamFormatError reports a parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// serverInterfaceWrapper binds path and query parameters before calling the handler.
type serverInterfaceWrapper struct {
	handler            ServerInterface
	handlerMiddlewares []MiddlewareFunc
	errorHandlerFunc   func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *serverInterfaceWrapper) wrap(h http.Handler) http.Handler {
	for _, m := range siw.handlerMiddlewares {
		h = m(h)
	}
	return h
}

func (siw *serverInterfaceWrapper) ListEntries(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	format := chi.URLParam(r, "format")

	var params ListEntriesParams
	q := r.URL.Query()
	bind := []struct {
		name    string
		explode bool
		dest    any
	}{
		{"page", true, &params.Page},
		{"limit", true, &params.Limit},
		{"sort", true, &params.Sort},
		{"dir", true, &params.Dir},
		{"_nonce", true, &params.Nonce},
		{"columns", false, &params.Columns},
		{"use_labels", true, &params.UseLabels},
		{"fragment", true, &params.Fragment},
	}
	for _, b := range bind {
		if err := runtime.BindQueryParameter("form", b.explode, false, b.name, q, b.dest); err != nil {
			siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: b.name, Err: err})
			return
		}
	}

	siw.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.ListEntries(w, r, view, format, params)
	})).ServeHTTP(w, r)
}

func (siw *serverInterfaceWrapper) GetEntry(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	format := chi.URLParam(r, "format")

	var entry int64
	err := runtime.BindStyledParameterWithOptions("simple", "entry", chi.URLParam(r, "entry"), &entry,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "entry", Err: err})
		return
	}

	siw.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.GetEntry(w, r, view, entry, format)
	})).ServeHTTP(w, r)
}

func (siw *serverInterfaceWrapper) GetSearchFields(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	siw.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.GetSearchFields(w, r, view)
	})).ServeHTTP(w, r)
}

func (siw *serverInterfaceWrapper) GetExportNonce(w http.ResponseWriter, r *http.Request) {
	view := chi.URLParam(r, "view")
	siw.wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.GetExportNonce(w, r, view)
	})).ServeHTTP(w, r)
}

func (siw *serverInterfaceWrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	siw.wrap(http.HandlerFunc(siw.handler.HealthCheck)).ServeHTTP(w, r)
}

func (siw *serverInterfaceWrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.wrap(http.HandlerFunc(siw.handler.Metrics)).ServeHTTP(w, r)
}

// HandlerWithOptions mounts si on options.BaseRouter, or on a new router.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		}
	}
	wrapper := serverInterfaceWrapper{
		handler:            si,
		handlerMiddlewares: options.Middlewares,
		errorHandlerFunc:   options.ErrorHandlerFunc,
	}

	base := options.BaseURL
	r.Group(func(r chi.Router) {
		r.Get(base+"/views/{view}/entries.{format}", wrapper.ListEntries)
		r.Get(base+"/views/{view}/entries/{entry}.{format}", wrapper.GetEntry)
		r.Get(base+"/views/{view}/search", wrapper.GetSearchFields)
		r.Get(base+"/views/{view}/export-nonce", wrapper.GetExportNonce)
		r.Get(base+"/health", wrapper.HealthCheck)
		r.Get(base+"/metrics", wrapper.Metrics)
	})
	return r
}

// NewRouter wires the middleware stack in front of s.
func NewRouter(s ServerInterface, logger *zap.Logger, principals map[string]access.Principal) http.Handler {
	r := chi.NewRouter()
	r.Use(JSONRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(BearerAuthMiddleware(principals))
	r.Use(metrics.Middleware())
	return HandlerWithOptions(s, ChiServerOptions{
		BaseRouter: r,
		ErrorHandlerFunc: func(w http.ResponseWriter, _ *http.Request, err error) {
			writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		},
	})
}
