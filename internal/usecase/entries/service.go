// Package entries runs the compile, query, render and format pipeline for
// view listings, single entries and the search bar.
package entries

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/domain"
	domaccess "github.com/kailas-cloud/entrydex/internal/domain/access"
	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	"github.com/kailas-cloud/entrydex/internal/domain/entry"
	"github.com/kailas-cloud/entrydex/internal/domain/searchfield"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
	"github.com/kailas-cloud/entrydex/internal/logger"
	"github.com/kailas-cloud/entrydex/internal/metrics"
	"github.com/kailas-cloud/entrydex/internal/usecase/access"
	"github.com/kailas-cloud/entrydex/internal/usecase/compiler"
	"github.com/kailas-cloud/entrydex/internal/usecase/fields"
	"github.com/kailas-cloud/entrydex/internal/usecase/format"
	"github.com/kailas-cloud/entrydex/internal/usecase/query"
	"github.com/kailas-cloud/entrydex/internal/usecase/render"
)

// Config holds the service-wide rendering settings.
type Config struct {
	BaseURL         string
	DefaultPageSize int
	MaxPageSize     int
	BOM             bool
}

// Service orchestrates the entry pipeline.
type Service struct {
	views    ViewSource
	store    Store
	executor *query.Executor
	policy   Policy
	nonces   NonceVerifier
	cfg      Config
}

// New creates a Service. nonces may be nil, in which case only editors get
// full exports.
func New(views ViewSource, store Store, policy Policy, nonces NonceVerifier, cfg Config) *Service {
	return &Service{
		views:    views,
		store:    store,
		executor: query.New(store),
		policy:   policy,
		nonces:   nonces,
		cfg:      cfg,
	}
}

// ListRequest selects a page of a view.
type ListRequest struct {
	ViewID string
	Format view.Format
	// Params are the raw request parameters, search fields included.
	Params url.Values
	Access access.Request
	Page   int
	Limit  int
	Sort   string
	Dir    string
	// Nonce is the export nonce presented for a CSV/TSV full export.
	Nonce   string
	Columns []string
	// UseLabels overrides the view setting when set.
	UseLabels *bool
	Fragment  bool
	Override  render.Override
	Filename  FilenameFunc
}

// FilenameFunc names a CSV/TSV download, without extension, from the view
// and the compiled criteria. An empty name keeps the default.
type FilenameFunc func(v view.View, f view.Format, c criteria.SearchCriteria) string

// Result describes a written response.
type Result struct {
	Items      int
	Total      int
	FullExport bool
}

// RenderEntries writes one page of the view, or every matching entry for an
// authorized CSV/TSV export, to w. Headers go to h before the body.
func (s *Service) RenderEntries(ctx context.Context, req ListRequest, w io.Writer, h http.Header) (Result, error) {
	v, err := s.authorize(ctx, req.ViewID, req.Access)
	if err != nil {
		return Result{}, err
	}
	ctx = logger.With(ctx, zap.String("view", v.ID()), zap.String("format", string(req.Format)))

	c, err := compiler.Compile(ctx, v.Search(), req.Params, v.Settings().DefaultMode)
	if err != nil {
		return Result{}, fmt.Errorf("compile criteria: %w", err)
	}

	full := s.fullExport(ctx, v, req)
	paging := criteria.Paging{Page: req.Page, PageSize: s.pageSize(v, req.Limit)}
	if full {
		paging = criteria.Paging{Page: 1}
	}
	c = c.WithForm(v.Form().ID()).WithPaging(paging).WithApprovedOnly(approvedOnly(v, req.Access.Principal))
	if srt, ok := resolveSort(v, req.Sort, req.Dir); ok {
		c = c.WithSort(srt)
	}

	page, err := s.executor.Execute(ctx, c)
	if err != nil {
		return Result{}, err
	}

	out := fields.Resolve(v, view.ContextDirectory, fields.Options{
		Principal:  req.Access.Principal,
		Format:     req.Format,
		Extensions: []fields.Extension{fields.ExtraExportFields(), fields.Columns(req.Columns)},
	})
	if err := s.write(ctx, v, req.Format, view.ContextDirectory, out, page, writeOptions{
		useLabels: useLabels(v, req.UseLabels),
		fragment:  req.Fragment,
		filename:  exportFilename(v, req, c),
		override:  req.Override,
	}, w, h); err != nil {
		return Result{}, err
	}

	logger.FromContext(ctx).Debug("Entries rendered",
		zap.Int("items", len(page.Entries)),
		zap.Int("total", page.Total),
		zap.Bool("full_export", full),
	)
	return Result{Items: len(page.Entries), Total: page.Total, FullExport: full}, nil
}

// EntryRequest selects one entry of a view.
type EntryRequest struct {
	ViewID   string
	EntryID  string
	Format   view.Format
	Access   access.Request
	Override render.Override
}

// RenderEntry writes a single entry with the single display context.
func (s *Service) RenderEntry(ctx context.Context, req EntryRequest, w io.Writer, h http.Header) error {
	v, err := s.authorize(ctx, req.ViewID, req.Access)
	if err != nil {
		return err
	}
	ctx = logger.With(ctx, zap.String("view", v.ID()), zap.String("entry_id", req.EntryID))

	en, err := s.executor.Get(ctx, v.Form().ID(), req.EntryID, approvedOnly(v, req.Access.Principal))
	if err != nil {
		return err
	}

	out := fields.Resolve(v, view.ContextSingle, fields.Options{
		Principal:  req.Access.Principal,
		Format:     req.Format,
		Extensions: []fields.Extension{fields.ExtraExportFields()},
	})
	page := entry.Page{Entries: []entry.Entry{en}, Total: 1}
	return s.write(ctx, v, req.Format, view.ContextSingle, out, page, writeOptions{
		useLabels: v.Settings().UseLabels,
		filename:  v.Slug() + "-" + en.ID(),
		override:  req.Override,
	}, w, h)
}

// SearchData returns the search bar of a view with the request values bound
// to each field.
func (s *Service) SearchData(
	ctx context.Context, viewID string, params url.Values, req access.Request,
) ([]searchfield.TemplateField, error) {
	v, err := s.authorize(ctx, viewID, req)
	if err != nil {
		return nil, err
	}
	res, err := compiler.CompileWithBindings(ctx, v.Search(), params, v.Settings().DefaultMode)
	if err != nil {
		return nil, fmt.Errorf("compile criteria: %w", err)
	}

	existing := make(map[string][]string)
	for _, d := range v.Search().Definitions() {
		if !d.OnlyExistingChoices() {
			continue
		}
		vals, err := s.store.DistinctValues(ctx, v.Form().ID(), d.Key())
		if err != nil {
			return nil, &domain.StoreError{Op: "distinct_values", Err: err}
		}
		existing[d.Key()] = vals
	}

	data, errs := v.Search().ToTemplateData(res.Bindings, existing)
	for _, e := range errs {
		logger.FromContext(ctx).Warn("Search field omitted from template data", zap.Error(e))
	}
	return data, nil
}

// View returns an accessible view.
func (s *Service) View(ctx context.Context, viewID string, req access.Request) (view.View, error) {
	return s.authorize(ctx, viewID, req)
}

func (s *Service) authorize(ctx context.Context, viewID string, req access.Request) (view.View, error) {
	v, err := s.views.Get(ctx, viewID)
	if err != nil {
		return view.View{}, err
	}
	if d := s.policy.CanAccessView(v, req); !d.Allowed {
		metrics.AccessDeniedTotal.WithLabelValues(string(d.Reason)).Inc()
		logger.FromContext(ctx).Info("View access denied",
			zap.String("view", v.ID()),
			zap.String("reason", string(d.Reason)),
			zap.String("principal", req.Principal.ID()),
		)
		return view.View{}, d.Err()
	}
	return v, nil
}

// fullExport reports whether req may read every matching entry at once.
func (s *Service) fullExport(ctx context.Context, v view.View, req ListRequest) bool {
	if !req.Format.IsDelimited() {
		return false
	}
	if req.Access.Principal.Can(domaccess.CapEditViews) {
		return true
	}
	enabled := v.Settings().CSVEnabled
	if req.Format == view.FormatTSV {
		enabled = v.Settings().TSVEnabled
	}
	if !enabled || s.nonces == nil || req.Nonce == "" {
		return false
	}
	if err := s.nonces.Verify(v.ID(), req.Nonce); err != nil {
		logger.FromContext(ctx).Info("Export nonce rejected, serving paged export", zap.Error(err))
		return false
	}
	return true
}

type writeOptions struct {
	useLabels bool
	fragment  bool
	filename  string
	override  render.Override
}

func (s *Service) write(
	ctx context.Context, v view.View, f view.Format, displayContext string,
	out []fields.OutputField, page entry.Page, opts writeOptions, w io.Writer, h http.Header,
) error {
	filename := opts.filename
	if filename == "" {
		filename = v.Slug()
	}
	fm, err := format.New(f, w, format.Options{
		Title:     v.Title(),
		Filename:  filename,
		UseLabels: opts.useLabels,
		BOM:       s.cfg.BOM,
		Fragment:  opts.fragment,
	})
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	if err := fm.Begin(h, format.Meta{Items: len(page.Entries), Total: page.Total}); err != nil {
		return fmt.Errorf("begin response: %w", err)
	}
	for _, en := range page.Entries {
		row := render.Row(ctx, out, render.Context{
			View:           v,
			Entry:          en,
			DisplayContext: displayContext,
			Format:         f,
			BaseURL:        s.cfg.BaseURL,
			Override:       opts.override,
		})
		if err := fm.Row(row); err != nil {
			return fmt.Errorf("write entry %s: %w", en.ID(), err)
		}
		metrics.EntriesRenderedTotal.WithLabelValues(string(f)).Inc()
	}
	if err := fm.End(); err != nil {
		return fmt.Errorf("end response: %w", err)
	}
	return nil
}

func exportFilename(v view.View, req ListRequest, c criteria.SearchCriteria) string {
	if req.Filename != nil {
		if name := req.Filename(v, req.Format, c); name != "" {
			return name
		}
	}
	if name := v.Settings().ExportFilename; name != "" {
		return name
	}
	return v.Slug()
}

func approvedOnly(v view.View, p domaccess.Principal) bool {
	return v.Settings().ShowOnlyApproved && !p.Can(domaccess.CapApproveEntries)
}

func useLabels(v view.View, override *bool) bool {
	if override != nil {
		return *override
	}
	return v.Settings().UseLabels
}
