package entrydex

import (
	"context"
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"net/http"
	"net/url"
	"time"

	dbRedis "github.com/kailas-cloud/entrydex/internal/db/redis"
	"github.com/kailas-cloud/entrydex/internal/domain"
	domaccess "github.com/kailas-cloud/entrydex/internal/domain/access"
	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	"github.com/kailas-cloud/entrydex/internal/domain/entry"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
	entryrepo "github.com/kailas-cloud/entrydex/internal/repository/entry"
	"github.com/kailas-cloud/entrydex/internal/repository/memory"
	viewrepo "github.com/kailas-cloud/entrydex/internal/repository/view"
	accessuc "github.com/kailas-cloud/entrydex/internal/usecase/access"
	"github.com/kailas-cloud/entrydex/internal/usecase/compiler"
	entriesuc "github.com/kailas-cloud/entrydex/internal/usecase/entries"
	"github.com/kailas-cloud/entrydex/internal/usecase/fields"
	healthuc "github.com/kailas-cloud/entrydex/internal/usecase/health"
	"github.com/kailas-cloud/entrydex/internal/usecase/render"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces for test substitution.
type pipeline interface {
	RenderEntries(ctx context.Context, req entriesuc.ListRequest, w io.Writer, h http.Header) (entriesuc.Result, error)
	RenderEntry(ctx context.Context, req entriesuc.EntryRequest, w io.Writer, h http.Header) error
}

type viewSource interface {
	Get(ctx context.Context, id string) (view.View, error)
}

type entryWriter interface {
	Upsert(ctx context.Context, entries []entry.Entry) error
}

// Engine is the embedded entrydex pipeline.
type Engine struct {
	views     viewSource
	writer    entryWriter
	pipeline  pipeline
	nonces    *accessuc.Nonces
	healthSvc healthUseCase
	closeFn   func()
	obs       *observer
}

// New loads the views, opens the entry store and wires the pipeline.
// The provided context is used for the Redis readiness check and index
// creation.
func New(ctx context.Context, opts ...Option) (*Engine, error) {
	cfg := defaultEngineConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	views, err := loadViews(cfg)
	if err != nil {
		return nil, err
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	st, err := createStore(ctx, cfg, views)
	if err != nil {
		return nil, err
	}

	nonces, err := accessuc.NewNonces(cfg.nonceSecret, cfg.nonceTTL)
	if err != nil {
		st.close()
		return nil, fmt.Errorf("entrydex: %w", err)
	}

	svc := entriesuc.New(views, st.entries, accessuc.NewPolicy(), nonces, entriesuc.Config{
		BaseURL:         cfg.baseURL,
		DefaultPageSize: cfg.defaultPageSize,
		MaxPageSize:     cfg.maxPageSize,
		BOM:             cfg.bom,
	})

	return &Engine{
		views:     views,
		writer:    st.entries,
		pipeline:  svc,
		nonces:    nonces,
		healthSvc: healthuc.New(st.pinger, views),
		closeFn:   st.close,
		obs:       obs,
	}, nil
}

func loadViews(cfg *engineConfig) (*viewrepo.Repo, error) {
	switch {
	case len(cfg.viewsYAML) > 0:
		r, err := viewrepo.Parse(cfg.viewsYAML)
		if err != nil {
			return nil, fmt.Errorf("entrydex: parse views: %w", err)
		}
		return r, nil
	case cfg.viewsPath != "":
		r, err := viewrepo.LoadFile(cfg.viewsPath)
		if err != nil {
			return nil, fmt.Errorf("entrydex: load views: %w", err)
		}
		return r, nil
	default:
		return nil, errors.New("entrydex: views required (use WithViews or WithViewsFile)")
	}
}

type storeHandle interface {
	entriesuc.Store
	entryWriter
}

type openedStore struct {
	entries storeHandle
	pinger  healthuc.DBPinger
	close   func()
}

func createStore(ctx context.Context, cfg *engineConfig, views *viewrepo.Repo) (openedStore, error) {
	seed, err := toDomainEntries(cfg.entries)
	if err != nil {
		return openedStore{}, err
	}

	switch cfg.driver {
	case "memory":
		mem := memory.New(seed...)
		return openedStore{entries: mem, pinger: mem, close: func() {}}, nil
	case "redis":
		if len(cfg.addrs) == 0 {
			return openedStore{}, errors.New("entrydex: redis address required")
		}
		s, err := dbRedis.Open(ctx, dbRedis.Config{
			Addrs:            cfg.addrs,
			Password:         cfg.password,
			ReadinessTimeout: defaultReadinessTimeout,
		})
		if err != nil {
			return openedStore{}, fmt.Errorf("entrydex: open redis store: %w", err)
		}
		repo := entryrepo.New(s, cfg.keyPrefix)
		for _, form := range views.Forms() {
			if err := repo.EnsureIndex(ctx, form); err != nil {
				s.Close()
				return openedStore{}, fmt.Errorf("entrydex: ensure index for form %s: %w", form.ID(), err)
			}
		}
		return openedStore{entries: repo, pinger: s, close: s.Close}, nil
	default:
		return openedStore{}, fmt.Errorf("entrydex: unknown driver %q", cfg.driver)
	}
}

// Close releases all resources.
func (e *Engine) Close() {
	if e.closeFn != nil {
		e.closeFn()
	}
}

// Load writes entries to the store, replacing entries with the same id.
func (e *Engine) Load(ctx context.Context, entries []Entry) (err error) {
	start := time.Now()
	defer func() { e.obs.observe("load", "", start, err) }()

	domEntries, err := toDomainEntries(entries)
	if err != nil {
		return err
	}
	if err = e.writer.Upsert(ctx, domEntries); err != nil {
		return fmt.Errorf("load entries: %w", err)
	}
	return nil
}

// CompileCriteria compiles search parameters against the search fields of
// a view. Parameters that address no configured field are ignored.
func (e *Engine) CompileCriteria(ctx context.Context, viewID string, params url.Values) (c Criteria, err error) {
	start := time.Now()
	defer func() { e.obs.observe("compile_criteria", viewID, start, err) }()

	v, err := e.views.Get(ctx, viewID)
	if err != nil {
		return Criteria{}, fmt.Errorf("get view: %w", err)
	}
	sc, err := compiler.Compile(ctx, v.Search(), params, v.Settings().DefaultMode)
	if err != nil {
		return Criteria{}, fmt.Errorf("compile criteria: %w", err)
	}
	return criteriaFromDomain(sc), nil
}

// ResolveOutputFields returns the ordered display fields a response of the
// given context and format would carry for p.
func (e *Engine) ResolveOutputFields(
	ctx context.Context, viewID, displayContext string, format Format, p Principal,
) (out []OutputField, err error) {
	start := time.Now()
	defer func() { e.obs.observe("resolve_output_fields", viewID, start, err) }()

	if displayContext != ContextDirectory && displayContext != ContextSingle {
		return nil, fmt.Errorf("%w: display context %q", domain.ErrInvalidRequest, displayContext)
	}
	f, err := parseFormat(format)
	if err != nil {
		return nil, err
	}
	v, err := e.views.Get(ctx, viewID)
	if err != nil {
		return nil, fmt.Errorf("get view: %w", err)
	}

	resolved := fields.Resolve(v, displayContext, fields.Options{
		Principal:  p.toDomain(),
		Format:     f,
		Extensions: []fields.Extension{fields.ExtraExportFields()},
	})
	out = make([]OutputField, len(resolved))
	for i, of := range resolved {
		out[i] = outputField(of, v)
	}
	return out, nil
}

// RenderEntries writes one page of the view, or every matching entry for an
// authorized CSV/TSV export, to w.
func (e *Engine) RenderEntries(ctx context.Context, req RenderRequest, w io.Writer) (res RenderResult, err error) {
	start := time.Now()
	defer func() { e.obs.observe("render_entries", req.View, start, err) }()

	f, err := parseFormat(req.Format)
	if err != nil {
		return RenderResult{}, err
	}
	h := http.Header{}
	r, err := e.pipeline.RenderEntries(ctx, entriesuc.ListRequest{
		ViewID:    req.View,
		Format:    f,
		Params:    url.Values(req.Params),
		Access:    req.Requester.toDomain(),
		Page:      req.Page,
		Limit:     req.Limit,
		Sort:      req.Sort,
		Dir:       req.Dir,
		Nonce:     req.Nonce,
		Columns:   req.Columns,
		UseLabels: req.UseLabels,
		Fragment:  req.Fragment,
		Override:  req.Override.toRender(),
		Filename:  filenameFunc(req.Filename),
	}, w, h)
	if err != nil {
		return RenderResult{}, fmt.Errorf("render entries: %w", err)
	}
	return RenderResult{Items: r.Items, Total: r.Total, FullExport: r.FullExport, Header: h}, nil
}

// RenderEntry writes a single entry with the single display context.
func (e *Engine) RenderEntry(ctx context.Context, req EntryRenderRequest, w io.Writer) (h http.Header, err error) {
	start := time.Now()
	defer func() { e.obs.observe("render_entry", req.View, start, err) }()

	f, err := parseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	h = http.Header{}
	if err = e.pipeline.RenderEntry(ctx, entriesuc.EntryRequest{
		ViewID:   req.View,
		EntryID:  req.Entry,
		Format:   f,
		Access:   req.Requester.toDomain(),
		Override: req.Override.toRender(),
	}, w, h); err != nil {
		return nil, fmt.Errorf("render entry: %w", err)
	}
	return h, nil
}

// IssueExportNonce returns a token that unlocks a full CSV/TSV export of
// the view until it expires.
func (e *Engine) IssueExportNonce(ctx context.Context, viewID string) (string, time.Time, error) {
	v, err := e.views.Get(ctx, viewID)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("get view: %w", err)
	}
	nonce, exp := e.nonces.Issue(v.ID())
	return nonce, exp, nil
}

func outputField(of fields.OutputField, v view.View) OutputField {
	return OutputField{
		Key:   of.Key,
		ID:    of.Field.ID(),
		Type:  of.Field.Type(),
		Label: of.Field.Label(v),
	}
}

func (o FieldOverride) toRender() render.Override {
	if o == nil {
		return nil
	}
	return render.OverrideFunc(func(of fields.OutputField, rc render.Context) (any, bool) {
		s, ok := o(OverrideInput{
			Field:   outputField(of, rc.View),
			EntryID: rc.Entry.ID(),
			Format:  Format(rc.Format),
			Fields:  rc.Entry.Fields(),
		})
		if !ok {
			return nil, false
		}
		if rc.Format == view.FormatHTML {
			return htmltemplate.HTML(s), true //nolint:gosec // caller-supplied markup
		}
		return s, true
	})
}

func filenameFunc(fn func(string, Format, Criteria) string) entriesuc.FilenameFunc {
	if fn == nil {
		return nil
	}
	return func(v view.View, f view.Format, c criteria.SearchCriteria) string {
		return fn(v.ID(), Format(f), criteriaFromDomain(c))
	}
}

func parseFormat(f Format) (view.Format, error) {
	vf, err := view.ParseFormat(string(f))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidRequest, err)
	}
	return vf, nil
}

func (p Principal) toDomain() domaccess.Principal {
	if p.ID == "" {
		return domaccess.Anonymous()
	}
	caps := make([]domaccess.Capability, len(p.Capabilities))
	for i, c := range p.Capabilities {
		caps[i] = domaccess.Capability(c)
	}
	return domaccess.NewPrincipal(p.ID, caps...)
}

func (r Requester) toDomain() accessuc.Request {
	return accessuc.Request{
		Principal: r.Principal.toDomain(),
		Surface:   accessuc.SurfaceSDK,
		Password:  r.Password,
		Embedded:  r.Embedded,
	}
}

func toDomainEntries(in []Entry) ([]entry.Entry, error) {
	out := make([]entry.Entry, 0, len(in))
	for _, e := range in {
		en, err := entry.New(e.ID, e.FormID, entry.Meta{
			Status:      entry.Status(e.Status),
			Approved:    e.Approved,
			Starred:     e.Starred,
			Read:        e.Read,
			DateCreated: e.DateCreated,
		}, e.Fields)
		if err != nil {
			return nil, fmt.Errorf("entrydex: %w", err)
		}
		out = append(out, en)
	}
	return out, nil
}

func criteriaFromDomain(sc criteria.SearchCriteria) Criteria {
	c := Criteria{
		Mode:    string(sc.Mode()),
		Filters: make([]Filter, len(sc.Filters())),
		Start:   sc.StartDate(),
		End:     sc.EndDate(),
	}
	for i, f := range sc.Filters() {
		c.Filters[i] = Filter{
			Key:      f.Key(),
			Operator: string(f.Operator()),
			Value:    f.Value(),
			Values:   f.Values(),
		}
		if g := f.Geo(); g != nil {
			c.Filters[i].Geo = &GeoRadius{Lat: g.Lat, Lng: g.Lng, RadiusKm: g.RadiusKm}
		}
	}
	return c
}
