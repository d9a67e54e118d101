package entrydex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const testViews = `
forms:
  - id: "3"
    title: Contacts
    fields:
      - {id: "1", label: Name, type: text}
      - {id: "2", label: City, type: text}
views:
  - id: "10"
    slug: contacts
    title: Contacts
    form: "3"
    settings:
      status: publish
      csv_enabled: true
      page_size: 1
      sort: {field: id, direction: ASC}
    fields:
      - {id: "1", position: directory_table-columns}
      - {id: "2", position: directory_table-columns}
      - {id: "1", position: directory_table-columns, label: Again}
      - {id: "2", position: single_table-columns}
    search:
      areas:
        - position: general_search-general
          fields:
            - {key: search_all, type: search_all, label: Search}
            - {key: "2", type: text, label: City}
  - id: "13"
    slug: drafts
    title: Drafts
    form: "3"
    settings: {status: draft}
    fields:
      - {id: "1", position: directory_table-columns}
`

func testEntries() []Entry {
	return []Entry{
		{
			ID: "1", FormID: "3", Approved: true,
			DateCreated: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
			Fields:      map[string]string{"1": "Clara Thompson", "2": "Oslo"},
		},
		{
			ID: "2", FormID: "3",
			DateCreated: time.Date(2024, 2, 2, 10, 0, 0, 0, time.UTC),
			Fields:      map[string]string{"1": "Bob", "2": "Rome"},
		},
	}
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	base := []Option{WithViews([]byte(testViews)), WithMemory(testEntries()...), WithBOM(false)}
	eng, err := New(context.Background(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(eng.Close)
	return eng
}

type jsonPage struct {
	Entries []map[string]any `json:"entries"`
	Total   int              `json:"total"`
}

func TestNew_NoViews(t *testing.T) {
	_, err := New(context.Background())
	if err == nil {
		t.Fatal("expected error when no views provided")
	}
}

func TestNew_InvalidViews(t *testing.T) {
	_, err := New(context.Background(), WithViews([]byte("views: [")))
	if err == nil {
		t.Fatal("expected error for malformed views YAML")
	}
}

func TestNew_InvalidEntry(t *testing.T) {
	_, err := New(context.Background(),
		WithViews([]byte(testViews)),
		WithMemory(Entry{ID: "abc", FormID: "3"}),
	)
	if err == nil {
		t.Fatal("expected error for non-numeric entry id")
	}
}

func TestCreateStore_UnknownDriver(t *testing.T) {
	cfg := defaultEngineConfig()
	cfg.driver = "unknown"
	if _, err := createStore(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unknown driver")
	}
}

func TestCreateStore_RedisWithoutAddress(t *testing.T) {
	cfg := defaultEngineConfig()
	cfg.driver = "redis"
	if _, err := createStore(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for missing redis address")
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := defaultEngineConfig()
	reg := prometheus.NewRegistry()
	logger := slog.Default()

	for _, o := range []Option{
		WithRedis("localhost:6379", "pw"),
		WithKeyPrefix("test:"),
		WithBaseURL("https://example.org/directory"),
		WithPageSizes(10, 50),
		WithBOM(false),
		WithExportNonces("secret", time.Minute),
		WithLogger(logger),
		WithPrometheus(reg),
	} {
		o.apply(cfg)
	}

	if cfg.driver != "redis" || cfg.addrs[0] != "localhost:6379" || cfg.password != "pw" {
		t.Errorf("redis option not applied: %+v", cfg)
	}
	if cfg.keyPrefix != "test:" {
		t.Errorf("keyPrefix = %q", cfg.keyPrefix)
	}
	if cfg.baseURL != "https://example.org/directory" {
		t.Errorf("baseURL = %q", cfg.baseURL)
	}
	if cfg.defaultPageSize != 10 || cfg.maxPageSize != 50 {
		t.Errorf("page sizes = %d/%d, want 10/50", cfg.defaultPageSize, cfg.maxPageSize)
	}
	if cfg.bom {
		t.Error("bom should be off")
	}
	if cfg.nonceSecret != "secret" || cfg.nonceTTL != time.Minute {
		t.Errorf("nonce option not applied")
	}
	if cfg.logger != logger || cfg.metricsReg != reg {
		t.Error("observability options not applied")
	}
}

func TestEngine_CompileCriteria(t *testing.T) {
	eng := newTestEngine(t)

	c, err := eng.CompileCriteria(context.Background(), "contacts", url.Values{
		"gv_search": {`"Clara Thompson"`},
		"filter_2":  {"Oslo"},
		"filter_9":  {"ignored"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Mode != "any" {
		t.Errorf("Mode = %q, want any", c.Mode)
	}
	if len(c.Filters) != 2 {
		t.Fatalf("filters = %+v, want 2", c.Filters)
	}
	ops := map[string]string{}
	for _, f := range c.Filters {
		ops[f.Key] = f.Operator
	}
	if ops["search_all"] != "fulltext" {
		t.Errorf("search_all operator = %q, want fulltext", ops["search_all"])
	}
	if ops["2"] != "contains" {
		t.Errorf("field 2 operator = %q, want contains", ops["2"])
	}
}

func TestEngine_CompileCriteria_UnknownView(t *testing.T) {
	eng := newTestEngine(t)
	_, err := eng.CompileCriteria(context.Background(), "nope", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestEngine_ResolveOutputFields(t *testing.T) {
	eng := newTestEngine(t)

	out, err := eng.ResolveOutputFields(context.Background(), "contacts", ContextDirectory, FormatCSV, Principal{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantKeys := []string{"1", "2", "1(2)"}
	if len(out) != len(wantKeys) {
		t.Fatalf("fields = %+v, want %d", out, len(wantKeys))
	}
	for i, k := range wantKeys {
		if out[i].Key != k {
			t.Errorf("key[%d] = %q, want %q", i, out[i].Key, k)
		}
	}
	if out[0].Label != "Name" {
		t.Errorf("label = %q, want form label Name", out[0].Label)
	}
	if out[2].Label != "Again" {
		t.Errorf("label = %q, want custom label Again", out[2].Label)
	}

	single, err := eng.ResolveOutputFields(context.Background(), "contacts", ContextSingle, FormatJSON, Principal{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(single) != 1 || single[0].ID != "2" {
		t.Errorf("single fields = %+v, want [2]", single)
	}
}

func TestEngine_ResolveOutputFields_InvalidInput(t *testing.T) {
	eng := newTestEngine(t)
	tests := []struct {
		name    string
		context string
		format  Format
	}{
		{"edit context", "edit", FormatJSON},
		{"unknown format", ContextDirectory, "pdf"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := eng.ResolveOutputFields(context.Background(), "contacts", tt.context, tt.format, Principal{})
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("err = %v, want ErrInvalidRequest", err)
			}
		})
	}
}

func TestEngine_RenderEntries_JSON(t *testing.T) {
	eng := newTestEngine(t)

	var buf bytes.Buffer
	res, err := eng.RenderEntries(context.Background(), RenderRequest{
		View:   "contacts",
		Format: FormatJSON,
		Limit:  10,
	}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Items != 2 || res.Total != 2 {
		t.Errorf("items/total = %d/%d, want 2/2", res.Items, res.Total)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("Content-Type = %q", ct)
	}

	var page jsonPage
	if err := json.Unmarshal(buf.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v\n%s", err, buf.String())
	}
	if len(page.Entries) != 2 || page.Entries[0]["1"] != "Clara Thompson" {
		t.Errorf("entries = %+v", page.Entries)
	}
	if page.Entries[1]["1(2)"] != "Bob" {
		t.Errorf("repeated key missing: %+v", page.Entries[1])
	}
}

func TestEngine_RenderEntries_Search(t *testing.T) {
	eng := newTestEngine(t)

	var buf bytes.Buffer
	res, err := eng.RenderEntries(context.Background(), RenderRequest{
		View:   "contacts",
		Format: FormatJSON,
		Params: url.Values{"gv_search": {"rome"}},
	}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Items != 1 || !strings.Contains(buf.String(), "Bob") {
		t.Errorf("got %d items: %s", res.Items, buf.String())
	}
}

func TestEngine_RenderEntries_ExportNonce(t *testing.T) {
	eng := newTestEngine(t, WithExportNonces("secret", time.Hour))
	ctx := context.Background()

	var paged bytes.Buffer
	res, err := eng.RenderEntries(ctx, RenderRequest{View: "contacts", Format: FormatCSV}, &paged)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FullExport || res.Items != 1 {
		t.Errorf("anonymous CSV without nonce: full=%v items=%d, want paged 1", res.FullExport, res.Items)
	}

	nonce, exp, err := eng.IssueExportNonce(ctx, "contacts")
	if err != nil {
		t.Fatalf("issue nonce: %v", err)
	}
	if !exp.After(time.Now()) {
		t.Errorf("nonce expiry %v is not in the future", exp)
	}

	var full bytes.Buffer
	res, err = eng.RenderEntries(ctx, RenderRequest{View: "contacts", Format: FormatCSV, Nonce: nonce}, &full)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.FullExport || res.Items != 2 {
		t.Errorf("CSV with nonce: full=%v items=%d, want full 2", res.FullExport, res.Items)
	}
	if cd := res.Header.Get("Content-Disposition"); !strings.Contains(cd, "contacts.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestEngine_RenderEntries_OverrideAndFilename(t *testing.T) {
	eng := newTestEngine(t)

	var seen []string
	upper := func(in OverrideInput) (string, bool) {
		seen = append(seen, in.EntryID+":"+in.Field.Key)
		if in.Field.Key != "2" {
			return "", false
		}
		return "=" + strings.ToUpper(in.Fields["2"]), true
	}
	name := func(view string, f Format, c Criteria) string {
		if len(c.Filters) == 0 {
			return ""
		}
		return view + "-" + c.Filters[0].Value + "-" + string(f)
	}

	var buf bytes.Buffer
	res, err := eng.RenderEntries(context.Background(), RenderRequest{
		View:      "contacts",
		Format:    FormatCSV,
		Params:    url.Values{"filter_2": {"Oslo"}},
		Requester: Requester{Principal: Principal{ID: "ed", Capabilities: []Capability{CapEditViews}}},
		Override:  upper,
		Filename:  name,
	}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "1,2,1(2)\nClara Thompson,'=OSLO,Clara Thompson\n"; buf.String() != want {
		t.Errorf("csv = %q, want %q", buf.String(), want)
	}
	if len(seen) != 3 {
		t.Errorf("override saw %v, want 3 cells", seen)
	}
	if cd := res.Header.Get("Content-Disposition"); !strings.Contains(cd, "10-Oslo-csv.csv") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestEngine_RenderEntries_AccessDenied(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.RenderEntries(context.Background(), RenderRequest{View: "drafts", Format: FormatJSON}, &bytes.Buffer{})
	if !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("err = %v, want ErrAccessDenied", err)
	}
	if got := AccessDeniedReason(err); got != "not_public" {
		t.Errorf("reason = %q, want not_public", got)
	}

	var buf bytes.Buffer
	_, err = eng.RenderEntries(context.Background(), RenderRequest{
		View:      "drafts",
		Format:    FormatJSON,
		Requester: Requester{Principal: Principal{ID: "ed", Capabilities: []Capability{CapEditViews}}},
	}, &buf)
	if err != nil {
		t.Fatalf("editor should bypass status: %v", err)
	}
}

func TestEngine_RenderEntry(t *testing.T) {
	eng := newTestEngine(t)

	var buf bytes.Buffer
	h, err := eng.RenderEntry(context.Background(), EntryRenderRequest{View: "10", Entry: "2", Format: FormatJSON}, &buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Get("Content-Type") == "" {
		t.Error("missing Content-Type")
	}
	var page jsonPage
	if err := json.Unmarshal(buf.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(page.Entries) != 1 || page.Entries[0]["2"] != "Rome" {
		t.Errorf("entry = %+v", page.Entries)
	}

	_, err = eng.RenderEntry(context.Background(), EntryRenderRequest{View: "10", Entry: "99", Format: FormatJSON}, &buf)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestEngine_Load(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	err := eng.Load(ctx, []Entry{{ID: "3", FormID: "3", Fields: map[string]string{"1": "Dana", "2": "Lima"}}})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	res, err := eng.RenderEntries(ctx, RenderRequest{View: "contacts", Format: FormatJSON, Limit: 10}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if res.Total != 3 {
		t.Errorf("total = %d, want 3", res.Total)
	}

	if err := eng.Load(ctx, []Entry{{ID: "4"}}); err == nil {
		t.Error("expected error for entry without form")
	}
}

func TestEngine_Health(t *testing.T) {
	eng := newTestEngine(t)
	h := eng.Health(context.Background())
	if h.Status != "ok" {
		t.Errorf("Status = %q, want ok", h.Status)
	}
	if h.Checks["database"] != "ok" {
		t.Errorf("database check = %q", h.Checks["database"])
	}
	if h.Views != 2 {
		t.Errorf("Views = %d, want 2", h.Views)
	}
}

func TestEngine_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	eng := newTestEngine(t, WithPrometheus(reg))
	ctx := context.Background()

	if _, err := eng.CompileCriteria(ctx, "contacts", nil); err != nil {
		t.Fatalf("compile: %v", err)
	}
	if _, err := eng.CompileCriteria(ctx, "nope", nil); err == nil {
		t.Fatal("expected error")
	}

	m, err := newSDKMetrics(reg)
	if err != nil {
		t.Fatalf("reuse metrics: %v", err)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("compile_criteria", "ok")); got != 1 {
		t.Errorf("ok count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.operations.WithLabelValues("compile_criteria", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestEngine_Logger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	eng := newTestEngine(t, WithLogger(logger))

	_, _ = eng.CompileCriteria(context.Background(), "contacts", nil)
	_, _ = eng.CompileCriteria(context.Background(), "nope", nil)

	out := buf.String()
	if !strings.Contains(out, "operation completed") {
		t.Errorf("missing debug line: %s", out)
	}
	if !strings.Contains(out, "operation failed") || !strings.Contains(out, "view=nope") {
		t.Errorf("missing failure line: %s", out)
	}
}

func TestObserver_Nil(t *testing.T) {
	var o *observer
	o.observe("noop", "", time.Now(), nil)
}

func TestRegisterOrReuse_IncompatibleType(t *testing.T) {
	reg := prometheus.NewRegistry()
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "entrydex", Subsystem: "sdk", Name: "operations_total", Help: "conflict",
	})
	if err := reg.Register(gauge); err != nil {
		t.Fatalf("register gauge: %v", err)
	}
	if _, err := newSDKMetrics(reg); err == nil {
		t.Fatal("expected error for conflicting collector")
	}
}
