// Package entry stores form entries as Redis hashes and queries them through
// one FT index per form.
package entry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/db"
	"github.com/kailas-cloud/entrydex/internal/domain"
	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	domentry "github.com/kailas-cloud/entrydex/internal/domain/entry"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
	"github.com/kailas-cloud/entrydex/internal/logger"
)

// DefaultKeyPrefix namespaces every key and index.
const DefaultKeyPrefix = "entrydex:"

// batchSize is the FT.SEARCH page used to drain an unlimited query.
const batchSize = 500

// store is the consumer interface for entries (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, key string) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	SearchCount(ctx context.Context, index, query string) (int, error)
	TagValues(ctx context.Context, index, field string) ([]string, error)
}

// Repo implements the entry store over db.Store.
type Repo struct {
	store  store
	prefix string

	mu     sync.RWMutex
	schema map[string]map[string]bool // form id -> indexed field ids
}

// New creates an entry repository. An empty prefix uses DefaultKeyPrefix.
func New(s store, prefix string) *Repo {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Repo{store: s, prefix: prefix, schema: make(map[string]map[string]bool)}
}

// Register records the indexed fields of a form without touching Redis.
func (r *Repo) Register(form *view.Form) {
	ids := make(map[string]bool, len(form.Fields()))
	for _, ff := range form.Fields() {
		ids[ff.ID] = true
	}
	r.mu.Lock()
	r.schema[form.ID()] = ids
	r.mu.Unlock()
}

// EnsureIndex registers the form and creates its FT index when missing.
func (r *Repo) EnsureIndex(ctx context.Context, form *view.Form) error {
	r.Register(form)

	def, err := buildIndex(r.prefix, form)
	if err != nil {
		return fmt.Errorf("build index for form %s: %w", form.ID(), err)
	}
	exists, err := r.store.IndexExists(ctx, def.Name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", def.Name, err)
	}
	if exists {
		return nil
	}
	if err := r.store.CreateIndex(ctx, def); err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", def.Name, err)
	}
	logger.FromContext(ctx).Info("Entry index created",
		zap.String("form_id", form.ID()),
		zap.String("index", def.Name),
		zap.Int("attributes", len(def.Fields)),
	)
	return nil
}

// Upsert writes entries in one pipelined round-trip.
func (r *Repo) Upsert(ctx context.Context, entries []domentry.Entry) error {
	items := make([]db.HashSetItem, len(entries))
	for i, en := range entries {
		items[i] = db.HashSetItem{
			Key:    entryKey(r.prefix, en.FormID(), en.ID()),
			Fields: buildHashFields(en),
		}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset entries: %w", err)
	}
	return nil
}

// Delete removes one entry.
func (r *Repo) Delete(ctx context.Context, formID, id string) error {
	if err := r.store.Del(ctx, entryKey(r.prefix, formID, id)); err != nil {
		return fmt.Errorf("del entry %s: %w", id, err)
	}
	return nil
}

// Get returns one entry of a form.
func (r *Repo) Get(ctx context.Context, formID, id string) (domentry.Entry, error) {
	key := entryKey(r.prefix, formID, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domentry.Entry{}, domain.ErrNotFound
		}
		return domentry.Entry{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return parseHashFields(formID, m), nil
}

// Query returns one page of active entries matching c. A page size of 0
// drains every match in batches.
func (r *Repo) Query(ctx context.Context, c criteria.SearchCriteria) (domentry.Page, error) {
	formID := c.FormID()
	if formID == "" {
		return domentry.Page{}, errors.New("criteria carry no form id")
	}
	indexed := r.indexed(formID)

	q, ok := buildQuery(c, indexed)
	if !ok {
		logger.FromContext(ctx).Debug("Criteria cannot match, skipping search", zap.String("form_id", formID))
		return domentry.Page{}, nil
	}

	sq := &db.SearchQuery{Index: indexName(r.prefix, formID), Query: q}
	if s := c.Sort(); s != nil {
		if attr, ok := sortAttr(s.Field, indexed); ok {
			sq.SortBy = attr
			sq.SortDesc = s.Direction == criteria.Desc
		}
	}

	paging := c.Paging()
	if paging.PageSize > 0 {
		sq.Offset, sq.Limit = paging.Offset(), paging.PageSize
		res, err := r.search(ctx, sq)
		if err != nil {
			return domentry.Page{}, err
		}
		return domentry.Page{Entries: r.hydrate(formID, res.Entries), Total: res.Total}, nil
	}

	var page domentry.Page
	sq.Limit = batchSize
	for {
		res, err := r.search(ctx, sq)
		if err != nil {
			return domentry.Page{}, err
		}
		page.Total = res.Total
		page.Entries = append(page.Entries, r.hydrate(formID, res.Entries)...)
		sq.Offset += batchSize
		if len(res.Entries) == 0 || sq.Offset >= res.Total {
			return page, nil
		}
	}
}

// Count returns the number of active entries of a form.
func (r *Repo) Count(ctx context.Context, formID string) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName(r.prefix, formID), "@"+attrStatus+":{"+string(domentry.StatusActive)+"}")
	if err != nil {
		return 0, fmt.Errorf("search count form %s: %w", formID, err)
	}
	return n, nil
}

// DistinctValues lists the sorted distinct stored values of a field.
func (r *Repo) DistinctValues(ctx context.Context, formID, field string) ([]string, error) {
	if !r.indexed(formID)(field) {
		return nil, nil
	}
	vals, err := r.store.TagValues(ctx, indexName(r.prefix, formID), alias(field))
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("tagvals %s: %w", field, err)
	}
	sort.Strings(vals)
	return vals, nil
}

func (r *Repo) search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	res, err := r.store.Search(ctx, q)
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return &db.SearchResult{}, nil
		}
		return nil, fmt.Errorf("search %s: %w", q.Index, err)
	}
	return res, nil
}

func (r *Repo) hydrate(formID string, hits []db.SearchEntry) []domentry.Entry {
	out := make([]domentry.Entry, 0, len(hits))
	keyPrefix := formPrefix(r.prefix, formID)
	for _, h := range hits {
		if h.Fields == nil {
			h.Fields = map[string]string{}
		}
		if h.Fields[attrID] == "" {
			h.Fields[attrID] = strings.TrimPrefix(h.Key, keyPrefix)
		}
		out = append(out, parseHashFields(formID, h.Fields))
	}
	return out
}

func (r *Repo) indexed(formID string) func(string) bool {
	r.mu.RLock()
	ids := r.schema[formID]
	r.mu.RUnlock()
	return func(id string) bool { return ids[id] }
}
