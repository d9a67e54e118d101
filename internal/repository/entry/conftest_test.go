package entry

import (
	"context"
	"testing"
	"time"

	"github.com/kailas-cloud/entrydex/internal/db"
	domentry "github.com/kailas-cloud/entrydex/internal/domain/entry"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetMultiFn   func(ctx context.Context, items []db.HashSetItem) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	delFn         func(ctx context.Context, key string) error
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	searchFn      func(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
	tagValuesFn   func(ctx context.Context, index, field string) ([]string, error)
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	if m.hsetMultiFn != nil {
		return m.hsetMultiFn(ctx, items)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Del(ctx context.Context, key string) error {
	if m.delFn != nil {
		return m.delFn(ctx, key)
	}
	return nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if m.searchFn != nil {
		return m.searchFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func (m *mockStore) TagValues(ctx context.Context, index, field string) ([]string, error) {
	if m.tagValuesFn != nil {
		return m.tagValuesFn(ctx, index, field)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, "")
	repo.Register(testForm(t))
	return repo, ms
}

func testForm(t *testing.T) *view.Form {
	t.Helper()
	f, err := view.NewForm("3", "Contacts", []view.FormField{
		{ID: "1", Label: "Name", Type: "text"},
		{ID: "2", Label: "City", Type: "select"},
		{ID: "4.1", Label: "Tags", Type: "multiselect"},
		{ID: "5", Label: "Location", Type: "text"},
	})
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func testEntry(t *testing.T) domentry.Entry {
	t.Helper()
	en, err := domentry.New("7", "3", domentry.Meta{
		Approved:    true,
		DateCreated: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC),
	}, map[string]string{
		"1":   "Clara Thompson",
		"2":   "Oslo",
		"4.1": `["vip","new"]`,
		"5":   "59.91,10.75",
		"6":   "42",
	})
	if err != nil {
		t.Fatal(err)
	}
	return en
}
