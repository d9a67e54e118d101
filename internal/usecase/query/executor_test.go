package query

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/entrydex/internal/domain"
	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	"github.com/kailas-cloud/entrydex/internal/domain/entry"
)

type mockStore struct {
	queryFn func(ctx context.Context, c criteria.SearchCriteria) (entry.Page, error)
	getFn   func(ctx context.Context, formID, id string) (entry.Entry, error)
}

func (m *mockStore) Query(ctx context.Context, c criteria.SearchCriteria) (entry.Page, error) {
	return m.queryFn(ctx, c)
}

func (m *mockStore) Get(ctx context.Context, formID, id string) (entry.Entry, error) {
	return m.getFn(ctx, formID, id)
}

func mkEntry(id string, approved bool) entry.Entry {
	return entry.Reconstruct(id, "1", entry.Meta{Approved: approved}, map[string]string{"name": "n" + id})
}

func mustCriteria(t *testing.T, pageSize int) criteria.SearchCriteria {
	t.Helper()
	c, err := criteria.New(nil, criteria.ModeAny, criteria.Paging{Page: 1, PageSize: pageSize})
	require.NoError(t, err)
	return c
}

func TestExecute_PageSizeZeroPassthrough(t *testing.T) {
	var seen []int
	store := &mockStore{queryFn: func(_ context.Context, c criteria.SearchCriteria) (entry.Page, error) {
		seen = append(seen, c.Paging().PageSize)
		return entry.Page{}, nil
	}}

	for _, size := range []int{0, 0, 25, 0} {
		_, err := New(store).Execute(context.Background(), mustCriteria(t, size))
		require.NoError(t, err)
	}
	assert.Equal(t, []int{0, 0, 25, 0}, seen)
}

func TestExecute_ApprovedOnlyFiltersEntriesAndTotal(t *testing.T) {
	entries := []entry.Entry{mkEntry("1", true), mkEntry("2", false), mkEntry("3", true), mkEntry("4", false)}
	store := &mockStore{queryFn: func(_ context.Context, c criteria.SearchCriteria) (entry.Page, error) {
		assert.True(t, c.ApprovedOnly(), "approval flag must reach the store")
		return entry.Page{Entries: entries, Total: 10}, nil
	}}

	page, err := New(store).Execute(context.Background(), mustCriteria(t, 4).WithApprovedOnly(true))
	require.NoError(t, err)

	require.Len(t, page.Entries, 2)
	assert.Equal(t, "1", page.Entries[0].ID())
	assert.Equal(t, "3", page.Entries[1].ID())
	assert.Equal(t, 8, page.Total)
	assert.Len(t, entries, 4, "store slice must not be modified")
	assert.False(t, entries[1].IsApproved())
}

func TestExecute_NoApprovalGate(t *testing.T) {
	store := &mockStore{queryFn: func(context.Context, criteria.SearchCriteria) (entry.Page, error) {
		return entry.Page{Entries: []entry.Entry{mkEntry("1", false)}, Total: 1}, nil
	}}
	page, err := New(store).Execute(context.Background(), mustCriteria(t, 10))
	require.NoError(t, err)
	assert.Len(t, page.Entries, 1)
	assert.Equal(t, 1, page.Total)
}

func TestExecute_StoreErrorPropagatesWithoutRetry(t *testing.T) {
	cause := errors.New("connection refused")
	calls := 0
	store := &mockStore{queryFn: func(context.Context, criteria.SearchCriteria) (entry.Page, error) {
		calls++
		return entry.Page{}, cause
	}}

	_, err := New(store).Execute(context.Background(), mustCriteria(t, 10))
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.ErrorIs(t, err, domain.ErrStore)
	assert.ErrorIs(t, err, cause)

	already := &domain.StoreError{Op: "FT.SEARCH", Err: cause}
	store.queryFn = func(context.Context, criteria.SearchCriteria) (entry.Page, error) {
		return entry.Page{}, already
	}
	_, err = New(store).Execute(context.Background(), mustCriteria(t, 10))
	assert.Same(t, already, err)
}

func TestGet(t *testing.T) {
	spam := entry.Reconstruct("9", "1", entry.Meta{Status: entry.StatusSpam, Approved: true}, nil)
	store := &mockStore{getFn: func(_ context.Context, _, id string) (entry.Entry, error) {
		switch id {
		case "1":
			return mkEntry("1", true), nil
		case "2":
			return mkEntry("2", false), nil
		case "9":
			return spam, nil
		default:
			return entry.Entry{}, domain.ErrNotFound
		}
	}}
	ex := New(store)

	en, err := ex.Get(context.Background(), "1", "1", true)
	require.NoError(t, err)
	assert.Equal(t, "1", en.ID())

	_, err = ex.Get(context.Background(), "1", "2", true)
	var ade *domain.AccessDeniedError
	require.ErrorAs(t, err, &ade)
	assert.Equal(t, domain.ReasonEntryNotAccessible, ade.Reason)

	_, err = ex.Get(context.Background(), "1", "2", false)
	assert.NoError(t, err)

	_, err = ex.Get(context.Background(), "1", "9", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = ex.Get(context.Background(), "1", "404", false)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrStore)
}
