// Package query runs compiled criteria against the entry store.
package query

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/entrydex/internal/domain"
	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	"github.com/kailas-cloud/entrydex/internal/domain/entry"
	"github.com/kailas-cloud/entrydex/internal/logger"
	"github.com/kailas-cloud/entrydex/internal/metrics"
)

// Executor adds paging passthrough and approval gating around the store.
type Executor struct {
	store Store
}

// New creates an Executor.
func New(store Store) *Executor {
	return &Executor{store: store}
}

// Execute queries the store once. Paging is forwarded as-is, so a page size
// of 0 reaches the store as "no limit". When the criteria are approved-only,
// unapproved entries the store returned are removed from the page and from
// the total. Store failures are returned without retry.
func (e *Executor) Execute(ctx context.Context, c criteria.SearchCriteria) (entry.Page, error) {
	start := time.Now()
	page, err := e.store.Query(ctx, c)
	observe("query", start, err)
	if err != nil {
		return entry.Page{}, storeError("query", err)
	}

	if !c.ApprovedOnly() {
		return page, nil
	}

	kept := make([]entry.Entry, 0, len(page.Entries))
	for _, en := range page.Entries {
		if en.IsApproved() {
			kept = append(kept, en)
		}
	}
	dropped := len(page.Entries) - len(kept)
	if dropped > 0 {
		logger.FromContext(ctx).Debug("Unapproved entries removed from page",
			zap.Int("dropped", dropped),
		)
	}
	total := page.Total - dropped
	if total < len(kept) {
		total = len(kept)
	}
	return entry.Page{Entries: kept, Total: total}, nil
}

// Get loads one active entry. With approvedOnly, an unapproved entry is
// denied with entry_not_accessible.
func (e *Executor) Get(ctx context.Context, formID, id string, approvedOnly bool) (entry.Entry, error) {
	start := time.Now()
	en, err := e.store.Get(ctx, formID, id)
	observe("get", start, err)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return entry.Entry{}, err
		}
		return entry.Entry{}, storeError("get", err)
	}
	if approvedOnly && !en.IsApproved() {
		return entry.Entry{}, domain.NewAccessDenied(domain.ReasonEntryNotAccessible)
	}
	if en.Status() != entry.StatusActive {
		return entry.Entry{}, domain.ErrNotFound
	}
	return en, nil
}

func observe(op string, start time.Time, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.StoreQueryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

// storeError tags err with ErrStore, keeping an existing StoreError intact.
func storeError(op string, err error) error {
	if errors.Is(err, domain.ErrStore) {
		return err
	}
	return &domain.StoreError{Op: op, Err: err}
}
