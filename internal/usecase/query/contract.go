package query

import (
	"context"

	"github.com/kailas-cloud/entrydex/internal/domain/criteria"
	"github.com/kailas-cloud/entrydex/internal/domain/entry"
)

// Store is the entry store consumed by the executor.
type Store interface {
	Query(ctx context.Context, c criteria.SearchCriteria) (entry.Page, error)
	Get(ctx context.Context, formID, id string) (entry.Entry, error)
}
