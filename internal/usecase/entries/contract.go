package entries

import (
	"context"

	domaccess "github.com/kailas-cloud/entrydex/internal/domain/access"
	"github.com/kailas-cloud/entrydex/internal/domain/view"
	"github.com/kailas-cloud/entrydex/internal/usecase/access"
	"github.com/kailas-cloud/entrydex/internal/usecase/query"
)

// ViewSource returns parsed views by id or slug.
type ViewSource interface {
	Get(ctx context.Context, id string) (view.View, error)
}

// Store is the entry store plus the distinct-value lookup used to prune
// search choices.
type Store interface {
	query.Store
	DistinctValues(ctx context.Context, formID, field string) ([]string, error)
}

// Policy decides view access.
type Policy interface {
	CanAccessView(v view.View, req access.Request) domaccess.Decision
}

// NonceVerifier checks export nonces.
type NonceVerifier interface {
	Verify(viewID, nonce string) error
}
