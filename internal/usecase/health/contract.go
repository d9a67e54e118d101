package health

import "context"

// DBPinger checks entry store availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// ViewCounter reports how many views are loaded.
type ViewCounter interface {
	Count(ctx context.Context) (int, error)
}
