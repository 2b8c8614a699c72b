package accesslog

import (
	"context"
	"time"
)

// Store is an append-only event sink with bounded retention. Implementations
// trim to their configured cap after each append (FIFO, oldest evicted
// first); the age-based purge is a separate maintenance call.
type Store interface {
	Append(ctx context.Context, e Event) error
	Query(ctx context.Context, f Filter) ([]Event, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}
