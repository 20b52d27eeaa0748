package tracker

import (
	"context"
	"time"
)

// Fetcher performs a single HTTP GET. Transport-level failures (timeout,
// refused connection, proxy errors) are returned as errors; any HTTP response,
// including 4xx/5xx, is returned as a value.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (FetchResponse, error)
}

// LinkStore persists liveness state per address.
type LinkStore interface {
	// RecordProbe transitions the record for address based on a probe outcome.
	// The row is created on first probe. Status is always overwritten;
	// last_seen is overwritten only when alive is true.
	RecordProbe(ctx context.Context, address string, alive bool, observedAt time.Time) error

	// GetLink returns the record for address, reporting whether it exists.
	GetLink(ctx context.Context, address string) (LinkRecord, bool, error)

	// ListAlive enumerates every address currently marked alive, sorted.
	ListAlive(ctx context.Context) ([]string, error)

	// DeleteDeadBefore removes dead rows whose last_seen is null or older than
	// cutoff, returning the number of rows deleted. Alive rows are never
	// touched regardless of age.
	DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// FilterStore persists keyword matches per address with replace semantics.
type FilterStore interface {
	UpsertMatch(ctx context.Context, record FilterRecord) error
	GetMatch(ctx context.Context, address string) (FilterRecord, bool, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
