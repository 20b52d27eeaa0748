// Package tracker defines core types shared across subsystems.
package tracker

import "time"

// Status represents the liveness state persisted for a tracked address.
type Status string

// Liveness states stored in the link store.
const (
	StatusAlive Status = "alive"
	StatusDead  Status = "dead"
)

// LinkRecord is the durable row kept for each tracked address.
type LinkRecord struct {
	// Address is the tracked endpoint URL and the unique row key.
	Address string
	// Status is the outcome of the most recent probe.
	Status Status
	// LastSeen is the last time the address was observed alive, or nil if it
	// has never responded. A dead probe never clears it.
	LastSeen *time.Time
}

// FilterRecord is the durable row kept for each address whose most recent
// content scan produced at least one keyword match.
type FilterRecord struct {
	Address         string
	Title           string
	MatchedKeywords []string
	ContextSnippet  string
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}
