// Package progress defines the per-address outcome events emitted by the
// verifier and the content filter, and the hub that batches them.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind denotes which pipeline produced an Event.
type Kind string

// Supported event kinds.
const (
	KindProbe Kind = "PROBE"
	KindScan  Kind = "SCAN"
)

// Outcome is the per-address result carried by an Event.
type Outcome string

// Supported outcomes per kind.
const (
	OutcomeAlive Outcome = "alive"
	OutcomeDead  Outcome = "dead"
	OutcomeMatch Outcome = "match"
	OutcomeMiss  Outcome = "miss"
)

// Event captures the outcome of processing a single address.
type Event struct {
	// RunID identifies the run that produced the event.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Kind denotes the producing pipeline.
	Kind Kind
	// Outcome is the per-address result.
	Outcome Outcome
	// Address is the endpoint the event describes.
	Address string
	// Keywords carries matched terms for scan match events.
	Keywords []string
	// Title is the extracted document title for scan match events.
	Title string
	// Dur captures fetch latency.
	Dur time.Duration
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	if e.Address == "" {
		return errors.New("address is required")
	}
	switch e.Kind {
	case KindProbe:
		if e.Outcome != OutcomeAlive && e.Outcome != OutcomeDead {
			return fmt.Errorf("invalid probe outcome %q", e.Outcome)
		}
	case KindScan:
		if e.Outcome != OutcomeMatch && e.Outcome != OutcomeMiss {
			return fmt.Errorf("invalid scan outcome %q", e.Outcome)
		}
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
