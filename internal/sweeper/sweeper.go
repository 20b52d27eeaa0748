// Package sweeper prunes dead link records past their retention age.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/onionwatch/onionwatch/internal/tracker"
)

// Sweeper deletes dead records not seen alive within the retention threshold.
type Sweeper struct {
	store  tracker.LinkStore
	clock  tracker.Clock
	logger *zap.Logger
}

// New constructs a Sweeper.
func New(store tracker.LinkStore, clock tracker.Clock, logger *zap.Logger) *Sweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sweeper{store: store, clock: clock, logger: logger}
}

// Sweep removes every dead record whose last_seen is null or older than
// now minus days. Alive records are never touched regardless of age. The
// operation is idempotent; it returns the number of rows deleted.
func (s *Sweeper) Sweep(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("retention days must be > 0, got %d", days)
	}
	cutoff := s.clock.Now().Add(-time.Duration(days) * 24 * time.Hour)

	deleted, err := s.store.DeleteDeadBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete dead links: %w", err)
	}

	s.logger.Info("retention sweep complete",
		zap.Int64("deleted", deleted),
		zap.Int("retention_days", days),
	)
	return deleted, nil
}
