// Package verifier drives concurrent liveness probes against the link store.
package verifier

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/onionwatch/onionwatch/internal/progress"
	"github.com/onionwatch/onionwatch/internal/tracker"
)

// Config controls Verifier behavior.
type Config struct {
	// Workers is the fixed size of the probe pool. Must be > 0.
	Workers int
}

// Stats aggregates a run's probe outcomes.
type Stats struct {
	Alive     int64
	Dead      int64
	Processed int64
}

// Verifier probes candidate addresses with a bounded worker pool and persists
// each outcome. Addresses are assumed pre-deduplicated, so workers never write
// the same key within a run.
type Verifier struct {
	store   tracker.LinkStore
	fetcher tracker.Fetcher
	clock   tracker.Clock
	emitter progress.Emitter
	logger  *zap.Logger
	cfg     Config
}

// New constructs a Verifier.
func New(
	store tracker.LinkStore,
	fetcher tracker.Fetcher,
	clock tracker.Clock,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 100
	}
	return &Verifier{
		store:   store,
		fetcher: fetcher,
		clock:   clock,
		emitter: emitter,
		logger:  logger,
		cfg:     cfg,
	}
}

// Run probes every address and blocks until all have been processed. The work
// queue is populated up front and closed; closing the channel is the shutdown
// signal for the pool, and the WaitGroup is the completion barrier that
// guarantees no address is left unprocessed when Run returns.
func (v *Verifier) Run(ctx context.Context, addresses []string) Stats {
	runID := uuid.New()
	now := v.clock.Now()

	v.logger.Info("spawning verification pool",
		zap.Int("workers", v.cfg.Workers),
		zap.Int("addresses", len(addresses)),
	)

	queue := make(chan string, len(addresses))
	for _, addr := range addresses {
		queue <- addr
	}
	close(queue)

	var stats Stats
	var wg sync.WaitGroup
	for i := 0; i < v.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for addr := range queue {
				v.probeOne(ctx, runID, addr, now, &stats)
			}
		}()
	}
	wg.Wait()

	v.logger.Info("verification finished",
		zap.Int64("alive", atomic.LoadInt64(&stats.Alive)),
		zap.Int64("dead", atomic.LoadInt64(&stats.Dead)),
	)
	return Stats{
		Alive:     atomic.LoadInt64(&stats.Alive),
		Dead:      atomic.LoadInt64(&stats.Dead),
		Processed: atomic.LoadInt64(&stats.Processed),
	}
}

// probeOne performs the single best-effort probe for one address and persists
// the transition. No retry: liveness is re-checked every scheduled run, so a
// transient failure self-corrects on the next one.
func (v *Verifier) probeOne(ctx context.Context, runID uuid.UUID, addr string, now time.Time, stats *Stats) {
	resp, err := v.fetcher.Fetch(ctx, addr)
	alive := err == nil && resp.StatusCode < 500

	if storeErr := v.store.RecordProbe(ctx, addr, alive, now); storeErr != nil {
		// The address's state update is lost for this run; the next scheduled
		// run converges it.
		v.logger.Error("store write failed",
			zap.String("address", addr),
			zap.Error(storeErr),
		)
		return
	}

	atomic.AddInt64(&stats.Processed, 1)
	outcome := progress.OutcomeDead
	if alive {
		outcome = progress.OutcomeAlive
		atomic.AddInt64(&stats.Alive, 1)
	} else {
		atomic.AddInt64(&stats.Dead, 1)
	}

	if v.emitter != nil {
		v.emitter.Emit(progress.Event{
			RunID:   runID,
			TS:      v.clock.Now(),
			Kind:    progress.KindProbe,
			Outcome: outcome,
			Address: addr,
			Dur:     resp.Duration,
		})
	}
}
