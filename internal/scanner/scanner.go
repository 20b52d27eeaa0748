// Package scanner re-fetches alive addresses and records keyword matches.
package scanner

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/onionwatch/onionwatch/internal/progress"
	"github.com/onionwatch/onionwatch/internal/tracker"
)

// Config controls Scanner behavior.
type Config struct {
	// Keywords are matched as whole words, case-insensitively.
	Keywords []string
	// ScamPatterns is accepted for forward compatibility; no matching
	// semantics are defined for it yet.
	ScamPatterns []string
	// MaxAttempts bounds fetch retries per address (default 3).
	MaxAttempts int
	// RetryBaseDelay is slept before the first retry (default 3s).
	RetryBaseDelay time.Duration
	// RetryDelayStep is added per subsequent attempt (default 2s).
	RetryDelayStep time.Duration
	// SnippetBefore/SnippetAfter bound the context window around the first
	// match position in the body text (defaults 80/120).
	SnippetBefore int
	SnippetAfter  int
}

type keywordMatcher struct {
	term string
	re   *regexp.Regexp
}

// Scanner walks every alive address, extracts document features, and upserts
// keyword matches into the filter store. It is deliberately single-stream:
// the verifier has already bounded the candidate set, and per-address retry
// ordering stays trivial.
type Scanner struct {
	links    tracker.LinkStore
	matches  tracker.FilterStore
	fetcher  tracker.Fetcher
	clock    tracker.Clock
	emitter  progress.Emitter
	logger   *zap.Logger
	cfg      Config
	matchers []keywordMatcher
}

// New constructs a Scanner and compiles one whole-word pattern per keyword.
func New(
	links tracker.LinkStore,
	matches tracker.FilterStore,
	fetcher tracker.Fetcher,
	clock tracker.Clock,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 3 * time.Second
	}
	if cfg.RetryDelayStep <= 0 {
		cfg.RetryDelayStep = 2 * time.Second
	}
	if cfg.SnippetBefore <= 0 {
		cfg.SnippetBefore = 80
	}
	if cfg.SnippetAfter <= 0 {
		cfg.SnippetAfter = 120
	}

	matchers := make([]keywordMatcher, 0, len(cfg.Keywords))
	seen := make(map[string]struct{}, len(cfg.Keywords))
	for _, kw := range cfg.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		key := strings.ToLower(kw)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		matchers = append(matchers, keywordMatcher{
			term: kw,
			re:   regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`),
		})
	}

	return &Scanner{
		links:    links,
		matches:  matches,
		fetcher:  fetcher,
		clock:    clock,
		emitter:  emitter,
		logger:   logger,
		cfg:      cfg,
		matchers: matchers,
	}
}

// Result is the outcome of scanning a single address.
type Result struct {
	Title   string
	Matched []string
	Snippet string
}

// Run scans every currently-alive address in stable order. Only addresses with
// at least one keyword match mutate the filter store; everything else is
// logged and skipped. Per-address failures never abort the run.
func (s *Scanner) Run(ctx context.Context) error {
	addresses, err := s.links.ListAlive(ctx)
	if err != nil {
		return fmt.Errorf("list alive links: %w", err)
	}
	runID := uuid.New()
	s.logger.Info("scanning alive links", zap.Int("count", len(addresses)))

	for _, addr := range addresses {
		result := s.scan(ctx, addr)
		if len(result.Matched) == 0 {
			s.emit(runID, addr, progress.OutcomeMiss, result)
			continue
		}

		record := tracker.FilterRecord{
			Address:         addr,
			Title:           result.Title,
			MatchedKeywords: result.Matched,
			ContextSnippet:  result.Snippet,
		}
		if err := s.matches.UpsertMatch(ctx, record); err != nil {
			s.logger.Error("filter store write failed",
				zap.String("address", addr),
				zap.Error(err),
			)
			continue
		}
		s.emit(runID, addr, progress.OutcomeMatch, result)
	}

	s.logger.Info("deep filtering completed")
	return nil
}

// scan fetches one address with bounded retries and matches its features.
// Transport failures retry with a growing backoff; anything else (parse
// errors included) gives up immediately and yields an empty result.
func (s *Scanner) scan(ctx context.Context, addr string) Result {
	for attempt := 0; attempt < s.cfg.MaxAttempts; attempt++ {
		resp, err := s.fetcher.Fetch(ctx, addr)
		if err != nil {
			s.logger.Warn("fetch failed, will retry",
				zap.String("address", addr),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			if !s.sleep(ctx, s.cfg.RetryBaseDelay+time.Duration(attempt)*s.cfg.RetryDelayStep) {
				return Result{}
			}
			continue
		}

		features, err := extractFeatures(resp.Body)
		if err != nil {
			s.logger.Warn("extraction failed",
				zap.String("address", addr),
				zap.Error(err),
			)
			return Result{}
		}
		return s.match(features)
	}
	return Result{}
}

// match tests every configured keyword against the combined and body texts,
// keeping all hits in configured order.
func (s *Scanner) match(features Features) Result {
	haystack := features.Combined + " " + features.Body
	var matched []string
	for _, m := range s.matchers {
		if m.re.MatchString(haystack) {
			matched = append(matched, m.term)
		}
	}

	result := Result{Title: features.Title, Matched: matched}
	if len(matched) > 0 {
		result.Snippet = s.snippet(features.Body, matched[0])
	}
	return result
}

// snippet returns a bounded window around the first occurrence of term in the
// body text, clamped to text bounds. A term that matched only in a high-signal
// zone (meta content, say) has no body position; the window then anchors at
// position zero, yielding exactly the leading SnippetAfter bytes of the body.
func (s *Scanner) snippet(body, term string) string {
	pos := strings.Index(strings.ToLower(body), strings.ToLower(term))
	if pos < 0 {
		pos = 0
	}
	start := pos - s.cfg.SnippetBefore
	if start < 0 {
		start = 0
	}
	end := pos + s.cfg.SnippetAfter
	if end > len(body) {
		end = len(body)
	}
	return body[start:end]
}

func (s *Scanner) emit(runID uuid.UUID, addr string, outcome progress.Outcome, result Result) {
	if s.emitter == nil {
		return
	}
	s.emitter.Emit(progress.Event{
		RunID:    runID,
		TS:       s.clock.Now(),
		Kind:     progress.KindScan,
		Outcome:  outcome,
		Address:  addr,
		Keywords: result.Matched,
		Title:    result.Title,
	})
}

// sleep waits for d or until ctx is done, reporting whether the wait ran out
// normally.
func (s *Scanner) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
