// Package collector gathers candidate .onion addresses from source pages.
package collector

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/onionwatch/onionwatch/internal/tracker"
)

// addressPattern matches v2/v3 onion URLs in raw page text, with an optional
// path suffix. Scanning raw text instead of parsed anchors also catches
// addresses embedded in attributes or plain text.
var addressPattern = regexp.MustCompile(`https?://[a-zA-Z0-9\-.]{10,60}\.onion(?:/[^\s"'<]*)?`)

// Collector fetches configured source pages and extracts candidate addresses.
type Collector struct {
	fetcher tracker.Fetcher
	sources []string
	logger  *zap.Logger
}

// New constructs a Collector over the given source endpoints.
func New(fetcher tracker.Fetcher, sources []string, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{
		fetcher: fetcher,
		sources: append([]string(nil), sources...),
		logger:  logger,
	}
}

// Collect fetches every source and returns the deduplicated, sorted union of
// extracted addresses. A source that fails to fetch contributes zero results
// and is never fatal to the batch.
func (c *Collector) Collect(ctx context.Context) []string {
	seen := make(map[string]struct{})
	for _, src := range c.sources {
		for _, addr := range c.collectSource(ctx, src) {
			seen[addr] = struct{}{}
		}
	}

	addresses := make([]string, 0, len(seen))
	for addr := range seen {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	c.logger.Info("address collection complete", zap.Int("unique", len(addresses)))
	return addresses
}

func (c *Collector) collectSource(ctx context.Context, src string) []string {
	c.logger.Info("scraping source", zap.String("source", src))
	resp, err := c.fetcher.Fetch(ctx, src)
	if err != nil {
		c.logger.Error("source scrape failed", zap.String("source", src), zap.Error(err))
		return nil
	}

	found := extractAddresses(string(resp.Body))
	c.logger.Info("source scraped",
		zap.String("source", src),
		zap.Int("found", len(found)),
	)
	return found
}

// extractAddresses pulls candidate addresses out of raw text, trimming
// trailing slashes, whitespace, and broken-tag fragments, then dedupes within
// the text.
func extractAddresses(text string) []string {
	raw := addressPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, link := range raw {
		cleaned := strings.TrimRight(strings.TrimSpace(link), "/ \t\n<")
		if cleaned == "" {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		out = append(out, cleaned)
	}
	sort.Strings(out)
	return out
}
