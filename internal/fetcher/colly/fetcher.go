// Package collyfetcher implements tracker.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/onionwatch/onionwatch/internal/tracker"
)

// Config controls fetch behavior.
type Config struct {
	// UserAgent is sent on every request.
	UserAgent string
	// Timeout bounds the whole request including proxy dialing.
	Timeout time.Duration
	// Proxy is an optional proxy URL, typically socks5://127.0.0.1:9050 so
	// hidden services resolve through Tor. Empty means direct connections.
	Proxy string
}

// Fetcher performs single GET requests through the Colly collector. Redirects
// are followed; HTTP error statuses are returned as responses, not errors.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
}

// New builds a Fetcher. The proxy URL, when set, must parse. The timeout and
// user agent are fixed on the base collector here; clones share its backend,
// so mutating either per request would race across worker goroutines.
func New(cfg Config) (*Fetcher, error) {
	transport, err := newTransport(cfg.Proxy)
	if err != nil {
		return nil, err
	}

	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.ParseHTTPErrorResponse(),
	)
	c.WithTransport(transport)

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	c.SetRequestTimeout(timeout)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
	}, nil
}

// Fetch executes a single HTTP GET using Colly.
func (f *Fetcher) Fetch(ctx context.Context, target string) (tracker.FetchResponse, error) {
	var (
		result   tracker.FetchResponse
		fetchErr error
	)
	start := time.Now()

	collector := f.baseCollector.Clone()
	collector.OnResponse(func(r *colly.Response) {
		result = tracker.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := runCollector(ctx, collector, target, &fetchErr); err != nil {
		return tracker.FetchResponse{}, err
	}
	return result, nil
}

func runCollector(ctx context.Context, collector *colly.Collector, target string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(target)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("fetch failed: %w", *fetchErr)
		}
		return nil
	}
}

func newTransport(proxy string) (*http.Transport, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		// Hidden services routinely present self-signed certificates.
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
	}
	if proxy == "" {
		transport.Proxy = http.ProxyFromEnvironment
		return transport, nil
	}
	proxyURL, err := url.Parse(proxy)
	if err != nil {
		return nil, fmt.Errorf("parse proxy url: %w", err)
	}
	transport.Proxy = http.ProxyURL(proxyURL)
	return transport, nil
}
