package collyfetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFetchReturnsBodyAndStatus(t *testing.T) {
	t.Parallel()

	var gotAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html>hello</html>"))
	}))
	defer srv.Close()

	f, err := New(Config{UserAgent: "onionwatch-test", Timeout: 2 * time.Second})
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "<html>hello</html>", string(resp.Body))
	require.Equal(t, "onionwatch-test", gotAgent)
	require.Positive(t, resp.Duration)
}

func TestFetchSurfacesServerErrorAsResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f, err := New(Config{Timeout: 2 * time.Second})
	require.NoError(t, err)

	resp, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFetchTransportFailureIsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	target := srv.URL
	srv.Close()

	f, err := New(Config{Timeout: time.Second})
	require.NoError(t, err)

	_, err = f.Fetch(context.Background(), target)
	require.Error(t, err)
}

func TestFetchAllowsRepeatVisits(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	f, err := New(Config{Timeout: 2 * time.Second})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		resp, err := f.Fetch(context.Background(), srv.URL)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
}

func TestFetchConcurrentRequestsShareOneClient(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(r.URL.Path))
	}))
	defer srv.Close()

	f, err := New(Config{UserAgent: "onionwatch-test", Timeout: 2 * time.Second})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			resp, err := f.Fetch(context.Background(), fmt.Sprintf("%s/probe/%d", srv.URL, n))
			if err != nil {
				errs <- err
				return
			}
			if resp.StatusCode != http.StatusOK {
				errs <- fmt.Errorf("unexpected status %d", resp.StatusCode)
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func TestNewRejectsMalformedProxy(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Proxy: "://bad"})
	require.Error(t, err)
}
