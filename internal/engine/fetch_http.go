package engine

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Doer is satisfied by *http.Client and *BrowserClient.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// DefaultDoer returns the browser client when configured, else the plain HTTP client.
func DefaultDoer() Doer {
	if cfg.BrowserClient != nil {
		return cfg.BrowserClient
	}
	if cfg.HTTPClient != nil {
		return cfg.HTTPClient
	}
	return NewHTTPClient(15 * time.Second)
}

// maxPageBytes bounds watch-page reads; YouTube watch pages run 1–2 MB.
const maxPageBytes = 6 * 1024 * 1024

// FetchPage performs an HTML GET with exponential backoff through the given doer.
// Non-retryable statuses fail immediately; 429/5xx are retried.
func FetchPage(ctx context.Context, doer Doer, pageURL string) ([]byte, error) {
	operation := func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, backoff.Permanent(err)
		}

		for k, v := range ChromeHeaders() {
			req.Header.Set(k, v)
		}

		resp, err := doer.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if IsRetryableStatus(resp.StatusCode) {
			return nil, fmt.Errorf("status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, backoff.Permanent(fmt.Errorf("status %d", resp.StatusCode))
		}
		return readResponseBody(resp, maxPageBytes)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	return backoff.Retry(ctx, operation, backoff.WithBackOff(bo), backoff.WithMaxTries(3), backoff.WithMaxElapsedTime(30*time.Second))
}

// readResponseBody reads up to limit bytes, handling gzip decompression if needed.
func readResponseBody(resp *http.Response, limit int64) ([]byte, error) {
	var r io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
	}
	return io.ReadAll(io.LimitReader(r, limit))
}

// ReadBody is readResponseBody for sub-packages.
func ReadBody(resp *http.Response, limit int64) ([]byte, error) {
	return readResponseBody(resp, limit)
}
