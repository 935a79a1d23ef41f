package fetcher

import (
	"context"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// HTTPOptions configures the HTTP source fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Limiter    *rate.Limiter
}

// HTTPFetcher downloads contractor feeds over HTTP with retry and an
// optional rate limiter, for hosts that throttle bulk pulls.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions
}

// NewHTTPFetcher creates an HTTPFetcher with sane defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "contractor-hub/1.0"
	}
	return &HTTPFetcher{
		client: &http.Client{Timeout: opts.Timeout},
		opts:   opts,
	}
}

// Download fetches the URL and returns the response body. Retries with
// exponential backoff on 5xx and transport errors; 4xx fails immediately.
func (f *HTTPFetcher) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	var lastErr error

	for attempt := 0; attempt <= f.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second
			zap.L().Debug("http: retrying download",
				zap.String("url", url),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "http: context cancelled")
			}
		}

		if f.opts.Limiter != nil {
			if err := f.opts.Limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "http: rate limit wait")
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, eris.Wrapf(err, "http: build request %s", url)
		}
		req.Header.Set("User-Agent", f.opts.UserAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			lastErr = eris.Wrapf(err, "http: get %s", url)
			continue
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return resp.Body, nil
		case resp.StatusCode >= 500:
			resp.Body.Close()
			lastErr = eris.Errorf("http: %s returned %d", url, resp.StatusCode)
		default:
			resp.Body.Close()
			return nil, eris.Errorf("http: %s returned %d", url, resp.StatusCode)
		}
	}

	return nil, eris.Wrapf(lastErr, "http: exhausted %d retries", f.opts.MaxRetries)
}
