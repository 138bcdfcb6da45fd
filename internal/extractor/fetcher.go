package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	apperrors "popflow/internal/errors"
	"popflow/internal/infrastructure"
)

// userAgents is rotated across requests so repeated polling does not present
// a single fingerprint to the source sites.
var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
}

// Fetcher retrieves source pages over plain HTTP GET with retries on server
// errors and a politeness rate limit shared across all workers.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	retries int
	logger  *slog.Logger

	uaIndex atomic.Uint64
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Timeout           time.Duration
	RequestsPerSecond float64
	Retries           int
}

// NewFetcher creates a fetcher. Zero config fields get conservative defaults.
func NewFetcher(cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 0.5
	}
	if cfg.Retries <= 0 {
		cfg.Retries = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		retries: cfg.Retries,
		logger:  logger.With(slog.String("component", "fetcher")),
	}
}

// Fetch retrieves one page. Retries happen on 5xx responses with linear
// backoff; 4xx responses fail immediately.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= f.retries; attempt++ {
		if err := f.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("%w: %v", apperrors.ErrFetch, err)
		}

		body, status, err := f.get(ctx, url)
		switch {
		case err != nil:
			lastErr = err
		case status == http.StatusOK:
			return body, nil
		case status >= 500:
			lastErr = fmt.Errorf("status %d", status)
		default:
			return "", fmt.Errorf("%w: %s returned status %d", apperrors.ErrFetch, url, status)
		}

		f.logger.WarnContext(ctx, "fetch attempt failed",
			slog.String("url", url),
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()))

		if attempt < f.retries {
			select {
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", apperrors.ErrFetch, ctx.Err())
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}
	return "", fmt.Errorf("%w: %s: %v", apperrors.ErrFetch, url, lastErr)
}

func (f *Fetcher) get(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, err
	}
	req.Header.Set("User-Agent", f.nextUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", resp.StatusCode, err
	}
	return string(body), resp.StatusCode, nil
}

// nextUserAgent rotates through userAgents. FetchAll calls this from
// concurrent workers, so the counter is atomic.
func (f *Fetcher) nextUserAgent() string {
	n := f.uaIndex.Add(1) - 1
	return userAgents[n%uint64(len(userAgents))]
}

// Page is the raw result of fetching one source URL.
type Page struct {
	URL  string
	Body string
	Err  error
}

// FetchAll retrieves all URLs through a bounded worker pool and joins the
// results before returning. Result order follows the input URL order so the
// reconciliation fold sees sources in priority order regardless of which
// worker finished first.
func (f *Fetcher) FetchAll(ctx context.Context, urls []string, concurrency int) []Page {
	if concurrency <= 0 {
		concurrency = 4
	}

	pages := make([]Page, len(urls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, url := range urls {
		i, url := i, url
		g.Go(func() error {
			body, err := f.Fetch(gctx, url)
			if err != nil {
				infrastructure.FetchTotal.WithLabelValues("error").Inc()
			} else {
				infrastructure.FetchTotal.WithLabelValues("ok").Inc()
			}
			pages[i] = Page{URL: url, Body: body, Err: err}
			// Fetch failures never abort the pool; the page simply
			// contributes nothing downstream.
			return nil
		})
	}
	g.Wait()
	return pages
}
