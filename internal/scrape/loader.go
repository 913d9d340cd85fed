package scrape

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// backoffCap bounds the inter-retry delay.
const backoffCap = 15

// Loader acquires fully loaded pages, retrying transient failures with a
// linearly increasing backoff capped at 15 seconds, under a wall-clock
// budget measured from the first attempt.
type Loader struct {
	browser Browser
	clock   Clock
	sleeper Sleeper
	logger  *zap.Logger
}

// NewLoader builds a Loader on top of a page session.
func NewLoader(browser Browser, clock Clock, sleeper Sleeper, logger *zap.Logger) *Loader {
	return &Loader{
		browser: browser,
		clock:   clock,
		sleeper: sleeper,
		logger:  logger,
	}
}

// Acquire fetches url, retrying network failures, missing responses and
// non-200 statuses. Once budget wall-clock time has elapsed the loop stops
// and fails with TimeoutExceededError carrying the last underlying error.
func (l *Loader) Acquire(ctx context.Context, url, service string, budget time.Duration) (*Response, error) {
	start := l.clock.Now()
	attempt := 0
	for {
		resp, err := l.tryOnce(ctx, url)
		if err == nil {
			return resp, nil
		}

		attempt++
		LoadRetries.Inc()
		l.logger.Warn("page load failed",
			zap.String("service", service),
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)

		if elapsed := l.clock.Now().Sub(start); elapsed > budget {
			LoadFailures.Inc()
			return nil, &TimeoutExceededError{
				Service: service,
				URL:     url,
				Elapsed: elapsed,
				Last:    err,
			}
		}

		delay := time.Duration(min(attempt, backoffCap)) * time.Second
		if serr := l.sleeper.Sleep(ctx, delay); serr != nil {
			return nil, fmt.Errorf("retry backoff: %w", serr)
		}
	}
}

// tryOnce opens a page, navigates, and classifies the outcome. The page is
// always closed before returning so failed attempts do not leak sessions
// across retries.
func (l *Loader) tryOnce(ctx context.Context, url string) (*Response, error) {
	page, err := l.browser.NewPage(ctx)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer func() {
		if cerr := page.Close(ctx); cerr != nil {
			l.logger.Debug("page close failed", zap.String("url", url), zap.Error(cerr))
		}
	}()

	resp, err := page.Navigate(ctx, url)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	if resp == nil {
		return nil, fmt.Errorf("%s: %w", url, ErrNoResponse)
	}
	if resp.Status != http.StatusOK {
		return nil, &BadStatusError{URL: url, Status: resp.Status}
	}
	return resp, nil
}
