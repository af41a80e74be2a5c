package scanning

import (
	"context"
	"errors"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"google.golang.org/api/googleapi"
)

// Retry policy for rate-limited OCR calls. Attempts are bounded; after the
// last one the throttle error surfaces to the caller.
const (
	maxAttempts = 4
	baseBackoff = 2 * time.Second
)

var retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "summit_sync_ocr_retries_total",
	Help: "Number of OCR calls retried after a provider throttle response.",
})

// isRateLimited reports whether an error is a provider throttle response.
func isRateLimited(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusTooManyRequests
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "rate limit")
}

// withRateLimitRetry runs fn, retrying throttle failures with exponential
// backoff plus jitter. Any other error returns immediately.
func withRateLimitRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); err == nil || !isRateLimited(err) {
			return err
		}

		retriesTotal.Inc()
		backoff := baseBackoff << attempt
		jitter := time.Duration(rand.Int63n(int64(baseBackoff)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
