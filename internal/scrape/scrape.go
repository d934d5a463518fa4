// Package scrape implements the site-specific fallback strategies used when
// the extraction engine is skipped or fails. Scrapers never return errors:
// every failure is logged and reported as a nil description.
package scrape

import (
	"context"
	"net/http"
	"time"

	"flashdl/internal/httputil"
	"flashdl/internal/media"
)

// DefaultTimeout bounds a single scraper request.
const DefaultTimeout = 10 * time.Second

// Scraper is a single fallback resolution strategy.
type Scraper interface {
	// Attempt returns a description of rawURL, or nil when the strategy found nothing.
	Attempt(ctx context.Context, rawURL string) *media.Description
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return httputil.NewClient(timeout)
}
