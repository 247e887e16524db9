package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	fetchTimeout     = 10 * time.Second
	maxFetchAttempts = 3
)

// Client fetches scraped feeds from external sources. Only this fetch step is
// retried (linear backoff: 1s, 2s); persistence and delivery downstream never
// are.
type Client struct {
	http      *http.Client
	retryWait time.Duration
	log       *zap.SugaredLogger
}

func NewClient(log *zap.SugaredLogger) *Client {
	return &Client{
		http:      &http.Client{Timeout: fetchTimeout},
		retryWait: time.Second,
		log:       log,
	}
}

// FetchJSON GETs the URL and decodes the JSON body into v, retrying transient
// failures up to maxFetchAttempts times.
func (c *Client) FetchJSON(ctx context.Context, url string, v interface{}) error {
	var lastErr error
	for attempt := 1; attempt <= maxFetchAttempts; attempt++ {
		lastErr = c.fetchOnce(ctx, url, v)
		if lastErr == nil {
			return nil
		}
		c.log.Warnw("Fetch attempt failed", "url", url, "attempt", attempt, "error", lastErr)

		if attempt < maxFetchAttempts {
			select {
			case <-time.After(time.Duration(attempt) * c.retryWait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return fmt.Errorf("fetch failed after %d attempts: %w", maxFetchAttempts, lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, url string, v interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}
