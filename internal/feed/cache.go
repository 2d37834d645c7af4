package feed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/domain/normalize"
	"github.com/stoik/phish-verdict/internal/ports"
)

// DefaultRefreshInterval is used when the cache is built with a non-positive interval
const DefaultRefreshInterval = 30 * time.Minute

type snapshot struct {
	urls     map[string]struct{}
	loadedAt time.Time
}

// Status describes the cache for health reporting
type Status struct {
	Size          int       `json:"size"`
	LastRefreshed time.Time `json:"last_refreshed"`
	LastError     string    `json:"last_error,omitempty"`
	Stale         bool      `json:"stale"`
}

// Cache holds the current set of known phishing URLs
//
// Readers load one immutable snapshot through an atomic pointer and never
// block. A successful load builds a new set and swaps it in whole; a failed
// load leaves the previous snapshot in place and is only recorded.
type Cache struct {
	source   ports.FeedSource
	feedURL  string
	interval time.Duration
	logger   *slog.Logger

	current atomic.Pointer[snapshot]

	mu      sync.Mutex
	lastErr error
	now     func() time.Time
}

// New creates an empty cache; call Load before serving and Run to keep it fresh
func New(source ports.FeedSource, feedURL string, interval time.Duration, logger *slog.Logger) *Cache {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Cache{
		source:   source,
		feedURL:  feedURL,
		interval: interval,
		logger:   logger.With("component", "feed"),
		now:      time.Now,
	}
	c.current.Store(&snapshot{urls: map[string]struct{}{}})
	return c
}

// Load fetches the feed and swaps in the new set
//
// On failure the previous snapshot stays authoritative and the returned
// error wraps domain.ErrFeedUnavailable.
func (c *Cache) Load(ctx context.Context) error {
	lines, err := c.source.FetchList(ctx, c.feedURL)
	if err == nil && len(lines) == 0 && c.Size() > 0 {
		err = fmt.Errorf("feed returned no entries")
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", domain.ErrFeedUnavailable, err)
		c.setErr(err)
		return err
	}

	urls := make(map[string]struct{}, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls[canonical(line)] = struct{}{}
	}

	c.current.Store(&snapshot{urls: urls, loadedAt: c.now()})
	c.setErr(nil)
	c.logger.Info("feed loaded", "url", c.feedURL, "size", len(urls))
	return nil
}

// Refresh reloads the feed, logging instead of returning failures
func (c *Cache) Refresh(ctx context.Context) {
	if err := c.Load(ctx); err != nil {
		c.logger.Warn("feed refresh failed, keeping previous snapshot", "error", err, "size", c.Size())
	}
}

// Run refreshes the cache every interval until ctx is cancelled
func (c *Cache) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Refresh(ctx)
		}
	}
}

// Contains reports whether url is in the current snapshot
func (c *Cache) Contains(url string) bool {
	_, ok := c.current.Load().urls[canonical(url)]
	return ok
}

// Size returns the number of URLs in the current snapshot
func (c *Cache) Size() int {
	return len(c.current.Load().urls)
}

// Status reports size, freshness and the last refresh error
//
// The cache is stale when the last refresh failed or no successful load
// happened within two refresh intervals.
func (c *Cache) Status() Status {
	snap := c.current.Load()

	c.mu.Lock()
	lastErr := c.lastErr
	c.mu.Unlock()

	st := Status{Size: len(snap.urls), LastRefreshed: snap.loadedAt}
	if lastErr != nil {
		st.LastError = lastErr.Error()
		st.Stale = true
	}
	if snap.loadedAt.IsZero() || c.now().Sub(snap.loadedAt) > 2*c.interval {
		st.Stale = true
	}
	return st
}

func (c *Cache) setErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}

// canonical maps feed entries and scanned URLs to the same key
func canonical(raw string) string {
	key := strings.TrimSpace(raw)
	if t, err := normalize.Normalize(key); err == nil {
		key = t.NormalizedURL
	} else {
		key = strings.ToLower(key)
	}
	return strings.TrimSuffix(key, "/")
}
