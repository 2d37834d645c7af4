package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/stoik/phish-verdict/internal/domain"
)

const (
	defaultMaxBytes = 2 << 20
	userAgent       = "Mozilla/5.0 (compatible; phish-verdict/1.0)"
)

// HTTPFetcher downloads pages with net/http, following redirects
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// NewHTTPFetcher creates a fetcher; a nil client gets a default with the given timeout
func NewHTTPFetcher(client *http.Client, timeout time.Duration, logger *slog.Logger) *HTTPFetcher {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &HTTPFetcher{
		client:   client,
		maxBytes: defaultMaxBytes,
		logger:   logger.With("component", "fetcher", "backend", BackendNetHTTP),
	}
}

// Fetch returns the page HTML and the URL it was finally served from
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (*domain.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("page fetch failed", "url", url, "error", err)
		return nil, fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(strings.ToLower(ct), "html") {
		return nil, fmt.Errorf("not an HTML page (%s)", ct)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &domain.Page{HTML: string(body), FinalURL: resp.Request.URL.String()}, nil
}
