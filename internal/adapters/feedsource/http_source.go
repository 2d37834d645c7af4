package feedsource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxFeedBytes = 32 << 20

// HTTPSource downloads a plain-text feed with one URL per line; implements ports.FeedSource
type HTTPSource struct {
	client *http.Client
}

// New creates a feed source; a nil client gets a 10 second timeout
func New(client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPSource{client: client}
}

// FetchList returns the non-empty, non-comment lines of the feed
func (s *HTTPSource) FetchList(ctx context.Context, url string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("feed: build request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feed: unexpected status %d", resp.StatusCode)
	}

	lines := make([]string, 0, 1024)
	scanner := bufio.NewScanner(io.LimitReader(resp.Body, maxFeedBytes))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("feed: read body: %w", err)
	}
	return lines, nil
}
