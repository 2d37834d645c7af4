package safebrowsing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/stoik/phish-verdict/internal/ports"
)

// DefaultEndpoint is the Safe Browsing v4 lookup API
const DefaultEndpoint = "https://safebrowsing.googleapis.com/v4/threatMatches:find"

var threatTypes = []string{
	"MALWARE",
	"SOCIAL_ENGINEERING",
	"UNWANTED_SOFTWARE",
	"POTENTIALLY_HARMFUL_APPLICATION",
}

type threatEntry struct {
	URL string `json:"url"`
}

type findRequest struct {
	Client struct {
		ClientID      string `json:"clientId"`
		ClientVersion string `json:"clientVersion"`
	} `json:"client"`
	ThreatInfo struct {
		ThreatTypes      []string      `json:"threatTypes"`
		PlatformTypes    []string      `json:"platformTypes"`
		ThreatEntryTypes []string      `json:"threatEntryTypes"`
		ThreatEntries    []threatEntry `json:"threatEntries"`
	} `json:"threatInfo"`
}

// Client queries the Safe Browsing lookup API; implements ports.ThreatListClient
//
// Without an API key every query answers "not flagged" without a request.
type Client struct {
	apiKey   string
	endpoint string
	http     *http.Client
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithEndpoint overrides the API endpoint
func WithEndpoint(url string) Option {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRateLimit caps outgoing requests per second; zero or less disables the limit
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithLogger sets the client logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Safe Browsing client
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:   apiKey,
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: 5 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(10), 10),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "safebrowsing")
	return c
}

// Query reports whether the URL matches any threat list
func (c *Client) Query(ctx context.Context, url string) (ports.ThreatMatch, error) {
	if c.apiKey == "" {
		return ports.ThreatMatch{Raw: map[string]any{}}, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return ports.ThreatMatch{}, fmt.Errorf("safe browsing: rate limiter: %w", err)
	}

	var body findRequest
	body.Client.ClientID = "phish-verdict"
	body.Client.ClientVersion = "1.0"
	body.ThreatInfo.ThreatTypes = threatTypes
	body.ThreatInfo.PlatformTypes = []string{"ANY_PLATFORM"}
	body.ThreatInfo.ThreatEntryTypes = []string{"URL"}
	body.ThreatInfo.ThreatEntries = []threatEntry{{URL: url}}

	payload, err := json.Marshal(body)
	if err != nil {
		return ports.ThreatMatch{}, fmt.Errorf("safe browsing: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"?key="+c.apiKey, bytes.NewReader(payload))
	if err != nil {
		return ports.ThreatMatch{}, fmt.Errorf("safe browsing: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return ports.ThreatMatch{}, fmt.Errorf("safe browsing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ports.ThreatMatch{}, fmt.Errorf("safe browsing: unexpected status %d", resp.StatusCode)
	}

	raw := map[string]any{}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&raw); err != nil && err != io.EOF {
		return ports.ThreatMatch{}, fmt.Errorf("safe browsing: decode response: %w", err)
	}

	_, flagged := raw["matches"]
	if flagged {
		c.logger.Info("url matched threat list", "url", url)
	}
	return ports.ThreatMatch{Flagged: flagged, Raw: raw}, nil
}
