package rdap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// FallbackEndpoint is the bootstrap redirector used for TLDs with no direct registry endpoint
const FallbackEndpoint = "https://rdap.org/"

var directEndpoints = map[string]string{
	"com":    "https://rdap.verisign.com/com/v1/",
	"net":    "https://rdap.verisign.com/net/v1/",
	"org":    "https://rdap.publicinterestregistry.net/rdap/",
	"io":     "https://rdap.nic.io/",
	"dev":    "https://rdap.nic.google/",
	"app":    "https://rdap.nic.google/",
	"uk":     "https://rdap.nominet.uk/uk/",
	"eu":     "https://rdap.eu/",
	"cc":     "https://rdap.verisign.com/cc/v1/",
	"tv":     "https://rdap.verisign.com/tv/v1/",
	"xyz":    "https://rdap.centralnic.com/xyz/",
	"co":     "https://rdap.nic.co/",
	"me":     "https://rdap.nic.me/",
	"info":   "https://rdap.afilias.net/rdap/info/",
	"biz":    "https://rdap.nic.biz/",
	"top":    "https://rdap.nic.top/",
	"site":   "https://rdap.centralnic.com/site/",
	"online": "https://rdap.centralnic.com/online/",
}

type event struct {
	Action string `json:"eventAction"`
	Date   string `json:"eventDate"`
}

type domainResponse struct {
	ErrorCode int     `json:"errorCode"`
	Events    []event `json:"events"`
}

// Client resolves domain registration dates over RDAP; implements ports.WhoisClient
type Client struct {
	http      *http.Client
	endpoints map[string]string
	fallback  string
	logger    *slog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithEndpoints replaces the per-TLD endpoint table and the fallback
func WithEndpoints(endpoints map[string]string, fallback string) Option {
	return func(c *Client) {
		c.endpoints = endpoints
		c.fallback = fallback
	}
}

// WithLogger sets the client logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates an RDAP client
func New(opts ...Option) *Client {
	c := &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		endpoints: directEndpoints,
		fallback:  FallbackEndpoint,
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "rdap")
	return c
}

// Lookup returns the registration date of a registrable domain
//
// A registry that does not know the domain, or that publishes no
// registration event, yields a nil time and a nil error.
func (c *Client) Lookup(ctx context.Context, domain string) (*time.Time, error) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))
	rdapURL := fmt.Sprintf("%s/domain/%s", strings.TrimRight(c.endpoint(domain), "/"), domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rdapURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rdap: build request: %w", err)
	}
	req.Header.Set("Accept", "application/rdap+json, application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rdap: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.Debug("domain not found in registry", "domain", domain)
		return nil, nil
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("rdap: unexpected status %d for %s", resp.StatusCode, domain)
	}

	var data domainResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&data); err != nil {
		return nil, fmt.Errorf("rdap: decode response: %w", err)
	}
	if data.ErrorCode != 0 {
		return nil, fmt.Errorf("rdap: error response %d for %s", data.ErrorCode, domain)
	}

	return registrationDate(data.Events), nil
}

func (c *Client) endpoint(domain string) string {
	tld := domain[strings.LastIndex(domain, ".")+1:]
	if ep, ok := c.endpoints[tld]; ok && ep != "" {
		return ep
	}
	return c.fallback
}

func registrationDate(events []event) *time.Time {
	for _, e := range events {
		if !strings.EqualFold(e.Action, "registration") {
			continue
		}
		t, err := time.Parse(time.RFC3339, e.Date)
		if err != nil {
			continue
		}
		t = t.UTC()
		return &t
	}
	return nil
}
