package redirect

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/domain/normalize"
)

const (
	// MaxHops bounds every redirect chain
	MaxHops = 10

	DefaultHopTimeout = 8 * time.Second

	// DefaultChainTimeout bounds a whole trace, whatever the hop count
	DefaultChainTimeout = 15 * time.Second

	userAgent = "phish-verdict/1.0 (+redirect-tracer)"
)

// NewHTTPClient returns a client that never follows redirects by itself
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// prevent automatic redirects
			return http.ErrUseLastResponse
		},
	}
}

// Tracer follows redirects one request at a time
//
// Each hop is a separate GET with its own timeout, and the whole chain shares
// one deadline. The chain stops at the first non-redirect status, at any
// error (recorded on the hop), when a URL repeats, when the deadline passes,
// or after MaxHops requests.
type Tracer struct {
	client       *http.Client
	maxHops      int
	hopTimeout   time.Duration
	chainTimeout time.Duration
	logger       *slog.Logger
}

// Option configures a Tracer
type Option func(*Tracer)

// WithChainTimeout sets the deadline shared by every hop of one trace
func WithChainTimeout(d time.Duration) Option {
	return func(t *Tracer) {
		if d > 0 {
			t.chainTimeout = d
		}
	}
}

// New creates a new tracer; a nil client gets NewHTTPClient(hopTimeout)
func New(client *http.Client, hopTimeout time.Duration, logger *slog.Logger, opts ...Option) *Tracer {
	if hopTimeout <= 0 {
		hopTimeout = DefaultHopTimeout
	}
	if client == nil {
		client = NewHTTPClient(hopTimeout)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	t := &Tracer{
		client:       client,
		maxHops:      MaxHops,
		hopTimeout:   hopTimeout,
		chainTimeout: DefaultChainTimeout,
		logger:       logger.With("component", "redirect"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Trace follows rawURL and returns the chain; it never fails outward
func (t *Tracer) Trace(ctx context.Context, rawURL string) domain.RedirectChain {
	res := domain.RedirectChain{Target: rawURL, Chain: []domain.RedirectHop{}}

	target, err := normalize.Normalize(rawURL)
	if err != nil {
		res.Chain = append(res.Chain, domain.RedirectHop{URL: rawURL, Error: "URL format is invalid"})
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, t.chainTimeout)
	defer cancel()

	current := target.NormalizedURL
	visited := map[string]struct{}{current: {}}

	for len(res.Chain) < t.maxHops {
		if err := ctx.Err(); err != nil {
			stopped(&res, current, err)
			return res
		}

		hop, next, done := t.step(ctx, current)
		res.Chain = append(res.Chain, hop)
		if done {
			return res
		}

		if _, ok := visited[next]; ok {
			res.LoopDetected = true
			res.Chain[len(res.Chain)-1].Error = fmt.Sprintf("redirect loop back to %s", next)
			return res
		}
		visited[next] = struct{}{}
		current = next
	}

	res.Truncated = true
	res.Chain[len(res.Chain)-1].Error = fmt.Sprintf("stopped after %d hops", t.maxHops)
	return res
}

// stopped ends a chain cut short by the deadline or cancellation
//
// The last recorded hop is a redirect whose target was never requested; the
// note goes on it. An empty chain gets a hop for the URL that was never tried.
func stopped(res *domain.RedirectChain, pending string, err error) {
	note := "redirect tracing cancelled"
	if errors.Is(err, context.DeadlineExceeded) {
		note = "redirect tracing deadline exceeded"
	}
	if len(res.Chain) == 0 {
		res.Chain = append(res.Chain, domain.RedirectHop{URL: pending, Error: note})
		return
	}
	res.Chain[len(res.Chain)-1].Error = note
}

// step issues one request and returns the hop, the next URL, and whether the chain ends here
func (t *Tracer) step(ctx context.Context, current string) (domain.RedirectHop, string, bool) {
	hop := domain.RedirectHop{URL: current}

	hctx, cancel := context.WithTimeout(ctx, t.hopTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(hctx, http.MethodGet, current, nil)
	if err != nil {
		hop.Error = err.Error()
		return hop, "", true
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := t.client.Do(req)
	hop.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		if domain.IsTimeout(err) {
			hop.Error = "request timed out"
		} else {
			hop.Error = err.Error()
		}
		t.logger.Debug("redirect hop failed", "url", current, "error", err)
		return hop, "", true
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	hop.StatusCode = resp.StatusCode
	if !IsRedirect(resp.StatusCode) {
		return hop, "", true
	}

	loc := strings.TrimSpace(resp.Header.Get("Location"))
	if loc == "" {
		hop.Error = "redirect without Location header"
		return hop, "", true
	}
	hop.Location = loc

	ref, err := url.Parse(loc)
	if err != nil {
		hop.Error = fmt.Sprintf("malformed Location header: %v", err)
		t.logger.Debug("redirect hop failed", "url", current, "location", loc, "error", err)
		return hop, "", true
	}

	next := resp.Request.URL.ResolveReference(ref)
	if next.Scheme != "http" && next.Scheme != "https" {
		hop.Error = fmt.Sprintf("redirect to unsupported scheme %q", next.Scheme)
		return hop, "", true
	}
	return hop, next.String(), false
}

// IsRedirect reports whether status is one of the followed redirect codes
func IsRedirect(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}
