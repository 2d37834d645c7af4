package fetcher

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/stoik/phish-verdict/internal/ports"
)

// Page fetcher backends
const (
	BackendNetHTTP  = "nethttp"
	BackendChromedp = "chromedp"
)

// New constructs the named backend; an empty name selects nethttp
func New(backend string, timeout time.Duration, logger *slog.Logger) (ports.PageFetcher, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case "", BackendNetHTTP:
		return NewHTTPFetcher(nil, timeout, logger), nil
	case BackendChromedp:
		return NewChromeFetcher(0, logger), nil
	default:
		return nil, fmt.Errorf("page fetcher backend %q not supported: available backends=[%s %s]", backend, BackendNetHTTP, BackendChromedp)
	}
}
