package ports

import (
	"context"
	"time"

	"github.com/stoik/phish-verdict/internal/domain"
)

// PageFetcher downloads the HTML of a page for DOM analysis
//
// The deadline comes from ctx. FinalURL is the URL the page was served from
// after redirects, used to decide what "external" means for forms and scripts.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.Page, error)
}

// ThreatMatch is the answer of a remote threat list
type ThreatMatch struct {
	Flagged bool
	Raw     map[string]any
}

// ThreatListClient queries a remote URL blocklist
//
// A client without credentials must answer Flagged=false with a nil error.
type ThreatListClient interface {
	Query(ctx context.Context, url string) (ThreatMatch, error)
}

// WhoisClient resolves the registration date of a registrable domain
//
// A nil time with a nil error means the registry answered without a creation date.
type WhoisClient interface {
	Lookup(ctx context.Context, domain string) (*time.Time, error)
}

// CertificateClient reads the TLS certificate a host serves
//
// Negative answers (nothing listening, chain does not verify) are values;
// only a failed lookup (timeout, resolution error) is an error.
type CertificateClient interface {
	Fetch(ctx context.Context, host string, port int) (*domain.CertificateInfo, error)
}

// FeedSource downloads a newline-separated blocklist
type FeedSource interface {
	FetchList(ctx context.Context, url string) ([]string, error)
}

// Blocklist is a read-only view of known-malicious URLs
type Blocklist interface {
	Contains(url string) bool
}

// DNSAuthResolver looks up sender-authentication policy records
//
// found=false with a nil error means the domain publishes no such record.
type DNSAuthResolver interface {
	LookupSPF(ctx context.Context, domain string) (record string, found bool, err error)
	LookupDMARC(ctx context.Context, domain string) (record string, found bool, err error)
}

// RedirectTracer follows the redirect chain of a URL
type RedirectTracer interface {
	Trace(ctx context.Context, rawURL string) domain.RedirectChain
}
