package dnsauth

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
)

// DefaultServer is queried when no resolver address is configured
const DefaultServer = "1.1.1.1:53"

// Resolver answers SPF and DMARC lookups over plain DNS; implements ports.DNSAuthResolver
type Resolver struct {
	client *dns.Client
	server string
}

// New creates a resolver for server ("host" or "host:port")
func New(server string, timeout time.Duration) *Resolver {
	if server == "" {
		server = DefaultServer
	}
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	c := new(dns.Client)
	if timeout > 0 {
		c.Timeout = timeout
	}
	return &Resolver{client: c, server: server}
}

// LookupSPF returns the v=spf1 TXT record of the domain
func (r *Resolver) LookupSPF(ctx context.Context, domain string) (string, bool, error) {
	return r.lookupTXT(ctx, domain, "v=spf1")
}

// LookupDMARC returns the v=DMARC1 TXT record at _dmarc.<domain>
func (r *Resolver) LookupDMARC(ctx context.Context, domain string) (string, bool, error) {
	return r.lookupTXT(ctx, "_dmarc."+domain, "v=dmarc1")
}

func (r *Resolver) lookupTXT(ctx context.Context, name, prefix string) (string, bool, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(name), dns.TypeTXT)
	m.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return "", false, fmt.Errorf("dns TXT %s: %w", name, err)
	}

	switch in.Rcode {
	case dns.RcodeSuccess:
	case dns.RcodeNameError:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("dns TXT %s: %s", name, dns.RcodeToString[in.Rcode])
	}

	for _, rr := range in.Answer {
		txt, ok := rr.(*dns.TXT)
		if !ok {
			continue
		}
		record := strings.Join(txt.Txt, "")
		if strings.HasPrefix(strings.ToLower(record), prefix) {
			return record, true, nil
		}
	}
	return "", false, nil
}
