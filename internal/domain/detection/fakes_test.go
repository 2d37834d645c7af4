package detection

import (
	"context"
	"time"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/ports"
)

type fakeFeed map[string]bool

func (f fakeFeed) Contains(url string) bool {
	return f[url]
}

type fakeThreats struct {
	flagged bool
	err     error
}

func (f *fakeThreats) Query(_ context.Context, _ string) (ports.ThreatMatch, error) {
	if f.err != nil {
		return ports.ThreatMatch{}, f.err
	}
	return ports.ThreatMatch{Flagged: f.flagged}, nil
}

type fakeWhois struct {
	created *time.Time
	err     error
	delay   time.Duration
}

func (f *fakeWhois) Lookup(ctx context.Context, _ string) (*time.Time, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.created, f.err
}

type fakeCerts struct {
	info *domain.CertificateInfo
	err  error
}

func (f *fakeCerts) Fetch(_ context.Context, host string, _ int) (*domain.CertificateInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	info := *f.info
	info.Host = host
	return &info, nil
}

type fakeFetcher struct {
	page *domain.Page
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) (*domain.Page, error) {
	return f.page, f.err
}

func daysAgo(now time.Time, days int) *time.Time {
	t := now.Add(-time.Duration(days) * 24 * time.Hour)
	return &t
}

func validCert(now time.Time) *domain.CertificateInfo {
	notBefore := now.Add(-90 * 24 * time.Hour)
	notAfter := now.Add(200 * 24 * time.Hour)
	return &domain.CertificateInfo{
		Present:   true,
		Valid:     true,
		Issuer:    "R11",
		NotBefore: &notBefore,
		NotAfter:  &notAfter,
	}
}
