package detection

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/ports"
)

const certificatePort = 443

// ReputationDetector scores registration age and TLS certificate health
//
// The WHOIS and certificate lookups run concurrently. A lookup that fails is
// not a risk signal: it contributes nothing and is reported in FailureNote.
type ReputationDetector struct {
	whois  ports.WhoisClient
	certs  ports.CertificateClient
	rules  ReputationRules
	weight float64
	now    func() time.Time
}

// NewReputationDetector creates a new domain reputation detector; whois and certs may be nil
func NewReputationDetector(rules Rules, whois ports.WhoisClient, certs ports.CertificateClient) *ReputationDetector {
	return &ReputationDetector{
		whois:  whois,
		certs:  certs,
		rules:  rules.Reputation,
		weight: rules.Multiplier(NameReputation),
		now:    time.Now,
	}
}

// Name returns the detector name
func (d *ReputationDetector) Name() string {
	return NameReputation
}

// Weight returns the subscore multiplier
func (d *ReputationDetector) Weight() float64 {
	return d.weight
}

type lookupOutcome struct {
	attempted bool
	err       error
}

// Evaluate runs both lookups and scores whatever answered
func (d *ReputationDetector) Evaluate(ctx context.Context, target domain.ScanTarget, _ *domain.Page) domain.DetectorResult {
	res := newResult(d.Name(), d.weight)

	var (
		wg        sync.WaitGroup
		created   *time.Time
		cert      *domain.CertificateInfo
		whoisLook lookupOutcome
		certLook  lookupOutcome
	)

	if d.whois != nil && !target.IsIP && target.RegistrableDomain != "" {
		whoisLook.attempted = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, whoisLook.err = d.whois.Lookup(ctx, target.RegistrableDomain)
		}()
	}

	if d.certs != nil && target.Host != "" {
		certLook.attempted = true
		wg.Add(1)
		go func() {
			defer wg.Done()
			cert, certLook.err = d.certs.Fetch(ctx, target.Host, certificatePort)
		}()
	}

	wg.Wait()

	points := 0
	notes := make([]string, 0)
	answered := 0
	now := d.now()

	if whoisLook.attempted {
		age := &domain.DomainAge{Domain: target.RegistrableDomain}
		res.DomainAge = age
		switch {
		case whoisLook.err != nil:
			age.Error = domain.FailureNote("WHOIS lookup", whoisLook.err)
			notes = append(notes, age.Error)
		case created == nil:
			answered++
			age.Error = "creation date not published"
		default:
			answered++
			days := int(now.Sub(*created).Hours() / 24)
			if days < 0 {
				days = 0
			}
			c := created.UTC()
			age.CreatedAt = &c
			age.AgeDays = &days
			points += d.scoreAge(days, &res)
		}
	}

	if certLook.attempted {
		switch {
		case certLook.err != nil:
			notes = append(notes, domain.FailureNote("certificate lookup", certLook.err))
		case cert == nil:
			answered++
		default:
			answered++
			res.Certificate = cert
			points += d.scoreCertificate(cert, now, &res)
		}
	}

	if len(notes) > 0 {
		note := strings.Join(notes, "; ")
		if answered == 0 {
			failed := failedResult(d.Name(), d.weight, note)
			failed.DomainAge = res.DomainAge
			return failed
		}
		res.FailureNote = note
		res.Reasons = append(res.Reasons, note)
	}

	res.Subscore = score(points, d.weight)
	return res
}

func (d *ReputationDetector) scoreAge(days int, res *domain.DetectorResult) int {
	switch {
	case days < d.rules.NewDomainDays:
		res.Reasons = append(res.Reasons, fmt.Sprintf("Domain was registered very recently (%d days ago)", days))
		return d.rules.NewDomainWeight
	case days < d.rules.YoungDomainDays:
		res.Reasons = append(res.Reasons, fmt.Sprintf("Domain is relatively new (%d days old)", days))
		return d.rules.YoungDomainWeight
	}
	return 0
}

func (d *ReputationDetector) scoreCertificate(cert *domain.CertificateInfo, now time.Time, res *domain.DetectorResult) int {
	if !cert.Present {
		res.Reasons = append(res.Reasons, "No TLS certificate is served")
		return d.rules.CertificateProblemWeight
	}
	if cert.NotAfter != nil && now.After(*cert.NotAfter) {
		res.Reasons = append(res.Reasons, "TLS certificate has expired")
		return d.rules.CertificateProblemWeight
	}
	if !cert.Valid {
		reason := "TLS certificate is invalid"
		if cert.Problem != "" {
			reason += ": " + cert.Problem
		}
		res.Reasons = append(res.Reasons, reason)
		return d.rules.CertificateProblemWeight
	}
	if cert.NotAfter != nil {
		left := int(cert.NotAfter.Sub(now).Hours() / 24)
		if left < d.rules.CertificateExpiryDays {
			res.Reasons = append(res.Reasons, fmt.Sprintf("TLS certificate expires soon (%d days left)", left))
			return d.rules.CertificateExpiryWeight
		}
	}
	return 0
}
