package email

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/domain/normalize"
)

// Sender email types
const (
	EmailTypeFreeProvider = "free_provider"
	EmailTypeBusiness     = "business_or_custom"
)

// senderReport describes the sending address; lookups run concurrently and failures become notes
func (c *Composer) senderReport(ctx context.Context, sender Sender, headers HeaderFindings) domain.SenderReport {
	unknown := func(what string) domain.AuthStatus {
		return domain.AuthStatus{Status: AuthUnknown, Details: what + " not checked"}
	}
	rep := domain.SenderReport{
		SPF:      unknown("SPF"),
		DMARC:    unknown("DMARC"),
		DKIM:     unknown("DKIM"),
		Warnings: []string{},
		Notes:    []string{},
	}

	if sender.Address == "" {
		rep.Notes = append(rep.Notes, "No sender address provided for analysis.")
		return rep
	}

	rep.Present = true
	rep.Address = sender.Address
	rep.DisplayName = sender.DisplayName
	rep.Domain = sender.Domain

	if sender.Domain == "" {
		rep.Notes = append(rep.Notes, "Sender address has no domain part.")
		return rep
	}

	if contains(c.rules.FreeProviders, sender.Domain) {
		rep.EmailType = EmailTypeFreeProvider
		rep.Warnings = append(rep.Warnings, "Sender uses a free email provider; these are commonly abused for phishing.")
	} else {
		rep.EmailType = EmailTypeBusiness
	}

	lookupDomain := normalize.RegistrableDomain(sender.Domain)
	if lookupDomain == "" {
		lookupDomain = sender.Domain
	}

	var g errgroup.Group
	if c.whois != nil {
		g.Go(func() error {
			rep.DomainAge = c.domainAge(ctx, lookupDomain)
			return nil
		})
	}

	if headers.SPF.Status != "" {
		rep.SPF = headers.SPF
	} else if c.dns != nil {
		g.Go(func() error {
			rep.SPF = c.dnsStatus(ctx, "SPF", lookupDomain, c.dns.LookupSPF)
			return nil
		})
	}

	if headers.DMARC.Status != "" {
		rep.DMARC = headers.DMARC
	} else if c.dns != nil {
		g.Go(func() error {
			rep.DMARC = c.dnsStatus(ctx, "DMARC", lookupDomain, c.dns.LookupDMARC)
			return nil
		})
	}

	if headers.DKIM.Status != "" {
		rep.DKIM = headers.DKIM
	} else {
		rep.DKIM = domain.AuthStatus{Status: AuthUnknown, Details: "DKIM needs message headers to verify"}
	}

	_ = g.Wait()

	if len(headers.Failures) > 0 {
		rep.Warnings = append(rep.Warnings, fmt.Sprintf("Sender authentication failed: %s", strings.Join(headers.Failures, ", ")))
	}
	if headers.Warning != "" {
		rep.Notes = append(rep.Notes, headers.Warning)
	}
	return rep
}

func (c *Composer) domainAge(ctx context.Context, name string) *domain.DomainAge {
	lctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	age := &domain.DomainAge{Domain: name}
	created, err := c.whois.Lookup(lctx, name)
	switch {
	case err != nil:
		age.Error = domain.FailureNote("WHOIS lookup", err)
	case created == nil:
		age.Error = "creation date not published"
	default:
		days := max(0, int(c.now().Sub(*created).Hours()/24))
		t := created.UTC()
		age.CreatedAt = &t
		age.AgeDays = &days
	}
	return age
}

type txtLookup func(ctx context.Context, domain string) (string, bool, error)

func (c *Composer) dnsStatus(ctx context.Context, what, name string, lookup txtLookup) domain.AuthStatus {
	lctx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	record, found, err := lookup(lctx, name)
	switch {
	case err != nil:
		return domain.AuthStatus{Status: AuthUnknown, Details: domain.FailureNote(what+" lookup", err)}
	case !found:
		return domain.AuthStatus{Status: AuthMissing, Details: fmt.Sprintf("No %s record published for %s", what, name)}
	default:
		return domain.AuthStatus{Status: AuthPresent, Details: record}
	}
}

// scoreSender is the larger of the domain age band and the authentication failure band
func scoreSender(rep domain.SenderReport, headers HeaderFindings, rules Rules) (int, []string) {
	ageScore := 0
	reasons := make([]string, 0)

	if rep.DomainAge.Known() {
		days := *rep.DomainAge.AgeDays
		switch {
		case days < rules.NewSenderDays:
			ageScore = rules.NewSenderScore
			reasons = append(reasons, fmt.Sprintf("Sender domain very new (<%d days)", rules.NewSenderDays))
		case days < rules.YoungSenderDays:
			ageScore = rules.YoungSenderScore
			reasons = append(reasons, fmt.Sprintf("Sender domain is young (<%d days)", rules.YoungSenderDays))
		}
	}

	authScore := 0
	switch n := len(headers.Failures); {
	case n >= 2:
		authScore = rules.MultipleAuthFailScore
	case n == 1:
		authScore = rules.SingleAuthFailScore
	}
	if authScore > 0 {
		reasons = append(reasons, fmt.Sprintf("Sender authentication failed: %s", strings.Join(headers.Failures, ", ")))
	}

	return max(ageScore, authScore), reasons
}
