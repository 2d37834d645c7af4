package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/domain/normalize"
	"github.com/stoik/phish-verdict/internal/ports"
)

const (
	defaultOperationTimeout = 8 * time.Second
	defaultScanTimeout      = 15 * time.Second
)

// URLScanner produces a verdict for one URL; detection.Engine implements it
type URLScanner interface {
	Scan(ctx context.Context, rawURL string) domain.RiskVerdict
}

// Composer scores an email from its links, sender, attachments and text
//
// Every link goes through the URL engine. The non-URL components are rescaled
// to 0-100 and blended with fixed weights; the larger of the blend and the
// riskiest link wins, then deterministic boosts apply. One scan deadline
// covers every link scan, redirect trace and sender lookup of an email.
type Composer struct {
	rules       Rules
	patterns    patterns
	scanner     URLScanner
	tracer      ports.RedirectTracer
	whois       ports.WhoisClient
	dns         ports.DNSAuthResolver
	opTimeout   time.Duration
	scanTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Composer
type Option func(*Composer)

// WithTracer attaches a redirect chain to every per-URL report
func WithTracer(t ports.RedirectTracer) Option {
	return func(c *Composer) { c.tracer = t }
}

// WithWhois enables sender domain age lookups
func WithWhois(w ports.WhoisClient) Option {
	return func(c *Composer) { c.whois = w }
}

// WithDNS enables SPF and DMARC lookups when headers carry no verdict
func WithDNS(r ports.DNSAuthResolver) Option {
	return func(c *Composer) { c.dns = r }
}

// WithOperationTimeout bounds each sender lookup
func WithOperationTimeout(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.opTimeout = d
		}
	}
}

// WithScanTimeout bounds a whole Compose call
func WithScanTimeout(d time.Duration) Option {
	return func(c *Composer) {
		if d > 0 {
			c.scanTimeout = d
		}
	}
}

// WithLogger sets the composer logger
func WithLogger(l *slog.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewComposer creates a new email composer over a URL scanner
func NewComposer(rules Rules, scanner URLScanner, opts ...Option) (*Composer, error) {
	p, err := rules.compile()
	if err != nil {
		return nil, err
	}
	c := &Composer{
		rules:       rules,
		patterns:    p,
		scanner:     scanner,
		opTimeout:   defaultOperationTimeout,
		scanTimeout: defaultScanTimeout,
		logger:      slog.New(slog.DiscardHandler),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "email")
	return c, nil
}

// Compose scores one email; it always returns a verdict
func (c *Composer) Compose(ctx context.Context, msg domain.EmailContext) domain.EmailVerdict {
	ctx, cancel := context.WithTimeout(ctx, c.scanTimeout)
	defer cancel()

	urls := ExtractURLs(msg.Links, msg.Subject, msg.Body, c.rules.MaxURLs)
	sender := ParseSender(msg.Sender)
	headers := AnalyzeHeaders(msg.RawHeaders)

	var (
		reports   []domain.URLReport
		senderRep domain.SenderReport
		g         errgroup.Group
	)
	g.Go(func() error {
		reports = c.scanURLs(ctx, urls)
		return nil
	})
	g.Go(func() error {
		senderRep = c.senderReport(ctx, sender, headers)
		return nil
	})
	_ = g.Wait()

	urlComponent, urlReasons := scoreURLs(reports)
	senderComponent, senderReasons := scoreSender(senderRep, headers, c.rules)
	attachComponent, attachReasons := scoreAttachments(msg.Attachments, c.rules)
	contentComponent, contentReasons := scoreContent(msg.Subject, msg.Body, c.rules, c.patterns)
	impComponent, impReasons := scoreImpersonation(sender, headers, c.rules)

	w := c.rules.Weights
	blended := int(w.Sender*float64(c.scale(senderComponent)) +
		w.Attachment*float64(c.scale(attachComponent)) +
		w.Content*float64(c.scale(contentComponent)) +
		w.Impersonation*float64(c.scale(impComponent)))
	ruleBased := domain.ClampScore(max(urlComponent, blended))

	reasons := make([]string, 0)
	reasons = append(reasons, urlReasons...)
	reasons = append(reasons, senderReasons...)
	reasons = append(reasons, attachReasons...)
	reasons = append(reasons, contentReasons...)
	reasons = append(reasons, impReasons...)
	reasons = domain.DedupeReasons(reasons)

	boost, boostNotes := c.boosts(reports, sender, msg.Attachments)
	final := domain.ClampScore(ruleBased + boost)
	label := domain.LabelFromScore(final)

	return domain.EmailVerdict{
		ID:                 uuid.New(),
		Summary:            summary(label),
		RuleBasedScore:     ruleBased,
		RuleBasedReasons:   reasons,
		PerURLReports:      reports,
		SenderDomainReport: senderRep,
		FinalScore:         final,
		FinalLabel:         label,
		Recommendations:    c.recommendations(label, reports, senderRep, msg.Attachments),
		CombinedIndicators: domain.DedupeReasons(append(append([]string{}, reasons...), boostNotes...)),
		ScannedAt:          time.Now().UTC(),
	}
}

// scale maps raw component points to 0-100
func (c *Composer) scale(points int) int {
	if points <= 0 || c.rules.ComponentScale <= 0 {
		return 0
	}
	return min(100, points*100/c.rules.ComponentScale)
}

func (c *Composer) scanURLs(ctx context.Context, urls []string) []domain.URLReport {
	reports := make([]domain.URLReport, len(urls))

	var g errgroup.Group
	if c.rules.URLConcurrency > 0 {
		g.SetLimit(c.rules.URLConcurrency)
	}
	for i, raw := range urls {
		g.Go(func() error {
			reports[i] = c.scanURL(ctx, raw)
			return nil
		})
	}
	_ = g.Wait()
	return reports
}

func (c *Composer) scanURL(ctx context.Context, raw string) domain.URLReport {
	var chain *domain.RedirectChain
	traced := make(chan struct{})
	if c.tracer != nil {
		go func() {
			defer close(traced)
			ch := c.tracer.Trace(ctx, raw)
			chain = &ch
		}()
	} else {
		close(traced)
	}

	v := c.scanner.Scan(ctx, raw)
	<-traced

	return domain.URLReport{
		URL:           v.URL,
		Label:         v.Label,
		Score:         v.Score,
		Reasons:       v.Reasons,
		DomainAge:     v.DomainAge,
		Certificate:   v.Certificate,
		RedirectChain: chain,
	}
}

// scoreURLs returns the riskiest assessed link; invalid links carry no risk signal
func scoreURLs(reports []domain.URLReport) (int, []string) {
	component := 0
	reasons := make([]string, 0)
	for _, r := range reports {
		if r.Label == domain.LabelInvalid {
			continue
		}
		component = max(component, r.Score)
		if r.Label == domain.LabelPhishing {
			reasons = append(reasons, fmt.Sprintf("Linked URL flagged: %s", r.URL))
		}
	}
	return component, reasons
}

func (c *Composer) boosts(reports []domain.URLReport, sender Sender, attachments []domain.Attachment) (int, []string) {
	boost := 0
	notes := make([]string, 0)

	for _, r := range reports {
		if r.Label == domain.LabelPhishing || (r.Label != domain.LabelInvalid && r.Score >= c.rules.PhishingLinkScore) {
			boost += c.rules.PhishingLinkBoost
			notes = append(notes, "Email links to a phishing page")
			break
		}
	}

	if len(reports) > 0 && sender.Domain != "" {
		linkDomain := normalize.RegistrableDomain(reports[0].URL)
		senderDomain := normalize.RegistrableDomain(sender.Domain)
		if senderDomain == "" {
			senderDomain = sender.Domain
		}
		if linkDomain != "" && linkDomain != senderDomain {
			boost += c.rules.DomainMismatchBoost
			notes = append(notes, fmt.Sprintf("Sender domain %s differs from linked domain %s", senderDomain, linkDomain))
		}
	}

	if hasExecutable(attachments, c.rules.ExecutableBoostSuffixes) {
		boost += c.rules.ExecutableBoost
		notes = append(notes, "Executable attachment present")
	}
	return boost, notes
}

func summary(label domain.Label) string {
	switch label {
	case domain.LabelPhishing:
		return "High likelihood of phishing."
	case domain.LabelSuspicious:
		return "Multiple suspicious indicators found."
	default:
		return "No strong phishing indicators detected."
	}
}

func (c *Composer) recommendations(label domain.Label, reports []domain.URLReport, sender domain.SenderReport, attachments []domain.Attachment) []string {
	recs := make([]string, 0)
	if label != domain.LabelSafe {
		recs = append(recs, "Do not click links or open attachments until sender is validated.")
	}
	if len(reports) > 0 {
		recs = append(recs, "Hover over links to verify real domains and report suspicious URLs to Security.")
	}
	if sender.EmailType == EmailTypeFreeProvider {
		recs = append(recs, "Double-check requests from free email providers that claim to be official.")
	}
	if hasExecutable(attachments, c.rules.ExecutableBoostSuffixes) {
		recs = append(recs, "Do not open the attached executable files.")
	}
	return recs
}
