package domain

import (
	"time"

	"github.com/google/uuid"
)

// Label is the categorical risk verdict attached to a URL, email or QR payload
type Label string

const (
	LabelSafe       Label = "safe"
	LabelSuspicious Label = "suspicious"
	LabelPhishing   Label = "phishing"
	LabelInvalid    Label = "invalid"
)

const (
	// PhishingThreshold and SuspiciousThreshold are the canonical score cut-offs.
	// Every verdict producer maps scores through LabelFromScore.
	PhishingThreshold   = 60
	SuspiciousThreshold = 30

	MaxScore = 100
)

// LabelFromScore converts a 0-100 score to a label
func LabelFromScore(score int) Label {
	switch {
	case score >= PhishingThreshold:
		return LabelPhishing
	case score >= SuspiciousThreshold:
		return LabelSuspicious
	default:
		return LabelSafe
	}
}

// ClampScore bounds a composed score to [0, 100]
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > MaxScore {
		return MaxScore
	}
	return score
}

// ScanTarget is the canonical form of a scanned URL, built once by the normalizer
//
// RegistrableDomain is the eTLD+1 ("example.co.uk"), DomainName the label an
// organization actually chose ("example") and PublicSuffix the rest ("co.uk").
// For IP hosts RegistrableDomain and DomainName hold the IP and PublicSuffix is empty.
type ScanTarget struct {
	Raw               string `json:"raw"`
	NormalizedURL     string `json:"normalized_url"`
	Host              string `json:"host"`
	RegistrableDomain string `json:"registrable_domain"`
	DomainName        string `json:"domain_name"`
	PublicSuffix      string `json:"public_suffix"`
	IsIP              bool   `json:"is_ip"`
}

// Page is HTML fetched by a page fetcher for DOM analysis
type Page struct {
	HTML     string
	FinalURL string
}

// DetectorResult is the output of one detector invocation
//
// Subscore is already weighted by the detector. A failed detector reports
// Subscore 0 and explains itself in FailureNote.
type DetectorResult struct {
	Detector    string           `json:"detector"`
	Subscore    int              `json:"subscore"`
	Weight      float64          `json:"weight"`
	Reasons     []string         `json:"reasons"`
	Failed      bool             `json:"failed"`
	FailureNote string           `json:"failure_note,omitempty"`
	DomainAge   *DomainAge       `json:"domain_age,omitempty"`
	Certificate *CertificateInfo `json:"certificate,omitempty"`
}

// DomainAge is the registration age of a domain
type DomainAge struct {
	Domain    string     `json:"domain"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
	AgeDays   *int       `json:"age_days,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// Known reports whether the creation date could be determined
func (a *DomainAge) Known() bool {
	return a != nil && a.AgeDays != nil
}

// CertificateInfo describes the TLS certificate served on port 443
//
// Present=false means nothing answered TLS on the port. Valid=false with
// Present=true means the chain did not verify (untrusted, hostname mismatch,
// expired); Problem carries the verifier's message.
type CertificateInfo struct {
	Host      string     `json:"host"`
	Present   bool       `json:"present"`
	Valid     bool       `json:"valid"`
	Issuer    string     `json:"issuer,omitempty"`
	Subject   string     `json:"subject,omitempty"`
	NotBefore *time.Time `json:"not_before,omitempty"`
	NotAfter  *time.Time `json:"not_after,omitempty"`
	Problem   string     `json:"problem,omitempty"`
}

// RiskVerdict is the terminal result of a URL scan
//
// RedirectChain is only set by callers that trace the URL alongside the scan.
type RiskVerdict struct {
	ID            uuid.UUID        `json:"id"`
	URL           string           `json:"url"`
	Label         Label            `json:"label"`
	Score         int              `json:"score"`
	Reasons       []string         `json:"reasons"`
	Breakdown     []DetectorResult `json:"breakdown"`
	DomainAge     *DomainAge       `json:"domain_age,omitempty"`
	Certificate   *CertificateInfo `json:"certificate_info,omitempty"`
	RedirectChain *RedirectChain   `json:"redirect_chain,omitempty"`
	ScannedAt     time.Time        `json:"scanned_at"`
}

// InvalidVerdict is the short-circuit verdict for structurally invalid URLs
func InvalidVerdict(rawURL string) RiskVerdict {
	return RiskVerdict{
		ID:        uuid.New(),
		URL:       rawURL,
		Label:     LabelInvalid,
		Score:     MaxScore,
		Reasons:   []string{"URL format is invalid"},
		Breakdown: []DetectorResult{},
		ScannedAt: time.Now().UTC(),
	}
}

// RedirectHop is one request/response step of a redirect chain
type RedirectHop struct {
	URL        string `json:"url"`
	StatusCode int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	Location   string `json:"location,omitempty"`
	Error      string `json:"error,omitempty"`
}

// RedirectChain is the ordered list of hops followed from a starting URL
type RedirectChain struct {
	Target       string        `json:"target"`
	Chain        []RedirectHop `json:"chain"`
	Truncated    bool          `json:"truncated"`
	LoopDetected bool          `json:"loop_detected"`
}

// Final returns the last hop, or nil for an empty chain
func (c RedirectChain) Final() *RedirectHop {
	if len(c.Chain) == 0 {
		return nil
	}
	return &c.Chain[len(c.Chain)-1]
}

// Attachment is an email attachment as seen by the scanner (metadata only)
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// EmailContext is the input of an email scan
//
// Simplification: bodies are analysed as plain text. HTML bodies are converted
// to text by the MIME adapter before they reach the composer.
type EmailContext struct {
	Subject     string       `json:"subject"`
	Sender      string       `json:"sender"`
	Body        string       `json:"body"`
	Links       []string     `json:"links,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	RawHeaders  string       `json:"raw_headers,omitempty"`
}

// URLReport is the per-link result inside an email verdict
type URLReport struct {
	URL           string           `json:"url"`
	Label         Label            `json:"label"`
	Score         int              `json:"score"`
	Reasons       []string         `json:"reasons"`
	DomainAge     *DomainAge       `json:"domain_age,omitempty"`
	Certificate   *CertificateInfo `json:"certificate_info,omitempty"`
	RedirectChain *RedirectChain   `json:"redirect_chain,omitempty"`
}

// AuthStatus is the state of one email authentication mechanism for a sender
type AuthStatus struct {
	Status  string `json:"status"` // pass, fail, present, missing, unknown
	Details string `json:"details,omitempty"`
}

// SenderReport summarises what is known about the sending address
type SenderReport struct {
	Present     bool       `json:"present"`
	Address     string     `json:"address,omitempty"`
	DisplayName string     `json:"display_name,omitempty"`
	Domain      string     `json:"domain,omitempty"`
	EmailType   string     `json:"email_type,omitempty"`
	DomainAge   *DomainAge `json:"domain_age,omitempty"`
	SPF         AuthStatus `json:"spf"`
	DMARC       AuthStatus `json:"dmarc"`
	DKIM        AuthStatus `json:"dkim"`
	Warnings    []string   `json:"warnings,omitempty"`
	Notes       []string   `json:"notes,omitempty"`
}

// EmailVerdict is the terminal result of an email scan
type EmailVerdict struct {
	ID                 uuid.UUID    `json:"id"`
	Summary            string       `json:"summary"`
	RuleBasedScore     int          `json:"rule_based_score"`
	RuleBasedReasons   []string     `json:"rule_based_reasons"`
	PerURLReports      []URLReport  `json:"per_url_reports"`
	SenderDomainReport SenderReport `json:"sender_domain_report"`
	FinalScore         int          `json:"final_email_risk_score"`
	FinalLabel         Label        `json:"final_email_risk_label"`
	Recommendations    []string     `json:"recommendations"`
	CombinedIndicators []string     `json:"combined_indicators"`
	ScannedAt          time.Time    `json:"scanned_at"`
}

// QR payload kinds
const (
	QRContentURL     = "url"
	QRContentText    = "text"
	QRContentInvalid = "invalid"
)

// QRVerdict is the result of scanning content decoded from a QR code
type QRVerdict struct {
	Decoded string       `json:"decoded"`
	Type    string       `json:"type"`
	Message string       `json:"message"`
	URL     string       `json:"url,omitempty"`
	Label   Label        `json:"label"`
	Score   int          `json:"score"`
	Reasons []string     `json:"reasons"`
	Report  *RiskVerdict `json:"report,omitempty"`
}

// Scan types recorded in history
const (
	ScanTypeURL   = "url"
	ScanTypeEmail = "email"
	ScanTypeQR    = "qr"
)

// ScanRecord is one persisted scan in a user's history
type ScanRecord struct {
	ID        uuid.UUID      `json:"id"`
	UserID    string         `json:"user_id"`
	ScanType  string         `json:"scan_type"`
	Target    string         `json:"target"`
	Result    map[string]any `json:"result"`
	RiskScore int            `json:"risk_score"`
	RiskLabel Label          `json:"risk_label"`
	CreatedAt time.Time      `json:"created_at"`
}

// DedupeReasons removes duplicate reasons, keeping first occurrences in order
func DedupeReasons(reasons []string) []string {
	seen := make(map[string]struct{}, len(reasons))
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if r == "" {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
