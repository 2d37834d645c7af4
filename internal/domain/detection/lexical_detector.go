package detection

import (
	"context"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/stoik/phish-verdict/internal/domain"
)

// LexicalDetector scores the URL string itself
//
// Covers length, hyphens, '@', keywords, IP hosts, shorteners, plain HTTP,
// unusual ports and open-redirect style query parameters.
type LexicalDetector struct {
	rules  LexicalRules
	weight float64
}

// NewLexicalDetector creates a new URL string heuristics detector
func NewLexicalDetector(rules Rules) *LexicalDetector {
	return &LexicalDetector{rules: rules.Lexical, weight: rules.Multiplier(NameLexical)}
}

// Name returns the detector name
func (d *LexicalDetector) Name() string {
	return NameLexical
}

// Weight returns the subscore multiplier
func (d *LexicalDetector) Weight() float64 {
	return d.weight
}

// Evaluate applies each string heuristic once and sums the hits
func (d *LexicalDetector) Evaluate(_ context.Context, target domain.ScanTarget, _ *domain.Page) domain.DetectorResult {
	res := newResult(d.Name(), d.weight)
	points := 0

	full := target.NormalizedURL
	// scheme is always present after normalization
	rest := strings.ToLower(full[strings.Index(full, "://")+3:])

	if d.rules.MaxURLLength > 0 && len(full) > d.rules.MaxURLLength {
		points += d.rules.LongURLWeight
		res.Reasons = append(res.Reasons, fmt.Sprintf("URL is unusually long (%d characters)", len(full)))
	}

	if hyphens := strings.Count(rest, "-"); hyphens > d.rules.MaxHyphens {
		points += d.rules.HyphenWeight
		res.Reasons = append(res.Reasons, fmt.Sprintf("URL contains many hyphens (%d)", hyphens))
	}

	if strings.Contains(rest, "@") {
		points += d.rules.AtSignWeight
		res.Reasons = append(res.Reasons, "URL contains an '@' symbol")
	}

	hits := matchedKeywords(rest, d.rules.Keywords)
	if d.rules.MaxKeywordHits >= 0 && len(hits) > d.rules.MaxKeywordHits {
		hits = hits[:d.rules.MaxKeywordHits]
	}
	for _, kw := range hits {
		points += d.rules.KeywordWeight
		res.Reasons = append(res.Reasons, fmt.Sprintf("Contains phishing-related keyword '%s'", kw))
	}

	if target.IsIP {
		points += d.rules.IPAddressWeight
		res.Reasons = append(res.Reasons, "Uses an IP address instead of a domain name")
	}

	if containsString(d.rules.Shorteners, target.RegistrableDomain) || containsString(d.rules.Shorteners, target.Host) {
		points += d.rules.ShortenerWeight
		res.Reasons = append(res.Reasons, fmt.Sprintf("Uses a URL shortener (%s)", target.Host))
	}

	if u, err := url.Parse(full); err == nil {
		points += d.scoreTransport(u, &res)
	}

	res.Subscore = score(points, d.weight)
	return res
}

func (d *LexicalDetector) scoreTransport(u *url.URL, res *domain.DetectorResult) int {
	points := 0

	if u.Scheme == "http" && d.rules.PlainHTTPWeight > 0 {
		points += d.rules.PlainHTTPWeight
		res.Reasons = append(res.Reasons, "Does not use HTTPS")
	}

	if p := u.Port(); p != "" {
		if n, err := strconv.Atoi(p); err == nil && !slices.Contains(d.rules.StandardPorts, n) {
			points += d.rules.NonStandardPortWeight
			res.Reasons = append(res.Reasons, fmt.Sprintf("Uses a non-standard port (%d)", n))
		}
	}

	query := u.Query()
	var params []string
	for _, name := range d.rules.RedirectParams {
		for key := range query {
			if strings.EqualFold(key, name) {
				params = append(params, name)
				break
			}
		}
	}
	if len(params) > 0 {
		points += d.rules.RedirectParamWeight
		res.Reasons = append(res.Reasons, fmt.Sprintf("URL carries redirect-style query parameters (%s)", strings.Join(params, ", ")))
	}

	return points
}
