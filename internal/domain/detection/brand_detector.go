package detection

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/net/idna"

	"github.com/stoik/phish-verdict/internal/domain"
)

// BrandDetector detects domains impersonating a known brand
//
// Three patterns are recognised, checked in order for every brand:
//   - the brand appears as a whole token of an unrelated domain ("paypal-secure-login.tk")
//   - the domain spells the brand with lookalike characters ("paypa1.com", "g00gle.com")
//   - the domain is close to the brand by edit distance ("paypall.com")
//
// A domain whose registered label is the brand itself is never flagged.
type BrandDetector struct {
	rules  BrandRules
	weight float64
}

// NewBrandDetector creates a new brand impersonation detector
func NewBrandDetector(rules Rules) *BrandDetector {
	brand := rules.Brand
	brands := make([]string, 0, len(brand.Brands))
	for _, b := range brand.Brands {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			brands = append(brands, b)
		}
	}
	brand.Brands = brands
	return &BrandDetector{rules: brand, weight: rules.Multiplier(NameBrand)}
}

// Name returns the detector name
func (d *BrandDetector) Name() string {
	return NameBrand
}

// Weight returns the subscore multiplier
func (d *BrandDetector) Weight() float64 {
	return d.weight
}

// Evaluate compares every candidate token of the host against the brand list
func (d *BrandDetector) Evaluate(_ context.Context, target domain.ScanTarget, _ *domain.Page) domain.DetectorResult {
	res := newResult(d.Name(), d.weight)
	if target.IsIP || target.DomainName == "" {
		return res
	}

	candidates := d.candidates(target)
	points := 0

	for _, brand := range d.rules.Brands {
		// Legitimate brand domain
		if target.DomainName == brand {
			continue
		}

		for _, cand := range candidates {
			if reason, weight, ok := d.match(cand, brand, target); ok {
				points += weight
				res.Reasons = append(res.Reasons, reason)
				break
			}
		}
	}

	res.Subscore = score(points, d.weight)
	return res
}

func (d *BrandDetector) match(cand, brand string, target domain.ScanTarget) (string, int, bool) {
	if cand == brand {
		return fmt.Sprintf("Brand name '%s' embedded in unrelated domain %s", brand, target.RegistrableDomain),
			d.rules.EmbeddedWeight, true
	}

	if homoglyphMatch(cand, brand, d.rules.Homoglyphs) {
		return fmt.Sprintf("Homoglyph lookalike of brand '%s' (%s)", brand, cand),
			d.rules.HomoglyphWeight, true
	}

	sim := similarity(cand, brand)
	if sim >= d.rules.SimilarityMin && sim < d.rules.SimilarityMax {
		return fmt.Sprintf("Lookalike of brand '%s' (%s, similarity %.2f)", brand, cand, sim),
			d.rules.LookalikeWeight, true
	}

	return "", 0, false
}

// candidates returns the labels and hyphen tokens of the host worth comparing
//
// Punycode labels are compared in their Unicode form so that Cyrillic
// lookalikes reach the homoglyph table.
func (d *BrandDetector) candidates(target domain.ScanTarget) []string {
	labels := []string{target.DomainName}
	if sub := strings.TrimSuffix(target.Host, target.RegistrableDomain); sub != target.Host {
		for _, l := range strings.Split(strings.TrimSuffix(sub, "."), ".") {
			if l != "" {
				labels = append(labels, l)
			}
		}
	}

	seen := make(map[string]struct{})
	out := make([]string, 0, len(labels)*2)
	add := func(s string) {
		if utf8.RuneCountInString(s) < d.rules.MinTokenLength {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}

	for _, label := range labels {
		if strings.HasPrefix(label, "xn--") {
			if u, err := idna.Lookup.ToUnicode(label); err == nil {
				label = u
			}
		}
		add(label)
		for _, tok := range strings.Split(label, "-") {
			add(tok)
		}
	}
	return out
}

// homoglyphMatch reports whether cand spells brand with at least one lookalike substitution
func homoglyphMatch(cand, brand string, glyphs map[string][]string) bool {
	if cand == brand {
		return false
	}
	return spellsWith(cand, brand, glyphs)
}

func spellsWith(cand, brand string, glyphs map[string][]string) bool {
	if brand == "" {
		return cand == ""
	}
	head := brand[:1]
	if strings.HasPrefix(cand, head) && spellsWith(cand[1:], brand[1:], glyphs) {
		return true
	}
	for _, alt := range glyphs[head] {
		if alt != "" && strings.HasPrefix(cand, alt) && spellsWith(cand[len(alt):], brand[1:], glyphs) {
			return true
		}
	}
	return false
}

// similarity is 1 - levenshtein/maxLen, in [0, 1]
func similarity(a, b string) float64 {
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1.0
	}
	return 1.0 - float64(fuzzy.LevenshteinDistance(a, b))/float64(maxLen)
}
