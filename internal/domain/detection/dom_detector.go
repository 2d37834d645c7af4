package detection

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/domain/normalize"
)

// DOMDetector inspects fetched HTML for credential-harvesting structure
//
// Categories: password fields, forms posting to another domain, hidden
// iframes, and heavy third-party script loading. Each category is capped so
// a page full of copies of one signal cannot saturate the score.
type DOMDetector struct {
	rules  DOMRules
	weight float64
}

// NewDOMDetector creates a new page structure detector
func NewDOMDetector(rules Rules) *DOMDetector {
	return &DOMDetector{rules: rules.DOM, weight: rules.Multiplier(NameDOM)}
}

// Name returns the detector name
func (d *DOMDetector) Name() string {
	return NameDOM
}

// Weight returns the subscore multiplier
func (d *DOMDetector) Weight() float64 {
	return d.weight
}

// RequiresPage marks the detector as HTML-only
func (d *DOMDetector) RequiresPage() bool {
	return true
}

// Evaluate parses the page and scores each category independently
func (d *DOMDetector) Evaluate(_ context.Context, target domain.ScanTarget, page *domain.Page) domain.DetectorResult {
	res := newResult(d.Name(), d.weight)
	if page == nil || strings.TrimSpace(page.HTML) == "" {
		return res
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return failedResult(d.Name(), d.weight, domain.FailureNote("HTML parsing", err))
	}

	base, baseDomain := pageBase(target, page)
	points := 0

	passwords := 0
	doc.Find("input").Each(func(_ int, s *goquery.Selection) {
		if strings.EqualFold(strings.TrimSpace(getAttr(s, "type")), "password") {
			passwords++
		}
	})
	if n := min(passwords, d.rules.MaxPasswordHits); n > 0 {
		points += n * d.rules.PasswordFieldWeight
		res.Reasons = append(res.Reasons, fmt.Sprintf("Page contains %d password input field(s)", passwords))
	}

	externalForms := make([]string, 0)
	doc.Find("form").Each(func(_ int, s *goquery.Selection) {
		action := strings.TrimSpace(getAttr(s, "action"))
		if action == "" || strings.HasPrefix(action, "#") {
			return
		}
		if dest := resolveRegistrable(base, action); dest != "" && dest != baseDomain {
			externalForms = append(externalForms, dest)
		}
	})
	for i, dest := range externalForms {
		if i >= d.rules.MaxExternalFormHits {
			break
		}
		points += d.rules.ExternalFormWeight
		res.Reasons = append(res.Reasons, fmt.Sprintf("Form submits data to external domain %s", dest))
	}

	hidden := 0
	doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
		if isHiddenFrame(s) {
			hidden++
		}
	})
	if n := min(hidden, d.rules.MaxHiddenIframeHits); n > 0 {
		points += n * d.rules.HiddenIframeWeight
		res.Reasons = append(res.Reasons, fmt.Sprintf("Page embeds %d hidden or zero-size iframe(s)", hidden))
	}

	thirdParty := 0
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		if dest := resolveRegistrable(base, getAttr(s, "src")); dest != "" && dest != baseDomain {
			thirdParty++
		}
	})
	if thirdParty > d.rules.ThirdPartyScriptThreshold {
		points += d.rules.ThirdPartyScriptWeight
		res.Reasons = append(res.Reasons, fmt.Sprintf("Page loads %d scripts from third-party domains", thirdParty))
	}

	res.Subscore = score(points, d.weight)
	return res
}

// pageBase picks the URL relative references resolve against, preferring where the page was actually served from
func pageBase(target domain.ScanTarget, page *domain.Page) (*url.URL, string) {
	for _, raw := range []string{page.FinalURL, target.NormalizedURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if reg := normalize.RegistrableDomain(raw); reg != "" {
			return u, reg
		}
	}
	return nil, target.RegistrableDomain
}

func isHiddenFrame(s *goquery.Selection) bool {
	if _, ok := s.Attr("hidden"); ok {
		return true
	}
	style := strings.ReplaceAll(strings.ToLower(getAttr(s, "style")), " ", "")
	if strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden") {
		return true
	}
	for _, dim := range []string{"width", "height"} {
		switch strings.TrimSpace(strings.ToLower(getAttr(s, dim))) {
		case "0", "0px":
			return true
		}
		if strings.Contains(style, dim+":0;") || strings.HasSuffix(style, dim+":0") || strings.Contains(style, dim+":0px") {
			return true
		}
	}
	return false
}

func getAttr(s *goquery.Selection, name string) string {
	v, _ := s.Attr(name)
	return v
}
