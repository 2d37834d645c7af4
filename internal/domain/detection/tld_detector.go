package detection

import (
	"context"
	"fmt"
	"strings"

	"github.com/stoik/phish-verdict/internal/domain"
)

// TLDDetector flags top-level domains with a high abuse rate
type TLDDetector struct {
	risky  map[string]struct{}
	points int
	weight float64
}

// NewTLDDetector creates a new risky TLD detector
func NewTLDDetector(rules Rules) *TLDDetector {
	risky := make(map[string]struct{}, len(rules.TLD.RiskyTLDs))
	for _, tld := range rules.TLD.RiskyTLDs {
		risky[strings.TrimPrefix(strings.ToLower(tld), ".")] = struct{}{}
	}
	return &TLDDetector{risky: risky, points: rules.TLD.Weight, weight: rules.Multiplier(NameTLD)}
}

// Name returns the detector name
func (d *TLDDetector) Name() string {
	return NameTLD
}

// Weight returns the subscore multiplier
func (d *TLDDetector) Weight() float64 {
	return d.weight
}

// Evaluate checks the last label of the public suffix
func (d *TLDDetector) Evaluate(_ context.Context, target domain.ScanTarget, _ *domain.Page) domain.DetectorResult {
	res := newResult(d.Name(), d.weight)
	if target.PublicSuffix == "" {
		return res
	}

	tld := target.PublicSuffix[strings.LastIndex(target.PublicSuffix, ".")+1:]
	if _, ok := d.risky[tld]; ok {
		res.Subscore = score(d.points, d.weight)
		res.Reasons = append(res.Reasons, fmt.Sprintf("Suspicious top-level domain: .%s", tld))
	}
	return res
}
