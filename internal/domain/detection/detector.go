package detection

import (
	"context"
	"math"

	"github.com/stoik/phish-verdict/internal/domain"
)

// Detector names, also used as keys of Rules.Multipliers
const (
	NameLexical    = "lexical"
	NameBrand      = "brand_impersonation"
	NameTLD        = "tld"
	NameDOM        = "dom_form"
	NameBlocklist  = "blocklist"
	NameReputation = "domain_reputation"
)

// Detector defines the interface that all URL risk detectors must implement
//
// Evaluate never fails outward: a broken lookup becomes a result with
// Failed=true, Subscore 0 and a FailureNote. page is nil unless the detector
// asked for one through PageDetector and the fetch succeeded.
type Detector interface {
	// Name returns the detector name used in the verdict breakdown
	Name() string

	// Evaluate scores one target
	Evaluate(ctx context.Context, target domain.ScanTarget, page *domain.Page) domain.DetectorResult
}

// PageDetector is implemented by detectors that only run on fetched HTML
type PageDetector interface {
	Detector
	RequiresPage() bool
}

// WeightedDetector is implemented by detectors whose subscore is scaled by a multiplier
type WeightedDetector interface {
	Weight() float64
}

func requiresPage(d Detector) bool {
	pd, ok := d.(PageDetector)
	return ok && pd.RequiresPage()
}

// weightOf returns the multiplier a detector reports, 1 when it reports none
func weightOf(d Detector) float64 {
	if w, ok := d.(WeightedDetector); ok {
		return w.Weight()
	}
	return 1.0
}

func newResult(name string, weight float64) domain.DetectorResult {
	return domain.DetectorResult{Detector: name, Weight: weight, Reasons: []string{}}
}

// score applies the detector multiplier to a raw point total and clamps it
func score(points int, weight float64) int {
	return domain.ClampScore(int(math.Round(float64(points) * weight)))
}

func failedResult(name string, weight float64, note string) domain.DetectorResult {
	res := newResult(name, weight)
	res.Failed = true
	res.FailureNote = note
	res.Reasons = append(res.Reasons, note)
	return res
}
