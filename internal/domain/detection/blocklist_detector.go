package detection

import (
	"context"
	"strings"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/ports"
)

// BlocklistDetector checks the URL against the local phishing feed and a remote threat list
//
// Both sources are optional. The detector only reports Failed when every
// configured source was unreachable; a feed hit still counts when the remote
// query fails.
type BlocklistDetector struct {
	feed    ports.Blocklist
	threats ports.ThreatListClient
	rules   BlocklistRules
	weight  float64
}

// NewBlocklistDetector creates a new blocklist detector; feed and threats may be nil
func NewBlocklistDetector(rules Rules, feed ports.Blocklist, threats ports.ThreatListClient) *BlocklistDetector {
	return &BlocklistDetector{
		feed:    feed,
		threats: threats,
		rules:   rules.Blocklist,
		weight:  rules.Multiplier(NameBlocklist),
	}
}

// Name returns the detector name
func (d *BlocklistDetector) Name() string {
	return NameBlocklist
}

// Weight returns the subscore multiplier
func (d *BlocklistDetector) Weight() float64 {
	return d.weight
}

// Evaluate queries each configured source
func (d *BlocklistDetector) Evaluate(ctx context.Context, target domain.ScanTarget, _ *domain.Page) domain.DetectorResult {
	res := newResult(d.Name(), d.weight)
	points := 0
	answered := 0
	notes := make([]string, 0)

	if d.feed != nil {
		answered++
		if d.feed.Contains(target.NormalizedURL) {
			points += d.rules.FeedWeight
			res.Reasons = append(res.Reasons, "URL is listed in the phishing feed")
		}
	}

	if d.threats != nil {
		match, err := d.threats.Query(ctx, target.NormalizedURL)
		if err != nil {
			notes = append(notes, domain.FailureNote("threat list query", err))
		} else {
			answered++
			if match.Flagged {
				points += d.rules.ThreatListWeight
				res.Reasons = append(res.Reasons, "URL is flagged by the remote threat list")
			}
		}
	}

	if len(notes) > 0 {
		note := strings.Join(notes, "; ")
		if answered == 0 {
			return failedResult(d.Name(), d.weight, note)
		}
		res.FailureNote = note
		res.Reasons = append(res.Reasons, note)
	}

	res.Subscore = score(points, d.weight)
	return res
}
