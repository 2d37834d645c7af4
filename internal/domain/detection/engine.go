package detection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/domain/normalize"
	"github.com/stoik/phish-verdict/internal/ports"
)

const (
	DefaultOperationTimeout = 8 * time.Second
	DefaultScanTimeout      = 15 * time.Second
)

// Sources are the external lookups backing the standard detectors; any may be nil
type Sources struct {
	Feed    ports.Blocklist
	Threats ports.ThreatListClient
	Whois   ports.WhoisClient
	Certs   ports.CertificateClient
}

// StandardDetectors returns every URL detector in declaration order
//
// The order matters: verdict reasons are concatenated in it.
func StandardDetectors(rules Rules, src Sources) []Detector {
	return []Detector{
		NewLexicalDetector(rules),
		NewBrandDetector(rules),
		NewTLDDetector(rules),
		NewDOMDetector(rules),
		NewBlocklistDetector(rules, src.Feed, src.Threats),
		NewReputationDetector(rules, src.Whois, src.Certs),
	}
}

// Engine runs URL detectors concurrently and aggregates them into a RiskVerdict
//
// Every detector gets its own operation timeout inside one overall scan
// deadline. Detectors still running at the deadline are abandoned and show up
// in the breakdown as failed; completed results are kept. The page needed by
// DOM analysis is fetched once, concurrently with the other detectors.
type Engine struct {
	detectors   []Detector
	fetcher     ports.PageFetcher
	opTimeout   time.Duration
	scanTimeout time.Duration
	logger      *slog.Logger
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithPageFetcher enables page-based detectors
func WithPageFetcher(f ports.PageFetcher) EngineOption {
	return func(e *Engine) { e.fetcher = f }
}

// WithTimeouts sets the per-operation timeout and the overall scan deadline
func WithTimeouts(operation, scan time.Duration) EngineOption {
	return func(e *Engine) {
		if operation > 0 {
			e.opTimeout = operation
		}
		if scan > 0 {
			e.scanTimeout = scan
		}
	}
}

// WithLogger sets the engine logger
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine creates a new engine over the given detectors
func NewEngine(detectors []Detector, opts ...EngineOption) *Engine {
	e := &Engine{
		detectors:   detectors,
		opTimeout:   DefaultOperationTimeout,
		scanTimeout: DefaultScanTimeout,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// Scan normalizes rawURL and evaluates it; malformed input yields the invalid verdict
func (e *Engine) Scan(ctx context.Context, rawURL string) domain.RiskVerdict {
	target, err := normalize.Normalize(rawURL)
	if err != nil {
		e.logger.Debug("rejected url", "url", rawURL, "error", err)
		return domain.InvalidVerdict(rawURL)
	}
	return e.Evaluate(ctx, target)
}

type outcome struct {
	index   int
	result  domain.DetectorResult
	skipped bool
}

type pageFuture struct {
	done chan struct{}
	page *domain.Page
}

// Evaluate runs all applicable detectors against target and aggregates the results
func (e *Engine) Evaluate(ctx context.Context, target domain.ScanTarget) domain.RiskVerdict {
	ctx, cancel := context.WithTimeout(ctx, e.scanTimeout)
	defer cancel()

	page := e.startPageFetch(ctx, target)

	// Buffered so abandoned detectors never block on send
	outcomes := make(chan outcome, len(e.detectors))
	for i, d := range e.detectors {
		go e.run(ctx, i, d, target, page, outcomes)
	}

	results := make([]*domain.DetectorResult, len(e.detectors))
	skipped := make([]bool, len(e.detectors))
	pending := len(e.detectors)

collect:
	for pending > 0 {
		select {
		case o := <-outcomes:
			pending--
			if o.skipped {
				skipped[o.index] = true
				continue
			}
			r := o.result
			results[o.index] = &r
		case <-ctx.Done():
			break collect
		}
	}

	breakdown := make([]domain.DetectorResult, 0, len(e.detectors))
	for i, d := range e.detectors {
		if skipped[i] {
			continue
		}
		r := results[i]
		if r == nil {
			timedOut := failedResult(d.Name(), weightOf(d), domain.FailureNote(d.Name()+" detector", ctx.Err()))
			r = &timedOut
		}
		if r.Failed {
			e.logger.Warn("detector failed", "detector", r.Detector, "url", target.NormalizedURL, "note", r.FailureNote)
		}
		breakdown = append(breakdown, *r)
	}

	return Aggregate(target.NormalizedURL, breakdown)
}

func (e *Engine) startPageFetch(ctx context.Context, target domain.ScanTarget) *pageFuture {
	f := &pageFuture{done: make(chan struct{})}
	if e.fetcher == nil || !e.needsPage() {
		close(f.done)
		return f
	}

	go func() {
		defer close(f.done)
		fctx, cancel := context.WithTimeout(ctx, e.opTimeout)
		defer cancel()

		p, err := e.fetcher.Fetch(fctx, target.NormalizedURL)
		if err != nil {
			e.logger.Debug("page fetch failed, skipping page detectors", "url", target.NormalizedURL, "error", err)
			return
		}
		f.page = p
	}()
	return f
}

func (e *Engine) needsPage() bool {
	for _, d := range e.detectors {
		if requiresPage(d) {
			return true
		}
	}
	return false
}

func (e *Engine) run(ctx context.Context, index int, d Detector, target domain.ScanTarget, pf *pageFuture, out chan<- outcome) {
	var page *domain.Page
	if requiresPage(d) {
		select {
		case <-pf.done:
		case <-ctx.Done():
			return
		}
		if pf.page == nil || pf.page.HTML == "" {
			out <- outcome{index: index, skipped: true}
			return
		}
		page = pf.page
	}

	dctx, cancel := context.WithTimeout(ctx, e.opTimeout)
	defer cancel()
	out <- outcome{index: index, result: safeEvaluate(dctx, d, target, page)}
}

func safeEvaluate(ctx context.Context, d Detector, target domain.ScanTarget, page *domain.Page) (res domain.DetectorResult) {
	defer func() {
		if r := recover(); r != nil {
			res = failedResult(d.Name(), weightOf(d), fmt.Sprintf("%s detector crashed: %v", d.Name(), r))
		}
	}()
	res = d.Evaluate(ctx, target, page)
	if res.Detector == "" {
		res.Detector = d.Name()
	}
	if res.Reasons == nil {
		res.Reasons = []string{}
	}
	return res
}

// Aggregate sums detector subscores into a verdict
//
// Failed detectors stay in the breakdown but contribute nothing. Reasons keep
// detector order and are deduplicated.
func Aggregate(url string, breakdown []domain.DetectorResult) domain.RiskVerdict {
	total := 0
	reasons := make([]string, 0)
	var age *domain.DomainAge
	var cert *domain.CertificateInfo

	for _, r := range breakdown {
		if !r.Failed {
			total += domain.ClampScore(r.Subscore)
		}
		reasons = append(reasons, r.Reasons...)
		if age == nil && r.DomainAge != nil {
			age = r.DomainAge
		}
		if cert == nil && r.Certificate != nil {
			cert = r.Certificate
		}
	}

	final := domain.ClampScore(total)
	return domain.RiskVerdict{
		ID:          uuid.New(),
		URL:         url,
		Label:       domain.LabelFromScore(final),
		Score:       final,
		Reasons:     domain.DedupeReasons(reasons),
		Breakdown:   breakdown,
		DomainAge:   age,
		Certificate: cert,
		ScannedAt:   time.Now().UTC(),
	}
}
