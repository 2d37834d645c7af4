package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/stoik/phish-verdict/internal/domain"
)

// ChromeFetcher renders pages in headless Chrome so script-built forms are visible
type ChromeFetcher struct {
	allocOpts []chromedp.ExecAllocatorOption
	idleAfter time.Duration
	logger    *slog.Logger
}

// NewChromeFetcher creates a fetcher that waits for idleAfter of network quiet before reading the DOM
func NewChromeFetcher(idleAfter time.Duration, logger *slog.Logger, opts ...chromedp.ExecAllocatorOption) *ChromeFetcher {
	if idleAfter <= 0 {
		idleAfter = 2 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	allocOpts := append(append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...), opts...)
	return &ChromeFetcher{
		allocOpts: allocOpts,
		idleAfter: idleAfter,
		logger:    logger.With("component", "fetcher", "backend", BackendChromedp),
	}
}

// Fetch navigates to url and returns the rendered HTML; the deadline comes from ctx
func (f *ChromeFetcher) Fetch(ctx context.Context, url string) (*domain.Page, error) {
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, f.allocOpts...)
	defer cancelAlloc()
	taskCtx, cancelTask := chromedp.NewContext(allocCtx)
	defer cancelTask()

	idle := waitNetworkIdle(taskCtx, f.idleAfter)

	if err := chromedp.Run(taskCtx, network.Enable(), chromedp.Navigate(url)); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}

	select {
	case <-idle:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	var html, location string
	if err := chromedp.Run(taskCtx,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&location),
	); err != nil {
		return nil, fmt.Errorf("read dom: %w", err)
	}

	f.logger.Debug("page rendered", "url", url, "final_url", location, "bytes", len(html))
	return &domain.Page{HTML: html, FinalURL: location}, nil
}

// waitNetworkIdle signals once no request has been in flight for idleAfter
func waitNetworkIdle(ctx context.Context, idleAfter time.Duration) <-chan struct{} {
	idle := make(chan struct{})
	tracker := newRequestTracker()
	var (
		mu    sync.Mutex
		timer *time.Timer
		once  sync.Once
	)

	arm := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(idleAfter, func() {
			if tracker.idle() {
				once.Do(func() { close(idle) })
			}
		})
	}

	chromedp.ListenTarget(ctx, func(ev any) {
		if tracker.observe(ev) {
			arm()
		}
	})
	arm()
	return idle
}

// requestTracker keeps the set of in-flight requests by ID
//
// Chrome re-announces a redirected request under the same ID with
// RedirectResponse set, and sends a single LoadingFinished for the whole chain.
type requestTracker struct {
	mu       sync.Mutex
	inflight map[network.RequestID]struct{}
}

func newRequestTracker() *requestTracker {
	return &requestTracker{inflight: make(map[network.RequestID]struct{})}
}

// observe records a network event and reports whether it ended the last in-flight request
func (t *requestTracker) observe(ev any) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		if e.RedirectResponse == nil {
			t.inflight[e.RequestID] = struct{}{}
		}
	case *network.EventLoadingFinished:
		return t.finish(e.RequestID)
	case *network.EventLoadingFailed:
		return t.finish(e.RequestID)
	}
	return false
}

func (t *requestTracker) finish(id network.RequestID) bool {
	if _, ok := t.inflight[id]; !ok {
		return false
	}
	delete(t.inflight, id)
	return len(t.inflight) == 0
}

func (t *requestTracker) idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight) == 0
}
