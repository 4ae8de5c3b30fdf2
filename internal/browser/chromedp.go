// Package browser provides chromedp-backed crawl handles: one headless
// Chrome allocator shared by the pool, one browser context per handle.
package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/openlex/lexcrawl/internal/pool"
)

// Config controls handle behavior.
type Config struct {
	UserAgent         string
	NavigationTimeout time.Duration
}

// Factory implements pool.Factory using chromedp.
type Factory struct {
	cfg         Config
	allocator   context.Context
	allocCancel context.CancelFunc
}

// NewFactory builds the shared exec allocator. Close must be called once
// all handles created from it have been destroyed.
func NewFactory(cfg Config) *Factory {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 45 * time.Second
	}
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("hide-scrollbars", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return &Factory{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
	}
}

// Create starts a fresh browser session. The session is started eagerly
// so the pool's warm-up pays the full startup cost up front.
func (f *Factory) Create(ctx context.Context) (pool.Handle, error) {
	tabCtx, cancel := chromedp.NewContext(f.allocator)

	startup := []chromedp.Action{}
	if f.cfg.UserAgent != "" {
		startup = append(startup, emulation.SetUserAgentOverride(f.cfg.UserAgent))
	}
	done := make(chan error, 1)
	go func() { done <- chromedp.Run(tabCtx, startup...) }()
	select {
	case err := <-done:
		if err != nil {
			cancel()
			return nil, fmt.Errorf("browser: start session: %w", err)
		}
	case <-ctx.Done():
		cancel()
		return nil, fmt.Errorf("browser: start session: %w", ctx.Err())
	}

	return &Tab{ctx: tabCtx, cancel: cancel, cfg: f.cfg}, nil
}

// Close cancels the shared allocator, terminating Chrome.
func (f *Factory) Close() {
	f.allocCancel()
}

// Tab is one live browser session, checked in and out of the pool.
type Tab struct {
	ctx    context.Context
	cancel context.CancelFunc
	cfg    Config
}

// Close destroys the session.
func (t *Tab) Close() error {
	t.cancel()
	return nil
}

// Run executes actions against the session under the caller's context.
// The session's own context stays alive across calls; only the run is
// canceled when ctx is. Each run is additionally bounded by the
// configured navigation timeout when ctx carries no earlier deadline.
func (t *Tab) Run(ctx context.Context, actions ...chromedp.Action) error {
	timeout := t.cfg.NavigationTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	runCtx, cancel := context.WithTimeout(t.ctx, timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(runCtx, actions...) }()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("browser: run: %w", err)
		}
		return nil
	case <-ctx.Done():
		cancel()
		<-done
		return fmt.Errorf("browser: run canceled: %w", ctx.Err())
	}
}
