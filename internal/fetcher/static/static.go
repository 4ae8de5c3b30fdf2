// Package static fetches pages over plain HTTP with colly and parses
// them into goquery documents. The crawl engine's sites use it as a
// cheap probe before committing a browser handle to a render.
package static

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
}

// Fetcher wraps a base colly collector. Each Get runs on a clone so
// concurrent callers never share callback state.
type Fetcher struct {
	cfg    Config
	base   *colly.Collector
	logger *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	return &Fetcher{cfg: cfg, base: c, logger: logger}
}

// Get fetches url and parses the response body.
func (f *Fetcher) Get(ctx context.Context, url string) (*goquery.Document, error) {
	collector := f.base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var (
		body     []byte
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		if r.StatusCode >= 400 {
			fetchErr = fmt.Errorf("static: %s returned status %d", url, r.StatusCode)
			return
		}
		body = r.Body
	})
	collector.OnError(func(r *colly.Response, err error) {
		fetchErr = fmt.Errorf("static: fetch %s: %w", url, err)
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("static: fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return nil, fmt.Errorf("static: visit %s: %w", url, err)
		}
		if fetchErr != nil {
			return nil, fetchErr
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("static: parse %s: %w", url, err)
	}
	return doc, nil
}
