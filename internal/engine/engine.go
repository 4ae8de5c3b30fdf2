// Package engine drives the crawl: breadth-first waves over the branch
// frontier, then a leaf phase that extracts and persists every section
// of every discovered leaf page. Concurrency is bounded only by the
// handle pool; the engine schedules one goroutine per node and lets
// Acquire provide the backpressure.
package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openlex/lexcrawl/internal/crawl"
	"github.com/openlex/lexcrawl/internal/metrics"
	"github.com/openlex/lexcrawl/internal/pool"
	"github.com/openlex/lexcrawl/internal/queue"
	"github.com/openlex/lexcrawl/internal/retry"
	"github.com/openlex/lexcrawl/internal/storage"
)

// Config bounds one crawl run.
type Config struct {
	Seeds       []string
	MaxAttempts int
	Backoff     time.Duration
	TaskTimeout time.Duration
}

// Engine runs one crawl from seeds to summary. It is single-shot:
// construct, Start once, read the Summary.
type Engine struct {
	cfg       Config
	pool      *pool.Pool
	site      crawl.Site
	guard     crawl.Guard
	archive   storage.Provider
	publisher queue.Publisher
	logger    *zap.Logger

	cancelOnce sync.Once
	cancelFn   context.CancelFunc

	mu         sync.Mutex
	started    bool
	canceled   bool
	startedAt  time.Time
	visited    map[string]bool
	leaves     []crawl.Target
	wave       int
	frontier   int
	inserted   int
	duplicates int
	exhausted  int
	fatal      int
	cancelled  int
}

// New builds an Engine. archive and publisher may be nil; they default
// to the no-op implementations.
func New(cfg Config, p *pool.Pool, site crawl.Site, guard crawl.Guard,
	archive storage.Provider, publisher queue.Publisher, logger *zap.Logger) *Engine {
	if archive == nil {
		archive = storage.NewNoOpProvider()
	}
	if publisher == nil {
		publisher = queue.NewNoOpPublisher()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	metrics.Init()
	return &Engine{
		cfg:       cfg,
		pool:      p,
		site:      site,
		guard:     guard,
		archive:   archive,
		publisher: publisher,
		logger:    logger,
		visited:   make(map[string]bool),
	}
}

// Start runs the crawl to completion or cancellation and returns the
// summary. It returns an error only on misuse; task failures are
// reported through the summary counters.
func (e *Engine) Start(ctx context.Context) (crawl.Summary, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.mu.Lock()
	if e.started {
		e.mu.Unlock()
		return crawl.Summary{}, errors.New("engine: already started")
	}
	if len(e.cfg.Seeds) == 0 {
		e.mu.Unlock()
		return crawl.Summary{}, errors.New("engine: no seeds")
	}
	e.started = true
	e.startedAt = time.Now()
	e.cancelFn = cancel

	// Seeds are marked visited at scheduling time, like every later
	// discovery, so a URL seeded twice is still fetched once.
	var seeds []crawl.Target
	for _, s := range e.cfg.Seeds {
		if e.visited[s] {
			continue
		}
		e.visited[s] = true
		seeds = append(seeds, crawl.Target{URL: s, Depth: 0})
	}
	e.mu.Unlock()

	e.runWaves(runCtx, seeds)
	e.runLeaves(runCtx)

	summary := e.summary()
	e.logger.Info("crawl finished",
		zap.Int("visited", summary.Visited),
		zap.Int("leaves", summary.Leaves),
		zap.Int("inserted", summary.Inserted),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("exhausted", summary.Exhausted),
		zap.Int("fatal", summary.Fatal),
		zap.Int("cancelled", summary.Cancelled),
		zap.Duration("elapsed", summary.Elapsed),
	)
	return summary, nil
}

// Cancel stops the crawl: in-flight work is interrupted, nothing new is
// scheduled, and Start returns with the counters as they stand. Safe to
// call any number of times, before or after completion.
func (e *Engine) Cancel() {
	e.cancelOnce.Do(func() {
		e.mu.Lock()
		e.canceled = true
		cancel := e.cancelFn
		e.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		e.pool.Shutdown()
		e.logger.Info("crawl cancellation requested")
	})
}

// Status reports a point-in-time snapshot for progress reporting.
func (e *Engine) Status() crawl.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	var elapsed time.Duration
	if !e.startedAt.IsZero() {
		elapsed = time.Since(e.startedAt)
	}
	return crawl.Snapshot{
		Elapsed:      elapsed,
		Wave:         e.wave,
		FrontierSize: e.frontier,
		Visited:      len(e.visited),
		Leaves:       len(e.leaves),
		EntriesAdded: e.inserted,
		HandlesInUse: e.pool.InUse(),
	}
}

// runWaves expands the frontier breadth-first. Each wave is a strict
// barrier: every fetch of wave N finishes before wave N+1 is scheduled.
func (e *Engine) runWaves(ctx context.Context, wave []crawl.Target) {
	for len(wave) > 0 && !e.isCanceled() && ctx.Err() == nil {
		var (
			wg   sync.WaitGroup
			dmu  sync.Mutex
			next []crawl.Target
		)
		for _, t := range wave {
			if e.isCanceled() || ctx.Err() != nil {
				break
			}
			wg.Add(1)
			go func(t crawl.Target) {
				defer wg.Done()
				res, ok := e.fetchTarget(ctx, t)
				if !ok {
					return
				}
				if res.IsLeaf {
					e.addLeaf(t)
				}
				fresh := e.schedule(res.Links, t.Depth+1)
				if len(fresh) > 0 {
					dmu.Lock()
					next = append(next, fresh...)
					dmu.Unlock()
				}
			}(t)
		}
		wg.Wait()

		e.mu.Lock()
		e.wave++
		e.frontier = len(next)
		e.mu.Unlock()
		metrics.ObserveWave()
		metrics.SetFrontierSize(len(next))

		wave = next
	}
}

// fetchTarget runs one frontier fetch under the retry policy. The
// second return value is false when the result is unusable.
func (e *Engine) fetchTarget(ctx context.Context, t crawl.Target) (crawl.FetchResult, bool) {
	h, err := e.pool.Acquire(ctx)
	if err != nil {
		e.countTaskError(err)
		return crawl.FetchResult{}, false
	}
	defer e.pool.Release(h)

	var res crawl.FetchResult
	start := time.Now()
	err = retry.Do(ctx, e.retryConfig(), func(ctx context.Context) error {
		r, err := e.site.Fetch(ctx, h, t)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	metrics.ObserveTask(metrics.TaskFetch, outcome(err), time.Since(start))
	if err != nil {
		e.countTaskError(err)
		e.logger.Warn("fetch failed",
			zap.String("url", t.URL), zap.Int("depth", t.Depth), zap.Error(err))
		return crawl.FetchResult{}, false
	}
	return res, true
}

// schedule marks the not-yet-visited links and returns them as targets.
func (e *Engine) schedule(links []string, depth int) []crawl.Target {
	if len(links) == 0 {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	var fresh []crawl.Target
	for _, link := range links {
		if link == "" || e.visited[link] {
			continue
		}
		e.visited[link] = true
		fresh = append(fresh, crawl.Target{URL: link, Depth: depth})
	}
	return fresh
}

func (e *Engine) addLeaf(t crawl.Target) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leaves = append(e.leaves, t)
}

// runLeaves processes every discovered leaf page. A leaf holds its
// handle for all of its sections: the postback scripts mutate browser
// state, so interleaving sections from different pages on one handle
// would corrupt both.
func (e *Engine) runLeaves(ctx context.Context) {
	e.mu.Lock()
	leaves := make([]crawl.Target, len(e.leaves))
	copy(leaves, e.leaves)
	e.mu.Unlock()

	var wg sync.WaitGroup
	for _, leaf := range leaves {
		if e.isCanceled() || ctx.Err() != nil {
			break
		}
		wg.Add(1)
		go func(leaf crawl.Target) {
			defer wg.Done()
			e.processLeaf(ctx, leaf)
		}(leaf)
	}
	wg.Wait()
}

func (e *Engine) processLeaf(ctx context.Context, leaf crawl.Target) {
	h, err := e.pool.Acquire(ctx)
	if err != nil {
		e.countTaskError(err)
		return
	}
	defer e.pool.Release(h)

	var sections []string
	err = retry.Do(ctx, e.retryConfig(), func(ctx context.Context) error {
		s, err := e.site.Sections(ctx, h, leaf)
		if err != nil {
			return err
		}
		sections = s
		return nil
	})
	if err != nil {
		e.countTaskError(err)
		e.logger.Warn("leaf sections failed", zap.String("url", leaf.URL), zap.Error(err))
		return
	}

	for _, section := range sections {
		if e.isCanceled() || ctx.Err() != nil {
			return
		}
		e.extractSection(ctx, h, leaf, section)
	}
}

func (e *Engine) extractSection(ctx context.Context, h pool.Handle, leaf crawl.Target, section string) {
	var rec crawl.Record
	start := time.Now()
	err := retry.Do(ctx, e.retryConfig(), func(ctx context.Context) error {
		r, err := e.site.Extract(ctx, h, leaf, section)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	metrics.ObserveTask(metrics.TaskExtract, outcome(err), time.Since(start))
	if err != nil {
		e.countTaskError(err)
		e.logger.Warn("extract failed", zap.String("leaf", leaf.URL), zap.Error(err))
		return
	}
	e.persist(ctx, rec)
}

// persist runs the check-then-insert dance. The pre-check only saves an
// insert attempt; the store's unique constraint is what actually
// guarantees single insertion under concurrency.
func (e *Engine) persist(ctx context.Context, rec crawl.Record) {
	exists, err := e.guard.Exists(ctx, rec.Key)
	if err != nil {
		e.logger.Warn("existence check failed, falling through to insert",
			zap.String("key", rec.Key), zap.Error(err))
	} else if exists {
		e.countDuplicate()
		return
	}

	switch err := e.guard.Insert(ctx, rec); {
	case err == nil:
		e.countInserted()
		e.afterInsert(ctx, rec)
	case errors.Is(err, crawl.ErrDuplicate):
		e.countDuplicate()
	default:
		e.mu.Lock()
		e.fatal++
		e.mu.Unlock()
		metrics.ObserveRecord("error")
		e.logger.Error("insert failed", zap.String("key", rec.Key), zap.Error(err))
	}
}

// afterInsert archives and announces the record. Both are best-effort.
func (e *Engine) afterInsert(ctx context.Context, rec crawl.Record) {
	data, err := json.Marshal(rec)
	if err != nil {
		e.logger.Warn("record marshal failed", zap.String("key", rec.Key), zap.Error(err))
		return
	}
	object := fmt.Sprintf("%s/%s.json", strings.ToLower(rec.Jurisdiction), rec.Key)
	if err := e.archive.Save(ctx, object, data); err != nil {
		e.logger.Warn("record archive failed", zap.String("key", rec.Key), zap.Error(err))
	}
	if err := e.publisher.Publish(ctx, rec.Key); err != nil {
		e.logger.Warn("record publish failed", zap.String("key", rec.Key), zap.Error(err))
	}
}

func (e *Engine) retryConfig() retry.Config {
	return retry.Config{
		MaxAttempts: e.cfg.MaxAttempts,
		Backoff:     e.cfg.Backoff,
		Timeout:     e.cfg.TaskTimeout,
	}
}

func (e *Engine) isCanceled() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.canceled
}

func (e *Engine) countInserted() {
	e.mu.Lock()
	e.inserted++
	e.mu.Unlock()
	metrics.ObserveRecord("inserted")
}

func (e *Engine) countDuplicate() {
	e.mu.Lock()
	e.duplicates++
	e.mu.Unlock()
	metrics.ObserveRecord("duplicate")
}

// countTaskError files a failed task under cancellation, exhaustion, or
// fatal, in that order of precedence.
func (e *Engine) countTaskError(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case errors.Is(err, pool.ErrClosed), errors.Is(err, context.Canceled):
		e.cancelled++
	case errors.Is(err, retry.ErrExhausted):
		e.exhausted++
	default:
		e.fatal++
	}
}

func (e *Engine) summary() crawl.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return crawl.Summary{
		Visited:    len(e.visited),
		Leaves:     len(e.leaves),
		Inserted:   e.inserted,
		Duplicates: e.duplicates,
		Exhausted:  e.exhausted,
		Fatal:      e.fatal,
		Cancelled:  e.cancelled,
		Elapsed:    time.Since(e.startedAt),
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, retry.ErrExhausted):
		return "exhausted"
	case errors.Is(err, context.Canceled), errors.Is(err, pool.ErrClosed):
		return "canceled"
	default:
		return "fatal"
	}
}
