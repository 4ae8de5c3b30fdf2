// Package progress periodically samples the crawl engine's status and
// fans the snapshot out to pluggable sinks: structured logs, Prometheus
// gauges, or a console status line.
package progress

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openlex/lexcrawl/internal/crawl"
)

// Sink consumes status snapshots. Implementations must tolerate
// repeated calls; Close is called exactly once with the final snapshot.
type Sink interface {
	Consume(snap crawl.Snapshot)
	Close(final crawl.Snapshot)
}

// Reporter polls a status function on a fixed interval and forwards
// each snapshot to every sink. Stop takes a last sample so sinks always
// see the end state even if it landed between ticks.
type Reporter struct {
	interval time.Duration
	status   func() crawl.Snapshot
	sinks    []Sink
	logger   *zap.Logger

	quit      chan struct{}
	done      chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once
}

// NewReporter builds a stopped reporter. A non-positive interval
// defaults to one second.
func NewReporter(interval time.Duration, status func() crawl.Snapshot, logger *zap.Logger, sinks ...Sink) *Reporter {
	if interval <= 0 {
		interval = time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		interval: interval,
		status:   status,
		sinks:    sinks,
		logger:   logger,
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the sampling loop. Calling it twice is a no-op.
func (r *Reporter) Start() {
	r.startOnce.Do(func() {
		go r.loop()
	})
}

func (r *Reporter) loop() {
	defer close(r.done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			snap := r.status()
			for _, s := range r.sinks {
				s.Consume(snap)
			}
		case <-r.quit:
			return
		}
	}
}

// Stop halts sampling, delivers a final snapshot to every sink, and
// closes them. Safe to call more than once.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		r.Start() // ensure done is eventually closed even if never started
		close(r.quit)
		<-r.done
		final := r.status()
		for _, s := range r.sinks {
			s.Close(final)
		}
		r.logger.Info("progress reporting stopped",
			zap.Int("visited", final.Visited),
			zap.Int("entries_added", final.EntriesAdded),
		)
	})
}
