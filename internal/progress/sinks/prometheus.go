package sinks

import (
	"github.com/openlex/lexcrawl/internal/crawl"
	"github.com/openlex/lexcrawl/internal/metrics"
)

// PromSink mirrors snapshot gauges into the Prometheus collectors.
type PromSink struct{}

// NewPromSink initializes the collectors and returns the sink.
func NewPromSink() *PromSink {
	metrics.Init()
	return &PromSink{}
}

// Consume updates the gauges from the snapshot.
func (s *PromSink) Consume(snap crawl.Snapshot) {
	metrics.SetHandlesInUse(snap.HandlesInUse)
	metrics.SetFrontierSize(snap.FrontierSize)
}

// Close zeroes the gauges.
func (s *PromSink) Close(crawl.Snapshot) {
	metrics.SetHandlesInUse(0)
	metrics.SetFrontierSize(0)
}
