// Package sinks holds the built-in progress sink implementations.
package sinks

import (
	"go.uber.org/zap"

	"github.com/openlex/lexcrawl/internal/crawl"
)

// LogSink emits structured logs for each status snapshot. It is useful
// during development or audits where no console is attached.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a Zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs the snapshot using structured fields.
func (s *LogSink) Consume(snap crawl.Snapshot) {
	s.logger.Info("crawl progress",
		zap.Duration("elapsed", snap.Elapsed),
		zap.Int("wave", snap.Wave),
		zap.Int("frontier", snap.FrontierSize),
		zap.Int("visited", snap.Visited),
		zap.Int("leaves", snap.Leaves),
		zap.Int("entries_added", snap.EntriesAdded),
		zap.Int("handles_in_use", snap.HandlesInUse),
	)
}

// Close logs the final snapshot.
func (s *LogSink) Close(final crawl.Snapshot) {
	s.logger.Info("crawl finished",
		zap.Duration("elapsed", final.Elapsed),
		zap.Int("visited", final.Visited),
		zap.Int("leaves", final.Leaves),
		zap.Int("entries_added", final.EntriesAdded),
	)
}
