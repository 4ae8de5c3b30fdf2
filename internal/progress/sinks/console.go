package sinks

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/openlex/lexcrawl/internal/crawl"
)

// ConsoleSink renders a single-line spinner with the running crawl
// counters, the interactive counterpart of LogSink.
type ConsoleSink struct {
	bar *progressbar.ProgressBar
}

// NewConsoleSink builds the spinner. It writes to stderr so piped
// output stays clean.
func NewConsoleSink() *ConsoleSink {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("crawling"),
		progressbar.OptionSetRenderBlankState(true),
	)
	return &ConsoleSink{bar: bar}
}

// Consume refreshes the status line.
func (s *ConsoleSink) Consume(snap crawl.Snapshot) {
	s.bar.Describe(fmt.Sprintf(
		"elapsed %s | wave %d | frontier %d | visited %d | leaves %d | entries %d | handles %d",
		snap.Elapsed.Round(time.Second), snap.Wave, snap.FrontierSize,
		snap.Visited, snap.Leaves, snap.EntriesAdded, snap.HandlesInUse,
	))
	_ = s.bar.Add(1)
}

// Close finishes the spinner and prints the end state.
func (s *ConsoleSink) Close(final crawl.Snapshot) {
	_ = s.bar.Finish()
	fmt.Fprintf(os.Stderr, "\ndone in %s: visited %d, leaves %d, entries added %d\n",
		final.Elapsed.Round(time.Second), final.Visited, final.Leaves, final.EntriesAdded)
}
