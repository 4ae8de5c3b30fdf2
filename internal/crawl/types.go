// Package crawl defines core types shared across subsystems.
package crawl

import "time"

// Target is a single frontier node: a URL plus the BFS depth it was
// discovered at.
type Target struct {
	URL   string
	Depth int
}

// FetchResult is the classified outcome of fetching one frontier node.
// A page can both expand into further branch links and host extractable
// sections, so the two are not mutually exclusive.
type FetchResult struct {
	// Links are newly discovered branch links to schedule.
	Links []string
	// IsLeaf marks the target as carrying extractable section content.
	IsLeaf bool
}

// Heading is one level of the statute hierarchy a record sits under
// (code, division, title, part, chapter, article, provisions).
type Heading struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Note  string `json:"note,omitempty"`
}

// Record is the structured output of extracting one section of a leaf
// page. Key is the natural key used for deduplication.
type Record struct {
	Key          string    `json:"key"`
	URL          string    `json:"url"`
	Jurisdiction string    `json:"jurisdiction"`
	Section      string    `json:"section"`
	Headings     []Heading `json:"headings,omitempty"`
	Text         string    `json:"text"`
	CollectedAt  time.Time `json:"collected_at"`
}

// Summary reports the final counts of one crawl run. Cancelled counts
// tasks aborted by cooperative cancellation rather than by failure.
type Summary struct {
	Visited    int           `json:"visited"`
	Leaves     int           `json:"leaves"`
	Inserted   int           `json:"inserted"`
	Duplicates int           `json:"duplicates"`
	Exhausted  int           `json:"exhausted"`
	Fatal      int           `json:"fatal"`
	Cancelled  int           `json:"cancelled"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Failures is the total number of failed tasks in the run.
func (s Summary) Failures() int {
	return s.Exhausted + s.Fatal
}

// Snapshot is a point-in-time view of a running crawl, consumed by the
// progress reporter and the status endpoint.
type Snapshot struct {
	Elapsed      time.Duration `json:"elapsed"`
	Wave         int           `json:"wave"`
	FrontierSize int           `json:"frontier_size"`
	Visited      int           `json:"visited"`
	Leaves       int           `json:"leaves"`
	EntriesAdded int           `json:"entries_added"`
	HandlesInUse int           `json:"handles_in_use"`
}
