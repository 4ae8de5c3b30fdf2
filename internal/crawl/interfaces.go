package crawl

import (
	"context"
	"errors"

	"github.com/openlex/lexcrawl/internal/pool"
)

// ErrDuplicate is returned by Guard.Insert when the record's natural key
// already exists. Duplicates are counted, not treated as failures.
var ErrDuplicate = errors.New("crawl: duplicate record")

// Site is the fetch/extract collaborator. All site-specific DOM logic
// lives behind this interface; the engine only classifies its results.
// Implementations signal non-retryable failures (a page whose structure
// matches no known pattern) by wrapping the error in retry.Permanent.
type Site interface {
	// Fetch visits a frontier node with the given handle and classifies
	// it: branch links to schedule and/or a leaf marker.
	Fetch(ctx context.Context, h pool.Handle, t Target) (FetchResult, error)

	// Sections enumerates the sub-targets of a leaf page.
	Sections(ctx context.Context, h pool.Handle, leaf Target) ([]string, error)

	// Extract produces the Record for one of a leaf page's sections.
	Extract(ctx context.Context, h pool.Handle, leaf Target, section string) (Record, error)
}

// Guard is the persistence collaborator providing existence-check and
// insert keyed on a Record's natural key. The existence check is an
// optimization; Insert must be the authoritative dedup and return
// ErrDuplicate when the key is already stored.
type Guard interface {
	Exists(ctx context.Context, key string) (bool, error)
	Insert(ctx context.Context, rec Record) error
}
