package fetch

import (
	"context"

	"github.com/tmcphee/casewatch/app/exposure"
)

// Fetcher retrieves the current exposure-site publication as a snapshot.
// A non-nil error means the upstream could not be read; implementations
// never return a partial snapshot alongside an error.
type Fetcher interface {
	Fetch(ctx context.Context) (exposure.Snapshot, error)
}
