package lookup

import (
	"context"

	"igfollowers/pkg/models"
)

// Source is the capability a lookup backend must provide. A source is a
// pure mapping from username to a classified Outcome; the coordinator never
// inspects protocol detail beyond that contract.
type Source interface {
	// Name identifies the source in records and summaries.
	Name() string

	// Trusted reports whether this is the low-risk official source.
	// Non-definitive failures from a trusted source leave records
	// PENDING instead of marking them RATE_LIMITED, so the higher-risk
	// source can still try them.
	Trusted() bool

	// Resolve looks up one username. The context carries the per-call
	// timeout; implementations must honor cancellation.
	Resolve(ctx context.Context, username string) models.Outcome
}

// Store is the slice of the checkpoint store the coordinator drives.
// *checkpoint.DB implements it.
type Store interface {
	GetPending(limit int, includeRateLimited bool, maxRetries int) ([]models.Follower, error)
	UpdateResult(username string, out models.Outcome, source string, trusted bool) error
}
