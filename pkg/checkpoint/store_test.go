package checkpoint

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/models"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "checkpoint.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUsernames(t *testing.T, db *DB, usernames ...string) {
	t.Helper()
	followers := make([]models.Follower, len(usernames))
	for i, u := range usernames {
		followers[i] = models.Follower{Username: u}
	}
	n, err := db.Seed(followers)
	require.NoError(t, err)
	require.Equal(t, len(usernames), n)
}

func TestSeedIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	followers := []models.Follower{
		{Username: "alice", FollowedAt: time.Unix(1700000000, 0)},
		{Username: "bob"},
	}

	inserted, err := db.Seed(followers)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Resolve one record, then seed again; state must survive.
	err = db.UpdateResult("alice", models.Resolved(&models.ProfileAttributes{FollowerCount: 42}), "graph_api", true)
	require.NoError(t, err)

	inserted, err = db.Seed(append(followers, models.Follower{Username: "carol"}))
	require.NoError(t, err)
	assert.Equal(t, 1, inserted, "only the new username should insert")

	summary, err := db.Summary()
	require.NoError(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 2, summary.Pending)
}

func TestUpdateResultTransitions(t *testing.T) {
	db := openTestDB(t)
	seedUsernames(t, db, "alice", "bob", "carol", "dave")

	// Resolved -> SUCCESS with attributes.
	verified := true
	err := db.UpdateResult("alice", models.Resolved(&models.ProfileAttributes{
		FollowerCount:  1234,
		FollowingCount: 56,
		FullName:       "Alice A",
		IsVerified:     &verified,
	}), "scraper", false)
	require.NoError(t, err)

	// NotFound -> FAILED.
	err = db.UpdateResult("bob", models.NotFound(), "scraper", false)
	require.NoError(t, err)

	// RateLimited from the scraper -> RATE_LIMITED.
	err = db.UpdateResult("carol", models.RateLimited(0, errors.New("429")), "scraper", false)
	require.NoError(t, err)

	// RateLimited from the official source -> stays PENDING.
	err = db.UpdateResult("dave", models.RateLimited(0, errors.New("throttled")), "graph_api", true)
	require.NoError(t, err)

	summary, err := db.Summary()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, 1, summary.RateLimited)
	assert.Equal(t, 1, summary.Pending)
	assert.Equal(t, map[string]int{"scraper": 1}, summary.BySource)

	resolved, err := db.AllResolved()
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, "alice", resolved[0].Username)
	require.NotNil(t, resolved[0].Attributes)
	assert.Equal(t, 1234, resolved[0].Attributes.FollowerCount)
	assert.Equal(t, "Alice A", resolved[0].Attributes.FullName)
	require.NotNil(t, resolved[0].Attributes.IsVerified)
	assert.True(t, *resolved[0].Attributes.IsVerified)
	assert.False(t, resolved[0].LastAttempt.IsZero())
}

func TestAbsorbingStates(t *testing.T) {
	db := openTestDB(t)
	seedUsernames(t, db, "alice", "bob")

	require.NoError(t, db.UpdateResult("alice",
		models.Resolved(&models.ProfileAttributes{FollowerCount: 10}), "graph_api", true))
	require.NoError(t, db.UpdateResult("bob", models.NotFound(), "scraper", false))

	// Non-definitive outcomes must not move absorbed records.
	require.NoError(t, db.UpdateResult("alice", models.RateLimited(0, nil), "scraper", false))
	require.NoError(t, db.UpdateResult("bob", models.Transient(errors.New("timeout")), "scraper", false))

	summary, err := db.Summary()
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, summary.Failed)

	// A later Resolved may refresh attributes but never resurrects FAILED.
	require.NoError(t, db.UpdateResult("alice",
		models.Resolved(&models.ProfileAttributes{FollowerCount: 11}), "scraper", false))

	resolved, err := db.AllResolved()
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, 11, resolved[0].Attributes.FollowerCount)
}

func TestUpdateResultUnknownIdentifier(t *testing.T) {
	db := openTestDB(t)
	seedUsernames(t, db, "alice")

	err := db.UpdateResult("nobody", models.NotFound(), "scraper", false)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrUnknownIdentifier))
}

func TestGetPendingOrderingAndFilters(t *testing.T) {
	db := openTestDB(t)
	seedUsernames(t, db, "first", "second", "third", "fourth")

	require.NoError(t, db.UpdateResult("second", models.RateLimited(0, nil), "scraper", false))
	require.NoError(t, db.UpdateResult("third",
		models.Resolved(&models.ProfileAttributes{}), "graph_api", true))

	// Official-source view: pending only, insertion order.
	pending, err := db.GetPending(10, false, 0)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "first", pending[0].Username)
	assert.Equal(t, "fourth", pending[1].Username)

	// Scraper view includes rate-limited records, still in insertion order.
	pending, err = db.GetPending(10, true, 0)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, "first", pending[0].Username)
	assert.Equal(t, "second", pending[1].Username)
	assert.Equal(t, "fourth", pending[2].Username)

	// Limit applies after ordering.
	pending, err = db.GetPending(1, true, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "first", pending[0].Username)
}

func TestGetPendingSkipsExhaustedRetries(t *testing.T) {
	db := openTestDB(t)
	seedUsernames(t, db, "flaky", "fresh")

	// Untrusted transient failures increment the retry counter.
	for i := 0; i < 3; i++ {
		require.NoError(t, db.UpdateResult("flaky",
			models.Transient(errors.New("timeout")), "scraper", false))
	}

	pending, err := db.GetPending(10, true, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "fresh", pending[0].Username)

	// No cap returns both.
	pending, err = db.GetPending(10, true, 0)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestTrustedTransientDoesNotBurnRetries(t *testing.T) {
	db := openTestDB(t)
	seedUsernames(t, db, "personal")

	// The official source failing on a personal account must not starve
	// the record before the scraper gets a chance.
	for i := 0; i < 5; i++ {
		require.NoError(t, db.UpdateResult("personal",
			models.Transient(errors.New("not a business account")), "graph_api", true))
	}

	pending, err := db.GetPending(10, true, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 0, pending[0].RetryCount)
}

func TestAttemptStoreRoundTrip(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Truncate(time.Millisecond)
	for i := 0; i < 3; i++ {
		require.NoError(t, db.RecordAttempt("scraper", base.Add(time.Duration(i)*time.Minute)))
	}
	require.NoError(t, db.RecordAttempt("graph_api", base))

	attempts, err := db.AttemptsSince("scraper", base.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, attempts, 3)
	assert.True(t, attempts[0].Equal(base))

	// Per-source isolation.
	attempts, err = db.AttemptsSince("graph_api", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, attempts, 1)

	// Pruning drops only old events for the named source.
	require.NoError(t, db.PruneAttempts("scraper", base.Add(90*time.Second)))
	attempts, err = db.AttemptsSince("scraper", base.Add(-time.Hour))
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestReopenSurvivesRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.db")

	db, err := Open(path)
	require.NoError(t, err)
	_, err = db.Seed([]models.Follower{{Username: "alice"}, {Username: "bob"}})
	require.NoError(t, err)
	require.NoError(t, db.UpdateResult("alice",
		models.Resolved(&models.ProfileAttributes{FollowerCount: 7}), "scraper", false))
	require.NoError(t, db.Close())

	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()

	summary, err := db.Summary()
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 1, summary.Success)
	assert.Equal(t, 1, summary.Pending)
}
