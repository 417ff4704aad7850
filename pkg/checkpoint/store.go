package checkpoint

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS followers (
	username        TEXT PRIMARY KEY,
	followed_at     INTEGER,
	follower_count  INTEGER,
	following_count INTEGER,
	full_name       TEXT,
	is_verified     INTEGER,
	is_private      INTEGER,
	lookup_status   TEXT NOT NULL DEFAULT 'pending',
	lookup_source   TEXT,
	error_message   TEXT,
	retry_count     INTEGER NOT NULL DEFAULT 0,
	first_seen      INTEGER NOT NULL,
	last_attempt    INTEGER
);
CREATE INDEX IF NOT EXISTS idx_followers_status ON followers(lookup_status);

CREATE TABLE IF NOT EXISTS rate_events (
	source TEXT NOT NULL,
	at     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_rate_events_source_at ON rate_events(source, at);
`

// DB is the durable checkpoint store. Every mutation is a single
// transaction, so a crash between a lookup returning and the record being
// updated leaves the prior state intact.
type DB struct {
	db     *sql.DB
	logger logger.Logger
	now    func() time.Time
}

// Summary aggregates record counts by status and, for resolved records,
// by the source that resolved them.
type Summary struct {
	Total       int
	Pending     int
	Success     int
	Failed      int
	RateLimited int
	BySource    map[string]int
}

// Remaining returns the number of records still eligible for lookup.
func (s *Summary) Remaining() int {
	return s.Pending + s.RateLimited
}

// Open opens (creating if necessary) the checkpoint database at path.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, &errs.PersistenceError{Op: "open", Err: err}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &errs.PersistenceError{Op: "open", Err: err}
	}

	// A single connection serializes writers; the busy timeout covers
	// a second process pointed at the same file.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, &errs.PersistenceError{Op: "pragma", Err: err}
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, &errs.PersistenceError{Op: "migrate", Err: err}
	}

	return &DB{
		db:     db,
		logger: logger.GetLogger(),
		now:    time.Now,
	}, nil
}

// Close closes the underlying database.
func (s *DB) Close() error {
	return s.db.Close()
}

// Seed idempotently registers followers as PENDING. Already-known usernames
// are left untouched. Returns the number of newly inserted records.
func (s *DB) Seed(followers []models.Follower) (int, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, &errs.PersistenceError{Op: "seed", Err: err}
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR IGNORE INTO followers
		(username, followed_at, lookup_status, first_seen) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return 0, &errs.PersistenceError{Op: "seed", Err: err}
	}
	defer stmt.Close()

	now := s.now().Unix()
	inserted := 0
	for _, f := range followers {
		var followedAt interface{}
		if !f.FollowedAt.IsZero() {
			followedAt = f.FollowedAt.Unix()
		}
		res, err := stmt.Exec(f.Username, followedAt, models.StatusPending, now)
		if err != nil {
			return 0, &errs.PersistenceError{Op: "seed", Err: err}
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, &errs.PersistenceError{Op: "seed", Err: err}
	}

	s.logger.InfoWithFields("followers seeded", map[string]interface{}{
		"supplied": len(followers),
		"inserted": inserted,
	})

	return inserted, nil
}

// GetPending returns up to limit records eligible for lookup, in insertion
// order so resumed runs make uniform progress. RATE_LIMITED records are only
// returned when includeRateLimited is set (the scraping source retries them;
// the official source does not). Records attempted maxRetries times or more
// are skipped; maxRetries <= 0 means no cap.
func (s *DB) GetPending(limit int, includeRateLimited bool, maxRetries int) ([]models.Follower, error) {
	query := `SELECT username, followed_at, follower_count, following_count,
			full_name, is_verified, is_private, lookup_status, lookup_source,
			error_message, retry_count, first_seen, last_attempt
		FROM followers WHERE lookup_status = ?`
	args := []interface{}{models.StatusPending}

	if includeRateLimited {
		query = `SELECT username, followed_at, follower_count, following_count,
				full_name, is_verified, is_private, lookup_status, lookup_source,
				error_message, retry_count, first_seen, last_attempt
			FROM followers WHERE lookup_status IN (?, ?)`
		args = append(args, models.StatusRateLimited)
	}

	if maxRetries > 0 {
		query += " AND retry_count < ?"
		args = append(args, maxRetries)
	}
	query += " ORDER BY rowid LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, &errs.PersistenceError{Op: "get_pending", Err: err}
	}
	defer rows.Close()

	return scanFollowers(rows)
}

// UpdateResult applies one state transition atomically. The state machine
// lives in models.NextStatus; trusted marks the official (low-risk) source.
// Records already SUCCESS or FAILED never change status; a late Resolved
// outcome may still refresh the attributes (last-writer-wins is harmless).
func (s *DB) UpdateResult(username string, out models.Outcome, source string, trusted bool) error {
	tx, err := s.db.Begin()
	if err != nil {
		return &errs.PersistenceError{Op: "update_result", Err: err}
	}
	defer tx.Rollback()

	var current models.LookupStatus
	var retryCount int
	err = tx.QueryRow(`SELECT lookup_status, retry_count FROM followers WHERE username = ?`,
		username).Scan(&current, &retryCount)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%q: %w", username, errs.ErrUnknownIdentifier)
	}
	if err != nil {
		return &errs.PersistenceError{Op: "update_result", Err: err}
	}

	next, _ := models.NextStatus(current, out, trusted)
	absorbed := current == models.StatusSuccess || current == models.StatusFailed
	if absorbed && out.Kind != models.OutcomeResolved {
		return tx.Commit()
	}

	now := s.now().Unix()
	var errMsg interface{}
	if out.Err != nil {
		errMsg = out.Err.Error()
	}

	switch out.Kind {
	case models.OutcomeResolved:
		a := out.Attributes
		_, err = tx.Exec(`UPDATE followers SET
				follower_count = ?, following_count = ?, full_name = ?,
				is_verified = ?, is_private = ?,
				lookup_status = ?, lookup_source = ?, error_message = NULL,
				last_attempt = ?
			WHERE username = ?`,
			a.FollowerCount, a.FollowingCount, a.FullName,
			boolColumn(a.IsVerified), boolColumn(a.IsPrivate),
			next, source, now, username)

	case models.OutcomeNotFound:
		_, err = tx.Exec(`UPDATE followers SET
				lookup_status = ?, lookup_source = ?,
				error_message = 'profile does not exist', last_attempt = ?
			WHERE username = ?`,
			next, source, now, username)

	default:
		// Non-definitive outcome: status may or may not move, but the
		// attempt metadata is always recorded.
		if out.Kind == models.OutcomeTransient && !trusted {
			retryCount++
		}
		_, err = tx.Exec(`UPDATE followers SET
				lookup_status = ?, error_message = ?, retry_count = ?, last_attempt = ?
			WHERE username = ?`,
			next, errMsg, retryCount, now, username)
	}
	if err != nil {
		return &errs.PersistenceError{Op: "update_result", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return &errs.PersistenceError{Op: "update_result", Err: err}
	}

	s.logger.DebugWithFields("result recorded", map[string]interface{}{
		"username": username,
		"outcome":  string(out.Kind),
		"status":   string(next),
		"source":   source,
	})

	return nil
}

// Summary returns aggregate counts by status and by resolving source.
func (s *DB) Summary() (*Summary, error) {
	sum := &Summary{BySource: make(map[string]int)}

	rows, err := s.db.Query(`SELECT lookup_status, COUNT(*) FROM followers GROUP BY lookup_status`)
	if err != nil {
		return nil, &errs.PersistenceError{Op: "summary", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var status models.LookupStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, &errs.PersistenceError{Op: "summary", Err: err}
		}
		sum.Total += count
		switch status {
		case models.StatusPending:
			sum.Pending = count
		case models.StatusSuccess:
			sum.Success = count
		case models.StatusFailed:
			sum.Failed = count
		case models.StatusRateLimited:
			sum.RateLimited = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.PersistenceError{Op: "summary", Err: err}
	}

	srcRows, err := s.db.Query(`SELECT lookup_source, COUNT(*) FROM followers
		WHERE lookup_status = ? AND lookup_source IS NOT NULL
		GROUP BY lookup_source`, models.StatusSuccess)
	if err != nil {
		return nil, &errs.PersistenceError{Op: "summary", Err: err}
	}
	defer srcRows.Close()

	for srcRows.Next() {
		var source string
		var count int
		if err := srcRows.Scan(&source, &count); err != nil {
			return nil, &errs.PersistenceError{Op: "summary", Err: err}
		}
		sum.BySource[source] = count
	}
	if err := srcRows.Err(); err != nil {
		return nil, &errs.PersistenceError{Op: "summary", Err: err}
	}

	return sum, nil
}

// AllResolved returns every SUCCESS record, highest follower count first.
func (s *DB) AllResolved() ([]models.Follower, error) {
	rows, err := s.db.Query(`SELECT username, followed_at, follower_count,
			following_count, full_name, is_verified, is_private, lookup_status,
			lookup_source, error_message, retry_count, first_seen, last_attempt
		FROM followers WHERE lookup_status = ?
		ORDER BY follower_count DESC, username`, models.StatusSuccess)
	if err != nil {
		return nil, &errs.PersistenceError{Op: "all_resolved", Err: err}
	}
	defer rows.Close()

	return scanFollowers(rows)
}

// All returns every record, resolved ones first by follower count.
func (s *DB) All() ([]models.Follower, error) {
	rows, err := s.db.Query(`SELECT username, followed_at, follower_count,
			following_count, full_name, is_verified, is_private, lookup_status,
			lookup_source, error_message, retry_count, first_seen, last_attempt
		FROM followers
		ORDER BY CASE WHEN lookup_status = 'success' THEN 0 ELSE 1 END,
			follower_count DESC, username`)
	if err != nil {
		return nil, &errs.PersistenceError{Op: "all", Err: err}
	}
	defer rows.Close()

	return scanFollowers(rows)
}

// RecordAttempt persists a rate-limiter admission timestamp for source.
func (s *DB) RecordAttempt(source string, at time.Time) error {
	if _, err := s.db.Exec(`INSERT INTO rate_events (source, at) VALUES (?, ?)`,
		source, at.UnixMilli()); err != nil {
		return &errs.PersistenceError{Op: "record_attempt", Err: err}
	}
	return nil
}

// AttemptsSince returns admission timestamps for source at or after since,
// oldest first.
func (s *DB) AttemptsSince(source string, since time.Time) ([]time.Time, error) {
	rows, err := s.db.Query(`SELECT at FROM rate_events
		WHERE source = ? AND at >= ? ORDER BY at`, source, since.UnixMilli())
	if err != nil {
		return nil, &errs.PersistenceError{Op: "attempts_since", Err: err}
	}
	defer rows.Close()

	var out []time.Time
	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return nil, &errs.PersistenceError{Op: "attempts_since", Err: err}
		}
		out = append(out, time.UnixMilli(ms))
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.PersistenceError{Op: "attempts_since", Err: err}
	}
	return out, nil
}

// PruneAttempts deletes admission timestamps for source older than before.
func (s *DB) PruneAttempts(source string, before time.Time) error {
	if _, err := s.db.Exec(`DELETE FROM rate_events WHERE source = ? AND at < ?`,
		source, before.UnixMilli()); err != nil {
		return &errs.PersistenceError{Op: "prune_attempts", Err: err}
	}
	return nil
}

func boolColumn(b *bool) interface{} {
	if b == nil {
		return nil
	}
	if *b {
		return 1
	}
	return 0
}

func scanFollowers(rows *sql.Rows) ([]models.Follower, error) {
	var out []models.Follower
	for rows.Next() {
		var (
			f             models.Follower
			followedAt    sql.NullInt64
			followerCount sql.NullInt64
			followCount   sql.NullInt64
			fullName      sql.NullString
			isVerified    sql.NullBool
			isPrivate     sql.NullBool
			source        sql.NullString
			errMsg        sql.NullString
			firstSeen     int64
			lastAttempt   sql.NullInt64
		)
		if err := rows.Scan(&f.Username, &followedAt, &followerCount, &followCount,
			&fullName, &isVerified, &isPrivate, &f.Status, &source, &errMsg,
			&f.RetryCount, &firstSeen, &lastAttempt); err != nil {
			return nil, &errs.PersistenceError{Op: "scan", Err: err}
		}

		if followedAt.Valid {
			f.FollowedAt = time.Unix(followedAt.Int64, 0)
		}
		f.FirstSeen = time.Unix(firstSeen, 0)
		if lastAttempt.Valid {
			f.LastAttempt = time.Unix(lastAttempt.Int64, 0)
		}
		f.Source = source.String
		f.ErrorMessage = errMsg.String

		// Attributes are only meaningful on resolved records.
		if f.Status == models.StatusSuccess {
			attrs := &models.ProfileAttributes{
				FollowerCount:  int(followerCount.Int64),
				FollowingCount: int(followCount.Int64),
				FullName:       fullName.String,
			}
			if isVerified.Valid {
				v := isVerified.Bool
				attrs.IsVerified = &v
			}
			if isPrivate.Valid {
				p := isPrivate.Bool
				attrs.IsPrivate = &p
			}
			f.Attributes = attrs
		}

		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, &errs.PersistenceError{Op: "scan", Err: err}
	}
	return out, nil
}
