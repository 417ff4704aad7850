// Package checkpoint provides the durable per-follower lookup state machine.
//
// Every follower from the data export gets one row, created PENDING and
// never deleted; the row is the permanent audit trail of that username's
// lookups. All writes are single transactions against an SQLite database in
// WAL mode, so interrupting the process at any point leaves the store as if
// the in-flight lookup never happened. Resuming requires no handshake:
// the next run simply pulls whatever is still pending.
//
// The store also persists rate-limiter admission timestamps per source
// (rate_events), so rolling rate windows keep their accounting across
// process restarts.
package checkpoint
