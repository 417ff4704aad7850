// Package lookup contains the coordinator that resolves follower usernames
// against pluggable sources.
//
// The control loop is deliberately sequential: fetch a batch of eligible
// records, and for each one ask the rate limiter for admission, resolve the
// username through the source, and commit the classified outcome to the
// checkpoint store in one atomic write. Because every iteration commits
// independently, the loop can be interrupted at any point between records
// and the next run resumes from the store with no special handling.
//
// Fatal signals (invalid session, anti-automation challenge, hard HTTP
// denial) stop the run immediately and leave the in-flight record
// untouched; they are reported as AbortError and never retried, since
// recovering from them automatically risks compounding an account penalty.
package lookup
