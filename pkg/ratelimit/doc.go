// Package ratelimit provides the admission controller that paces lookups
// against external sources.
//
// Caps are enforced as rolling windows: an ordered sequence of admission
// timestamps pruned to the trailing hour or day on every check, rather than
// fixed buckets, so the accounting cannot be gamed at bucket boundaries and
// survives restarts when backed by a durable AttemptStore. A separate
// session counter forces a mandatory rest after a configured number of
// admissions regardless of the rolling windows.
//
// Admitted requests carry a randomized jitter delay, with a longer rest
// pause injected roughly every N admissions (N itself randomized) to avoid
// a mechanical request cadence that anti-automation defenses look for.
//
// The limiter never blocks: refusals return the wait until the binding
// window has headroom, and the caller decides whether to sleep or stop.
package ratelimit
