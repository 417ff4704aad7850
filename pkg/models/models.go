package models

import "time"

// LookupStatus is the lifecycle state of a follower record.
type LookupStatus string

const (
	StatusPending     LookupStatus = "pending"
	StatusSuccess     LookupStatus = "success"
	StatusFailed      LookupStatus = "failed"
	StatusRateLimited LookupStatus = "rate_limited"
)

// ProfileAttributes holds the resolved profile values for a follower.
// Verified and Private are pointers because the official API does not
// report them.
type ProfileAttributes struct {
	FollowerCount  int    `json:"follower_count"`
	FollowingCount int    `json:"following_count"`
	FullName       string `json:"full_name"`
	IsVerified     *bool  `json:"is_verified,omitempty"`
	IsPrivate      *bool  `json:"is_private,omitempty"`
}

// Follower is one tracked identifier and its lookup state.
type Follower struct {
	Username     string
	FollowedAt   time.Time // zero if the export had no timestamp
	Attributes   *ProfileAttributes
	Status       LookupStatus
	Source       string
	ErrorMessage string
	RetryCount   int
	FirstSeen    time.Time
	LastAttempt  time.Time // zero if never attempted
}

// OutcomeKind classifies the result of one resolution attempt.
type OutcomeKind string

const (
	OutcomeResolved    OutcomeKind = "resolved"
	OutcomeNotFound    OutcomeKind = "not_found"
	OutcomeRateLimited OutcomeKind = "rate_limited"
	OutcomeTransient   OutcomeKind = "transient_error"
	OutcomeFatal       OutcomeKind = "fatal"
)

// FatalKind identifies why a run must stop immediately.
type FatalKind string

const (
	FatalSessionInvalid FatalKind = "session_invalid"
	FatalChallenge      FatalKind = "challenge"
	FatalHardDeny       FatalKind = "hard_deny"
)

// Outcome is the classified result of resolving one username.
// Exactly one of the payload fields is meaningful, selected by Kind.
type Outcome struct {
	Kind       OutcomeKind
	Attributes *ProfileAttributes // Kind == OutcomeResolved
	RetryAfter time.Duration      // optional hint when Kind == OutcomeRateLimited
	Fatal      FatalKind          // Kind == OutcomeFatal
	Err        error              // underlying cause, if any
}

// Resolved builds a successful outcome.
func Resolved(attrs *ProfileAttributes) Outcome {
	return Outcome{Kind: OutcomeResolved, Attributes: attrs}
}

// NotFound builds a definitive does-not-exist outcome.
func NotFound() Outcome {
	return Outcome{Kind: OutcomeNotFound}
}

// RateLimited builds a rate-limit pushback outcome.
func RateLimited(retryAfter time.Duration, err error) Outcome {
	return Outcome{Kind: OutcomeRateLimited, RetryAfter: retryAfter, Err: err}
}

// Transient builds a retryable-later outcome.
func Transient(err error) Outcome {
	return Outcome{Kind: OutcomeTransient, Err: err}
}

// Fatal builds an outcome that halts the run.
func Fatal(kind FatalKind, err error) Outcome {
	return Outcome{Kind: OutcomeFatal, Fatal: kind, Err: err}
}

// NextStatus applies the state machine to one record.
//
// SUCCESS and FAILED are absorbing. A rate-limit or transient failure from
// a trusted (official API) source leaves the record PENDING so the scraping
// source can still try it; a rate-limit signal from the scraping source
// marks the record RATE_LIMITED, which keeps it eligible for later passes,
// while its transient failures leave the status unchanged.
// Fatal outcomes never touch the record.
//
// The second return value reports whether the status changed.
func NextStatus(current LookupStatus, out Outcome, trusted bool) (LookupStatus, bool) {
	if current == StatusSuccess || current == StatusFailed {
		return current, false
	}

	switch out.Kind {
	case OutcomeResolved:
		return StatusSuccess, true
	case OutcomeNotFound:
		return StatusFailed, true
	case OutcomeRateLimited:
		if trusted {
			return current, false
		}
		return StatusRateLimited, current != StatusRateLimited
	case OutcomeTransient:
		return current, false
	default:
		return current, false
	}
}
