package lookup

import (
	"context"
	"errors"
	"time"

	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/models"
	"igfollowers/pkg/ratelimit"
	"igfollowers/pkg/retry"
)

// StopReason records why a run ended.
type StopReason string

const (
	StopCompleted   StopReason = "completed"
	StopCanceled    StopReason = "canceled"
	StopDailyCap    StopReason = "daily_cap"
	StopMaxDuration StopReason = "max_duration"
	StopAborted     StopReason = "aborted"
	StopFailed      StopReason = "failed"
)

// RunOptions bound one coordinator run.
type RunOptions struct {
	// BatchSize is how many eligible records to pull per fetch.
	BatchSize int
	// MaxRetries skips records already attempted this many times (0 = no cap).
	MaxRetries int
	// ResolveTimeout bounds each individual source call.
	ResolveTimeout time.Duration
	// MaxDuration ends the run once exceeded (0 = no ceiling).
	MaxDuration time.Duration
}

// RunSummary reports what one run accomplished. The checkpoint store is the
// source of truth; these counters only cover this run.
type RunSummary struct {
	Source       string
	Processed    int
	Succeeded    int
	Failed       int
	RateLimited  int
	Transient    int
	LastUsername string
	StopReason   StopReason
	Started      time.Time
	Finished     time.Time
}

// EventKind classifies reporter events.
type EventKind string

const (
	EventResult   EventKind = "result"
	EventWait     EventKind = "wait"
	EventCooldown EventKind = "cooldown"
)

// Event is delivered to the reporter side-channel. Reporters must not
// block for long and can never influence control flow.
type Event struct {
	Kind       EventKind
	Username   string
	Outcome    models.OutcomeKind
	Attributes *models.ProfileAttributes
	Window     ratelimit.Window
	Wait       time.Duration
	Stats      ratelimit.Stats
	Processed  int
	Succeeded  int
	Failed     int
}

// Reporter receives progress events. Nil reporters are allowed.
type Reporter func(Event)

// Coordinator drives one lookup source against the checkpoint store under
// the rate limiter's admission policy. One identifier is in flight at a
// time; bounding concurrency is the whole point of the limiter. Two
// coordinators over different sources may share a store safely, since
// UpdateResult is the sole mutation point and serializes writes.
type Coordinator struct {
	store    Store
	limiter  *ratelimit.Limiter
	logger   logger.Logger
	reporter Reporter
}

// NewCoordinator creates a coordinator over a store and a limiter.
func NewCoordinator(store Store, limiter *ratelimit.Limiter) *Coordinator {
	return &Coordinator{
		store:   store,
		limiter: limiter,
		logger:  logger.GetLogger(),
	}
}

// SetReporter installs the progress side-channel.
func (c *Coordinator) SetReporter(r Reporter) {
	c.reporter = r
}

// Run processes eligible records until none remain, the context is
// canceled, a cap or duration ceiling is hit, or a fatal signal aborts the
// run. Each record's result is committed atomically before the next record
// starts, so an interrupted run resumes from the store with no handshake.
//
// On a fatal signal the in-flight record is left untouched and the returned
// error is an *errs.AbortError; on cancellation the summary is returned
// with a nil error.
func (c *Coordinator) Run(ctx context.Context, src Source, opts RunOptions) (*RunSummary, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 50
	}
	if opts.ResolveTimeout <= 0 {
		opts.ResolveTimeout = 2 * time.Minute
	}

	summary := &RunSummary{
		Source:     src.Name(),
		StopReason: StopCompleted,
		Started:    time.Now(),
	}
	defer func() { summary.Finished = time.Now() }()

	c.logger.InfoWithFields("lookup run starting", map[string]interface{}{
		"source":     src.Name(),
		"batch_size": opts.BatchSize,
	})

	// Records attempted this run whose status did not change (e.g.
	// transient failures from the official source stay PENDING) must not
	// be refetched forever within the same run.
	attempted := make(map[string]struct{})

	for {
		if ctx.Err() != nil {
			summary.StopReason = StopCanceled
			return summary, nil
		}

		batch, err := c.store.GetPending(opts.BatchSize+len(attempted), !src.Trusted(), opts.MaxRetries)
		if err != nil {
			return summary, err
		}

		var eligible []models.Follower
		for _, f := range batch {
			if _, seen := attempted[f.Username]; !seen {
				eligible = append(eligible, f)
			}
			if len(eligible) == opts.BatchSize {
				break
			}
		}
		if len(eligible) == 0 {
			return summary, nil
		}

		for _, f := range eligible {
			if ctx.Err() != nil {
				summary.StopReason = StopCanceled
				return summary, nil
			}
			if opts.MaxDuration > 0 && time.Since(summary.Started) >= opts.MaxDuration {
				summary.StopReason = StopMaxDuration
				return summary, nil
			}

			stop, err := c.admit(ctx, summary, opts)
			if stop || err != nil {
				return summary, err
			}

			rctx, cancel := context.WithTimeout(ctx, opts.ResolveTimeout)
			out := src.Resolve(rctx, f.Username)
			cancel()

			attempted[f.Username] = struct{}{}
			summary.LastUsername = f.Username

			if out.Kind == models.OutcomeFatal {
				// The record keeps its prior state; a human has to
				// re-establish trust with the source before anything
				// else is attempted.
				summary.StopReason = StopAborted
				abortErr := &errs.AbortError{Kind: out.Fatal, Username: f.Username, Err: out.Err}
				c.logger.WithError(abortErr).Error("lookup run aborted")
				return summary, abortErr
			}

			if err := c.commit(ctx, f.Username, out, src); err != nil {
				if errors.Is(err, errs.ErrUnknownIdentifier) {
					// Data error on this one record; the run goes on.
					c.logger.WithError(err).Error("result for unseeded username dropped")
					continue
				}
				if ctx.Err() != nil {
					summary.StopReason = StopCanceled
					return summary, nil
				}
				summary.StopReason = StopFailed
				return summary, err
			}

			summary.Processed++

			switch out.Kind {
			case models.OutcomeResolved:
				summary.Succeeded++
				c.limiter.OnSuccess()
			case models.OutcomeNotFound:
				summary.Failed++
				c.limiter.OnSuccess()
			case models.OutcomeRateLimited:
				summary.RateLimited++
				cooldown := c.limiter.OnRateLimitedResponse()
				if out.RetryAfter > cooldown {
					cooldown = out.RetryAfter
				}
				c.report(Event{Kind: EventCooldown, Username: f.Username, Wait: cooldown, Stats: c.limiter.Snapshot()})
				if err := sleepCtx(ctx, cooldown); err != nil {
					summary.StopReason = StopCanceled
					return summary, nil
				}
			case models.OutcomeTransient:
				summary.Transient++
			}

			c.report(Event{
				Kind:       EventResult,
				Username:   f.Username,
				Outcome:    out.Kind,
				Attributes: out.Attributes,
				Stats:      c.limiter.Snapshot(),
				Processed:  summary.Processed,
				Succeeded:  summary.Succeeded,
				Failed:     summary.Failed,
			})
		}
	}
}

// admit acquires one admission, sleeping through refusals and jitter.
// Returns stop=true when the run should end instead of waiting.
func (c *Coordinator) admit(ctx context.Context, summary *RunSummary, opts RunOptions) (bool, error) {
	for {
		adm := c.limiter.Acquire()
		if adm.OK {
			if adm.Wait > 0 {
				c.report(Event{Kind: EventWait, Wait: adm.Wait, Window: ratelimit.WindowNone, Stats: c.limiter.Snapshot()})
				if err := sleepCtx(ctx, adm.Wait); err != nil {
					summary.StopReason = StopCanceled
					return true, nil
				}
			}
			return false, nil
		}

		// The daily cap is a hard stop: waiting most of a day inside a
		// run helps nobody, and the store makes resuming tomorrow free.
		if adm.Window == ratelimit.WindowDay {
			summary.StopReason = StopDailyCap
			c.logger.InfoWithFields("daily cap reached; stopping run", map[string]interface{}{
				"resume_in": adm.Wait.String(),
			})
			return true, nil
		}

		if opts.MaxDuration > 0 && time.Since(summary.Started)+adm.Wait >= opts.MaxDuration {
			summary.StopReason = StopMaxDuration
			return true, nil
		}

		c.logger.InfoWithFields("rate window saturated; waiting", map[string]interface{}{
			"window": string(adm.Window),
			"wait":   adm.Wait.String(),
		})
		c.report(Event{Kind: EventWait, Window: adm.Window, Wait: adm.Wait, Stats: c.limiter.Snapshot()})

		if err := sleepCtx(ctx, adm.Wait); err != nil {
			summary.StopReason = StopCanceled
			return true, nil
		}
	}
}

// commit writes one result, retrying persistence failures so a briefly
// unavailable store defers the in-flight result instead of losing it.
// Store contention clears quickly; retries wait a short constant delay.
func (c *Coordinator) commit(ctx context.Context, username string, out models.Outcome, src Source) error {
	cfg := retry.DefaultConfig()
	cfg.Context = ctx
	cfg.Logger = c.logger
	cfg.Backoff = &retry.ConstantBackoff{Delay: 250 * time.Millisecond}
	return retry.Do(func() error {
		return c.store.UpdateResult(username, out, src.Name(), src.Trusted())
	}, cfg)
}

func (c *Coordinator) report(ev Event) {
	if c.reporter != nil {
		c.reporter(ev)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
