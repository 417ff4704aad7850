package ratelimit

import (
	"math/rand"
	"sync"
	"time"

	"igfollowers/pkg/logger"
)

// Window identifies which rolling cap refused an admission.
type Window string

const (
	WindowNone    Window = ""
	WindowHour    Window = "hour"
	WindowDay     Window = "day"
	WindowSession Window = "session"
)

// PauseKind identifies which pre-request delay an admission carries.
type PauseKind string

const (
	PauseNone   PauseKind = ""
	PauseJitter PauseKind = "jitter"
	PauseLong   PauseKind = "long_pause"
)

// Admission is the result of one Acquire call. The limiter never sleeps;
// the caller is responsible for waiting.
//
// When OK is true the request was admitted and Wait is the randomized delay
// to observe before issuing it. When OK is false, Window names the
// saturated cap and Wait is how long until it has headroom again.
type Admission struct {
	OK     bool
	Wait   time.Duration
	Window Window
	Pause  PauseKind
}

// Config holds the caps and pacing for one limiter instance.
type Config struct {
	MinDelay          time.Duration
	MaxDelay          time.Duration
	HourlyCap         int
	DailyCap          int
	SessionCap        int
	SessionRest       time.Duration
	Cooldown          time.Duration // base cooldown after a 429-class response
	CooldownCeiling   time.Duration
	LongPauseMin      time.Duration
	LongPauseMax      time.Duration
	LongPauseEveryMin int
	LongPauseEveryMax int
}

// AttemptStore persists admission timestamps so rolling windows survive a
// process restart. Implemented by checkpoint.DB.
type AttemptStore interface {
	RecordAttempt(source string, at time.Time) error
	AttemptsSince(source string, since time.Time) ([]time.Time, error)
	PruneAttempts(source string, before time.Time) error
}

// Stats is a point-in-time snapshot of the limiter counters.
type Stats struct {
	HourlyCount  int
	HourlyCap    int
	DailyCount   int
	DailyCap     int
	SessionCount int
	SessionCap   int
	BackoffLevel int
}

// Limiter enforces independent rolling hour/day windows plus a per-session
// counter with a mandatory rest. Counts of timestamps within each trailing
// window never exceed that window's cap; a saturated window refuses
// admission rather than queueing.
type Limiter struct {
	mu     sync.Mutex
	cfg    Config
	source string
	store  AttemptStore
	logger logger.Logger

	now func() time.Time
	rng *rand.Rand

	hourly []time.Time
	daily  []time.Time

	sessionCount   int
	sinceLongPause int
	nextLongPause  int

	backoffLevel int
}

// New creates a limiter with in-memory windows only.
func New(source string, cfg Config) *Limiter {
	l := &Limiter{
		cfg:    cfg,
		source: source,
		logger: logger.GetLogger(),
		now:    time.Now,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	l.nextLongPause = l.randInt(cfg.LongPauseEveryMin, cfg.LongPauseEveryMax)
	return l
}

// NewWithStore creates a limiter whose windows are reloaded from, and
// recorded to, a durable attempt store. Timestamps still inside the trailing
// day window count against the caps even after a restart.
func NewWithStore(source string, cfg Config, store AttemptStore) (*Limiter, error) {
	l := New(source, cfg)
	l.store = store

	now := l.now()
	if err := store.PruneAttempts(source, now.Add(-24*time.Hour)); err != nil {
		return nil, err
	}
	attempts, err := store.AttemptsSince(source, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	hourCutoff := now.Add(-time.Hour)
	for _, at := range attempts {
		l.daily = append(l.daily, at)
		if !at.Before(hourCutoff) {
			l.hourly = append(l.hourly, at)
		}
	}

	if len(attempts) > 0 {
		l.logger.InfoWithFields("rate windows restored", map[string]interface{}{
			"source":       source,
			"daily_count":  len(l.daily),
			"hourly_count": len(l.hourly),
		})
	}

	return l, nil
}

// Acquire evaluates every active window and either admits one request or
// refuses with the wait until the binding window has headroom. On
// admission the timestamp is recorded in all windows (and the durable
// store, if any) and Wait carries the randomized jitter, or the occasional
// longer rest pause that breaks up a mechanical cadence.
func (l *Limiter) Acquire() Admission {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.prune(now)

	if l.cfg.DailyCap > 0 && len(l.daily) >= l.cfg.DailyCap {
		wait := l.daily[0].Add(24 * time.Hour).Sub(now)
		return Admission{Window: WindowDay, Wait: wait}
	}

	if l.cfg.SessionCap > 0 && l.sessionCount >= l.cfg.SessionCap {
		// The rest is mandatory; the counter resets here so the
		// post-rest session starts clean.
		l.sessionCount = 0
		return Admission{Window: WindowSession, Wait: l.cfg.SessionRest}
	}

	if l.cfg.HourlyCap > 0 && len(l.hourly) >= l.cfg.HourlyCap {
		wait := l.hourly[0].Add(time.Hour).Sub(now)
		return Admission{Window: WindowHour, Wait: wait}
	}

	l.hourly = append(l.hourly, now)
	l.daily = append(l.daily, now)
	l.sessionCount++
	l.sinceLongPause++

	if l.store != nil {
		if err := l.store.RecordAttempt(l.source, now); err != nil {
			// The admission stands; the window just loses durability
			// for this one timestamp.
			l.logger.WithError(err).Warn("failed to persist rate event")
		}
	}

	if l.nextLongPause > 0 && l.sinceLongPause >= l.nextLongPause {
		l.sinceLongPause = 0
		l.nextLongPause = l.randInt(l.cfg.LongPauseEveryMin, l.cfg.LongPauseEveryMax)
		return Admission{
			OK:    true,
			Wait:  l.randDuration(l.cfg.LongPauseMin, l.cfg.LongPauseMax),
			Pause: PauseLong,
		}
	}

	return Admission{
		OK:    true,
		Wait:  l.randDuration(l.cfg.MinDelay, l.cfg.MaxDelay),
		Pause: PauseJitter,
	}
}

// OnRateLimitedResponse records pushback from the external source (distinct
// from the limiter's own caps) and returns the cooldown to observe before
// the next attempt. Consecutive signals escalate exponentially up to the
// configured ceiling.
func (l *Limiter) OnRateLimitedResponse() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.backoffLevel++
	cooldown := l.cfg.Cooldown
	for i := 1; i < l.backoffLevel; i++ {
		cooldown *= 2
		if l.cfg.CooldownCeiling > 0 && cooldown >= l.cfg.CooldownCeiling {
			cooldown = l.cfg.CooldownCeiling
			break
		}
	}
	if l.cfg.CooldownCeiling > 0 && cooldown > l.cfg.CooldownCeiling {
		cooldown = l.cfg.CooldownCeiling
	}

	l.logger.WarnWithFields("source rate limit; backing off", map[string]interface{}{
		"source":   l.source,
		"level":    l.backoffLevel,
		"cooldown": cooldown.String(),
	})

	return cooldown
}

// OnSuccess resets the backoff escalation.
func (l *Limiter) OnSuccess() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoffLevel = 0
}

// Snapshot returns the current counters against their caps.
func (l *Limiter) Snapshot() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.prune(l.now())
	return Stats{
		HourlyCount:  len(l.hourly),
		HourlyCap:    l.cfg.HourlyCap,
		DailyCount:   len(l.daily),
		DailyCap:     l.cfg.DailyCap,
		SessionCount: l.sessionCount,
		SessionCap:   l.cfg.SessionCap,
		BackoffLevel: l.backoffLevel,
	}
}

// prune drops timestamps that have left their trailing windows.
func (l *Limiter) prune(now time.Time) {
	l.hourly = pruneBefore(l.hourly, now.Add(-time.Hour))
	l.daily = pruneBefore(l.daily, now.Add(-24*time.Hour))
}

func pruneBefore(ts []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(ts) && ts[i].Before(cutoff) {
		i++
	}
	if i > 0 {
		copy(ts, ts[i:])
		ts = ts[:len(ts)-i]
	}
	return ts
}

func (l *Limiter) randInt(min, max int) int {
	if max <= min {
		return min
	}
	return min + l.rng.Intn(max-min+1)
}

func (l *Limiter) randDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(l.rng.Int63n(int64(max-min)+1))
}
