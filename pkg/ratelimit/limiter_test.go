package ratelimit

import (
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		MinDelay:        time.Second,
		MaxDelay:        2 * time.Second,
		HourlyCap:       3,
		DailyCap:        5,
		SessionCap:      4,
		SessionRest:     30 * time.Minute,
		Cooldown:        10 * time.Minute,
		CooldownCeiling: 40 * time.Minute,
	}
}

// fakeClock drives a limiter deterministically.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(cfg Config) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := New("test", cfg)
	l.now = clock.now
	return l, clock
}

func TestAcquireAdmitsWithJitter(t *testing.T) {
	l, _ := newTestLimiter(testConfig())

	adm := l.Acquire()
	if !adm.OK {
		t.Fatalf("expected admission, refused by %q window", adm.Window)
	}
	if adm.Pause != PauseJitter {
		t.Errorf("expected jitter pause, got %q", adm.Pause)
	}
	if adm.Wait < time.Second || adm.Wait > 2*time.Second {
		t.Errorf("jitter %v outside [1s, 2s]", adm.Wait)
	}
}

func TestHourlyCapRefusesAndRecovers(t *testing.T) {
	cfg := testConfig()
	cfg.SessionCap = 0
	cfg.DailyCap = 0
	l, clock := newTestLimiter(cfg)

	for i := 0; i < cfg.HourlyCap; i++ {
		if adm := l.Acquire(); !adm.OK {
			t.Fatalf("request %d unexpectedly refused", i+1)
		}
		clock.advance(time.Minute)
	}

	adm := l.Acquire()
	if adm.OK {
		t.Fatal("expected hourly refusal")
	}
	if adm.Window != WindowHour {
		t.Errorf("expected hour window, got %q", adm.Window)
	}
	// Oldest admission was 3 minutes ago; headroom returns when it ages out.
	if want := time.Hour - 3*time.Minute; adm.Wait != want {
		t.Errorf("expected wait %v, got %v", want, adm.Wait)
	}

	// Refusal does not consume headroom: waiting the indicated time admits.
	clock.advance(adm.Wait)
	if adm := l.Acquire(); !adm.OK {
		t.Errorf("expected admission after the window slid, refused by %q", adm.Window)
	}
}

func TestDailyCapRefusal(t *testing.T) {
	cfg := testConfig()
	cfg.HourlyCap = 0
	cfg.SessionCap = 0
	l, clock := newTestLimiter(cfg)

	for i := 0; i < cfg.DailyCap; i++ {
		if adm := l.Acquire(); !adm.OK {
			t.Fatalf("request %d unexpectedly refused", i+1)
		}
		clock.advance(time.Hour)
	}

	adm := l.Acquire()
	if adm.OK || adm.Window != WindowDay {
		t.Fatalf("expected daily refusal, got %+v", adm)
	}
}

func TestSessionCapResetsAtRefusal(t *testing.T) {
	cfg := testConfig()
	cfg.HourlyCap = 0
	cfg.DailyCap = 0
	l, clock := newTestLimiter(cfg)

	for i := 0; i < cfg.SessionCap; i++ {
		if adm := l.Acquire(); !adm.OK {
			t.Fatalf("request %d unexpectedly refused", i+1)
		}
	}

	adm := l.Acquire()
	if adm.OK || adm.Window != WindowSession {
		t.Fatalf("expected session refusal, got %+v", adm)
	}
	if adm.Wait != cfg.SessionRest {
		t.Errorf("expected mandatory rest %v, got %v", cfg.SessionRest, adm.Wait)
	}

	// The counter reset at refusal: a full session is available again.
	clock.advance(cfg.SessionRest)
	for i := 0; i < cfg.SessionCap; i++ {
		if adm := l.Acquire(); !adm.OK {
			t.Fatalf("post-rest request %d unexpectedly refused by %q", i+1, adm.Window)
		}
	}
}

func TestCooldownEscalatesAndResets(t *testing.T) {
	l, _ := newTestLimiter(testConfig())

	if got := l.OnRateLimitedResponse(); got != 10*time.Minute {
		t.Errorf("first cooldown = %v, want 10m", got)
	}
	if got := l.OnRateLimitedResponse(); got != 20*time.Minute {
		t.Errorf("second cooldown = %v, want 20m", got)
	}
	if got := l.OnRateLimitedResponse(); got != 40*time.Minute {
		t.Errorf("third cooldown = %v, want 40m", got)
	}
	// Capped at the ceiling.
	if got := l.OnRateLimitedResponse(); got != 40*time.Minute {
		t.Errorf("fourth cooldown = %v, want ceiling 40m", got)
	}

	l.OnSuccess()
	if got := l.OnRateLimitedResponse(); got != 10*time.Minute {
		t.Errorf("cooldown after success = %v, want base 10m", got)
	}
}

func TestLongPauseCadence(t *testing.T) {
	cfg := testConfig()
	cfg.HourlyCap = 0
	cfg.DailyCap = 0
	cfg.SessionCap = 0
	cfg.LongPauseMin = 2 * time.Minute
	cfg.LongPauseMax = 5 * time.Minute
	cfg.LongPauseEveryMin = 3
	cfg.LongPauseEveryMax = 3
	l, _ := newTestLimiter(cfg)
	l.nextLongPause = 3

	for i := 0; i < 2; i++ {
		adm := l.Acquire()
		if !adm.OK || adm.Pause != PauseJitter {
			t.Fatalf("request %d: expected jitter admission, got %+v", i+1, adm)
		}
	}

	adm := l.Acquire()
	if !adm.OK || adm.Pause != PauseLong {
		t.Fatalf("expected long pause on third admission, got %+v", adm)
	}
	if adm.Wait < cfg.LongPauseMin || adm.Wait > cfg.LongPauseMax {
		t.Errorf("long pause %v outside [%v, %v]", adm.Wait, cfg.LongPauseMin, cfg.LongPauseMax)
	}

	// Cadence restarts after the pause.
	if adm := l.Acquire(); adm.Pause != PauseJitter {
		t.Errorf("expected jitter after long pause, got %q", adm.Pause)
	}
}

// memoryAttemptStore is an in-memory AttemptStore for restart tests.
type memoryAttemptStore struct {
	events map[string][]time.Time
	fail   error
}

func newMemoryAttemptStore() *memoryAttemptStore {
	return &memoryAttemptStore{events: make(map[string][]time.Time)}
}

func (m *memoryAttemptStore) RecordAttempt(source string, at time.Time) error {
	if m.fail != nil {
		return m.fail
	}
	m.events[source] = append(m.events[source], at)
	return nil
}

func (m *memoryAttemptStore) AttemptsSince(source string, since time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, at := range m.events[source] {
		if !at.Before(since) {
			out = append(out, at)
		}
	}
	return out, nil
}

func (m *memoryAttemptStore) PruneAttempts(source string, before time.Time) error {
	var kept []time.Time
	for _, at := range m.events[source] {
		if !at.Before(before) {
			kept = append(kept, at)
		}
	}
	m.events[source] = kept
	return nil
}

func TestWindowsSurviveRestart(t *testing.T) {
	cfg := testConfig()
	cfg.SessionCap = 0
	store := newMemoryAttemptStore()

	l1, err := NewWithStore("test", cfg, store)
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}
	for i := 0; i < cfg.HourlyCap; i++ {
		if adm := l1.Acquire(); !adm.OK {
			t.Fatalf("request %d unexpectedly refused", i+1)
		}
	}

	// A fresh limiter over the same store inherits the saturated window.
	l2, err := NewWithStore("test", cfg, store)
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}
	adm := l2.Acquire()
	if adm.OK {
		t.Fatal("expected refusal after restart: window should be restored")
	}
	if adm.Window != WindowHour {
		t.Errorf("expected hour window, got %q", adm.Window)
	}

	stats := l2.Snapshot()
	if stats.HourlyCount != cfg.HourlyCap {
		t.Errorf("restored hourly count = %d, want %d", stats.HourlyCount, cfg.HourlyCap)
	}
}

func TestPersistFailureDoesNotBlockAdmission(t *testing.T) {
	cfg := testConfig()
	store := newMemoryAttemptStore()

	l, err := NewWithStore("test", cfg, store)
	if err != nil {
		t.Fatalf("NewWithStore: %v", err)
	}

	store.fail = errTestWrite
	if adm := l.Acquire(); !adm.OK {
		t.Error("admission must stand even when the durable write fails")
	}
}

var errTestWrite = &persistErr{}

type persistErr struct{}

func (*persistErr) Error() string { return "disk full" }
