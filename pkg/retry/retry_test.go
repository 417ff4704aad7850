package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	errs "igfollowers/pkg/errors"
	"igfollowers/pkg/logger"
)

func TestDefaultRetryIf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"context canceled", context.Canceled, false},
		{"deadline exceeded", context.DeadlineExceeded, false},
		{"persistence error", &errs.PersistenceError{Op: "update", Err: errors.New("locked")}, true},
		{"network error", &errs.Error{Type: errs.ErrorTypeNetwork}, true},
		{"rate limit error", &errs.Error{Type: errs.ErrorTypeRateLimit}, true},
		{"server error", &errs.Error{Type: errs.ErrorTypeServerError}, true},
		{"auth error", &errs.Error{Type: errs.ErrorTypeAuth}, false},
		{"not found error", &errs.Error{Type: errs.ErrorTypeNotFound}, false},
		{"denied error", &errs.Error{Type: errs.ErrorTypeDenied}, false},
		{"wrapped api error", fmt.Errorf("fetch: %w", &errs.Error{Type: errs.ErrorTypeNetwork}), true},
		{"plain error", errors.New("something else"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultRetryIf(tt.err); got != tt.want {
				t.Errorf("DefaultRetryIf(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestConstantBackoff(t *testing.T) {
	cb := &ConstantBackoff{Delay: 250 * time.Millisecond}

	if got := cb.NextDelay(0); got != 0 {
		t.Errorf("NextDelay(0) = %v, want 0", got)
	}
	for _, attempt := range []int{1, 2, 10} {
		if got := cb.NextDelay(attempt); got != 250*time.Millisecond {
			t.Errorf("NextDelay(%d) = %v, want 250ms", attempt, got)
		}
	}
}

func TestExponentialBackoffCapsAtMax(t *testing.T) {
	eb := &ExponentialBackoff{
		BaseDelay:  time.Second,
		MaxDelay:   4 * time.Second,
		Multiplier: 2.0,
	}

	wants := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 4 * time.Second}
	for i, want := range wants {
		if got := eb.NextDelay(i + 1); got != want {
			t.Errorf("NextDelay(%d) = %v, want %v", i+1, got, want)
		}
	}
}

func testDoConfig(ctx context.Context) *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		RetryIf:     DefaultRetryIf,
		Context:     ctx,
		Logger:      logger.NewTestLogger(),
	}
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		if calls < 3 {
			return &errs.PersistenceError{Op: "update", Err: errors.New("locked")}
		}
		return nil
	}, testDoConfig(context.Background()))

	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	wantErr := errors.New("bad data")
	err := Do(func() error {
		calls++
		return wantErr
	}, testDoConfig(context.Background()))

	if !errors.Is(err, wantErr) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single attempt, got %d", calls)
	}
}

func TestDoExhaustsAttempts(t *testing.T) {
	calls := 0
	err := Do(func() error {
		calls++
		return &errs.PersistenceError{Op: "update", Err: errors.New("locked")}
	}, testDoConfig(context.Background()))

	if err == nil {
		t.Fatal("expected an error after exhausting attempts")
	}
	if calls != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestDoRunsOperationBeforeContextCheck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := Do(func() error {
		calls++
		return nil
	}, testDoConfig(ctx))

	// A result ready to commit lands even when cancellation arrived while
	// the operation was in flight.
	if err != nil {
		t.Fatalf("Do returned error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 attempt, got %d", calls)
	}
}
