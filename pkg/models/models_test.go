package models

import (
	"errors"
	"testing"
)

func TestNextStatus(t *testing.T) {
	tests := []struct {
		name        string
		current     LookupStatus
		outcome     Outcome
		trusted     bool
		wantStatus  LookupStatus
		wantChanged bool
	}{
		{
			name:        "resolved from pending",
			current:     StatusPending,
			outcome:     Resolved(&ProfileAttributes{FollowerCount: 10}),
			wantStatus:  StatusSuccess,
			wantChanged: true,
		},
		{
			name:        "resolved from rate_limited",
			current:     StatusRateLimited,
			outcome:     Resolved(&ProfileAttributes{}),
			wantStatus:  StatusSuccess,
			wantChanged: true,
		},
		{
			name:        "not found becomes failed",
			current:     StatusPending,
			outcome:     NotFound(),
			wantStatus:  StatusFailed,
			wantChanged: true,
		},
		{
			name:        "rate limited from untrusted source",
			current:     StatusPending,
			outcome:     RateLimited(0, errors.New("429")),
			trusted:     false,
			wantStatus:  StatusRateLimited,
			wantChanged: true,
		},
		{
			name:        "rate limited from trusted source stays pending",
			current:     StatusPending,
			outcome:     RateLimited(0, errors.New("throttled")),
			trusted:     true,
			wantStatus:  StatusPending,
			wantChanged: false,
		},
		{
			name:        "rate limited again is not a change",
			current:     StatusRateLimited,
			outcome:     RateLimited(0, nil),
			trusted:     false,
			wantStatus:  StatusRateLimited,
			wantChanged: false,
		},
		{
			name:        "transient keeps current status",
			current:     StatusPending,
			outcome:     Transient(errors.New("timeout")),
			wantStatus:  StatusPending,
			wantChanged: false,
		},
		{
			name:        "transient from trusted keeps pending for the scraper",
			current:     StatusPending,
			outcome:     Transient(errors.New("not a business account")),
			trusted:     true,
			wantStatus:  StatusPending,
			wantChanged: false,
		},
		{
			name:        "success is absorbing",
			current:     StatusSuccess,
			outcome:     RateLimited(0, nil),
			wantStatus:  StatusSuccess,
			wantChanged: false,
		},
		{
			name:        "success absorbs even a resolved outcome",
			current:     StatusSuccess,
			outcome:     Resolved(&ProfileAttributes{}),
			wantStatus:  StatusSuccess,
			wantChanged: false,
		},
		{
			name:        "failed is absorbing",
			current:     StatusFailed,
			outcome:     Resolved(&ProfileAttributes{}),
			wantStatus:  StatusFailed,
			wantChanged: false,
		},
		{
			name:        "fatal never touches the record",
			current:     StatusPending,
			outcome:     Fatal(FatalSessionInvalid, errors.New("login required")),
			wantStatus:  StatusPending,
			wantChanged: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := NextStatus(tt.current, tt.outcome, tt.trusted)
			if got != tt.wantStatus {
				t.Errorf("NextStatus() status = %q, want %q", got, tt.wantStatus)
			}
			if changed != tt.wantChanged {
				t.Errorf("NextStatus() changed = %v, want %v", changed, tt.wantChanged)
			}
		})
	}
}
