package report

import (
	"fmt"
	"sort"
	"strings"

	"igfollowers/pkg/checkpoint"
)

// conservativeDailyRate is roughly what the default rate limits allow
// per day across both sources; used only for the ETA estimate.
const conservativeDailyRate = 320

// FormatSummary renders lookup progress as a human-readable block for
// the status command.
func FormatSummary(s *checkpoint.Summary) string {
	var b strings.Builder

	if s.Total == 0 {
		b.WriteString("No followers in database. Run 'parse' first.\n")
		return b.String()
	}

	pct := float64(s.Success) / float64(s.Total) * 100

	b.WriteString("--- Follower Lookup Progress ---\n")
	fmt.Fprintf(&b, "  Total followers:  %s\n", formatCount(s.Total))
	fmt.Fprintf(&b, "  Completed:        %s (%.1f%%)\n", formatCount(s.Success), pct)
	fmt.Fprintf(&b, "  Pending:          %s\n", formatCount(s.Pending))
	fmt.Fprintf(&b, "  Rate limited:     %s\n", formatCount(s.RateLimited))
	fmt.Fprintf(&b, "  Failed:           %s\n", formatCount(s.Failed))

	if len(s.BySource) > 0 {
		b.WriteString("\n  By source:\n")
		sources := make([]string, 0, len(s.BySource))
		for source := range s.BySource {
			sources = append(sources, source)
		}
		sort.Strings(sources)
		for _, source := range sources {
			fmt.Fprintf(&b, "    %s: %s\n", source, formatCount(s.BySource[source]))
		}
	}

	if remaining := s.Remaining(); remaining > 0 {
		days := float64(remaining) / conservativeDailyRate
		if days < 1 {
			days = 1
		}
		fmt.Fprintf(&b, "\n  Estimated time remaining: ~%.0f days at conservative rates\n", days)
	}

	return b.String()
}

// formatCount adds thousands separators, e.g. 12345 -> "12,345".
func formatCount(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	return s + "," + strings.Join(parts, ",")
}
