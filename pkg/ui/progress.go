package ui

import (
	"fmt"
	"strings"
	"time"

	"igfollowers/pkg/lookup"
	"igfollowers/pkg/models"
)

const (
	ProgressBar   = "█"
	ProgressEmpty = "░"
)

// ProgressPrinter renders coordinator events on the terminal. It is a
// lookup.Reporter; wire it with coordinator.SetReporter(p.Report).
type ProgressPrinter struct {
	total     int
	done      int
	startTime time.Time
}

// NewProgressPrinter creates a printer for a run over total eligible
// records. done seeds the bar with work finished in earlier runs.
func NewProgressPrinter(total, done int) *ProgressPrinter {
	return &ProgressPrinter{
		total:     total,
		done:      done,
		startTime: time.Now(),
	}
}

// Report consumes one coordinator event.
func (p *ProgressPrinter) Report(ev lookup.Event) {
	switch ev.Kind {
	case lookup.EventResult:
		p.printResult(ev)
	case lookup.EventWait:
		if ev.Wait >= 30*time.Second {
			fmt.Printf("\n%s %s window full, resting %s\n",
				Yellow("[WAIT]"), ev.Window, roundWait(ev.Wait))
		}
	case lookup.EventCooldown:
		fmt.Printf("\n%s rate limited upstream, cooling down %s\n",
			Red("[COOLDOWN]"), roundWait(ev.Wait))
	}
}

func (p *ProgressPrinter) printResult(ev lookup.Event) {
	switch ev.Outcome {
	case models.OutcomeResolved:
		p.done++
		count := 0
		if ev.Attributes != nil {
			count = ev.Attributes.FollowerCount
		}
		fmt.Printf("\r%s @%s (%d followers) %s",
			Green("[OK]"), ev.Username, count, p.bar())
	case models.OutcomeNotFound:
		p.done++
		fmt.Printf("\r%s @%s does not exist %s",
			Dim("[GONE]"), ev.Username, p.bar())
	case models.OutcomeRateLimited:
		fmt.Printf("\r%s @%s deferred %s",
			Yellow("[LIMIT]"), ev.Username, p.bar())
	case models.OutcomeTransient:
		fmt.Printf("\r%s @%s retry later %s",
			Yellow("[SKIP]"), ev.Username, p.bar())
	}
}

// bar renders overall progress across the whole checkpoint, not just
// this run.
func (p *ProgressPrinter) bar() string {
	const width = 20
	if p.total <= 0 {
		return ""
	}
	progress := float64(p.done) / float64(p.total)
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))

	return fmt.Sprintf("[%s%s] %d/%d",
		strings.Repeat(ProgressBar, filled),
		strings.Repeat(ProgressEmpty, width-filled),
		p.done, p.total)
}

// PrintRunSummary prints the end-of-run totals.
func PrintRunSummary(summary *lookup.RunSummary) {
	elapsed := summary.Finished.Sub(summary.Started).Round(time.Second)

	fmt.Printf("\n\n%s source=%s reason=%s elapsed=%s\n",
		Magenta("[RUN DONE]"), summary.Source, summary.StopReason, elapsed)
	fmt.Printf("  processed=%d resolved=%d failed=%d rate_limited=%d transient=%d\n",
		summary.Processed, summary.Succeeded, summary.Failed,
		summary.RateLimited, summary.Transient)
}

func roundWait(d time.Duration) time.Duration {
	if d >= time.Minute {
		return d.Round(time.Second)
	}
	return d.Round(100 * time.Millisecond)
}
