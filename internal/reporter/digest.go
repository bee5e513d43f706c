package reporter

import (
	"fmt"
	"strings"
	"time"

	"github.com/setevik/droidtriage/internal/heuristic"
	"github.com/setevik/droidtriage/internal/store"
)

// DigestSummary holds aggregated verdict counts for a digest period.
type DigestSummary struct {
	Since time.Time
	Until time.Time

	Runs       int
	FailedRuns int
	Failures   int
	// ByHeuristic counts failures per heuristic name.
	ByHeuristic map[string]int
	// ByDevice counts failures per device.
	ByDevice map[string]int
	// Summaries lists the distinct failure summaries in the order seen.
	Summaries []string
}

// BuildDigest aggregates stored verdicts into a DigestSummary.
func BuildDigest(verdicts []*store.Verdict, since, until time.Time) *DigestSummary {
	d := &DigestSummary{
		Since:       since,
		Until:       until,
		ByHeuristic: make(map[string]int),
		ByDevice:    make(map[string]int),
	}

	runs := make(map[string]bool)
	failedRuns := make(map[string]bool)
	seen := make(map[string]bool)

	for _, v := range verdicts {
		runs[v.RunID] = true
		if v.Status != heuristic.Failed {
			continue
		}
		d.Failures++
		failedRuns[v.RunID] = true
		d.ByHeuristic[v.Name]++

		device := v.Device
		if device == "" {
			device = "unknown"
		}
		d.ByDevice[device]++

		if v.Summary != "" && !seen[v.Summary] {
			seen[v.Summary] = true
			d.Summaries = append(d.Summaries, v.Summary)
		}
	}
	d.Runs = len(runs)
	d.FailedRuns = len(failedRuns)

	return d
}

// FormatDigest formats a DigestSummary as human-readable text suitable for
// ntfy or stdout output.
func FormatDigest(d *DigestSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Period: %s - %s\n\n",
		d.Since.Local().Format("Jan 02"),
		d.Until.Local().Format("Jan 02"))

	fmt.Fprintf(&b, "Runs:     %d (%d failed)\n", d.Runs, d.FailedRuns)
	fmt.Fprintf(&b, "Failures: %d", d.Failures)
	if d.Failures > 0 {
		fmt.Fprintf(&b, " (%s)", formatBreakdown(d.ByHeuristic))
	}
	b.WriteString("\n")

	if len(d.ByDevice) > 0 {
		fmt.Fprintf(&b, "Devices:  %s\n", formatBreakdown(d.ByDevice))
	}

	if len(d.Summaries) > 0 {
		b.WriteString("\n")
		for _, s := range d.Summaries {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	return b.String()
}

// FormatDigestTitle generates the ntfy title for a digest notification.
func FormatDigestTitle(since, until time.Time) string {
	return fmt.Sprintf("\U0001f4ca droidtriage digest (%s-%s)",
		since.Local().Format("Jan 02"),
		until.Local().Format("Jan 02"))
}
