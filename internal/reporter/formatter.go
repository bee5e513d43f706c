package reporter

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/setevik/droidtriage/internal/analyzer"
	"github.com/setevik/droidtriage/internal/heuristic"
)

// typeEmoji maps heuristic types to display emojis for ntfy titles.
var typeEmoji = map[string]string{
	"KERNEL_RESET_HEURISTIC":    "\U0001f534", // red circle
	"RUNTIME_RESTART_HEURISTIC": "\U0001f504", // counterclockwise arrows
	"JAVA_CRASH_HEURISTIC":      "\U0001f4a5", // collision/crash
	"NATIVE_CRASH_HEURISTIC":    "\U0001f4a5",
	"ANR_HEURISTIC":             "\u23f3", // hourglass
	"POWER_USAGE_HEURISTIC":     "\U0001f50b", // battery
}

// typeTags maps heuristic types to ntfy tag names.
var typeTags = map[string]string{
	"KERNEL_RESET_HEURISTIC":    "skull",
	"RUNTIME_RESTART_HEURISTIC": "repeat",
	"JAVA_CRASH_HEURISTIC":      "crash",
	"NATIVE_CRASH_HEURISTIC":    "crash",
	"ANR_HEURISTIC":             "hourglass",
	"CPU_USAGE_HEURISTIC":       "fire",
	"MEMORY_USAGE_HEURISTIC":    "memory",
	"POWER_USAGE_HEURISTIC":     "battery",
}

// deviceName returns a display name for the report's device.
func deviceName(r *analyzer.Report) string {
	if r.Device == "" {
		return "device"
	}
	return r.Device
}

// FormatTitle builds the ntfy notification title for a set of failures.
// The emoji follows the first failure, which is the most severe since
// results are in report order.
func FormatTitle(r *analyzer.Report, failures []heuristic.Result) string {
	emoji := "\u2757" // exclamation mark
	names := make([]string, len(failures))
	for i, f := range failures {
		names[i] = f.Name
	}
	for _, f := range failures {
		if e, ok := typeEmoji[f.Type]; ok {
			emoji = e
			break
		}
	}
	return fmt.Sprintf("%s [%s] %s", emoji, deviceName(r), strings.Join(names, ", "))
}

// FormatBody builds the ntfy notification body for a set of failures.
func FormatBody(r *analyzer.Report, failures []heuristic.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Device: %s\n", deviceName(r))
	fmt.Fprintf(&b, "Time: %s\n", r.Created.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Run: %s\n", r.ID)
	if len(r.Captures) > 0 {
		fmt.Fprintf(&b, "Captures: %s\n", strings.Join(capturePaths(r), ", "))
	}

	b.WriteString("\n")
	for _, f := range failures {
		fmt.Fprintf(&b, "%s: %s\n", f.Name, f.Summary)
	}

	return b.String()
}

// TagsFor returns the ntfy tags string for a set of failures.
func TagsFor(failures []heuristic.Result) string {
	seen := map[string]bool{"warning": true}
	tags := []string{"warning"}
	for _, f := range failures {
		t, ok := typeTags[f.Type]
		if ok && !seen[t] {
			seen[t] = true
			tags = append(tags, t)
		}
	}
	return strings.Join(tags, ",")
}

// reportStyles colors the text report. The renderer detects the color
// profile of the output, so styles render as plain text unless w is a
// terminal.
type reportStyles struct {
	passed, failed, warning, faint lipgloss.Style
}

func newReportStyles(w io.Writer) reportStyles {
	re := lipgloss.NewRenderer(w)
	return reportStyles{
		passed:  re.NewStyle().Foreground(lipgloss.Color("42")),            // green
		failed:  re.NewStyle().Foreground(lipgloss.Color("196")).Bold(true), // red bold
		warning: re.NewStyle().Foreground(lipgloss.Color("220")),           // yellow
		faint:   re.NewStyle().Faint(true),
	}
}

func (s reportStyles) status(st heuristic.Status) string {
	padded := fmt.Sprintf("%-6s", st)
	if st == heuristic.Failed {
		return s.failed.Render(padded)
	}
	return s.passed.Render(padded)
}

// FormatReport writes a human-readable report. Details of failed heuristics
// are included when verbose is set.
func FormatReport(w io.Writer, r *analyzer.Report, verbose bool) {
	st := newReportStyles(w)

	fmt.Fprintf(w, "Run %s (%s)\n", r.ID, deviceName(r))
	for _, c := range r.Captures {
		fmt.Fprintf(w, "  %-10s %s%s\n", c.Kind, c.Path, captureStats(c))
	}
	for _, warn := range r.Warnings {
		fmt.Fprintf(w, "  %s %s\n", st.warning.Render("warning:"), warn)
	}
	fmt.Fprintln(w)

	for _, res := range r.Results {
		fmt.Fprintf(w, "%s %-18s", st.status(res.Status), res.Name)
		if res.Summary != "" {
			fmt.Fprintf(w, " %s", res.Summary)
		}
		fmt.Fprintln(w)
		if verbose && res.Details != "" {
			for _, line := range strings.Split(strings.TrimRight(res.Details, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", st.faint.Render(line))
			}
		}
	}

	failed := len(r.Failures())
	fmt.Fprintf(w, "\n%d of %d heuristics failed\n", failed, len(r.Results))
}

func captureStats(c *analyzer.Parsed) string {
	switch {
	case c.Bugreport != nil:
		if c.Bugreport.Time.IsZero() {
			return ""
		}
		return fmt.Sprintf(" (taken %s)", c.Bugreport.Time.Format("2006-01-02 15:04:05"))
	case c.Logcat != nil:
		return fmt.Sprintf(" (%d events)", len(c.Logcat.Events))
	case c.KernelLog != nil:
		return fmt.Sprintf(" (%d events)", len(c.KernelLog.Events))
	}
	return ""
}

func capturePaths(r *analyzer.Report) []string {
	paths := make([]string, len(r.Captures))
	for i, c := range r.Captures {
		paths[i] = c.Path
	}
	return paths
}

// formatBreakdown turns a map[string]int into "foo x2, bar x1" sorted by
// count desc, then name.
func formatBreakdown(m map[string]int) string {
	type entry struct {
		name  string
		count int
	}

	entries := make([]entry, 0, len(m))
	for name, count := range m {
		entries = append(entries, entry{name, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].name < entries[j].name
	})

	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s \u00d7%d", e.name, e.count)
	}
	return strings.Join(parts, ", ")
}
