package reporter

import (
	"time"

	"github.com/setevik/droidtriage/internal/analyzer"
	"github.com/setevik/droidtriage/internal/heuristic"
)

// TestReport creates a synthetic report for testing ntfy connectivity.
type TestReport struct {
	Device string
}

// ToReport converts a TestReport to a report with one failure, suitable for
// Report().
func (t *TestReport) ToReport() (*analyzer.Report, []heuristic.Result) {
	failure := heuristic.Result{
		Type:    "TEST",
		Name:    "Test notification",
		Status:  heuristic.Failed,
		Summary: "This is a test notification from droidtriage. If you see this, ntfy is configured correctly.",
	}
	r := &analyzer.Report{
		ID:      "test-" + time.Now().Format("20060102-150405"),
		Device:  t.Device,
		Created: time.Now(),
		Results: []heuristic.Result{failure},
	}
	return r, r.Results
}
