// Package heuristic turns parsed captures into pass/fail verdicts.
//
// Each heuristic is fed one or more Samples and then asked whether it
// failed. Event heuristics accumulate across every sample they see; the
// usage heuristics judge the most recent sample that carried their input.
package heuristic

import (
	"encoding/json"
	"time"

	"github.com/setevik/droidtriage/internal/item"
)

// Status is the outcome of a heuristic.
type Status string

const (
	Passed Status = "PASSED"
	Failed Status = "FAILED"
)

// Sample is one capture handed to the heuristics. Any record may be nil.
type Sample struct {
	Time time.Time
	URI  string

	Bugreport *item.Bugreport
	Logcat    *item.Logcat
	KernelLog *item.KernelLog
	MemInfo   item.MemInfo
	Procrank  item.Procrank
	Top       *item.Top
	Dumpsys   *item.Dumpsys
}

// FromBugreport spreads a bugreport into a Sample. last_kmsg is preferred
// over dmesg as the kernel log since it covers the boot before a reset.
func FromBugreport(b *item.Bugreport, uri string) Sample {
	s := Sample{URI: uri, Bugreport: b}
	if b == nil {
		return s
	}
	s.Time = b.Time
	s.Logcat = b.SystemLog
	s.KernelLog = b.KernelLog
	if b.LastKmsg != nil {
		s.KernelLog = b.LastKmsg
	}
	s.MemInfo = b.MemInfo
	s.Procrank = b.Procrank
	s.Top = b.Top
	s.Dumpsys = b.Dumpsys
	return s
}

// Heuristic is a single check over one or more samples.
type Heuristic interface {
	Type() string
	Name() string
	// Add feeds a sample. Only the process lifecycle heuristic returns an
	// error, a *lifecycle.ConflictError.
	Add(Sample) error
	Failed() bool
	// Summary and Details are empty when the heuristic passed.
	Summary() string
	Details() string
	Result() Result
}

// Result is the serializable verdict of a heuristic.
type Result struct {
	Type     string
	Name     string
	Status   Status
	Summary  string
	Details  string
	Evidence map[string]any
}

// MarshalJSON flattens the evidence keys next to the fixed fields.
func (r Result) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(r.Evidence)+5)
	for k, v := range r.Evidence {
		m[k] = v
	}
	m["TYPE"] = r.Type
	m["NAME"] = r.Name
	m["STATUS"] = r.Status
	if r.Summary != "" {
		m["SUMMARY"] = r.Summary
	}
	if r.Details != "" {
		m["DETAILS"] = r.Details
	}
	return json.Marshal(m)
}

func newResult(h Heuristic, evidence map[string]any) Result {
	r := Result{
		Type:     h.Type(),
		Name:     h.Name(),
		Status:   Passed,
		Evidence: evidence,
	}
	if h.Failed() {
		r.Status = Failed
		r.Summary = h.Summary()
		r.Details = h.Details()
	}
	return r
}

// Thresholds are the cutoffs the heuristics judge against.
type Thresholds struct {
	CPUUsage           float64
	MemoryUsage        float64
	WakeLock           time.Duration
	MaxSystemServerPID int
	Lifecycle          LifecycleThresholds
}

// LifecycleThresholds are the process lifecycle limits. A zero value
// disables the check it guards.
type LifecycleThresholds struct {
	ProcessesCreated   int
	ProcessesDestroyed int
	Instances          int
	Lifespan           time.Duration
	RestartLatency     time.Duration
}

// DefaultThresholds returns the stock cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{
		CPUUsage:           0.8,
		MemoryUsage:        0.99,
		WakeLock:           30 * time.Minute,
		MaxSystemServerPID: 1000,
	}
}

// Defaults builds the full heuristic set in report order.
func Defaults(th Thresholds) []Heuristic {
	return []Heuristic{
		NewANR(),
		NewJavaCrash(),
		NewNativeCrash(),
		NewKernelReset(),
		NewCPUUsage(th.CPUUsage),
		NewMemoryUsage(th.MemoryUsage),
		NewPowerUsage(th.WakeLock),
		NewRuntimeRestart(th.MaxSystemServerPID),
		NewProcessLifecycle(th.Lifecycle),
	}
}

// Evaluate collects the result of every heuristic.
func Evaluate(hs []Heuristic) []Result {
	out := make([]Result, len(hs))
	for i, h := range hs {
		out[i] = h.Result()
	}
	return out
}

func plural(n int, suffix string) string {
	if n == 1 {
		return ""
	}
	return suffix
}
