package lifecycle

import (
	"fmt"
	"sort"
	"time"
)

// ignored lists processes that exist only because the capture was being
// taken. They are left out of the created and destroyed counts.
var ignored = map[string]bool{
	"dumpsys":     true,
	"logcat":      true,
	"procrank":    true,
	"meminfo":     true,
	"uiautomator": true,
}

// ConflictError reports a pid that appears under two different process
// names across snapshots.
type ConflictError struct {
	PID      int
	Expected string
	Actual   string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("pid %d has name %s but had name %s in an earlier snapshot", e.PID, e.Actual, e.Expected)
}

// Snapshot is one process listing taken at a point in time.
type Snapshot struct {
	Time      time.Time
	URI       string
	Processes map[int]string
}

// Timeline accumulates snapshots and tracks, for every process name, the
// interval over which each of its pids was observed. Snapshots may be added
// in any order. A Timeline is not safe for concurrent use.
type Timeline struct {
	snapshots []Snapshot
	byName    map[string]map[int]*Interval
	names     map[int]string
}

// NewTimeline creates an empty Timeline.
func NewTimeline() *Timeline {
	return &Timeline{
		byName: make(map[string]map[int]*Interval),
		names:  make(map[int]string),
	}
}

// AddSnapshot records a pid to name listing taken at ts. A zero ts is
// ignored. If any pid was seen earlier under a different name, a
// *ConflictError is returned and the timeline is left unchanged. The
// timeline keeps its own copy of procs.
func (t *Timeline) AddSnapshot(procs map[int]string, ts time.Time, uri string) error {
	if ts.IsZero() {
		return nil
	}

	pids := make([]int, 0, len(procs))
	for pid := range procs {
		pids = append(pids, pid)
	}
	sort.Ints(pids)

	for _, pid := range pids {
		if prev, ok := t.names[pid]; ok && prev != procs[pid] {
			return &ConflictError{PID: pid, Expected: prev, Actual: procs[pid]}
		}
	}

	committed := make(map[int]string, len(procs))
	for pid, name := range procs {
		committed[pid] = name
	}
	t.insert(Snapshot{Time: ts, URI: uri, Processes: committed})

	for _, pid := range pids {
		name := procs[pid]
		t.names[pid] = name
		instances, ok := t.byName[name]
		if !ok {
			instances = make(map[int]*Interval)
			t.byName[name] = instances
		}
		if iv, ok := instances[pid]; ok {
			iv.Widen(ts)
		} else {
			p := Point(ts)
			instances[pid] = &p
		}
	}
	return nil
}

// insert places s in chronological order. Snapshots usually arrive in
// order, so the scan starts from the end. Equal timestamps keep arrival
// order.
func (t *Timeline) insert(s Snapshot) {
	i := len(t.snapshots)
	for i > 0 && s.Time.Before(t.snapshots[i-1].Time) {
		i--
	}
	t.snapshots = append(t.snapshots, Snapshot{})
	copy(t.snapshots[i+1:], t.snapshots[i:])
	t.snapshots[i] = s
}

// Len returns the number of snapshots.
func (t *Timeline) Len() int {
	return len(t.snapshots)
}

// Snapshot returns the i-th snapshot in chronological order.
func (t *Timeline) Snapshot(i int) Snapshot {
	return t.snapshots[i]
}

// Timestamps returns the snapshot times in chronological order.
func (t *Timeline) Timestamps() []time.Time {
	out := make([]time.Time, len(t.snapshots))
	for i, s := range t.snapshots {
		out[i] = s.Time
	}
	return out
}

// ProcessNames returns every process name seen, sorted.
func (t *Timeline) ProcessNames() []string {
	names := make([]string, 0, len(t.byName))
	for n := range t.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (t *Timeline) intervals(name string) []Interval {
	instances := t.byName[name]
	pids := make([]int, 0, len(instances))
	for pid := range instances {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	out := make([]Interval, len(pids))
	for i, pid := range pids {
		out[i] = *instances[pid]
	}
	return out
}

// AverageLifespan returns the mean observed lifetime of the pids that ran
// name, or 0 for an unknown name.
func (t *Timeline) AverageLifespan(name string) time.Duration {
	ivs := t.intervals(name)
	if len(ivs) == 0 {
		return 0
	}
	var total time.Duration
	for _, iv := range ivs {
		total += iv.Duration()
	}
	return total / time.Duration(len(ivs))
}

// AverageRestartLatency returns the mean gap between consecutive windows in
// which name was running. It is 0 when there are fewer than two windows.
func (t *Timeline) AverageRestartLatency(name string) time.Duration {
	merged := Merge(t.intervals(name))
	if len(merged) < 2 {
		return 0
	}
	var total time.Duration
	for i := 0; i < len(merged)-1; i++ {
		total += merged[i+1].Start.Sub(merged[i].Stop)
	}
	return total / time.Duration(len(merged)-1)
}

// InstanceCount returns the number of distinct pids that ran name.
func (t *Timeline) InstanceCount(name string) int {
	return len(t.byName[name])
}

// OverlapCount returns the number of pids of name that ran concurrently
// with another pid of the same name.
func (t *Timeline) OverlapCount(name string) int {
	ivs := t.intervals(name)
	count := 0
	for _, window := range Merge(ivs) {
		n := 0
		for _, iv := range ivs {
			if window.Contains(iv) {
				n++
			}
		}
		if n > 1 {
			count += n
		}
	}
	return count
}

// CreatedAt returns how many processes were first seen at ts.
func (t *Timeline) CreatedAt(ts time.Time) int {
	return t.countEdges(func(iv *Interval) bool { return iv.Start.Equal(ts) })
}

// DestroyedAt returns how many processes were last seen at ts.
func (t *Timeline) DestroyedAt(ts time.Time) int {
	return t.countEdges(func(iv *Interval) bool { return iv.Stop.Equal(ts) })
}

func (t *Timeline) countEdges(match func(*Interval) bool) int {
	count := 0
	for name, instances := range t.byName {
		if ignored[name] {
			continue
		}
		for _, iv := range instances {
			if match(iv) {
				count++
			}
		}
	}
	return count
}
