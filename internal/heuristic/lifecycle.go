package heuristic

import (
	"fmt"
	"strings"
	"time"

	"github.com/setevik/droidtriage/internal/lifecycle"
)

// processStats is the per-process evidence of the lifecycle heuristic.
type processStats struct {
	Instances      int   `json:"INSTANCES"`
	Overlaps       int   `json:"OVERLAPS"`
	Lifespan       int64 `json:"AVERAGE_LIFESPAN"`
	RestartLatency int64 `json:"AVERAGE_RESTART_LATENCY"`
}

// edgeCount is the number of processes created and destroyed at a snapshot.
type edgeCount struct {
	Time      time.Time `json:"TIME"`
	URI       string    `json:"URI,omitempty"`
	Created   int       `json:"CREATED"`
	Destroyed int       `json:"DESTROYED"`
}

type processLifecycle struct {
	th       LifecycleThresholds
	timeline *lifecycle.Timeline
}

// NewProcessLifecycle builds a timeline from every timestamped procrank and
// fails when process churn crosses th.
func NewProcessLifecycle(th LifecycleThresholds) Heuristic {
	return &processLifecycle{th: th, timeline: lifecycle.NewTimeline()}
}

func (h *processLifecycle) Type() string { return "PROCESS_LIFECYCLE" }
func (h *processLifecycle) Name() string { return "Process lifecycle" }

// Add returns a *lifecycle.ConflictError when the sample reuses a pid under
// another name. The sample is then left out of the timeline.
func (h *processLifecycle) Add(s Sample) error {
	if s.Procrank == nil {
		return nil
	}
	return h.timeline.AddSnapshot(s.Procrank.Names(), s.Time, s.URI)
}

// Timeline exposes the timeline built so far.
func (h *processLifecycle) Timeline() *lifecycle.Timeline { return h.timeline }

// findings lists every threshold that was crossed.
func (h *processLifecycle) findings() []string {
	ts := h.timeline.Timestamps()
	var out []string

	// The first snapshot creates everything and the last destroys
	// everything, so those edges say nothing about churn.
	if h.th.ProcessesCreated > 0 {
		for i := 1; i < len(ts); i++ {
			if n := h.timeline.CreatedAt(ts[i]); n > h.th.ProcessesCreated {
				out = append(out, fmt.Sprintf("%d processes created at %s (over %d)",
					n, ts[i].Format(time.DateTime), h.th.ProcessesCreated))
			}
		}
	}
	if h.th.ProcessesDestroyed > 0 {
		for i := 0; i < len(ts)-1; i++ {
			if n := h.timeline.DestroyedAt(ts[i]); n > h.th.ProcessesDestroyed {
				out = append(out, fmt.Sprintf("%d processes destroyed at %s (over %d)",
					n, ts[i].Format(time.DateTime), h.th.ProcessesDestroyed))
			}
		}
	}
	if h.th.Instances == 0 {
		return out
	}

	for _, name := range h.timeline.ProcessNames() {
		n := h.timeline.InstanceCount(name)
		if n <= h.th.Instances {
			continue
		}
		if h.th.Lifespan > 0 {
			if d := h.timeline.AverageLifespan(name); d > h.th.Lifespan {
				out = append(out, fmt.Sprintf("%s ran as %d instances with an average lifespan of %s (over %s)",
					name, n, d, h.th.Lifespan))
			}
		}
		if h.th.RestartLatency > 0 {
			if d := h.timeline.AverageRestartLatency(name); d > h.th.RestartLatency {
				out = append(out, fmt.Sprintf("%s ran as %d instances with an average restart latency of %s (over %s)",
					name, n, d, h.th.RestartLatency))
			}
		}
	}
	return out
}

func (h *processLifecycle) Failed() bool { return len(h.findings()) > 0 }

func (h *processLifecycle) Summary() string {
	n := len(h.findings())
	if n == 0 {
		return ""
	}
	return fmt.Sprintf("Found %d process lifecycle issue%s across %d procranks", n, plural(n, "s"), h.timeline.Len())
}

func (h *processLifecycle) Details() string {
	f := h.findings()
	if len(f) == 0 {
		return ""
	}
	return strings.Join(f, "\n") + "\n"
}

func (h *processLifecycle) Result() Result {
	procs := make(map[string]processStats)
	for _, name := range h.timeline.ProcessNames() {
		procs[name] = processStats{
			Instances:      h.timeline.InstanceCount(name),
			Overlaps:       h.timeline.OverlapCount(name),
			Lifespan:       h.timeline.AverageLifespan(name).Milliseconds(),
			RestartLatency: h.timeline.AverageRestartLatency(name).Milliseconds(),
		}
	}
	edges := make([]edgeCount, h.timeline.Len())
	for i := range edges {
		s := h.timeline.Snapshot(i)
		edges[i] = edgeCount{
			Time:      s.Time,
			URI:       s.URI,
			Created:   h.timeline.CreatedAt(s.Time),
			Destroyed: h.timeline.DestroyedAt(s.Time),
		}
	}
	return newResult(h, map[string]any{
		"PROCRANKS": edges,
		"PROCESSES": procs,
	})
}
