package heuristic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/setevik/droidtriage/internal/classifier"
	"github.com/setevik/droidtriage/internal/format"
	"github.com/setevik/droidtriage/internal/item"
)

// topProcesses is how many procrank rows the memory details list.
const topProcesses = 5

type cpuUsage struct {
	cutoff float64
	top    *item.Top
	events []*item.LogcatEvent
}

// NewCPUUsage fails when the latest top sample is busier than cutoff, or
// when a logcat reports high CPU load.
func NewCPUUsage(cutoff float64) Heuristic { return &cpuUsage{cutoff: cutoff} }

func (h *cpuUsage) Type() string { return "CPU_USAGE_HEURISTIC" }
func (h *cpuUsage) Name() string { return "CPU usage" }

func (h *cpuUsage) Add(s Sample) error {
	if s.Top != nil {
		h.top = s.Top
	}
	if s.Logcat != nil {
		h.events = append(h.events, s.Logcat.MiscEvents(classifier.HighCPUUsage)...)
	}
	return nil
}

func (h *cpuUsage) usage() float64 {
	if h.top == nil {
		return 0
	}
	return h.top.Usage()
}

func (h *cpuUsage) Failed() bool {
	return (h.top != nil && h.usage() > h.cutoff) || len(h.events) > 0
}

func (h *cpuUsage) Summary() string {
	if !h.Failed() {
		return ""
	}
	return fmt.Sprintf("CPU usage at %.0f%% (over %.0f%%)", 100*h.usage(), 100*h.cutoff)
}

func (h *cpuUsage) Details() string {
	if !h.Failed() {
		return ""
	}
	return eventMessages(h.events)
}

func (h *cpuUsage) Result() Result {
	ev := map[string]any{"CUTOFF": h.cutoff}
	if h.top != nil {
		ev["USAGE"] = h.usage()
		ev["TOP"] = h.top
	}
	return newResult(h, ev)
}

type memoryUsage struct {
	cutoff   float64
	memInfo  item.MemInfo
	procrank item.Procrank
	events   []*item.LogcatEvent
}

// NewMemoryUsage fails when the latest meminfo shows more than cutoff of
// memory in use, or when a logcat reports memory pressure.
func NewMemoryUsage(cutoff float64) Heuristic { return &memoryUsage{cutoff: cutoff} }

func (h *memoryUsage) Type() string { return "MEMORY_USAGE_HEURISTIC" }
func (h *memoryUsage) Name() string { return "Memory usage" }

func (h *memoryUsage) Add(s Sample) error {
	if s.MemInfo != nil {
		h.memInfo = s.MemInfo
	}
	if s.Procrank != nil {
		h.procrank = s.Procrank
	}
	if s.Logcat != nil {
		h.events = append(h.events, s.Logcat.MiscEvents(classifier.HighMemoryUsage)...)
	}
	return nil
}

// usage is (MemTotal - MemFree) / MemTotal, or 0 without a MemTotal.
func (h *memoryUsage) usage() float64 {
	total := h.memInfo["MemTotal"]
	if total == 0 {
		return 0
	}
	return float64(total-h.memInfo["MemFree"]) / float64(total)
}

func (h *memoryUsage) Failed() bool {
	return (h.memInfo != nil && h.usage() > h.cutoff) || len(h.events) > 0
}

func (h *memoryUsage) Summary() string {
	if !h.Failed() {
		return ""
	}
	return fmt.Sprintf("Memory usage at %.0f%% (over %.0f%%)", 100*h.usage(), 100*h.cutoff)
}

func (h *memoryUsage) Details() string {
	if !h.Failed() {
		return ""
	}
	var b strings.Builder
	b.WriteString(eventMessages(h.events))
	if len(h.procrank) == 0 {
		return b.String()
	}

	pids := h.procrank.PIDs()
	sort.SliceStable(pids, func(i, j int) bool {
		return h.procrank[pids[i]].PSS > h.procrank[pids[j]].PSS
	})
	if len(pids) > topProcesses {
		pids = pids[:topProcesses]
	}
	b.WriteString("Largest processes by PSS:\n")
	for _, pid := range pids {
		row := h.procrank[pid]
		fmt.Fprintf(&b, "  %d %s %s\n", pid, row.Name, format.Kilobytes(row.PSS))
	}
	return b.String()
}

func (h *memoryUsage) Result() Result {
	ev := map[string]any{"CUTOFF": h.cutoff}
	if h.memInfo != nil {
		ev["USAGE"] = h.usage()
		ev["MEM_INFO"] = h.memInfo
	}
	return newResult(h, ev)
}

func eventMessages(events []*item.LogcatEvent) string {
	var b strings.Builder
	for _, ev := range events {
		fmt.Fprintf(&b, "%s %s\n", ev.Time.Format("01-02 15:04:05.000"), ev.Message)
	}
	return b.String()
}
