package item

import "sort"

// MemInfo maps /proc/meminfo keys to their value in kB.
type MemInfo map[string]int64

// Procrank maps pid to one row of procrank output.
type Procrank map[int]ProcrankRow

// ProcrankRow is one process in a procrank listing. Sizes are in kB.
type ProcrankRow struct {
	Name string `json:"NAME"`
	VSS  int64  `json:"VSS"`
	RSS  int64  `json:"RSS"`
	PSS  int64  `json:"PSS"`
	USS  int64  `json:"USS"`
}

// PIDs returns the pids in ascending order.
func (p Procrank) PIDs() []int {
	pids := make([]int, 0, len(p))
	for pid := range p {
		pids = append(pids, pid)
	}
	sort.Ints(pids)
	return pids
}

// Name returns the process name for pid.
func (p Procrank) Name(pid int) (string, bool) {
	row, ok := p[pid]
	return row.Name, ok
}

// PIDOf returns the lowest pid running the named process.
func (p Procrank) PIDOf(name string) (int, bool) {
	for _, pid := range p.PIDs() {
		if p[pid].Name == name {
			return pid, true
		}
	}
	return 0, false
}

// Names returns the pid to process name mapping.
func (p Procrank) Names() map[int]string {
	m := make(map[int]string, len(p))
	for pid, row := range p {
		m[pid] = row.Name
	}
	return m
}

// Top holds the CPU tick counters of one top sample.
type Top struct {
	User   int `json:"USER"`
	Nice   int `json:"NICE"`
	System int `json:"SYSTEM"`
	Idle   int `json:"IDLE"`
	IOW    int `json:"IOW"`
	IRQ    int `json:"IRQ"`
	SIRQ   int `json:"SIRQ"`
	Total  int `json:"TOTAL"`
}

// Usage returns the busy fraction of the sample, or 0 with no ticks.
func (t *Top) Usage() float64 {
	if t.Total == 0 {
		return 0
	}
	return float64(t.Total-t.Idle) / float64(t.Total)
}

// SystemProps maps system property names to values.
type SystemProps map[string]string

// Traces is the main-thread stack dumped at the last ANR.
type Traces struct {
	PID   int    `json:"PID"`
	App   string `json:"APP"`
	Stack string `json:"STACK"`
}

// CompactMemInfo maps pid to one process of compact meminfo output.
type CompactMemInfo map[int]CompactProcess

// CompactProcess is one "proc," row of dumpsys meminfo -c.
type CompactProcess struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	PSS        int64  `json:"pss"`
	Activities bool   `json:"activities"`
}
