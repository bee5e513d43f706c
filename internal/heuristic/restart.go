package heuristic

import (
	"fmt"
	"strings"

	"github.com/setevik/droidtriage/internal/classifier"
	"github.com/setevik/droidtriage/internal/item"
)

const (
	systemServer  = "system_server"
	bootAnimation = "/system/bin/bootanimation"
)

type runtimeRestart struct {
	maxPID   int
	procrank item.Procrank
	events   []*item.LogcatEvent
}

// NewRuntimeRestart fails when the framework restarted. That shows either as
// a logged restart or as system_server or bootanimation running with a pid
// above maxPID, which they only get when started again after boot.
func NewRuntimeRestart(maxPID int) Heuristic { return &runtimeRestart{maxPID: maxPID} }

func (h *runtimeRestart) Type() string { return "RUNTIME_RESTART_HEURISTIC" }
func (h *runtimeRestart) Name() string { return "Runtime restart" }

func (h *runtimeRestart) Add(s Sample) error {
	if s.Procrank != nil {
		h.procrank = s.Procrank
	}
	if s.Logcat != nil {
		h.events = append(h.events, s.Logcat.MiscEvents(classifier.RuntimeRestart)...)
	}
	return nil
}

// procrankFindings lists what is wrong with the latest procrank. An empty
// procrank tells nothing.
func (h *runtimeRestart) procrankFindings() []string {
	if len(h.procrank) == 0 {
		return nil
	}
	var out []string
	ss, ok := h.procrank.PIDOf(systemServer)
	if !ok {
		out = append(out, fmt.Sprintf("%s is absent from the procrank", systemServer))
	} else if ss > h.maxPID {
		out = append(out, fmt.Sprintf("%s is present in the procrank with a PID greater than %d", systemServer, h.maxPID))
	}
	if ba, ok := h.procrank.PIDOf(bootAnimation); ok && ba > h.maxPID {
		out = append(out, fmt.Sprintf("%s is present in the procrank with a PID greater than %d", bootAnimation, h.maxPID))
	}
	return out
}

func (h *runtimeRestart) Failed() bool {
	return len(h.events) > 0 || len(h.procrankFindings()) > 0
}

func (h *runtimeRestart) Summary() string {
	if !h.Failed() {
		return ""
	}
	return "Found a runtime restart"
}

func (h *runtimeRestart) Details() string {
	if !h.Failed() {
		return ""
	}
	var b strings.Builder
	for _, ev := range h.events {
		fmt.Fprintf(&b, "Message: %s, Time: %s\n\nLast lines of logcat:\n%s\n\nProcess lines for pid %d:\n%s\n\n",
			ev.Message, ev.Time.Format("2006-01-02 15:04:05.000"), ev.LastPreamble, ev.PID, ev.ProcessPreamble)
	}
	if len(h.procrank) == 0 {
		return b.String()
	}
	ss, ok := h.procrank.PIDOf(systemServer)
	switch {
	case !ok:
		b.WriteString("Suspected runtime restart detected because system_server is missing from procrank\n")
	case ss > h.maxPID:
		fmt.Fprintf(&b, "Suspected runtime restart detected because system_server has a PID of %d (greater than %d)\n", ss, h.maxPID)
	}
	if ba, ok := h.procrank.PIDOf(bootAnimation); ok && ba > h.maxPID {
		fmt.Fprintf(&b, "Suspected runtime restart detected because %s is present in procrank with a PID of %d (greater than %d)\n",
			bootAnimation, ba, h.maxPID)
	}
	return b.String()
}

func (h *runtimeRestart) Result() Result {
	ev := map[string]any{}
	if h.events != nil {
		ev["RUNTIME_RESTARTS"] = h.events
	}
	if h.procrank != nil {
		findings := h.procrankFindings()
		if findings == nil {
			findings = []string{}
		}
		ev["PROCRANK"] = h.procrank
		ev["PROCRANK_SUMMARY"] = findings
	}
	return newResult(h, ev)
}
