package heuristic

import (
	"fmt"
	"strings"

	"github.com/setevik/droidtriage/internal/classifier"
	"github.com/setevik/droidtriage/internal/item"
)

// logcatEvents fails when any sample's logcat holds an event of its kind.
type logcatEvents struct {
	typ, name string
	key       string
	noun      string
	suffix    string
	pick      func(*item.Logcat) []*item.LogcatEvent
	detail    func(*strings.Builder, *item.LogcatEvent)

	events []*item.LogcatEvent
}

// NewANR fails on any "application not responding" report.
func NewANR() Heuristic {
	return &logcatEvents{
		typ: "ANR_HEURISTIC", name: "ANR", key: "ANRS",
		noun: "ANR", suffix: "s",
		pick: (*item.Logcat).ANRs,
		detail: func(b *strings.Builder, ev *item.LogcatEvent) {
			b.WriteString(ev.Stack)
			b.WriteString("\n\nLast lines of logcat\n")
			b.WriteString(ev.LastPreamble)
			fmt.Fprintf(b, "\n\nLast lines of logcat for PID %d\n", ev.PID)
			b.WriteString(ev.ProcessPreamble)
			b.WriteString("\n\n")
		},
	}
}

// NewJavaCrash fails on any uncaught Java exception.
func NewJavaCrash() Heuristic {
	return &logcatEvents{
		typ: "JAVA_CRASH_HEURISTIC", name: "Java crash", key: "JAVA_CRASHES",
		noun: "Java crash", suffix: "es",
		pick:   (*item.Logcat).JavaCrashes,
		detail: stackOnly,
	}
}

// NewNativeCrash fails on any native tombstone.
func NewNativeCrash() Heuristic {
	return &logcatEvents{
		typ: "NATIVE_CRASH_HEURISTIC", name: "Native crash", key: "NATIVE_CRASHES",
		noun: "native crash", suffix: "es",
		pick:   (*item.Logcat).NativeCrashes,
		detail: stackOnly,
	}
}

func stackOnly(b *strings.Builder, ev *item.LogcatEvent) {
	b.WriteString(ev.Stack)
	b.WriteString("\n\n")
}

func (h *logcatEvents) Type() string { return h.typ }
func (h *logcatEvents) Name() string { return h.name }

func (h *logcatEvents) Add(s Sample) error {
	if s.Logcat != nil {
		h.events = append(h.events, h.pick(s.Logcat)...)
	}
	return nil
}

func (h *logcatEvents) Failed() bool { return len(h.events) > 0 }

func (h *logcatEvents) Summary() string {
	if !h.Failed() {
		return ""
	}
	n := len(h.events)
	return fmt.Sprintf("Found %d %s%s", n, h.noun, plural(n, h.suffix))
}

func (h *logcatEvents) Details() string {
	if !h.Failed() {
		return ""
	}
	var b strings.Builder
	for _, ev := range h.events {
		h.detail(&b, ev)
	}
	return b.String()
}

func (h *logcatEvents) Result() Result {
	events := h.events
	if events == nil {
		events = []*item.LogcatEvent{}
	}
	return newResult(h, map[string]any{h.key: events})
}

// kernelReset fails when a kernel log shows the device reset.
type kernelReset struct {
	events []*item.KernelEvent
}

// NewKernelReset fails on any kernel panic, watchdog bite or similar reset.
func NewKernelReset() Heuristic { return &kernelReset{} }

func (h *kernelReset) Type() string { return "KERNEL_RESET_HEURISTIC" }
func (h *kernelReset) Name() string { return "Kernel reset" }

func (h *kernelReset) Add(s Sample) error {
	if s.KernelLog != nil {
		h.events = append(h.events, s.KernelLog.MiscEvents(classifier.KernelReset)...)
	}
	return nil
}

func (h *kernelReset) Failed() bool { return len(h.events) > 0 }

func (h *kernelReset) Summary() string {
	if !h.Failed() {
		return ""
	}
	return "Found a kernel reset"
}

func (h *kernelReset) Details() string {
	if !h.Failed() {
		return ""
	}
	var b strings.Builder
	for _, ev := range h.events {
		var t float64
		if ev.Time != nil {
			t = *ev.Time
		}
		fmt.Fprintf(&b, "Reason: %s, Time: %.6f\nPreamble:\n%s\n\n", ev.Message, t, ev.Preamble)
	}
	return b.String()
}

func (h *kernelReset) Result() Result {
	events := h.events
	if events == nil {
		events = []*item.KernelEvent{}
	}
	return newResult(h, map[string]any{"KERNEL_RESETS": events})
}
