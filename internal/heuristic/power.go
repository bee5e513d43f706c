package heuristic

import (
	"fmt"
	"strings"
	"time"

	"github.com/setevik/droidtriage/internal/format"
	"github.com/setevik/droidtriage/internal/item"
)

type powerUsage struct {
	cutoff  time.Duration
	battery *item.BatteryInfo
}

// NewPowerUsage fails when a wake lock was held longer than cutoff since the
// device was last unplugged.
func NewPowerUsage(cutoff time.Duration) Heuristic { return &powerUsage{cutoff: cutoff} }

func (h *powerUsage) Type() string { return "POWER_USAGE_HEURISTIC" }
func (h *powerUsage) Name() string { return "Power usage" }

func (h *powerUsage) Add(s Sample) error {
	if s.Dumpsys != nil && s.Dumpsys.BatteryInfo != nil {
		h.battery = s.Dumpsys.BatteryInfo
	}
	return nil
}

func (h *powerUsage) overCutoff(c item.WakeLockCategory) []item.WakeLock {
	if h.battery == nil {
		return nil
	}
	var out []item.WakeLock
	for _, wl := range h.battery.ByCategory(c) {
		if wl.HeldTime > h.cutoff.Milliseconds() {
			out = append(out, wl)
		}
	}
	return out
}

func (h *powerUsage) Failed() bool {
	return len(h.overCutoff(item.LastUnpluggedWakeLock)) > 0 ||
		len(h.overCutoff(item.LastUnpluggedKernelLock)) > 0
}

func (h *powerUsage) Summary() string {
	if !h.Failed() {
		return ""
	}
	cutoff := format.Millis(h.cutoff.Milliseconds())
	var parts []string
	if n := len(h.overCutoff(item.LastUnpluggedWakeLock)); n > 0 {
		parts = append(parts, fmt.Sprintf("%d wake lock%s held longer than %s", n, plural(n, "s"), cutoff))
	}
	if n := len(h.overCutoff(item.LastUnpluggedKernelLock)); n > 0 {
		parts = append(parts, fmt.Sprintf("%d kernel wake lock%s held longer than %s", n, plural(n, "s"), cutoff))
	}
	return strings.Join(parts, ", ")
}

func (h *powerUsage) Details() string {
	if !h.Failed() {
		return ""
	}
	var b strings.Builder
	for _, wl := range h.overCutoff(item.LastUnpluggedWakeLock) {
		number := ""
		if wl.Number != nil {
			number = fmt.Sprintf(" #%d", *wl.Number)
		}
		fmt.Fprintf(&b, "Wake lock %q%s held for %s (%d times)\n",
			wl.Name, number, format.Millis(wl.HeldTime), wl.LockedCount)
	}
	for _, wl := range h.overCutoff(item.LastUnpluggedKernelLock) {
		fmt.Fprintf(&b, "Kernel wake lock %q held for %s (%d times)\n",
			wl.Name, format.Millis(wl.HeldTime), wl.LockedCount)
	}
	return b.String()
}

func (h *powerUsage) Result() Result {
	ev := map[string]any{"CUTOFF": h.cutoff.Milliseconds()}
	if h.battery != nil {
		ev["WAKE_LOCKS"] = nonNil(h.battery.ByCategory(item.LastUnpluggedWakeLock))
		ev["KERNEL_WAKE_LOCKS"] = nonNil(h.battery.ByCategory(item.LastUnpluggedKernelLock))
	}
	return newResult(h, ev)
}

func nonNil(wls []item.WakeLock) []item.WakeLock {
	if wls == nil {
		return []item.WakeLock{}
	}
	return wls
}
