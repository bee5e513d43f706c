package item

// KernelEvent is a kernel log line that matched a known category. Time is
// seconds since boot and is nil when no timestamped line preceded the event.
type KernelEvent struct {
	Time     *float64 `json:"EVENT_TIME,omitempty"`
	Category string   `json:"CATEGORY"`
	Message  string   `json:"MESSAGE"`
	Preamble string   `json:"PREAMBLE"`
}

// KernelLog is the result of parsing one kernel log (dmesg or last_kmsg).
type KernelLog struct {
	Start  *float64       `json:"START_TIME,omitempty"`
	Stop   *float64       `json:"STOP_TIME,omitempty"`
	Events []*KernelEvent `json:"EVENTS"`
}

// MiscEvents returns the events of the given category.
func (k *KernelLog) MiscEvents(category string) []*KernelEvent {
	var out []*KernelEvent
	for _, ev := range k.Events {
		if ev.Category == category {
			out = append(out, ev)
		}
	}
	return out
}
