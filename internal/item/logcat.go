// Package item defines the structured records produced by the parsers.
package item

import "time"

// Kind identifies the type of a logcat event.
type Kind string

const (
	KindANR         Kind = "ANR"
	KindJavaCrash   Kind = "JAVA_CRASH"
	KindNativeCrash Kind = "NATIVE_CRASH"
	KindMisc        Kind = "MISC"
)

// Label returns a human-readable label for the kind.
func (k Kind) Label() string {
	switch k {
	case KindANR:
		return "ANR"
	case KindJavaCrash:
		return "Java crash"
	case KindNativeCrash:
		return "Native crash"
	case KindMisc:
		return "Event"
	default:
		return string(k)
	}
}

// LogcatEvent is one correlated event from a logcat capture. Exactly one of
// Anr, JavaCrash and NativeCrash is set for the matching kinds; Category and
// Message are set for KindMisc.
type LogcatEvent struct {
	Kind            Kind      `json:"TYPE"`
	Time            time.Time `json:"EVENT_TIME"`
	PID             int       `json:"PID"`
	TID             int       `json:"TID,omitempty"`
	App             string    `json:"APP,omitempty"`
	Category        string    `json:"CATEGORY,omitempty"`
	Message         string    `json:"MESSAGE,omitempty"`
	Stack           string    `json:"STACK"`
	LastPreamble    string    `json:"LAST_PREAMBLE"`
	ProcessPreamble string    `json:"PROCESS_PREAMBLE"`

	Anr         *Anr         `json:"ANR,omitempty"`
	JavaCrash   *JavaCrash   `json:"JAVA_CRASH,omitempty"`
	NativeCrash *NativeCrash `json:"NATIVE_CRASH,omitempty"`
}

// Anr holds the fields of an "application not responding" report. PID is
// the pid of the app that stopped responding.
type Anr struct {
	PID    int                `json:"PID,omitempty"`
	Reason string             `json:"REASON,omitempty"`
	Load1  float64            `json:"LOAD_1,omitempty"`
	Load5  float64            `json:"LOAD_5,omitempty"`
	Load15 float64            `json:"LOAD_15,omitempty"`
	CPU    map[string]float64 `json:"CPU,omitempty"`
	Trace  string             `json:"TRACE,omitempty"`
}

// JavaCrash holds the fields of an uncaught Java exception.
type JavaCrash struct {
	Exception string `json:"EXCEPTION,omitempty"`
	Message   string `json:"MESSAGE,omitempty"`
}

// NativeCrash holds the fields of a native tombstone.
type NativeCrash struct {
	PID         int    `json:"PID,omitempty"`
	TID         int    `json:"TID,omitempty"`
	Fingerprint string `json:"FINGERPRINT,omitempty"`
}

// Logcat is the result of parsing one logcat capture.
type Logcat struct {
	Start  time.Time      `json:"START_TIME,omitempty"`
	Stop   time.Time      `json:"STOP_TIME,omitempty"`
	Events []*LogcatEvent `json:"EVENTS"`
}

func (l *Logcat) byKind(k Kind) []*LogcatEvent {
	var out []*LogcatEvent
	for _, ev := range l.Events {
		if ev.Kind == k {
			out = append(out, ev)
		}
	}
	return out
}

// ANRs returns the ANR events in commit order.
func (l *Logcat) ANRs() []*LogcatEvent { return l.byKind(KindANR) }

// JavaCrashes returns the Java crash events in commit order.
func (l *Logcat) JavaCrashes() []*LogcatEvent { return l.byKind(KindJavaCrash) }

// NativeCrashes returns the native crash events in commit order.
func (l *Logcat) NativeCrashes() []*LogcatEvent { return l.byKind(KindNativeCrash) }

// MiscEvents returns the pattern-matched events of the given category.
func (l *Logcat) MiscEvents(category string) []*LogcatEvent {
	var out []*LogcatEvent
	for _, ev := range l.Events {
		if ev.Kind == KindMisc && ev.Category == category {
			out = append(out, ev)
		}
	}
	return out
}
