// Package lifecycle reconstructs process lifetimes from a series of process
// listings taken at different times.
package lifecycle

import (
	"fmt"
	"time"
)

// Interval is a closed time range with Start <= Stop.
type Interval struct {
	Start time.Time
	Stop  time.Time
}

// Point returns the zero-length interval at t.
func Point(t time.Time) Interval {
	return Interval{Start: t, Stop: t}
}

// Widen extends the interval to include t. It never shrinks.
func (i *Interval) Widen(t time.Time) {
	if t.Before(i.Start) {
		i.Start = t
	}
	if t.After(i.Stop) {
		i.Stop = t
	}
}

// Contains reports whether o lies entirely within i.
func (i Interval) Contains(o Interval) bool {
	return !o.Start.Before(i.Start) && !o.Stop.After(i.Stop)
}

// Duration returns Stop - Start.
func (i Interval) Duration() time.Duration {
	return i.Stop.Sub(i.Start)
}

func (i Interval) String() string {
	return fmt.Sprintf("[%s, %s]", i.Start.Format(time.RFC3339), i.Stop.Format(time.RFC3339))
}

// Merge folds intervals into a sorted list in which no two intervals overlap
// or touch. The input is not modified.
func Merge(intervals []Interval) []Interval {
	var out []Interval
	for _, iv := range intervals {
		out = MergeInto(out, iv)
	}
	return out
}

// MergeInto adds iv to a list already in Merge form and returns the new list.
// Every interval that overlaps or touches iv is absorbed into it. The input
// slice is not modified.
func MergeInto(merged []Interval, iv Interval) []Interval {
	// First interval that ends at or after iv starts.
	i := 0
	for i < len(merged) && merged[i].Stop.Before(iv.Start) {
		i++
	}
	// Absorb every interval that starts at or before iv ends.
	j := i
	for j < len(merged) && !merged[j].Start.After(iv.Stop) {
		if merged[j].Start.Before(iv.Start) {
			iv.Start = merged[j].Start
		}
		if merged[j].Stop.After(iv.Stop) {
			iv.Stop = merged[j].Stop
		}
		j++
	}

	out := make([]Interval, 0, len(merged)-(j-i)+1)
	out = append(out, merged[:i]...)
	out = append(out, iv)
	out = append(out, merged[j:]...)
	return out
}
