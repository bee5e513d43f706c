// Package tail keeps the most recent lines of a log, both overall and per
// process, so events can carry the context that preceded them.
package tail

import "strings"

// DefaultSize is the number of lines kept when New is given a non-positive size.
const DefaultSize = 15

// Buffer is a bounded tail of recent lines plus one bounded tail per pid.
// It is not safe for concurrent use.
type Buffer struct {
	size int
	last *ring
	byID map[int]*ring
}

// New creates a Buffer keeping size lines in every window.
func New(size int) *Buffer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Buffer{
		size: size,
		last: newRing(size),
		byID: make(map[int]*ring),
	}
}

// Add records a line that has no known pid.
func (b *Buffer) Add(line string) {
	b.last.push(line)
}

// AddID records a line in the global window and in the window for pid.
func (b *Buffer) AddID(pid int, line string) {
	b.last.push(line)
	r, ok := b.byID[pid]
	if !ok {
		r = newRing(b.size)
		b.byID[pid] = r
	}
	r.push(line)
}

// Last returns the global window joined with newlines, oldest first.
func (b *Buffer) Last() string {
	return b.last.join()
}

// For returns the window for pid, or "" if pid was never recorded.
func (b *Buffer) For(pid int) string {
	r, ok := b.byID[pid]
	if !ok {
		return ""
	}
	return r.join()
}

// ring is a fixed-capacity FIFO that overwrites its oldest entry when full.
type ring struct {
	lines []string
	head  int
	n     int
}

func newRing(size int) *ring {
	return &ring{lines: make([]string, size)}
}

func (r *ring) push(line string) {
	idx := (r.head + r.n) % len(r.lines)
	r.lines[idx] = line
	if r.n < len(r.lines) {
		r.n++
		return
	}
	r.head = (r.head + 1) % len(r.lines)
}

func (r *ring) join() string {
	if r.n == 0 {
		return ""
	}
	var sb strings.Builder
	for i := 0; i < r.n; i++ {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(r.lines[(r.head+i)%len(r.lines)])
	}
	return sb.String()
}
