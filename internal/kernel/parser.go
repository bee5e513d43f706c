// Package kernel parses kernel logs (dmesg and last_kmsg) into reset and
// SELinux denial events.
package kernel

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/setevik/droidtriage/internal/classifier"
	"github.com/setevik/droidtriage/internal/item"
	"github.com/setevik/droidtriage/internal/tail"
)

// lineRe matches "[    1.234567] msg", optionally prefixed with a "<N>"
// priority as dmesg prints it.
var lineRe = regexp.MustCompile(`^(<\d+>)?\[\s*(\d+.\d{6})\] (.*)$`)

// Parser accumulates kernel log lines. A Parser handles one capture and is
// not safe for concurrent use.
type Parser struct {
	classifier *classifier.Classifier
	tail       *tail.Buffer
	log        *item.KernelLog
	start      *float64
	stop       *float64
}

// New creates a Parser keeping tailSize lines of preamble per event.
func New(tailSize int) *Parser {
	return &Parser{
		classifier: classifier.Kernel(),
		tail:       tail.New(tailSize),
	}
}

// Parse runs a fresh Parser over lines. It returns nil when lines holds
// nothing but blank lines.
func Parse(lines []string) *item.KernelLog {
	p := New(0)
	for _, l := range lines {
		p.ParseLine(l)
	}
	return p.Commit()
}

// ParseLine feeds one raw line. Lines without a timestamp are still
// classified, which catches trailers such as "Last boot reason: ...", but
// they do not advance the clock or enter the preamble.
func (p *Parser) ParseLine(line string) {
	if strings.TrimSpace(line) == "" {
		return
	}
	if p.log == nil {
		p.log = &item.KernelLog{}
	}

	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		p.check(line)
		return
	}

	ts, err := strconv.ParseFloat(m[2], 64)
	if err == nil {
		if p.start == nil {
			p.start = &ts
		}
		p.stop = &ts
	}
	p.check(m[3])
	p.tail.Add(line)
}

// Commit returns the parsed log, or nil if no non-blank line was seen.
func (p *Parser) Commit() *item.KernelLog {
	if p.log == nil {
		return nil
	}
	p.log.Start = p.start
	p.log.Stop = p.stop
	return p.log
}

func (p *Parser) check(msg string) {
	cat, ok := p.classifier.Classify(msg)
	if !ok {
		return
	}
	p.log.Events = append(p.log.Events, &item.KernelEvent{
		Time:     p.stop,
		Category: cat,
		Message:  msg,
		Preamble: p.tail.Last(),
	})
}

// Matches reports whether line is a timestamped kernel log line.
func Matches(line string) bool {
	return lineRe.MatchString(line)
}
