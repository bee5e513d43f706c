// Package logcat correlates logcat lines into ANR, crash and pattern events.
package logcat

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/setevik/droidtriage/internal/classifier"
	"github.com/setevik/droidtriage/internal/item"
	"github.com/setevik/droidtriage/internal/tail"
)

// threadtimeRe matches "logcat -v threadtime" lines:
//
//	04-25 17:17:08.445   312   366 E ActivityManager: ANR in com.example
var threadtimeRe = regexp.MustCompile(
	`^(\d{2}-\d{2} \d{2}:\d{2}:\d{2}.\d{3})\s+(\d+)\s+(\d+)\s+([A-Z])\s+(.+?)\s*: (.*)$`)

// timeRe matches "logcat -v time" lines:
//
//	04-25 17:17:08.445 E/ActivityManager(  312): ANR in com.example
var timeRe = regexp.MustCompile(
	`^(\d{2}-\d{2} \d{2}:\d{2}:\d{2}.\d{3})\s+(\w)/(.+?)\(\s*(\d+)\): (.*)$`)

const timeLayout = "2006-01-02 15:04:05.000"

type line struct {
	time   time.Time
	pid    int
	tid    int
	hasTID bool
	level  string
	tag    string
	msg    string
}

// key identifies the stream a multi-line event is written to.
type key struct {
	pid    int
	tid    int
	hasTID bool
	level  string
	tag    string
}

func (k key) String() string {
	if !k.hasTID {
		return fmt.Sprintf("%d|%s|%s", k.pid, k.level, k.tag)
	}
	return fmt.Sprintf("%d|%d|%s|%s", k.pid, k.tid, k.level, k.tag)
}

type group struct {
	kind            item.Kind
	key             key
	time            time.Time
	category        string
	lines           []string
	lastPreamble    string
	processPreamble string
}

// Option configures a Parser.
type Option func(*Parser)

// WithYear sets the year used to complete logcat timestamps, which carry
// only month and day.
func WithYear(year int) Option {
	return func(p *Parser) { p.year = year }
}

// WithTailSize sets how many preceding lines are kept as event preambles.
func WithTailSize(n int) Option {
	return func(p *Parser) { p.tailSize = n }
}

// WithClassifier replaces the built-in one-line event patterns.
func WithClassifier(c *classifier.Classifier) Option {
	return func(p *Parser) { p.classifier = c }
}

// WithLogger enables debug logging of dropped lines.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) { p.logger = l }
}

// Parser accumulates logcat lines and builds a Logcat record on Commit.
// A Parser handles one capture and is not safe for concurrent use.
type Parser struct {
	year       int
	tailSize   int
	classifier *classifier.Classifier
	logger     *slog.Logger

	tail   *tail.Buffer
	groups []*group
	open   map[key]*group

	start, stop time.Time
}

// New creates a Parser. The year defaults to the current year.
func New(opts ...Option) *Parser {
	p := &Parser{open: make(map[key]*group)}
	for _, o := range opts {
		o(p)
	}
	if p.year == 0 {
		p.year = time.Now().Year()
	}
	if p.classifier == nil {
		p.classifier = classifier.Logcat()
	}
	p.tail = tail.New(p.tailSize)
	return p
}

// Parse runs a fresh Parser over lines and returns the committed record.
func Parse(lines []string, opts ...Option) *item.Logcat {
	p := New(opts...)
	for _, l := range lines {
		p.ParseLine(l)
	}
	return p.Commit()
}

// ParseLine feeds one raw logcat line.
func (p *Parser) ParseLine(raw string) {
	ln, ok := p.split(raw)
	if !ok {
		if p.logger != nil {
			p.logger.Debug("unparsed logcat line", "line", raw)
		}
		p.tail.Add(raw)
		return
	}

	if !ln.time.IsZero() {
		if p.start.IsZero() || ln.time.Before(p.start) {
			p.start = ln.time
		}
		if ln.time.After(p.stop) {
			p.stop = ln.time
		}
	}

	k := key{pid: ln.pid, tid: ln.tid, hasTID: ln.hasTID, level: ln.level, tag: ln.tag}

	switch kind := kindOf(ln.level, ln.tag); kind {
	case item.KindANR:
		g, ok := p.open[k]
		if !ok || anrStartRe.MatchString(ln.msg) {
			g = p.newGroup(kind, k, ln.time)
			p.open[k] = g
		}
		g.lines = append(g.lines, ln.msg)
	case item.KindJavaCrash, item.KindNativeCrash:
		g, ok := p.open[k]
		if !ok {
			g = p.newGroup(kind, k, ln.time)
			p.open[k] = g
		}
		g.lines = append(g.lines, ln.msg)
	}

	if cat, ok := p.classifier.Classify(ln.msg); ok {
		g := p.newGroup(item.KindMisc, k, ln.time)
		g.category = cat
		g.lines = append(g.lines, ln.msg)
	}

	p.tail.AddID(ln.pid, raw)
}

// Commit builds the Logcat record. Events appear in the order their groups
// were opened.
func (p *Parser) Commit() *item.Logcat {
	out := &item.Logcat{Start: p.start, Stop: p.stop}
	for _, g := range p.groups {
		var ev *item.LogcatEvent
		switch g.kind {
		case item.KindANR:
			ev = ParseANR(g.lines)
		case item.KindJavaCrash:
			ev = ParseJavaCrash(g.lines)
		case item.KindNativeCrash:
			ev = ParseNativeCrash(g.lines)
		default:
			msg := strings.Join(g.lines, "\n")
			ev = &item.LogcatEvent{
				Kind:     item.KindMisc,
				Category: g.category,
				Message:  msg,
				Stack:    msg,
			}
		}
		ev.Time = g.time
		ev.PID = g.key.pid
		ev.TID = g.key.tid
		ev.LastPreamble = g.lastPreamble
		ev.ProcessPreamble = g.processPreamble
		out.Events = append(out.Events, ev)
	}
	return out
}

func (p *Parser) newGroup(kind item.Kind, k key, ts time.Time) *group {
	g := &group{
		kind:            kind,
		key:             k,
		time:            ts,
		lastPreamble:    p.tail.Last(),
		processPreamble: p.tail.For(k.pid),
	}
	p.groups = append(p.groups, g)
	if p.logger != nil {
		p.logger.Debug("logcat event opened", "kind", kind, "key", k.String())
	}
	return g
}

func (p *Parser) split(raw string) (line, bool) {
	if m := threadtimeRe.FindStringSubmatch(raw); m != nil {
		pid, _ := strconv.Atoi(m[2])
		tid, _ := strconv.Atoi(m[3])
		return line{
			time:   p.parseTime(m[1]),
			pid:    pid,
			tid:    tid,
			hasTID: true,
			level:  m[4],
			tag:    m[5],
			msg:    m[6],
		}, true
	}
	if m := timeRe.FindStringSubmatch(raw); m != nil {
		pid, _ := strconv.Atoi(m[4])
		return line{
			time:  p.parseTime(m[1]),
			pid:   pid,
			level: m[2],
			tag:   m[3],
			msg:   m[5],
		}, true
	}
	return line{}, false
}

// parseTime returns the zero time when the stamp is not a valid date, such
// as 02-29 in a year that is not a leap year.
func (p *Parser) parseTime(stamp string) time.Time {
	t, err := time.Parse(timeLayout, fmt.Sprintf("%04d-%s", p.year, stamp))
	if err != nil {
		if p.logger != nil {
			p.logger.Debug("invalid logcat timestamp", "stamp", stamp, "year", p.year, "error", err)
		}
		return time.Time{}
	}
	return t
}

func kindOf(level, tag string) item.Kind {
	switch {
	case level == "E" && tag == "ActivityManager":
		return item.KindANR
	case level == "E" && tag == "AndroidRuntime":
		return item.KindJavaCrash
	case level == "I" && tag == "DEBUG":
		return item.KindNativeCrash
	default:
		return ""
	}
}

// Matches reports whether line is in a logcat format the Parser understands.
func Matches(line string) bool {
	return threadtimeRe.MatchString(line) || timeRe.MatchString(line)
}
