// Package bugreport parses the composite dumpstate bugreport and its dumpsys
// section by routing each section to the matching sub-parser.
package bugreport

import (
	"regexp"
	"time"

	"github.com/setevik/droidtriage/internal/item"
	"github.com/setevik/droidtriage/internal/kernel"
	"github.com/setevik/droidtriage/internal/logcat"
	"github.com/setevik/droidtriage/internal/router"
	"github.com/setevik/droidtriage/internal/subparse"
)

// Section headers, tried in this order.
const (
	memInfoSection   = `------ MEMORY INFO .*`
	procrankSection  = `------ PROCRANK .*`
	topSection       = `------ CPU INFO .*`
	propsSection     = `------ SYSTEM PROPERTIES .*`
	tracesSection    = `------ VM TRACES AT LAST ANR .*`
	systemLogSection = `------ (?:SYSTEM|MAIN|MAIN AND SYSTEM) LOG .*`
	kernelLogSection = `------ KERNEL LOG .*`
	lastKmsgSection  = `------ LAST KMSG .*`
	dumpsysSection   = `------ DUMPSYS .*`
	otherSection     = `------ .*`
)

var dateRe = regexp.MustCompile(`^== dumpstate: (\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2})$`)

// Parser parses bugreports.
type Parser struct {
	tailSize int
}

// New creates a Parser whose logcat and kernel log sections keep tailSize
// lines of event preamble.
func New(tailSize int) *Parser {
	return &Parser{tailSize: tailSize}
}

// Parse parses a whole bugreport. It returns nil if lines contain no section
// header, in which case the input is not a bugreport.
func (p *Parser) Parse(lines []string) *item.Bugreport {
	r := router.New()

	header := router.Initial(r, parseHeader)
	mem := router.Add(r, memInfoSection, subparse.ParseMemInfo)
	procrank := router.Add(r, procrankSection, subparse.ParseProcrank)
	top := router.Add(r, topSection, subparse.ParseTop)
	props := router.Add(r, propsSection, subparse.ParseSystemProps)
	traces := router.Add(r, tracesSection, subparse.ParseTraces)

	// The bugreport header carries the only year in the capture; logcat
	// timestamps are completed with it when the log section is parsed.
	var br *item.Bugreport
	year := 0
	r.OnSwitch(func() {
		if br != nil {
			return
		}
		br, _ = header.Result()
		if !br.Time.IsZero() {
			year = br.Time.Year()
		}
	})

	sysLog := router.Add(r, systemLogSection, func(lines []string) *item.Logcat {
		return logcat.Parse(lines, logcat.WithYear(year), logcat.WithTailSize(p.tailSize))
	})
	kernLog := router.Add(r, kernelLogSection, p.parseKernel)
	lastKmsg := router.Add(r, lastKmsgSection, p.parseKernel)
	dumpsys := router.Add(r, dumpsysSection, ParseDumpsys)
	router.Add(r, otherSection, router.Discard)

	for _, l := range lines {
		r.Feed(l)
	}
	r.Commit()

	if br == nil {
		return nil
	}

	br.MemInfo, _ = mem.Result()
	br.Procrank, _ = procrank.Result()
	br.Top, _ = top.Result()
	br.SystemProps, _ = props.Result()
	br.SystemLog, _ = sysLog.Result()
	br.KernelLog, _ = kernLog.Result()
	br.LastKmsg, _ = lastKmsg.Result()
	br.Traces, _ = traces.Result()
	br.Dumpsys, _ = dumpsys.Result()

	if br.SystemLog != nil && br.Procrank != nil {
		fillApps(br.SystemLog, br.Procrank)
	}
	if br.SystemLog != nil && br.Traces != nil && br.Traces.App != "" && br.Traces.Stack != "" {
		attachTrace(br.SystemLog.ANRs(), br.Traces)
	}
	return br
}

func (p *Parser) parseKernel(lines []string) *item.KernelLog {
	kp := kernel.New(p.tailSize)
	for _, l := range lines {
		kp.ParseLine(l)
	}
	return kp.Commit()
}

func parseHeader(lines []string) *item.Bugreport {
	br := &item.Bugreport{}
	for _, l := range lines {
		if m := dateRe.FindStringSubmatch(l); m != nil {
			if t, err := time.Parse("2006-01-02 15:04:05", m[1]); err == nil {
				br.Time = t
			}
		}
	}
	return br
}

// fillApps names the process of every event that did not name one itself.
func fillApps(l *item.Logcat, procrank item.Procrank) {
	for _, ev := range l.Events {
		if ev.App != "" {
			continue
		}
		if name, ok := procrank.Name(ev.PID); ok {
			ev.App = name
		}
	}
}

// attachTrace gives the VM traces to the most recent ANR of the same app.
func attachTrace(anrs []*item.LogcatEvent, tr *item.Traces) {
	for i := len(anrs) - 1; i >= 0; i-- {
		if anrs[i].App == tr.App {
			anrs[i].Anr.Trace = tr.Stack
			return
		}
	}
}
