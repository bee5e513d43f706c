package logcat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/setevik/droidtriage/internal/item"
)

// anrStartRe marks the first line of an ANR report. Every match starts a new
// ANR even when the previous one is still being written on the same stream.
var anrStartRe = regexp.MustCompile(
	`^ANR (?:\(application not responding\) )?in (?:process: )?(\S+).*$`)

var (
	anrPIDRe    = regexp.MustCompile(`^PID: (\d+)$`)
	anrReasonRe = regexp.MustCompile(`^Reason: (.*)$`)
	anrLoadRe   = regexp.MustCompile(`^Load: (\d+\.\d+) / (\d+\.\d+) / (\d+\.\d+)$`)
	anrTotalRe  = regexp.MustCompile(
		`^\s*(\d+(?:\.\d+)?)% TOTAL: (\d+(?:\.\d+)?)% user \+ (\d+(?:\.\d+)?)% kernel(?: \+ (\d+(?:\.\d+)?)% iowait)?.*$`)
)

// ParseANR builds an ANR event from the message lines of one ActivityManager
// report. The event's time, pid and preambles are set by the caller.
func ParseANR(lines []string) *item.LogcatEvent {
	anr := &item.Anr{}
	ev := &item.LogcatEvent{
		Kind:  item.KindANR,
		Stack: strings.Join(lines, "\n"),
		Anr:   anr,
	}

	for _, l := range lines {
		if m := anrStartRe.FindStringSubmatch(l); m != nil {
			ev.App = m[1]
			continue
		}
		if m := anrPIDRe.FindStringSubmatch(l); m != nil {
			anr.PID, _ = strconv.Atoi(m[1])
			continue
		}
		if m := anrReasonRe.FindStringSubmatch(l); m != nil {
			anr.Reason = m[1]
			continue
		}
		if m := anrLoadRe.FindStringSubmatch(l); m != nil {
			anr.Load1 = atof(m[1])
			anr.Load5 = atof(m[2])
			anr.Load15 = atof(m[3])
			continue
		}
		if m := anrTotalRe.FindStringSubmatch(l); m != nil {
			anr.CPU = map[string]float64{
				"TOTAL":  atof(m[1]),
				"USER":   atof(m[2]),
				"KERNEL": atof(m[3]),
			}
			if m[4] != "" {
				anr.CPU["IOW"] = atof(m[4])
			}
		}
	}
	return ev
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
