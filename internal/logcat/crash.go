package logcat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/setevik/droidtriage/internal/item"
)

var (
	fatalRe     = regexp.MustCompile(`^(?:\*\*\* )?FATAL EXCEPTION.*$`)
	processRe   = regexp.MustCompile(`^Process: (\S+), PID: (\d+)$`)
	exceptionRe = regexp.MustCompile(`^([\w$]+(?:\.[\w$]+)+)(?:: (.*))?$`)
)

// ParseJavaCrash builds a Java crash event from AndroidRuntime lines. The
// stack starts at the exception line.
func ParseJavaCrash(lines []string) *item.LogcatEvent {
	crash := &item.JavaCrash{}
	ev := &item.LogcatEvent{Kind: item.KindJavaCrash, JavaCrash: crash}

	for i, l := range lines {
		if fatalRe.MatchString(l) {
			continue
		}
		if m := processRe.FindStringSubmatch(l); m != nil {
			ev.App = m[1]
			continue
		}
		if m := exceptionRe.FindStringSubmatch(l); m != nil {
			crash.Exception = m[1]
			crash.Message = m[2]
			ev.Stack = strings.Join(lines[i:], "\n")
			break
		}
	}
	if ev.Stack == "" {
		ev.Stack = strings.Join(lines, "\n")
	}
	return ev
}

var (
	fingerprintRe = regexp.MustCompile(`^Build fingerprint: '(.*)'$`)
	nativePIDRe   = regexp.MustCompile(`^pid: (\d+), tid: (\d+)(?:, name: .+?)?\s+>>> (.+) <<<$`)
)

// ParseNativeCrash builds a native crash event from debuggerd's DEBUG lines.
func ParseNativeCrash(lines []string) *item.LogcatEvent {
	crash := &item.NativeCrash{}
	ev := &item.LogcatEvent{
		Kind:        item.KindNativeCrash,
		Stack:       strings.Join(lines, "\n"),
		NativeCrash: crash,
	}
	for _, l := range lines {
		if m := fingerprintRe.FindStringSubmatch(l); m != nil {
			crash.Fingerprint = m[1]
			continue
		}
		if m := nativePIDRe.FindStringSubmatch(l); m != nil {
			crash.PID, _ = strconv.Atoi(m[1])
			crash.TID, _ = strconv.Atoi(m[2])
			ev.App = m[3]
		}
	}
	return ev
}
