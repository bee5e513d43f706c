package subparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/setevik/droidtriage/internal/item"
)

var (
	tracesPIDRe  = regexp.MustCompile(`^----- pid (\d+) at .* -----$`)
	tracesCmdRe  = regexp.MustCompile(`^Cmd line: (.*)$`)
	tracesMainRe = regexp.MustCompile(`^"main" .*$`)
)

// ParseTraces extracts the main thread stack of the first process in a VM
// traces dump. It returns nil when no process header is found.
func ParseTraces(lines []string) *item.Traces {
	var tr *item.Traces
	var stack []string
	inStack := false

	for _, l := range lines {
		if inStack {
			if strings.TrimSpace(l) == "" {
				break
			}
			stack = append(stack, l)
			continue
		}
		if m := tracesPIDRe.FindStringSubmatch(l); m != nil {
			if tr != nil {
				break
			}
			pid, _ := strconv.Atoi(m[1])
			tr = &item.Traces{PID: pid}
			continue
		}
		if tr == nil {
			continue
		}
		if m := tracesCmdRe.FindStringSubmatch(l); m != nil {
			tr.App = m[1]
			continue
		}
		if tracesMainRe.MatchString(l) {
			inStack = true
			stack = append(stack, l)
		}
	}

	if tr != nil {
		tr.Stack = strings.Join(stack, "\n")
	}
	return tr
}
