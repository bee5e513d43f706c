// Package subparse holds the single-pass parsers for the flat sections of a
// bugreport: meminfo, procrank, top, system properties, VM traces and
// battery statistics.
package subparse

import (
	"regexp"
	"strconv"

	"github.com/setevik/droidtriage/internal/item"
)

var memInfoRe = regexp.MustCompile(`^([\w()]+):\s+(\d+) kB$`)

// ParseMemInfo parses /proc/meminfo lines such as "MemTotal:  353332 kB".
func ParseMemInfo(lines []string) item.MemInfo {
	info := make(item.MemInfo)
	for _, l := range lines {
		m := memInfoRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		v, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			continue
		}
		info[m[1]] = v
	}
	return info
}

// procrankRe matches a procrank row. Newer procrank builds add swap columns
// after Uss, which are skipped.
var procrankRe = regexp.MustCompile(
	`^\s*(\d+)\s+(\d+)K\s+(\d+)K\s+(\d+)K\s+(\d+)K(?:\s+\d+K)*\s+(\S.*)$`)

// ParseProcrank parses procrank output. The header and totals lines are
// skipped.
func ParseProcrank(lines []string) item.Procrank {
	p := make(item.Procrank)
	for _, l := range lines {
		m := procrankRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		pid, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		p[pid] = item.ProcrankRow{
			Name: m[6],
			VSS:  atoi64(m[2]),
			RSS:  atoi64(m[3]),
			PSS:  atoi64(m[4]),
			USS:  atoi64(m[5]),
		}
	}
	return p
}

var topTicksRe = regexp.MustCompile(
	`^User (\d+) \+ Nice (\d+) \+ Sys (\d+) \+ Idle (\d+) \+ IOW (\d+) \+ IRQ (\d+) \+ SIRQ (\d+) = (\d+)$`)

// ParseTop returns the first tick summary line of top output, or nil if
// there is none.
func ParseTop(lines []string) *item.Top {
	for _, l := range lines {
		m := topTicksRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		return &item.Top{
			User:   atoi(m[1]),
			Nice:   atoi(m[2]),
			System: atoi(m[3]),
			Idle:   atoi(m[4]),
			IOW:    atoi(m[5]),
			IRQ:    atoi(m[6]),
			SIRQ:   atoi(m[7]),
			Total:  atoi(m[8]),
		}
	}
	return nil
}

var propRe = regexp.MustCompile(`^\[(.*)\]: \[(.*)\]$`)

// ParseSystemProps parses getprop output lines such as "[ro.build.id]: [IMM76D]".
func ParseSystemProps(lines []string) item.SystemProps {
	props := make(item.SystemProps)
	for _, l := range lines {
		if m := propRe.FindStringSubmatch(l); m != nil {
			props[m[1]] = m[2]
		}
	}
	return props
}

var compactProcRe = regexp.MustCompile(`^proc,(.+),(.+),(\d+),(\d+),(.?)$`)

// ParseCompactMemInfo parses the "proc," rows of dumpsys meminfo -c.
func ParseCompactMemInfo(lines []string) item.CompactMemInfo {
	info := make(item.CompactMemInfo)
	for _, l := range lines {
		m := compactProcRe.FindStringSubmatch(l)
		if m == nil {
			continue
		}
		pid, err := strconv.Atoi(m[3])
		if err != nil {
			continue
		}
		info[pid] = item.CompactProcess{
			Type:       m[1],
			Name:       m[2],
			PSS:        atoi64(m[4]),
			Activities: m[5] == "a",
		}
	}
	return info
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoi64(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}
