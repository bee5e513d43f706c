package subparse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/setevik/droidtriage/internal/item"
)

const wakeLockSuffix = `((\d+)d )?((\d+)h )?((\d+)m )?((\d+)s )?((\d+)ms )?\((\d+) times\) realtime$`

var (
	lastChargeRe     = regexp.MustCompile(`^Statistics since last charge:$`)
	lastUnpluggedRe  = regexp.MustCompile(`^Statistics since last unplugged:$`)
	partialLocksRe   = regexp.MustCompile(`^  All partial wake locks:$`)
	kernelWakeLockRe = regexp.MustCompile(`^  Kernel Wake lock "([^"]+)": ` + wakeLockSuffix)
	wakeLockRe       = regexp.MustCompile(`^  Wake lock #(\d+) (.+): ` + wakeLockSuffix)
)

// BatteryInfoParser parses the output of dumpsys batteryinfo.
//
// Each statistics block ("since last charge", "since last unplugged") lists
// kernel wake locks directly after its header until a blank line, then the
// partial wake locks after "All partial wake locks:" until the next blank
// line.
type BatteryInfoParser struct {
	info item.BatteryInfo
}

// ParseBatteryInfo runs a fresh BatteryInfoParser over lines.
func ParseBatteryInfo(lines []string) *item.BatteryInfo {
	var p BatteryInfoParser
	return p.Parse(lines)
}

// Parse parses lines and returns the accumulated battery info.
func (p *BatteryInfoParser) Parse(lines []string) *item.BatteryInfo {
	var kernelCat, lockCat item.WakeLockCategory
	inKernel, inPartial := false, false

	for _, l := range lines {
		if kernelCat == "" {
			switch {
			case lastChargeRe.MatchString(l):
				kernelCat, lockCat = item.LastChargeKernelWakeLock, item.LastChargeWakeLock
				inKernel = true
			case lastUnpluggedRe.MatchString(l):
				kernelCat, lockCat = item.LastUnpluggedKernelLock, item.LastUnpluggedWakeLock
				inKernel = true
			}
			continue
		}

		blank := strings.TrimSpace(l) == ""
		switch {
		case inKernel:
			if blank {
				inKernel = false
			} else {
				p.ParseKernelWakeLock(l, kernelCat)
			}
		case inPartial:
			if blank {
				inPartial = false
				kernelCat, lockCat = "", ""
			} else {
				p.ParseWakeLock(l, lockCat)
			}
		case partialLocksRe.MatchString(l):
			inPartial = true
		}
	}
	return &p.info
}

// ParseKernelWakeLock adds one `Kernel Wake lock "name": ...` line.
func (p *BatteryInfoParser) ParseKernelWakeLock(line string, cat item.WakeLockCategory) {
	m := kernelWakeLockRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	p.info.WakeLocks = append(p.info.WakeLocks, item.WakeLock{
		Name:        m[1],
		HeldTime:    Millis(atoi64(m[3]), atoi64(m[5]), atoi64(m[7]), atoi64(m[9]), atoi64(m[11])),
		LockedCount: atoi(m[12]),
		Category:    cat,
	})
}

// ParseWakeLock adds one "Wake lock #N name: ..." line.
func (p *BatteryInfoParser) ParseWakeLock(line string, cat item.WakeLockCategory) {
	m := wakeLockRe.FindStringSubmatch(line)
	if m == nil {
		return
	}
	num, err := strconv.Atoi(m[1])
	if err != nil {
		return
	}
	p.info.WakeLocks = append(p.info.WakeLocks, item.WakeLock{
		Name:        m[2],
		Number:      &num,
		HeldTime:    Millis(atoi64(m[4]), atoi64(m[6]), atoi64(m[8]), atoi64(m[10]), atoi64(m[12])),
		LockedCount: atoi(m[13]),
		Category:    cat,
	})
}

// Millis converts a days/hours/minutes/seconds/milliseconds split to milliseconds.
func Millis(days, hours, mins, secs, ms int64) int64 {
	return (((24*days+hours)*60+mins)*60+secs)*1000 + ms
}
