package bugreport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setevik/droidtriage/internal/classifier"
	"github.com/setevik/droidtriage/internal/item"
)

var sample = []string{
	"========================================================",
	"== dumpstate: 2012-04-25 20:45:10",
	"========================================================",
	"------ MEMORY INFO (/proc/meminfo) ------",
	"MemTotal:         353332 kB",
	"MemFree:           65420 kB",
	"",
	"------ CPU INFO (top -n 1 -d 1 -m 30 -t) ------",
	"",
	"User 3%, System 3%, IOW 0%, IRQ 0%",
	"User 150 + Nice 0 + Sys 50 + Idle 800 + IOW 0 + IRQ 0 + SIRQ 0 = 1000",
	"",
	"------ PROCRANK (procrank) ------",
	"  PID      Vss      Rss      Pss      Uss  cmdline",
	"  178   87136K   81684K   52829K   50012K  system_server",
	" 3064   20000K   19000K   10000K    9000K  com.android.browser",
	" 3065   20000K   19000K   10000K    9000K  com.android.phone",
	"",
	"------ VM TRACES AT LAST ANR (/data/anr/traces.txt: 2012-04-25 17:17:08) ------",
	"",
	"----- pid 2887 at 2012-04-25 17:17:08 -----",
	"Cmd line: com.android.phone",
	"",
	`"main" prio=5 tid=1 SUSPENDED`,
	"  at class.method1(Class.java:1)",
	"",
	"------ SYSTEM PROPERTIES ------",
	"[ro.build.id]: [IMM76D]",
	"",
	"------ SYSTEM LOG (logcat -v threadtime -d *:v) ------",
	"--------- beginning of /dev/log/system",
	"04-25 09:55:47.799  3064  3082 E AndroidRuntime: java.lang.IllegalStateException: NPE",
	"04-25 09:55:47.799  3064  3082 E AndroidRuntime: 	at class.method1(Class.java:1)",
	"04-25 17:17:08.445   178   210 E ActivityManager: ANR in com.android.phone (com.android.phone/.Main)",
	"04-25 17:17:08.445   178   210 E ActivityManager: Reason: keyDispatchingTimedOut",
	"04-25 18:00:00.000   178   190 W Watchdog: *** WATCHDOG KILLING SYSTEM PROCESS: null",
	"",
	"------ KERNEL LOG (dmesg) ------",
	"<6>[    0.000000] Booting Linux",
	"<0>[   10.000000] Kernel panic - not syncing",
	"",
	"------ EVENT LOG (logcat -b events) ------",
	"ignored",
	"------ DUMPSYS (dumpsys) ------",
	"-------------------------------------------------------------------------------",
	"DUMP OF SERVICE batteryinfo:",
	"Statistics since last unplugged:",
	`  Kernel Wake lock "main": 31m 1s (3 times) realtime`,
	"",
	"  All partial wake locks:",
	"  Wake lock #1000 AlarmManager: 422ms (7 times) realtime",
	"",
}

func TestParseBugreport(t *testing.T) {
	br := New(0).Parse(sample)
	require.NotNil(t, br)

	assert.Equal(t, time.Date(2012, 4, 25, 20, 45, 10, 0, time.UTC), br.Time)
	assert.EqualValues(t, 353332, br.MemInfo["MemTotal"])
	require.NotNil(t, br.Top)
	assert.Equal(t, 1000, br.Top.Total)
	assert.Len(t, br.Procrank, 3)
	assert.Equal(t, "IMM76D", br.SystemProps["ro.build.id"])

	require.NotNil(t, br.SystemLog)
	assert.Equal(t, 2012, br.SystemLog.Start.Year())
	require.Len(t, br.SystemLog.JavaCrashes(), 1)
	require.Len(t, br.SystemLog.ANRs(), 1)
	require.Len(t, br.SystemLog.MiscEvents(classifier.RuntimeRestart), 1)

	require.NotNil(t, br.KernelLog)
	assert.Len(t, br.KernelLog.MiscEvents(classifier.KernelReset), 1)
	assert.Nil(t, br.LastKmsg)

	require.NotNil(t, br.Dumpsys)
	require.NotNil(t, br.Dumpsys.BatteryInfo)
	locks := br.Dumpsys.BatteryInfo.ByCategory(item.LastUnpluggedKernelLock)
	require.Len(t, locks, 1)
	assert.EqualValues(t, 31*60*1000+1000, locks[0].HeldTime)
}

func TestAppNamesFilledFromProcrank(t *testing.T) {
	br := New(0).Parse(sample)
	require.NotNil(t, br)

	crash := br.SystemLog.JavaCrashes()[0]
	assert.Equal(t, "com.android.browser", crash.App)

	restart := br.SystemLog.MiscEvents(classifier.RuntimeRestart)[0]
	assert.Equal(t, "system_server", restart.App)

	// The ANR names its own app and keeps it.
	assert.Equal(t, "com.android.phone", br.SystemLog.ANRs()[0].App)
}

func TestTraceAttachedToANR(t *testing.T) {
	br := New(0).Parse(sample)
	require.NotNil(t, br)
	require.NotNil(t, br.Traces)

	anr := br.SystemLog.ANRs()[0]
	assert.Equal(t, "\"main\" prio=5 tid=1 SUSPENDED\n  at class.method1(Class.java:1)", anr.Anr.Trace)
}

func TestHeaderOnlyIsNotABugreport(t *testing.T) {
	assert.Nil(t, New(0).Parse([]string{"== dumpstate: 2012-04-25 20:45:10", "nothing else"}))
	assert.Nil(t, New(0).Parse(nil))
}

func TestMissingSectionsAreNil(t *testing.T) {
	br := New(0).Parse([]string{
		"== dumpstate: 2012-04-25 20:45:10",
		"------ PROCRANK (procrank) ------",
		"  178   87136K   81684K   52829K   50012K  system_server",
	})
	require.NotNil(t, br)
	assert.Len(t, br.Procrank, 1)
	assert.Nil(t, br.MemInfo)
	assert.Nil(t, br.Top)
	assert.Nil(t, br.SystemLog)
	assert.Nil(t, br.Dumpsys)
}
