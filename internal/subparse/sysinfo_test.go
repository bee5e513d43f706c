package subparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMemInfo(t *testing.T) {
	info := ParseMemInfo([]string{
		"MemTotal:         353332 kB",
		"MemFree:           65420 kB",
		"Active(anon):      12000 kB",
		"garbage line",
	})
	assert.EqualValues(t, 353332, info["MemTotal"])
	assert.EqualValues(t, 65420, info["MemFree"])
	assert.EqualValues(t, 12000, info["Active(anon)"])
	assert.Len(t, info, 3)
}

func TestParseProcrank(t *testing.T) {
	p := ParseProcrank([]string{
		"  PID      Vss      Rss      Pss      Uss  cmdline",
		"  178   87136K   81684K   52829K   50012K  system_server",
		" 1313   78128K   77996K   48603K   45812K  com.google.android.apps.maps",
		"    1     244K     228K     144K     132K  /init",
		"                          -------  ------  ------",
		"                          203624K  163604K  TOTAL",
	})
	require.Len(t, p, 3)

	row := p[178]
	assert.Equal(t, "system_server", row.Name)
	assert.EqualValues(t, 87136, row.VSS)
	assert.EqualValues(t, 81684, row.RSS)
	assert.EqualValues(t, 52829, row.PSS)
	assert.EqualValues(t, 50012, row.USS)

	name, ok := p.Name(1313)
	require.True(t, ok)
	assert.Equal(t, "com.google.android.apps.maps", name)
}

func TestParseProcrankWithSwap(t *testing.T) {
	p := ParseProcrank([]string{
		"  PID       Vss      Rss      Pss      Uss     Swap    PSwap    USwap    ZSwap  cmdline",
		"  925  2010996K  155920K   89855K   80412K       0K       0K       0K       0K  system_server",
	})
	name, ok := p.Name(925)
	require.True(t, ok)
	assert.Equal(t, "system_server", name)
}

func TestParseTop(t *testing.T) {
	top := ParseTop([]string{
		"User 20%, System 10%, IOW 0%, IRQ 0%",
		"User 150 + Nice 10 + Sys 40 + Idle 800 + IOW 0 + IRQ 0 + SIRQ 0 = 1000",
		"User 1 + Nice 1 + Sys 1 + Idle 1 + IOW 1 + IRQ 1 + SIRQ 1 = 7",
	})
	require.NotNil(t, top)
	assert.Equal(t, 150, top.User)
	assert.Equal(t, 10, top.Nice)
	assert.Equal(t, 40, top.System)
	assert.Equal(t, 800, top.Idle)
	assert.Equal(t, 1000, top.Total)
	assert.InDelta(t, 0.2, top.Usage(), 1e-9)

	assert.Nil(t, ParseTop([]string{"nothing"}))
}

func TestParseSystemProps(t *testing.T) {
	props := ParseSystemProps([]string{
		"[dalvik.vm.heapsize]: [48m]",
		"[ro.build.id]: [IMM76D]",
		"[empty]: []",
		"not a property",
	})
	assert.Equal(t, "48m", props["dalvik.vm.heapsize"])
	assert.Equal(t, "IMM76D", props["ro.build.id"])
	v, ok := props["empty"]
	assert.True(t, ok)
	assert.Empty(t, v)
	assert.Len(t, props, 3)
}

func TestParseCompactMemInfo(t *testing.T) {
	info := ParseCompactMemInfo([]string{
		"proc,cached,com.google.android.youtube,2964,19345,e",
		"proc,native,surfaceflinger,175,8877,",
		"proc,fore,com.android.launcher,1234,5000,a",
		"ram,1000,2000,3000",
	})
	require.Len(t, info, 3)

	yt := info[2964]
	assert.Equal(t, "com.google.android.youtube", yt.Name)
	assert.Equal(t, "cached", yt.Type)
	assert.EqualValues(t, 19345, yt.PSS)
	assert.False(t, yt.Activities)
	assert.True(t, info[1234].Activities)
	assert.Equal(t, "native", info[175].Type)
}

func TestParseTraces(t *testing.T) {
	tr := ParseTraces([]string{
		"",
		"----- pid 2887 at 2012-05-02 16:43:41 -----",
		"Cmd line: com.android.package",
		"",
		"DALVIK THREADS:",
		"(mutexes: tll=0 tsl=0 tscl=0 ghl=0)",
		"",
		`"main" prio=5 tid=1 SUSPENDED`,
		`  | group="main" sCount=1 dsCount=0 obj=0x00000001 self=0x00000001`,
		"  at class.method1(Class.java:1)",
		"",
		`"Thread-1" prio=5 tid=2 WAIT`,
		"  at class.method2(Class.java:2)",
		"",
		"----- pid 999 at 2012-05-02 16:43:41 -----",
		`"main" prio=5 tid=1 RUNNABLE`,
	})
	require.NotNil(t, tr)
	assert.Equal(t, 2887, tr.PID)
	assert.Equal(t, "com.android.package", tr.App)
	assert.Equal(t, `"main" prio=5 tid=1 SUSPENDED
  | group="main" sCount=1 dsCount=0 obj=0x00000001 self=0x00000001
  at class.method1(Class.java:1)`, tr.Stack)

	assert.Nil(t, ParseTraces([]string{"no traces here"}))
}
