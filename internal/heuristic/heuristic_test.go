package heuristic

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setevik/droidtriage/internal/classifier"
	"github.com/setevik/droidtriage/internal/item"
	"github.com/setevik/droidtriage/internal/lifecycle"
)

var t0 = time.Date(2012, 4, 25, 9, 55, 47, 0, time.UTC)

func logcatWith(events ...*item.LogcatEvent) Sample {
	return Sample{Logcat: &item.Logcat{Events: events}}
}

func TestNothingAddedPasses(t *testing.T) {
	for _, h := range Defaults(DefaultThresholds()) {
		t.Run(h.Name(), func(t *testing.T) {
			require.NoError(t, h.Add(Sample{}))
			assert.False(t, h.Failed())
			assert.Empty(t, h.Summary())
			assert.Empty(t, h.Details())
			r := h.Result()
			assert.Equal(t, Passed, r.Status)
			assert.Equal(t, h.Type(), r.Type)
		})
	}
}

func TestANR(t *testing.T) {
	h := NewANR()
	require.NoError(t, h.Add(logcatWith(
		&item.LogcatEvent{Kind: item.KindANR, PID: 178, Stack: "ANR in com.android.phone", LastPreamble: "last", ProcessPreamble: "proc"},
		&item.LogcatEvent{Kind: item.KindJavaCrash},
	)))
	require.True(t, h.Failed())
	assert.Equal(t, "Found 1 ANR", h.Summary())
	assert.Equal(t, "ANR in com.android.phone\n\nLast lines of logcat\nlast\n\nLast lines of logcat for PID 178\nproc\n\n", h.Details())

	require.NoError(t, h.Add(logcatWith(&item.LogcatEvent{Kind: item.KindANR})))
	assert.Equal(t, "Found 2 ANRs", h.Summary())
	assert.Len(t, h.Result().Evidence["ANRS"], 2)
}

func TestCrashSummaries(t *testing.T) {
	java := NewJavaCrash()
	native := NewNativeCrash()
	s := logcatWith(
		&item.LogcatEvent{Kind: item.KindJavaCrash, Stack: "java.lang.NullPointerException"},
		&item.LogcatEvent{Kind: item.KindJavaCrash, Stack: "java.lang.IllegalStateException"},
		&item.LogcatEvent{Kind: item.KindNativeCrash, Stack: "signal 11"},
	)
	require.NoError(t, java.Add(s))
	require.NoError(t, native.Add(s))

	assert.Equal(t, "Found 2 Java crashes", java.Summary())
	assert.Equal(t, "java.lang.NullPointerException\n\njava.lang.IllegalStateException\n\n", java.Details())
	assert.Equal(t, "Found 1 native crash", native.Summary())
	assert.Equal(t, "signal 11\n\n", native.Details())
}

func TestKernelReset(t *testing.T) {
	at := 10.0
	h := NewKernelReset()
	require.NoError(t, h.Add(Sample{KernelLog: &item.KernelLog{Events: []*item.KernelEvent{
		{Time: &at, Category: classifier.KernelReset, Message: "Kernel panic", Preamble: "Booting Linux"},
		{Time: &at, Category: classifier.SELinuxDenial, Message: "avc: denied"},
	}}}))
	require.True(t, h.Failed())
	assert.Equal(t, "Found a kernel reset", h.Summary())
	assert.Equal(t, "Reason: Kernel panic, Time: 10.000000\nPreamble:\nBooting Linux\n\n", h.Details())
}

func TestFromBugreportPrefersLastKmsg(t *testing.T) {
	dmesg := &item.KernelLog{}
	kmsg := &item.KernelLog{}
	s := FromBugreport(&item.Bugreport{Time: t0, KernelLog: dmesg, LastKmsg: kmsg}, "br.txt")
	assert.Same(t, kmsg, s.KernelLog)
	assert.Equal(t, t0, s.Time)
	assert.Equal(t, "br.txt", s.URI)

	s = FromBugreport(&item.Bugreport{KernelLog: dmesg}, "")
	assert.Same(t, dmesg, s.KernelLog)

	assert.Nil(t, FromBugreport(nil, "x").Logcat)
}

func TestCPUUsage(t *testing.T) {
	tests := []struct {
		name string
		user int
		want bool
	}{
		{"high", 801, true},
		{"low", 799, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewCPUUsage(0.8)
			top := &item.Top{User: tt.user, Idle: 1000 - tt.user, Total: 1000}
			require.NoError(t, h.Add(Sample{Top: top}))
			assert.Equal(t, tt.want, h.Failed())
			assert.Equal(t, 0.8, h.Result().Evidence["CUTOFF"])
			assert.Same(t, top, h.Result().Evidence["TOP"])
		})
	}

	h := NewCPUUsage(0.8)
	require.NoError(t, h.Add(logcatWith(&item.LogcatEvent{Kind: item.KindMisc, Category: classifier.HighCPUUsage})))
	assert.True(t, h.Failed())
	assert.Equal(t, "CPU usage at 0% (over 80%)", h.Summary())
}

func TestMemoryUsage(t *testing.T) {
	h := NewMemoryUsage(0.99)
	require.NoError(t, h.Add(Sample{
		MemInfo: item.MemInfo{"MemTotal": 10000, "MemFree": 40},
		Procrank: item.Procrank{
			178:  {Name: "system_server", PSS: 52829},
			3064: {Name: "com.android.browser", PSS: 2048},
		},
	}))
	require.True(t, h.Failed())
	assert.Equal(t, "Memory usage at 100% (over 99%)", h.Summary())
	assert.Contains(t, h.Details(), "178 system_server 51.6 MB")
	assert.InDelta(t, 0.996, h.Result().Evidence["USAGE"], 1e-9)

	low := NewMemoryUsage(0.99)
	require.NoError(t, low.Add(Sample{MemInfo: item.MemInfo{"MemTotal": 10000, "MemFree": 5000}}))
	assert.False(t, low.Failed())

	noTotal := NewMemoryUsage(0.99)
	require.NoError(t, noTotal.Add(Sample{MemInfo: item.MemInfo{"MemFree": 5}}))
	assert.False(t, noTotal.Failed())

	logged := NewMemoryUsage(0.99)
	require.NoError(t, logged.Add(logcatWith(&item.LogcatEvent{Kind: item.KindMisc, Category: classifier.HighMemoryUsage})))
	assert.True(t, logged.Failed())
}

func TestLatestSampleWins(t *testing.T) {
	h := NewCPUUsage(0.8)
	require.NoError(t, h.Add(Sample{Top: &item.Top{User: 900, Idle: 100, Total: 1000}}))
	require.NoError(t, h.Add(Sample{Top: &item.Top{User: 100, Idle: 900, Total: 1000}}))
	require.NoError(t, h.Add(Sample{}))
	assert.False(t, h.Failed())
}

func battery(locks ...item.WakeLock) Sample {
	return Sample{Dumpsys: &item.Dumpsys{BatteryInfo: &item.BatteryInfo{WakeLocks: locks}}}
}

func TestPowerUsage(t *testing.T) {
	cutoff := 30 * time.Minute
	over := cutoff.Milliseconds() + 1
	under := cutoff.Milliseconds() - 1
	num := 1000

	tests := []struct {
		name   string
		wake   int64
		kernel int64
		want   bool
	}{
		{"wake lock", over, under, true},
		{"kernel wake lock", under, over, true},
		{"none", under, under, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewPowerUsage(cutoff)
			require.NoError(t, h.Add(battery(
				item.WakeLock{Name: "wakelock", Number: &num, HeldTime: tt.wake, LockedCount: 2, Category: item.LastUnpluggedWakeLock},
				item.WakeLock{Name: "kernelwakelock", HeldTime: tt.kernel, LockedCount: 3, Category: item.LastUnpluggedKernelLock},
				item.WakeLock{Name: "charge", HeldTime: over, Category: item.LastChargeWakeLock},
			)))
			assert.Equal(t, tt.want, h.Failed())
		})
	}

	h := NewPowerUsage(cutoff)
	require.NoError(t, h.Add(battery(
		item.WakeLock{Name: "wakelock", Number: &num, HeldTime: over, LockedCount: 2, Category: item.LastUnpluggedWakeLock},
		item.WakeLock{Name: "kernelwakelock", HeldTime: over, LockedCount: 3, Category: item.LastUnpluggedKernelLock},
	)))
	assert.Equal(t, "1 wake lock held longer than 30m, 1 kernel wake lock held longer than 30m", h.Summary())
	assert.Equal(t,
		"Wake lock \"wakelock\" #1000 held for 30m 1ms (2 times)\nKernel wake lock \"kernelwakelock\" held for 30m 1ms (3 times)\n",
		h.Details())

	only := NewPowerUsage(cutoff)
	require.NoError(t, only.Add(battery(item.WakeLock{Name: "k", HeldTime: over, Category: item.LastUnpluggedKernelLock})))
	assert.Equal(t, "1 kernel wake lock held longer than 30m", only.Summary())
}

func TestRuntimeRestart(t *testing.T) {
	tests := []struct {
		name     string
		procrank item.Procrank
		want     bool
	}{
		{"empty procrank", item.Procrank{}, false},
		{"no system server", item.Procrank{0: {Name: "foo"}}, true},
		{"high system server", item.Procrank{1001: {Name: systemServer}}, true},
		{"high bootanimation", item.Procrank{999: {Name: systemServer}, 1001: {Name: bootAnimation}}, true},
		{"low system server", item.Procrank{999: {Name: systemServer}}, false},
		{"low bootanimation", item.Procrank{999: {Name: systemServer}, 998: {Name: bootAnimation}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewRuntimeRestart(1000)
			require.NoError(t, h.Add(Sample{Procrank: tt.procrank}))
			assert.Equal(t, tt.want, h.Failed())
		})
	}

	h := NewRuntimeRestart(1000)
	require.NoError(t, h.Add(Sample{Procrank: item.Procrank{1001: {Name: systemServer}}}))
	assert.Equal(t, "Found a runtime restart", h.Summary())
	assert.Contains(t, h.Details(), "system_server has a PID of 1001 (greater than 1000)")
	assert.Equal(t, []string{"system_server is present in the procrank with a PID greater than 1000"},
		h.Result().Evidence["PROCRANK_SUMMARY"])

	logged := NewRuntimeRestart(1000)
	require.NoError(t, logged.Add(logcatWith(&item.LogcatEvent{
		Kind: item.KindMisc, Category: classifier.RuntimeRestart, Time: t0, PID: 178,
		Message: "*** WATCHDOG KILLING SYSTEM PROCESS: null",
	})))
	assert.True(t, logged.Failed())
	assert.Contains(t, logged.Details(), "Message: *** WATCHDOG KILLING SYSTEM PROCESS: null, Time: 2012-04-25 09:55:47.000")
	assert.Contains(t, logged.Details(), "Process lines for pid 178:")
}

func procrankAt(min int, names map[int]string) Sample {
	p := item.Procrank{}
	for pid, n := range names {
		p[pid] = item.ProcrankRow{Name: n}
	}
	return Sample{Time: t0.Add(time.Duration(min) * time.Minute), Procrank: p}
}

func TestProcessLifecycleDisabledByDefault(t *testing.T) {
	h := NewProcessLifecycle(DefaultThresholds().Lifecycle)
	require.NoError(t, h.Add(procrankAt(0, map[int]string{1: "a"})))
	require.NoError(t, h.Add(procrankAt(1, map[int]string{2: "a", 3: "b", 4: "c"})))
	assert.False(t, h.Failed())

	procs := h.Result().Evidence["PROCESSES"].(map[string]processStats)
	assert.Equal(t, 2, procs["a"].Instances)
}

func TestProcessLifecycleThresholds(t *testing.T) {
	samples := []Sample{
		procrankAt(0, map[int]string{1: "a", 2: "b"}),
		procrankAt(1, map[int]string{2: "b", 3: "a", 4: "c", 5: "d"}),
		procrankAt(3, map[int]string{6: "a"}),
	}
	tests := []struct {
		name string
		th   LifecycleThresholds
		want bool
	}{
		{"created", LifecycleThresholds{ProcessesCreated: 2}, true},
		{"created under", LifecycleThresholds{ProcessesCreated: 3}, false},
		{"destroyed", LifecycleThresholds{ProcessesDestroyed: 3}, true},
		{"destroyed under", LifecycleThresholds{ProcessesDestroyed: 4}, false},
		{"restart latency", LifecycleThresholds{Instances: 2, RestartLatency: time.Minute}, true},
		{"restart latency under", LifecycleThresholds{Instances: 2, RestartLatency: 2 * time.Minute}, false},
		{"lifespan needs instances", LifecycleThresholds{Lifespan: time.Nanosecond}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewProcessLifecycle(tt.th)
			for _, s := range samples {
				require.NoError(t, h.Add(s))
			}
			assert.Equal(t, tt.want, h.Failed(), h.Details())
		})
	}
}

func TestProcessLifecycleConflict(t *testing.T) {
	h := NewProcessLifecycle(LifecycleThresholds{})
	require.NoError(t, h.Add(procrankAt(0, map[int]string{100: "app"})))
	err := h.Add(procrankAt(1, map[int]string{100: "other"}))

	var conflict *lifecycle.ConflictError
	require.True(t, errors.As(err, &conflict))
	assert.Equal(t, 1, h.(*processLifecycle).Timeline().Len())
}

func TestResultJSON(t *testing.T) {
	h := NewKernelReset()
	at := 1.5
	require.NoError(t, h.Add(Sample{KernelLog: &item.KernelLog{Events: []*item.KernelEvent{
		{Time: &at, Category: classifier.KernelReset, Message: "Kernel panic"},
	}}}))

	b, err := json.Marshal(h.Result())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "KERNEL_RESET_HEURISTIC", got["TYPE"])
	assert.Equal(t, "Kernel reset", got["NAME"])
	assert.Equal(t, "FAILED", got["STATUS"])
	assert.Equal(t, "Found a kernel reset", got["SUMMARY"])
	assert.Len(t, got["KERNEL_RESETS"], 1)

	b, err = json.Marshal(NewANR().Result())
	require.NoError(t, err)
	assert.JSONEq(t, `{"TYPE":"ANR_HEURISTIC","NAME":"ANR","STATUS":"PASSED","ANRS":[]}`, string(b))
}
