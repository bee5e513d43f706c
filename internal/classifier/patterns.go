package classifier

// Kernel log categories.
const (
	KernelReset   = "KERNEL_RESET"
	SELinuxDenial = "SELINUX_DENIAL"
)

// Logcat categories.
const (
	HighCPUUsage    = "HIGH_CPU_USAGE"
	HighMemoryUsage = "HIGH_MEMORY_USAGE"
	RuntimeRestart  = "RUNTIME_RESTART"
)

// kernelResetPatterns signal that the device rebooted or is about to.
var kernelResetPatterns = []string{
	`smem: DIAG.*`,
	`smsm: AMSS FATAL ERROR.*`,
	`kernel BUG at .*`,
	`PC is at .*`,
	`Internal error:.*`,
	`PVR_K:\(Fatal\): Debug assertion failed! \[.*\]`,
	`Kernel panic.*`,
	`BP panicked`,
	`WROTE DSP RAMDUMP`,
	`tegra_wdt: last reset due to watchdog timeout.*`,
	`Last reset was MPU Watchdog Timer reset.*`,
	`\[MODEM_IF\].*CRASH.*`,
	`Last boot reason: (?:kernel_panic|watchdogr?|hw_reset(?:$|\n)|PowerKey|Watchdog|Panic)`,
	`Last reset was system watchdog timer reset`,
}

var selinuxPatterns = []string{
	`.*avc:\s.*`,
}

// Kernel returns the rule set for kernel log messages. Reset patterns are
// checked before SELinux denials.
func Kernel() *Classifier {
	c := New()
	for _, p := range kernelResetPatterns {
		c.MustRegister(p, KernelReset)
	}
	for _, p := range selinuxPatterns {
		c.MustRegister(p, SELinuxDenial)
	}
	return c
}

// Logcat returns the rule set for one-line logcat events.
func Logcat() *Classifier {
	c := New()
	c.MustRegister(`.* timed out \(is the CPU pegged\?\).*`, HighCPUUsage)
	c.MustRegister(`GetBufferLock timed out for thread \d+ buffer .*`, HighMemoryUsage)
	c.MustRegister(`\*\*\* WATCHDOG KILLING SYSTEM PROCESS.*`, RuntimeRestart)
	return c
}
