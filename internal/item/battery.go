package item

// WakeLockCategory says which statistics block a wake lock came from.
type WakeLockCategory string

const (
	LastChargeWakeLock       WakeLockCategory = "LAST_CHARGE_WAKELOCK"
	LastChargeKernelWakeLock WakeLockCategory = "LAST_CHARGE_KERNEL_WAKELOCK"
	LastUnpluggedWakeLock    WakeLockCategory = "LAST_UNPLUGGED_WAKELOCK"
	LastUnpluggedKernelLock  WakeLockCategory = "LAST_UNPLUGGED_KERNEL_WAKELOCK"
)

// WakeLock is one wake lock entry from dumpsys batteryinfo. Number is nil
// for kernel wake locks. HeldTime is in milliseconds.
type WakeLock struct {
	Name        string           `json:"NAME"`
	Number      *int             `json:"NUMBER,omitempty"`
	HeldTime    int64            `json:"HELD_TIME"`
	LockedCount int              `json:"LOCKED_COUNT"`
	Category    WakeLockCategory `json:"CATEGORY"`
}

// BatteryInfo is the parsed dumpsys batteryinfo service.
type BatteryInfo struct {
	WakeLocks []WakeLock `json:"WAKELOCKS"`
}

// ByCategory returns the wake locks of the given category in input order.
func (b *BatteryInfo) ByCategory(c WakeLockCategory) []WakeLock {
	var out []WakeLock
	for _, wl := range b.WakeLocks {
		if wl.Category == c {
			out = append(out, wl)
		}
	}
	return out
}

// Dumpsys holds the dumpsys services that are parsed.
type Dumpsys struct {
	BatteryInfo *BatteryInfo `json:"BATTERYINFO,omitempty"`
}
