package item

import "time"

// Bugreport is the result of parsing a full dumpstate bugreport. Any section
// missing from the capture is nil.
type Bugreport struct {
	Time        time.Time   `json:"TIME,omitempty"`
	MemInfo     MemInfo     `json:"MEM_INFO,omitempty"`
	Procrank    Procrank    `json:"PROCRANK,omitempty"`
	Top         *Top        `json:"TOP,omitempty"`
	SystemProps SystemProps `json:"SYSTEM_PROPERTIES,omitempty"`
	SystemLog   *Logcat     `json:"SYSTEM_LOG,omitempty"`
	KernelLog   *KernelLog  `json:"KERNEL_LOG,omitempty"`
	LastKmsg    *KernelLog  `json:"LAST_KMSG,omitempty"`
	Traces      *Traces     `json:"TRACES,omitempty"`
	Dumpsys     *Dumpsys    `json:"DUMPSYS,omitempty"`
}
