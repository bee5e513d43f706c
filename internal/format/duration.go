package format

import (
	"fmt"
	"strings"
)

// Millis formats a millisecond count as "1d 2h 3m 4s 5ms", leaving out
// zero parts. Zero formats as "0ms".
func Millis(ms int64) string {
	parts := []struct {
		n    int64
		unit string
	}{
		{ms / 86400000, "d"},
		{ms / 3600000 % 24, "h"},
		{ms / 60000 % 60, "m"},
		{ms / 1000 % 60, "s"},
		{ms % 1000, "ms"},
	}

	var b strings.Builder
	for _, p := range parts {
		if p.n == 0 {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%d%s", p.n, p.unit)
	}
	if b.Len() == 0 {
		return "0ms"
	}
	return b.String()
}
