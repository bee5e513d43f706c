// Package format renders the sizes and durations found in Android dumps.
package format

import "fmt"

// Kilobytes formats a size given in kB, the unit meminfo and procrank
// report, as "512 kB", "51.6 MB" or "1.5 GB".
func Kilobytes(kb int64) string {
	const mb, gb = 1024, 1024 * 1024
	switch {
	case kb >= gb:
		return fmt.Sprintf("%.1f GB", float64(kb)/gb)
	case kb >= mb:
		return fmt.Sprintf("%.1f MB", float64(kb)/mb)
	default:
		return fmt.Sprintf("%d kB", kb)
	}
}
