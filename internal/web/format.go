package web

import "fmt"

// FormatKB renders a byte count as kilobytes with two decimals, e.g. "12.50 KB".
func FormatKB(bytes int64) string {
	return fmt.Sprintf("%.2f KB", float64(bytes)/1024)
}

// FormatSeconds renders a duration estimate with two decimals, e.g. "0.25 seconds".
func FormatSeconds(seconds float64) string {
	return fmt.Sprintf("%.2f seconds", seconds)
}
