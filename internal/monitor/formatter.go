package monitor

import "fmt"

// FormatShare formats part of total as "N (X.X%)".
func FormatShare(part, total int) string {
	if total <= 0 {
		return fmt.Sprintf("%d (0.0%%)", part)
	}
	return fmt.Sprintf("%d (%s)", part, FormatPercentage(float64(part)/float64(total)))
}

// FormatPercentage formats a ratio (0-1) as percentage
func FormatPercentage(ratio float64) string {
	return fmt.Sprintf("%.1f%%", ratio*100)
}

// FormatDelta formats a change between two polls as "+N", "-N" or "0".
func FormatDelta(delta int) string {
	if delta > 0 {
		return fmt.Sprintf("+%d", delta)
	}
	return fmt.Sprintf("%d", delta)
}

// FormatDuration formats duration in seconds to "Xh Ym" or "Xm"
func FormatDuration(seconds int64) string {
	hours := seconds / 3600
	minutes := (seconds % 3600) / 60

	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
