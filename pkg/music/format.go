package music

import (
	"fmt"
	"strings"
	"time"
)

const barCells = 20

// FormatDuration renders d as MM:SS, or HH:MM:SS once it reaches an hour.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	hours, rest := total/3600, total%3600
	minutes, seconds := rest/60, rest%60
	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// ProgressBar draws position within length as a 20 cell bar, one of which
// is the marker.
func ProgressBar(position, length time.Duration) string {
	cell := 0
	if length > 0 {
		cell = int(int64(barCells) * int64(position) / int64(length))
	}
	cell = max(0, min(cell, barCells-1))

	var b strings.Builder
	b.WriteString(strings.Repeat("▬", cell))
	b.WriteString("🔘")
	b.WriteString(strings.Repeat("▬", barCells-1-cell))
	return b.String()
}
