package util

import "fmt"

var sizeUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

// FormatSize renders a byte count with a binary unit, e.g. "1.5 GiB".
func FormatSize(n int64) string {
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(sizeUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", value, sizeUnits[unit])
}
