package marine

import "fmt"

// ByteCount is a size in bytes that prints with binary units.
type ByteCount int64

var byteUnits = []string{"KiB", "MiB", "GiB", "TiB"}

// String prints whole bytes below 1KiB and one decimal above, e.g. 1.5MiB.
func (b ByteCount) String() string {
	if b < 1<<10 {
		return fmt.Sprintf("%dB", int64(b))
	}
	v := float64(b) / (1 << 10)
	unit := 0
	for v >= 1<<10 && unit < len(byteUnits)-1 {
		v /= 1 << 10
		unit++
	}
	return fmt.Sprintf("%.1f%s", v, byteUnits[unit])
}
