package linesensor

const (
	// onLineThreshold is the calibrated reading above which a sensor counts
	// as seeing the line.
	onLineThreshold = 200
	// noiseThreshold drops readings that contribute only noise to the
	// weighted average.
	noiseThreshold = 50
)

// Tracker estimates where the line sits under the sensor array. Positions run
// from 0 (under sensor 0) to (n-1)*1000 (under the last sensor).
type Tracker struct {
	// WhiteLine selects a light line on a dark surface.
	WhiteLine bool

	last int
	seen bool
}

// Center returns the position of a line centred under an array of n sensors.
func Center(n int) int {
	if n < 1 {
		return 0
	}
	return (n - 1) * MaxValue / 2
}

// Position returns the weighted-average line position and whether any sensor
// currently sees the line. When the line is lost it reports the edge on the
// side where it was last seen, so a controller keeps steering back toward it.
func (t *Tracker) Position(values []int) (int, bool) {
	n := len(values)
	if n == 0 {
		return 0, false
	}

	var weighted, sum int64
	onLine := false
	for i, v := range values {
		if t.WhiteLine {
			v = MaxValue - v
		}
		if v > onLineThreshold {
			onLine = true
		}
		if v > noiseThreshold {
			weighted += int64(v) * int64(i) * MaxValue
			sum += int64(v)
		}
	}

	if !onLine {
		if !t.seen {
			return Center(n), false
		}
		if t.last < Center(n) {
			return 0, false
		}
		return (n - 1) * MaxValue, false
	}

	t.last = int(weighted / sum)
	t.seen = true
	return t.last, true
}
