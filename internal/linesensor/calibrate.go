package linesensor

import "linefollower/internal/calibration"

// MaxValue is the full-scale calibrated reading.
const MaxValue = 1000

// Calibrator accumulates the per-sensor extremes seen while the robot is swept
// across the line.
type Calibrator struct {
	b       calibration.Bounds
	samples int
}

func NewCalibrator(count int) *Calibrator {
	b := calibration.NewBounds(count)
	for i := range b.Minimum {
		b.Minimum[i] = calibration.ADCMax
	}
	return &Calibrator{b: b}
}

// Observe folds one raw sample into the bounds. Readings beyond the sensor
// count are ignored.
func (c *Calibrator) Observe(raw []uint16) {
	for i := 0; i < len(c.b.Minimum) && i < len(raw); i++ {
		if raw[i] < c.b.Minimum[i] {
			c.b.Minimum[i] = raw[i]
		}
		if raw[i] > c.b.Maximum[i] {
			c.b.Maximum[i] = raw[i]
		}
	}
	c.samples++
}

func (c *Calibrator) Samples() int { return c.samples }

// Bounds returns a copy of the bounds gathered so far.
func (c *Calibrator) Bounds() calibration.Bounds {
	out := calibration.NewBounds(len(c.b.Minimum))
	copy(out.Minimum, c.b.Minimum)
	copy(out.Maximum, c.b.Maximum)
	return out
}

// Normalize maps each raw reading onto 0..MaxValue using b. Sensors whose
// range is empty read 0.
func Normalize(raw []uint16, b calibration.Bounds) []int {
	out := make([]int, len(raw))
	for i, v := range raw {
		if i >= len(b.Minimum) || i >= len(b.Maximum) {
			break
		}
		lo, hi := int(b.Minimum[i]), int(b.Maximum[i])
		if hi <= lo {
			continue
		}
		x := (int(v) - lo) * MaxValue / (hi - lo)
		if x < 0 {
			x = 0
		}
		if x > MaxValue {
			x = MaxValue
		}
		out[i] = x
	}
	return out
}
