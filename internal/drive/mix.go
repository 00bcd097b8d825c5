package drive

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Mix splits a steering correction across the two wheels. base is the forward
// speed and correction the turn demand, both in percent; a positive correction
// turns left. Results are clamped to [-100, 100].
func Mix(base, correction float64) (left, right float64) {
	left = clamp(base-correction, -100, 100)
	right = clamp(base+correction, -100, 100)
	return left, right
}
