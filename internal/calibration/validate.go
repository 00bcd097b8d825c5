package calibration

// Validate checks a record read back from the store against the running
// configuration. Layers run in order and the first failure wins:
//
//  1. magic
//  2. format version
//  3. sensor count
//  4. checksum
//  5. per-sensor range for the active sensors
//
// Structural checks run before the checksum, and the checksum before the range
// checks, so a corrupted byte is reported as corruption rather than as a bad
// calibration.
func Validate(r Record, expectedSensorCount int) ErrorCode {
	if r.Magic != Magic {
		return MagicMismatch
	}
	if r.Version != FormatVersion {
		return VersionMismatch
	}
	if int(r.SensorCount) != expectedSensorCount {
		return SensorCountMismatch
	}

	c := r
	c.Checksum = 0
	if Checksum(c) != r.Checksum {
		return ChecksumFailed
	}

	n := int(r.SensorCount)
	if n > MaxSensors {
		n = MaxSensors
	}
	for i := 0; i < n; i++ {
		if r.Minimum[i] >= r.Maximum[i] {
			return InvalidRange
		}
		if r.Maximum[i] > ADCMax {
			return RangeExceeded
		}
	}
	return Success
}

// validSensors counts sensors whose bounds satisfy min < max <= ADCMax and sums
// their ranges.
func validSensors(b Bounds, n int) (count int, totalRange int) {
	for i := 0; i < n; i++ {
		lo, hi := b.Minimum[i], b.Maximum[i]
		if lo < hi && hi <= ADCMax {
			count++
			totalRange += int(hi - lo)
		}
	}
	return count, totalRange
}

// Quality grades an average calibration range (max - min) in raw ADC counts.
func Quality(avgRange int) string {
	switch {
	case avgRange > 1500:
		return "excellent"
	case avgRange > 800:
		return "good"
	case avgRange > 400:
		return "fair"
	default:
		return "poor"
	}
}
