// Package linesensor turns raw reflectance readings into calibrated values
// and a line position.
package linesensor

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"linefollower/internal/calibration"
)

func parseRaw(s string, count int) ([]uint16, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("linesensor: sample empty")
	}
	if len(fields) < count {
		return nil, fmt.Errorf("linesensor: sample has %d values, want %d", len(fields), count)
	}
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		n, err := strconv.ParseUint(fields[i], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("linesensor: parse value %d %q: %w", i, fields[i], err)
		}
		if n > calibration.ADCMax {
			return nil, fmt.Errorf("linesensor: value %d=%d exceeds %d", i, n, calibration.ADCMax)
		}
		out[i] = uint16(n)
	}
	return out, nil
}

// ReadRaw reads one sample of count raw ADC values from path. The sampling
// daemon publishes them as whitespace-separated decimal integers; extra
// trailing values are ignored.
func ReadRaw(path string, count int) ([]uint16, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("linesensor: read sample: %w", err)
	}
	return parseRaw(string(b), count)
}
