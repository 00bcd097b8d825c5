package control

import (
	"errors"
	"log"
	"time"
)

var logf = log.Printf

// minSampleInterval replaces a zero sample interval at construction.
const minSampleInterval = time.Millisecond

var (
	ErrInvalidSampleInterval = errors.New("control: sample interval must be > 0")
	ErrInvalidOutputLimits   = errors.New("control: output min must be < output max")
	ErrNegativeGain          = errors.New("control: gains cannot be negative")
	ErrZeroGains             = errors.New("control: at least one gain must be non-zero")
	ErrInvalidAntiWindup     = errors.New("control: anti-windup limit must be > 0")
)

// Options carries the settings shared by every controller variant.
type Options struct {
	SampleInterval time.Duration
	OutputMin      float64
	OutputMax      float64
	Debug          bool
}

// DefaultOptions matches a 10-bit PWM range sampled every millisecond.
func DefaultOptions() Options {
	return Options{SampleInterval: time.Millisecond, OutputMin: -1023, OutputMax: 1023}
}

// Base is the state shared by P, PD, PI and PID. It is embedded by each variant
// and is never used on its own.
//
// Not safe for concurrent use.
type Base struct {
	setpoint float64
	output   float64

	interval time.Duration
	dt       float64 // interval in seconds

	outMin float64
	outMax float64

	debug bool
	name  string
}

func newBase(name string, o Options) Base {
	b := Base{name: name, debug: o.Debug}

	if o.SampleInterval <= 0 {
		logf("%s: sample interval %s invalid, using %s", name, o.SampleInterval, minSampleInterval)
		o.SampleInterval = minSampleInterval
	}
	b.interval = o.SampleInterval
	b.dt = o.SampleInterval.Seconds()

	b.outMin, b.outMax = o.OutputMin, o.OutputMax
	if b.outMin >= b.outMax {
		logf("%s: output min %v >= max %v, swapping", name, b.outMin, b.outMax)
		b.outMin, b.outMax = b.outMax, b.outMin
	}

	b.debugf("created dt=%s limits=[%v, %v]", b.interval, b.outMin, b.outMax)
	return b
}

// validate reports whether the interval and output limits are usable.
func (b *Base) validate() error {
	if b.dt <= 0 {
		return ErrInvalidSampleInterval
	}
	if b.outMin >= b.outMax {
		return ErrInvalidOutputLimits
	}
	return nil
}

func (b *Base) debugf(format string, args ...any) {
	if !b.debug {
		return
	}
	logf(b.name+": "+format, args...)
}

func (b *Base) warnf(format string, args ...any) {
	logf(b.name+": warning: "+format, args...)
}

// errorFor converts a measurement into the error signal.
func (b *Base) errorFor(measured float64) float64 {
	e := b.setpoint - measured
	b.debugf("setpoint=%v measured=%v error=%v", b.setpoint, measured, e)
	return e
}

func (b *Base) limit(v float64) float64 {
	return applyLimits(v, b.outMin, b.outMax)
}

// applyLimits saturates value into [lo, hi].
func applyLimits(value, lo, hi float64) float64 {
	if value > hi {
		return hi
	}
	if value < lo {
		return lo
	}
	return value
}

// SetSampleInterval changes the control period. Zero is ignored.
func (b *Base) SetSampleInterval(d time.Duration) {
	if d <= 0 {
		b.warnf("sample interval %s ignored", d)
		return
	}
	b.interval = d
	b.dt = d.Seconds()
	b.debugf("sample interval set to %s", d)
}

// SetOutputLimits replaces the output bounds, swapping them if inverted. The
// current output is re-clamped immediately.
func (b *Base) SetOutputLimits(min, max float64) {
	if min >= max {
		b.warnf("output min %v >= max %v, swapping", min, max)
		min, max = max, min
	}
	b.outMin, b.outMax = min, max
	b.output = b.limit(b.output)
	b.debugf("output limits set to [%v, %v]", min, max)
}

func (b *Base) SetSetpoint(v float64) {
	b.setpoint = v
	b.debugf("setpoint set to %v", v)
}

func (b *Base) SetDebugEnabled(enabled bool) {
	b.debug = enabled
	b.debugf("debug output enabled")
}

func (b *Base) Setpoint() float64 {
	return b.setpoint
}

// Output returns the last bounded result of Compute.
func (b *Base) Output() float64 {
	return b.output
}

func (b *Base) SampleInterval() time.Duration {
	return b.interval
}

func (b *Base) OutputLimits() (min, max float64) {
	return b.outMin, b.outMax
}

func (b *Base) DebugEnabled() bool {
	return b.debug
}

func (b *Base) base() *Base { return b }
