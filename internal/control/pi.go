package control

import "math"

// PI is a proportional-integral controller with a symmetric anti-windup bound
// on the integral accumulator.
type PI struct {
	Base
	kp, ki     float64
	integral   float64
	antiWindup float64
}

// NewPI returns a PI controller whose anti-windup limit defaults to |OutputMax|
// after any bound swap.
func NewPI(kp, ki float64, o Options) *PI {
	c := &PI{Base: newBase("pi", o), kp: kp, ki: ki}
	c.antiWindup = math.Abs(c.outMax)
	if kp < 0 {
		c.warnf("negative kp=%v can cause instability", kp)
	}
	if ki < 0 {
		c.warnf("negative ki=%v can cause instability", ki)
	}
	if kp == 0 && ki == 0 {
		c.warnf("both gains are zero, no control action")
	}
	if ki > kp {
		c.warnf("ki=%v > kp=%v may cause aggressive integral action", ki, kp)
	}
	if ki > 0 && c.dt > 0.1 {
		c.warnf("sample interval %s reduces integral accuracy", c.interval)
	}
	return c
}

func (c *PI) Kind() Kind { return KindPI }

func (c *PI) Init() error {
	if err := initBase(&c.Base); err != nil {
		return err
	}
	if c.kp < 0 || c.ki < 0 {
		logf("pi: init failed: kp=%v ki=%v", c.kp, c.ki)
		return ErrNegativeGain
	}
	if c.kp == 0 && c.ki == 0 {
		logf("pi: init failed: all gains zero")
		return ErrZeroGains
	}
	if c.antiWindup <= 0 {
		logf("pi: init failed: anti-windup=%v", c.antiWindup)
		return ErrInvalidAntiWindup
	}
	if c.ki > 0 && c.dt > 0.05 {
		c.warnf("sample interval %s may reduce integral effectiveness", c.interval)
	}
	c.Reset()
	c.debugf("initialized kp=%v ki=%v anti_windup=%v", c.kp, c.ki, c.antiWindup)
	return nil
}

func (c *PI) Reset() {
	c.integral = 0
	c.output = 0
	c.debugf("state reset, integral cleared")
}

func (c *PI) Compute(err float64) float64 {
	p := c.kp * err
	c.integral += c.ki * err * c.dt
	c.integral = applyLimits(c.integral, -c.antiWindup, c.antiWindup)

	c.output = c.limit(p + c.integral)
	c.debugf("error=%.3f P=%.2f I=%.2f output=%.2f", err, p, c.integral, c.output)
	return c.output
}

func (c *PI) ComputeFromMeasurement(measured float64) float64 {
	return c.Compute(c.errorFor(measured))
}

func (c *PI) SetKp(kp float64) {
	if kp < 0 {
		c.warnf("negative kp=%v can cause instability", kp)
	}
	c.kp = kp
	c.debugf("kp set to %v", kp)
}

// SetKi replaces the integral gain and clears the accumulator.
func (c *PI) SetKi(ki float64) {
	if ki < 0 {
		c.warnf("negative ki=%v can cause instability", ki)
	}
	c.ki = ki
	c.integral = 0
	c.debugf("ki set to %v, integral reset", ki)
}

// SetGains replaces both gains and clears the accumulator.
func (c *PI) SetGains(kp, ki float64) {
	if kp < 0 || ki < 0 {
		c.warnf("negative gains kp=%v ki=%v can cause instability", kp, ki)
	}
	c.kp, c.ki = kp, ki
	c.integral = 0
	c.debugf("gains set kp=%v ki=%v, integral reset", kp, ki)
}

// SetAntiWindupLimit sets the integral bound to |limit| and re-clamps the
// accumulator. Limits above twice |OutputMax| are accepted with a warning.
func (c *PI) SetAntiWindupLimit(limit float64) {
	limit = math.Abs(limit)
	maxOut := math.Abs(c.outMax)
	if limit > maxOut*2 {
		c.warnf("anti-windup limit %v is much larger than max output %v", limit, maxOut)
	}
	c.antiWindup = limit
	c.integral = applyLimits(c.integral, -limit, limit)
	c.debugf("anti-windup limit set to %v", limit)
}

func (c *PI) Kp() float64              { return c.kp }
func (c *PI) Ki() float64              { return c.ki }
func (c *PI) Integral() float64        { return c.integral }
func (c *PI) AntiWindupLimit() float64 { return c.antiWindup }
