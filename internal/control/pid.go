package control

import "math"

// PID combines PD's derivative on error with PI's bounded integral.
type PID struct {
	Base
	kp, ki, kd float64
	integral   float64
	prevError  float64
	antiWindup float64
}

func NewPID(kp, ki, kd float64, o Options) *PID {
	c := &PID{Base: newBase("pid", o), kp: kp, ki: ki, kd: kd}
	c.antiWindup = math.Abs(c.outMax)
	if kp < 0 {
		c.warnf("negative kp=%v can cause instability", kp)
	}
	if ki < 0 {
		c.warnf("negative ki=%v can cause instability", ki)
	}
	if kd < 0 {
		c.warnf("negative kd=%v can cause instability", kd)
	}
	if kp == 0 && ki == 0 && kd == 0 {
		c.warnf("all gains are zero, no control action")
	}
	if ki > 0 && kp == 0 {
		c.warnf("ki without kp may cause oscillation")
	}
	if kd > kp*10 {
		c.warnf("kd=%v is very high relative to kp=%v, output will be noise sensitive", kd, kp)
	}
	return c
}

func (c *PID) Kind() Kind { return KindPID }

func (c *PID) Init() error {
	if err := initBase(&c.Base); err != nil {
		return err
	}
	if c.kp < 0 || c.ki < 0 || c.kd < 0 {
		logf("pid: init failed: kp=%v ki=%v kd=%v", c.kp, c.ki, c.kd)
		return ErrNegativeGain
	}
	if c.kp == 0 && c.ki == 0 && c.kd == 0 {
		logf("pid: init failed: all gains zero")
		return ErrZeroGains
	}
	c.Reset()
	c.debugf("initialized kp=%v ki=%v kd=%v anti_windup=%v", c.kp, c.ki, c.kd, c.antiWindup)
	return nil
}

func (c *PID) Reset() {
	c.integral = 0
	c.prevError = 0
	c.output = 0
	c.debugf("state reset, integral and derivative history cleared")
}

func (c *PID) Compute(err float64) float64 {
	p := c.kp * err

	c.integral += c.ki * err * c.dt
	c.integral = applyLimits(c.integral, -c.antiWindup, c.antiWindup)

	rate := (err - c.prevError) / c.dt
	d := c.kd * rate
	c.prevError = err

	c.output = c.limit(p + c.integral + d)
	c.debugf("error=%.3f P=%.2f I=%.2f D=%.2f output=%.2f", err, p, c.integral, d, c.output)
	return c.output
}

func (c *PID) ComputeFromMeasurement(measured float64) float64 {
	return c.Compute(c.errorFor(measured))
}

func (c *PID) SetKp(kp float64) {
	if kp < 0 {
		c.warnf("negative kp=%v can cause instability", kp)
	}
	c.kp = kp
	c.debugf("kp set to %v", kp)
}

// SetKi replaces the integral gain and clears the accumulator.
func (c *PID) SetKi(ki float64) {
	if ki < 0 {
		c.warnf("negative ki=%v can cause instability", ki)
	}
	c.ki = ki
	c.integral = 0
	c.debugf("ki set to %v, integral reset", ki)
}

func (c *PID) SetKd(kd float64) {
	if kd < 0 {
		c.warnf("negative kd=%v can cause instability", kd)
	}
	c.kd = kd
	c.debugf("kd set to %v", kd)
}

// SetGains replaces all three gains and clears the accumulator.
func (c *PID) SetGains(kp, ki, kd float64) {
	if kp < 0 || ki < 0 || kd < 0 {
		c.warnf("negative gains kp=%v ki=%v kd=%v can cause instability", kp, ki, kd)
	}
	c.kp, c.ki, c.kd = kp, ki, kd
	c.integral = 0
	c.debugf("gains set kp=%v ki=%v kd=%v, integral reset", kp, ki, kd)
}

// SetAntiWindupLimit sets the integral bound to |limit|, capped at |OutputMax|,
// and re-clamps the accumulator.
func (c *PID) SetAntiWindupLimit(limit float64) {
	limit = math.Abs(limit)
	if maxOut := math.Abs(c.outMax); limit > maxOut {
		c.warnf("anti-windup limit %v capped to max output %v", limit, maxOut)
		limit = maxOut
	}
	c.antiWindup = limit
	c.integral = applyLimits(c.integral, -limit, limit)
	c.debugf("anti-windup limit set to %v", limit)
}

func (c *PID) Kp() float64              { return c.kp }
func (c *PID) Ki() float64              { return c.ki }
func (c *PID) Kd() float64              { return c.kd }
func (c *PID) Integral() float64        { return c.integral }
func (c *PID) PreviousError() float64   { return c.prevError }
func (c *PID) AntiWindupLimit() float64 { return c.antiWindup }
