package control

// PD is a proportional-derivative controller. The derivative is taken on the
// error signal using the error from the previous tick.
type PD struct {
	Base
	kp, kd    float64
	prevError float64
}

func NewPD(kp, kd float64, o Options) *PD {
	c := &PD{Base: newBase("pd", o), kp: kp, kd: kd}
	if kp < 0 {
		c.warnf("negative kp=%v can cause instability", kp)
	}
	if kd < 0 {
		c.warnf("negative kd=%v reduces damping", kd)
	}
	if kp == 0 && kd == 0 {
		c.warnf("both gains are zero, no control action")
	}
	if kd > kp*2 {
		c.warnf("kd=%v is high relative to kp=%v, response may be sluggish", kd, kp)
	}
	if kd > 0 && c.dt > 0.1 {
		c.warnf("sample interval %s may cause derivative noise", c.interval)
	}
	return c
}

func (c *PD) Kind() Kind { return KindPD }

func (c *PD) Init() error {
	if err := initBase(&c.Base); err != nil {
		return err
	}
	if c.kp < 0 || c.kd < 0 {
		logf("pd: init failed: kp=%v kd=%v", c.kp, c.kd)
		return ErrNegativeGain
	}
	if c.kp == 0 && c.kd == 0 {
		logf("pd: init failed: all gains zero")
		return ErrZeroGains
	}
	if c.kd > 0 && c.dt > 0.05 {
		c.warnf("sample interval %s may cause derivative noise", c.interval)
	}
	c.Reset()
	c.debugf("initialized kp=%v kd=%v", c.kp, c.kd)
	return nil
}

func (c *PD) Reset() {
	c.prevError = 0
	c.output = 0
	c.debugf("state reset, derivative history cleared")
}

func (c *PD) Compute(err float64) float64 {
	p := c.kp * err
	rate := (err - c.prevError) / c.dt
	d := c.kd * rate
	c.prevError = err

	c.output = c.limit(p + d)
	c.debugf("error=%.3f rate=%.3f P=%.2f D=%.2f output=%.2f", err, rate, p, d, c.output)
	return c.output
}

func (c *PD) ComputeFromMeasurement(measured float64) float64 {
	return c.Compute(c.errorFor(measured))
}

func (c *PD) SetKp(kp float64) {
	if kp < 0 {
		c.warnf("negative kp=%v can cause instability", kp)
	}
	c.kp = kp
	c.debugf("kp set to %v", kp)
}

func (c *PD) SetKd(kd float64) {
	if kd < 0 {
		c.warnf("negative kd=%v reduces damping", kd)
	}
	c.kd = kd
	c.debugf("kd set to %v", kd)
}

func (c *PD) SetGains(kp, kd float64) {
	if kp < 0 || kd < 0 {
		c.warnf("negative gains kp=%v kd=%v can cause instability", kp, kd)
	}
	c.kp, c.kd = kp, kd
	c.debugf("gains set kp=%v kd=%v", kp, kd)
}

func (c *PD) Kp() float64            { return c.kp }
func (c *PD) Kd() float64            { return c.kd }
func (c *PD) PreviousError() float64 { return c.prevError }
