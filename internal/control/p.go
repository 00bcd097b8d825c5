package control

// P is a proportional-only controller. Its only state is the last output.
type P struct {
	Base
	kp float64
}

func NewP(kp float64, o Options) *P {
	c := &P{Base: newBase("p", o), kp: kp}
	if kp < 0 {
		c.warnf("negative kp=%v can cause instability", kp)
	}
	if kp == 0 {
		c.warnf("kp is zero, no control action")
	}
	return c
}

func (c *P) Kind() Kind { return KindP }

func (c *P) Init() error {
	if err := initBase(&c.Base); err != nil {
		return err
	}
	if c.kp < 0 {
		logf("p: init failed: kp=%v", c.kp)
		return ErrNegativeGain
	}
	c.Reset()
	c.debugf("initialized kp=%v", c.kp)
	return nil
}

func (c *P) Reset() {
	c.output = 0
	c.debugf("state reset")
}

func (c *P) Compute(err float64) float64 {
	c.output = c.limit(c.kp * err)
	c.debugf("error=%.3f output=%.2f", err, c.output)
	return c.output
}

func (c *P) ComputeFromMeasurement(measured float64) float64 {
	return c.Compute(c.errorFor(measured))
}

func (c *P) SetKp(kp float64) {
	if kp < 0 {
		c.warnf("negative kp=%v can cause instability", kp)
	}
	c.kp = kp
	c.debugf("kp set to %v", kp)
}

func (c *P) Kp() float64 { return c.kp }
