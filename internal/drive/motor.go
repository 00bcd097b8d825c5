// Package drive runs the steering loop: it turns line positions into
// differential motor speeds through a control.Controller.
package drive

import (
	"errors"
	"fmt"
	"math"
)

// pwmChannel is one hardware PWM output. Duty is 0..100 percent.
type pwmChannel interface {
	SetFrequencyHz(hz int) error
	SetDutyPercent(p float64) error
	Close() error
}

// directionLine is the H-bridge direction input of one motor.
type directionLine interface {
	SetValue(v int) error
	Close() error
}

// motorDriver is what the service loop needs from the motor hardware. Speeds
// are signed percent; negative runs the motor backwards.
//
// Close must leave both motors stopped.
type motorDriver interface {
	SetFrequencyHz(hz int) error
	SetSpeeds(left, right float64) error
	Close() error
}

var (
	openPWMFn    = openPWM
	openLineFn   = openLine
	openMotorsFn = openMotors
)

// motor pairs a PWM channel with a direction line.
type motor struct {
	pwm    pwmChannel
	dir    directionLine
	invert bool
}

func (m *motor) set(pct float64) error {
	if math.IsNaN(pct) {
		pct = 0
	}
	pct = clamp(pct, -100, 100)
	forward := pct >= 0
	if m.invert {
		forward = !forward
	}
	v := 0
	if forward {
		v = 1
	}
	if m.dir != nil {
		if err := m.dir.SetValue(v); err != nil {
			return fmt.Errorf("drive: set direction: %w", err)
		}
	}
	if err := m.pwm.SetDutyPercent(math.Abs(pct)); err != nil {
		return fmt.Errorf("drive: set duty: %w", err)
	}
	return nil
}

func (m *motor) close() error {
	var errs []error
	if m.pwm != nil {
		errs = append(errs, m.pwm.SetDutyPercent(0), m.pwm.Close())
	}
	if m.dir != nil {
		errs = append(errs, m.dir.Close())
	}
	return errors.Join(errs...)
}

type motorPair struct {
	left, right *motor
}

func openMotor(chip string, mc MotorConfig, consumer string) (*motor, error) {
	pwm, err := openPWMFn(chip, mc.PWMChannel)
	if err != nil {
		return nil, err
	}
	m := &motor{pwm: pwm, invert: mc.Invert}
	if mc.DirectionLine != "" {
		dir, err := openLineFn(mc.DirectionLine, consumer)
		if err != nil {
			_ = pwm.Close()
			return nil, err
		}
		m.dir = dir
	}
	return m, nil
}

func openMotors(cfg Config) (motorDriver, error) {
	left, err := openMotor(cfg.PWMChip, cfg.Left, "linefollower-left")
	if err != nil {
		return nil, fmt.Errorf("drive: left motor: %w", err)
	}
	right, err := openMotor(cfg.PWMChip, cfg.Right, "linefollower-right")
	if err != nil {
		_ = left.close()
		return nil, fmt.Errorf("drive: right motor: %w", err)
	}
	return &motorPair{left: left, right: right}, nil
}

func (p *motorPair) SetFrequencyHz(hz int) error {
	if err := p.left.pwm.SetFrequencyHz(hz); err != nil {
		return fmt.Errorf("drive: left pwm frequency: %w", err)
	}
	if err := p.right.pwm.SetFrequencyHz(hz); err != nil {
		return fmt.Errorf("drive: right pwm frequency: %w", err)
	}
	return nil
}

func (p *motorPair) SetSpeeds(left, right float64) error {
	if err := p.left.set(left); err != nil {
		return fmt.Errorf("left: %w", err)
	}
	if err := p.right.set(right); err != nil {
		return fmt.Errorf("right: %w", err)
	}
	return nil
}

func (p *motorPair) Close() error {
	return errors.Join(p.left.close(), p.right.close())
}
