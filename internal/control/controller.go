package control

import (
	"fmt"
	"strings"
	"time"
)

// Kind identifies one of the closed set of controller variants.
type Kind int

const (
	KindUnknown Kind = iota
	KindP
	KindPD
	KindPI
	KindPID
)

func (k Kind) String() string {
	switch k {
	case KindP:
		return "p"
	case KindPD:
		return "pd"
	case KindPI:
		return "pi"
	case KindPID:
		return "pid"
	default:
		return "unknown"
	}
}

// ParseKind accepts the lower- or upper-case variant name ("p", "pd", "pi", "pid").
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "p":
		return KindP, nil
	case "pd":
		return KindPD, nil
	case "pi":
		return KindPI, nil
	case "pid":
		return KindPID, nil
	default:
		return KindUnknown, fmt.Errorf("control: unknown controller kind %q", s)
	}
}

// Controller is implemented by *P, *PD, *PI and *PID only.
//
// Callers must check Init before the first Compute. Not safe for concurrent use.
type Controller interface {
	Kind() Kind
	Init() error
	Reset()
	// Compute runs one control tick on the error signal and returns the
	// output, always within the configured limits.
	Compute(err float64) float64
	// ComputeFromMeasurement uses setpoint - measured as the error.
	ComputeFromMeasurement(measured float64) float64

	SetSampleInterval(d time.Duration)
	SetOutputLimits(min, max float64)
	SetSetpoint(v float64)
	SetDebugEnabled(enabled bool)

	Setpoint() float64
	Output() float64
	SampleInterval() time.Duration
	OutputLimits() (min, max float64)
	DebugEnabled() bool

	base() *Base
}

// Config selects and parameterizes a controller variant.
type Config struct {
	Kind Kind
	Kp   float64
	Ki   float64
	Kd   float64
	// AntiWindup overrides the default integral bound (|OutputMax|) for PI and
	// PID when > 0.
	AntiWindup float64
	Options
}

// New builds the variant named by cfg.Kind. Gains that the variant does not
// use are ignored. The returned controller still needs Init.
func New(cfg Config) (Controller, error) {
	switch cfg.Kind {
	case KindP:
		return NewP(cfg.Kp, cfg.Options), nil
	case KindPD:
		return NewPD(cfg.Kp, cfg.Kd, cfg.Options), nil
	case KindPI:
		c := NewPI(cfg.Kp, cfg.Ki, cfg.Options)
		if cfg.AntiWindup > 0 {
			c.SetAntiWindupLimit(cfg.AntiWindup)
		}
		return c, nil
	case KindPID:
		c := NewPID(cfg.Kp, cfg.Ki, cfg.Kd, cfg.Options)
		if cfg.AntiWindup > 0 {
			c.SetAntiWindupLimit(cfg.AntiWindup)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("control: unsupported controller kind %v", cfg.Kind)
	}
}

// initBase runs the shared validation and logs the outcome.
func initBase(b *Base) error {
	if err := b.validate(); err != nil {
		logf("%s: init failed: %v", b.name, err)
		return err
	}
	return nil
}
