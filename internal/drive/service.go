package drive

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"linefollower/internal/control"
)

// PositionFunc returns the current line position in the controller's units.
type PositionFunc func() (float64, error)

type MotorConfig struct {
	// PWMChannel is the channel index on the PWM chip.
	PWMChannel int
	// DirectionLine is the GPIO line name for the H-bridge direction input.
	// Empty means the motor only runs forward.
	DirectionLine string
	// Invert swaps forward and reverse for a motor mounted mirrored.
	Invert bool
}

type Config struct {
	// PWMChip is the sysfs chip name (e.g. "pwmchip0"); empty autodetects.
	PWMChip      string
	PWMFrequency int
	Left         MotorConfig
	Right        MotorConfig

	// BaseSpeed is the forward speed in percent while the line is centred.
	BaseSpeed float64
	// MaxCorrection is the steering demand in percent when the controller
	// output sits at its limit.
	MaxCorrection float64
	// Interval is the control tick; zero uses the controller's sample
	// interval.
	Interval time.Duration
}

type Snapshot struct {
	Running bool `json:"running"`

	Position float64 `json:"position"`
	Output   float64 `json:"output"`
	Left     float64 `json:"left"`
	Right    float64 `json:"right"`
	Ticks    uint64  `json:"ticks"`

	LastUpdateAt time.Time `json:"last_update_utc,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
}

// Service owns a controller and the motors. The controller is touched only
// by the loop goroutine once Start returns.
type Service struct {
	cfg  Config
	ctl  control.Controller
	read PositionFunc

	mu   sync.RWMutex
	snap Snapshot

	drvMu sync.Mutex
	drv   motorDriver

	wg sync.WaitGroup

	stopOnce sync.Once
	stopCh   chan struct{}
}

func New(cfg Config, ctl control.Controller, read PositionFunc) *Service {
	if cfg.PWMFrequency == 0 {
		cfg.PWMFrequency = 20000
	}
	if cfg.MaxCorrection == 0 {
		cfg.MaxCorrection = 100
	}
	if cfg.Interval <= 0 && ctl != nil {
		cfg.Interval = ctl.SampleInterval()
	}
	return &Service{cfg: cfg, ctl: ctl, read: read, stopCh: make(chan struct{})}
}

func (s *Service) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *Service) setState(update func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	update(&s.snap)
	s.snap.LastUpdateAt = time.Now().UTC()
}

// Start opens the motors and launches the control loop. It returns once the
// loop is running; the loop stops on ctx cancellation or Close.
func (s *Service) Start(ctx context.Context) error {
	if s == nil {
		return errors.New("drive: service is nil")
	}
	if s.ctl == nil || s.read == nil {
		return errors.New("drive: controller and position source are required")
	}
	if s.cfg.Interval <= 0 {
		return fmt.Errorf("drive: invalid interval %v", s.cfg.Interval)
	}

	drv, err := openMotorsFn(s.cfg)
	if err != nil {
		s.setState(func(sn *Snapshot) { sn.LastError = err.Error() })
		return err
	}
	if err := drv.SetFrequencyHz(s.cfg.PWMFrequency); err != nil {
		_ = drv.Close()
		s.setState(func(sn *Snapshot) { sn.LastError = err.Error() })
		return err
	}
	s.drvMu.Lock()
	s.drv = drv
	s.drvMu.Unlock()

	s.ctl.Reset()
	s.setState(func(sn *Snapshot) {
		sn.Running = true
		sn.LastError = ""
	})
	log.Printf("drive: running kind=%v interval=%v base=%.0f%%", s.ctl.Kind(), s.cfg.Interval, s.cfg.BaseSpeed)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx, drv)
	}()

	go func() {
		select {
		case <-ctx.Done():
			s.Close()
		case <-s.stopCh:
		}
	}()
	return nil
}

// Close stops the loop and leaves both motors stopped. Safe to call more than
// once.
func (s *Service) Close() {
	if s == nil {
		return
	}
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
	s.wg.Wait()

	s.drvMu.Lock()
	drv := s.drv
	s.drv = nil
	s.drvMu.Unlock()
	if drv != nil {
		if err := drv.Close(); err != nil {
			log.Printf("drive: close motors: %v", err)
		}
	}
	s.setState(func(sn *Snapshot) {
		sn.Running = false
		sn.Left, sn.Right = 0, 0
	})
}

func (s *Service) run(ctx context.Context, drv motorDriver) {
	defer func() {
		_ = drv.SetSpeeds(0, 0)
	}()

	t := time.NewTicker(s.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-t.C:
			s.tick(drv)
		}
	}
}

// correction scales the controller output into a steering percentage.
func (s *Service) correction(out float64) float64 {
	lo, hi := s.ctl.OutputLimits()
	span := math.Max(math.Abs(lo), math.Abs(hi))
	if span == 0 {
		return 0
	}
	return out / span * s.cfg.MaxCorrection
}

func (s *Service) tick(drv motorDriver) {
	pos, err := s.read()
	if err != nil {
		// Fail-safe: no position, no steering.
		serr := drv.SetSpeeds(0, 0)
		s.setState(func(sn *Snapshot) {
			sn.LastError = errors.Join(err, serr).Error()
			sn.Left, sn.Right = 0, 0
		})
		return
	}

	out := s.ctl.ComputeFromMeasurement(pos)
	left, right := Mix(s.cfg.BaseSpeed, s.correction(out))
	if err := drv.SetSpeeds(left, right); err != nil {
		s.setState(func(sn *Snapshot) {
			sn.LastError = fmt.Sprintf("drive: set speeds: %v", err)
		})
		return
	}
	s.setState(func(sn *Snapshot) {
		sn.Position = pos
		sn.Output = out
		sn.Left = left
		sn.Right = right
		sn.Ticks++
		sn.LastError = ""
	})
}
