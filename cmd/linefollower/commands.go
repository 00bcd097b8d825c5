package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"linefollower/internal/calibration"
	"linefollower/internal/config"
	"linefollower/internal/control"
	"linefollower/internal/drive"
	"linefollower/internal/linesensor"
)

var readRawFn = linesensor.ReadRaw

func newController(cfg config.Config) (control.Controller, error) {
	kind, err := control.ParseKind(cfg.Controller.Kind)
	if err != nil {
		return nil, err
	}
	k := cfg.Controller
	c, err := control.New(control.Config{
		Kind:       kind,
		Kp:         k.Kp,
		Ki:         k.Ki,
		Kd:         k.Kd,
		AntiWindup: k.AntiWindup,
		Options: control.Options{
			SampleInterval: k.SampleInterval,
			OutputMin:      k.OutputMin,
			OutputMax:      k.OutputMax,
			Debug:          k.Debug,
		},
	})
	if err != nil {
		return nil, err
	}
	if err := c.Init(); err != nil {
		return nil, fmt.Errorf("controller init: %w", err)
	}
	c.SetSetpoint(k.SetpointFor(cfg.Sensors.Count))
	return c, nil
}

// positionSource reads one raw scan, normalizes it with b and reduces it to a
// line position.
func positionSource(cfg config.SensorsConfig, b calibration.Bounds) drive.PositionFunc {
	tr := &linesensor.Tracker{WhiteLine: cfg.WhiteLine}
	return func() (float64, error) {
		raw, err := readRawFn(cfg.SamplePath, cfg.Count)
		if err != nil {
			return 0, err
		}
		pos, _ := tr.Position(linesensor.Normalize(raw, b))
		return float64(pos), nil
	}
}

func runFollow(ctx context.Context, r *robot) error {
	b := calibration.NewBounds(r.cfg.Sensors.Count)
	if err := r.mgr.Load(&b); err != nil {
		var code calibration.ErrorCode
		if errors.As(err, &code) {
			return fmt.Errorf("no usable calibration (%s); run calibrate first", code.Description())
		}
		return err
	}

	ctl, err := newController(r.cfg)
	if err != nil {
		return err
	}

	d := r.cfg.Drive
	svc := drive.New(drive.Config{
		PWMChip:       d.PWMChip,
		PWMFrequency:  d.PWMFrequency,
		BaseSpeed:     d.BaseSpeed,
		MaxCorrection: d.MaxCorrection,
		Left:          drive.MotorConfig(d.Left),
		Right:         drive.MotorConfig(d.Right),
	}, ctl, positionSource(r.cfg.Sensors, b))
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Close()

	status := time.NewTicker(5 * time.Second)
	defer status.Stop()
	for {
		select {
		case <-ctx.Done():
			snap := svc.Snapshot()
			log.Printf("stopping ticks=%d", snap.Ticks)
			return nil
		case <-status.C:
			snap := svc.Snapshot()
			log.Printf("drive position=%.0f output=%.1f left=%.0f right=%.0f ticks=%d err=%q",
				snap.Position, snap.Output, snap.Left, snap.Right, snap.Ticks, snap.LastError)
		}
	}
}

func runCalibrate(ctx context.Context, r *robot, out io.Writer) error {
	s := r.cfg.Sensors
	c := r.cfg.Calibration
	cal := linesensor.NewCalibrator(s.Count)
	log.Printf("calibrating: sweep the sensors across the line (%d samples every %s)", c.Samples, c.SampleInterval)

	t := time.NewTicker(c.SampleInterval)
	defer t.Stop()
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		raw, err := readRawFn(s.SamplePath, s.Count)
		if err != nil {
			return err
		}
		cal.Observe(raw)
		if cal.Samples() >= c.Samples {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	if err := r.mgr.Save(cal.Bounds()); err != nil {
		return err
	}
	r.mgr.DisplayStoredCalibration(out)
	return nil
}
