package main

import (
	"errors"
	"fmt"
	"log"

	"linefollower/internal/calibration"
	"linefollower/internal/config"
	"linefollower/internal/i2c"
	"linefollower/internal/store"
)

// byteStore is a calibration.Store that needs sizing before use.
type byteStore interface {
	calibration.Store
	Begin(size int) error
}

// robot holds the resources shared by every command.
type robot struct {
	cfg    config.Config
	st     byteStore
	mgr    *calibration.Manager
	closer []func() error
}

func openRobot(cfg config.Config) (*robot, error) {
	r := &robot{cfg: cfg}
	st, err := r.openStore()
	if err != nil {
		r.Close()
		return nil, err
	}
	if err := st.Begin(cfg.Calibration.StoreSize); err != nil {
		r.Close()
		return nil, fmt.Errorf("calibration store begin: %w", err)
	}
	r.st = st

	r.mgr = calibration.NewManager(st, calibration.ManagerConfig{
		SensorCount:  cfg.Sensors.Count,
		Debug:        cfg.Calibration.Debug,
		StoreSize:    cfg.Calibration.StoreSize,
		StartAddress: cfg.Calibration.StartAddress,
	})
	if !r.mgr.Initialized() {
		err := r.mgr.LastError()
		r.Close()
		return nil, fmt.Errorf("calibration manager: %w (%s)", err, err.Description())
	}
	log.Printf("calibration store=%s size=%d start=%d sensors=%d",
		cfg.Calibration.Store, cfg.Calibration.StoreSize, cfg.Calibration.StartAddress, cfg.Sensors.Count)
	return r, nil
}

func (r *robot) openStore() (byteStore, error) {
	c := r.cfg.Calibration
	switch c.Store {
	case "memory":
		return store.NewMemory(), nil
	case "file":
		f := store.NewFile(c.Path)
		r.closer = append(r.closer, f.Close)
		return f, nil
	case "at24":
		bus, err := i2c.Open(c.I2CBus)
		if err != nil {
			return nil, err
		}
		r.closer = append(r.closer, bus.Close)
		dev, err := bus.Dev(uint16(c.I2CAddr))
		if err != nil {
			return nil, err
		}
		return store.NewAT24(dev, c.EEPROMSize)
	default:
		return nil, fmt.Errorf("unknown calibration store %q", c.Store)
	}
}

// Close releases resources in reverse order of acquisition.
func (r *robot) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	for i := len(r.closer) - 1; i >= 0; i-- {
		errs = append(errs, r.closer[i]())
	}
	r.closer = nil
	return errors.Join(errs...)
}
