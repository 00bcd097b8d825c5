package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"linefollower/internal/calibration"
	"linefollower/internal/config"
	"linefollower/internal/control"
)

func loadTestConfig(t *testing.T, contents string) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	return cfg
}

// stubSweep feeds readings that swing each sensor between 200+i and
// 3000+i on alternate samples.
func stubSweep(t *testing.T) *int {
	t.Helper()
	calls := 0
	old := readRawFn
	readRawFn = func(path string, count int) ([]uint16, error) {
		out := make([]uint16, count)
		for i := range out {
			out[i] = uint16(200 + i)
			if calls%2 == 1 {
				out[i] = uint16(3000 + i)
			}
		}
		calls++
		return out, nil
	}
	t.Cleanup(func() { readRawFn = old })
	return &calls
}

func fileStoreConfig(t *testing.T) config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "calibration.bin")
	return loadTestConfig(t, `
sensors:
  count: 4
calibration:
  store: file
  path: `+path+`
  samples: 6
  sample_interval: 1ms
controller:
  kind: pd
  kp: 0.2
  kd: 0.01
`)
}

func TestDispatch_CalibrateStatusClear(t *testing.T) {
	calls := stubSweep(t)
	cfg := fileStoreConfig(t)
	ctx := context.Background()

	var out bytes.Buffer
	if err := dispatch(ctx, "calibrate", cfg, &out); err != nil {
		t.Fatalf("calibrate: %v", err)
	}
	if *calls != 6 {
		t.Fatalf("samples read=%d want 6", *calls)
	}
	if !strings.Contains(out.String(), "status: valid") {
		t.Fatalf("calibrate output missing valid record:\n%s", out.String())
	}

	// A fresh open sees what calibrate committed.
	r, err := openRobot(cfg)
	if err != nil {
		t.Fatalf("openRobot: %v", err)
	}
	b := calibration.NewBounds(4)
	if err := r.mgr.Load(&b); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if b.Minimum[3] != 203 || b.Maximum[3] != 3003 {
		t.Fatalf("sensor 3 min=%d max=%d want 203/3003", b.Minimum[3], b.Maximum[3])
	}
	_ = r.Close()

	out.Reset()
	if err := dispatch(ctx, "status", cfg, &out); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "stored data: valid") {
		t.Fatalf("status output:\n%s", out.String())
	}

	if err := dispatch(ctx, "clear", cfg, &out); err != nil {
		t.Fatalf("clear: %v", err)
	}
	out.Reset()
	if err := dispatch(ctx, "status", cfg, &out); err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out.String(), "stored data: none, calibration required") {
		t.Fatalf("status after clear:\n%s", out.String())
	}
}

func TestDispatch_CalibrateFlatReadingsFails(t *testing.T) {
	old := readRawFn
	readRawFn = func(path string, count int) ([]uint16, error) {
		return make([]uint16, count), nil
	}
	t.Cleanup(func() { readRawFn = old })

	err := dispatch(context.Background(), "calibrate", fileStoreConfig(t), &bytes.Buffer{})
	if !errors.Is(err, calibration.NoValidData) {
		t.Fatalf("err=%v want NoValidData", err)
	}
}

func TestDispatch_CalibrateCanceled(t *testing.T) {
	stubSweep(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := dispatch(ctx, "calibrate", fileStoreConfig(t), &bytes.Buffer{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v want context.Canceled", err)
	}
}

func TestDispatch_RunRequiresCalibration(t *testing.T) {
	cfg := loadTestConfig(t, "calibration:\n  store: memory\ncontroller:\n  kp: 1\n")
	err := dispatch(context.Background(), "run", cfg, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "run calibrate first") {
		t.Fatalf("err=%v want calibration required", err)
	}
}

func TestDispatch_UnknownCommand(t *testing.T) {
	cfg := loadTestConfig(t, "calibration:\n  store: memory\ncontroller:\n  kp: 1\n")
	if err := dispatch(context.Background(), "jump", cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error")
	}
}

type fakeConsole struct {
	bytes.Buffer
	closed int
}

func (c *fakeConsole) Name() string { return "fake" }
func (c *fakeConsole) Close() error { c.closed++; return nil }

func TestRun_FailedCommandClosesConsole(t *testing.T) {
	con := &fakeConsole{}
	old := openConsoleFn
	openConsoleFn = func(port string, baud int) (consoleSink, error) { return con, nil }
	t.Cleanup(func() { openConsoleFn = old })

	path := filepath.Join(t.TempDir(), "cfg.yaml")
	contents := "calibration:\n  store: memory\ncontroller:\n  kp: 1\nconsole:\n  enable: true\n  port: /dev/ttyFAKE\n  baud: 115200\n"
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	if code := run([]string{"-config", path, "jump"}); code != 1 {
		t.Fatalf("code=%d want 1", code)
	}
	if con.closed != 1 {
		t.Fatalf("closed=%d want 1", con.closed)
	}
	if !strings.Contains(con.String(), `unknown command "jump"`) {
		t.Fatalf("console=%q want failure logged", con.String())
	}
}

func TestRun_ExitCodes(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")
	cases := []struct {
		name string
		args []string
		want int
	}{
		{"NoCommand", nil, 2},
		{"TwoCommands", []string{"status", "clear"}, 2},
		{"BadFlag", []string{"-nope", "status"}, 2},
		{"MissingConfig", []string{"-config", missing, "status"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if code := run(tc.args); code != tc.want {
				t.Fatalf("code=%d want %d", code, tc.want)
			}
		})
	}
}

func TestOpenRobot_StartAddressTooHigh(t *testing.T) {
	cfg := loadTestConfig(t, "calibration:\n  store: memory\n  store_size: 128\n  start_address: 100\ncontroller:\n  kp: 1\n")
	_, err := openRobot(cfg)
	if !errors.Is(err, calibration.InsufficientSpace) {
		t.Fatalf("err=%v want InsufficientSpace", err)
	}
}

func TestNewController_UsesCentreSetpoint(t *testing.T) {
	cfg := loadTestConfig(t, "sensors:\n  count: 8\ncalibration:\n  store: memory\ncontroller:\n  kind: pi\n  kp: 0.3\n  ki: 0.1\n")
	c, err := newController(cfg)
	if err != nil {
		t.Fatalf("newController: %v", err)
	}
	if c.Kind() != control.KindPI {
		t.Fatalf("kind=%v want pi", c.Kind())
	}
	if c.Setpoint() != 3500 {
		t.Fatalf("setpoint=%v want 3500", c.Setpoint())
	}
	if lo, hi := c.OutputLimits(); lo != -1023 || hi != 1023 {
		t.Fatalf("limits=(%v,%v) want (-1023,1023)", lo, hi)
	}
}

func TestPositionSource(t *testing.T) {
	old := readRawFn
	readRawFn = func(path string, count int) ([]uint16, error) {
		return []uint16{100, 100, 1100, 100}, nil
	}
	t.Cleanup(func() { readRawFn = old })

	b := calibration.Bounds{
		Minimum: []uint16{100, 100, 100, 100},
		Maximum: []uint16{1100, 1100, 1100, 1100},
	}
	read := positionSource(config.SensorsConfig{Count: 4}, b)
	pos, err := read()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if pos != 2000 {
		t.Fatalf("pos=%v want 2000", pos)
	}
}
