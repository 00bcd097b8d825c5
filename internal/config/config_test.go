package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func requireErrEq(t *testing.T, err error, want string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %q, got nil", want)
	}
	if err.Error() != want {
		t.Fatalf("error=%q want %q", err.Error(), want)
	}
}

const minimal = "controller:\n  kp: 0.5\n"

func TestLoad_DefaultsApplied(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, minimal))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Sensors.Count != 8 || cfg.Sensors.SamplePath == "" {
		t.Fatalf("sensors=%+v want count 8 with a sample path", cfg.Sensors)
	}
	c := cfg.Calibration
	if c.Store != "file" || c.Path == "" || c.StoreSize != 512 || c.StartAddress != 0 {
		t.Fatalf("calibration=%+v want file store defaults", c)
	}
	if c.Samples != 400 || c.SampleInterval != 10*time.Millisecond {
		t.Fatalf("samples=%d interval=%s want 400/10ms", c.Samples, c.SampleInterval)
	}
	k := cfg.Controller
	if k.Kind != "pid" || k.SampleInterval != 10*time.Millisecond || k.OutputMin != -1023 || k.OutputMax != 1023 {
		t.Fatalf("controller=%+v want pid defaults", k)
	}
	d := cfg.Drive
	if d.PWMFrequency != 20000 || d.BaseSpeed != 50 || d.MaxCorrection != 100 {
		t.Fatalf("drive=%+v want defaults", d)
	}
	if d.Left.PWMChannel != 0 || d.Right.PWMChannel != 1 {
		t.Fatalf("pwm channels left=%d right=%d want 0/1", d.Left.PWMChannel, d.Right.PWMChannel)
	}
	if cfg.Console.Enable {
		t.Fatalf("console enabled by default")
	}
}

func TestLoad_AT24Defaults(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, minimal+"calibration:\n  store: AT24\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	c := cfg.Calibration
	if c.Store != "at24" || c.I2CBus != "/dev/i2c-1" || c.I2CAddr != 0x50 || c.EEPROMSize != 4096 {
		t.Fatalf("calibration=%+v want at24 defaults", c)
	}
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeTempConfig(t, `
sensors:
  count: 6
  white_line: true
calibration:
  store: memory
  store_size: 128
  start_address: 16
controller:
  kind: PD
  kp: 0.1
  kd: 0.05
  sample_interval: 5ms
  setpoint: 2000
drive:
  base_speed: 35
  left: {pwm_channel: 1, direction_line: GPIO5}
  right: {pwm_channel: 0, direction_line: GPIO6, invert: true}
console:
  enable: true
  port: /dev/ttyUSB0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Sensors.Count != 6 || !cfg.Sensors.WhiteLine {
		t.Fatalf("sensors=%+v", cfg.Sensors)
	}
	if cfg.Controller.Kind != "pd" || cfg.Controller.SampleInterval != 5*time.Millisecond {
		t.Fatalf("controller=%+v", cfg.Controller)
	}
	if got := cfg.Controller.SetpointFor(6); got != 2000 {
		t.Fatalf("setpoint=%v want 2000", got)
	}
	if !cfg.Drive.Right.Invert || cfg.Drive.Left.DirectionLine != "GPIO5" {
		t.Fatalf("drive=%+v", cfg.Drive)
	}
	if cfg.Console.Baud != 115200 {
		t.Fatalf("console.baud=%d want 115200", cfg.Console.Baud)
	}
}

func TestLoad_ProportionalAllowsZeroGain(t *testing.T) {
	cfg, err := Load(writeTempConfig(t, "controller:\n  kind: p\n"))
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Controller.Kind != "p" || cfg.Controller.Kp != 0 {
		t.Fatalf("controller=%+v want p with kp=0", cfg.Controller)
	}
}

func TestSetpointFor_DefaultsToCentre(t *testing.T) {
	var k ControllerConfig
	if got := k.SetpointFor(8); got != 3500 {
		t.Fatalf("SetpointFor(8)=%v want 3500", got)
	}
	if got := k.SetpointFor(1); got != 0 {
		t.Fatalf("SetpointFor(1)=%v want 0", got)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name  string
		extra string
		want  string
	}{
		{
			name:  "SensorCount",
			extra: "sensors:\n  count: 17\n",
			want:  "sensors.count must be 1-16",
		},
		{
			name:  "UnknownStore",
			extra: "calibration:\n  store: flash\n",
			want:  "calibration.store must be one of memory, file, at24",
		},
		{
			name:  "I2CAddr",
			extra: "calibration:\n  store: at24\n  i2c_addr: 0x80\n",
			want:  "calibration.i2c_addr must be 0x03-0x77",
		},
		{
			name:  "StoreLargerThanEEPROM",
			extra: "calibration:\n  store: at24\n  eeprom_size: 256\n",
			want:  "calibration.store_size must not exceed calibration.eeprom_size",
		},
		{
			name:  "StartAddress",
			extra: "calibration:\n  start_address: 512\n",
			want:  "calibration.start_address must be within calibration.store_size",
		},
		{
			name:  "Kind",
			extra: "controller:\n  kind: lqr\n  kp: 1\n",
			want:  "controller.kind must be one of p, pd, pi, pid",
		},
		{
			name:  "ZeroGains",
			extra: "controller:\n  kind: pd\n",
			want:  "controller.kp, controller.ki and controller.kd cannot all be zero",
		},
		{
			name:  "NegativeGain",
			extra: "controller:\n  kp: 1\n  kd: -1\n",
			want:  "controller gains must be >= 0",
		},
		{
			name:  "SampleInterval",
			extra: "controller:\n  kp: 1\n  sample_interval: 100us\n",
			want:  "controller.sample_interval must be >= 1ms",
		},
		{
			name:  "OutputLimits",
			extra: "controller:\n  kp: 1\n  output_min: 10\n  output_max: -10\n",
			want:  "controller.output_min must be < controller.output_max",
		},
		{
			name:  "BaseSpeed",
			extra: "controller:\n  kp: 1\ndrive:\n  base_speed: 120\n",
			want:  "drive.base_speed must be 0-100",
		},
		{
			name:  "SameChannel",
			extra: "controller:\n  kp: 1\ndrive:\n  left: {pwm_channel: 2}\n  right: {pwm_channel: 2}\n",
			want:  "drive.left.pwm_channel and drive.right.pwm_channel must differ",
		},
		{
			name:  "ConsolePort",
			extra: "controller:\n  kp: 1\nconsole:\n  enable: true\n",
			want:  "console.port is required when console.enable is true",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			contents := tc.extra
			if !strings.Contains(tc.extra, "controller:") {
				contents = minimal + tc.extra
			}
			_, err := Load(writeTempConfig(t, contents))
			requireErrEq(t, err, tc.want)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_BadYAML(t *testing.T) {
	if _, err := Load(writeTempConfig(t, "sensors: [\n")); err == nil {
		t.Fatalf("expected error")
	}
}
