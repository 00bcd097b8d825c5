package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Sensors     SensorsConfig     `yaml:"sensors"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Controller  ControllerConfig  `yaml:"controller"`
	Drive       DriveConfig       `yaml:"drive"`
	Console     ConsoleConfig     `yaml:"console"`
}

type SensorsConfig struct {
	Count int `yaml:"count"`
	// SamplePath is the file the sampling daemon rewrites with one line of
	// raw readings per scan.
	SamplePath string `yaml:"sample_path"`
	WhiteLine  bool   `yaml:"white_line"`
}

type CalibrationConfig struct {
	// Store selects the backing memory: "memory", "file" or "at24".
	Store string `yaml:"store"`
	Path  string `yaml:"path"`

	I2CBus     string `yaml:"i2c_bus"`
	I2CAddr    int    `yaml:"i2c_addr"`
	EEPROMSize int    `yaml:"eeprom_size"`

	StoreSize    int  `yaml:"store_size"`
	StartAddress int  `yaml:"start_address"`
	Debug        bool `yaml:"debug"`

	// Samples and SampleInterval pace the calibration sweep.
	Samples        int           `yaml:"samples"`
	SampleInterval time.Duration `yaml:"sample_interval"`
}

type ControllerConfig struct {
	Kind       string  `yaml:"kind"`
	Kp         float64 `yaml:"kp"`
	Ki         float64 `yaml:"ki"`
	Kd         float64 `yaml:"kd"`
	AntiWindup float64 `yaml:"anti_windup"`

	SampleInterval time.Duration `yaml:"sample_interval"`
	OutputMin      float64       `yaml:"output_min"`
	OutputMax      float64       `yaml:"output_max"`
	// Setpoint defaults to the centre of the sensor array when unset.
	Setpoint *float64 `yaml:"setpoint"`
	Debug    bool     `yaml:"debug"`
}

type MotorConfig struct {
	PWMChannel    int    `yaml:"pwm_channel"`
	DirectionLine string `yaml:"direction_line"`
	Invert        bool   `yaml:"invert"`
}

type DriveConfig struct {
	PWMChip       string      `yaml:"pwm_chip"`
	PWMFrequency  int         `yaml:"pwm_frequency"`
	BaseSpeed     float64     `yaml:"base_speed"`
	MaxCorrection float64     `yaml:"max_correction"`
	Left          MotorConfig `yaml:"left"`
	Right         MotorConfig `yaml:"right"`
}

type ConsoleConfig struct {
	Enable bool   `yaml:"enable"`
	Port   string `yaml:"port"`
	Baud   int    `yaml:"baud"`
}

const maxSensors = 16

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.applyDefaults(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (cfg *Config) applyDefaults() error {
	s := &cfg.Sensors
	if s.Count == 0 {
		s.Count = 8
	}
	if s.Count < 1 || s.Count > maxSensors {
		return fmt.Errorf("sensors.count must be 1-%d", maxSensors)
	}
	if s.SamplePath == "" {
		s.SamplePath = "/run/linefollower/sensors"
	}

	c := &cfg.Calibration
	c.Store = strings.ToLower(strings.TrimSpace(c.Store))
	if c.Store == "" {
		c.Store = "file"
	}
	switch c.Store {
	case "memory":
	case "file":
		if c.Path == "" {
			c.Path = "/var/lib/linefollower/calibration.bin"
		}
	case "at24":
		if c.I2CBus == "" {
			c.I2CBus = "/dev/i2c-1"
		}
		if c.I2CAddr == 0 {
			c.I2CAddr = 0x50
		}
		if c.I2CAddr < 0x03 || c.I2CAddr > 0x77 {
			return fmt.Errorf("calibration.i2c_addr must be 0x03-0x77")
		}
		if c.EEPROMSize == 0 {
			c.EEPROMSize = 4096
		}
	default:
		return fmt.Errorf("calibration.store must be one of memory, file, at24")
	}
	if c.StoreSize == 0 {
		c.StoreSize = 512
	}
	if c.StoreSize < 0 {
		return fmt.Errorf("calibration.store_size must be > 0")
	}
	if c.Store == "at24" && c.StoreSize > c.EEPROMSize {
		return fmt.Errorf("calibration.store_size must not exceed calibration.eeprom_size")
	}
	if c.StartAddress < 0 || c.StartAddress >= c.StoreSize {
		return fmt.Errorf("calibration.start_address must be within calibration.store_size")
	}
	if c.Samples <= 0 {
		c.Samples = 400
	}
	if c.SampleInterval <= 0 {
		c.SampleInterval = 10 * time.Millisecond
	}

	k := &cfg.Controller
	k.Kind = strings.ToLower(strings.TrimSpace(k.Kind))
	if k.Kind == "" {
		k.Kind = "pid"
	}
	switch k.Kind {
	case "p", "pd", "pi", "pid":
	default:
		return fmt.Errorf("controller.kind must be one of p, pd, pi, pid")
	}
	// kp=0 is legal for p; the other kinds refuse to initialize with every
	// gain at zero.
	if k.Kind != "p" && k.Kp == 0 && k.Ki == 0 && k.Kd == 0 {
		return fmt.Errorf("controller.kp, controller.ki and controller.kd cannot all be zero")
	}
	if k.Kp < 0 || k.Ki < 0 || k.Kd < 0 {
		return fmt.Errorf("controller gains must be >= 0")
	}
	if k.AntiWindup < 0 {
		return fmt.Errorf("controller.anti_windup must be >= 0")
	}
	if k.SampleInterval == 0 {
		k.SampleInterval = 10 * time.Millisecond
	}
	if k.SampleInterval < time.Millisecond {
		return fmt.Errorf("controller.sample_interval must be >= 1ms")
	}
	if k.OutputMin == 0 && k.OutputMax == 0 {
		k.OutputMin, k.OutputMax = -1023, 1023
	}
	if k.OutputMin >= k.OutputMax {
		return fmt.Errorf("controller.output_min must be < controller.output_max")
	}

	d := &cfg.Drive
	if d.PWMFrequency == 0 {
		d.PWMFrequency = 20000
	}
	if d.PWMFrequency < 0 {
		return fmt.Errorf("drive.pwm_frequency must be > 0")
	}
	if d.BaseSpeed == 0 {
		d.BaseSpeed = 50
	}
	if d.BaseSpeed < 0 || d.BaseSpeed > 100 {
		return fmt.Errorf("drive.base_speed must be 0-100")
	}
	if d.MaxCorrection == 0 {
		d.MaxCorrection = 100
	}
	if d.MaxCorrection < 0 || d.MaxCorrection > 200 {
		return fmt.Errorf("drive.max_correction must be 0-200")
	}
	if d.Right.PWMChannel == 0 && d.Left.PWMChannel == 0 {
		d.Right.PWMChannel = 1
	}
	if d.Left.PWMChannel == d.Right.PWMChannel {
		return fmt.Errorf("drive.left.pwm_channel and drive.right.pwm_channel must differ")
	}

	con := &cfg.Console
	if con.Enable {
		if con.Port == "" {
			return fmt.Errorf("console.port is required when console.enable is true")
		}
		if con.Baud == 0 {
			con.Baud = 115200
		}
		if con.Baud < 0 {
			return fmt.Errorf("console.baud must be > 0")
		}
	}
	return nil
}

// SetpointFor returns the configured setpoint, or the centre position of an
// array of n sensors (positions run 0..(n-1)*1000).
func (k ControllerConfig) SetpointFor(n int) float64 {
	if k.Setpoint != nil {
		return *k.Setpoint
	}
	if n < 1 {
		return 0
	}
	return float64(n-1) * 500
}
