//go:build linux

package drive

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// sysfsPWM drives one channel of a /sys/class/pwm chip. Motor drivers want a
// steady carrier above the audible range, so the frequency is set once at
// start and only the duty changes per tick.
type sysfsPWM struct {
	chipPath string
	pwmPath  string
	channel  int

	periodNS uint64
	enabled  bool
}

var pwmSysfsBase = "/sys/class/pwm"

const defaultPeriodNS = 1_000_000_000 / 20_000

// openPWM exports channel on chip (a name like "pwmchip0"); an empty chip
// picks the first chip with enough channels.
func openPWM(chip string, channel int) (pwmChannel, error) {
	if channel < 0 {
		return nil, fmt.Errorf("drive: invalid pwm channel %d", channel)
	}
	chipPath, err := findPWMChip(chip, channel)
	if err != nil {
		return nil, err
	}

	d := &sysfsPWM{
		chipPath: chipPath,
		channel:  channel,
		pwmPath:  filepath.Join(chipPath, fmt.Sprintf("pwm%d", channel)),
	}
	if err := d.ensureExported(); err != nil {
		return nil, err
	}
	_ = d.writeBool("enable", false)
	return d, nil
}

func findPWMChip(want string, channel int) (string, error) {
	base := pwmSysfsBase
	if want != "" {
		chip := filepath.Join(base, want)
		n, err := readInt(filepath.Join(chip, "npwm"))
		if err != nil {
			return "", fmt.Errorf("drive: %s: %w", chip, err)
		}
		if channel >= n {
			return "", fmt.Errorf("drive: %s has %d channels, need channel %d", want, n, channel)
		}
		return chip, nil
	}

	entries, err := os.ReadDir(base)
	if err != nil {
		return "", fmt.Errorf("drive: read %s: %w", base, err)
	}
	// pwmchipN entries are usually symlinks, so filter by name only.
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "pwmchip") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	for _, name := range names {
		chip := filepath.Join(base, name)
		n, err := readInt(filepath.Join(chip, "npwm"))
		if err != nil || n <= channel {
			continue
		}
		return chip, nil
	}
	return "", fmt.Errorf("drive: no sysfs pwmchip with channel %d (is the pwm overlay enabled?)", channel)
}

func (d *sysfsPWM) ensureExported() error {
	if _, err := os.Stat(d.pwmPath); err == nil {
		return nil
	}
	if err := writeSysfs(filepath.Join(d.chipPath, "export"), strconv.Itoa(d.channel)); err != nil {
		if _, statErr := os.Stat(d.pwmPath); statErr == nil {
			return nil
		}
		return fmt.Errorf("drive: export pwm%d: %w", d.channel, err)
	}

	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(d.pwmPath); err == nil {
			return nil
		}
		time.Sleep(10 * time.Millisecond)
	}
	if _, err := os.Stat(d.pwmPath); err != nil {
		return fmt.Errorf("drive: pwm%d not created after export: %w", d.channel, err)
	}
	return nil
}

// Close stops the output. The channel stays exported.
func (d *sysfsPWM) Close() error {
	err := d.writeUint("duty_cycle", 0)
	if derr := d.writeBool("enable", false); err == nil {
		err = derr
	}
	d.enabled = false
	return err
}

func (d *sysfsPWM) SetFrequencyHz(hz int) error {
	if hz <= 0 {
		return fmt.Errorf("drive: invalid frequency %d", hz)
	}
	periodNS := uint64(1_000_000_000 / hz)
	if periodNS == 0 {
		periodNS = 1
	}

	// The kernel rejects a period shorter than the current duty cycle.
	_ = d.writeBool("enable", false)
	d.enabled = false
	if err := d.writeUint("duty_cycle", 0); err != nil {
		return err
	}
	if err := d.writeUint("period", periodNS); err != nil {
		return err
	}
	d.periodNS = periodNS

	if err := d.writeBool("enable", true); err != nil {
		return err
	}
	d.enabled = true
	return nil
}

func (d *sysfsPWM) SetDutyPercent(p float64) error {
	p = clamp(p, 0, 100)
	if d.periodNS == 0 {
		d.periodNS = defaultPeriodNS
	}

	duty := uint64(math.Round(float64(d.periodNS) * (p / 100.0)))
	if duty > d.periodNS {
		duty = d.periodNS
	}
	if err := d.writeUint("duty_cycle", duty); err != nil {
		return err
	}
	if !d.enabled {
		_ = d.writeBool("enable", true)
		d.enabled = true
	}
	return nil
}

func (d *sysfsPWM) writeUint(name string, v uint64) error {
	return writeSysfs(filepath.Join(d.pwmPath, name), strconv.FormatUint(v, 10))
}

func (d *sysfsPWM) writeBool(name string, v bool) error {
	val := "0"
	if v {
		val = "1"
	}
	return writeSysfs(filepath.Join(d.pwmPath, name), val)
}

// writeSysfs opens without O_TRUNC/O_CREATE, which some attributes reject, and
// retries briefly on permission or missing-file errors while udev settles a
// freshly exported channel.
func writeSysfs(path string, value string) error {
	deadline := time.Now().Add(2 * time.Second)
	for {
		f, err := os.OpenFile(path, os.O_WRONLY, 0)
		if err == nil {
			_, werr := f.WriteString(value)
			err = errors.Join(werr, f.Close())
			if err == nil {
				return nil
			}
		}
		if !time.Now().Before(deadline) || !isRetryableSysfsErr(err) {
			return err
		}
		time.Sleep(25 * time.Millisecond)
	}
}

func isRetryableSysfsErr(err error) bool {
	return os.IsPermission(err) || os.IsNotExist(err) ||
		errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.ENOENT)
}

func readInt(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	s := strings.TrimSpace(string(b))
	if s == "" {
		return 0, fmt.Errorf("%s is empty", path)
	}
	return strconv.Atoi(s)
}
