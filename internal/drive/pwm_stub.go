//go:build !linux

package drive

import "fmt"

func openPWM(chip string, channel int) (pwmChannel, error) {
	return nil, fmt.Errorf("drive: pwm unsupported on this platform")
}
