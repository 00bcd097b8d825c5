//go:build !linux

package drive

import "fmt"

func openLine(name, consumer string) (directionLine, error) {
	return nil, fmt.Errorf("drive: gpio unsupported on this platform")
}
