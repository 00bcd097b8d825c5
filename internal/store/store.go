// Package store provides byte-addressable persistent memories with the
// begin/read/write/commit contract of microcontroller EEPROM emulation:
// Begin sizes a working window, writes land in that window, and Commit makes
// them durable.
package store

import (
	"errors"
	"fmt"
)

var (
	ErrNotBegun = errors.New("store: Begin has not been called")
	ErrInjected = errors.New("store: injected fault")
)

func checkAddr(addr, size int) error {
	if addr < 0 || addr >= size {
		return fmt.Errorf("store: address %d out of range [0,%d)", addr, size)
	}
	return nil
}

func checkSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("store: invalid size %d", size)
	}
	return nil
}
