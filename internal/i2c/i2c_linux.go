//go:build linux

package i2c

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Transfers go through the I2C_RDWR ioctl so a write followed by a read
// happens under one repeated start. Serial EEPROMs need that for random reads:
// the word address is written, then the data is clocked out without a stop.

const (
	flagRead  = 0x0001
	ioctlRdwr = 0x0707

	// MaxTransfer is the largest single message the kernel accepts.
	MaxTransfer = 8192
)

// i2c_msg and i2c_rdwr_ioctl_data from <linux/i2c-dev.h>.
type kmsg struct {
	addr  uint16
	flags uint16
	len   uint16
	buf   uintptr
}

type kxfer struct {
	msgs  uintptr
	nmsgs uint32
}

var ErrClosed = errors.New("i2c: bus is closed")

// Bus is an opened adapter such as /dev/i2c-1. Transfers on one Bus are not
// serialized; callers coordinate if they share it.
type Bus struct {
	f    *os.File
	path string
}

func Open(path string) (*Bus, error) {
	path = filepath.Clean(path)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("i2c: open %s: %w", path, err)
	}
	return &Bus{f: f, path: path}, nil
}

func (b *Bus) Close() error {
	if b == nil || b.f == nil {
		return nil
	}
	err := b.f.Close()
	b.f = nil
	return err
}

func (b *Bus) Path() string { return b.path }

// Dev returns a handle for the 7-bit address addr.
func (b *Bus) Dev(addr uint16) (*Dev, error) {
	if b == nil {
		return nil, ErrClosed
	}
	if addr < 0x03 || addr > 0x77 {
		return nil, fmt.Errorf("i2c: address 0x%02X outside 0x03-0x77", addr)
	}
	return &Dev{bus: b, addr: addr}, nil
}

// Dev is a peripheral at a fixed address on a Bus.
type Dev struct {
	bus  *Bus
	addr uint16
}

func (d *Dev) Addr() uint16 { return d.addr }

// Write sends p in a single message.
func (d *Dev) Write(p []byte) error {
	return d.transfer(p, nil)
}

// WriteRead sends w, then reads len(r) bytes after a repeated start.
func (d *Dev) WriteRead(w, r []byte) error {
	return d.transfer(w, r)
}

func (d *Dev) transfer(w, r []byte) error {
	if d == nil || d.bus == nil || d.bus.f == nil {
		return ErrClosed
	}
	if len(w) > MaxTransfer || len(r) > MaxTransfer {
		return fmt.Errorf("i2c: transfer of %d/%d bytes exceeds %d", len(w), len(r), MaxTransfer)
	}

	var msgs [2]kmsg
	n := 0
	if len(w) > 0 {
		msgs[n] = kmsg{addr: d.addr, len: uint16(len(w)), buf: uintptr(unsafe.Pointer(&w[0]))}
		n++
	}
	if len(r) > 0 {
		msgs[n] = kmsg{addr: d.addr, flags: flagRead, len: uint16(len(r)), buf: uintptr(unsafe.Pointer(&r[0]))}
		n++
	}
	if n == 0 {
		return nil
	}

	x := kxfer{msgs: uintptr(unsafe.Pointer(&msgs[0])), nmsgs: uint32(n)}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, d.bus.f.Fd(), ioctlRdwr, uintptr(unsafe.Pointer(&x)))
	if errno != 0 {
		return fmt.Errorf("i2c: %s addr 0x%02X: %w", d.bus.path, d.addr, errno)
	}
	return nil
}
