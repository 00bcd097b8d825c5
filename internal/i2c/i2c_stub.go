//go:build !linux

package i2c

import "errors"

var (
	ErrClosed      = errors.New("i2c: bus is closed")
	errUnsupported = errors.New("i2c: unsupported OS (need linux)")
)

const MaxTransfer = 8192

type Bus struct{}

type Dev struct{}

func Open(path string) (*Bus, error) { return nil, errUnsupported }

func (b *Bus) Close() error                  { return nil }
func (b *Bus) Path() string                  { return "" }
func (b *Bus) Dev(addr uint16) (*Dev, error) { return nil, errUnsupported }

func (d *Dev) Addr() uint16                { return 0 }
func (d *Dev) Write(p []byte) error        { return errUnsupported }
func (d *Dev) WriteRead(w, r []byte) error { return errUnsupported }
