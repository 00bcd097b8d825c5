package store

import (
	"fmt"
	"time"

	"linefollower/internal/i2c"
)

var sleep = time.Sleep

const (
	// AT24DefaultAddress is the 7-bit address with A2..A0 tied low.
	AT24DefaultAddress = 0x50

	at24PageSize   = 32
	at24WriteCycle = 5 * time.Millisecond
	at24MaxSize    = 1 << 16
)

// at24Bus is the subset of *i2c.Dev the EEPROM driver needs.
type at24Bus interface {
	Write(p []byte) error
	WriteRead(w, r []byte) error
}

// AT24 drives a 24C32-class serial EEPROM (16-bit word address, 32-byte
// pages). Begin reads the working window into RAM; writes only touch RAM and
// Commit programs the pages that changed.
//
// Not safe for concurrent use.
type AT24 struct {
	dev      at24Bus
	capacity int

	shadow []byte
	dirty  []bool
}

// NewAT24 wraps dev, a device on an opened bus. capacity is the chip size in
// bytes (4096 for a 24C32).
func NewAT24(dev *i2c.Dev, capacity int) (*AT24, error) {
	if dev == nil {
		return nil, fmt.Errorf("store: at24 dev is nil")
	}
	return newAT24(dev, capacity)
}

func newAT24(dev at24Bus, capacity int) (*AT24, error) {
	if capacity <= 0 || capacity > at24MaxSize {
		return nil, fmt.Errorf("store: at24 capacity %d out of range", capacity)
	}
	return &AT24{dev: dev, capacity: capacity}, nil
}

// Begin loads the first size bytes of the chip.
func (e *AT24) Begin(size int) error {
	if err := checkSize(size); err != nil {
		return err
	}
	if size > e.capacity {
		return fmt.Errorf("store: at24 size %d exceeds capacity %d", size, e.capacity)
	}

	shadow := make([]byte, size)
	for off := 0; off < size; off += at24PageSize {
		end := off + at24PageSize
		if end > size {
			end = size
		}
		if err := e.dev.WriteRead(wordAddr(off), shadow[off:end]); err != nil {
			return fmt.Errorf("store: at24 read at %d: %w", off, err)
		}
	}
	e.shadow = shadow
	e.dirty = make([]bool, size)
	return nil
}

func (e *AT24) ByteAt(addr int) (byte, error) {
	if e.shadow == nil {
		return 0, ErrNotBegun
	}
	if err := checkAddr(addr, len(e.shadow)); err != nil {
		return 0, err
	}
	return e.shadow[addr], nil
}

func (e *AT24) SetByte(addr int, v byte) error {
	if e.shadow == nil {
		return ErrNotBegun
	}
	if err := checkAddr(addr, len(e.shadow)); err != nil {
		return err
	}
	if e.shadow[addr] != v {
		e.shadow[addr] = v
		e.dirty[addr] = true
	}
	return nil
}

// Commit writes every page holding a changed byte, one page write per page,
// and waits out the chip's internal write cycle after each. Pages that were
// written successfully stay clean if a later page fails.
func (e *AT24) Commit() error {
	if e.shadow == nil {
		return ErrNotBegun
	}
	for page := 0; page < len(e.shadow); page += at24PageSize {
		end := page + at24PageSize
		if end > len(e.shadow) {
			end = len(e.shadow)
		}
		lo, hi := -1, -1
		for i := page; i < end; i++ {
			if e.dirty[i] {
				if lo < 0 {
					lo = i
				}
				hi = i
			}
		}
		if lo < 0 {
			continue
		}

		msg := append(wordAddr(lo), e.shadow[lo:hi+1]...)
		if err := e.dev.Write(msg); err != nil {
			return fmt.Errorf("store: at24 write page at %d: %w", page, err)
		}
		sleep(at24WriteCycle)
		for i := lo; i <= hi; i++ {
			e.dirty[i] = false
		}
	}
	return nil
}

func wordAddr(addr int) []byte {
	return []byte{byte(addr >> 8), byte(addr)}
}
