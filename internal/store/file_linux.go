//go:build linux

package store

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// File is a store backed by a regular file mapped into memory. Writes land
// in the shared mapping; Commit flushes it with msync(MS_SYNC).
//
// Not safe for concurrent use.
type File struct {
	path string
	f    *os.File
	data []byte
}

func NewFile(path string) *File {
	return &File{path: filepath.Clean(path)}
}

// Begin opens (creating if needed) the backing file, grows it to at least size
// bytes and maps the first size bytes. New bytes read as zero.
func (s *File) Begin(size int) error {
	if err := checkSize(size); err != nil {
		return err
	}
	if s.data != nil {
		if err := s.Close(); err != nil {
			return err
		}
	}

	f, err := os.OpenFile(s.path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("store: open %s: %w", s.path, err)
	}
	ok := false
	defer func() {
		if !ok {
			_ = f.Close()
		}
	}()

	st, err := f.Stat()
	if err != nil {
		return fmt.Errorf("store: stat %s: %w", s.path, err)
	}
	if st.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			return fmt.Errorf("store: grow %s: %w", s.path, err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("store: mmap %s: %w", s.path, err)
	}
	s.f = f
	s.data = data
	ok = true
	return nil
}

func (s *File) ByteAt(addr int) (byte, error) {
	if s.data == nil {
		return 0, ErrNotBegun
	}
	if err := checkAddr(addr, len(s.data)); err != nil {
		return 0, err
	}
	return s.data[addr], nil
}

func (s *File) SetByte(addr int, v byte) error {
	if s.data == nil {
		return ErrNotBegun
	}
	if err := checkAddr(addr, len(s.data)); err != nil {
		return err
	}
	s.data[addr] = v
	return nil
}

func (s *File) Commit() error {
	if s.data == nil {
		return ErrNotBegun
	}
	if err := unix.Msync(s.data, unix.MS_SYNC); err != nil {
		return fmt.Errorf("store: msync %s: %w", s.path, err)
	}
	return nil
}

// Close unmaps and closes the backing file. Uncommitted writes may or may
// not reach the disk.
func (s *File) Close() error {
	if s == nil || s.data == nil {
		return nil
	}
	err1 := unix.Munmap(s.data)
	s.data = nil
	err2 := s.f.Close()
	s.f = nil
	if err1 != nil {
		return fmt.Errorf("store: munmap %s: %w", s.path, err1)
	}
	return err2
}
