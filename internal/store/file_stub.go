//go:build !linux

package store

import "fmt"

// File is unsupported off Linux; Begin always fails.
type File struct {
	path string
}

func NewFile(path string) *File { return &File{path: path} }

func (s *File) Begin(size int) error {
	return fmt.Errorf("store: file store unsupported on this platform")
}

func (s *File) ByteAt(addr int) (byte, error)  { return 0, ErrNotBegun }
func (s *File) SetByte(addr int, v byte) error { return ErrNotBegun }
func (s *File) Commit() error                  { return ErrNotBegun }
func (s *File) Close() error                   { return nil }
