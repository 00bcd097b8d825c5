// Package console mirrors diagnostics onto a serial port so they can be read
// from a terminal while the robot runs untethered from a shell.
package console

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"go.bug.st/serial"
)

var openPortFn = func(name string, baud int) (io.WriteCloser, error) {
	return serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// Console writes to a serial port, expanding bare LF to CRLF for terminal
// emulators. Safe for concurrent use.
type Console struct {
	mu   sync.Mutex
	port io.WriteCloser
	name string
}

// Open opens port at baud, 8N1.
func Open(port string, baud int) (*Console, error) {
	if port == "" {
		return nil, fmt.Errorf("console: port is empty")
	}
	if baud <= 0 {
		return nil, fmt.Errorf("console: invalid baud %d", baud)
	}
	p, err := openPortFn(port, baud)
	if err != nil {
		return nil, fmt.Errorf("console: open %s: %w", port, err)
	}
	return &Console{port: p, name: port}, nil
}

func (c *Console) Name() string { return c.name }

// Write reports len(p) on success even though CRs may be added on the wire.
func (c *Console) Write(p []byte) (int, error) {
	out := bytes.ReplaceAll(p, []byte("\r\n"), []byte("\n"))
	out = bytes.ReplaceAll(out, []byte("\n"), []byte("\r\n"))

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return 0, fmt.Errorf("console: %s closed", c.name)
	}
	if _, err := c.port.Write(out); err != nil {
		return 0, fmt.Errorf("console: write %s: %w", c.name, err)
	}
	return len(p), nil
}

func (c *Console) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.port == nil {
		return nil
	}
	err := c.port.Close()
	c.port = nil
	return err
}
