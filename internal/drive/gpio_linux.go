//go:build linux

package drive

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openLine requests the GPIO line called name (e.g. "GPIO5") as an output
// driven low, searching every character-device chip.
func openLine(name, consumer string) (directionLine, error) {
	if name == "" {
		return nil, fmt.Errorf("drive: empty gpio line name")
	}

	var chips []string
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "gpiochip") {
			chips = append(chips, filepath.Join("/dev", e.Name()))
		}
	}

	for _, chipPath := range chips {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(name)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer(consumer))
		if err != nil {
			_ = chip.Close()
			return nil, fmt.Errorf("drive: request gpio line %q: %w", name, err)
		}
		return &gpioLine{chip: chip, line: line}, nil
	}
	return nil, fmt.Errorf("drive: gpio line %q not found", name)
}

type gpioLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpioLine) SetValue(v int) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("drive: gpio line closed")
	}
	return g.line.SetValue(v)
}

func (g *gpioLine) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	_ = g.line.SetValue(0)
	err := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err
}
