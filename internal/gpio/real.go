//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// Chip owns a GPIO chip and the output lines requested from it.
type Chip struct {
	chip  *gpiocdev.Chip
	lines []*RealLine
}

// RealLine is an output line on actual hardware.
type RealLine struct {
	line      *gpiocdev.Line
	pin       int
	activeLow bool
}

// OpenChip opens the named GPIO chip, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name, gpiocdev.WithConsumer(Consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &Chip{chip: chip}, nil
}

// Output requests pin as an output that starts logically off.
func (c *Chip) Output(pin int, activeLow bool) (*RealLine, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(0)}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	line, err := c.chip.RequestLine(pin, opts...)
	if err != nil {
		return nil, fmt.Errorf("request output pin %d: %w", pin, err)
	}
	l := &RealLine{line: line, pin: pin, activeLow: activeLow}
	c.lines = append(c.lines, l)
	return l, nil
}

// Write sets the logical value of the line.
func (l *RealLine) Write(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("write pin %d: %w", l.pin, err)
	}
	return nil
}

// Close drives the line off and releases it as an input biased towards its
// inactive level (see ReleaseBias), so the relay stays de-energised and the
// LEDs stay dark while nothing owns the pin.
func (l *RealLine) Close() error {
	if l.line == nil {
		return nil
	}
	var errs []error
	if err := l.line.SetValue(0); err != nil {
		errs = append(errs, fmt.Errorf("drive pin %d off: %w", l.pin, err))
	}
	bias := gpiocdev.WithPullDown
	if ReleaseBias(l.activeLow) == PullUp {
		bias = gpiocdev.WithPullUp
	}
	if err := l.line.Reconfigure(gpiocdev.AsInput, bias); err != nil {
		errs = append(errs, fmt.Errorf("reconfigure pin %d: %w", l.pin, err))
	}
	if err := l.line.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close pin %d: %w", l.pin, err))
	}
	l.line = nil
	return errors.Join(errs...)
}

// Close releases every requested line, then the chip.
func (c *Chip) Close() error {
	var errs []error
	for _, l := range c.lines {
		if err := l.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	c.lines = nil
	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		c.chip = nil
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %w", errors.Join(errs...))
	}
	return nil
}
