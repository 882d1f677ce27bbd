// Package adc provides analog channel sampling with hardware abstraction.
// Real readers use the Linux IIO sysfs interface or an ADC co-processor on a
// serial port; the fake reader serves scripted samples for tests.
package adc

import "errors"

// ErrNoSample is returned when a channel has no (fresh) sample available.
var ErrNoSample = errors.New("no sample")

// Reader samples analog channels.
type Reader interface {
	// Read returns the latest raw sample of channel.
	Read(channel int) (int, error)

	// Close releases resources.
	Close() error
}

// Reference board channels for the two keypad ladders.
const (
	DefaultChannelA = 4
	DefaultChannelB = 5
)
