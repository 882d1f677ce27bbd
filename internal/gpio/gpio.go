// Package gpio provides digital output lines with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Line drives one digital output.
type Line interface {
	// Write sets the logical state. Active-low wiring is handled by the
	// implementation: true always means "energised" or "lit".
	Write(on bool) error

	// Close releases the line.
	Close() error
}

// Default line offsets on gpiochip0 for the reference board.
const (
	DefaultChip       = "gpiochip0"
	DefaultPinRelay   = 16
	DefaultPinJobLED  = 25
	DefaultPinHeatLED = 26
)

// Consumer is the label attached to requested lines.
const Consumer = "heat-timer"

// Bias is the pull applied to a line once it is released as an input.
type Bias int

const (
	PullDown Bias = iota
	PullUp
)

func (b Bias) String() string {
	if b == PullUp {
		return "pull-up"
	}
	return "pull-down"
}

// ReleaseBias returns the pull that holds a released line at its inactive
// level: down for an active-high relay coil, up for an active-low LED whose
// cathode sits on the pin.
func ReleaseBias(activeLow bool) Bias {
	if activeLow {
		return PullUp
	}
	return PullDown
}
