// Package indicator drives status LEDs in either a steady or a pulsing mode
// and maps duty-cycle phases onto the job and heat indicators.
package indicator

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/heat-timer/internal/clock"
	"github.com/sweeney/heat-timer/internal/gpio"
)

// Kind selects the visual mode.
type Kind int

const (
	KindSteady Kind = iota
	KindPulse
)

// Reference pulse timing: a 125ms flash every 500ms.
const (
	DefaultPulsePeriod = 500 * time.Millisecond
	DefaultPulseWidth  = 125 * time.Millisecond
)

// Mode is a visual mode. Build one with Steady or Pulse.
type Mode struct {
	Kind   Kind
	On     bool          // steady level
	Period time.Duration // pulse period
	Width  time.Duration // lit time per pulse
}

// Off is the steady dark mode.
var Off = Steady(false)

// Steady holds the light at a fixed level.
func Steady(on bool) Mode {
	return Mode{Kind: KindSteady, On: on}
}

// Pulse flashes the light for width at the start of every period. A width
// outside (0, period) is replaced by a quarter of the period; a non-positive
// period selects DefaultPulsePeriod.
func Pulse(period, width time.Duration) Mode {
	if period <= 0 {
		period = DefaultPulsePeriod
	}
	if width <= 0 || width >= period {
		width = period / 4
	}
	return Mode{Kind: KindPulse, Period: period, Width: width}
}

func (m Mode) String() string {
	switch m.Kind {
	case KindSteady:
		if m.On {
			return "steady-on"
		}
		return "off"
	case KindPulse:
		return fmt.Sprintf("pulse(%v/%v)", m.Width, m.Period)
	}
	return "unknown"
}

// Indicator drives one output line. Pulses are scheduled with one-shot timers
// stamped with a token; SetMode bumps the token under the lock, so a pulse
// callback racing with SetMode writes nothing once SetMode has returned.
type Indicator struct {
	name   string
	line   gpio.Line
	clock  clock.Clock
	logger *zap.SugaredLogger

	mu    sync.Mutex
	mode  Mode
	timer clock.Timer
	token uint64
}

// New creates an Indicator and drives its line off.
func New(name string, line gpio.Line, clk clock.Clock, logger *zap.SugaredLogger) *Indicator {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	i := &Indicator{
		name:   name,
		line:   line,
		clock:  clk,
		logger: logger,
		mode:   Off,
	}
	i.write(false)
	return i
}

// Mode returns the current mode.
func (i *Indicator) Mode() Mode {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.mode
}

// SetMode cancels any scheduled pulse and applies m. Setting the pulse mode
// that is already running leaves its cadence untouched.
func (i *Indicator) SetMode(m Mode) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if m.Kind == KindPulse && i.mode == m {
		return
	}
	i.cancelLocked()
	i.mode = m
	switch m.Kind {
	case KindSteady:
		i.write(m.On)
	case KindPulse:
		i.flashLocked(i.token)
	}
}

func (i *Indicator) cancelLocked() {
	i.token++
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
}

// flashLocked lights the line and schedules the end of the flash.
func (i *Indicator) flashLocked(token uint64) {
	i.write(true)
	i.timer = i.clock.AfterFunc(i.mode.Width, func() { i.dim(token) })
}

func (i *Indicator) dim(token uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if token != i.token {
		return
	}
	i.write(false)
	i.timer = i.clock.AfterFunc(i.mode.Period-i.mode.Width, func() { i.flash(token) })
}

func (i *Indicator) flash(token uint64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if token != i.token {
		return
	}
	i.flashLocked(token)
}

func (i *Indicator) write(on bool) {
	if err := i.line.Write(on); err != nil {
		i.logger.Errorf("indicator %s: %v", i.name, err)
	}
}
