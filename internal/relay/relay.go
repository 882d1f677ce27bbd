// Package relay drives the heating relay from duty-cycle phase events.
package relay

import (
	"sync"

	"go.uber.org/zap"

	"github.com/sweeney/heat-timer/internal/duty"
	"github.com/sweeney/heat-timer/internal/gpio"
)

// Relay energises its line only while the controller is Heating.
type Relay struct {
	line   gpio.Line
	logger *zap.SugaredLogger

	mu       sync.Mutex
	engaged  bool
	failures int
}

// New creates a Relay and drives the line off.
func New(line gpio.Line, logger *zap.SugaredLogger) *Relay {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Relay{line: line, logger: logger}
	r.set(false)
	return r
}

// OnPhase writes the relay state for ev.Phase. Suitable as a duty.Controller subscriber.
func (r *Relay) OnPhase(ev duty.Event) {
	r.set(ev.Phase == duty.Heating)
}

// Engaged reports the last state written successfully. A failed write
// leaves it unchanged, since the line may still hold the previous level.
func (r *Relay) Engaged() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.engaged
}

// Failures returns the number of failed writes.
func (r *Relay) Failures() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.failures
}

// set writes on. If engaging fails the line is driven off so a half-applied
// write never leaves heat on.
func (r *Relay) set(on bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.line.Write(on)
	if err == nil {
		r.engaged = on
		return
	}
	r.failures++
	r.logger.Errorf("relay write %v: %v", on, err)
	if !on {
		return
	}
	if err := r.line.Write(false); err != nil {
		r.logger.Errorf("relay fail-safe off: %v", err)
		return
	}
	r.engaged = false
}
