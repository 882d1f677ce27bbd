// Package duty implements the heating duty-cycle controller: a job of bounded
// total duration during which the relay alternates between fixed heating and
// cooling intervals.
package duty

import (
	"fmt"
	"time"
)

// Phase is the controller's operating mode.
type Phase int

const (
	Idle Phase = iota
	Heating
	Cooling
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "IDLE"
	case Heating:
		return "HEATING"
	case Cooling:
		return "COOLING"
	}
	return fmt.Sprintf("PHASE(%d)", int(p))
}

// Cause records what triggered a phase change.
type Cause string

const (
	CauseStart       Cause = "START"
	CauseReset       Cause = "RESET"
	CauseHeatElapsed Cause = "HEAT_ELAPSED"
	CauseCoolElapsed Cause = "COOL_ELAPSED"
	CauseJobElapsed  Cause = "JOB_ELAPSED"
)

// Event is emitted exactly once per phase transition.
type Event struct {
	Phase Phase
	Cause Cause
	Time  time.Time
	// Generation is the controller's monotonically increasing timer
	// generation at the moment of the transition.
	Generation uint64
	// JobStarted and JobEnds are zero when Phase is Idle.
	JobStarted time.Time
	JobEnds    time.Time
}

// Armed reports which of the three timers are scheduled.
type Armed struct {
	Heat bool
	Cool bool
	Job  bool
}

// State is a point-in-time copy of the controller.
type State struct {
	Phase      Phase
	PhaseSince time.Time
	JobStarted time.Time
	JobEnds    time.Time
	Generation uint64
	Armed      Armed
}

// Config holds the fixed heat and cool interval lengths.
type Config struct {
	Heat time.Duration
	Cool time.Duration
}
