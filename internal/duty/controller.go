package duty

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/heat-timer/internal/clock"
)

type slot int

const (
	heatSlot slot = iota
	coolSlot
	jobSlot
	numSlots
)

func (s slot) String() string {
	switch s {
	case heatSlot:
		return "heat"
	case coolSlot:
		return "cool"
	case jobSlot:
		return "job"
	}
	return "unknown"
}

// Controller is the heating state machine. It owns three timers (heat, cool,
// job) indexed by slot. Each arm stamps the slot with a fresh generation;
// callbacks compare their stamp under the lock and do nothing if the slot was
// disarmed or re-armed since, so cancelling a timer takes effect before
// Reset or Start returns even if the callback is already running.
//
// Invariants, held whenever the lock is released:
//   - Idle: no timer armed.
//   - Heating: heat and job armed, cool disarmed.
//   - Cooling: cool and job armed, heat disarmed.
type Controller struct {
	mu     sync.Mutex
	clock  clock.Clock
	logger *zap.SugaredLogger

	heat time.Duration
	cool time.Duration

	phase      Phase
	phaseSince time.Time
	jobStarted time.Time
	jobEnds    time.Time

	timers     [numSlots]clock.Timer
	stamps     [numSlots]uint64
	generation uint64

	subscribers []func(Event)
}

// New creates an Idle controller. Heat and cool must both be positive.
func New(cfg Config, clk clock.Clock, logger *zap.SugaredLogger) (*Controller, error) {
	if cfg.Heat <= 0 || cfg.Cool <= 0 {
		return nil, fmt.Errorf("heat (%v) and cool (%v) durations must be positive", cfg.Heat, cfg.Cool)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Controller{
		clock:      clk,
		logger:     logger,
		heat:       cfg.Heat,
		cool:       cfg.Cool,
		phaseSince: clk.Now(),
	}, nil
}

// Subscribe registers fn to receive every Event. Subscribers are called
// synchronously, in registration order, while the controller lock is held:
// they must return quickly and must not call back into the Controller.
func (c *Controller) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribers = append(c.subscribers, fn)
}

// Start begins a job of total duration d from any phase. A running job is
// restarted from zero: both the job and heat timers are re-armed, not
// extended. A non-positive d is treated as Reset.
func (c *Controller) Start(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if d <= 0 {
		c.logger.Infof("start with duration %v: resetting", d)
		c.resetLocked(CauseReset)
		return
	}

	c.disarmAllLocked()
	now := c.clock.Now()
	c.jobStarted = now
	c.jobEnds = now.Add(d)
	c.armLocked(jobSlot, d)
	c.armLocked(heatSlot, c.heat)
	c.enterLocked(Heating, CauseStart, now)
}

// Reset stops any job and returns to Idle with every timer disarmed.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resetLocked(CauseReset)
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Armed returns which timers are currently scheduled.
func (c *Controller) Armed() Armed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.armedLocked()
}

// Snapshot returns a copy of the controller state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Phase:      c.phase,
		PhaseSince: c.phaseSince,
		JobStarted: c.jobStarted,
		JobEnds:    c.jobEnds,
		Generation: c.generation,
		Armed:      c.armedLocked(),
	}
}

func (c *Controller) armedLocked() Armed {
	return Armed{
		Heat: c.timers[heatSlot] != nil,
		Cool: c.timers[coolSlot] != nil,
		Job:  c.timers[jobSlot] != nil,
	}
}

func (c *Controller) armLocked(s slot, d time.Duration) {
	c.disarmLocked(s)
	c.generation++
	stamp := c.generation
	c.stamps[s] = stamp
	c.timers[s] = c.clock.AfterFunc(d, func() { c.expire(s, stamp) })
}

func (c *Controller) disarmLocked(s slot) {
	if c.timers[s] != nil {
		c.timers[s].Stop()
		c.timers[s] = nil
	}
	c.stamps[s] = 0
}

func (c *Controller) disarmAllLocked() {
	for s := slot(0); s < numSlots; s++ {
		c.disarmLocked(s)
	}
}

func (c *Controller) resetLocked(cause Cause) {
	c.disarmAllLocked()
	c.jobStarted = time.Time{}
	c.jobEnds = time.Time{}
	c.enterLocked(Idle, cause, c.clock.Now())
}

func (c *Controller) expire(s slot, stamp uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stamps[s] != stamp {
		c.logger.Debugf("stale %s timer (generation %d) ignored", s, stamp)
		return
	}
	c.timers[s] = nil
	c.stamps[s] = 0

	now := c.clock.Now()
	switch s {
	case heatSlot:
		if c.phase != Heating {
			c.logger.Warnf("heat timer fired in phase %s", c.phase)
			return
		}
		c.armLocked(coolSlot, c.cool)
		c.enterLocked(Cooling, CauseHeatElapsed, now)
	case coolSlot:
		if c.phase != Cooling {
			c.logger.Warnf("cool timer fired in phase %s", c.phase)
			return
		}
		c.armLocked(heatSlot, c.heat)
		c.enterLocked(Heating, CauseCoolElapsed, now)
	case jobSlot:
		c.resetLocked(CauseJobElapsed)
	}
}

func (c *Controller) enterLocked(p Phase, cause Cause, now time.Time) {
	c.phase = p
	c.phaseSince = now
	ev := Event{
		Phase:      p,
		Cause:      cause,
		Time:       now,
		Generation: c.generation,
		JobStarted: c.jobStarted,
		JobEnds:    c.jobEnds,
	}
	c.logger.Debugf("phase %s (%s, generation %d)", p, cause, c.generation)
	for _, fn := range c.subscribers {
		fn(ev)
	}
}
