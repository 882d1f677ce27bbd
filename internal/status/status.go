// Package status provides a thread-safe status tracker for the heat-timer daemon.
// It is read by the HTTP handlers and the MQTT heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/duty"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Mode        string
	ScanMs      int64
	HeatMs      int64
	CoolMs      int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
}

// Counts accumulates activity since startup.
type Counts struct {
	// Presses is indexed by button.ID; index 0 is unused.
	Presses       [button.Reset + 1]int
	JobsStarted   int
	JobsCompleted int
	JobsCancelled int
	HeatCycles    int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Phase         duty.Phase
	PhaseSince    time.Time
	JobStarted    time.Time
	JobEnds       time.Time
	Generation    uint64
	LastButton    button.ID // zero until the first press
	LastPress     time.Time
	Counts        Counts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Relay reports whether the heating element is energized.
func (s Snapshot) Relay() bool {
	return s.Phase == duty.Heating
}

// Remaining returns the time left in the running job, or zero when idle.
func (s Snapshot) Remaining() time.Duration {
	if s.Phase == duty.Idle || s.JobEnds.IsZero() {
		return 0
	}
	if d := s.JobEnds.Sub(s.Now); d > 0 {
		return d
	}
	return 0
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Phase:      duty.Idle,
			PhaseSince: startTime,
			StartTime:  startTime,
			Config:     cfg,
		},
	}
}

// RecordPhase applies a controller transition. It is registered as a
// controller subscriber, so it must not call back into the controller.
func (t *Tracker) RecordPhase(ev duty.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	prev := t.snap.Phase
	t.snap.Phase = ev.Phase
	t.snap.PhaseSince = ev.Time
	t.snap.JobStarted = ev.JobStarted
	t.snap.JobEnds = ev.JobEnds
	t.snap.Generation = ev.Generation

	switch ev.Cause {
	case duty.CauseStart:
		if ev.Phase == duty.Heating {
			t.snap.Counts.JobsStarted++
		}
		if prev != duty.Idle {
			t.snap.Counts.JobsCancelled++
		}
	case duty.CauseReset:
		if prev != duty.Idle {
			t.snap.Counts.JobsCancelled++
		}
	case duty.CauseJobElapsed:
		t.snap.Counts.JobsCompleted++
	}
	if ev.Phase == duty.Heating {
		t.snap.Counts.HeatCycles++
	}
}

// RecordPress notes a recognized button press.
func (t *Tracker) RecordPress(p button.Press) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snap.LastButton = p.Button
	t.snap.LastPress = p.Time
	if p.Button.Valid() {
		t.snap.Counts.Presses[p.Button]++
	}
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
