package main

import (
	"os"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/config"
	"github.com/sweeney/heat-timer/internal/duty"
	"github.com/sweeney/heat-timer/internal/indicator"
	"github.com/sweeney/heat-timer/internal/mqtt"
	"github.com/sweeney/heat-timer/internal/relay"
	"github.com/sweeney/heat-timer/internal/status"
)

// eventBuffer is the capacity of the transition queue feeding MQTT.
const eventBuffer = 32

// daemon owns everything the main loop touches.
type daemon struct {
	controller *duty.Controller
	timing     config.Timing
	mqttStatus mqtt.ConnectionStatus
	tracker    *status.Tracker
	out        *outbox
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// wire registers the controller subscribers. Outputs and the tracker are
// updated synchronously inside the transition; publishing is queued on
// events so a slow broker never holds the controller lock. When the queue is
// full the transition is dropped from MQTT only.
func wire(c *duty.Controller, heater *relay.Relay, panel *indicator.Panel, tracker *status.Tracker, events chan<- duty.Event, logger *zap.SugaredLogger) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	c.Subscribe(heater.OnPhase)
	c.Subscribe(panel.OnPhase)
	c.Subscribe(tracker.RecordPhase)
	c.Subscribe(func(ev duty.Event) {
		select {
		case events <- ev:
		default:
			logger.Warnf("event queue full, not publishing %s", ev.Phase)
		}
	})
}

// runLoop applies presses and queues heartbeats until a signal arrives. All
// MQTT traffic in between goes through d.out on its own goroutine.
func (d *daemon) runLoop(presses <-chan button.Press, heartbeat <-chan time.Time, sig <-chan os.Signal) error {
	stop := make(chan struct{})
	done := make(chan struct{})
	go d.out.run(stop, done)

	for {
		select {
		case s := <-sig:
			d.logger.Infof("received %v, shutting down", s)
			// Stop heating before announcing the shutdown.
			d.controller.Reset()
			close(stop)
			<-done
			d.publishStatus(mqtt.EventShutdown, signalName(s), true)
			return nil

		case p := <-presses:
			d.handlePress(p)

		case <-heartbeat:
			if net := readNetworkInfo(); net != nil {
				d.tracker.SetNetwork(net)
			}
			snap := d.tracker.Snapshot()
			d.logger.Infof("heartbeat: uptime=%v phase=%s jobs=%d",
				snap.Uptime().Truncate(time.Second), snap.Phase, snap.Counts.JobsStarted)
			d.out.enqueueSystem(d.statusEvent(mqtt.EventHeartbeat, "", false))
		}
	}
}

// handlePress maps a recognized button to a controller operation, then
// queues the press for MQTT. Repeats while a button is held restart the job
// each tick.
func (d *daemon) handlePress(p button.Press) {
	d.tracker.RecordPress(p)
	defer d.out.enqueuePress(p)

	if p.Button == button.Reset {
		d.controller.Reset()
		return
	}
	dur, err := d.timing.ProgramDuration(p.Button)
	if err != nil {
		d.logger.Errorf("press %s: %v", p.Button, err)
		return
	}
	d.logger.Debugf("%s: starting %v job", p.Button, dur)
	d.controller.Start(dur)
}

// statusEvent builds a system event carrying a full status snapshot.
func (d *daemon) statusEvent(event, reason string, retained bool) mqtt.SystemEvent {
	if d.mqttStatus != nil {
		d.tracker.SetMQTTConnected(d.mqttStatus.IsConnected())
	}
	snap := d.tracker.Snapshot()
	return mqtt.SystemEvent{
		Timestamp:  d.now(),
		Event:      event,
		Reason:     reason,
		Retained:   retained,
		RawPayload: status.FormatStatusEvent(snap, event, reason),
	}
}

// publishStatus publishes a system event directly. Only used outside
// runLoop, when nothing else is publishing.
func (d *daemon) publishStatus(event, reason string, retained bool) {
	d.out.publishSystem(d.statusEvent(event, reason, retained))
}

func signalName(s os.Signal) string {
	switch s {
	case syscall.SIGINT:
		return "SIGINT"
	case syscall.SIGTERM:
		return "SIGTERM"
	}
	return "UNKNOWN"
}
