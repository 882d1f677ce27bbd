package internal

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/heat-timer/internal/adc"
	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/clock"
	"github.com/sweeney/heat-timer/internal/config"
	"github.com/sweeney/heat-timer/internal/duty"
	"github.com/sweeney/heat-timer/internal/gpio"
	"github.com/sweeney/heat-timer/internal/indicator"
	"github.com/sweeney/heat-timer/internal/mqtt"
	"github.com/sweeney/heat-timer/internal/relay"
	"github.com/sweeney/heat-timer/internal/status"
)

const scanPeriod = 200 * time.Millisecond

var start = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// appliance is the keypad-to-relay pipeline assembled from fakes.
type appliance struct {
	clk        *clock.Fake
	reader     *adc.FakeReader
	scanner    *button.Scanner
	controller *duty.Controller
	timing     config.Timing
	relayLine  *gpio.FakeLine
	jobLine    *gpio.FakeLine
	heatLine   *gpio.FakeLine
	publisher  *mqtt.FakePublisher
	tracker    *status.Tracker
}

func newAppliance(t *testing.T, samples map[int][]int) *appliance {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = config.ModeDevelop
	timing, err := cfg.Timing()
	require.NoError(t, err)
	groups, err := cfg.Groups()
	require.NoError(t, err)
	classifier, err := button.NewClassifier(groups)
	require.NoError(t, err)

	a := &appliance{
		clk:       clock.NewFake(start),
		reader:    adc.NewFakeReader(samples),
		timing:    timing,
		relayLine: gpio.NewFakeLine(),
		jobLine:   gpio.NewFakeLine(),
		heatLine:  gpio.NewFakeLine(),
		publisher: mqtt.NewFakePublisher(),
		tracker:   status.NewTracker(start, status.Config{Mode: string(cfg.Mode)}),
	}
	a.scanner = button.NewScanner(classifier, a.reader, 0, nil)
	a.controller, err = duty.New(duty.Config{Heat: timing.Heat, Cool: timing.Cool}, a.clk, nil)
	require.NoError(t, err)

	heater := relay.New(a.relayLine, nil)
	panel := indicator.NewPanel(
		indicator.New("job", a.jobLine, a.clk, nil),
		indicator.New("heat", a.heatLine, a.clk, nil),
		indicator.Pulse(cfg.Indicator.PulsePeriod, cfg.Indicator.PulseWidth),
	)
	panel.OnPhase(duty.Event{Phase: duty.Idle, Time: start})

	a.controller.Subscribe(heater.OnPhase)
	a.controller.Subscribe(panel.OnPhase)
	a.controller.Subscribe(a.tracker.RecordPhase)
	a.controller.Subscribe(func(ev duty.Event) { a.publisher.Publish(ev) })
	return a
}

// tick runs one scan at the current time, applies any press, then moves the
// clock on by one scan period.
func (a *appliance) tick(t *testing.T) {
	t.Helper()
	p, ok, _ := a.scanner.Scan(a.clk.Now())
	if ok {
		a.tracker.RecordPress(p)
		if p.Button == button.Reset {
			a.controller.Reset()
		} else {
			d, err := a.timing.ProgramDuration(p.Button)
			require.NoError(t, err)
			a.controller.Start(d)
		}
		a.publisher.PublishPress(p)
	}
	a.clk.Advance(scanPeriod)
}

func (a *appliance) run(t *testing.T, d time.Duration) {
	t.Helper()
	for n := int(d / scanPeriod); n > 0; n-- {
		a.tick(t)
	}
}

// TestIntegrationProgramJob presses Program4 (30s in develop mode) for one
// tick and follows the job to completion.
func TestIntegrationProgramJob(t *testing.T) {
	a := newAppliance(t, map[int][]int{
		4: {12},
		5: {5, 5, 1950, 5},
	})

	a.run(t, 600*time.Millisecond)
	require.Len(t, a.publisher.Presses, 1)
	assert.Equal(t, button.Program4, a.publisher.Presses[0].Button)
	assert.Equal(t, 5, a.publisher.Presses[0].Channel)
	assert.Equal(t, 1950, a.publisher.Presses[0].Sample)
	assert.True(t, a.relayLine.Value(), "relay on while heating")

	pressedAt := start.Add(400 * time.Millisecond)
	a.run(t, 31*time.Second)

	assert.Equal(t, duty.Idle, a.controller.Phase())
	assert.False(t, a.relayLine.Value(), "relay off after job")
	assert.True(t, a.jobLine.Value(), "job LED back to ready")
	assert.False(t, a.heatLine.Value())

	events := a.publisher.Events
	require.Len(t, events, 13) // 6 heat + 6 cool + idle
	for i, ev := range events[:12] {
		want := duty.Heating
		if i%2 == 1 {
			want = duty.Cooling
		}
		assert.Equal(t, want, ev.Phase, "event %d", i)
		assert.Equal(t, pressedAt.Add(time.Duration(i/2)*5*time.Second+time.Duration(i%2)*4*time.Second), ev.Time, "event %d", i)
	}
	last := events[12]
	assert.Equal(t, duty.Idle, last.Phase)
	assert.Equal(t, duty.CauseJobElapsed, last.Cause)
	assert.Equal(t, pressedAt.Add(30*time.Second), last.Time)

	snap := a.tracker.Snapshot()
	assert.Equal(t, 1, snap.Counts.JobsStarted)
	assert.Equal(t, 1, snap.Counts.JobsCompleted)
	assert.Equal(t, 6, snap.Counts.HeatCycles)
	assert.Equal(t, 1, snap.Counts.Presses[button.Program4])
}

// TestIntegrationHeldButtonRetriggers holds Program2 for five ticks. Each tick
// restarts the job, so the end time follows the last press.
func TestIntegrationHeldButtonRetriggers(t *testing.T) {
	a := newAppliance(t, map[int][]int{
		4: {2650, 2650, 2650, 2650, 2650, 12},
		5: {0},
	})

	a.run(t, time.Second)

	require.Len(t, a.publisher.Presses, 5)
	require.Len(t, a.publisher.Events, 5)
	var gen uint64
	for i, ev := range a.publisher.Events {
		assert.Equal(t, duty.CauseStart, ev.Cause, "event %d", i)
		assert.Greater(t, ev.Generation, gen, "event %d", i)
		gen = ev.Generation
	}

	st := a.controller.Snapshot()
	assert.Equal(t, start.Add(800*time.Millisecond+90*time.Second), st.JobEnds)
	assert.Equal(t, duty.Armed{Heat: true, Job: true}, st.Armed)

	snap := a.tracker.Snapshot()
	assert.Equal(t, 5, snap.Counts.JobsStarted)
	assert.Equal(t, 4, snap.Counts.JobsCancelled)
}

// TestIntegrationResetMidJob presses Program1 then Reset during cooling.
func TestIntegrationResetMidJob(t *testing.T) {
	a := newAppliance(t, map[int][]int{
		4: {1950, 12},
		5: {0},
	})

	a.run(t, 4400*time.Millisecond)
	require.Equal(t, duty.Cooling, a.controller.Phase())

	a.reader.Set(5, 2650)
	a.tick(t)
	a.reader.Set(5, 0)

	assert.Equal(t, duty.Idle, a.controller.Phase())
	assert.Equal(t, duty.Armed{}, a.controller.Armed())
	assert.False(t, a.relayLine.Value())

	n := len(a.publisher.Events)
	a.run(t, 10*time.Minute)
	assert.Len(t, a.publisher.Events, n, "no stale timer may fire after reset")
	assert.False(t, a.relayLine.Value())

	last := a.publisher.Events[n-1]
	assert.Equal(t, duty.CauseReset, last.Cause)
}

// TestIntegrationReadErrorOnOneChannel keeps scanning the healthy channel.
func TestIntegrationReadErrorOnOneChannel(t *testing.T) {
	a := newAppliance(t, map[int][]int{
		4: {0},
		5: {1950},
	})
	a.reader.SetError(4, errors.New("i2c timeout"))

	a.tick(t)

	require.Len(t, a.publisher.Presses, 1)
	assert.Equal(t, button.Program4, a.publisher.Presses[0].Button)
	assert.Equal(t, duty.Heating, a.controller.Phase())
}

// TestIntegrationPublishFailure keeps driving outputs when MQTT fails.
func TestIntegrationPublishFailure(t *testing.T) {
	a := newAppliance(t, map[int][]int{
		4: {3300, 0},
		5: {0},
	})
	a.publisher.PublishError = errors.New("broker down")

	a.tick(t)
	assert.True(t, a.relayLine.Value())
	assert.Empty(t, a.publisher.Events)

	a.run(t, 4*time.Second)
	assert.False(t, a.relayLine.Value(), "cooling after heat interval")
	assert.Equal(t, 1, a.tracker.Snapshot().Counts.Presses[button.Program3])
}

// TestIntegrationBandEdgesIgnored checks that samples on a band boundary
// never register as presses.
func TestIntegrationBandEdgesIgnored(t *testing.T) {
	a := newAppliance(t, map[int][]int{
		4: {1800, 2100, 2500, 2800, 3150, 3450, 0},
		5: {0},
	})

	a.run(t, 1400*time.Millisecond)

	assert.Empty(t, a.publisher.Presses)
	assert.Equal(t, duty.Idle, a.controller.Phase())
	assert.False(t, a.relayLine.Value())
}
