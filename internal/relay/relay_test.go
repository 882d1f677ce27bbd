package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sweeney/heat-timer/internal/duty"
	"github.com/sweeney/heat-timer/internal/gpio"
)

func TestNewDrivesOff(t *testing.T) {
	line := gpio.NewFakeLine()
	r := New(line, nil)
	assert.Equal(t, []bool{false}, line.Writes())
	assert.False(t, r.Engaged())
}

func TestOnPhase(t *testing.T) {
	line := gpio.NewFakeLine()
	r := New(line, nil)

	tests := []struct {
		phase duty.Phase
		want  bool
	}{
		{duty.Heating, true},
		{duty.Cooling, false},
		{duty.Heating, true},
		{duty.Idle, false},
		{duty.Phase(42), false},
	}
	for _, tt := range tests {
		r.OnPhase(duty.Event{Phase: tt.phase})
		assert.Equal(t, tt.want, line.Value(), "phase %s", tt.phase)
		assert.Equal(t, tt.want, r.Engaged(), "phase %s", tt.phase)
	}
}

func TestWriteFailureFailsClosed(t *testing.T) {
	line := gpio.NewFakeLine()
	r := New(line, nil)

	line.SetWriteError(assert.AnError)
	r.OnPhase(duty.Event{Phase: duty.Heating})

	assert.False(t, r.Engaged())
	assert.False(t, line.Value())
	assert.Equal(t, 1, r.Failures())

	line.SetWriteError(nil)
	r.OnPhase(duty.Event{Phase: duty.Heating})
	assert.True(t, r.Engaged())
}

func TestFailedOffWriteKeepsEngaged(t *testing.T) {
	line := gpio.NewFakeLine()
	r := New(line, nil)
	r.OnPhase(duty.Event{Phase: duty.Heating})

	line.SetWriteError(assert.AnError)
	r.OnPhase(duty.Event{Phase: duty.Cooling})

	assert.True(t, line.Value(), "line still holds the old level")
	assert.True(t, r.Engaged(), "a failed off write must not report the relay as off")
	assert.Equal(t, 1, r.Failures())

	line.SetWriteError(nil)
	r.OnPhase(duty.Event{Phase: duty.Idle})
	assert.False(t, r.Engaged())
	assert.False(t, line.Value())
}
