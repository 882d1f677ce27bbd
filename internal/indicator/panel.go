package indicator

import "github.com/sweeney/heat-timer/internal/duty"

// Panel is the job/heat indicator pair. It only learns about the controller
// through events passed to OnPhase.
type Panel struct {
	Job   *Indicator
	Heat  *Indicator
	pulse Mode
}

// NewPanel creates a Panel using pulse for the running-job mode.
func NewPanel(job, heat *Indicator, pulse Mode) *Panel {
	return &Panel{Job: job, Heat: heat, pulse: pulse}
}

// Modes returns the job and heat indicator modes for a phase.
//
//	Idle     steady (ready)  off
//	Heating  pulse           steady (relay engaged)
//	Cooling  pulse           off
//
// Unknown phases map like Idle.
func (p *Panel) Modes(phase duty.Phase) (job, heat Mode) {
	switch phase {
	case duty.Heating:
		return p.pulse, Steady(true)
	case duty.Cooling:
		return p.pulse, Off
	case duty.Idle:
		return Steady(true), Off
	}
	return Steady(true), Off
}

// OnPhase applies the modes for ev.Phase. Suitable as a duty.Controller subscriber.
func (p *Panel) OnPhase(ev duty.Event) {
	job, heat := p.Modes(ev.Phase)
	p.Job.SetMode(job)
	p.Heat.SetMode(heat)
}
