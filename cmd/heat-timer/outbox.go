package main

import (
	"go.uber.org/zap"

	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/duty"
	"github.com/sweeney/heat-timer/internal/mqtt"
)

// outbox owns every MQTT publish made while the daemon runs. Producers
// enqueue without blocking; a single goroutine does the publishing, so a
// stalled broker only ever delays other messages, never a press.
type outbox struct {
	publisher mqtt.Publisher
	logger    *zap.SugaredLogger

	events  chan duty.Event
	presses chan button.Press
	system  chan mqtt.SystemEvent
}

// newOutbox uses events as the transition queue (the channel wire feeds) and
// allocates press and system queues of eventBuffer each.
func newOutbox(publisher mqtt.Publisher, events chan duty.Event, logger *zap.SugaredLogger) *outbox {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &outbox{
		publisher: publisher,
		logger:    logger,
		events:    events,
		presses:   make(chan button.Press, eventBuffer),
		system:    make(chan mqtt.SystemEvent, eventBuffer),
	}
}

// enqueuePress queues p for publishing, dropping it when the queue is full.
func (o *outbox) enqueuePress(p button.Press) {
	select {
	case o.presses <- p:
	default:
		o.logger.Warnf("press queue full, not publishing %s", p.Button)
	}
}

// enqueueSystem queues ev for publishing, dropping it when the queue is full.
func (o *outbox) enqueueSystem(ev mqtt.SystemEvent) {
	select {
	case o.system <- ev:
	default:
		o.logger.Warnf("system queue full, not publishing %s", ev.Event)
	}
}

// run publishes queued messages until stop is closed, then drains what is
// left and closes done.
func (o *outbox) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case ev := <-o.events:
			o.publishEvent(ev)
		case p := <-o.presses:
			o.publishPress(p)
		case ev := <-o.system:
			o.publishSystem(ev)
		case <-stop:
			o.drain()
			return
		}
	}
}

// drain publishes every queued message without waiting for more.
func (o *outbox) drain() {
	for {
		select {
		case ev := <-o.events:
			o.publishEvent(ev)
		case p := <-o.presses:
			o.publishPress(p)
		case ev := <-o.system:
			o.publishSystem(ev)
		default:
			return
		}
	}
}

func (o *outbox) publishEvent(ev duty.Event) {
	o.logger.Infof("phase: %s (%s)", ev.Phase, ev.Cause)
	if err := o.publisher.Publish(ev); err != nil {
		// Don't crash on publish failure
		o.logger.Warnf("publish error: %v", err)
	}
}

func (o *outbox) publishPress(p button.Press) {
	if err := o.publisher.PublishPress(p); err != nil {
		o.logger.Warnf("publish press: %v", err)
	}
}

func (o *outbox) publishSystem(ev mqtt.SystemEvent) {
	if err := o.publisher.PublishSystem(ev); err != nil {
		o.logger.Warnf("failed to publish %s event: %v", ev.Event, err)
		return
	}
	o.logger.Debugf("published %s event", ev.Event)
}
