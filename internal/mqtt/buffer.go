package mqtt

import "go.uber.org/zap"

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// press reports whether msg is button telemetry rather than heater or
// lifecycle state.
func (m bufferedMsg) press() bool {
	return m.topic == TopicButtons
}

// dropCounts tallies what an offline queue discarded since the last replay.
type dropCounts struct {
	presses int
	other   int
}

func (d dropCounts) total() int {
	return d.presses + d.other
}

// offlineQueue holds messages in publish order while the broker is away.
// When full it evicts the oldest button press first, so heater transitions
// and lifecycle events outlive press telemetry; only when no press is queued
// does the oldest message of any kind go. Not safe for concurrent use; the
// caller synchronizes.
type offlineQueue struct {
	msgs     []bufferedMsg
	capacity int
	presses  int
	dropped  dropCounts
	logger   *zap.SugaredLogger
}

func newOfflineQueue(capacity int, logger *zap.SugaredLogger) *offlineQueue {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if capacity < 1 {
		capacity = 1
	}
	return &offlineQueue{
		msgs:     make([]bufferedMsg, 0, capacity),
		capacity: capacity,
		logger:   logger,
	}
}

func (q *offlineQueue) push(msg bufferedMsg) {
	if len(q.msgs) == q.capacity {
		if q.dropped.total() == 0 {
			q.logger.Warnf("mqtt: offline queue full (%d messages), dropping oldest presses first", q.capacity)
		}
		q.evict()
	}
	q.msgs = append(q.msgs, msg)
	if msg.press() {
		q.presses++
	}
}

func (q *offlineQueue) evict() {
	victim := 0
	if q.presses > 0 {
		for i, m := range q.msgs {
			if m.press() {
				victim = i
				break
			}
		}
	}
	if q.msgs[victim].press() {
		q.presses--
		q.dropped.presses++
	} else {
		q.dropped.other++
	}
	q.msgs = append(q.msgs[:victim], q.msgs[victim+1:]...)
}

// drainAll returns the queued messages oldest first along with what was
// dropped to make room, and empties the queue.
func (q *offlineQueue) drainAll() ([]bufferedMsg, dropCounts) {
	dropped := q.dropped
	q.dropped = dropCounts{}
	if len(q.msgs) == 0 {
		return nil, dropped
	}
	out := q.msgs
	q.msgs = make([]bufferedMsg, 0, q.capacity)
	q.presses = 0
	return out, dropped
}

func (q *offlineQueue) len() int {
	return len(q.msgs)
}
