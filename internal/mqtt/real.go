package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/duty"
)

// BufferCapacity is the number of messages held while the broker is unreachable.
const BufferCapacity = 100

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker. It never fails to
// construct: while the broker is unreachable messages are queued and
// replayed after the connection comes up.
type RealPublisher struct {
	client paho.Client
	topic  string
	logger *zap.SugaredLogger

	mu        sync.Mutex
	buf       *offlineQueue
	connected bool // at least one successful connect
}

// NewRealPublisher creates a publisher for the given broker and starts
// connecting. The last will marks the daemon as shut down on an unclean
// disconnect.
func NewRealPublisher(broker, clientID string, logger *zap.SugaredLogger) *RealPublisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	p := &RealPublisher{
		topic:  Topic,
		logger: logger,
		buf:    newOfflineQueue(BufferCapacity, logger),
	}

	will, _ := FormatSystemPayload(SystemEvent{
		Timestamp: time.Now(),
		Event:     EventShutdown,
		Reason:    "MQTT_DISCONNECT",
	})

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(will), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			logger.Warnf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logger.Warnf("mqtt: broker %s not reachable yet, buffering until connected", broker)
	} else if err := token.Error(); err != nil {
		logger.Errorf("mqtt: connect to %s: %v", broker, err)
	}
	return p
}

// onConnect runs on every (re)connection. Reconnections announce themselves
// before the queued messages are replayed.
func (p *RealPublisher) onConnect(_ paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	pending, dropped := p.buf.drainAll()
	p.mu.Unlock()

	if reconnect {
		p.logger.Infof("mqtt: reconnected")
		payload, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventReconnected})
		if err := p.send(TopicSystem, 1, false, payload); err != nil {
			p.logger.Errorf("mqtt: publish reconnected: %v", err)
		}
	} else {
		p.logger.Infof("mqtt: connected")
	}

	if len(pending) > 0 {
		p.logger.Infof("mqtt: replaying %d buffered messages", len(pending))
	}
	if dropped.total() > 0 {
		p.logger.Warnf("mqtt: %d presses and %d other messages were dropped while offline",
			dropped.presses, dropped.other)
	}
	for _, msg := range pending {
		if err := p.send(msg.topic, msg.qos, msg.retained, msg.payload); err != nil {
			p.logger.Errorf("mqtt: replay to %s: %v", msg.topic, err)
		}
	}
}

// Publish sends a phase transition to the MQTT broker.
func (p *RealPublisher) Publish(event duty.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 0 (at-most-once), not retained
	return p.publish(p.topic, 0, false, payload)
}

// PublishPress sends a button press to the MQTT broker.
func (p *RealPublisher) PublishPress(press button.Press) error {
	payload, err := FormatPressPayload(press)
	if err != nil {
		return fmt.Errorf("format press payload: %w", err)
	}
	return p.publish(TopicButtons, 0, false, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return p.publish(TopicSystem, 1, event.Retained, payload)
}

// IsConnected reports whether the broker connection is currently up.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !p.client.IsConnectionOpen() {
		p.mu.Lock()
		p.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		p.mu.Unlock()
		return nil
	}
	return p.send(topic, qos, retained, payload)
}

func (p *RealPublisher) send(topic string, qos byte, retained bool, payload []byte) error {
	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	return nil
}
