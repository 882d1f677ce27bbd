// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/duty"
)

// Topic is the MQTT topic for heater phase transitions.
const Topic = "appliance/heat-timer/events"

// TopicButtons is the MQTT topic for recognized button presses.
const TopicButtons = "appliance/heat-timer/buttons"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "appliance/heat-timer/system"

// System event names.
const (
	EventStartup     = "STARTUP"
	EventShutdown    = "SHUTDOWN"
	EventHeartbeat   = "HEARTBEAT"
	EventReconnected = "RECONNECTED"
)

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a heater phase transition to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event duty.Event) error

	// PublishPress sends a recognized button press to the broker.
	PublishPress(press button.Press) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a phase transition.
type Payload struct {
	Heater HeaterPayload `json:"heater"`
}

// HeaterPayload contains the phase transition details.
type HeaterPayload struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	Phase      string `json:"phase"`
	Relay      string `json:"relay"`
	Generation uint64 `json:"generation"`
	JobStarted string `json:"job_started,omitempty"`
	JobEnds    string `json:"job_ends,omitempty"`
}

// FormatPayload creates the JSON payload for a phase transition.
func FormatPayload(event duty.Event) ([]byte, error) {
	relay := "OFF"
	if event.Phase == duty.Heating {
		relay = "ON"
	}
	payload := Payload{
		Heater: HeaterPayload{
			Timestamp:  event.Time.UTC().Format(time.RFC3339),
			Event:      string(event.Cause),
			Phase:      event.Phase.String(),
			Relay:      relay,
			Generation: event.Generation,
			JobStarted: formatOptionalTime(event.JobStarted),
			JobEnds:    formatOptionalTime(event.JobEnds),
		},
	}
	return json.Marshal(payload)
}

// PressPayload represents the MQTT message payload for a button press.
type PressPayload struct {
	Button ButtonPayload `json:"button"`
}

// ButtonPayload contains the press details.
type ButtonPayload struct {
	Timestamp string `json:"timestamp"`
	Button    string `json:"button"`
	Channel   int    `json:"channel"`
	Sample    int    `json:"sample"`
}

// FormatPressPayload creates the JSON payload for a button press.
func FormatPressPayload(press button.Press) ([]byte, error) {
	payload := PressPayload{
		Button: ButtonPayload{
			Timestamp: press.Time.UTC().Format(time.RFC3339),
			Button:    press.Button.String(),
			Channel:   press.Channel,
			Sample:    press.Sample,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

func formatOptionalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
