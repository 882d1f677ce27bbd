package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/duty"
)

func TestFormatPayloadHeating(t *testing.T) {
	start := time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)
	event := duty.Event{
		Phase:      duty.Heating,
		Cause:      duty.CauseStart,
		Time:       start,
		Generation: 3,
		JobStarted: start,
		JobEnds:    start.Add(2 * time.Hour),
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"heater":{"timestamp":"2026-02-02T22:18:12Z","event":"START","phase":"HEATING","relay":"ON","generation":3,"job_started":"2026-02-02T22:18:12Z","job_ends":"2026-02-03T00:18:12Z"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatPayloadIdleOmitsJob(t *testing.T) {
	event := duty.Event{
		Phase:      duty.Idle,
		Cause:      duty.CauseReset,
		Time:       time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Generation: 7,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	heater := parsed["heater"]
	if _, exists := heater["job_started"]; exists {
		t.Error("idle event should not have job_started")
	}
	if _, exists := heater["job_ends"]; exists {
		t.Error("idle event should not have job_ends")
	}
	if heater["relay"] != "OFF" {
		t.Errorf("relay: got %v, want OFF", heater["relay"])
	}
}

func TestFormatPayloadRelayFollowsPhase(t *testing.T) {
	tests := []struct {
		phase     duty.Phase
		cause     duty.Cause
		wantPhase string
		wantRelay string
	}{
		{duty.Heating, duty.CauseCoolElapsed, "HEATING", "ON"},
		{duty.Cooling, duty.CauseHeatElapsed, "COOLING", "OFF"},
		{duty.Idle, duty.CauseJobElapsed, "IDLE", "OFF"},
	}

	for _, tt := range tests {
		t.Run(tt.wantPhase, func(t *testing.T) {
			payload, err := FormatPayload(duty.Event{Phase: tt.phase, Cause: tt.cause, Time: time.Now()})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.Heater.Phase != tt.wantPhase {
				t.Errorf("phase: got %s, want %s", parsed.Heater.Phase, tt.wantPhase)
			}
			if parsed.Heater.Relay != tt.wantRelay {
				t.Errorf("relay: got %s, want %s", parsed.Heater.Relay, tt.wantRelay)
			}
			if parsed.Heater.Event != string(tt.cause) {
				t.Errorf("event: got %s, want %s", parsed.Heater.Event, tt.cause)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	event := duty.Event{
		Phase: duty.Idle,
		Cause: duty.CauseReset,
		Time:  time.Date(2026, 2, 3, 3, 0, 0, 0, loc),
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Heater.Timestamp != "2026-02-02T22:00:00Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Heater.Timestamp)
	}
}

func TestFormatPressPayload(t *testing.T) {
	press := button.Press{
		Button:  button.Program2,
		Time:    time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Channel: 4,
		Sample:  2650,
	}

	payload, err := FormatPressPayload(press)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"button":{"timestamp":"2026-02-10T08:30:00Z","button":"PROGRAM2","channel":4,"sample":2650}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "appliance/heat-timer/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicButtons != "appliance/heat-timer/buttons" {
		t.Errorf("unexpected buttons topic: %s", TopicButtons)
	}
	if TopicSystem != "appliance/heat-timer/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     EventShutdown,
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadReconnected(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     EventReconnected,
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", string(payload), expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"HEARTBEAT"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: EventHeartbeat, RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload, got %s", payload)
	}
}

func TestFakePublisher(t *testing.T) {
	f := NewFakePublisher()

	event := duty.Event{Phase: duty.Heating, Cause: duty.CauseStart, Time: time.Now()}
	if err := f.Publish(event); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	press := button.Press{Button: button.Reset, Time: time.Now(), Channel: 5, Sample: 2600}
	if err := f.PublishPress(press); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if f.EventCount() != 1 || len(f.Payloads) != 1 {
		t.Fatalf("expected 1 event and payload, got %d/%d", len(f.Events), len(f.Payloads))
	}
	if f.Events[0].Phase != duty.Heating {
		t.Errorf("unexpected phase: %s", f.Events[0].Phase)
	}
	if len(f.Presses) != 1 || len(f.PressPayloads) != 1 {
		t.Fatalf("expected 1 press and payload, got %d/%d", len(f.Presses), len(f.PressPayloads))
	}
	if f.Presses[0].Button != button.Reset {
		t.Errorf("unexpected button: %s", f.Presses[0].Button)
	}
}

func TestFakePublisherError(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("broker down")

	if err := f.Publish(duty.Event{}); err == nil {
		t.Error("expected error from Publish")
	}
	if err := f.PublishPress(button.Press{}); err == nil {
		t.Error("expected error from PublishPress")
	}
	if len(f.Events) != 0 || len(f.Presses) != 0 {
		t.Error("nothing should be recorded on error")
	}
}

func TestFakePublisherPublishSystem(t *testing.T) {
	f := NewFakePublisher()

	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: EventStartup, Retained: true})
	f.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: EventHeartbeat})

	if len(f.SystemEvents) != 2 || len(f.SystemPayloads) != 2 {
		t.Fatalf("expected 2 system events, got %d", len(f.SystemEvents))
	}
	if !f.SystemEvents[0].Retained {
		t.Error("first event should have Retained=true")
	}
	if f.SystemEvents[1].Retained {
		t.Error("second event should have Retained=false")
	}

	f.PublishSystemError = errors.New("nope")
	if err := f.PublishSystem(SystemEvent{Event: EventShutdown}); err == nil {
		t.Error("expected error from PublishSystem")
	}
}

func TestFakePublisherReset(t *testing.T) {
	f := NewFakePublisher()
	f.Publish(duty.Event{})
	f.PublishPress(button.Press{})
	f.PublishSystem(SystemEvent{Event: EventStartup})
	f.Close()
	f.Connected = true
	f.PublishError = errors.New("x")

	f.Reset()

	if len(f.Events) != 0 || len(f.Presses) != 0 || len(f.SystemEvents) != 0 {
		t.Error("expected recordings cleared")
	}
	if f.Closed || f.Connected || f.PublishError != nil {
		t.Error("expected flags cleared")
	}
	if err := f.Publish(duty.Event{}); err != nil {
		t.Errorf("publisher should be reusable after reset: %v", err)
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(duty.Event{}); err != nil {
		t.Error(err)
	}
	if err := p.PublishPress(button.Press{}); err != nil {
		t.Error(err)
	}
	if err := p.PublishSystem(SystemEvent{}); err != nil {
		t.Error(err)
	}
	if (NopPublisher{}).IsConnected() {
		t.Error("nop publisher is never connected")
	}
}
