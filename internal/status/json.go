package status

import (
	"encoding/json"
	"time"

	"github.com/sweeney/heat-timer/internal/button"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Phase         string       `json:"phase"`
	Relay         string       `json:"relay"`
	PhaseSince    string       `json:"phase_since"`
	Generation    uint64       `json:"generation"`
	Job           *JobJSON     `json:"job,omitempty"`
	LastButton    *PressJSON   `json:"last_button,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// JobJSON describes the running job.
type JobJSON struct {
	Started          string `json:"started"`
	Ends             string `json:"ends"`
	RemainingSeconds int64  `json:"remaining_seconds"`
}

// PressJSON is the most recent recognized press.
type PressJSON struct {
	Button    string `json:"button"`
	Timestamp string `json:"timestamp"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of activity counts.
type CountsJSON struct {
	Presses       map[string]int `json:"presses"`
	JobsStarted   int            `json:"jobs_started"`
	JobsCompleted int            `json:"jobs_completed"`
	JobsCancelled int            `json:"jobs_cancelled"`
	HeatCycles    int            `json:"heat_cycles"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Mode        string `json:"mode"`
	ScanMs      int64  `json:"scan_ms"`
	HeatMs      int64  `json:"heat_ms"`
	CoolMs      int64  `json:"cool_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

// OnOff renders a boolean output level.
func OnOff(on bool) string {
	if on {
		return "ON"
	}
	return "OFF"
}

func buildInner(snap Snapshot) StatusInner {
	presses := make(map[string]int, len(button.All))
	for _, id := range button.All {
		presses[id.String()] = snap.Counts.Presses[id]
	}

	inner := StatusInner{
		Phase:         snap.Phase.String(),
		Relay:         OnOff(snap.Relay()),
		PhaseSince:    snap.PhaseSince.UTC().Format(time.RFC3339),
		Generation:    snap.Generation,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Presses:       presses,
			JobsStarted:   snap.Counts.JobsStarted,
			JobsCompleted: snap.Counts.JobsCompleted,
			JobsCancelled: snap.Counts.JobsCancelled,
			HeatCycles:    snap.Counts.HeatCycles,
		},
		Config: ConfigJSON{
			Mode:        snap.Config.Mode,
			ScanMs:      snap.Config.ScanMs,
			HeatMs:      snap.Config.HeatMs,
			CoolMs:      snap.Config.CoolMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}

	if !snap.JobEnds.IsZero() {
		inner.Job = &JobJSON{
			Started:          snap.JobStarted.UTC().Format(time.RFC3339),
			Ends:             snap.JobEnds.UTC().Format(time.RFC3339),
			RemainingSeconds: int64(snap.Remaining().Truncate(time.Second).Seconds()),
		}
	}
	if snap.LastButton.Valid() {
		inner.LastButton = &PressJSON{
			Button:    snap.LastButton.String(),
			Timestamp: snap.LastPress.UTC().Format(time.RFC3339),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
