package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/duty"
	"github.com/sweeney/heat-timer/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Mode:        "develop",
		ScanMs:      200,
		HeatMs:      4000,
		CoolMs:      1000,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":80",
	}
	tr := status.NewTracker(start, cfg)
	srv := New(":0", tr)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func getBody(t *testing.T, url string) string {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)
	now := time.Now()
	tr.RecordPress(button.Press{Button: button.Program4, Time: now})
	tr.RecordPhase(duty.Event{Phase: duty.Heating, Cause: duty.CauseStart, Time: now, Generation: 2, JobStarted: now, JobEnds: now.Add(30 * time.Second)})
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	if sj.Status.Phase != "HEATING" {
		t.Errorf("Phase: got %q, want HEATING", sj.Status.Phase)
	}
	if sj.Status.Relay != "ON" {
		t.Errorf("Relay: got %q, want ON", sj.Status.Relay)
	}
	if sj.Status.Job == nil || sj.Status.Job.RemainingSeconds <= 0 || sj.Status.Job.RemainingSeconds > 30 {
		t.Errorf("Job: got %+v", sj.Status.Job)
	}
	if sj.Status.LastButton == nil || sj.Status.LastButton.Button != "PROGRAM4" {
		t.Errorf("LastButton: got %+v", sj.Status.LastButton)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", sj.Status.MQTT.Broker)
	}
	if sj.Status.Counts.JobsStarted != 1 {
		t.Errorf("Counts.JobsStarted: got %d, want 1", sj.Status.Counts.JobsStarted)
	}
	if sj.Status.Config.Mode != "develop" || sj.Status.Config.ScanMs != 200 {
		t.Errorf("Config: got %+v", sj.Status.Config)
	}
}

func TestJSONIdleAtStartup(t *testing.T) {
	ts, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Phase != "IDLE" {
		t.Errorf("Phase at startup: got %q, want IDLE", sj.Status.Phase)
	}
	if sj.Status.Relay != "OFF" {
		t.Errorf("Relay at startup: got %q, want OFF", sj.Status.Relay)
	}
	if sj.Status.Job != nil {
		t.Errorf("expected no job at startup, got %+v", sj.Status.Job)
	}
}

func TestJSONNetworkInfo(t *testing.T) {
	ts, tr := newTestServer(t)
	tr.SetNetwork(&status.NetworkInfo{
		Type:   "wifi",
		IP:     "192.168.1.42",
		Status: "connected",
		SSID:   "MyNet",
	})

	sj := getJSON(t, ts.URL+"/index.json")

	if sj.Status.Network == nil {
		t.Fatal("expected Network in JSON")
	}
	if sj.Status.Network.IP != "192.168.1.42" {
		t.Errorf("Network.IP: got %q, want 192.168.1.42", sj.Status.Network.IP)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr := newTestServer(t)
	now := time.Now()
	tr.RecordPress(button.Press{Button: button.Program1, Time: now})
	tr.RecordPhase(duty.Event{Phase: duty.Cooling, Cause: duty.CauseHeatElapsed, Time: now, JobStarted: now, JobEnds: now.Add(time.Hour)})

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}

	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`<td id="phase" class="cooling">COOLING</td>`,
		`<td id="relay" class="off">OFF</td>`,
		`id="remaining"`,
		`PROGRAM1 at`,
		`<th>RESET</th><td>0</td>`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("body missing %q", want)
		}
	}
}

func TestHTMLIdleHidesJob(t *testing.T) {
	ts, _ := newTestServer(t)

	body := getBody(t, ts.URL+"/index.html")
	if !strings.Contains(body, `class="idle">IDLE`) {
		t.Error("expected idle phase")
	}
	if strings.Contains(body, `id="remaining"`) {
		t.Error("remaining time should be hidden when idle")
	}
	if strings.Contains(body, `id="last-button"`) {
		t.Error("last button should be hidden before the first press")
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr := newTestServer(t)

	if sj := getJSON(t, ts.URL+"/index.json"); sj.Status.Counts.Presses["RESET"] != 0 {
		t.Errorf("expected no resets initially, got %d", sj.Status.Counts.Presses["RESET"])
	}

	now := time.Now()
	tr.RecordPhase(duty.Event{Phase: duty.Heating, Cause: duty.CauseStart, Time: now, JobStarted: now, JobEnds: now.Add(time.Minute)})
	tr.RecordPress(button.Press{Button: button.Reset, Time: now})
	tr.RecordPhase(duty.Event{Phase: duty.Idle, Cause: duty.CauseReset, Time: now})

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Phase != "IDLE" {
		t.Errorf("Phase: got %q, want IDLE", sj.Status.Phase)
	}
	if sj.Status.Counts.Presses["RESET"] != 1 {
		t.Errorf("RESET presses: got %d, want 1", sj.Status.Counts.Presses["RESET"])
	}
	if sj.Status.Counts.JobsCancelled != 1 {
		t.Errorf("JobsCancelled: got %d, want 1", sj.Status.Counts.JobsCancelled)
	}
}

func TestRelayEndpoint(t *testing.T) {
	ts, tr := newTestServer(t)

	if body := getBody(t, ts.URL+"/relay"); body != "OFF\n" {
		t.Errorf("idle: got %q, want OFF", body)
	}

	now := time.Now()
	tr.RecordPhase(duty.Event{Phase: duty.Heating, Cause: duty.CauseStart, Time: now, JobStarted: now, JobEnds: now.Add(time.Minute)})
	if body := getBody(t, ts.URL+"/relay"); body != "ON\n" {
		t.Errorf("heating: got %q, want ON", body)
	}

	tr.RecordPhase(duty.Event{Phase: duty.Cooling, Cause: duty.CauseHeatElapsed, Time: now, JobStarted: now, JobEnds: now.Add(time.Minute)})
	if body := getBody(t, ts.URL+"/relay"); body != "OFF\n" {
		t.Errorf("cooling: got %q, want OFF", body)
	}
}

func TestWriteMethodsRejected(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/", "/index.json", "/relay"} {
		resp, err := http.Post(ts.URL+path, "text/plain", strings.NewReader("PROGRAM1"))
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: got %d, want 405", path, resp.StatusCode)
		}
		if allow := resp.Header.Get("Allow"); allow != "GET, HEAD" {
			t.Errorf("POST %s: Allow %q", path, allow)
		}
	}
}

func TestResponsesNotCached(t *testing.T) {
	ts, _ := newTestServer(t)

	for _, path := range []string{"/", "/index.json", "/relay"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()

		if cc := resp.Header.Get("Cache-Control"); cc != "no-store" {
			t.Errorf("GET %s: Cache-Control %q, want no-store", path, cc)
		}
	}
}
