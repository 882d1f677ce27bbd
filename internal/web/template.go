package web

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/sweeney/heat-timer/internal/button"
	"github.com/sweeney/heat-timer/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"duration": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"lower":   strings.ToLower,
	"onOff":   status.OnOff,
	"utc":     func(t time.Time) string { return t.UTC().Format("2006-01-02T15:04:05Z") },
	"buttons": func() []button.ID { return button.All },
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="5">
<title>Heat Timer</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.heating, .on { color: #c30; font-weight: bold; }
.cooling { color: #06c; font-weight: bold; }
.idle, .off { color: #888; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Heat Timer</h1>

<h2>State</h2>
<table>
<tr><th>Phase</th><td id="phase" class="{{lower .Phase.String}}">{{.Phase}}</td></tr>
<tr><th>Relay</th><td id="relay" class="{{lower (onOff .Relay)}}">{{onOff .Relay}}</td></tr>
<tr><th>Since</th><td>{{utc .PhaseSince}}</td></tr>
{{if not .JobEnds.IsZero}}<tr><th>Job started</th><td>{{utc .JobStarted}}</td></tr>
<tr><th>Job ends</th><td>{{utc .JobEnds}}</td></tr>
<tr><th>Remaining</th><td id="remaining">{{duration .Remaining}}</td></tr>{{end}}
{{if .LastButton.Valid}}<tr><th>Last button</th><td id="last-button">{{.LastButton}} at {{utc .LastPress}}</td></tr>{{end}}
</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{if .Config.Broker}}{{.Config.Broker}}{{else}}disabled{{end}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Counts</h2>
<table>
{{range buttons}}<tr><th>{{.}}</th><td>{{index $.Counts.Presses .}}</td></tr>
{{end}}<tr><th>Jobs started</th><td>{{.Counts.JobsStarted}}</td></tr>
<tr><th>Jobs completed</th><td>{{.Counts.JobsCompleted}}</td></tr>
<tr><th>Jobs cancelled</th><td>{{.Counts.JobsCancelled}}</td></tr>
<tr><th>Heat cycles</th><td>{{.Counts.HeatCycles}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Mode</th><td>{{.Config.Mode}}</td></tr>
<tr><th>Uptime</th><td>{{duration .Uptime}}</td></tr>
<tr><th>Started</th><td>{{utc .StartTime}}</td></tr>
<tr><th>Scan</th><td>{{.Config.ScanMs}}ms</td></tr>
<tr><th>Heat / cool</th><td>{{.Config.HeatMs}}ms / {{.Config.CoolMs}}ms</td></tr>
<tr><th>Heartbeat</th><td>{{if eq .Config.HeartbeatMs 0}}disabled{{else}}{{.Config.HeartbeatMs}}ms{{end}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// The template needs plain fields for the computed durations.
	data := struct {
		status.Snapshot
		Uptime    time.Duration
		Remaining time.Duration
		Relay     bool
	}{
		Snapshot:  snap,
		Uptime:    snap.Uptime(),
		Remaining: snap.Remaining(),
		Relay:     snap.Relay(),
	}
	indexTmpl.Execute(w, data)
}
