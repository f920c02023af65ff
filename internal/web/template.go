package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/thermo-relay/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
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
	"ago": func(now, t time.Time) string {
		return now.Sub(t).Truncate(time.Second).String()
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="30">
<title>Thermo Relay</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.on { color: green; font-weight: bold; }
.off { color: #888; }
.unknown { color: orange; }
.connected { color: green; }
.disconnected { color: red; }
.error { color: red; }
</style>
</head>
<body>
<h1>Thermo Relay</h1>

<h2>Temperature</h2>
<table>
{{if .Last}}<tr><th>Celsius</th><td>{{printf "%.2f" .Last.Reading.Celsius}} &deg;C</td></tr>
<tr><th>Fahrenheit</th><td>{{printf "%.2f" .Last.Reading.Fahrenheit}} &deg;F</td></tr>
<tr><th>Recorded</th><td>{{ago .Now .Last.At}} ago</td></tr>
{{else}}<tr><th>Reading</th><td class="unknown">none yet</td></tr>
{{end}}{{if .LastError}}<tr><th>Last error</th><td class="error">{{.LastError}}</td></tr>{{end}}
</table>

<h2>Relay</h2>
<table>
<tr><th>State</th><td class="{{if eq (printf "%s" .Relay) "ON"}}on{{else if eq (printf "%s" .Relay) "OFF"}}off{{else}}unknown{{end}}">{{.Relay}}</td></tr>
<tr><th>Pin</th><td>GPIO{{.Config.RelayPin}}</td></tr>
</table>

<h2>Connectivity</h2>
<table>
<tr><th>Store</th><td>{{.Config.Store}}</td></tr>
{{if .Config.Broker}}<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>{{end}}
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}} {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>Poll Cycles</h2>
<table>
<tr><th>Stored</th><td>{{.Counts.Stored}}</td></tr>
<tr><th>Read failed</th><td>{{.Counts.ReadFailed}}</td></tr>
<tr><th>Store failed</th><td>{{.Counts.StoreFailed}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Poll</th><td>{{.Config.PollMs}}ms</td></tr>
<tr><th>Sensor retry</th><td>{{.Config.RetryMs}}ms</td></tr>
<tr><th>Tolerance</th><td>{{.Config.Tolerance}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/metrics">metrics</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
