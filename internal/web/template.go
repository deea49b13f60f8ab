package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/firesport-timer/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		h := int(d.Hours())
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>Firesport Timer</title>
<style>
body { font-family: monospace; max-width: 720px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
#live { font-size: 4em; font-weight: bold; margin: 0.2em 0; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
.board td { font-size: 1.4em; }
.running { color: green; }
.stopped { color: #c00; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>Firesport Timer</h1>

<div id="live" class="{{if eq .State "RUNNING"}}running{{else if eq .State "STOPPED"}}stopped{{end}}">{{.Live}}</div>
<p>State: <span id="state">{{.State}}</span> &middot; RPM: <span id="rpm">{{.RPM}}</span> &middot; Flow: <span id="flow">{{.Flow}}</span></p>

<table class="board">
<tr><th>#</th><th>Time</th><th>RPM</th><th>Flow</th><th>Pressure</th></tr>
{{range .Rows}}<tr><td>{{.Checkpoint}}</td><td>{{.Time}}</td><td>{{.RPM}}</td><td>{{.Flow}}</td><td>{{.Pressure}}</td></tr>
{{end}}{{with .Manual}}<tr><td>M</td><td>{{.Time}}</td><td>{{.RPM}}</td><td>{{.Flow}}</td><td>{{.Pressure}}</td></tr>
{{end}}</table>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
</table>

<h2>System</h2>
<table>
<tr><th>Run</th><td>{{if .RunID}}{{.RunID}}{{else}}-{{end}}</td></tr>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Tick</th><td>{{.Config.TickMs}}ms</td></tr>
<tr><th>Debounce</th><td>{{.Config.DebounceMs}}ms</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> &middot; <a href="/metrics">metrics</a></p>
<script>
(function() {
  var live = document.getElementById("live");
  var state = document.getElementById("state");
  var rpm = document.getElementById("rpm");
  var flow = document.getElementById("flow");
  var rows = {{len .Rows}};
  var manual = {{if .Manual}}true{{else}}false{{end}};

  function poll() {
    fetch("/index.json").then(function(r) { return r.json(); }).then(function(msg) {
      var s = msg.status;
      if (s.rows.length !== rows || (s.manual !== null) !== manual) {
        location.reload();
        return;
      }
      live.textContent = s.elapsed;
      live.className = s.state === "RUNNING" ? "running" : s.state === "STOPPED" ? "stopped" : "";
      state.textContent = s.state;
      rpm.textContent = s.rpm;
      flow.textContent = s.flow;
    }).catch(function() {});
  }
  setInterval(poll, 100);
})();
</script>
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
