/*
Copyright © 2024 the omfview authors.
This file is part of omfview.

omfview is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

omfview is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with omfview.  If not, see <http://www.gnu.org/licenses/>.
*/

package omfviewutil

import (
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/ctessum/gobra"
	"github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
	"github.com/spf13/cobra"
)

// StartWebServer serves h at address until the server fails. If
// openBrowser is true, the page is opened in the default browser.
func StartWebServer(address string, h http.Handler, openBrowser bool, log logrus.FieldLogger) error {
	srv := &http.Server{
		Addr:              address,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
	url := "http://" + address
	if address != "" && address[0] == ':' {
		url = "http://localhost" + address
	}
	log.Infof("listening on %s", url)
	if openBrowser {
		if err := open.Run(url); err != nil {
			log.WithError(err).Warn("could not open browser")
		}
	}
	return srv.ListenAndServe()
}

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Run the commands from a browser.",
	Long: `gui starts a web page with a form for each omfview command, which can be
used instead of the command line to describe or export an asset.`,
	Run: func(cmd *cobra.Command, args []string) {
		StartCommandServer("localhost:7171")
	},
	DisableAutoGenTag: true,
}

// configHandler reads the configuration file given in the request and
// returns the resulting option values.
func configHandler(w http.ResponseWriter, r *http.Request) {
	r.ParseForm()
	Root.PersistentFlags().Set("config", r.Form.Get("config"))
	if err := setConfig(); err != nil {
		http.Error(w, err.Error(), http.StatusNoContent)
		return
	}
	config := make(map[string]interface{})
	for _, option := range options {
		config[option.name] = Cfg.Get(option.name)
	}
	e := json.NewEncoder(w)
	if err := e.Encode(config); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// StartCommandServer serves a web form for running the commands.
func StartCommandServer(address string) {
	setConfig() // Ignore any errors for now.

	http.HandleFunc("/setConfig", configHandler)

	for _, cmd := range []*cobra.Command{Root, versionCmd, serveCmd, infoCmd, thresholdCmd, exportCmd} {
		cmd.SilenceUsage = true // We don't want the usage messages in the GUI.
	}

	output := template.Must(template.New("").Parse(commandPage(address)))
	server := gobra.Server{Root: Root, ServerAddress: address, AllowCORS: false, HTML: output}
	logrus.Info("command server starting...")
	open.Run("http://" + address)
	logrus.Infof("if not opened automatically, please visit http://%s", address)
	server.Start()
}

// commandPage returns the page wrapping the gobra command forms. When
// the config field changes, the other fields are filled in from the
// configuration file.
func commandPage(address string) string {
	return `<!DOCTYPE html>
<html>
<head>
	<meta charset="utf-8">
	<title>omfview</title>
	<style>
		body { font-family: sans-serif; max-width: 700px; margin: 2em auto; }
		input.from-config { background: #efe; }
	</style>
</head>
<body>
	<h1>omfview</h1>
	<p>Set an asset and run a command. Fields read from the configuration file are shaded green.</p>
	{{.}}
<script>
var fields = document.querySelectorAll("[data-name]");
var config = document.querySelector('[data-name="config"] input');
config.addEventListener("change", function() {
	fetch("http://` + address + `/setConfig?config=" + encodeURIComponent(config.value))
		.then(function(res) { return res.status == 200 ? res.json() : {}; })
		.then(function(values) {
			fields.forEach(function(f) {
				var v = values[f.dataset.name], input = f.querySelector("input");
				if (v === undefined || v === null || input === config) return;
				input.value = Array.isArray(v) ? v.join(",") : v;
				input.classList.add("from-config");
			});
		});
});
</script>
</body>
</html>`
}
