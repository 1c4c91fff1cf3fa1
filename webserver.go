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

package omfview

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot/vg"
)

// Server serves the interactive viewer over HTTP.
type Server struct {
	*Viewer

	// Title and Description are shown at the top of the page.
	Title, Description string

	Log logrus.FieldLogger

	mux      *http.ServeMux
	upgrader websocket.Upgrader
}

// NewServer creates a web interface for v.
func NewServer(v *Viewer) *Server {
	s := &Server{
		Viewer:      v,
		Title:       "3D Visualization of Geoscientific Data",
		Description: "Threshold the block model to explore where the grade is concentrated, alongside the distribution of the attribute across all cells.",
		Log:         logrus.StandardLogger(),
		mux:         http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1 << 16,
		},
	}
	s.mux.HandleFunc("/", s.indexHandler)
	s.mux.HandleFunc("/api/controls", s.controlsHandler)
	s.mux.HandleFunc("/api/render", s.renderHandler)
	s.mux.HandleFunc("/histogram.png", s.histogramHandler)
	s.mux.HandleFunc("/legend.png", s.legendHandler)
	s.mux.HandleFunc("/ws", s.wsHandler)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Log.WithFields(logrus.Fields{
		"url":  r.URL.String(),
		"addr": r.RemoteAddr,
	}).Info("omfview request")
	s.mux.ServeHTTP(w, r)
}

// controlsFromQuery reads control values from the URL query of r,
// starting from the initial control state and clamping the threshold
// to the slider range.
func (s *Server) controlsFromQuery(r *http.Request) (Controls, error) {
	cs := s.Controls()
	c := cs.Initial
	q := r.URL.Query()
	var err error
	if t := q.Get("threshold"); t != "" {
		if c.Threshold, err = strconv.ParseFloat(t, 64); err != nil {
			return c, fmt.Errorf("omfview: invalid threshold %q", t)
		}
	}
	for _, b := range []struct {
		key string
		v   *bool
	}{
		{"assay", &c.ShowAssay},
		{"alteration", &c.ShowAlteration},
	} {
		if v := q.Get(b.key); v != "" {
			if *b.v, err = strconv.ParseBool(v); err != nil {
				return c, fmt.Errorf("omfview: invalid value %q for %s", v, b.key)
			}
		}
	}
	return cs.Clamp(c), nil
}

func (s *Server) controlsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Controls())
}

// renderHandler renders the controls given either as a JSON body of a
// POST request or as URL query parameters.
func (s *Server) renderHandler(w http.ResponseWriter, r *http.Request) {
	var c Controls
	switch r.Method {
	case http.MethodPost:
		c = s.Controls().Initial
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			http.Error(w, fmt.Sprintf("omfview: invalid controls: %v", err), http.StatusBadRequest)
			return
		}
		c = s.Controls().Clamp(c)
	case http.MethodGet:
		var err error
		if c, err = s.controlsFromQuery(r); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, s.Render(c))
}

func (s *Server) histogramHandler(w http.ResponseWriter, r *http.Request) {
	c, err := s.controlsFromQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	b, err := s.ChartPNG(c.Threshold)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(b)
}

// LegendWidth and LegendHeight are the size of the color legend image.
const (
	LegendWidth  = 3 * vg.Inch
	LegendHeight = 0.9 * vg.Inch
)

func (s *Server) legendHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	if err := s.ColorScale().Legend(w, s.Layers.ScalarBarTitle(), LegendWidth, LegendHeight); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// wsHandler renders each set of controls received over a websocket
// connection and sends back the result.
func (s *Server) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Log.WithError(err).Warn("omfview: websocket upgrade failed")
		return
	}
	defer conn.Close()
	cs := s.Controls()
	for {
		c := cs.Initial
		if err := conn.ReadJSON(&c); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.Log.WithError(err).Warn("omfview: reading websocket message")
			}
			return
		}
		if err := conn.WriteJSON(s.Render(cs.Clamp(c))); err != nil {
			s.Log.WithError(err).Warn("omfview: writing websocket message")
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) indexHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	cs := s.Controls()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := indexTemplate.Execute(w, struct {
		Title, Description string
		Controls           *ControlSet
	}{s.Title, s.Description, cs})
	if err != nil {
		s.Log.WithError(err).Error("omfview: rendering index page")
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>{{.Title}}</title>
  <style>
    body { font-family: sans-serif; margin: 1em 2em; }
    .columns { display: grid; grid-template-columns: 3fr 1fr; gap: 2em; }
    .control { margin: 0.5em 0; }
    #view { position: relative; width: 600px; height: 900px; }
    #legend { position: absolute; right: 0; bottom: 0; }
    #histogram { width: 100%; }
  </style>
</head>
<body>
<div class="columns">
  <div>
    <h1>{{.Title}}</h1>
    <p>{{.Description}}</p>
    {{with .Controls}}
    <div class="control"{{if not .ShowAlteration.Available}} hidden{{end}}>
      <label><input type="checkbox" id="alteration"> {{.ShowAlteration.Label}}</label>
    </div>
    <div class="control"{{if not .ShowAssay.Available}} hidden{{end}}>
      <label><input type="checkbox" id="assay"> {{.ShowAssay.Label}}</label>
    </div>
    <div class="control">
      <label for="threshold">{{.Threshold.Label}}: <span id="thresholdValue">{{printf "%.2f" .Threshold.Default}}</span></label><br>
      <input type="range" id="threshold" style="width: 600px"
        min="{{.Threshold.Min}}" max="{{.Threshold.Max}}" step="{{.Threshold.Step}}" value="{{.Threshold.Default}}">
    </div>
    {{end}}
    <p id="message"></p>
    <div id="view"><img id="legend" src="legend.png" alt="legend"></div>
  </div>
  <div>
    <img id="histogram" alt="histogram">
  </div>
</div>
<script src="https://unpkg.com/three@0.128.0/build/three.min.js"></script>
<script src="https://unpkg.com/three@0.128.0/examples/js/controls/OrbitControls.js"></script>
<script>
(function() {
  var view = document.getElementById("view");
  var renderer = new THREE.WebGLRenderer({antialias: true});
  renderer.setSize(600, 900);
  view.insertBefore(renderer.domElement, view.firstChild);
  var camera = new THREE.PerspectiveCamera(30, 600 / 900, 1, 1e7);
  camera.up.set(0, 0, 1);
  var controls = new THREE.OrbitControls(camera, renderer.domElement);
  var scene = new THREE.Scene();
  var placed = false;

  function bytes(s) {
    var b = atob(s || ""), o = new Float32Array(b.length);
    for (var i = 0; i < b.length; i++) { o[i] = b.charCodeAt(i) / 255; }
    return o;
  }

  function object(m) {
    var g = new THREE.BufferGeometry();
    g.setAttribute("position", new THREE.Float32BufferAttribute(m.positions || [], 3));
    g.setIndex(m.indices || []);
    var st = m.style, opts = {
      color: st.color || "lightgrey",
      transparent: st.opacity < 1,
      opacity: st.opacity,
      side: THREE.DoubleSide
    };
    if (m.colors) {
      g.setAttribute("color", new THREE.Float32BufferAttribute(bytes(m.colors), 3));
      opts.color = "white";
      opts.vertexColors = true;
    }
    switch (m.primitive) {
    case "lines":
      delete opts.side;
      opts.linewidth = st.lineWidth || 1;
      return new THREE.LineSegments(g, new THREE.LineBasicMaterial(opts));
    case "points":
      delete opts.side;
      opts.size = st.lineWidth || 2;
      opts.sizeAttenuation = false;
      return new THREE.Points(g, new THREE.PointsMaterial(opts));
    default:
      g.computeVertexNormals();
      return new THREE.Mesh(g, new THREE.MeshLambertMaterial(opts));
    }
  }

  function draw(res) {
    var s = res.scene;
    scene = new THREE.Scene();
    scene.background = new THREE.Color(s.background);
    scene.add(new THREE.AmbientLight(0xffffff, 0.6));
    var light = new THREE.DirectionalLight(0xffffff, 0.5);
    light.position.set(1, 1, 2);
    scene.add(light);
    var box = new THREE.Box3();
    s.meshes.forEach(function(m) {
      var o = object(m);
      scene.add(o);
      if (m.role === "outline") { box.setFromObject(o); }
    });
    if (!placed) {
      var d = box.getSize(new THREE.Vector3()).length() * 1.5;
      camera.position.set(d, d, d);
      camera.lookAt(0, 0, 0);
      placed = true;
    }
    document.getElementById("message").textContent = res.message;
  }

  function animate() {
    requestAnimationFrame(animate);
    controls.update();
    renderer.render(scene, camera);
  }
  animate();

  var threshold = document.getElementById("threshold");
  var assay = document.getElementById("assay");
  var alteration = document.getElementById("alteration");

  function state() {
    return {
      threshold: parseFloat(threshold.value),
      showAssay: assay.checked,
      showAlteration: alteration.checked
    };
  }

  var ws = null;
  function update() {
    var c = state();
    document.getElementById("thresholdValue").textContent = c.threshold.toFixed(2);
    document.getElementById("histogram").src = "histogram.png?threshold=" + c.threshold;
    if (ws && ws.readyState === WebSocket.OPEN) {
      ws.send(JSON.stringify(c));
      return;
    }
    fetch("api/render", {method: "POST", body: JSON.stringify(c)})
      .then(function(r) { return r.json(); })
      .then(draw);
  }

  var proto = location.protocol === "https:" ? "wss://" : "ws://";
  ws = new WebSocket(proto + location.host + location.pathname.replace(/\/?$/, "/") + "ws");
  ws.onmessage = function(e) { draw(JSON.parse(e.data)); };
  ws.onopen = update;
  ws.onerror = function() { ws = null; update(); };

  threshold.addEventListener("input", update);
  assay.addEventListener("change", update);
  alteration.addEventListener("change", update);
})();
</script>
</body>
</html>
`))
