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
	"bytes"
	"fmt"
	"math"
	"sync"

	"github.com/golang/groupcache/lru"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/omfview/omf"
	"gonum.org/v1/plot/vg"
)

// Scene window size and background.
const (
	SceneWidth      = 600
	SceneHeight     = 900
	SceneBackground = "white"
)

// Chart image size.
const (
	ChartWidth  = 4 * vg.Inch
	ChartHeight = 3 * vg.Inch
)

// Viewer holds a loaded project and renders thresholded views of its
// block model. All of its exported fields must be treated as read-only
// once it is created, which makes Render safe for concurrent use.
type Viewer struct {
	Layers  *Layers
	Project *omf.Project
	Model   *BlockModel

	// Log receives messages about rendering.
	Log logrus.FieldLogger

	center    omf.Vector3
	colors    *ColorScale
	histogram *Histogram

	static map[Role]*Mesh

	pointsOnce sync.Once
	points     *PointVolume

	// chartCache holds encoded histogram images by threshold.
	chartCache *lru.Cache
	chartMx    sync.Mutex
}

// NewViewer prepares project p for viewing with the given layer
// configuration. It returns an error naming the first configured
// element that p does not contain.
func NewViewer(p *omf.Project, l *Layers) (*Viewer, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	e, err := p.Element(l.Volume)
	if err != nil {
		return nil, err
	}
	bm, err := NewBlockModel(p, e, l.Attribute)
	if err != nil {
		return nil, err
	}
	min, max := bm.Bounds()
	v := &Viewer{
		Layers:     l,
		Project:    p,
		Model:      bm,
		Log:        logrus.StandardLogger(),
		center:     min.Add(max).Scale(0.5),
		static:     make(map[Role]*Mesh),
		chartCache: lru.New(100),
	}
	stats := bm.Stats()
	v.colors = NewColorScale(stats.Min, stats.Max)
	v.histogram = NewHistogram(bm.Values, l.Bins)
	v.static[RoleOutline] = outlineMesh(bm.Outline(), bm.Name+" outline", RoleOutline, v.center, l.Styles[RoleOutline])

	for _, layer := range []struct {
		role Role
		name string
	}{
		{RoleTopography, l.Topography},
		{RoleAssay, l.Assay},
		{RoleAlteration, l.Alteration},
	} {
		if layer.name == "" {
			continue
		}
		e, err := p.Element(layer.name)
		if err != nil {
			return nil, err
		}
		m, err := elementMesh(p, e, layer.role, v.center, l.Styles[layer.role])
		if err != nil {
			return nil, err
		}
		v.static[layer.role] = m
	}
	return v, nil
}

// Points returns the block model attribute averaged onto the grid
// vertices. It is computed on the first call.
func (v *Viewer) Points() *PointVolume {
	v.pointsOnce.Do(func() {
		v.points = v.Model.PointData()
	})
	return v.points
}

// ColorScale returns the color scale of the block model attribute. Its
// limits are the range of the unfiltered attribute and do not depend on
// the threshold.
func (v *Viewer) ColorScale() *ColorScale { return v.colors }

// Histogram returns the histogram of the unfiltered attribute.
func (v *Viewer) Histogram() *Histogram { return v.histogram }

// Controls holds the state of the user controls.
type Controls struct {
	Threshold      float64 `json:"threshold"`
	ShowAssay      bool    `json:"showAssay"`
	ShowAlteration bool    `json:"showAlteration"`
}

// Control describes one user control.
type Control struct {
	Label   string  `json:"label"`
	Min     float64 `json:"min,omitempty"`
	Max     float64 `json:"max,omitempty"`
	Step    float64 `json:"step,omitempty"`
	Default float64 `json:"default,omitempty"`

	// Available is false for checkboxes whose layer is not configured,
	// which also have no label.
	Available bool `json:"available"`
}

// ControlSet describes the user controls and their initial state.
type ControlSet struct {
	Threshold      Control  `json:"threshold"`
	ShowAlteration Control  `json:"showAlteration"`
	ShowAssay      Control  `json:"showAssay"`
	Initial        Controls `json:"initial"`
}

// Controls returns the user controls. The threshold slider spans
// [0, max] of the attribute and starts at its mean; both checkboxes
// start unchecked.
func (v *Viewer) Controls() *ControlSet {
	s := v.Model.Stats()
	_, hasAssay := v.static[RoleAssay]
	_, hasAlteration := v.static[RoleAlteration]
	alteration := Control{Available: hasAlteration}
	if hasAlteration {
		alteration.Label = "Show " + v.Layers.Alteration
	}
	assay := Control{Available: hasAssay}
	if hasAssay {
		assay.Label = "Show Assay"
	}
	return &ControlSet{
		Threshold: Control{
			Label:     v.Layers.Attribute + " Threshold",
			Min:       0,
			Max:       s.Max,
			Step:      0.01,
			Default:   s.Mean,
			Available: true,
		},
		ShowAlteration: alteration,
		ShowAssay:      assay,
		Initial:        Controls{Threshold: s.Mean},
	}
}

// Clamp limits c.Threshold to the slider range.
func (cs *ControlSet) Clamp(c Controls) Controls {
	if math.IsNaN(c.Threshold) || c.Threshold < cs.Threshold.Min {
		c.Threshold = cs.Threshold.Min
	}
	if c.Threshold > cs.Threshold.Max {
		c.Threshold = cs.Threshold.Max
	}
	return c
}

// RenderResult is the output of one render.
type RenderResult struct {
	Scene *Scene `json:"scene"`
	Chart *Chart `json:"chart"`

	// CellCount is the number of cells in the thresholded subset.
	CellCount int    `json:"cellCount"`
	Message   string `json:"message"`
}

// Render thresholds the block model at c.Threshold and composes a new
// scene and histogram chart. The threshold is not checked against the
// slider range.
func (v *Viewer) Render(c Controls) *RenderResult {
	subset := v.Points().Threshold(c.Threshold, v.Layers.ThresholdMode)
	l := v.Layers

	s := &Scene{
		Background: SceneBackground,
		Camera:     Isometric,
		Width:      SceneWidth,
		Height:     SceneHeight,
		Center:     v.center,
		ScalarBar: &ScalarBar{
			Title:    l.ScalarBarTitle(),
			ColorMap: v.colors.Name,
			Min:      v.colors.Min,
			Max:      v.colors.Max,
		},
	}
	if m, ok := v.static[RoleTopography]; ok {
		s.Meshes = append(s.Meshes, m)
	}
	s.Meshes = append(s.Meshes,
		subsetMesh(subset, v.Model.Name, v.center, v.colors, l.Styles[RoleVolume]),
		v.static[RoleOutline],
	)
	if m, ok := v.static[RoleAlteration]; ok && c.ShowAlteration {
		s.Meshes = append(s.Meshes, m)
	}
	if m, ok := v.static[RoleAssay]; ok && c.ShowAssay {
		s.Meshes = append(s.Meshes, m)
	}

	n := subset.NCells()
	v.Log.WithFields(logrus.Fields{
		"threshold": c.Threshold,
		"cells":     n,
	}).Debug("rendered scene")

	return &RenderResult{
		Scene:     s,
		Chart:     v.Chart(c.Threshold),
		CellCount: n,
		Message:   fmt.Sprintf("Number of cells in thresholded dataset: %d", n),
	}
}

// Chart returns the histogram of the unfiltered attribute with a marker
// at threshold.
func (v *Viewer) Chart(threshold float64) *Chart {
	a := v.Layers.Attribute
	return &Chart{
		Title:     fmt.Sprintf("Distribution of %s Values", a),
		XLabel:    a,
		YLabel:    "Frequency",
		Histogram: v.histogram,
		Marker:    threshold,
	}
}

// ChartPNG returns the chart for threshold encoded as a PNG image.
// Recently requested images are cached.
func (v *Viewer) ChartPNG(threshold float64) ([]byte, error) {
	v.chartMx.Lock()
	b, ok := v.chartCache.Get(threshold)
	v.chartMx.Unlock()
	if ok {
		return b.([]byte), nil
	}
	buf := new(bytes.Buffer)
	if err := v.Chart(threshold).WritePNG(buf, ChartWidth, ChartHeight); err != nil {
		return nil, fmt.Errorf("omfview: drawing histogram: %v", err)
	}
	v.chartMx.Lock()
	v.chartCache.Add(threshold, buf.Bytes())
	v.chartMx.Unlock()
	return buf.Bytes(), nil
}
