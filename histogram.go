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
	"image/color"
	"io"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Histogram holds counts of values in equal-width bins.
type Histogram struct {
	// Edges holds the len(Counts)+1 bin edges.
	Edges  []float64 `json:"edges"`
	Counts []int     `json:"counts"`
}

// NewHistogram bins the non-NaN values into n equal-width bins spanning
// their range. Each bin includes its left edge; the last bin also includes
// the right edge. If all values are equal, the range is widened by 0.5 on
// each side.
func NewHistogram(values []float64, n int) *Histogram {
	min, max := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if math.IsInf(min, 1) {
		min, max = 0, 1
	} else if min == max {
		min -= 0.5
		max += 0.5
	}
	h := &Histogram{
		Edges:  make([]float64, n+1),
		Counts: make([]int, n),
	}
	width := (max - min) / float64(n)
	for i := range h.Edges {
		h.Edges[i] = min + float64(i)*width
	}
	h.Edges[n] = max
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		i := int((v - min) / width)
		if i >= n {
			i = n - 1
		}
		h.Counts[i]++
	}
	return h
}

// Total returns the number of values in the histogram.
func (h *Histogram) Total() int {
	var t int
	for _, c := range h.Counts {
		t += c
	}
	return t
}

// MaxCount returns the largest bin count.
func (h *Histogram) MaxCount() int {
	var m int
	for _, c := range h.Counts {
		if c > m {
			m = c
		}
	}
	return m
}

// Chart is a histogram with a vertical marker line.
type Chart struct {
	Title     string     `json:"title"`
	XLabel    string     `json:"xLabel"`
	YLabel    string     `json:"yLabel"`
	Histogram *Histogram `json:"histogram"`
	Marker    float64    `json:"marker"`
}

var (
	histogramFill = color.NRGBA{R: 135, G: 206, B: 235, A: 178} // sky blue, 70% opaque
	markerColor   = color.NRGBA{R: 255, A: 255}
)

// Plot creates a plot of the chart.
func (c *Chart) Plot() (*plot.Plot, error) {
	p, err := plot.New()
	if err != nil {
		return nil, err
	}
	p.Title.Text = c.Title
	p.X.Label.Text = c.XLabel
	p.Y.Label.Text = c.YLabel

	h := c.Histogram
	bins := make([]plotter.HistogramBin, len(h.Counts))
	for i, n := range h.Counts {
		bins[i] = plotter.HistogramBin{Min: h.Edges[i], Max: h.Edges[i+1], Weight: float64(n)}
	}
	hist := &plotter.Histogram{
		Bins:      bins,
		Width:     h.Edges[1] - h.Edges[0],
		FillColor: histogramFill,
	}
	hist.LineStyle = plotter.DefaultLineStyle
	hist.LineStyle.Width = vg.Points(0.5)

	marker, err := plotter.NewLine(plotter.XYs{
		{X: c.Marker, Y: 0},
		{X: c.Marker, Y: float64(h.MaxCount())},
	})
	if err != nil {
		return nil, err
	}
	marker.LineStyle.Color = markerColor
	marker.LineStyle.Width = vg.Points(2)
	marker.LineStyle.Dashes = []vg.Length{vg.Points(6), vg.Points(3)}

	p.Add(hist, marker)
	p.Y.Min = 0
	return p, nil
}

// WritePNG writes the chart to w as a PNG image of the given size.
func (c *Chart) WritePNG(w io.Writer, width, height vg.Length) error {
	p, err := c.Plot()
	if err != nil {
		return err
	}
	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
