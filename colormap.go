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
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// nanColor is used for values that have no defined color.
var nanColor = color.NRGBA{R: 128, G: 128, B: 128, A: 255}

// ColorScale maps attribute values to colors over fixed limits using the
// Moreland smooth blue-red ("coolwarm") diverging map.
type ColorScale struct {
	Name     string
	Min, Max float64

	cmap palette.ColorMap
}

// NewColorScale returns a coolwarm color scale spanning [min, max].
func NewColorScale(min, max float64) *ColorScale {
	if !(max > min) {
		max = min + 1
	}
	cm := moreland.SmoothBlueRed()
	cm.SetMin(min)
	cm.SetMax(max)
	return &ColorScale{Name: "coolwarm", Min: min, Max: max, cmap: cm}
}

// At returns the color of v. Values outside the limits take the color
// of the nearest limit.
func (c *ColorScale) At(v float64) color.NRGBA {
	if math.IsNaN(v) {
		return nanColor
	}
	v = math.Max(c.Min, math.Min(c.Max, v))
	col, err := c.cmap.At(v)
	if err != nil {
		return nanColor
	}
	return color.NRGBAModel.Convert(col).(color.NRGBA)
}

// Legend writes a PNG color bar for the scale with the given title.
func (c *ColorScale) Legend(w io.Writer, title string, width, height vg.Length) error {
	p, err := plot.New()
	if err != nil {
		return err
	}
	p.Title.Text = title
	p.Add(&plotter.ColorBar{ColorMap: c.cmap})
	p.HideY()
	p.X.Padding = 0

	img := vgimg.New(width, height)
	p.Draw(draw.New(img))
	_, err = vgimg.PngCanvas{Canvas: img}.WriteTo(w)
	return err
}
