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

// Package omfview is an interactive viewer for block models stored in
// Open Mining Format projects. It thresholds a block model attribute,
// composes a 3D scene of the result together with supporting surfaces
// and drill holes, and plots the attribute distribution.
package omfview

import (
	"fmt"
	"math"

	"github.com/spatialmodel/omfview/omf"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Version is the version of this software.
const Version = "1.0.0"

// BlockModel is a rectilinear grid of cells carrying one scalar attribute.
// Cells are ordered with the u index varying fastest, then v, then w.
type BlockModel struct {
	Name      string
	Attribute string

	NU, NV, NW int

	// Values holds the attribute value of each cell.
	Values []float64

	// Node distances from the grid origin along each axis.
	nodesU, nodesV, nodesW []float64

	origin, axisU, axisV, axisW omf.Vector3

	stats Stats
}

// Stats summarizes the valid (non-NaN) values of an attribute.
type Stats struct {
	Min, Max, Mean float64

	// N is the number of valid values.
	N int
}

// NewBlockModel creates a block model from the volume element e of project p.
// attribute is either the name of a cell data array of e or an expression
// combining several of them, such as "CU_pct * 10000".
func NewBlockModel(p *omf.Project, e *omf.Element, attribute string) (*BlockModel, error) {
	if e.Kind != omf.KindVolume || e.Volume == nil {
		return nil, fmt.Errorf("omfview: element %q is a %v, not a volume", e.Name, e.Kind)
	}
	b := newGrid(p, e)
	b.Attribute = attribute

	values, err := cellValues(e, attribute, b.NCells())
	if err != nil {
		return nil, err
	}
	b.Values = values

	b.stats, err = computeStats(values)
	if err != nil {
		return nil, fmt.Errorf("omfview: block model %q attribute %q: %v", e.Name, attribute, err)
	}
	return b, nil
}

// VolumeBounds returns the axis-aligned bounding box of volume element e.
func VolumeBounds(p *omf.Project, e *omf.Element) (min, max omf.Vector3, err error) {
	if e.Kind != omf.KindVolume || e.Volume == nil {
		return min, max, fmt.Errorf("omfview: element %q is a %v, not a volume", e.Name, e.Kind)
	}
	min, max = newGrid(p, e).Bounds()
	return min, max, nil
}

// newGrid creates a block model with the geometry of volume element e
// and no attribute values.
func newGrid(p *omf.Project, e *omf.Element) *BlockModel {
	g := e.Volume
	b := &BlockModel{
		Name:   e.Name,
		origin: p.Origin.Add(g.Origin),
		axisU:  g.AxisU,
		axisV:  g.AxisV,
		axisW:  g.AxisW,
		nodesU: cumulative(g.TensorU),
		nodesV: cumulative(g.TensorV),
		nodesW: cumulative(g.TensorW),
	}
	b.NU, b.NV, b.NW = g.Shape()
	return b
}

// cumulative returns the running sum of widths, starting at zero.
func cumulative(widths []float64) []float64 {
	o := make([]float64, len(widths)+1)
	floats.CumSum(o[1:], widths)
	return o
}

func computeStats(values []float64) (Stats, error) {
	valid := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return Stats{}, fmt.Errorf("no valid values")
	}
	return Stats{
		Min:  floats.Min(valid),
		Max:  floats.Max(valid),
		Mean: stat.Mean(valid, nil),
		N:    len(valid),
	}, nil
}

// Stats returns summary statistics of the attribute values.
func (b *BlockModel) Stats() Stats { return b.stats }

// NCells returns the number of cells in the model.
func (b *BlockModel) NCells() int { return b.NU * b.NV * b.NW }

// NPoints returns the number of grid vertices in the model.
func (b *BlockModel) NPoints() int { return (b.NU + 1) * (b.NV + 1) * (b.NW + 1) }

// CellIndex returns the index of cell (i, j, k).
func (b *BlockModel) CellIndex(i, j, k int) int {
	return i + b.NU*(j+b.NV*k)
}

// CellIJK is the inverse of CellIndex.
func (b *BlockModel) CellIJK(c int) (i, j, k int) {
	return c % b.NU, (c / b.NU) % b.NV, c / (b.NU * b.NV)
}

// PointIndex returns the index of grid vertex (i, j, k).
func (b *BlockModel) PointIndex(i, j, k int) int {
	return i + (b.NU+1)*(j+(b.NV+1)*k)
}

// Point returns the world coordinates of grid vertex (i, j, k).
func (b *BlockModel) Point(i, j, k int) omf.Vector3 {
	return b.origin.
		Add(b.axisU.Scale(b.nodesU[i])).
		Add(b.axisV.Scale(b.nodesV[j])).
		Add(b.axisW.Scale(b.nodesW[k]))
}

// cellCorners returns the point indices of the 8 corners of cell (i, j, k).
func (b *BlockModel) cellCorners(i, j, k int) [8]int {
	return [8]int{
		b.PointIndex(i, j, k), b.PointIndex(i+1, j, k),
		b.PointIndex(i, j+1, k), b.PointIndex(i+1, j+1, k),
		b.PointIndex(i, j, k+1), b.PointIndex(i+1, j, k+1),
		b.PointIndex(i, j+1, k+1), b.PointIndex(i+1, j+1, k+1),
	}
}

// corners returns the world coordinates of the 8 corners of the whole grid.
func (b *BlockModel) corners() [8]omf.Vector3 {
	return [8]omf.Vector3{
		b.Point(0, 0, 0), b.Point(b.NU, 0, 0),
		b.Point(0, b.NV, 0), b.Point(b.NU, b.NV, 0),
		b.Point(0, 0, b.NW), b.Point(b.NU, 0, b.NW),
		b.Point(0, b.NV, b.NW), b.Point(b.NU, b.NV, b.NW),
	}
}

// Bounds returns the axis-aligned bounding box of the model.
func (b *BlockModel) Bounds() (min, max omf.Vector3) {
	c := b.corners()
	min, max = c[0], c[0]
	for _, p := range c[1:] {
		for d := 0; d < 3; d++ {
			min[d] = math.Min(min[d], p[d])
			max[d] = math.Max(max[d], p[d])
		}
	}
	return min, max
}

// Outline is the set of 12 edges of an axis-aligned box.
type Outline struct {
	Corners [8]omf.Vector3
	Edges   [12][2]int
}

// boxEdges lists the edges between box corners ordered as in BlockModel.corners.
var boxEdges = [12][2]int{
	{0, 1}, {2, 3}, {4, 5}, {6, 7}, // along x
	{0, 2}, {1, 3}, {4, 6}, {5, 7}, // along y
	{0, 4}, {1, 5}, {2, 6}, {3, 7}, // along z
}

// Outline returns the edges of the model's bounding box.
func (b *BlockModel) Outline() *Outline {
	min, max := b.Bounds()
	o := &Outline{Edges: boxEdges}
	for c := 0; c < 8; c++ {
		for d := 0; d < 3; d++ {
			if c&(1<<uint(d)) == 0 {
				o.Corners[c][d] = min[d]
			} else {
				o.Corners[c][d] = max[d]
			}
		}
	}
	return o
}
