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
	"math"
	"testing"

	"github.com/kr/pretty"
	"github.com/spatialmodel/omfview/omf"
	"gonum.org/v1/gonum/floats"
)

const tolerance = 1.e-10

// testProject returns a small project laid out like the Wolf Pass
// example: a 4×3×2 block model whose CU_pct value is 0.1 times the
// cell index, a topography surface, an assay line set and a Dacite
// alteration surface.
func testProject() *omf.Project {
	cu := make([]float64, 24)
	au := make([]float64, 24)
	for i := range cu {
		cu[i] = 0.1 * float64(i)
		au[i] = float64(i % 2)
	}
	return &omf.Project{
		Name:   "wolfpass",
		Units:  "m",
		Origin: omf.Vector3{100, 200, 0},
		Elements: []*omf.Element{
			{
				Name: "Block Model",
				Kind: omf.KindVolume,
				Volume: &omf.VolumeGrid{
					Origin:  omf.Vector3{0, 0, -4},
					AxisU:   omf.Vector3{1, 0, 0},
					AxisV:   omf.Vector3{0, 1, 0},
					AxisW:   omf.Vector3{0, 0, 1},
					TensorU: []float64{10, 10, 10, 10},
					TensorV: []float64{5, 5, 5},
					TensorW: []float64{2, 2},
				},
				Data: []*omf.ScalarData{
					{Name: "CU_pct", Location: omf.LocationCells, Values: cu},
					{Name: "AU_gpt", Location: omf.LocationCells, Values: au},
				},
			},
			{
				Name: "Topography",
				Kind: omf.KindSurface,
				Surface: &omf.Surface{
					Vertices:  []omf.Vector3{{0, 0, 1}, {40, 0, 1}, {40, 15, 2}, {0, 15, 2}},
					Triangles: [][3]int{{0, 1, 2}, {0, 2, 3}},
				},
			},
			{
				Name: "wolfpass_WP_assay",
				Kind: omf.KindLineSet,
				LineSet: &omf.LineSet{
					Vertices: []omf.Vector3{{5, 5, 1}, {5, 5, -2}, {6, 6, -4}},
					Segments: [][2]int{{0, 1}, {1, 2}},
				},
			},
			{
				Name: "Dacite",
				Kind: omf.KindSurface,
				Surface: &omf.Surface{
					Vertices:  []omf.Vector3{{10, 0, -3}, {30, 0, -3}, {20, 15, -1}},
					Triangles: [][3]int{{0, 1, 2}},
				},
			},
		},
	}
}

func testModel(t *testing.T) (*omf.Project, *BlockModel) {
	p := testProject()
	e, err := p.Element("Block Model")
	if err != nil {
		t.Fatal(err)
	}
	b, err := NewBlockModel(p, e, "CU_pct")
	if err != nil {
		t.Fatal(err)
	}
	return p, b
}

func TestNewBlockModel(t *testing.T) {
	_, b := testModel(t)
	if b.NU != 4 || b.NV != 3 || b.NW != 2 {
		t.Errorf("shape: %d×%d×%d", b.NU, b.NV, b.NW)
	}
	if b.NCells() != 24 || b.NPoints() != 60 {
		t.Errorf("cells: %d, points: %d", b.NCells(), b.NPoints())
	}
	s := b.Stats()
	want := Stats{Min: 0, Max: 2.3, Mean: 1.15, N: 24}
	if !floats.EqualWithinAbs(s.Min, want.Min, tolerance) ||
		!floats.EqualWithinAbs(s.Max, want.Max, tolerance) ||
		!floats.EqualWithinAbs(s.Mean, want.Mean, tolerance) || s.N != want.N {
		t.Errorf("stats: %s", pretty.Diff(want, s))
	}

	if p := b.Point(0, 0, 0); p != (omf.Vector3{100, 200, -4}) {
		t.Errorf("origin: %v", p)
	}
	if p := b.Point(4, 3, 2); p != (omf.Vector3{140, 215, 0}) {
		t.Errorf("far corner: %v", p)
	}
	min, max := b.Bounds()
	if min != (omf.Vector3{100, 200, -4}) || max != (omf.Vector3{140, 215, 0}) {
		t.Errorf("bounds: %v, %v", min, max)
	}
	if c := b.CellCenter(b.CellIndex(1, 2, 1)); c != (omf.Vector3{115, 212.5, -1}) {
		t.Errorf("cell center: %v", c)
	}
}

func TestCellIJK(t *testing.T) {
	_, b := testModel(t)
	for c := 0; c < b.NCells(); c++ {
		i, j, k := b.CellIJK(c)
		if b.CellIndex(i, j, k) != c {
			t.Errorf("cell %d: (%d, %d, %d) -> %d", c, i, j, k, b.CellIndex(i, j, k))
		}
	}
}

func TestOutline(t *testing.T) {
	_, b := testModel(t)
	o := b.Outline()
	var length float64
	for _, e := range o.Edges {
		p0, p1 := o.Corners[e[0]], o.Corners[e[1]]
		d := p1.Add(p0.Scale(-1))
		length += math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
	}
	if want := 4 * (40.0 + 15 + 4); !floats.EqualWithinAbs(length, want, tolerance) {
		t.Errorf("outline length: want %g, have %g", want, length)
	}
}

func TestNewBlockModelErrors(t *testing.T) {
	p := testProject()
	topo, _ := p.Element("Topography")
	if _, err := NewBlockModel(p, topo, "CU_pct"); err == nil {
		t.Error("surface should not be accepted as a block model")
	}
	vol, _ := p.Element("Block Model")
	if _, err := NewBlockModel(p, vol, "AG_gpt"); err == nil {
		t.Error("missing attribute should cause an error")
	}

	nan := testProject()
	vol, _ = nan.Element("Block Model")
	for i := range vol.Data[0].Values {
		vol.Data[0].Values[i] = math.NaN()
	}
	if _, err := NewBlockModel(nan, vol, "CU_pct"); err == nil {
		t.Error("all-NaN attribute should cause an error")
	}
}

func TestStatsIgnoreNaN(t *testing.T) {
	p := testProject()
	vol, _ := p.Element("Block Model")
	vol.Data[0].Values[23] = math.NaN()
	b, err := NewBlockModel(p, vol, "CU_pct")
	if err != nil {
		t.Fatal(err)
	}
	s := b.Stats()
	if s.N != 23 || !floats.EqualWithinAbs(s.Max, 2.2, tolerance) || !floats.EqualWithinAbs(s.Mean, 1.1, tolerance) {
		t.Errorf("stats: %+v", s)
	}
}

func TestExpressionAttribute(t *testing.T) {
	p := testProject()
	vol, _ := p.Element("Block Model")

	for _, test := range []struct {
		expr string
		cell int
		want float64
	}{
		{expr: "CU_pct * 10", cell: 5, want: 5},
		{expr: "CU_pct + AU_gpt", cell: 3, want: 1.3},
		{expr: "sqrt(AU_gpt * 4)", cell: 7, want: 2},
		{expr: "AU_gpt > 0", cell: 1, want: 1},
		{expr: "AU_gpt > 0", cell: 2, want: 0},
	} {
		t.Run(test.expr, func(t *testing.T) {
			b, err := NewBlockModel(p, vol, test.expr)
			if err != nil {
				t.Fatal(err)
			}
			if have := b.Values[test.cell]; !floats.EqualWithinAbs(have, test.want, tolerance) {
				t.Errorf("cell %d: want %g, have %g", test.cell, test.want, have)
			}
		})
	}

	if _, err := NewBlockModel(p, vol, "CU_pct * AG_gpt"); err == nil {
		t.Error("expression with unknown variable should cause an error")
	}
	if _, err := NewBlockModel(p, vol, "CU_pct *"); err == nil {
		t.Error("invalid expression should cause an error")
	}
}
