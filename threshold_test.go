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

	"github.com/spatialmodel/omfview/omf"
	"gonum.org/v1/gonum/floats"
)

// rowModel returns a block model with one row of cells along u holding
// the given values.
func rowModel(t *testing.T, values ...float64) *BlockModel {
	widths := make([]float64, len(values))
	for i := range widths {
		widths[i] = 1
	}
	p := &omf.Project{Elements: []*omf.Element{{
		Name: "row",
		Kind: omf.KindVolume,
		Volume: &omf.VolumeGrid{
			AxisU: omf.Vector3{1, 0, 0}, AxisV: omf.Vector3{0, 1, 0}, AxisW: omf.Vector3{0, 0, 1},
			TensorU: widths, TensorV: []float64{1}, TensorW: []float64{1},
		},
		Data: []*omf.ScalarData{{Name: "v", Values: values}},
	}}}
	b, err := NewBlockModel(p, p.Elements[0], "v")
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestPointData(t *testing.T) {
	b := rowModel(t, 1, 3, math.NaN())
	pv := b.PointData()
	if len(pv.Values) != b.NPoints() {
		t.Fatalf("have %d point values, want %d", len(pv.Values), b.NPoints())
	}
	want := []float64{1, 2, 3, math.NaN()}
	for j := 0; j <= 1; j++ {
		for k := 0; k <= 1; k++ {
			for i, w := range want {
				have := pv.Values[b.PointIndex(i, j, k)]
				if math.IsNaN(w) != math.IsNaN(have) || (!math.IsNaN(w) && !floats.EqualWithinAbs(w, have, tolerance)) {
					t.Errorf("point (%d, %d, %d): want %g, have %g", i, j, k, w, have)
				}
			}
		}
	}
	if !math.IsNaN(b.Values[2]) || b.Values[0] != 1 {
		t.Error("cell values were modified")
	}
}

func TestThresholdZeroKeepsAll(t *testing.T) {
	_, b := testModel(t)
	s := b.PointData().Threshold(0, AnyPoint)
	if s.NCells() != b.NCells() {
		t.Errorf("have %d cells, want %d", s.NCells(), b.NCells())
	}
	s = b.PointData().Threshold(0, AllPoints)
	if s.NCells() != b.NCells() {
		t.Errorf("all points: have %d cells, want %d", s.NCells(), b.NCells())
	}
}

func TestThresholdMonotonic(t *testing.T) {
	_, b := testModel(t)
	pv := b.PointData()
	for _, mode := range []ThresholdMode{AnyPoint, AllPoints} {
		prev := pv.Threshold(0, mode)
		for th := 0.1; th < 2.5; th += 0.1 {
			s := pv.Threshold(th, mode)
			if s.NCells() > prev.NCells() {
				t.Errorf("%s: %d cells at %g > %d cells at %g", mode, s.NCells(), th, prev.NCells(), prev.Threshold)
			}
			for _, c := range s.Cells {
				if !prev.Contains(c) {
					t.Errorf("%s: cell %d kept at %g but not at %g", mode, c, th, prev.Threshold)
				}
			}
			if all := pv.Threshold(th, AllPoints); mode == AnyPoint && all.NCells() > s.NCells() {
				t.Errorf("all-points subset larger than any-point subset at %g", th)
			}
			prev = s
		}
	}
	if n := pv.Threshold(10, AnyPoint).NCells(); n != 0 {
		t.Errorf("threshold above max kept %d cells", n)
	}
}

func TestThresholdModes(t *testing.T) {
	b := rowModel(t, 1, 3, 5)
	// Point values along u are 1, 2, 4, 5.
	pv := b.PointData()
	for _, test := range []struct {
		mode ThresholdMode
		th   float64
		want []int
	}{
		{AnyPoint, 3, []int{1, 2}},
		{AllPoints, 3, []int{2}},
		{AnyPoint, 4.5, []int{2}},
		{AllPoints, 1.5, []int{1, 2}},
		{AllPoints, 5.5, nil},
	} {
		s := pv.Threshold(test.th, test.mode)
		if !equalInts(s.Cells, test.want) {
			t.Errorf("%s %g: want %v, have %v", test.mode, test.th, test.want, s.Cells)
		}
	}
}

func TestThresholdNaN(t *testing.T) {
	b := rowModel(t, math.NaN(), 2)
	s := b.PointData().Threshold(math.Inf(-1), AllPoints)
	if !equalInts(s.Cells, []int{1}) {
		t.Errorf("NaN points should never pass: %v", s.Cells)
	}
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestParseThresholdMode(t *testing.T) {
	for s, want := range map[string]ThresholdMode{"": AnyPoint, "any": AnyPoint, "all": AllPoints} {
		m, err := ParseThresholdMode(s)
		if err != nil || m != want {
			t.Errorf("%q: have %q, %v", s, m, err)
		}
	}
	if _, err := ParseThresholdMode("some"); err == nil {
		t.Error("invalid mode should cause an error")
	}
}

func TestBoundaryFaces(t *testing.T) {
	b := rowModel(t, 1)
	s := b.PointData().Threshold(0, AnyPoint)
	faces := s.BoundaryFaces()
	if len(faces) != 6 {
		t.Fatalf("single cell has %d faces", len(faces))
	}
	center := b.CellCenter(0)
	point := func(p int) omf.Vector3 {
		return b.Point(p%2, (p/2)%2, p/4)
	}
	for _, q := range faces {
		p0, p1, p2, p3 := point(q[0]), point(q[1]), point(q[2]), point(q[3])
		n := p1.Add(p0.Scale(-1)).Cross(p2.Add(p1.Scale(-1)))
		out := p0.Add(p1).Add(p2).Add(p3).Scale(0.25).Add(center.Scale(-1))
		if dot := n[0]*out[0] + n[1]*out[1] + n[2]*out[2]; dot <= 0 {
			t.Errorf("face %v faces inward", q)
		}
	}

	_, bm := testModel(t)
	all := bm.PointData().Threshold(0, AnyPoint)
	if n := len(all.BoundaryFaces()); n != 2*(4*3+4*2+3*2) {
		t.Errorf("full model has %d boundary faces", n)
	}
}

func TestSubsetCellValues(t *testing.T) {
	b := rowModel(t, 1, 3, 5)
	s := b.PointData().Threshold(4.5, AnyPoint)
	if v := s.CellValues(); len(v) != 1 || v[0] != 5 {
		t.Errorf("cell values: %v", v)
	}
}
