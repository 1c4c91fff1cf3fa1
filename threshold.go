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

import "fmt"

// ThresholdMode determines how the vertex values of a cell are combined
// when deciding whether the cell passes a threshold.
type ThresholdMode string

const (
	// AnyPoint keeps a cell if any of its vertices meets the threshold.
	AnyPoint ThresholdMode = "any"

	// AllPoints keeps a cell only if all of its vertices meet the threshold.
	AllPoints ThresholdMode = "all"
)

// ParseThresholdMode checks that s is a valid ThresholdMode.
func ParseThresholdMode(s string) (ThresholdMode, error) {
	switch m := ThresholdMode(s); m {
	case AnyPoint, AllPoints:
		return m, nil
	case "":
		return AnyPoint, nil
	default:
		return "", fmt.Errorf("omfview: invalid threshold mode %q; valid modes are 'any' and 'all'", s)
	}
}

// Subset is the set of block model cells passing a threshold.
type Subset struct {
	Points    *PointVolume
	Threshold float64
	Mode      ThresholdMode

	// Cells holds the indices of the kept cells in increasing order.
	Cells []int

	kept []bool
}

// Threshold returns the cells of pv whose vertex values are >= t,
// combined according to mode. NaN values never pass.
func (pv *PointVolume) Threshold(t float64, mode ThresholdMode) *Subset {
	b := pv.Model
	s := &Subset{
		Points:    pv,
		Threshold: t,
		Mode:      mode,
		kept:      make([]bool, b.NCells()),
	}
	for k := 0; k < b.NW; k++ {
		for j := 0; j < b.NV; j++ {
			for i := 0; i < b.NU; i++ {
				if !s.passes(b.cellCorners(i, j, k)) {
					continue
				}
				c := b.CellIndex(i, j, k)
				s.kept[c] = true
				s.Cells = append(s.Cells, c)
			}
		}
	}
	return s
}

func (s *Subset) passes(corners [8]int) bool {
	for _, p := range corners {
		// v >= t is false for NaN.
		ok := s.Points.Values[p] >= s.Threshold
		if ok && s.Mode != AllPoints {
			return true
		}
		if !ok && s.Mode == AllPoints {
			return false
		}
	}
	return s.Mode == AllPoints
}

// NCells returns the number of cells in the subset.
func (s *Subset) NCells() int { return len(s.Cells) }

// Contains reports whether cell c is in the subset.
func (s *Subset) Contains(c int) bool { return s.kept[c] }

// Quad is a face of a cell, given as four point indices in
// counter-clockwise order when viewed from outside the cell.
type Quad [4]int

// faceDirs lists, for each of the six cell faces, the neighbor offset
// and the corner indices (into cellCorners) forming the face.
var faceDirs = [6]struct {
	di, dj, dk int
	corners    [4]int
}{
	{-1, 0, 0, [4]int{0, 4, 6, 2}},
	{1, 0, 0, [4]int{1, 3, 7, 5}},
	{0, -1, 0, [4]int{0, 1, 5, 4}},
	{0, 1, 0, [4]int{2, 6, 7, 3}},
	{0, 0, -1, [4]int{0, 2, 3, 1}},
	{0, 0, 1, [4]int{4, 5, 7, 6}},
}

// BoundaryFaces returns the faces of kept cells that are not shared with
// another kept cell, which together form the visible surface of the subset.
func (s *Subset) BoundaryFaces() []Quad {
	b := s.Points.Model
	var faces []Quad
	for _, c := range s.Cells {
		i, j, k := b.CellIJK(c)
		corners := b.cellCorners(i, j, k)
		for _, f := range faceDirs {
			ni, nj, nk := i+f.di, j+f.dj, k+f.dk
			if ni >= 0 && nj >= 0 && nk >= 0 && ni < b.NU && nj < b.NV && nk < b.NW &&
				s.kept[b.CellIndex(ni, nj, nk)] {
				continue
			}
			faces = append(faces, Quad{corners[f.corners[0]], corners[f.corners[1]],
				corners[f.corners[2]], corners[f.corners[3]]})
		}
	}
	return faces
}

// CellValues returns the original cell attribute values of the kept cells.
func (s *Subset) CellValues() []float64 {
	o := make([]float64, len(s.Cells))
	for i, c := range s.Cells {
		o[i] = s.Points.Model.Values[c]
	}
	return o
}
