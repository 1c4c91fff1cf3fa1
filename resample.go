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

import "math"

// PointVolume holds a block model attribute interpolated onto the grid
// vertices.
type PointVolume struct {
	Model *BlockModel

	// Values holds one value per grid vertex, indexed by
	// BlockModel.PointIndex.
	Values []float64
}

// PointData returns the cell attribute of b averaged onto the grid
// vertices. Each vertex takes the mean of the valid values of the (up to
// eight) cells that share it; vertices touching only NaN cells are NaN.
// b is not modified.
func (b *BlockModel) PointData() *PointVolume {
	sum := make([]float64, b.NPoints())
	count := make([]int, b.NPoints())
	for k := 0; k < b.NW; k++ {
		for j := 0; j < b.NV; j++ {
			for i := 0; i < b.NU; i++ {
				v := b.Values[b.CellIndex(i, j, k)]
				if math.IsNaN(v) {
					continue
				}
				for _, p := range b.cellCorners(i, j, k) {
					sum[p] += v
					count[p]++
				}
			}
		}
	}
	pv := &PointVolume{Model: b, Values: sum}
	for p, n := range count {
		if n == 0 {
			pv.Values[p] = math.NaN()
		} else {
			pv.Values[p] /= float64(n)
		}
	}
	return pv
}
