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
	"fmt"
	"io"
	"math"

	"github.com/kshedden/gonpy"
	"github.com/spatialmodel/omfview/omf"
	"github.com/unixpickle/model3d/model3d"
)

// Triangles returns the boundary of the subset as triangles in world
// coordinates.
func (s *Subset) Triangles() []*model3d.Triangle {
	b := s.Points.Model
	coord := func(p int) model3d.Coord3D {
		k := p / ((b.NU + 1) * (b.NV + 1))
		j := (p / (b.NU + 1)) % (b.NV + 1)
		i := p % (b.NU + 1)
		v := b.Point(i, j, k)
		return model3d.Coord3D{X: v[0], Y: v[1], Z: v[2]}
	}
	faces := s.BoundaryFaces()
	tris := make([]*model3d.Triangle, 0, 2*len(faces))
	for _, q := range faces {
		c0, c1, c2, c3 := coord(q[0]), coord(q[1]), coord(q[2]), coord(q[3])
		tris = append(tris, &model3d.Triangle{c0, c1, c2}, &model3d.Triangle{c0, c2, c3})
	}
	return tris
}

// WriteSTL writes the boundary surface of the subset to w in binary STL
// format.
func WriteSTL(w io.Writer, s *Subset) error {
	if _, err := w.Write(model3d.EncodeSTL(s.Triangles())); err != nil {
		return fmt.Errorf("omfview: writing STL: %v", err)
	}
	return nil
}

// CellCenter returns the world coordinates of the center of cell c.
func (b *BlockModel) CellCenter(c int) omf.Vector3 {
	i, j, k := b.CellIJK(c)
	lo, hi := b.Point(i, j, k), b.Point(i+1, j+1, k+1)
	return lo.Add(hi).Scale(0.5)
}

// WriteNPY writes the cells of the subset to a NumPy .npy file at path
// as an n×4 float64 array whose rows hold the x, y and z coordinates of
// the cell center and the cell attribute value.
func WriteNPY(path string, s *Subset) error {
	data := make([]float64, 0, 4*s.NCells())
	for _, c := range s.Cells {
		p := s.Points.Model.CellCenter(c)
		data = append(data, p[0], p[1], p[2], s.Points.Model.Values[c])
	}
	w, err := gonpy.NewFileWriter(path)
	if err != nil {
		return fmt.Errorf("omfview: creating NPY file: %v", err)
	}
	w.Shape = []int{s.NCells(), 4}
	w.Version = 2
	if err := w.WriteFloat64(data); err != nil {
		return fmt.Errorf("omfview: writing NPY file: %v", err)
	}
	return nil
}

// MaskedProject returns a copy of project p in which the attribute of
// the subset's block model is NaN for every cell outside the subset.
// If the attribute is an expression, the masked values are added as a
// new data array named after it. p is not modified.
func MaskedProject(p *omf.Project, s *Subset) (*omf.Project, error) {
	b := s.Points.Model
	masked := make([]float64, len(b.Values))
	for c, v := range b.Values {
		if s.Contains(c) {
			masked[c] = v
		} else {
			masked[c] = math.NaN()
		}
	}

	o := *p
	o.Elements = make([]*omf.Element, len(p.Elements))
	copy(o.Elements, p.Elements)
	for i, e := range o.Elements {
		if e.Name != b.Name || e.Kind != omf.KindVolume {
			continue
		}
		ec := *e
		ec.Data = make([]*omf.ScalarData, 0, len(e.Data)+1)
		replaced := false
		for _, d := range e.Data {
			if d.Name == b.Attribute {
				dc := *d
				dc.Values = masked
				d = &dc
				replaced = true
			}
			ec.Data = append(ec.Data, d)
		}
		if !replaced {
			ec.Data = append(ec.Data, &omf.ScalarData{
				Name:     b.Attribute,
				Location: omf.LocationCells,
				Values:   masked,
			})
		}
		o.Elements[i] = &ec
		return &o, nil
	}
	return nil, fmt.Errorf("omfview: project %q has no volume named %q", p.Name, b.Name)
}

// WriteMaskedOMF writes MaskedProject(p, s) to w.
func WriteMaskedOMF(w io.Writer, p *omf.Project, s *Subset) error {
	m, err := MaskedProject(p, s)
	if err != nil {
		return err
	}
	return omf.Encode(w, m)
}
