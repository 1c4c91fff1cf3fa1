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

// Package omf reads and writes projects in the Open Mining Format (OMF),
// version 1. A project file holds a small binary header, a series of
// zlib-compressed little-endian arrays, and a JSON registry describing
// the project elements and referencing the arrays by offset.
package omf

import (
	"github.com/pkg/errors"
)

// Vector3 is a point or direction in three dimensions.
type Vector3 [3]float64

// Add returns the sum of v and v2.
func (v Vector3) Add(v2 Vector3) Vector3 {
	return Vector3{v[0] + v2[0], v[1] + v2[1], v[2] + v2[2]}
}

// Scale returns v multiplied by s.
func (v Vector3) Scale(s float64) Vector3 {
	return Vector3{v[0] * s, v[1] * s, v[2] * s}
}

// Cross returns the cross product of v and v2.
func (v Vector3) Cross(v2 Vector3) Vector3 {
	return Vector3{
		v[1]*v2[2] - v[2]*v2[1],
		v[2]*v2[0] - v[0]*v2[2],
		v[0]*v2[1] - v[1]*v2[0],
	}
}

// Kind is the type of geometry held by an Element.
type Kind int

// These are the supported element kinds.
const (
	KindVolume Kind = iota
	KindSurface
	KindLineSet
	KindPointSet
)

func (k Kind) String() string {
	switch k {
	case KindVolume:
		return "volume"
	case KindSurface:
		return "surface"
	case KindLineSet:
		return "lineset"
	case KindPointSet:
		return "pointset"
	default:
		return "unknown"
	}
}

// Location specifies which part of a geometry a data array is attached to.
type Location string

// Data locations used by OMF.
const (
	LocationCells    Location = "cells"
	LocationVertices Location = "vertices"
	LocationSegments Location = "segments"
	LocationFaces    Location = "faces"
)

// Project is a collection of named elements read from a single file.
type Project struct {
	UID         string
	Name        string
	Description string
	Author      string
	Revision    string
	Units       string

	// Origin is added to the coordinates of every element.
	Origin Vector3

	Elements []*Element
}

// Element returns the element with the given name, or an error if the
// project doesn't contain it.
func (p *Project) Element(name string) (*Element, error) {
	for _, e := range p.Elements {
		if e.Name == name {
			return e, nil
		}
	}
	return nil, errors.Errorf("omf: project %q has no element named %q", p.Name, name)
}

// Element is a named geometry with attached scalar data. Exactly one
// of Volume, Surface, LineSet and PointSet is set, as indicated by Kind.
type Element struct {
	UID         string
	Name        string
	Description string
	Kind        Kind

	// Color is the element's display color, if one was specified.
	Color []int

	Volume   *VolumeGrid
	Surface  *Surface
	LineSet  *LineSet
	PointSet *PointSet

	Data []*ScalarData
}

// DataByName returns the data array with the given name.
func (e *Element) DataByName(name string) (*ScalarData, bool) {
	for _, d := range e.Data {
		if d.Name == name {
			return d, true
		}
	}
	return nil, false
}

// VolumeGrid is a rectilinear grid of cells. The cell widths along
// each axis are given by the tensors.
type VolumeGrid struct {
	Origin                    Vector3
	AxisU, AxisV, AxisW       Vector3
	TensorU, TensorV, TensorW []float64
}

// Shape returns the number of cells along each axis.
func (g *VolumeGrid) Shape() (nu, nv, nw int) {
	return len(g.TensorU), len(g.TensorV), len(g.TensorW)
}

// NCells returns the total number of cells in the grid.
func (g *VolumeGrid) NCells() int {
	nu, nv, nw := g.Shape()
	return nu * nv * nw
}

// dataShape returns the dimensions of the grid that n values located
// at loc are laid out on. ok is false if n does not fit the grid.
func (g *VolumeGrid) dataShape(loc Location, n int) (nu, nv, nw int, ok bool) {
	nu, nv, nw = g.Shape()
	switch loc {
	case LocationCells, "":
	case LocationVertices:
		nu, nv, nw = nu+1, nv+1, nw+1
	default:
		return 0, 0, 0, false
	}
	return nu, nv, nw, nu*nv*nw == n
}

// gridOrder converts values on an (nu, nv, nw) grid between the order
// used in memory, where u varies fastest, and the order of OMF files,
// where w varies fastest. If toFile is false, values are read in file
// order and returned in memory order.
func gridOrder(values []float64, nu, nv, nw int, toFile bool) []float64 {
	o := make([]float64, len(values))
	for k := 0; k < nw; k++ {
		for j := 0; j < nv; j++ {
			for i := 0; i < nu; i++ {
				mem := i + nu*(j+nv*k)
				file := k + nw*(j+nv*i)
				if toFile {
					o[file] = values[mem]
				} else {
					o[mem] = values[file]
				}
			}
		}
	}
	return o
}

// Surface is a triangulated surface.
type Surface struct {
	Origin    Vector3
	Vertices  []Vector3
	Triangles [][3]int
}

// LineSet is a set of line segments connecting vertices.
type LineSet struct {
	Origin   Vector3
	Vertices []Vector3
	Segments [][2]int
}

// PointSet is a set of points.
type PointSet struct {
	Origin   Vector3
	Vertices []Vector3
}

// ScalarData is a named array of values attached to a location of
// an element's geometry. Values located on the cells or vertices of a
// VolumeGrid are ordered with the u index varying fastest, then v,
// then w.
type ScalarData struct {
	UID      string
	Name     string
	Location Location
	Values   []float64
}
