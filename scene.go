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

	"github.com/spatialmodel/omfview/omf"
)

// Role identifies the part a mesh plays in the scene.
type Role string

// These are the scene roles.
const (
	RoleTopography Role = "topography"
	RoleVolume     Role = "volume"
	RoleOutline    Role = "outline"
	RoleAssay      Role = "assay"
	RoleAlteration Role = "alteration"
)

// Primitive is the type of primitive a mesh is drawn with.
type Primitive string

// These are the supported primitives.
const (
	Triangles Primitive = "triangles"
	Lines     Primitive = "lines"
	Points    Primitive = "points"
)

// Mesh is a styled, renderable piece of geometry. Positions are relative
// to the scene center.
type Mesh struct {
	Name      string    `json:"name"`
	Role      Role      `json:"role"`
	Primitive Primitive `json:"primitive"`

	// Positions holds x, y, z for each vertex.
	Positions []float32 `json:"positions"`

	// Indices holds 3 vertex indices per triangle, 2 per line
	// segment or 1 per point.
	Indices []uint32 `json:"indices"`

	// Colors optionally holds r, g, b for each vertex. If it is
	// empty, Style.Color is used.
	Colors []uint8 `json:"colors,omitempty"`

	Style Style `json:"style"`

	// NCells is the number of model cells the mesh represents, for
	// meshes built from a block model subset.
	NCells int `json:"nCells"`
}

// Style specifies how a mesh is drawn.
type Style struct {
	Color     string  `json:"color,omitempty" toml:"Color"`
	Opacity   float64 `json:"opacity" toml:"Opacity"`
	LineWidth float64 `json:"lineWidth,omitempty" toml:"LineWidth"`
}

// ScalarBar describes the color legend of the scene.
type ScalarBar struct {
	Title    string  `json:"title"`
	ColorMap string  `json:"colorMap"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Camera is the initial view of the scene.
type Camera string

// Isometric views the scene from the (+x, +y, +z) diagonal.
const Isometric Camera = "isometric"

// Scene is a set of meshes to be drawn by a 3D rendering surface.
type Scene struct {
	Background string     `json:"background"`
	Camera     Camera     `json:"camera"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	ScalarBar  *ScalarBar `json:"scalarBar"`

	// Center is the world position subtracted from all mesh positions.
	Center omf.Vector3 `json:"center"`

	Meshes []*Mesh `json:"meshes"`
}

// Mesh returns the first mesh with the given role.
func (s *Scene) Mesh(r Role) (*Mesh, bool) {
	for _, m := range s.Meshes {
		if m.Role == r {
			return m, true
		}
	}
	return nil, false
}

// meshBuilder accumulates vertices relative to a center point.
type meshBuilder struct {
	m      *Mesh
	center omf.Vector3
}

func newMeshBuilder(name string, role Role, prim Primitive, center omf.Vector3, style Style) *meshBuilder {
	return &meshBuilder{
		m:      &Mesh{Name: name, Role: role, Primitive: prim, Style: style},
		center: center,
	}
}

func (b *meshBuilder) vertex(p omf.Vector3) uint32 {
	i := uint32(len(b.m.Positions) / 3)
	b.m.Positions = append(b.m.Positions,
		float32(p[0]-b.center[0]), float32(p[1]-b.center[1]), float32(p[2]-b.center[2]))
	return i
}

func (b *meshBuilder) vertices(origin omf.Vector3, v []omf.Vector3) {
	for _, p := range v {
		b.vertex(origin.Add(p))
	}
}

// elementMesh converts a project element into a mesh.
func elementMesh(p *omf.Project, e *omf.Element, role Role, center omf.Vector3, style Style) (*Mesh, error) {
	switch e.Kind {
	case omf.KindSurface:
		b := newMeshBuilder(e.Name, role, Triangles, center, style)
		b.vertices(p.Origin.Add(e.Surface.Origin), e.Surface.Vertices)
		for _, t := range e.Surface.Triangles {
			b.m.Indices = append(b.m.Indices, uint32(t[0]), uint32(t[1]), uint32(t[2]))
		}
		return b.m, nil
	case omf.KindLineSet:
		b := newMeshBuilder(e.Name, role, Lines, center, style)
		b.vertices(p.Origin.Add(e.LineSet.Origin), e.LineSet.Vertices)
		for _, s := range e.LineSet.Segments {
			b.m.Indices = append(b.m.Indices, uint32(s[0]), uint32(s[1]))
		}
		return b.m, nil
	case omf.KindPointSet:
		b := newMeshBuilder(e.Name, role, Points, center, style)
		b.vertices(p.Origin.Add(e.PointSet.Origin), e.PointSet.Vertices)
		for i := range e.PointSet.Vertices {
			b.m.Indices = append(b.m.Indices, uint32(i))
		}
		return b.m, nil
	case omf.KindVolume:
		return outlineMesh(newGrid(p, e).Outline(), e.Name, role, center, style), nil
	default:
		return nil, fmt.Errorf("omfview: element %q has unsupported kind %v", e.Name, e.Kind)
	}
}

// outlineMesh converts a bounding box outline into a line mesh.
func outlineMesh(o *Outline, name string, role Role, center omf.Vector3, style Style) *Mesh {
	b := newMeshBuilder(name, role, Lines, center, style)
	for _, c := range o.Corners {
		b.vertex(c)
	}
	for _, e := range o.Edges {
		b.m.Indices = append(b.m.Indices, uint32(e[0]), uint32(e[1]))
	}
	return b.m
}

// subsetMesh converts the boundary of a block model subset into a
// triangle mesh colored by the vertex values.
func subsetMesh(s *Subset, name string, center omf.Vector3, cs *ColorScale, style Style) *Mesh {
	b := newMeshBuilder(name, RoleVolume, Triangles, center, style)
	bm := s.Points.Model
	index := make(map[int]uint32)
	vertex := func(p int) uint32 {
		if i, ok := index[p]; ok {
			return i
		}
		k := p / ((bm.NU + 1) * (bm.NV + 1))
		j := (p / (bm.NU + 1)) % (bm.NV + 1)
		i := p % (bm.NU + 1)
		idx := b.vertex(bm.Point(i, j, k))
		c := cs.At(s.Points.Values[p])
		b.m.Colors = append(b.m.Colors, c.R, c.G, c.B)
		index[p] = idx
		return idx
	}
	for _, q := range s.BoundaryFaces() {
		v0, v1, v2, v3 := vertex(q[0]), vertex(q[1]), vertex(q[2]), vertex(q[3])
		b.m.Indices = append(b.m.Indices, v0, v1, v2, v0, v2, v3)
	}
	b.m.NCells = s.NCells()
	return b.m
}
