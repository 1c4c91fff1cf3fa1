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

package omf

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type encoder struct {
	blobs    bytes.Buffer
	registry map[string]interface{}
}

// Encode writes p to w in OMF format. Elements and data without a
// valid UID are assigned a new one; p itself is not modified.
func Encode(w io.Writer, p *Project) error {
	e := &encoder{registry: make(map[string]interface{})}

	projectUID, err := uidOrNew(p.UID)
	if err != nil {
		return err
	}
	elements := make([]string, 0, len(p.Elements))
	for _, el := range p.Elements {
		uid, err := e.element(el)
		if err != nil {
			return errors.Wrapf(err, "omf: encoding element %q", el.Name)
		}
		elements = append(elements, uid)
	}
	e.registry[projectUID.String()] = map[string]interface{}{
		"__class__":   "Project",
		"name":        p.Name,
		"description": p.Description,
		"author":      p.Author,
		"revision":    p.Revision,
		"units":       p.Units,
		"origin":      p.Origin,
		"elements":    elements,
	}

	header := make([]byte, headerLen)
	copy(header, magic)
	copy(header[4:4+versionLen], Version)
	copy(header[4+versionLen:], projectUID[:])
	binary.LittleEndian.PutUint64(header[headerLen-8:], uint64(headerLen+e.blobs.Len()))

	reg, err := json.Marshal(e.registry)
	if err != nil {
		return errors.Wrap(err, "omf: encoding registry")
	}
	for _, b := range [][]byte{header, e.blobs.Bytes(), reg} {
		if _, err := w.Write(b); err != nil {
			return errors.Wrap(err, "omf: writing project")
		}
	}
	return nil
}

func uidOrNew(s string) (uuid.UUID, error) {
	if s != "" {
		if u, err := uuid.Parse(s); err == nil {
			return u, nil
		}
	}
	return uuid.NewRandom()
}

func (e *encoder) add(uid string, o map[string]interface{}) (string, error) {
	u, err := uidOrNew(uid)
	if err != nil {
		return "", err
	}
	e.registry[u.String()] = o
	return u.String(), nil
}

// array compresses values into the binary section and returns a
// reference to a new registry entry of the given class.
func (e *encoder) array(class string, values []float64, dtype string) (string, error) {
	start := int64(headerLen + e.blobs.Len())
	zw := zlib.NewWriter(&e.blobs)
	buf := make([]byte, 8)
	for _, v := range values {
		switch dtype {
		case "<f8":
			binary.LittleEndian.PutUint64(buf, math.Float64bits(v))
		case "<i8":
			binary.LittleEndian.PutUint64(buf, uint64(int64(v)))
		default:
			return "", errors.Errorf("unsupported dtype %q", dtype)
		}
		if _, err := zw.Write(buf); err != nil {
			return "", err
		}
	}
	if err := zw.Close(); err != nil {
		return "", err
	}
	return e.add("", map[string]interface{}{
		"__class__": class,
		"array": binaryArray{
			Start:  start,
			Length: int64(headerLen+e.blobs.Len()) - start,
			Dtype:  dtype,
		},
	})
}

func flattenVectors(v []Vector3) []float64 {
	o := make([]float64, 0, 3*len(v))
	for _, vv := range v {
		o = append(o, vv[:]...)
	}
	return o
}

func (e *encoder) element(el *Element) (string, error) {
	var class string
	var geom map[string]interface{}
	var err error
	switch el.Kind {
	case KindVolume:
		class = "VolumeElement"
		g := el.Volume
		if g == nil {
			return "", errors.New("volume element has no grid")
		}
		geom = map[string]interface{}{
			"__class__": "VolumeGridGeometry",
			"origin":    g.Origin,
			"axis_u":    g.AxisU,
			"axis_v":    g.AxisV,
			"axis_w":    g.AxisW,
			"tensor_u":  g.TensorU,
			"tensor_v":  g.TensorV,
			"tensor_w":  g.TensorW,
		}
	case KindSurface:
		class = "SurfaceElement"
		s := el.Surface
		if s == nil {
			return "", errors.New("surface element has no surface")
		}
		tri := make([]float64, 0, 3*len(s.Triangles))
		for _, t := range s.Triangles {
			tri = append(tri, float64(t[0]), float64(t[1]), float64(t[2]))
		}
		geom = map[string]interface{}{"__class__": "SurfaceGeometry", "origin": s.Origin}
		if geom["vertices"], err = e.array("Vector3Array", flattenVectors(s.Vertices), "<f8"); err != nil {
			return "", err
		}
		if geom["triangles"], err = e.array("Int3Array", tri, "<i8"); err != nil {
			return "", err
		}
	case KindLineSet:
		class = "LineSetElement"
		l := el.LineSet
		if l == nil {
			return "", errors.New("line set element has no line set")
		}
		seg := make([]float64, 0, 2*len(l.Segments))
		for _, s := range l.Segments {
			seg = append(seg, float64(s[0]), float64(s[1]))
		}
		geom = map[string]interface{}{"__class__": "LineSetGeometry", "origin": l.Origin}
		if geom["vertices"], err = e.array("Vector3Array", flattenVectors(l.Vertices), "<f8"); err != nil {
			return "", err
		}
		if geom["segments"], err = e.array("Int2Array", seg, "<i8"); err != nil {
			return "", err
		}
	case KindPointSet:
		class = "PointSetElement"
		p := el.PointSet
		if p == nil {
			return "", errors.New("point set element has no point set")
		}
		geom = map[string]interface{}{"__class__": "PointSetGeometry", "origin": p.Origin}
		if geom["vertices"], err = e.array("Vector3Array", flattenVectors(p.Vertices), "<f8"); err != nil {
			return "", err
		}
	default:
		return "", errors.Errorf("unsupported element kind %v", el.Kind)
	}
	geomUID, err := e.add("", geom)
	if err != nil {
		return "", err
	}

	data := make([]string, 0, len(el.Data))
	for _, d := range el.Data {
		values := d.Values
		if el.Volume != nil {
			if nu, nv, nw, ok := el.Volume.dataShape(d.Location, len(values)); ok {
				values = gridOrder(values, nu, nv, nw, true)
			}
		}
		arr, err := e.array("ScalarArray", values, "<f8")
		if err != nil {
			return "", errors.Wrapf(err, "data %q", d.Name)
		}
		uid, err := e.add(d.UID, map[string]interface{}{
			"__class__": "ScalarData",
			"name":      d.Name,
			"location":  d.Location,
			"array":     arr,
		})
		if err != nil {
			return "", err
		}
		data = append(data, uid)
	}
	o := map[string]interface{}{
		"__class__":   class,
		"name":        el.Name,
		"description": el.Description,
		"geometry":    geomUID,
		"data":        data,
	}
	if len(el.Color) == 3 {
		o["color"] = el.Color
	}
	return e.add(el.UID, o)
}
