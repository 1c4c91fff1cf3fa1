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
	"io/ioutil"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// magic is the first four bytes of every OMF file.
var magic = []byte{0x84, 0x83, 0x82, 0x81}

// Version is the format version written by Encode.
const Version = "OMF-v0.9.0"

const (
	versionLen = 32
	uidLen     = 16
	headerLen  = 4 + versionLen + uidLen + 8
)

// binaryArray locates a compressed array within the file.
type binaryArray struct {
	Start  int64  `json:"start"`
	Length int64  `json:"length"`
	Dtype  string `json:"dtype"`
}

type object map[string]json.RawMessage

type decoder struct {
	r        io.ReadSeeker
	registry map[string]object
}

// Decode reads an OMF project from r.
func Decode(r io.ReadSeeker) (*Project, error) {
	header := make([]byte, headerLen)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errors.Wrap(err, "omf: reading header")
	}
	if !bytes.Equal(header[:4], magic) {
		return nil, errors.New("omf: not an OMF file (bad magic number)")
	}
	version := string(bytes.TrimRight(header[4:4+versionLen], "\x00"))
	if !strings.HasPrefix(version, "OMF-v") {
		return nil, errors.Errorf("omf: invalid version string %q", version)
	}
	uid, err := uuid.FromBytes(header[4+versionLen : 4+versionLen+uidLen])
	if err != nil {
		return nil, errors.Wrap(err, "omf: reading project uid")
	}
	jsonStart := binary.LittleEndian.Uint64(header[headerLen-8:])

	if _, err := r.Seek(int64(jsonStart), io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "omf: seeking to registry")
	}
	b, err := ioutil.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "omf: reading registry")
	}
	d := &decoder{r: r}
	if err := json.Unmarshal(b, &d.registry); err != nil {
		return nil, errors.Wrap(err, "omf: parsing registry")
	}
	return d.project(uid.String())
}

func (d *decoder) lookup(uid string) (object, string, error) {
	o, ok := d.registry[uid]
	if !ok {
		return nil, "", errors.Errorf("omf: missing registry entry %s", uid)
	}
	var class string
	if err := o.get("__class__", &class); err != nil {
		return nil, "", errors.Wrapf(err, "omf: entry %s", uid)
	}
	return o, class, nil
}

// get unmarshals the named field into v. Missing and null fields
// leave v unchanged.
func (o object) get(name string, v interface{}) error {
	raw, ok := o[name]
	if !ok || string(raw) == "null" {
		return nil
	}
	return errors.Wrapf(json.Unmarshal(raw, v), "field %q", name)
}

func (d *decoder) project(uid string) (*Project, error) {
	o, class, err := d.lookup(uid)
	if err != nil {
		return nil, err
	}
	if class != "Project" {
		return nil, errors.Errorf("omf: root entry is a %s, not a Project", class)
	}
	p := &Project{UID: uid}
	var elements []string
	for _, f := range []struct {
		name string
		v    interface{}
	}{
		{"name", &p.Name},
		{"description", &p.Description},
		{"author", &p.Author},
		{"revision", &p.Revision},
		{"units", &p.Units},
		{"elements", &elements},
	} {
		if err := o.get(f.name, f.v); err != nil {
			return nil, errors.Wrap(err, "omf: project")
		}
	}
	if p.Origin, err = d.vector(o["origin"], Vector3{}); err != nil {
		return nil, errors.Wrap(err, "omf: project origin")
	}
	for _, eUID := range elements {
		e, err := d.element(eUID)
		if err != nil {
			return nil, err
		}
		if e != nil {
			p.Elements = append(p.Elements, e)
		}
	}
	return p, nil
}

// element decodes a project element. Unsupported element classes
// return a nil element and no error.
func (d *decoder) element(uid string) (*Element, error) {
	o, class, err := d.lookup(uid)
	if err != nil {
		return nil, err
	}
	e := &Element{UID: uid}
	switch class {
	case "VolumeElement":
		e.Kind = KindVolume
	case "SurfaceElement":
		e.Kind = KindSurface
	case "LineSetElement":
		e.Kind = KindLineSet
	case "PointSetElement":
		e.Kind = KindPointSet
	default:
		return nil, nil
	}
	var geomUID string
	var data []string
	if err := o.get("name", &e.Name); err != nil {
		return nil, errors.Wrapf(err, "omf: element %s", uid)
	}
	if err := o.get("description", &e.Description); err != nil {
		return nil, errors.Wrapf(err, "omf: element %q", e.Name)
	}
	if err := o.get("geometry", &geomUID); err != nil {
		return nil, errors.Wrapf(err, "omf: element %q", e.Name)
	}
	if err := o.get("data", &data); err != nil {
		return nil, errors.Wrapf(err, "omf: element %q", e.Name)
	}
	// Named colors are not kept.
	if raw := o["color"]; len(raw) == 0 || raw[0] != '"' {
		if err := o.get("color", &e.Color); err != nil {
			return nil, errors.Wrapf(err, "omf: element %q", e.Name)
		}
	}

	g, gClass, err := d.lookup(geomUID)
	if err != nil {
		return nil, errors.Wrapf(err, "omf: element %q geometry", e.Name)
	}
	switch gClass {
	case "VolumeGridGeometry":
		e.Volume, err = d.volumeGrid(g)
	case "SurfaceGeometry":
		e.Surface, err = d.surface(g)
	case "SurfaceGridGeometry":
		e.Surface, err = d.surfaceGrid(g)
	case "LineSetGeometry":
		e.LineSet, err = d.lineSet(g)
	case "PointSetGeometry":
		e.PointSet, err = d.pointSet(g)
	default:
		return nil, errors.Errorf("omf: element %q has unsupported geometry %s", e.Name, gClass)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "omf: element %q", e.Name)
	}

	for _, dUID := range data {
		sd, err := d.scalarData(dUID)
		if err != nil {
			return nil, errors.Wrapf(err, "omf: element %q", e.Name)
		}
		if sd == nil {
			continue
		}
		if e.Volume != nil {
			if nu, nv, nw, ok := e.Volume.dataShape(sd.Location, len(sd.Values)); ok {
				sd.Values = gridOrder(sd.Values, nu, nv, nw, false)
			}
		}
		e.Data = append(e.Data, sd)
	}
	return e, nil
}

func (d *decoder) volumeGrid(o object) (*VolumeGrid, error) {
	g := new(VolumeGrid)
	var err error
	if g.Origin, err = d.vector(o["origin"], Vector3{}); err != nil {
		return nil, errors.Wrap(err, "origin")
	}
	if g.AxisU, err = d.vector(o["axis_u"], Vector3{1, 0, 0}); err != nil {
		return nil, errors.Wrap(err, "axis_u")
	}
	if g.AxisV, err = d.vector(o["axis_v"], Vector3{0, 1, 0}); err != nil {
		return nil, errors.Wrap(err, "axis_v")
	}
	if g.AxisW, err = d.vector(o["axis_w"], Vector3{0, 0, 1}); err != nil {
		return nil, errors.Wrap(err, "axis_w")
	}
	if g.TensorU, err = d.floats(o["tensor_u"]); err != nil {
		return nil, errors.Wrap(err, "tensor_u")
	}
	if g.TensorV, err = d.floats(o["tensor_v"]); err != nil {
		return nil, errors.Wrap(err, "tensor_v")
	}
	if g.TensorW, err = d.floats(o["tensor_w"]); err != nil {
		return nil, errors.Wrap(err, "tensor_w")
	}
	if g.NCells() == 0 {
		return nil, errors.New("volume grid has no cells")
	}
	return g, nil
}

func (d *decoder) surface(o object) (*Surface, error) {
	s := new(Surface)
	var err error
	if s.Origin, err = d.vector(o["origin"], Vector3{}); err != nil {
		return nil, errors.Wrap(err, "origin")
	}
	if s.Vertices, err = d.vectors(o["vertices"]); err != nil {
		return nil, errors.Wrap(err, "vertices")
	}
	tri, err := d.ints(o["triangles"], 3)
	if err != nil {
		return nil, errors.Wrap(err, "triangles")
	}
	s.Triangles = make([][3]int, len(tri)/3)
	for i := range s.Triangles {
		copy(s.Triangles[i][:], tri[3*i:3*i+3])
		for _, v := range s.Triangles[i] {
			if v < 0 || v >= len(s.Vertices) {
				return nil, errors.Errorf("triangle %d references vertex %d of %d", i, v, len(s.Vertices))
			}
		}
	}
	return s, nil
}

// surfaceGrid converts a gridded surface into a triangulated one,
// with two triangles per grid cell.
func (d *decoder) surfaceGrid(o object) (*Surface, error) {
	var err error
	var origin, axisU, axisV Vector3
	if origin, err = d.vector(o["origin"], Vector3{}); err != nil {
		return nil, errors.Wrap(err, "origin")
	}
	if axisU, err = d.vector(o["axis_u"], Vector3{1, 0, 0}); err != nil {
		return nil, errors.Wrap(err, "axis_u")
	}
	if axisV, err = d.vector(o["axis_v"], Vector3{0, 1, 0}); err != nil {
		return nil, errors.Wrap(err, "axis_v")
	}
	tu, err := d.floats(o["tensor_u"])
	if err != nil {
		return nil, errors.Wrap(err, "tensor_u")
	}
	tv, err := d.floats(o["tensor_v"])
	if err != nil {
		return nil, errors.Wrap(err, "tensor_v")
	}
	nu, nv := len(tu)+1, len(tv)+1
	var offset []float64
	if raw, ok := o["offset_w"]; ok && string(raw) != "null" {
		if offset, err = d.floats(raw); err != nil {
			return nil, errors.Wrap(err, "offset_w")
		}
		if len(offset) != nu*nv {
			return nil, errors.Errorf("offset_w has %d values; want %d", len(offset), nu*nv)
		}
	}
	axisW := axisU.Cross(axisV)

	s := &Surface{Origin: origin, Vertices: make([]Vector3, 0, nu*nv)}
	v := 0.
	for j := 0; j < nv; j++ {
		if j > 0 {
			v += tv[j-1]
		}
		u := 0.
		for i := 0; i < nu; i++ {
			if i > 0 {
				u += tu[i-1]
			}
			p := axisU.Scale(u).Add(axisV.Scale(v))
			if offset != nil {
				p = p.Add(axisW.Scale(offset[i+j*nu]))
			}
			s.Vertices = append(s.Vertices, p)
		}
	}
	for j := 0; j < nv-1; j++ {
		for i := 0; i < nu-1; i++ {
			a := i + j*nu
			s.Triangles = append(s.Triangles, [3]int{a, a + 1, a + nu + 1}, [3]int{a, a + nu + 1, a + nu})
		}
	}
	return s, nil
}

func (d *decoder) lineSet(o object) (*LineSet, error) {
	l := new(LineSet)
	var err error
	if l.Origin, err = d.vector(o["origin"], Vector3{}); err != nil {
		return nil, errors.Wrap(err, "origin")
	}
	if l.Vertices, err = d.vectors(o["vertices"]); err != nil {
		return nil, errors.Wrap(err, "vertices")
	}
	seg, err := d.ints(o["segments"], 2)
	if err != nil {
		return nil, errors.Wrap(err, "segments")
	}
	l.Segments = make([][2]int, len(seg)/2)
	for i := range l.Segments {
		copy(l.Segments[i][:], seg[2*i:2*i+2])
		for _, v := range l.Segments[i] {
			if v < 0 || v >= len(l.Vertices) {
				return nil, errors.Errorf("segment %d references vertex %d of %d", i, v, len(l.Vertices))
			}
		}
	}
	return l, nil
}

func (d *decoder) pointSet(o object) (*PointSet, error) {
	p := new(PointSet)
	var err error
	if p.Origin, err = d.vector(o["origin"], Vector3{}); err != nil {
		return nil, errors.Wrap(err, "origin")
	}
	if p.Vertices, err = d.vectors(o["vertices"]); err != nil {
		return nil, errors.Wrap(err, "vertices")
	}
	return p, nil
}

// scalarData decodes a data entry. Data classes other than ScalarData
// return nil and no error.
func (d *decoder) scalarData(uid string) (*ScalarData, error) {
	o, class, err := d.lookup(uid)
	if err != nil {
		return nil, err
	}
	if class != "ScalarData" {
		return nil, nil
	}
	sd := &ScalarData{UID: uid}
	if err := o.get("name", &sd.Name); err != nil {
		return nil, err
	}
	if err := o.get("location", &sd.Location); err != nil {
		return nil, err
	}
	if sd.Values, err = d.floats(o["array"]); err != nil {
		return nil, errors.Wrapf(err, "data %q", sd.Name)
	}
	return sd, nil
}

// vector decodes a 3-vector stored either as a list or as one of
// the axis names "X", "Y" or "Z".
func (d *decoder) vector(raw json.RawMessage, def Vector3) (Vector3, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return def, nil
	}
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		switch strings.ToUpper(name) {
		case "X":
			return Vector3{1, 0, 0}, nil
		case "Y":
			return Vector3{0, 1, 0}, nil
		case "Z":
			return Vector3{0, 0, 1}, nil
		}
		return def, errors.Errorf("invalid vector %q", name)
	}
	var v Vector3
	err := json.Unmarshal(raw, &v)
	return v, err
}

func (d *decoder) vectors(raw json.RawMessage) ([]Vector3, error) {
	f, err := d.floats(raw)
	if err != nil {
		return nil, err
	}
	if len(f)%3 != 0 {
		return nil, errors.Errorf("%d values is not a multiple of 3", len(f))
	}
	o := make([]Vector3, len(f)/3)
	for i := range o {
		copy(o[i][:], f[3*i:3*i+3])
	}
	return o, nil
}

func (d *decoder) ints(raw json.RawMessage, width int) ([]int, error) {
	f, err := d.floats(raw)
	if err != nil {
		return nil, err
	}
	if len(f)%width != 0 {
		return nil, errors.Errorf("%d values is not a multiple of %d", len(f), width)
	}
	o := make([]int, len(f))
	for i, v := range f {
		o[i] = int(v)
	}
	return o, nil
}

// floats decodes an array property. It may be an inline JSON list,
// a binary array locator, or the uid of a registry entry holding one
// of those in its "array" field.
func (d *decoder) floats(raw json.RawMessage) ([]float64, error) {
	return d.floatsRef(raw, true)
}

func (d *decoder) floatsRef(raw json.RawMessage, follow bool) ([]float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("missing array")
	}
	switch raw[0] {
	case '[':
		var o [][]float64
		if err := json.Unmarshal(raw, &o); err == nil {
			var flat []float64
			for _, r := range o {
				flat = append(flat, r...)
			}
			return flat, nil
		}
		var flat []float64
		err := json.Unmarshal(raw, &flat)
		return flat, err
	case '{':
		var b binaryArray
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, err
		}
		return d.readArray(b)
	case '"':
		var uid string
		if err := json.Unmarshal(raw, &uid); err != nil {
			return nil, err
		}
		if !follow {
			return nil, errors.Errorf("array %s refers to another entry", uid)
		}
		o, _, err := d.lookup(uid)
		if err != nil {
			return nil, err
		}
		return d.floatsRef(o["array"], false)
	default:
		return nil, errors.Errorf("invalid array %.20s", raw)
	}
}

func (d *decoder) readArray(b binaryArray) ([]float64, error) {
	if _, err := d.r.Seek(b.Start, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "seeking to array")
	}
	zr, err := zlib.NewReader(io.LimitReader(d.r, b.Length))
	if err != nil {
		return nil, errors.Wrap(err, "decompressing array")
	}
	defer zr.Close()
	buf, err := ioutil.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(err, "decompressing array")
	}
	return decodeValues(buf, b.Dtype)
}

func decodeValues(buf []byte, dtype string) ([]float64, error) {
	le := binary.LittleEndian
	size := dtypeSize(dtype)
	if size == 0 {
		return nil, errors.Errorf("unsupported dtype %q", dtype)
	}
	if len(buf)%size != 0 {
		return nil, errors.Errorf("%d bytes is not a multiple of the %s size", len(buf), dtype)
	}
	o := make([]float64, len(buf)/size)
	for i := range o {
		b := buf[i*size : (i+1)*size]
		switch dtype {
		case "<f8":
			o[i] = math.Float64frombits(le.Uint64(b))
		case "<f4":
			o[i] = float64(math.Float32frombits(le.Uint32(b)))
		case "<i8":
			o[i] = float64(int64(le.Uint64(b)))
		case "<i4":
			o[i] = float64(int32(le.Uint32(b)))
		}
	}
	return o, nil
}

func dtypeSize(dtype string) int {
	switch dtype {
	case "<f8", "<i8":
		return 8
	case "<f4", "<i4":
		return 4
	default:
		return 0
	}
}
