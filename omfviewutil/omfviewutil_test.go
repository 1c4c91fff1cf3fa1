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

package omfviewutil

import (
	"bytes"
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spatialmodel/omfview/omf"
)

// testProject returns a project with a 3×2×2 block model whose CU_pct
// value is the cell index, and the auxiliary elements the default
// layer configuration refers to.
func testProject() *omf.Project {
	cu := make([]float64, 12)
	for i := range cu {
		cu[i] = float64(i)
	}
	surface := func(name string, z float64) *omf.Element {
		return &omf.Element{
			Name: name,
			Kind: omf.KindSurface,
			Surface: &omf.Surface{
				Vertices:  []omf.Vector3{{0, 0, z}, {3, 0, z}, {3, 2, z}},
				Triangles: [][3]int{{0, 1, 2}},
			},
		}
	}
	return &omf.Project{
		Name:   "test",
		Origin: omf.Vector3{1000, 2000, 0},
		Elements: []*omf.Element{
			{
				Name: "Block Model",
				Kind: omf.KindVolume,
				Volume: &omf.VolumeGrid{
					AxisU: omf.Vector3{1, 0, 0}, AxisV: omf.Vector3{0, 1, 0}, AxisW: omf.Vector3{0, 0, 1},
					TensorU: []float64{1, 1, 1}, TensorV: []float64{1, 1}, TensorW: []float64{1, 1},
				},
				Data: []*omf.ScalarData{{Name: "CU_pct", Location: omf.LocationCells, Values: cu}},
			},
			surface("Topography", 2),
			surface("Dacite", 1),
			{
				Name: "wolfpass_WP_assay",
				Kind: omf.KindLineSet,
				LineSet: &omf.LineSet{
					Vertices: []omf.Vector3{{10, 10, 2}, {10, 10, 0}},
					Segments: [][2]int{{0, 1}},
				},
			},
		},
	}
}

// writeAsset writes testProject to a temporary file and returns its
// path and a function that removes it.
func writeAsset(t *testing.T) (string, func()) {
	dir, err := ioutil.TempDir("", "omfviewutil")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "test_file.omf")
	buf := new(bytes.Buffer)
	if err := omf.Encode(buf, testProject()); err != nil {
		t.Fatal(err)
	}
	if err := ioutil.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}
	return path, func() { os.RemoveAll(dir) }
}

func TestProjectLoader(t *testing.T) {
	path, cleanup := writeAsset(t)
	defer cleanup()

	l := new(ProjectLoader)
	ctx := context.Background()
	p1, err := l.Load(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := l.Load(ctx, path)
	if err != nil {
		t.Fatal(err)
	}
	if p1 != p2 {
		t.Error("project should only be loaded once")
	}
	if _, err := p1.Element("Block Model"); err != nil {
		t.Error(err)
	}
	if _, err := l.Load(ctx, filepath.Join(filepath.Dir(path), "missing.omf")); err == nil {
		t.Error("missing asset should cause an error")
	}
}

func TestProjectLoaderDisk(t *testing.T) {
	path, cleanup := writeAsset(t)
	defer cleanup()
	cacheDir, err := ioutil.TempDir("", "omfviewcache")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(cacheDir)

	if _, err := (&ProjectLoader{CacheDir: cacheDir}).Load(context.Background(), path); err != nil {
		t.Fatal(err)
	}
	// A new loader reads the cached copy even if the asset is gone.
	os.Remove(path)
	p, err := (&ProjectLoader{CacheDir: cacheDir}).Load(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "test" || len(p.Elements) != 4 {
		t.Errorf("cached project: %q with %d elements", p.Name, len(p.Elements))
	}
}

func TestCorruptAsset(t *testing.T) {
	dir, err := ioutil.TempDir("", "omfviewutil")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "corrupt.omf")
	if err := ioutil.WriteFile(path, []byte("not an omf file"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := new(ProjectLoader).Load(context.Background(), path); err == nil {
		t.Error("corrupt asset should cause an error")
	}
}

func runCommand(t *testing.T, args ...string) string {
	buf := new(bytes.Buffer)
	Root.SetOutput(buf)
	Root.SetArgs(args)
	if err := Root.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return buf.String()
}

func TestVersionCommand(t *testing.T) {
	if out := runCommand(t, "version"); !strings.Contains(out, "omfview v") {
		t.Errorf("output: %q", out)
	}
}

func TestInfoCommand(t *testing.T) {
	path, cleanup := writeAsset(t)
	defer cleanup()
	out := runCommand(t, "info", "--Asset", path)
	for _, want := range []string{
		`Project "test" (4 elements`,
		"Block Model",
		"CU_pct(cells)",
		"x: [1000, 1003] y: [2000, 2002]",
		"overlaps block model: true",
		"overlaps block model: false",
		"3×2×2 cells",
		"CU_pct: min 0, max 11, mean 5.5 (12 valid cells)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output does not contain %q:\n%s", want, out)
		}
	}
}

func TestThresholdCommand(t *testing.T) {
	path, cleanup := writeAsset(t)
	defer cleanup()
	png := filepath.Join(filepath.Dir(path), "histogram.png")
	out := runCommand(t, "threshold", "--Asset", path, "--threshold", "0", "--histogram", png)
	if !strings.Contains(out, "Number of cells in thresholded dataset: 12") {
		t.Errorf("output: %q", out)
	}
	b, err := ioutil.ReadFile(png)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		t.Error("histogram is not a PNG")
	}

	out = runCommand(t, "threshold", "--Asset", path, "--threshold", "100", "--histogram", "")
	if !strings.Contains(out, "Number of cells in thresholded dataset: 0") {
		t.Errorf("output: %q", out)
	}
}

func TestExportCommand(t *testing.T) {
	path, cleanup := writeAsset(t)
	defer cleanup()
	for _, format := range []string{"stl", "npy", "omf"} {
		dst := filepath.Join(filepath.Dir(path), "out."+format)
		out := runCommand(t, "export", "--Asset", path, "--threshold", "0", "--format", format, "--out", dst)
		if !strings.Contains(out, "wrote 12 cells") {
			t.Errorf("%s: output %q", format, out)
		}
		if fi, err := os.Stat(dst); err != nil || fi.Size() == 0 {
			t.Errorf("%s: export file missing or empty: %v", format, err)
		}
	}

	v, err := LoadViewer(context.Background(), Cfg, projects.Log)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Export(v, 0, "obj", filepath.Join(filepath.Dir(path), "out.obj")); err == nil {
		t.Error("invalid format should cause an error")
	}
}
