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
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cloud/blob"
	"github.com/google/go-cloud/blob/fileblob"
	"github.com/lnashier/viper"
	"github.com/spatialmodel/omfview"
)

func TestLayers(t *testing.T) {
	cfg := viper.New()
	l, err := Layers(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if l.Attribute != "CU_pct" || l.ThresholdMode != omfview.AnyPoint {
		t.Errorf("defaults: %+v", l)
	}

	dir, err := ioutil.TempDir("", "omfviewutil")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	layers := filepath.Join(dir, "layers.toml")
	if err := ioutil.WriteFile(layers, []byte("Attribute = \"AU_gpt\"\nAlteration = \"Diorite\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Set("Layers", layers)
	cfg.Set("ThresholdMode", "all")
	if l, err = Layers(cfg); err != nil {
		t.Fatal(err)
	}
	if l.Attribute != "AU_gpt" || l.Alteration != "Diorite" || l.ThresholdMode != omfview.AllPoints {
		t.Errorf("layer file: %+v", l)
	}

	cfg.Set("Attribute", "CU_pct * 2")
	if l, err = Layers(cfg); err != nil || l.Attribute != "CU_pct * 2" {
		t.Errorf("attribute override: %q, %v", l.Attribute, err)
	}

	cfg.Set("ThresholdMode", "most")
	if _, err := Layers(cfg); err == nil {
		t.Error("invalid threshold mode should cause an error")
	}
}

func TestMaybeDownloadLocal(t *testing.T) {
	path, cleanup := writeAsset(t)
	defer cleanup()
	if k, err := maybeDownload(context.Background(), path); err != nil || k != path {
		t.Errorf("have %q, %v", k, err)
	}
	if _, err := maybeDownload(context.Background(), "/blah/test.omf"); err == nil {
		t.Error("missing file should cause an error")
	}
}

func TestMaybeDownloadRemote(t *testing.T) {
	path, cleanup := writeAsset(t)
	defer cleanup()
	srv := httptest.NewServer(http.FileServer(http.Dir(filepath.Dir(path))))
	defer srv.Close()

	k, err := maybeDownload(context.Background(), srv.URL+"/test_file.omf")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(k, "test_file.omf") || k == path {
		t.Errorf("downloaded to %q", k)
	}
	want, _ := ioutil.ReadFile(path)
	have, _ := ioutil.ReadFile(k)
	if string(want) != string(have) {
		t.Error("downloaded file differs")
	}

	if _, err := maybeDownload(context.Background(), srv.URL+"/missing.omf"); err == nil {
		t.Error("missing remote file should cause an error")
	}
}

func TestMaybeDownloadBlob(t *testing.T) {
	const dir = "blobtest"
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	path, cleanup := writeAsset(t)
	defer cleanup()
	data, err := ioutil.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	bucket, err := fileblob.NewBucket(dir)
	if err != nil {
		t.Fatal(err)
	}
	w, err := bucket.NewWriter(ctx, "wolfpass.omf", &blob.WriterOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	p, err := new(ProjectLoader).Load(ctx, "file://"+dir+"/wolfpass.omf")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "test" {
		t.Errorf("project name: %q", p.Name)
	}
	if !IsBlob("s3://bucket/x.omf") || IsBlob("/tmp/x.omf") {
		t.Error("IsBlob")
	}
}
