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
	"encoding/gob"
	"fmt"
	"os"
	"sync"

	"github.com/ctessum/requestcache"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/omfview"
	"github.com/spatialmodel/omfview/internal/hash"
	"github.com/spatialmodel/omfview/omf"
)

func init() {
	gob.Register(&omf.Project{})
}

// ProjectLoader reads OMF projects, keeping recently loaded projects in
// memory so that each asset is only read once. Concurrent requests for
// the same asset share one read.
type ProjectLoader struct {
	// CacheDir, if set, is a directory where decoded projects are
	// additionally stored between runs.
	CacheDir string

	Log logrus.FieldLogger

	cache     *requestcache.Cache
	cacheOnce sync.Once
}

// Load returns the project stored at path, which may be a local file,
// an HTTP(S) URL, or a blob location.
func (l *ProjectLoader) Load(ctx context.Context, path string) (*omf.Project, error) {
	l.cacheOnce.Do(func() {
		cf := []requestcache.CacheFunc{requestcache.Deduplicate(), requestcache.Memory(4)}
		if l.CacheDir != "" {
			cf = append(cf, requestcache.Disk(l.CacheDir, requestcache.MarshalGob, requestcache.UnmarshalGob))
		}
		l.cache = requestcache.NewCache(l.read, 1, cf...)
	})
	r := l.cache.NewRequest(ctx, path, hash.Key("omf", path))
	p, err := r.Result()
	if err != nil {
		return nil, err
	}
	return p.(*omf.Project), nil
}

func (l *ProjectLoader) read(ctx context.Context, request interface{}) (interface{}, error) {
	path := request.(string)
	local, err := maybeDownload(ctx, path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("omfviewutil: opening asset: %v", err)
	}
	defer f.Close()
	p, err := omf.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("omfviewutil: reading asset %s: %v", path, err)
	}
	if l.Log != nil {
		l.Log.WithFields(logrus.Fields{
			"asset":    path,
			"project":  p.Name,
			"elements": len(p.Elements),
		}).Info("loaded project")
	}
	return p, nil
}

// projects is the loader shared by all commands.
var projects = &ProjectLoader{Log: logrus.StandardLogger()}

// Layers returns the layer configuration specified by cfg: the TOML
// file named by the "Layers" option, if any, with the "Attribute" and
// "ThresholdMode" options applied on top.
func Layers(cfg *viper.Viper) (*omfview.Layers, error) {
	l := omfview.DefaultLayers()
	if path := os.ExpandEnv(cfg.GetString("Layers")); path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("omfviewutil: opening layer configuration: %v", err)
		}
		defer f.Close()
		if l, err = omfview.ReadLayers(f); err != nil {
			return nil, err
		}
	}
	if a := cfg.GetString("Attribute"); a != "" {
		l.Attribute = a
	}
	if m := cfg.GetString("ThresholdMode"); m != "" {
		mode, err := omfview.ParseThresholdMode(m)
		if err != nil {
			return nil, err
		}
		l.ThresholdMode = mode
	}
	return l, l.Validate()
}

// LoadViewer loads the asset specified by cfg and prepares it for viewing.
func LoadViewer(ctx context.Context, cfg *viper.Viper, log logrus.FieldLogger) (*omfview.Viewer, error) {
	l, err := Layers(cfg)
	if err != nil {
		return nil, err
	}
	if projects.CacheDir == "" {
		projects.CacheDir = os.ExpandEnv(cfg.GetString("CacheDir"))
	}
	p, err := projects.Load(ctx, os.ExpandEnv(cfg.GetString("Asset")))
	if err != nil {
		return nil, err
	}
	v, err := omfview.NewViewer(p, l)
	if err != nil {
		return nil, err
	}
	v.Log = log
	return v, nil
}
