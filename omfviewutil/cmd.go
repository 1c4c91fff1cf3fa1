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

// Package omfviewutil contains the command-line interface and
// configuration handling for omfview.
package omfviewutil

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/ctessum/geom"
	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/omfview"
	"github.com/spatialmodel/omfview/omf"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to omfview.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Asset",
			usage: `
              Asset is the path to the OMF project file to view. It can be
              a local file, an http(s):// URL, or a blob storage location
              starting with gs://, s3:// or file://.`,
			shorthand:  "a",
			defaultVal: "assets/test_file.omf",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Layers",
			usage: `
              Layers is the path to a TOML file naming the project elements
              to show and how to draw them. If it is empty, the elements of
              the Wolf Pass example project are used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Attribute",
			usage: `
              Attribute is the block model data to threshold, or an expression
              combining several block model data arrays. If it is empty, the
              attribute from the layer configuration is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ThresholdMode",
			usage: `
              ThresholdMode specifies whether a cell passes the threshold when
              'any' or 'all' of its corners do. If it is empty, the mode from
              the layer configuration is used.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "CacheDir",
			usage: `
              CacheDir is a directory where decoded projects are stored so that
              later runs can skip reading the asset. If it is empty, projects
              are only cached in memory.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages to print: one of
              debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "address",
			usage: `
              address is the address the web interface listens on.`,
			defaultVal: ":8080",
			flagsets:   []*pflag.FlagSet{Root.Flags(), serveCmd.Flags()},
		},
		{
			name: "open",
			usage: `
              open specifies whether to open the web interface in a browser.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{Root.Flags(), serveCmd.Flags()},
		},
		{
			name: "threshold",
			usage: `
              threshold is the attribute value cells must meet to be kept. A
              negative value means the attribute mean.`,
			shorthand:  "t",
			defaultVal: -1.0,
			flagsets:   []*pflag.FlagSet{thresholdCmd.Flags(), exportCmd.Flags()},
		},
		{
			name: "histogram",
			usage: `
              histogram is the path to write a PNG image of the attribute
              histogram to. No image is written if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{thresholdCmd.Flags()},
		},
		{
			name: "format",
			usage: `
              format is the export file format: 'stl' for the surface of the
              kept cells, 'npy' for a table of cell centers and values, or
              'omf' for a copy of the project with the other cells masked.`,
			shorthand:  "f",
			defaultVal: "stl",
			flagsets:   []*pflag.FlagSet{exportCmd.Flags()},
		},
		{
			name: "out",
			usage: `
              out is the path of the exported file.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{exportCmd.Flags()},
		},
		{
			name: "Elements",
			usage: `
              Elements limits the info command to the listed elements. All
              elements are listed if it is empty.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{infoCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("OMFVIEW")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(serveCmd)
	Root.AddCommand(infoCmd)
	Root.AddCommand(thresholdCmd)
	Root.AddCommand(exportCmd)
	Root.AddCommand(guiCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("omfview: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("omfview: %v", err)
	}
	logrus.SetLevel(level)
	return nil
}

// Root is the main command. Run without a subcommand, it starts the
// web interface.
var Root = &cobra.Command{
	Use:   "omfview",
	Short: "An interactive viewer for Open Mining Format block models.",
	Long: `omfview loads an Open Mining Format (OMF) project and lets you threshold
a block model attribute, view the kept cells in 3D together with the topography,
drill hole assays and alteration units, and see where the threshold falls in the
distribution of the attribute.

Run without a subcommand to start the web interface.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'OMFVIEW_var' where 'var' is the
name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(context.Background())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of omfview.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("omfview v%s\n", omfview.Version)
	},
	DisableAutoGenTag: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface.",
	Long: `serve loads the asset and starts the interactive web interface. The asset
is loaded once and shared by all connections.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(context.Background())
	},
	DisableAutoGenTag: true,
}

func serve(ctx context.Context) error {
	log := logrus.StandardLogger()
	v, err := LoadViewer(ctx, Cfg, log)
	if err != nil {
		return err
	}
	s := omfview.NewServer(v)
	s.Log = log
	return StartWebServer(Cfg.GetString("address"), s, Cfg.GetBool("open"), log)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe the asset.",
	Long: `info lists the elements of the asset with their kinds, data arrays and
plan-view extents, and prints statistics of the block model attribute.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		p, err := projects.Load(ctx, os.ExpandEnv(Cfg.GetString("Asset")))
		if err != nil {
			return err
		}
		l, err := Layers(Cfg)
		if err != nil {
			return err
		}
		var names []string
		for _, n := range Cfg.GetStringSlice("Elements") {
			if n = strings.TrimSpace(n); n != "" && n != "[]" {
				names = append(names, n)
			}
		}
		return Info(cmd, p, l, names)
	},
	DisableAutoGenTag: true,
}

// Info prints a description of the elements of p named in names, or
// of all elements if names is empty.
func Info(cmd *cobra.Command, p *omf.Project, l *omfview.Layers, names []string) error {
	cmd.Printf("Project %q (%d elements, units %q)\n", p.Name, len(p.Elements), p.Units)
	selected := make(map[string]bool)
	for _, n := range names {
		if _, err := p.Element(n); err != nil {
			return err
		}
		selected[n] = true
	}
	var model *geom.Bounds
	if e, err := p.Element(l.Volume); err == nil {
		model = planBounds(p, e)
	}
	for _, e := range p.Elements {
		if len(selected) > 0 && !selected[e.Name] {
			continue
		}
		var data []string
		for _, d := range e.Data {
			data = append(data, fmt.Sprintf("%s(%s)", d.Name, d.Location))
		}
		sort.Strings(data)
		b := planBounds(p, e)
		cmd.Printf("  %-24s %-9v x: [%g, %g] y: [%g, %g]", e.Name, e.Kind, b.Min.X, b.Max.X, b.Min.Y, b.Max.Y)
		if model != nil && e.Name != l.Volume {
			cmd.Printf(" overlaps block model: %v", b.Overlaps(model))
		}
		cmd.Println()
		if len(data) > 0 {
			cmd.Printf("    data: %s\n", strings.Join(data, ", "))
		}
	}
	e, err := p.Element(l.Volume)
	if err != nil {
		return err
	}
	bm, err := omfview.NewBlockModel(p, e, l.Attribute)
	if err != nil {
		return err
	}
	s := bm.Stats()
	cmd.Printf("Block model %q: %d×%d×%d cells\n", bm.Name, bm.NU, bm.NV, bm.NW)
	cmd.Printf("%s: min %g, max %g, mean %g (%d valid cells)\n", l.Attribute, s.Min, s.Max, s.Mean, s.N)
	return nil
}

// planBounds returns the extent of element e in the horizontal plane.
func planBounds(p *omf.Project, e *omf.Element) *geom.Bounds {
	b := geom.NewBounds()
	extend := func(w omf.Vector3) {
		b.Extend(geom.Point{X: w[0], Y: w[1]}.Bounds())
	}
	add := func(origin omf.Vector3, vertices []omf.Vector3) {
		for _, v := range vertices {
			extend(p.Origin.Add(origin).Add(v))
		}
	}
	switch e.Kind {
	case omf.KindSurface:
		add(e.Surface.Origin, e.Surface.Vertices)
	case omf.KindLineSet:
		add(e.LineSet.Origin, e.LineSet.Vertices)
	case omf.KindPointSet:
		add(e.PointSet.Origin, e.PointSet.Vertices)
	case omf.KindVolume:
		if min, max, err := omfview.VolumeBounds(p, e); err == nil {
			extend(min)
			extend(max)
		}
	}
	return b
}

// threshold returns the threshold from cfg, or the attribute mean if
// it is negative.
func threshold(cfg *viper.Viper, v *omfview.Viewer) (float64, error) {
	t, err := cast.ToFloat64E(cfg.Get("threshold"))
	if err != nil {
		return math.NaN(), fmt.Errorf("omfview: invalid threshold: %v", err)
	}
	if t < 0 {
		return v.Controls().Initial.Threshold, nil
	}
	return t, nil
}

var thresholdCmd = &cobra.Command{
	Use:   "threshold",
	Short: "Count the cells meeting a threshold.",
	Long: `threshold prints the number of block model cells meeting the threshold
and optionally writes the attribute histogram, marked at the threshold, as a
PNG image.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := LoadViewer(context.Background(), Cfg, logrus.StandardLogger())
		if err != nil {
			return err
		}
		t, err := threshold(Cfg, v)
		if err != nil {
			return err
		}
		r := v.Render(omfview.Controls{Threshold: t})
		cmd.Println(r.Message)
		if path := Cfg.GetString("histogram"); path != "" {
			b, err := v.ChartPNG(t)
			if err != nil {
				return err
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("omfview: creating histogram file: %v", err)
			}
			if _, err := f.Write(b); err != nil {
				f.Close()
				return fmt.Errorf("omfview: writing histogram: %v", err)
			}
			return f.Close()
		}
		return nil
	},
	DisableAutoGenTag: true,
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the cells meeting a threshold.",
	Long: `export writes the block model cells meeting the threshold to a file in
the format given by --format.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := LoadViewer(context.Background(), Cfg, logrus.StandardLogger())
		if err != nil {
			return err
		}
		t, err := threshold(Cfg, v)
		if err != nil {
			return err
		}
		out := Cfg.GetString("out")
		if out == "" {
			return fmt.Errorf("omfview: an output file must be specified with --out")
		}
		n, err := Export(v, t, Cfg.GetString("format"), out)
		if err != nil {
			return err
		}
		cmd.Printf("wrote %d cells to %s\n", n, out)
		return nil
	},
	DisableAutoGenTag: true,
}

// Export writes the cells of v's block model meeting threshold t to
// path in the given format and returns the number of cells written.
func Export(v *omfview.Viewer, t float64, format, path string) (int, error) {
	s := v.Points().Threshold(t, v.Layers.ThresholdMode)
	switch strings.ToLower(format) {
	case "npy":
		return s.NCells(), omfview.WriteNPY(path, s)
	case "stl", "omf":
	default:
		return 0, fmt.Errorf("omfview: invalid export format %q; valid formats are 'stl', 'npy' and 'omf'", format)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("omfview: creating export file: %v", err)
	}
	if strings.ToLower(format) == "stl" {
		err = omfview.WriteSTL(f, s)
	} else {
		err = omfview.WriteMaskedOMF(f, v.Project, s)
	}
	if err != nil {
		f.Close()
		return 0, err
	}
	return s.NCells(), f.Close()
}
