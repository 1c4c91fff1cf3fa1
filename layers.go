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

	"github.com/BurntSushi/toml"
)

// Layers names the project elements shown by a Viewer and how each
// is drawn.
type Layers struct {
	// Volume is the name of the block model element.
	Volume string

	// Attribute is the block model data array, or an expression over
	// several data arrays, that is thresholded and plotted.
	Attribute string

	// Units are appended to the attribute name in the scalar bar title.
	Units string

	Topography string
	Assay      string
	Alteration string

	// Bins is the number of histogram bins.
	Bins int

	// ThresholdMode is either "any" or "all".
	ThresholdMode ThresholdMode

	// Styles holds the drawing style for each scene role.
	Styles map[Role]Style
}

// DefaultLayers returns the layer configuration for the Wolf Pass
// example project.
func DefaultLayers() *Layers {
	return &Layers{
		Volume:        "Block Model",
		Attribute:     "CU_pct",
		Units:         "%",
		Topography:    "Topography",
		Assay:         "wolfpass_WP_assay",
		Alteration:    "Dacite",
		Bins:          50,
		ThresholdMode: AnyPoint,
		Styles: map[Role]Style{
			RoleTopography: {Opacity: 0.5},
			RoleVolume:     {Opacity: 1},
			RoleOutline:    {Color: "black", Opacity: 1, LineWidth: 1},
			RoleAssay:      {Color: "blue", Opacity: 1, LineWidth: 3},
			RoleAlteration: {Color: "green", Opacity: 0.5},
		},
	}
}

// layersFile is the TOML representation of Layers. Fields left out of
// the file keep their default values.
type layersFile struct {
	Volume        string
	Attribute     string
	Units         string
	Topography    string
	Assay         string
	Alteration    string
	Bins          int
	ThresholdMode string
	Styles        map[string]Style
}

// ReadLayers reads a TOML layer configuration from r, overriding the
// defaults for any fields that are set. For example:
//
//	Volume = "Block Model"
//	Attribute = "AU_gpt"
//	ThresholdMode = "all"
//
//	[Styles.assay]
//	Color = "red"
//	Opacity = 1.0
//	LineWidth = 2.0
func ReadLayers(r io.Reader) (*Layers, error) {
	var f layersFile
	if _, err := toml.DecodeReader(r, &f); err != nil {
		return nil, fmt.Errorf("omfview: reading layer configuration: %v", err)
	}
	l := DefaultLayers()
	set := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	set(&l.Volume, f.Volume)
	set(&l.Attribute, f.Attribute)
	set(&l.Units, f.Units)
	set(&l.Topography, f.Topography)
	set(&l.Assay, f.Assay)
	set(&l.Alteration, f.Alteration)
	if f.Bins != 0 {
		l.Bins = f.Bins
	}
	mode, err := ParseThresholdMode(f.ThresholdMode)
	if err != nil {
		return nil, err
	}
	l.ThresholdMode = mode
	for name, s := range f.Styles {
		role := Role(name)
		if _, ok := l.Styles[role]; !ok {
			return nil, fmt.Errorf("omfview: invalid style role %q", name)
		}
		l.Styles[role] = s
	}
	return l, l.Validate()
}

// Validate checks that the layer configuration is usable.
func (l *Layers) Validate() error {
	if l.Volume == "" {
		return fmt.Errorf("omfview: a block model element must be specified")
	}
	if l.Attribute == "" {
		return fmt.Errorf("omfview: a block model attribute must be specified")
	}
	if l.Bins < 1 {
		return fmt.Errorf("omfview: number of histogram bins must be positive; got %d", l.Bins)
	}
	_, err := ParseThresholdMode(string(l.ThresholdMode))
	return err
}

// ScalarBarTitle returns the title of the color legend, for example
// "CU_pct (%)".
func (l *Layers) ScalarBarTitle() string {
	if l.Units == "" {
		return l.Attribute
	}
	return fmt.Sprintf("%s (%s)", l.Attribute, l.Units)
}
