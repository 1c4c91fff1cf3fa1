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
	"strings"
	"testing"

	"github.com/kr/pretty"
)

func TestReadLayers(t *testing.T) {
	const cfg = `
Attribute = "AU_gpt"
Units = "g/t"
ThresholdMode = "all"
Bins = 20

[Styles.assay]
Color = "red"
Opacity = 1.0
LineWidth = 2.0
`
	l, err := ReadLayers(strings.NewReader(cfg))
	if err != nil {
		t.Fatal(err)
	}
	want := DefaultLayers()
	want.Attribute = "AU_gpt"
	want.Units = "g/t"
	want.ThresholdMode = AllPoints
	want.Bins = 20
	want.Styles[RoleAssay] = Style{Color: "red", Opacity: 1, LineWidth: 2}
	if diff := pretty.Diff(want, l); len(diff) > 0 {
		t.Errorf("layers: %v", diff)
	}
	if l.ScalarBarTitle() != "AU_gpt (g/t)" {
		t.Errorf("title: %q", l.ScalarBarTitle())
	}
}

func TestReadLayersErrors(t *testing.T) {
	for _, cfg := range []string{
		`ThresholdMode = "most"`,
		`Bins = -1`,
		"[Styles.volcano]\nColor = \"red\"",
		`Volume = `,
	} {
		if _, err := ReadLayers(strings.NewReader(cfg)); err == nil {
			t.Errorf("%q should cause an error", cfg)
		}
	}
}
