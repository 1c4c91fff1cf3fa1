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

package hash

import "testing"

type stringer string

func (s stringer) String() string { return "key:" + string(s) }

func TestKey(t *testing.T) {
	a := Key("assets/test_file.omf", "CU_pct")
	if a != Key("assets/test_file.omf", "CU_pct") {
		t.Error("key is not deterministic")
	}
	if a == Key("assets/test_file.omf", "AU_gpt") || a == Key("CU_pct", "assets/test_file.omf") {
		t.Error("different requests have the same key")
	}
	if len(a) != 32 {
		t.Errorf("key length: %d", len(a))
	}
	if k := Key(stringer("x")); k != "key:x" {
		t.Errorf("stringer key: %q", k)
	}
	if Key(nil) == "" || Key(map[string]float64{"a": 1}) != Key(map[string]float64{"a": 1}) {
		t.Error("fallback key failed")
	}
}
