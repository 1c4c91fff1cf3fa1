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

// Package hash creates cache keys for requests.
package hash

import (
	"encoding/gob"
	"fmt"
	"hash"
	"hash/fnv"

	"github.com/davecgh/go-spew/spew"
)

// Key returns a cache key for a request made up of the given parts. A
// request with a single fmt.Stringer part is keyed by its string.
func Key(parts ...interface{}) string {
	if len(parts) == 1 {
		if s, ok := parts[0].(fmt.Stringer); ok {
			return s.String()
		}
	}
	h := fnv.New128a()
	for _, p := range parts {
		write(h, p)
	}
	b := h.Sum([]byte{})
	return fmt.Sprintf("%x", b[0:h.Size()])
}

var printer = spew.ConfigState{
	Indent:                  " ",
	SortKeys:                true,
	DisableMethods:          true,
	SpewKeys:                true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
}

// write adds p to h. Values that gob can't encode, such as nil
// interfaces, are printed with spew instead.
func write(h hash.Hash, p interface{}) {
	if err := gob.NewEncoder(h).Encode(p); err == nil {
		return
	}
	printer.Fprintf(h, "%#v", p)
}
