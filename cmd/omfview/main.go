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

// Command omfview is an interactive viewer for Open Mining Format block
// models. Run without a subcommand, it serves the viewer over HTTP.
package main

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/omfview/omfviewutil"
)

func init() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	})
}

func main() {
	if err := omfviewutil.Root.Execute(); err != nil {
		logrus.Fatal(err)
	}
}
