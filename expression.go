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
	"math"

	"github.com/Knetic/govaluate"
	"github.com/spatialmodel/omfview/omf"
)

// expressionFunctions are the functions available to attribute expressions.
var expressionFunctions = map[string]govaluate.ExpressionFunction{
	"exp":   unary("exp", math.Exp),
	"log":   unary("log", math.Log),
	"log10": unary("log10", math.Log10),
	"sqrt":  unary("sqrt", math.Sqrt),
	"abs":   unary("abs", math.Abs),
}

func unary(name string, f func(float64) float64) govaluate.ExpressionFunction {
	return func(arg ...interface{}) (interface{}, error) {
		if len(arg) != 1 {
			return nil, fmt.Errorf("omfview: got %d arguments for function '%s', but needs 1", len(arg), name)
		}
		x, ok := arg[0].(float64)
		if !ok {
			return nil, fmt.Errorf("omfview: argument to '%s' is not a number", name)
		}
		return f(x), nil
	}
}

// cellValues returns one value per cell of element e for the given attribute.
// If attribute names a data array of e, that array is returned directly.
// Otherwise attribute is evaluated as an expression whose variables are
// names of e's cell data arrays, for example "CU_pct * 10000" or
// "[AU_gpt] / 31.1".
func cellValues(e *omf.Element, attribute string, nCells int) ([]float64, error) {
	if d, ok := e.DataByName(attribute); ok {
		if err := checkCellData(e, d, nCells); err != nil {
			return nil, err
		}
		return d.Values, nil
	}
	expression, err := govaluate.NewEvaluableExpressionWithFunctions(attribute, expressionFunctions)
	if err != nil {
		return nil, fmt.Errorf("omfview: element %q has no data named %q, and it is not a valid expression: %v",
			e.Name, attribute, err)
	}
	vars := expression.Vars()
	if len(vars) == 0 {
		return nil, fmt.Errorf("omfview: element %q has no data named %q", e.Name, attribute)
	}
	arrays := make(map[string][]float64, len(vars))
	for _, v := range vars {
		d, ok := e.DataByName(v)
		if !ok {
			return nil, fmt.Errorf("omfview: element %q has no data named %q", e.Name, v)
		}
		if err := checkCellData(e, d, nCells); err != nil {
			return nil, err
		}
		arrays[v] = d.Values
	}

	o := make([]float64, nCells)
	params := make(map[string]interface{}, len(vars))
	for i := range o {
		for name, vals := range arrays {
			params[name] = vals[i]
		}
		result, err := expression.Evaluate(params)
		if err != nil {
			return nil, fmt.Errorf("omfview: evaluating %q for cell %d: %v", attribute, i, err)
		}
		switch r := result.(type) {
		case float64:
			o[i] = r
		case bool:
			if r {
				o[i] = 1
			}
		default:
			return nil, fmt.Errorf("omfview: expression %q evaluated to %T, not a number", attribute, result)
		}
	}
	return o, nil
}

func checkCellData(e *omf.Element, d *omf.ScalarData, nCells int) error {
	if d.Location != "" && d.Location != omf.LocationCells {
		return fmt.Errorf("omfview: data %q of element %q is located on %s, not cells", d.Name, e.Name, d.Location)
	}
	if len(d.Values) != nCells {
		return fmt.Errorf("omfview: data %q of element %q has %d values but the grid has %d cells",
			d.Name, e.Name, len(d.Values), nCells)
	}
	return nil
}
