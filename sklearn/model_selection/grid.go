package model_selection

import (
	"sort"

	"github.com/mirzakinn/sales-prediction/core/model"
)

// ParamGrid maps a parameter name to the values to try. A nil value is a
// legitimate setting (for example max_depth None).
type ParamGrid map[string][]any

// Size returns the number of candidates the grid expands to. An empty grid
// expands to a single candidate with default parameters.
func (g ParamGrid) Size() int {
	n := 1
	for _, values := range g {
		n *= len(values)
	}
	return n
}

// ParameterGrid expands g into the cartesian product of its values. Keys are
// taken in sorted order and the last key varies fastest.
func ParameterGrid(g ParamGrid) []model.Params {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []model.Params{{}}
	for _, k := range keys {
		values := g[k]
		next := make([]model.Params, 0, len(out)*len(values))
		for _, base := range out {
			for _, v := range values {
				p := base.Clone()
				p[k] = v
				next = append(next, p)
			}
		}
		out = next
	}
	return out
}
