package model_selection

import "sort"

// ParameterGrid expands a grid of hyperparameter values into every
// combination. Keys are iterated in sorted order and the last key varies
// fastest, so the result order is deterministic.
func ParameterGrid(grid map[string][]interface{}) []map[string]interface{} {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := []map[string]interface{}{{}}
	for _, k := range keys {
		values := grid[k]
		if len(values) == 0 {
			return nil
		}
		next := make([]map[string]interface{}, 0, len(out)*len(values))
		for _, partial := range out {
			for _, v := range values {
				combo := make(map[string]interface{}, len(partial)+1)
				for pk, pv := range partial {
					combo[pk] = pv
				}
				combo[k] = v
				next = append(next, combo)
			}
		}
		out = next
	}
	return out
}
