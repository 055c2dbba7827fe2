package dataframe

import (
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/YuminosukeSato/tabml/pkg/errors"
)

// GroupBy holds the row groups of a frame keyed by one or more columns.
// Rows with a missing key are dropped and groups are sorted by key.
type GroupBy struct {
	frame  *Frame
	keys   []*Series
	groups [][]int // row indices per group, in key order
	err    error
}

// GroupBy groups rows by the distinct values of keys.
func (f *Frame) GroupBy(keys ...string) *GroupBy {
	g := &GroupBy{frame: f}
	if len(keys) == 0 {
		g.err = errors.NewValueError("GroupBy", "at least one key is required")
		return g
	}
	for _, k := range keys {
		c, err := f.Col(k)
		if err != nil {
			g.err = err
			return g
		}
		g.keys = append(g.keys, c)
	}

	byKey := make(map[string]int)
	for i := 0; i < f.NRows(); i++ {
		missing := false
		for _, c := range g.keys {
			if c.IsNull(i) {
				missing = true
				break
			}
		}
		if missing {
			continue
		}
		k := f.rowKey(i, g.keys)
		gi, ok := byKey[k]
		if !ok {
			gi = len(g.groups)
			byKey[k] = gi
			g.groups = append(g.groups, nil)
		}
		g.groups[gi] = append(g.groups[gi], i)
	}
	sort.SliceStable(g.groups, func(a, b int) bool {
		ia, ib := g.groups[a][0], g.groups[b][0]
		for _, c := range g.keys {
			if c.less(ia, ib) {
				return true
			}
			if c.less(ib, ia) {
				return false
			}
		}
		return false
	})
	return g
}

// NGroups returns the number of groups.
func (g *GroupBy) NGroups() int { return len(g.groups) }

func (g *GroupBy) keyFrame() []*Series {
	first := make([]int, len(g.groups))
	for i, rows := range g.groups {
		first[i] = rows[0]
	}
	cols := make([]*Series, len(g.keys))
	for i, c := range g.keys {
		cols[i] = c.take(first)
	}
	return cols
}

// Agg reduces col within every group. The result has the key columns
// followed by col.
func (g *GroupBy) Agg(col string, fn AggFunc) (*Frame, error) {
	if g.err != nil {
		return nil, g.err
	}
	if _, err := ParseAggFunc(string(fn)); err != nil {
		return nil, err
	}
	c, err := g.frame.floatCol("GroupBy.Agg", col)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(g.groups))
	for gi, rows := range g.groups {
		data := make(stats.Float64Data, 0, len(rows))
		for _, i := range rows {
			if !c.IsNull(i) {
				data = append(data, c.floats[i])
			}
		}
		out[gi] = aggregate(data, fn)
	}
	return New(append(g.keyFrame(), NewFloatSeries(col, out))...)
}

// Size returns the number of rows per group in a column named "size".
func (g *GroupBy) Size() (*Frame, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := make([]float64, len(g.groups))
	for gi, rows := range g.groups {
		out[gi] = float64(len(rows))
	}
	return New(append(g.keyFrame(), NewFloatSeries("size", out))...)
}

// Groups returns the sub-frame of every group in key order.
func (g *GroupBy) Groups() ([]*Frame, error) {
	if g.err != nil {
		return nil, g.err
	}
	out := make([]*Frame, len(g.groups))
	for gi, rows := range g.groups {
		out[gi] = g.frame.Take(rows)
	}
	return out, nil
}
