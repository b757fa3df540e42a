// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

// Package relation is a minimal columnar relational engine for feature
// construction. Modeling's feature table is built from a handful of
// pre-sorted merge-joins against small dimension tables, never by
// per-row dispatch into a dimension lookup — this package is the
// right-sized structure for that single operation, not a general SQL
// engine.
package relation

import "sort"

// Column is a single column of interface{} values; every Column in a Table
// has the same length. Callers type-assert each element to the concrete
// type they expect (string, int, int64, float64, time.Time, ...).
type Column []interface{}

// Table is an in-memory columnar relation: a fixed column order plus one
// Column per name, all the same length (NumRows).
type Table struct {
	order   []string
	columns map[string]Column
	numRows int
}

// NewTable builds a Table from columns, which must all have equal length.
// order fixes column iteration order for Columns/Row.
func NewTable(order []string, columns map[string]Column) Table {
	n := 0
	for _, c := range columns {
		n = len(c)
		break
	}
	for name, c := range columns {
		if len(c) != n {
			panic("relation: column " + name + " length mismatch")
		}
	}
	return Table{order: order, columns: columns, numRows: n}
}

// NumRows reports the table's row count.
func (t Table) NumRows() int { return t.numRows }

// Columns returns the table's column names in their fixed order.
func (t Table) Columns() []string { return t.order }

// Column returns one named column.
func (t Table) Column(name string) (Column, bool) {
	c, ok := t.columns[name]
	return c, ok
}

// Row returns row i as a name->value map.
func (t Table) Row(i int) map[string]interface{} {
	row := make(map[string]interface{}, len(t.order))
	for _, name := range t.order {
		row[name] = t.columns[name][i]
	}
	return row
}

// SortBy reorders every column in place by the ascending order of key's
// values, using less to compare two key-column values. Required before a
// table is used as a MergeJoin input.
func (t Table) SortBy(key string, less func(a, b interface{}) bool) {
	keyCol := t.columns[key]
	idx := make([]int, t.numRows)
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(i, j int) bool {
		return less(keyCol[idx[i]], keyCol[idx[j]])
	})
	for _, col := range t.columns {
		permuted := make(Column, t.numRows)
		for newPos, oldPos := range idx {
			permuted[newPos] = col[oldPos]
		}
		copy(col, permuted)
	}
}
