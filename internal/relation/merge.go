// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package relation

import "fmt"

// keyTuple is a comparable composite key built from one row's values in
// the on columns.
type keyTuple []interface{}

func rowKey(t Table, on []string, row int) keyTuple {
	k := make(keyTuple, len(on))
	for i, name := range on {
		k[i] = t.columns[name][row]
	}
	return k
}

func keysEqual(a, b keyTuple) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func keyLess(a, b keyTuple) bool {
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		return lessValue(a[i], b[i])
	}
	return false
}

func lessValue(a, b interface{}) bool {
	switch av := a.(type) {
	case int:
		return av < b.(int)
	case int64:
		return av < b.(int64)
	case float64:
		return av < b.(float64)
	case string:
		return av < b.(string)
	default:
		panic(fmt.Sprintf("relation: unsupported key type %T", a))
	}
}

// MergeJoin inner-joins left and right on the columns named in on. Both
// tables must already be sorted ascending by on (SortBy), in the same
// column order listed in on; MergeJoin does one linear pass and never
// re-sorts or does per-row dispatch into either side. Matching groups on
// either side (duplicate keys) are joined as a cross product within the
// group, which is the only case that needs more than linear work, and is
// bounded by each dimension table's own group size.
//
// The result carries every left column plus every right column not
// already present on the left (a right column with a name collision is
// dropped, since the left side is always the fact-grain table and wins).
func MergeJoin(left, right Table, on []string) Table {
	outOrder := append([]string(nil), left.order...)
	rightExtra := make([]string, 0, len(right.order))
	present := make(map[string]bool, len(left.order))
	for _, name := range left.order {
		present[name] = true
	}
	for _, name := range right.order {
		if !present[name] {
			rightExtra = append(rightExtra, name)
			outOrder = append(outOrder, name)
		}
	}

	outCols := make(map[string]Column, len(outOrder))
	for _, name := range outOrder {
		outCols[name] = Column{}
	}

	li, ri := 0, 0
	for li < left.numRows && ri < right.numRows {
		lk := rowKey(left, on, li)
		rk := rowKey(right, on, ri)
		switch {
		case keyLess(lk, rk):
			li++
		case keyLess(rk, lk):
			ri++
		default:
			// Collect the matching group on each side, then cross them.
			lStart := li
			for li < left.numRows && keysEqual(rowKey(left, on, li), lk) {
				li++
			}
			rStart := ri
			for ri < right.numRows && keysEqual(rowKey(right, on, ri), rk) {
				ri++
			}
			for l := lStart; l < li; l++ {
				for r := rStart; r < ri; r++ {
					for _, name := range left.order {
						outCols[name] = append(outCols[name], left.columns[name][l])
					}
					for _, name := range rightExtra {
						outCols[name] = append(outCols[name], right.columns[name][r])
					}
				}
			}
		}
	}

	return NewTable(outOrder, outCols)
}
