// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package canonical

import (
	"bytes"
	"fmt"
	"os"
	"sort"
)

// MergeAppend appends newRows (already sorted by ObservedAt) into the
// canonical file at path, merging with any existing tail rather than
// re-sorting the whole file, and replaces the file atomically.
//
// - If path does not exist yet, it is created directly (spec.md §9
//   strategy (a): write target.new, rename over target — here there is no
//   existing content to concatenate, so the "new" content is just newRows).
// - If it exists, the existing rows and newRows are linearly merged (both
//   sides are already sorted) and the merged result replaces the file via
//   a sibling ".append.tmp" file + rename, never truncating in place.
//
// Returns the number of rows actually appended (duplicates, if any slipped
// through the caller's dedup check, are still counted — dedup is the
// caller's responsibility via the dedup set, not this function's).
func MergeAppend(path string, newRows []Observation) (int, error) {
	if !sort.SliceIsSorted(newRows, func(i, j int) bool {
		return newRows[i].ObservedAt.Before(newRows[j].ObservedAt)
	}) {
		return 0, fmt.Errorf("MergeAppend: newRows must be pre-sorted by observed_at")
	}

	existing, err := readExisting(path)
	if err != nil {
		return 0, err
	}

	merged := mergeSorted(existing, newRows)

	var buf bytes.Buffer
	if err := WriteCSV(&buf, merged); err != nil {
		return 0, fmt.Errorf("encode merged rows for %s: %w", path, err)
	}

	tmp := path + ".append.tmp"
	if err := os.MkdirAll(dirOf(path), 0o750); err != nil {
		return 0, fmt.Errorf("create parent dir for %s: %w", path, err)
	}
	if err := os.WriteFile(tmp, buf.Bytes(), 0o640); err != nil {
		return 0, fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return len(newRows), nil
}

func readExisting(path string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return rows, nil
}

// mergeSorted performs a linear two-way merge of two ObservedAt-sorted
// slices, avoiding a full re-sort of the (potentially large) existing tail.
func mergeSorted(a, b []Observation) []Observation {
	out := make([]Observation, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if !a[i].ObservedAt.After(b[j].ObservedAt) {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}

func dirOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
