// Waitcore - Theme Park Wait Time Data Pipeline and Modeling Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/openwaits/waitcore

package entityindex

import (
	"container/heap"
	"fmt"
	"iter"
	"os"
	"path/filepath"

	"github.com/openwaits/waitcore/internal/canonical"
)

// scanFactDir reads every CSV file under factDir (used only by Rebuild,
// which needs every row at once; Load below streams instead).
func scanFactDir(factDir string) ([]canonical.Observation, error) {
	var all []canonical.Observation
	err := filepath.WalkDir(factDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".csv" {
			return nil
		}
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		rows, err := canonical.ReadCSV(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		all = append(all, rows...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return all, nil
}

// Load streams every observation for entityCode across the fact store,
// sorted by observed_at. Since fact/YYYY-MM/<park>_*.csv files are each already
// sorted ascending by construction (the Canonical Writer guarantees it),
// this is a k-way merge over the entity's park's files rather than a
// load-everything-then-sort, keeping memory proportional to the number of
// open files rather than the entity's full history.
func Load(factDir, entityCode string) iter.Seq2[canonical.Observation, error] {
	return func(yield func(canonical.Observation, error) bool) {
		parkCode := canonical.ParkCodeOf(entityCode)
		paths, err := matchingParkFiles(factDir, parkCode)
		if err != nil {
			yield(canonical.Observation{}, err)
			return
		}

		streams := make([]*rowStream, 0, len(paths))
		defer func() {
			for _, s := range streams {
				s.close()
			}
		}()
		for _, p := range paths {
			s, err := openRowStream(p)
			if err != nil {
				if !yield(canonical.Observation{}, err) {
					return
				}
				continue
			}
			if s.valid {
				streams = append(streams, s)
			} else {
				s.close()
			}
		}

		h := &streamHeap{streams: streams}
		heap.Init(h)
		for h.Len() > 0 {
			s := h.streams[0]
			if s.cur.EntityCode == entityCode {
				if !yield(s.cur, nil) {
					return
				}
			}
			if s.advance() {
				heap.Fix(h, 0)
			} else {
				heap.Pop(h)
				s.close()
			}
		}
	}
}

func matchingParkFiles(factDir, parkCode string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(factDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".csv" {
			return nil
		}
		base := filepath.Base(path)
		if len(base) > len(parkCode) && base[:len(parkCode)+1] == parkCode+"_" {
			out = append(out, path)
		}
		return nil
	})
	return out, err
}

// rowStream is one open CSV file positioned at its current row, used as a
// leaf of the k-way merge heap.
type rowStream struct {
	f     *os.File
	dec   *canonical.RowScanner
	cur   canonical.Observation
	valid bool
}

func openRowStream(path string) (*rowStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	dec, err := canonical.NewRowScanner(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("read header %s: %w", path, err)
	}
	s := &rowStream{f: f, dec: dec}
	s.advance()
	return s, nil
}

func (s *rowStream) advance() bool {
	row, ok, err := s.dec.Next()
	if err != nil || !ok {
		s.valid = false
		return false
	}
	s.cur = row
	s.valid = true
	return true
}

func (s *rowStream) close() {
	s.f.Close()
}

type streamHeap struct {
	streams []*rowStream
}

func (h *streamHeap) Len() int { return len(h.streams) }
func (h *streamHeap) Less(i, j int) bool {
	return h.streams[i].cur.ObservedAt.Before(h.streams[j].cur.ObservedAt)
}
func (h *streamHeap) Swap(i, j int) { h.streams[i], h.streams[j] = h.streams[j], h.streams[i] }
func (h *streamHeap) Push(x any)    { h.streams = append(h.streams, x.(*rowStream)) }
func (h *streamHeap) Pop() any {
	old := h.streams
	n := len(old)
	item := old[n-1]
	h.streams = old[:n-1]
	return item
}
