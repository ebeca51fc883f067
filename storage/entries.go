// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"iter"

	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/format"
)

type walker struct {
	levels []format.Level
	ptr    [][]int32
	idx    [][]int32
	values *Array

	coord []int
	yield func([]int, Ref) bool
}

func (w *walker) walk(lvl, pos int) bool {
	if lvl == len(w.levels) {
		return w.yield(w.coord, w.values.Get(pos))
	}
	switch w.levels[lvl].Type {
	case format.Dense:
		size := int(w.ptr[lvl][0])
		for c := range size {
			w.coord[lvl] = c
			if !w.walk(lvl+1, pos*size+c) {
				return false
			}
		}
	case format.Sparse:
		for k := w.ptr[lvl][pos]; k < w.ptr[lvl][pos+1]; k++ {
			w.coord[lvl] = int(w.idx[lvl][k])
			if !w.walk(lvl+1, int(k)) {
				return false
			}
		}
	case format.Fixed:
		fanout := int(w.ptr[lvl][0])
		for k := pos * fanout; k < (pos+1)*fanout; k++ {
			c := w.idx[lvl][k]
			if c == Padding {
				continue
			}
			w.coord[lvl] = int(c)
			if !w.walk(lvl+1, k) {
				return false
			}
		}
	}
	return true
}

// Entries returns an iterator over the stored values and their coordinates
// in storage order. Entries are visited in lexicographic order of their
// coordinates. Padding of fixed levels is skipped, but values explicitly
// stored by dense levels are visited even if they are zero.
//
// The coordinate slice is reused between iterations.
func (s Storage) Entries() (iter.Seq2[[]int, Ref], error) {
	size, err := s.Size()
	if err != nil {
		return nil, err
	}
	if s.c.values == nil || s.c.values.Len() < size.Values {
		return nil, fmterr.Internalf("storage has %d values but its levels require %d", s.valuesLen(), size.Values)
	}
	w := &walker{
		levels: s.c.format.Levels(),
		ptr:    make([][]int32, s.Order()),
		idx:    make([][]int32, s.Order()),
		values: s.c.values,
		coord:  make([]int, s.Order()),
	}
	for lvl, li := range s.c.levels {
		if w.ptr[lvl], err = View[int32](li.Ptr); err != nil {
			return nil, err
		}
		if w.levels[lvl].Type == format.Dense {
			continue
		}
		if li.Idx == nil || li.Idx.Len() < size.Levels[lvl].Idx {
			return nil, fmterr.Internalf("level %d: idx array is too short to store %d coordinates", lvl, size.Levels[lvl].Idx)
		}
		if w.idx[lvl], err = View[int32](li.Idx); err != nil {
			return nil, err
		}
	}
	return func(yield func([]int, Ref) bool) {
		w.yield = yield
		w.walk(0, 0)
	}, nil
}

func (s Storage) valuesLen() int {
	if s.c.values == nil {
		return 0
	}
	return s.c.values.Len()
}

// CompressedView is a borrowed view on the arrays of a matrix stored with
// a dense outer level and a sparse inner level. The slices alias the arrays
// of the storage: the storage must outlive the view.
type CompressedView struct {
	Values []float64
	Ptr    []int32
	Idx    []int32
}

// Compressed returns a view on the arrays of a two-level storage.
func (s Storage) Compressed() (CompressedView, error) {
	if err := s.checkCompressed(); err != nil {
		return CompressedView{}, err
	}
	var view CompressedView
	var err error
	li := s.c.levels[1]
	if li.Ptr != nil {
		if view.Ptr, err = View[int32](li.Ptr); err != nil {
			return CompressedView{}, err
		}
	}
	if li.Idx != nil {
		if view.Idx, err = View[int32](li.Idx); err != nil {
			return CompressedView{}, err
		}
	}
	if s.c.values != nil {
		if view.Values, err = View[float64](s.c.values); err != nil {
			return CompressedView{}, err
		}
	}
	return view, nil
}

// SetCompressed aliases the slices of a view into a two-level storage.
// The storage does not own the slices: the caller must keep them alive.
func (s Storage) SetCompressed(view CompressedView) error {
	if err := s.checkCompressed(); err != nil {
		return err
	}
	s.SetLevelIndex(1, LevelIndex{
		Ptr: FromSlice(view.Ptr, CallerOwns),
		Idx: FromSlice(view.Idx, CallerOwns),
	})
	s.SetValues(FromSlice(view.Values, CallerOwns))
	return nil
}

func (s Storage) checkCompressed() error {
	levels := s.c.format.Levels()
	if len(levels) != 2 || levels[0].Type != format.Dense || levels[1].Type != format.Sparse {
		return fmterr.Usagef("storage format %s is not a compressed matrix format", s.c.format)
	}
	return nil
}
