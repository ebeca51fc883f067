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

package tensor

import (
	"iter"
	"math"
	"slices"

	"github.com/gx-org/sptensor/storage"
)

// RelativeTolerance is the maximum relative difference between two values
// considered equal by Equals.
const RelativeTolerance = 1e-6

type entry struct {
	coords []int
	value  float64
}

func compareEntries(a, b entry) int {
	return slices.Compare(a.coords, b.coords)
}

// Entries returns an iterator over the packed entries of the tensor with
// their coordinates in the declared order of the dimensions. Entries are
// visited in storage order. The coordinate slice is reused between
// iterations. A tensor without values has no entries.
func (t Tensor) Entries() (iter.Seq2[[]int, storage.Ref], error) {
	s := t.c.storage
	if s.Values() == nil {
		return func(func([]int, storage.Ref) bool) {}, nil
	}
	it, err := s.Entries()
	if err != nil {
		return nil, err
	}
	perm := s.Format().Permutation()
	logical := make([]int, len(perm))
	return func(yield func([]int, storage.Ref) bool) {
		for coords, val := range it {
			for lvl, c := range coords {
				logical[perm[lvl]] = c
			}
			if !yield(logical, val) {
				return
			}
		}
	}, nil
}

// nonzeros returns the nonzero entries of a tensor sorted by their logical
// coordinates.
func (t Tensor) nonzeros() ([]entry, error) {
	it, err := t.Entries()
	if err != nil {
		return nil, err
	}
	var entries []entry
	for coords, val := range it {
		v := val.Float()
		if v == 0 {
			continue
		}
		entries = append(entries, entry{coords: slices.Clone(coords), value: v})
	}
	if perm := t.Format().Permutation(); !slices.IsSorted(perm) {
		slices.SortStableFunc(entries, compareEntries)
	}
	return entries, nil
}

func closeTo(a, b float64) bool {
	if a == b {
		return true
	}
	if a == 0 {
		return false
	}
	return math.Abs((a-b)/a) <= RelativeTolerance
}

// Equals returns true if two tensors have the same component type, the same
// dimensions, and the same nonzero entries. Values are compared with a
// relative tolerance. Entries that have not been packed are ignored.
func Equals(a, b Tensor) bool {
	if a == b {
		return true
	}
	if a.Type() != b.Type() || !slices.Equal(a.Dims(), b.Dims()) {
		return false
	}
	aEntries, err := a.nonzeros()
	if err != nil {
		return false
	}
	bEntries, err := b.nonzeros()
	if err != nil {
		return false
	}
	if len(aEntries) != len(bEntries) {
		return false
	}
	for i, aEntry := range aEntries {
		bEntry := bEntries[i]
		if !slices.Equal(aEntry.coords, bEntry.coords) {
			return false
		}
		if !closeTo(aEntry.value, bEntry.value) {
			return false
		}
	}
	return true
}
