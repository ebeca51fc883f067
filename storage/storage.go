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

// Package storage implements the level-based storage of tensors.
//
// A storage holds one pair of index arrays per level of its format plus one
// array of values. How the index arrays of a level are interpreted depends on
// the type of the level:
//   - dense: ptr holds the size of the dimension, idx is unused,
//   - sparse: ptr holds segment offsets into idx, idx holds coordinates,
//   - fixed: ptr holds the number of coordinates per segment, idx holds the
//     coordinates of every segment, padded with -1.
package storage

import (
	"fmt"
	"strings"

	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/format"
)

// IndexType is the component type of level index arrays.
const IndexType = ctype.Int

// Padding is the coordinate stored in fixed levels to fill segments having
// less coordinates than the fanout of the level.
const Padding = -1

// LevelIndex is the pair of index arrays of a level.
type LevelIndex struct {
	Ptr, Idx *Array
}

type content struct {
	format  format.Format
	levels  []LevelIndex
	values  *Array
	holders int
}

// Storage of a tensor. Copies of a storage share the same content.
// The arrays of the content are released when its last holder releases it.
type Storage struct {
	c *content
}

// New returns a storage for a format. No array is allocated.
// The caller is the only holder of the storage.
func New(f format.Format) Storage {
	return Storage{c: &content{
		format:  f,
		levels:  make([]LevelIndex, f.Order()),
		holders: 1,
	}}
}

// Valid returns true if the storage has been created with New.
func (s Storage) Valid() bool {
	return s.c != nil
}

// Format of the storage.
func (s Storage) Format() format.Format {
	return s.c.format
}

// SetFormat replaces the format of the storage.
// All the arrays of the storage are released.
func (s Storage) SetFormat(f format.Format) {
	s.clear()
	s.c.format = f
	s.c.levels = make([]LevelIndex, f.Order())
}

// Order returns the number of levels of the storage.
func (s Storage) Order() int {
	return len(s.c.levels)
}

// LevelIndex returns the index arrays of the i-th level.
func (s Storage) LevelIndex(i int) LevelIndex {
	return s.c.levels[i]
}

// SetLevelIndex sets the index arrays of the i-th level.
func (s Storage) SetLevelIndex(i int, li LevelIndex) {
	prev := s.c.levels[i]
	s.c.levels[i] = LevelIndex{
		Ptr: swap(prev.Ptr, li.Ptr),
		Idx: swap(prev.Idx, li.Idx),
	}
}

// Values returns the array of values.
func (s Storage) Values() *Array {
	return s.c.values
}

// SetValues sets the array of values.
func (s Storage) SetValues(vals *Array) {
	s.c.values = swap(s.c.values, vals)
}

// Retain registers a new holder of the storage.
func (s Storage) Retain() Storage {
	s.c.holders++
	return s
}

// Release unregisters a holder of the storage. It returns true if the holder
// was the last one, in which case all the arrays of the storage are released.
func (s Storage) Release() bool {
	if s.c.holders == 0 {
		return false
	}
	s.c.holders--
	if s.c.holders > 0 {
		return false
	}
	s.clear()
	return true
}

// Holders returns the number of holders of the storage.
func (s Storage) Holders() int {
	return s.c.holders
}

func (s Storage) clear() {
	for i := range s.c.levels {
		s.SetLevelIndex(i, LevelIndex{})
	}
	s.SetValues(nil)
}

func swap(prev, next *Array) *Array {
	if prev == next {
		return next
	}
	if next != nil {
		next.Retain()
	}
	if prev != nil {
		prev.Release()
	}
	return next
}

// LevelSize is the number of meaningful values in the index arrays of a level.
type LevelSize struct {
	Ptr, Idx int
}

// Size is the number of meaningful values in the arrays of a storage.
type Size struct {
	Levels []LevelSize
	Values int
}

func indexAt(a *Array, i int, name string, level int) (int, error) {
	if a == nil {
		return 0, fmterr.Internalf("level %d: %s array has not been allocated", level, name)
	}
	if i < 0 || i >= a.Len() {
		return 0, fmterr.Internalf("level %d: cannot read %s[%d] from an array of %d values", level, name, i, a.Len())
	}
	return int(a.Get(i).Int()), nil
}

// Size computes the extent of every array from the content of the level
// index arrays.
func (s Storage) Size() (Size, error) {
	size := Size{Levels: make([]LevelSize, len(s.c.levels))}
	count := 1
	for i, level := range s.c.format.Levels() {
		li := s.c.levels[i]
		switch level.Type {
		case format.Dense:
			dim, err := indexAt(li.Ptr, 0, "ptr", i)
			if err != nil {
				return Size{}, err
			}
			size.Levels[i] = LevelSize{Ptr: 1}
			count *= dim
		case format.Sparse:
			end, err := indexAt(li.Ptr, count, "ptr", i)
			if err != nil {
				return Size{}, err
			}
			size.Levels[i] = LevelSize{Ptr: count + 1, Idx: end}
			count = end
		case format.Fixed:
			fanout, err := indexAt(li.Ptr, 0, "ptr", i)
			if err != nil {
				return Size{}, err
			}
			count *= fanout
			size.Levels[i] = LevelSize{Ptr: 1, Idx: count}
		}
	}
	size.Values = count
	return size, nil
}

// String representation of the storage.
func (s Storage) String() string {
	var b strings.Builder
	for i, level := range s.c.format.Levels() {
		li := s.c.levels[i]
		fmt.Fprintf(&b, "L%d %s:\n", i, level)
		if li.Ptr != nil {
			fmt.Fprintf(&b, "  ptr: %s\n", li.Ptr)
		}
		if li.Idx != nil {
			fmt.Fprintf(&b, "  idx: %s\n", li.Idx)
		}
	}
	if s.c.values != nil {
		fmt.Fprintf(&b, "values: %s\n", s.c.values)
	}
	return b.String()
}
