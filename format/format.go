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

// Package format describes how the nonzeros of a tensor are stored.
//
// A format is an ordered list of levels, one per tensor dimension. The order
// of the levels is the storage order. Each level refers to the dimension of
// the tensor it stores, so that a format also describes a permutation from
// storage order to the declared order of the dimensions.
package format

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gx-org/sptensor/base/fmterr"
)

// LevelType is the encoding of a level.
type LevelType int

const (
	// Dense level: all the coordinates of the dimension are stored.
	// The level only records the size of the dimension.
	Dense LevelType = iota
	// Sparse level: only the coordinates of nonzeros are stored,
	// using a segment offset array and a coordinate array.
	Sparse
	// Fixed level: every segment stores the same number of coordinates.
	Fixed
)

// String representation of the level type.
func (t LevelType) String() string {
	switch t {
	case Dense:
		return "dense"
	case Sparse:
		return "sparse"
	case Fixed:
		return "fixed"
	}
	return "invalid"
}

// Level stores one dimension of a tensor.
type Level struct {
	// Dimension is the index of the stored dimension in the list of
	// dimensions of the tensor.
	Dimension int
	Type      LevelType
}

// String representation of the level.
func (l Level) String() string {
	return fmt.Sprintf("%s(%d)", l.Type, l.Dimension)
}

// Format is an ordered list of levels.
type Format struct {
	levels []Level
}

// New returns a format given its levels in storage order.
func New(levels ...Level) Format {
	return Format{levels: slices.Clone(levels)}
}

// Of returns a format storing dimensions in their declared order.
func Of(types ...LevelType) Format {
	levels := make([]Level, len(types))
	for i, tp := range types {
		levels[i] = Level{Dimension: i, Type: tp}
	}
	return Format{levels: levels}
}

// AllDense returns a format where all levels are dense.
func AllDense(order int) Format {
	return Of(slices.Repeat([]LevelType{Dense}, order)...)
}

// AllSparse returns a format where all levels are sparse.
func AllSparse(order int) Format {
	return Of(slices.Repeat([]LevelType{Sparse}, order)...)
}

// CSR is the compressed sparse row format of a matrix.
func CSR() Format {
	return New(Level{Dimension: 0, Type: Dense}, Level{Dimension: 1, Type: Sparse})
}

// CSC is the compressed sparse column format of a matrix.
func CSC() Format {
	return New(Level{Dimension: 1, Type: Dense}, Level{Dimension: 0, Type: Sparse})
}

// Levels returns the levels of the format in storage order.
// The returned slice must not be modified.
func (f Format) Levels() []Level {
	return f.levels
}

// Level returns the i-th level in storage order.
func (f Format) Level(i int) Level {
	return f.levels[i]
}

// Order returns the number of levels.
func (f Format) Order() int {
	return len(f.levels)
}

// Permutation returns, for each level, the dimension it stores.
func (f Format) Permutation() []int {
	perm := make([]int, len(f.levels))
	for i, level := range f.levels {
		perm[i] = level.Dimension
	}
	return perm
}

// Validate checks that the format can store a tensor of a given order.
func (f Format) Validate(order int) error {
	if len(f.levels) != order {
		return fmterr.Usagef("the number of format levels (%d) must match the tensor order (%d)", len(f.levels), order)
	}
	seen := make([]bool, order)
	for i, level := range f.levels {
		if level.Dimension < 0 || level.Dimension >= order {
			return fmterr.Usagef("level %d stores dimension %d out of range [0,%d)", i, level.Dimension, order)
		}
		if seen[level.Dimension] {
			return fmterr.Usagef("dimension %d stored by more than one level", level.Dimension)
		}
		seen[level.Dimension] = true
		switch level.Type {
		case Dense, Sparse, Fixed:
		default:
			return fmterr.Usagef("level %d has an invalid type %d", i, level.Type)
		}
	}
	return nil
}

// Equal returns true if two formats have the same levels.
func (f Format) Equal(other Format) bool {
	return slices.Equal(f.levels, other.levels)
}

// String representation of the format.
func (f Format) String() string {
	levels := make([]string, len(f.levels))
	for i, level := range f.levels {
		levels[i] = level.String()
	}
	return "(" + strings.Join(levels, ",") + ")"
}
