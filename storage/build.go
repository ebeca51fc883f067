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
	"fmt"

	"fortio.org/safecast"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/format"
)

// DuplicatePolicy specifies how entries sharing the same coordinates are
// stored.
type DuplicatePolicy int

const (
	// Sum stores the sum of the values of all duplicated entries.
	Sum DuplicatePolicy = iota
	// KeepLast stores the value of the entry inserted last.
	KeepLast
	// Reject fails when two entries share the same coordinates.
	Reject
)

var duplicatePolicies = map[string]DuplicatePolicy{
	"sum":       Sum,
	"keep-last": KeepLast,
	"reject":    Reject,
}

// ParseDuplicatePolicy returns a policy given its name.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	p, ok := duplicatePolicies[s]
	if !ok {
		return 0, fmterr.Usagef("unknown duplicate policy %q", s)
	}
	return p, nil
}

// String representation of the policy.
func (p DuplicatePolicy) String() string {
	for name, policy := range duplicatePolicies {
		if policy == p {
			return name
		}
	}
	return fmt.Sprintf("DuplicatePolicy(%d)", int(p))
}

type builder[T number] struct {
	dims   []int
	levels []format.Level
	coords [][]int32
	vals   []T
	dups   DuplicatePolicy

	ptr    [][]int32
	idx    [][]int32
	fanout []int
	out    []T
}

// Build returns a storage given entries sorted in lexicographic order.
//
// The dimensions are given in storage order. coords[l] holds the coordinate at
// level l of every entry and values holds the value of every entry. Entries
// with the same coordinates must be contiguous: they are merged according to
// the duplicate policy. The entries inserted last must come last.
func Build(dims []int, f format.Format, coords [][]int32, values *Array, dups DuplicatePolicy) (Storage, error) {
	switch values.Type() {
	case ctype.Int:
		return build[int32](dims, f, coords, values, dups)
	case ctype.Int64:
		return build[int64](dims, f, coords, values, dups)
	case ctype.Float:
		return build[float32](dims, f, coords, values, dups)
	case ctype.Double:
		return build[float64](dims, f, coords, values, dups)
	}
	return Storage{}, fmterr.Usagef("cannot build a storage of %s values", values.Type())
}

func build[T number](dims []int, f format.Format, coords [][]int32, values *Array, dups DuplicatePolicy) (Storage, error) {
	if len(dims) != f.Order() || len(coords) != f.Order() {
		return Storage{}, fmterr.Internalf("got %d dimensions and %d coordinate arrays for a format of order %d", len(dims), len(coords), f.Order())
	}
	vals, err := View[T](values)
	if err != nil {
		return Storage{}, err
	}
	b := &builder[T]{
		dims:   dims,
		levels: f.Levels(),
		coords: coords,
		vals:   vals,
		dups:   dups,
		ptr:    make([][]int32, f.Order()),
		idx:    make([][]int32, f.Order()),
		fanout: make([]int, f.Order()),
	}
	if err := b.checkBounds(); err != nil {
		return Storage{}, err
	}
	for lvl, level := range b.levels {
		switch level.Type {
		case format.Sparse:
			b.ptr[lvl] = []int32{0}
		case format.Fixed:
			b.fanout[lvl] = b.maxFanout(lvl)
		}
	}
	if err := b.level(0, 0, len(vals)); err != nil {
		return Storage{}, err
	}
	return b.storage(f)
}

func (b *builder[T]) checkBounds() error {
	for lvl, coords := range b.coords {
		if len(coords) != len(b.vals) {
			return fmterr.Internalf("level %d has %d coordinates for %d values", lvl, len(coords), len(b.vals))
		}
		size := b.dims[lvl]
		for i, c := range coords {
			if c < 0 || int(c) >= size {
				return fmterr.Usagef("entry %d: coordinate %d at level %d out of range [0,%d)", i, c, lvl, size)
			}
		}
	}
	return nil
}

// samePrefix returns true if the entries i and j share the same coordinates
// up to level lvl (excluded).
func (b *builder[T]) samePrefix(lvl, i, j int) bool {
	for l := range lvl {
		if b.coords[l][i] != b.coords[l][j] {
			return false
		}
	}
	return true
}

// maxFanout returns the maximum number of distinct coordinates at level lvl
// among all the segments of the level.
func (b *builder[T]) maxFanout(lvl int) int {
	fanout, distinct := 0, 0
	for i := range b.vals {
		switch {
		case i == 0 || !b.samePrefix(lvl, i-1, i):
			distinct = 1
		case b.coords[lvl][i-1] != b.coords[lvl][i]:
			distinct++
		}
		fanout = max(fanout, distinct)
	}
	return fanout
}

// nextChild returns the end of the run of entries starting at begin and
// sharing the coordinate of begin at level lvl.
func (b *builder[T]) nextChild(lvl, begin, end int) int {
	c := b.coords[lvl][begin]
	next := begin + 1
	for next < end && b.coords[lvl][next] == c {
		next++
	}
	return next
}

// level encodes the entries [begin,end), all sharing the same coordinates
// for the levels before lvl.
func (b *builder[T]) level(lvl, begin, end int) error {
	if lvl == len(b.levels) {
		return b.leaf(begin, end)
	}
	switch b.levels[lvl].Type {
	case format.Dense:
		return b.dense(lvl, begin, end)
	case format.Sparse:
		if err := b.compressed(lvl, begin, end); err != nil {
			return err
		}
		b.ptr[lvl] = append(b.ptr[lvl], int32(len(b.idx[lvl])))
		return nil
	case format.Fixed:
		return b.fixed(lvl, begin, end)
	}
	return fmterr.Internalf("level %d has an invalid type %s", lvl, b.levels[lvl].Type)
}

func (b *builder[T]) dense(lvl, begin, end int) error {
	pos := begin
	for c := range b.dims[lvl] {
		next := pos
		if pos < end && int(b.coords[lvl][pos]) == c {
			next = b.nextChild(lvl, pos, end)
		}
		if err := b.level(lvl+1, pos, next); err != nil {
			return err
		}
		pos = next
	}
	return nil
}

// compressed appends the distinct coordinates of the segment to the index
// of the level and encodes their children.
func (b *builder[T]) compressed(lvl, begin, end int) error {
	for pos := begin; pos < end; {
		next := b.nextChild(lvl, pos, end)
		b.idx[lvl] = append(b.idx[lvl], b.coords[lvl][pos])
		if err := b.level(lvl+1, pos, next); err != nil {
			return err
		}
		pos = next
	}
	return nil
}

func (b *builder[T]) fixed(lvl, begin, end int) error {
	before := len(b.idx[lvl])
	if err := b.compressed(lvl, begin, end); err != nil {
		return err
	}
	for range b.fanout[lvl] - (len(b.idx[lvl]) - before) {
		b.idx[lvl] = append(b.idx[lvl], Padding)
		if err := b.level(lvl+1, end, end); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder[T]) leaf(begin, end int) error {
	var val T
	switch {
	case begin == end:
	case end-begin == 1 || b.dups == KeepLast:
		val = b.vals[end-1]
	case b.dups == Sum:
		for _, v := range b.vals[begin:end] {
			val += v
		}
	default:
		coords := make([]int32, len(b.coords))
		for lvl := range coords {
			coords[lvl] = b.coords[lvl][begin]
		}
		return fmterr.Usagef("%d entries share the coordinates %v", end-begin, coords)
	}
	b.out = append(b.out, val)
	return nil
}

func (b *builder[T]) storage(f format.Format) (Storage, error) {
	s := New(f)
	for lvl, level := range b.levels {
		var li LevelIndex
		switch level.Type {
		case format.Dense:
			dim, err := safecast.Conv[int32](b.dims[lvl])
			if err != nil {
				return Storage{}, fmterr.AsUsage(err)
			}
			li.Ptr = FromSlice([]int32{dim}, ReclaimAsArrayBuffer)
		case format.Sparse:
			li.Ptr = FromSlice(b.ptr[lvl], ReclaimAsArrayBuffer)
			li.Idx = FromSlice(b.idx[lvl], ReclaimAsArrayBuffer)
		case format.Fixed:
			fanout, err := safecast.Conv[int32](b.fanout[lvl])
			if err != nil {
				return Storage{}, fmterr.AsInternal(err)
			}
			li.Ptr = FromSlice([]int32{fanout}, ReclaimAsArrayBuffer)
			li.Idx = FromSlice(b.idx[lvl], ReclaimAsArrayBuffer)
		}
		s.SetLevelIndex(lvl, li)
	}
	s.SetValues(FromSlice(b.out, ReclaimAsArrayBuffer))
	return s, nil
}
