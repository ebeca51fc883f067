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

// Package pack converts the entries inserted into a tensor into a storage
// conforming to the format of the tensor.
package pack

import (
	"runtime"

	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/storage"
)

// Options of the packing algorithm.
type Options struct {
	// Duplicates specifies how entries with the same coordinates are stored.
	Duplicates storage.DuplicatePolicy
	// SortWorkers is the maximum number of goroutines sorting the entries.
	SortWorkers int
	// ParallelSortThreshold is the number of entries above which entries
	// are sorted concurrently.
	ParallelSortThreshold int
}

// DefaultParallelSortThreshold is the default number of entries above which
// entries are sorted concurrently.
const DefaultParallelSortThreshold = 1 << 16

// DefaultOptions returns the default packing options.
func DefaultOptions() Options {
	return Options{
		Duplicates:            storage.Sum,
		SortWorkers:           runtime.GOMAXPROCS(0),
		ParallelSortThreshold: DefaultParallelSortThreshold,
	}
}

// Pack the entries of a buffer into a new storage.
//
// The dimensions are given in the declared order of the tensor.
// Pack returns false if the buffer is empty, in which case no storage is
// returned. Otherwise, the buffer is cleared.
func Pack(buf *Buffer, dims []int, f format.Format, opts Options) (storage.Storage, bool, error) {
	n, err := buf.Records()
	if err != nil {
		return storage.Storage{}, false, err
	}
	if n == 0 {
		return storage.Storage{}, false, nil
	}
	if len(dims) != buf.Order() {
		return storage.Storage{}, false, fmterr.Internalf("got %d dimensions for a buffer of order %d", len(dims), buf.Order())
	}
	if err := f.Validate(buf.Order()); err != nil {
		return storage.Storage{}, false, err
	}
	if buf.Order() == 0 {
		s, err := packScalar(buf, f, n, opts.Duplicates)
		if err != nil {
			return storage.Storage{}, false, err
		}
		buf.Clear()
		return s, true, nil
	}
	order := buf.Order()
	perm := f.Permutation()
	// Permute the coordinates of every record from declared order to
	// storage order.
	k := keys{order: order, vals: make([]int32, n*order)}
	for r := range n {
		coords, _ := buf.Record(r)
		row := k.row(r)
		for lvl, dim := range perm {
			row[lvl] = int32(coords[dim])
		}
	}
	sorted := make([]int, n)
	for i := range sorted {
		sorted[i] = i
	}
	if err := sortRecords(k, sorted, opts.SortWorkers, opts.ParallelSortThreshold); err != nil {
		return storage.Storage{}, false, err
	}
	// Split the sorted records into one coordinate array per level and
	// one value array.
	coords := make([][]int32, order)
	for lvl := range coords {
		coords[lvl] = make([]int32, n)
	}
	values := storage.NewArray(buf.Type(), n)
	raw := buf.Bytes()
	recSize, valSize := buf.RecordSize(), buf.Type().Bytes()
	dst := values.Bytes()
	for i, r := range sorted {
		for lvl, c := range k.row(r) {
			coords[lvl][i] = c
		}
		src := raw[r*recSize+order*coordBytes : (r+1)*recSize]
		copy(dst[i*valSize:(i+1)*valSize], src)
	}
	storageDims := make([]int, order)
	for lvl, dim := range perm {
		storageDims[lvl] = dims[dim]
	}
	s, err := storage.Build(storageDims, f, coords, values, opts.Duplicates)
	if err != nil {
		return storage.Storage{}, false, err
	}
	buf.Clear()
	return s, true, nil
}

// packScalar packs the n records of a buffer of order 0. All the records
// share the same (empty) coordinates.
func packScalar(buf *Buffer, f format.Format, n int, dups storage.DuplicatePolicy) (storage.Storage, error) {
	values := storage.NewScalar(buf.Type())
	switch {
	case n == 1 || dups == storage.KeepLast:
		copy(values.Bytes(), buf.Bytes()[(n-1)*buf.RecordSize():])
	case dups == storage.Sum:
		records := storage.NewArray(buf.Type(), n)
		copy(records.Bytes(), buf.Bytes())
		sum := values.Get(0)
		for i := range n {
			sum.Add(records.Get(i).Float())
		}
	default:
		return storage.Storage{}, fmterr.Usagef("%d entries inserted in a scalar", n)
	}
	s := storage.New(f)
	s.SetValues(values)
	return s, nil
}
