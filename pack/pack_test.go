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

package pack_test

import (
	"math/rand/v2"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/pack"
	"github.com/gx-org/sptensor/storage"
)

type entry struct {
	coords []int
	value  float64
}

func newBuffer(t *testing.T, order int, entries ...entry) *pack.Buffer {
	t.Helper()
	buf := pack.NewBuffer(order, ctype.Double)
	for _, e := range entries {
		if err := buf.Insert(e.coords, e.value); err != nil {
			t.Fatal(err)
		}
	}
	return buf
}

func view[T int32 | float64](t *testing.T, a *storage.Array) []T {
	t.Helper()
	vals, err := storage.View[T](a)
	if err != nil {
		t.Fatal(err)
	}
	return vals
}

func TestPackCSR(t *testing.T) {
	buf := newBuffer(t, 2,
		entry{coords: []int{2, 1}, value: 5},
		entry{coords: []int{0, 0}, value: 1},
		entry{coords: []int{0, 2}, value: 2},
		entry{coords: []int{1, 1}, value: 3},
	)
	s, packed, err := pack.Pack(buf, []int{3, 3}, format.CSR(), pack.DefaultOptions())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !packed {
		t.Fatal("buffer has not been packed")
	}
	if got := buf.Len(); got != 0 {
		t.Errorf("buffer has %d bytes after packing", got)
	}
	if diff := cmp.Diff([]int32{3}, view[int32](t, s.LevelIndex(0).Ptr)); diff != "" {
		t.Errorf("unexpected level 0 ptr:\n%s", diff)
	}
	if diff := cmp.Diff([]int32{0, 2, 3, 4}, view[int32](t, s.LevelIndex(1).Ptr)); diff != "" {
		t.Errorf("unexpected level 1 ptr:\n%s", diff)
	}
	if diff := cmp.Diff([]int32{0, 2, 1, 1}, view[int32](t, s.LevelIndex(1).Idx)); diff != "" {
		t.Errorf("unexpected level 1 idx:\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 2, 3, 5}, view[float64](t, s.Values())); diff != "" {
		t.Errorf("unexpected values:\n%s", diff)
	}
}

func TestPackCSC(t *testing.T) {
	buf := newBuffer(t, 2,
		entry{coords: []int{2, 1}, value: 5},
		entry{coords: []int{0, 0}, value: 1},
		entry{coords: []int{0, 2}, value: 2},
		entry{coords: []int{1, 1}, value: 3},
	)
	s, _, err := pack.Pack(buf, []int{3, 4}, format.CSC(), pack.DefaultOptions())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	// Columns are stored first.
	if diff := cmp.Diff([]int32{4}, view[int32](t, s.LevelIndex(0).Ptr)); diff != "" {
		t.Errorf("unexpected level 0 ptr:\n%s", diff)
	}
	if diff := cmp.Diff([]int32{0, 1, 3, 4, 4}, view[int32](t, s.LevelIndex(1).Ptr)); diff != "" {
		t.Errorf("unexpected level 1 ptr:\n%s", diff)
	}
	if diff := cmp.Diff([]int32{0, 1, 2, 0}, view[int32](t, s.LevelIndex(1).Idx)); diff != "" {
		t.Errorf("unexpected level 1 idx:\n%s", diff)
	}
	if diff := cmp.Diff([]float64{1, 3, 5, 2}, view[float64](t, s.Values())); diff != "" {
		t.Errorf("unexpected values:\n%s", diff)
	}
}

func TestPackScalar(t *testing.T) {
	buf := newBuffer(t, 0, entry{value: 42})
	s, packed, err := pack.Pack(buf, nil, format.New(), pack.DefaultOptions())
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if !packed {
		t.Fatal("buffer has not been packed")
	}
	if diff := cmp.Diff([]float64{42}, view[float64](t, s.Values())); diff != "" {
		t.Errorf("unexpected values:\n%s", diff)
	}
	if got := buf.Len(); got != 0 {
		t.Errorf("buffer has %d bytes after packing", got)
	}
}

func TestPackScalarDuplicates(t *testing.T) {
	tests := []struct {
		policy storage.DuplicatePolicy
		want   []float64
	}{
		{policy: storage.Sum, want: []float64{7.5}},
		{policy: storage.KeepLast, want: []float64{-2}},
		{policy: storage.Reject},
	}
	for _, test := range tests {
		buf := newBuffer(t, 0, entry{value: 42}, entry{value: -32.5}, entry{value: -2})
		opts := pack.DefaultOptions()
		opts.Duplicates = test.policy
		s, packed, err := pack.Pack(buf, nil, format.New(), opts)
		if test.want == nil {
			if !fmterr.IsUsage(err) {
				t.Errorf("%s: got error %v but want a usage error", test.policy, err)
			}
			if packed {
				t.Errorf("%s: buffer has been packed", test.policy)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %+v", test.policy, err)
			continue
		}
		if diff := cmp.Diff(test.want, view[float64](t, s.Values())); diff != "" {
			t.Errorf("%s: unexpected values:\n%s", test.policy, diff)
		}
	}
}

func TestPackEmpty(t *testing.T) {
	buf := pack.NewBuffer(2, ctype.Double)
	_, packed, err := pack.Pack(buf, []int{3, 3}, format.CSR(), pack.DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if packed {
		t.Errorf("empty buffer has been packed")
	}
}

func TestPackDuplicates(t *testing.T) {
	entries := []entry{
		{coords: []int{1}, value: 1},
		{coords: []int{0}, value: 7},
		{coords: []int{1}, value: 2},
	}
	tests := []struct {
		policy storage.DuplicatePolicy
		want   []float64
	}{
		{policy: storage.Sum, want: []float64{7, 3}},
		{policy: storage.KeepLast, want: []float64{7, 2}},
	}
	for _, test := range tests {
		opts := pack.DefaultOptions()
		opts.Duplicates = test.policy
		s, _, err := pack.Pack(newBuffer(t, 1, entries...), []int{2}, format.AllSparse(1), opts)
		if err != nil {
			t.Errorf("%s: %+v", test.policy, err)
			continue
		}
		if diff := cmp.Diff(test.want, view[float64](t, s.Values())); diff != "" {
			t.Errorf("%s: unexpected values:\n%s", test.policy, diff)
		}
	}
	opts := pack.DefaultOptions()
	opts.Duplicates = storage.Reject
	if _, _, err := pack.Pack(newBuffer(t, 1, entries...), []int{2}, format.AllSparse(1), opts); !fmterr.IsUsage(err) {
		t.Errorf("got error %v but want a usage error", err)
	}
}

func TestParallelSortMatchesSerial(t *testing.T) {
	const n = 5000
	rnd := rand.New(rand.NewPCG(1, 2))
	var entries []entry
	for i := range n {
		entries = append(entries, entry{
			coords: []int{rnd.IntN(50), rnd.IntN(40), rnd.IntN(30)},
			value:  float64(i),
		})
	}
	dims := []int{50, 40, 30}
	f := format.New(
		format.Level{Dimension: 2, Type: format.Sparse},
		format.Level{Dimension: 0, Type: format.Sparse},
		format.Level{Dimension: 1, Type: format.Sparse},
	)
	serial := pack.Options{Duplicates: storage.KeepLast, SortWorkers: 1}
	parallel := pack.Options{Duplicates: storage.KeepLast, SortWorkers: 7, ParallelSortThreshold: 100}
	want, _, err := pack.Pack(newBuffer(t, 3, entries...), dims, f, serial)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := pack.Pack(newBuffer(t, 3, entries...), dims, f, parallel)
	if err != nil {
		t.Fatal(err)
	}
	for lvl := range 3 {
		if diff := cmp.Diff(view[int32](t, want.LevelIndex(lvl).Idx), view[int32](t, got.LevelIndex(lvl).Idx)); diff != "" {
			t.Errorf("level %d: parallel and serial coordinates differ:\n%s", lvl, diff)
		}
	}
	if diff := cmp.Diff(view[float64](t, want.Values()), view[float64](t, got.Values())); diff != "" {
		t.Errorf("parallel and serial values differ:\n%s", diff)
	}
}

func TestInsertErrors(t *testing.T) {
	buf := pack.NewBuffer(2, ctype.Double)
	if err := buf.Insert([]int{1}, 1); !fmterr.IsUsage(err) {
		t.Errorf("got error %v but want a usage error for a missing coordinate", err)
	}
	if err := buf.Insert([]int{1, -1}, 1); !fmterr.IsUsage(err) {
		t.Errorf("got error %v but want a usage error for a negative coordinate", err)
	}
	if got := buf.Len(); got != 0 {
		t.Errorf("failed insertions wrote %d bytes in the buffer", got)
	}
	if err := pack.NewBuffer(1, ctype.Bool).Insert([]int{0}, 1); !fmterr.IsUsage(err) {
		t.Errorf("got error %v but want a usage error for a boolean buffer", err)
	}
}

func TestRecords(t *testing.T) {
	buf := newBuffer(t, 2, entry{coords: []int{1, 2}, value: 3.5})
	n, err := buf.Records()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("got %d records but want 1", n)
	}
	coords, val := buf.Record(0)
	if diff := cmp.Diff([]int{1, 2}, coords); diff != "" {
		t.Errorf("unexpected coordinates:\n%s", diff)
	}
	if val != 3.5 {
		t.Errorf("got value %f but want 3.5", val)
	}
}
