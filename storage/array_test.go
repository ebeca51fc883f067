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

package storage_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/storage"
)

func TestArrayRef(t *testing.T) {
	for _, typ := range []ctype.Type{ctype.Int, ctype.Int64, ctype.Float, ctype.Double} {
		a := storage.NewArray(typ, 3)
		if got, want := a.Len(), 3; got != want {
			t.Errorf("%s: got length %d but want %d", typ, got, want)
		}
		if got, want := len(a.Bytes()), 3*typ.Bytes(); got != want {
			t.Errorf("%s: got %d bytes but want %d", typ, got, want)
		}
		a.Get(1).SetFloat(4)
		a.Get(1).Add(2)
		a.Get(2).SetInt(-3)
		if got, want := a.Get(1).Float(), 6.0; got != want {
			t.Errorf("%s: got %f but want %f", typ, got, want)
		}
		if got, want := a.Get(2).Int(), int64(-3); got != want {
			t.Errorf("%s: got %d but want %d", typ, got, want)
		}
		if a.Get(0).Bool() {
			t.Errorf("%s: zero value is true", typ)
		}
		a.Zero()
		if got := a.Get(1).Float(); got != 0 {
			t.Errorf("%s: got %f after zeroing the array", typ, got)
		}
	}
}

func TestFromSliceAliases(t *testing.T) {
	vals := []float64{1, 2, 3}
	a := storage.FromSlice(vals, storage.CallerOwns)
	if got, want := a.Type(), ctype.Double; got != want {
		t.Errorf("got type %s but want %s", got, want)
	}
	a.Get(0).SetFloat(10)
	if vals[0] != 10 {
		t.Errorf("writing into the array did not write into the slice: got %v", vals)
	}
	view, err := storage.View[float64](a)
	if err != nil {
		t.Fatal(err)
	}
	if &view[0] != &vals[0] {
		t.Errorf("view does not alias the slice")
	}
	if _, err := storage.View[int32](a); !fmterr.IsInternal(err) {
		t.Errorf("got error %v but want an internal error", err)
	}
}

func TestRelease(t *testing.T) {
	vals := []int32{1, 2}
	owned := storage.FromSlice(vals, storage.CallerOwns)
	owned.Retain()
	owned.Retain()
	if owned.Release() {
		t.Errorf("array released while still owned")
	}
	if !owned.Release() {
		t.Errorf("array not released after its last owner released it")
	}
	if !owned.Released() {
		t.Errorf("array not marked as released")
	}
	if diff := cmp.Diff([]int32{1, 2}, vals); diff != "" {
		t.Errorf("caller memory modified by release:\n%s", diff)
	}
	if got := owned.Len(); got != 0 {
		t.Errorf("released array has %d values", got)
	}
	if storage.NewScalar(ctype.Int).Release() {
		t.Errorf("array without owner has been released")
	}
}

func TestRealloc(t *testing.T) {
	a := storage.FromSlice([]int32{4, 5}, storage.CallerOwns)
	r := storage.Realloc(a, 4)
	got, err := storage.View[int32](r)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int32{4, 5, 0, 0}, got); diff != "" {
		t.Errorf("unexpected values:\n%s", diff)
	}
	if r.Policy() != storage.ReclaimAsArrayBuffer {
		t.Errorf("got policy %s but want %s", r.Policy(), storage.ReclaimAsArrayBuffer)
	}
}
