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

package backend_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/golang/backend"
	"github.com/gx-org/sptensor/ir"
	"github.com/gx-org/sptensor/storage"
)

func must[T any](t *testing.T) func(T, error) T {
	return func(v T, err error) T {
		t.Helper()
		if err != nil {
			t.Fatalf("%+v", err)
		}
		return v
	}
}

// scale doubles the positive values of an array:
//
//	for (int i = 0; i < n[0]; i += 1) if (vals[i] > 0) vals[i] = vals[i] * 2;
func scale(t *testing.T) *ir.Function {
	vals := ir.NewPtrVar("vals", ctype.Double)
	n := ir.NewPtrVar("n", ctype.Int)
	i := ir.NewVar("i", ctype.Int)
	two := must[*ir.Literal](t)(ir.NewLiteral(2, ctype.Double))
	zero := must[*ir.Literal](t)(ir.NewLiteral(0, ctype.Double))
	load := must[*ir.Load](t)(ir.NewLoad(vals, i))
	store := must[*ir.Store](t)(ir.NewStore(vals, i, must[*ir.Mul](t)(ir.NewMul(load, two))))
	cond := must[*ir.IfThenElse](t)(ir.NewIfThenElse(must[*ir.Gt](t)(ir.NewGt(load, zero)), store))
	loop := must[*ir.For](t)(ir.NewFor(i, ir.NewInt(0), must[*ir.Load](t)(ir.NewLoad(n)), ir.NewInt(1), cond))
	return must[*ir.Function](t)(ir.NewFunction("scale", []*ir.Var{n, vals}, loop))
}

// evens allocates n[0] coordinates and sets the i-th coordinate to 2*i.
func evens(t *testing.T) *ir.Function {
	n := ir.NewPtrVar("n", ctype.Int)
	idx := ir.NewPtrVar("idx", ctype.Int)
	i := ir.NewVar("i", ctype.Int)
	size := must[*ir.Load](t)(ir.NewLoad(n))
	alloc := must[*ir.Allocate](t)(ir.NewAllocate(idx, size, false))
	double := must[*ir.Mul](t)(ir.NewMul(i, ir.NewInt(2)))
	store := must[*ir.Store](t)(ir.NewStore(idx, i, double))
	loop := must[*ir.For](t)(ir.NewFor(i, ir.NewInt(0), size, ir.NewInt(1), store))
	return must[*ir.Function](t)(ir.NewFunction("evens", []*ir.Var{n, idx}, ir.NewBlock(alloc, loop)))
}

func compile(t *testing.T, fns ...*ir.Function) *backend.Native {
	t.Helper()
	m := backend.New()
	for _, fn := range fns {
		if err := m.AddFunction(fn); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.Compile(); err != nil {
		t.Fatalf("%+v", err)
	}
	return m
}

func TestCall(t *testing.T) {
	m := compile(t, scale(t))
	vals := []float64{1, -2, 3}
	args := backend.Arguments{
		storage.FromSlice([]int32{3}, storage.CallerOwns),
		storage.FromSlice(vals, storage.CallerOwns),
	}
	if err := m.Call("scale", args); err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff([]float64{2, -2, 6}, vals); diff != "" {
		t.Errorf("unexpected values:\n%s", diff)
	}
}

func TestAllocateReplacesArgument(t *testing.T) {
	m := compile(t, evens(t))
	prev := storage.NewArray(ctype.Int, 1)
	args := backend.Arguments{
		storage.FromSlice([]int32{4}, storage.CallerOwns),
		prev,
	}
	if err := m.Call("evens", args); err != nil {
		t.Fatalf("%+v", err)
	}
	if args[1] == prev {
		t.Fatalf("argument slot has not been replaced")
	}
	got, err := storage.View[int32](args[1])
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int32{0, 2, 4, 6}, got); diff != "" {
		t.Errorf("unexpected coordinates:\n%s", diff)
	}
}

func TestCallErrors(t *testing.T) {
	m := compile(t, scale(t))
	tests := []struct {
		name string
		args backend.Arguments
	}{
		{name: "scale", args: backend.Arguments{storage.NewArray(ctype.Int, 1)}},
		{name: "unknown", args: nil},
		{name: "scale", args: backend.Arguments{
			storage.NewArray(ctype.Int, 1),
			storage.NewArray(ctype.Float, 1),
		}},
		{name: "scale", args: backend.Arguments{
			storage.FromSlice([]int32{5}, storage.CallerOwns),
			storage.NewArray(ctype.Double, 2),
		}},
	}
	for i, test := range tests {
		if err := m.Call(test.name, test.args); !fmterr.IsInternal(err) {
			t.Errorf("test %d: got error %v but want an internal error", i, err)
		}
	}
}

func TestCallBeforeCompile(t *testing.T) {
	m := compile(t, scale(t))
	if err := m.AddFunction(evens(t)); err != nil {
		t.Fatal(err)
	}
	if err := m.Call("scale", nil); !fmterr.IsInternal(err) {
		t.Errorf("got error %v but want an internal error", err)
	}
}

func TestSource(t *testing.T) {
	m := compile(t, scale(t), evens(t))
	src := m.Source()
	for _, want := range []string{
		"int scale(int* restrict n, double* restrict vals) {",
		"int evens(int* restrict n, int* restrict idx) {",
		"idx = malloc(n[0] * sizeof(int));",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("source does not contain %q:\n%s", want, src)
		}
	}
}

func TestHas(t *testing.T) {
	m := compile(t, scale(t))
	tests := []struct {
		name string
		want bool
	}{
		{name: "scale", want: true},
		{name: "evens", want: false},
	}
	for _, test := range tests {
		if got := m.Has(test.name); got != test.want {
			t.Errorf("%s: got %v but want %v", test.name, got, test.want)
		}
	}
}
