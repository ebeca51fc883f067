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

package graph_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/golang/backend/graph"
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

func compile(t *testing.T, args []*ir.Var, body ir.Stmt) *graph.Graph {
	t.Helper()
	fn := must[*ir.Function](t)(ir.NewFunction("f", args, body))
	return must[*graph.Graph](t)(graph.Compile(fn))
}

func TestIfThenElse(t *testing.T) {
	vals := ir.NewPtrVar("vals", ctype.Int)
	i := ir.NewVar("i", ctype.Int)
	odd := must[*ir.Eq](t)(ir.NewEq(must[*ir.Rem](t)(ir.NewRem(i, ir.NewInt(2))), ir.NewInt(1)))
	cond := must[*ir.IfThenElse](t)(ir.NewIfThenElse(odd,
		must[*ir.Store](t)(ir.NewStore(vals, i, ir.NewInt(-1))),
		must[*ir.Store](t)(ir.NewStore(vals, i, i)),
	))
	loop := must[*ir.For](t)(ir.NewFor(i, ir.NewInt(0), ir.NewInt(5), ir.NewInt(1), cond))
	g := compile(t, []*ir.Var{vals}, loop)
	got := make([]int32, 5)
	if err := g.Run([]*storage.Array{storage.FromSlice(got, storage.CallerOwns)}); err != nil {
		t.Fatalf("%+v", err)
	}
	if diff := cmp.Diff([]int32{0, -1, 2, -1, 4}, got); diff != "" {
		t.Errorf("unexpected values:\n%s", diff)
	}
	if g.Function().Name != "f" {
		t.Errorf("got function %q but want %q", g.Function().Name, "f")
	}
}

func TestAssignAccumulates(t *testing.T) {
	out := ir.NewPtrVar("out", ctype.Double)
	sum := ir.NewVar("sum", ctype.Double)
	i := ir.NewVar("i", ctype.Int)
	// sum is read before it is assigned.
	add := must[*ir.Assign](t)(ir.NewAssign(sum, must[*ir.Add](t)(ir.NewAdd(sum, i, ctype.Double))))
	loop := must[*ir.For](t)(ir.NewFor(i, ir.NewInt(0), ir.NewInt(4), ir.NewInt(1), add))
	store := must[*ir.Store](t)(ir.NewStore(out, ir.NewInt(0), sum))
	g := compile(t, []*ir.Var{out}, ir.NewBlock(loop, store))
	got := []float64{-1}
	if err := g.Run([]*storage.Array{storage.FromSlice(got, storage.CallerOwns)}); err != nil {
		t.Fatalf("%+v", err)
	}
	if got[0] != 6 {
		t.Errorf("got %v but want 6", got[0])
	}
}

func TestRealloc(t *testing.T) {
	idx := ir.NewPtrVar("idx", ctype.Int)
	grow := must[*ir.Allocate](t)(ir.NewAllocate(idx, ir.NewInt(4), true))
	store := must[*ir.Store](t)(ir.NewStore(idx, ir.NewInt(3), ir.NewInt(7)))
	g := compile(t, []*ir.Var{idx}, ir.NewBlock(grow, store))
	args := []*storage.Array{storage.FromSlice([]int32{1, 2}, storage.CallerOwns)}
	if err := g.Run(args); err != nil {
		t.Fatalf("%+v", err)
	}
	got, err := storage.View[int32](args[0])
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int32{1, 2, 0, 7}, got); diff != "" {
		t.Errorf("unexpected values:\n%s", diff)
	}
	if got, want := args[0].Policy(), storage.ReclaimAsArrayBuffer; got != want {
		t.Errorf("got policy %s but want %s", got, want)
	}
}

func TestRunErrors(t *testing.T) {
	vals := ir.NewPtrVar("vals", ctype.Double)
	load := must[*ir.Load](t)(ir.NewLoad(vals, ir.NewInt(2)))
	g := compile(t, []*ir.Var{vals}, must[*ir.Store](t)(ir.NewStore(vals, ir.NewInt(0), load)))
	tests := []struct {
		name string
		args []*storage.Array
	}{
		{"out of range", []*storage.Array{storage.NewArray(ctype.Double, 2)}},
		{"not allocated", []*storage.Array{nil}},
		{"wrong type", []*storage.Array{storage.NewArray(ctype.Int, 3)}},
		{"wrong count", nil},
	}
	for _, test := range tests {
		if err := g.Run(test.args); !fmterr.IsInternal(err) {
			t.Errorf("%s: got error %v but want an internal error", test.name, err)
		}
	}
	div := must[*ir.Div](t)(ir.NewDiv(ir.NewInt(1), ir.NewInt(0)))
	idx := ir.NewPtrVar("idx", ctype.Int)
	g = compile(t, []*ir.Var{idx}, must[*ir.Store](t)(ir.NewStore(idx, ir.NewInt(0), div)))
	if err := g.Run([]*storage.Array{storage.NewArray(ctype.Int, 1)}); !fmterr.IsInternal(err) {
		t.Errorf("division by zero: got error %v but want an internal error", err)
	}
}

func TestCompileErrors(t *testing.T) {
	vals := ir.NewPtrVar("vals", ctype.Int)
	shadow := ir.NewVar("vals", ctype.Int)
	unknown := ir.NewPtrVar("other", ctype.Int)
	inner := must[*ir.Function](t)(ir.NewFunction("inner", nil, ir.NewBlock()))
	tests := []struct {
		name string
		body ir.Stmt
	}{
		{"shadowed array", must[*ir.Assign](t)(ir.NewAssign(shadow, ir.NewInt(1)))},
		{"unknown array", must[*ir.Store](t)(ir.NewStore(unknown, ir.NewInt(0), ir.NewInt(1)))},
		{"array as scalar", must[*ir.Store](t)(ir.NewStore(vals, vals, ir.NewInt(1)))},
		{"nested function", ir.NewBlock(inner)},
	}
	for _, test := range tests {
		fn := must[*ir.Function](t)(ir.NewFunction("f", []*ir.Var{vals}, test.body))
		if _, err := graph.Compile(fn); !fmterr.IsInternal(err) {
			t.Errorf("%s: got error %v but want an internal error", test.name, err)
		}
	}
}
