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

package tensor_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/golang/backend"
	"github.com/gx-org/sptensor/tensor"
)

var xEntries = []entry{
	{coords: []int{1}, value: 1.5},
	{coords: []int{4}, value: -2},
	{coords: []int{7}, value: 3},
}

// scaled returns y = x*2 with x packed and y in the state ExpressionAssigned.
func scaled(t *testing.T, opts ...tensor.Option) (x, y tensor.Tensor) {
	t.Helper()
	x = newVector(t, "x")
	insert(t, x, xEntries...)
	opts = append([]tensor.Option{tensor.WithLowerer(scaleLowerer{factor: 2})}, opts...)
	y = newVector(t, "y", opts...)
	i := tensor.NewIndexVar("i")
	if err := y.SetIndexVars(i); err != nil {
		t.Fatal(err)
	}
	setExpr(t, y, access(t, x, i))
	return x, y
}

func wantScaled(t *testing.T) tensor.Tensor {
	want := newVector(t, "want")
	insert(t, want,
		entry{coords: []int{1}, value: 3},
		entry{coords: []int{4}, value: -4},
		entry{coords: []int{7}, value: 6},
	)
	return want
}

func TestEvaluate(t *testing.T) {
	_, y := scaled(t)
	if err := y.Evaluate(); err != nil {
		t.Fatalf("%+v", err)
	}
	if got, want := y.State(), tensor.Computed; got != want {
		t.Errorf("got state %s but want %s", got, want)
	}
	want := wantScaled(t)
	if !tensor.Equals(y, want) {
		t.Errorf("got:\n%s\nbut want:\n%s", y, want)
	}
	// Values are zeroed before computing again.
	if err := y.Compute(); err != nil {
		t.Fatalf("%+v", err)
	}
	if !tensor.Equals(y, want) {
		t.Errorf("second compute: got:\n%s\nbut want:\n%s", y, want)
	}
}

func TestCompileAssembleCompute(t *testing.T) {
	_, y := scaled(t)
	steps := []struct {
		name  string
		run   func() error
		state tensor.State
	}{
		{"compile", y.Compile, tensor.Compiled},
		{"assemble", y.Assemble, tensor.Assembled},
		{"compute", y.Compute, tensor.Computed},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			t.Fatalf("%s: %+v", step.name, err)
		}
		if got, want := y.State(), step.state; got != want {
			t.Errorf("%s: got state %s but want %s", step.name, got, want)
		}
	}
	s := y.Storage()
	ptr := view[int32](t, s.LevelIndex(0).Ptr)
	if diff := cmp.Diff([]int32{0, 3}, ptr); diff != "" {
		t.Errorf("unexpected ptr array:\n%s", diff)
	}
	idx := view[int32](t, s.LevelIndex(0).Idx)
	if diff := cmp.Diff([]int32{1, 4, 7}, idx); diff != "" {
		t.Errorf("unexpected idx array:\n%s", diff)
	}
	if diff := cmp.Diff([]float64{3, -4, 6}, view[float64](t, s.Values())); diff != "" {
		t.Errorf("unexpected values:\n%s", diff)
	}
}

func TestSetExprAllocates(t *testing.T) {
	_, y := scaled(t, tensor.WithAllocSize(16))
	li := y.Storage().LevelIndex(0)
	if got, want := li.Ptr.Len(), 16; got != want {
		t.Errorf("got a ptr array of %d elements but want %d", got, want)
	}
	if got, want := li.Idx.Len(), 16; got != want {
		t.Errorf("got an idx array of %d elements but want %d", got, want)
	}
	if got, want := y.State(), tensor.ExpressionAssigned; got != want {
		t.Errorf("got state %s but want %s", got, want)
	}
}

func TestArguments(t *testing.T) {
	a := newTensor(t, "A", []int{3, 3}, format.AllSparse(2))
	insert(t, a, matrix3x3...)
	y := newTensor(t, "y", []int{3, 3}, format.CSR())
	i, j := tensor.NewIndexVar("i"), tensor.NewIndexVar("j")
	setExpr(t, y, &tensor.Mul{X: access(t, a, i, j), Y: access(t, a, i, j)})
	args := y.Arguments()
	ys, as := y.Storage(), a.Storage()
	want := backend.Arguments{
		ys.LevelIndex(0).Ptr,
		ys.LevelIndex(1).Ptr, ys.LevelIndex(1).Idx,
		ys.Values(),
		as.LevelIndex(0).Ptr, as.LevelIndex(0).Idx,
		as.LevelIndex(1).Ptr, as.LevelIndex(1).Idx,
		as.Values(),
	}
	if len(args) != len(want) {
		t.Fatalf("got %d arguments but want %d", len(args), len(want))
	}
	for k := range want {
		if args[k] != want[k] {
			t.Errorf("argument %d: got %v but want %v", k, args[k], want[k])
		}
	}
}

func TestStateErrors(t *testing.T) {
	_, y := scaled(t)
	if err := y.Assemble(); !fmterr.IsInternal(err) {
		t.Errorf("assemble before compile: got error %v but want an internal error", err)
	}
	if err := y.Compute(); !fmterr.IsInternal(err) {
		t.Errorf("compute before assemble: got error %v but want an internal error", err)
	}
	if err := y.SetExpr(y.Expr()); !fmterr.IsInternal(err) {
		t.Errorf("second expression: got error %v but want an internal error", err)
	}
	if err := y.Compile(); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := y.Compile(); !fmterr.IsInternal(err) {
		t.Errorf("second compile: got error %v but want an internal error", err)
	}
	if err := y.Compute(); !fmterr.IsInternal(err) {
		t.Errorf("compute before assemble: got error %v but want an internal error", err)
	}
	z := newVector(t, "z")
	if err := z.Compile(); !fmterr.IsInternal(err) {
		t.Errorf("compile without expression: got error %v but want an internal error", err)
	}
	if err := z.SetExpr(nil); !fmterr.IsUsage(err) {
		t.Errorf("nil expression: got error %v but want a usage error", err)
	}
}

func TestPrintIR(t *testing.T) {
	_, y := scaled(t)
	var b strings.Builder
	if err := y.PrintComputeIR(&b, false); !fmterr.IsInternal(err) {
		t.Errorf("got error %v but want an internal error", err)
	}
	if err := y.Compile(); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := y.PrintComputeIR(&b, false); err != nil {
		t.Fatal(err)
	}
	want := strings.Join([]string{
		"for (int k = 0; k < x1_ptr[1]; k += 1) {",
		"  y_vals[k] = (y_vals[k] + (x_vals[k] * 2));",
		"}",
		"",
	}, "\n")
	if diff := cmp.Diff(want, b.String()); diff != "" {
		t.Errorf("unexpected compute IR:\n%s", diff)
	}
	b.Reset()
	if err := y.PrintAssembleIR(&b, false); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "y1_idx = malloc(x1_ptr[1] * sizeof(int));") {
		t.Errorf("assemble IR %q does not allocate the idx array", b.String())
	}
	src := y.Source()
	for _, want := range []string{"int y_assemble(", "int y_compute("} {
		if !strings.Contains(src, want) {
			t.Errorf("source %q does not contain %q", src, want)
		}
	}
}

func TestSharedModule(t *testing.T) {
	module := backend.New()
	_, y := scaled(t, tensor.WithModule(module))
	if y.Module() != backend.Module(module) {
		t.Errorf("tensor does not use the module given as an option")
	}
	if err := y.Evaluate(); err != nil {
		t.Fatalf("%+v", err)
	}
	if !tensor.Equals(y, wantScaled(t)) {
		t.Errorf("unexpected result:\n%s", y)
	}
}

func run(t *testing.T, tns tensor.Tensor) {
	t.Helper()
	if err := tns.Assemble(); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := tns.Compute(); err != nil {
		t.Fatalf("%+v", err)
	}
}

func wantTripled(t *testing.T) tensor.Tensor {
	want := newVector(t, "want")
	insert(t, want,
		entry{coords: []int{1}, value: 4.5},
		entry{coords: []int{4}, value: -6},
		entry{coords: []int{7}, value: 9},
	)
	return want
}

func TestModuleRoutines(t *testing.T) {
	module := backend.New()
	_, y := scaled(t, tensor.WithModule(module))
	// Both tensors are named y.
	_, z := scaled(t, tensor.WithModule(module), tensor.WithLowerer(scaleLowerer{factor: 3}))
	if err := y.Compile(); err != nil {
		t.Fatalf("%+v", err)
	}
	if err := z.Compile(); err != nil {
		t.Fatalf("%+v", err)
	}
	tests := []struct {
		tns  tensor.Tensor
		prop tensor.Property
		want string
	}{
		{tns: y, prop: tensor.Assemble, want: "y_assemble"},
		{tns: y, prop: tensor.Compute, want: "y_compute"},
		{tns: z, prop: tensor.Assemble, want: "y_1_assemble"},
		{tns: z, prop: tensor.Compute, want: "y_1_compute"},
	}
	for _, test := range tests {
		if got := test.tns.RoutineName(test.prop); got != test.want {
			t.Errorf("got %s routine %q but want %q", test.prop, got, test.want)
		}
	}
	run(t, y)
	run(t, z)
	if !tensor.Equals(y, wantScaled(t)) {
		t.Errorf("routines of y replaced by the routines of z:\n%s", y)
	}
	if !tensor.Equals(z, wantTripled(t)) {
		t.Errorf("unexpected result:\n%s", z)
	}
}

func TestCompileFunctions(t *testing.T) {
	_, y := scaled(t)
	lowerer := scaleLowerer{factor: 3}
	assemble, err := lowerer.Lower(y, "triple_assemble", tensor.Assemble)
	if err != nil {
		t.Fatal(err)
	}
	compute, err := lowerer.Lower(y, "triple_compute", tensor.Compute)
	if err != nil {
		t.Fatal(err)
	}
	if err := y.CompileFunctions(assemble, nil); !fmterr.IsUsage(err) {
		t.Errorf("got error %v but want a usage error for an undefined routine", err)
	}
	if err := y.CompileFunctions(assemble, compute); err != nil {
		t.Fatalf("%+v", err)
	}
	if got, want := y.State(), tensor.Compiled; got != want {
		t.Errorf("got state %s but want %s", got, want)
	}
	if got, want := y.RoutineName(tensor.Compute), "y_compute"; got != want {
		t.Errorf("got routine %q but want %q", got, want)
	}
	if err := y.CompileFunctions(assemble, compute); !fmterr.IsInternal(err) {
		t.Errorf("got error %v but want an internal error for a compiled tensor", err)
	}
	run(t, y)
	if !tensor.Equals(y, wantTripled(t)) {
		t.Errorf("unexpected result:\n%s", y)
	}
}

func TestPackOperands(t *testing.T) {
	x := newVector(t, "x")
	for _, e := range xEntries {
		if err := x.Insert(e.coords, e.value); err != nil {
			t.Fatal(err)
		}
	}
	y := newVector(t, "y", tensor.WithLowerer(scaleLowerer{factor: 2}))
	i := tensor.NewIndexVar("")
	setExpr(t, y, access(t, x, i))
	if err := y.PackOperands(); err != nil {
		t.Fatalf("%+v", err)
	}
	if got := x.Pending(); got != 0 {
		t.Errorf("got %d pending entries after packing the operands", got)
	}
	if err := y.Evaluate(); err != nil {
		t.Fatalf("%+v", err)
	}
	if !tensor.Equals(y, wantScaled(t)) {
		t.Errorf("unexpected result:\n%s", y)
	}
}
