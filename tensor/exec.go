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
	"fmt"
	"io"

	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/golang/backend"
	"github.com/gx-org/sptensor/ir"
	"github.com/gx-org/sptensor/ir/irstring"
	"github.com/gx-org/sptensor/storage"
)

// SetExpr assigns an index notation expression to the tensor.
// Variable-length index arrays are allocated with the alloc size of the
// tensor.
func (t Tensor) SetExpr(expr Expr) error {
	if err := t.checkState("set an expression", Declared); err != nil {
		return err
	}
	if expr == nil {
		return fmterr.Usagef("tensor %s: cannot assign an undefined expression", t.Name())
	}
	for i, level := range t.Format().Levels() {
		switch level.Type {
		case format.Sparse:
			// New arrays are zeroed: ptr[0] is 0.
			t.c.storage.SetLevelIndex(i, storage.LevelIndex{
				Ptr: storage.NewArray(storage.IndexType, t.c.allocSize),
				Idx: storage.NewArray(storage.IndexType, t.c.allocSize),
			})
		case format.Fixed:
			t.c.storage.SetLevelIndex(i, storage.LevelIndex{
				Ptr: storage.NewArray(storage.IndexType, 1),
				Idx: storage.NewArray(storage.IndexType, t.c.allocSize),
			})
		}
	}
	t.c.expr = expr
	t.c.state = ExpressionAssigned
	return nil
}

// Compile the assemble and compute routines of the expression assigned to
// the tensor.
func (t Tensor) Compile() error {
	if err := t.checkState("compile", ExpressionAssigned); err != nil {
		return err
	}
	if t.c.lowerer == nil {
		return fmterr.Usagef("tensor %s: no lowerer to compile the expression %s", t.Name(), t.c.expr)
	}
	t.nameRoutines()
	assemble, err := t.c.lowerer.Lower(t, t.c.routines[Assemble], Assemble)
	if err != nil {
		return err
	}
	compute, err := t.c.lowerer.Lower(t, t.c.routines[Compute], Compute)
	if err != nil {
		return err
	}
	return t.register(assemble, compute)
}

// CompileFunctions compiles the given routines in the module of the tensor
// in place of the routines lowered from its expression. The routines are
// renamed with the routine names of the tensor.
func (t Tensor) CompileFunctions(assemble, compute *ir.Function) error {
	if err := t.checkState("compile", ExpressionAssigned); err != nil {
		return err
	}
	if assemble == nil || compute == nil {
		return fmterr.Usagef("tensor %s: cannot compile an undefined routine", t.Name())
	}
	t.nameRoutines()
	assemble, err := ir.NewFunction(t.c.routines[Assemble], assemble.Args, assemble.Body)
	if err != nil {
		return err
	}
	compute, err = ir.NewFunction(t.c.routines[Compute], compute.Args, compute.Body)
	if err != nil {
		return err
	}
	return t.register(assemble, compute)
}

// nameRoutines names the routines of the tensor after the tensor.
// A suffix is added if another tensor already uses the names in the module.
func (t Tensor) nameRoutines() {
	if t.c.routines[Assemble] != "" {
		return
	}
	prefix := t.Name()
	for i := 1; t.c.module.Has(prefix+"_"+Assemble.String()) || t.c.module.Has(prefix+"_"+Compute.String()); i++ {
		prefix = fmt.Sprintf("%s_%d", t.Name(), i)
	}
	t.c.routines = [2]string{
		Assemble: prefix + "_" + Assemble.String(),
		Compute:  prefix + "_" + Compute.String(),
	}
}

func (t Tensor) register(assemble, compute *ir.Function) error {
	if err := t.c.module.AddFunction(assemble); err != nil {
		return err
	}
	if err := t.c.module.AddFunction(compute); err != nil {
		return err
	}
	if err := t.c.module.Compile(); err != nil {
		return err
	}
	t.c.assembleFunc = assemble
	t.c.computeFunc = compute
	t.c.state = Compiled
	t.c.logger.Debug("compile", "tensor", t.Name(), "expr", t.c.expr.String(), "assemble", assemble.Name, "compute", compute.Name, "state", t.c.state.String())
	return nil
}

// RoutineName returns the name of a routine of the tensor in its module.
// The name is empty until the tensor has been compiled.
func (t Tensor) RoutineName(prop Property) string {
	return t.c.routines[prop]
}

func appendArguments(args backend.Arguments, s storage.Storage) backend.Arguments {
	for i, level := range s.Format().Levels() {
		li := s.LevelIndex(i)
		switch level.Type {
		case format.Dense:
			args = append(args, li.Ptr)
		case format.Sparse, format.Fixed:
			args = append(args, li.Ptr, li.Idx)
		}
	}
	return append(args, s.Values())
}

// Arguments returns the arguments passed to the routines of the tensor.
//
// For the tensor, then for each of its operands, the arguments are: ptr for
// a dense level, ptr and idx for a sparse or fixed level, in the order of the
// levels of the format, followed by the values.
func (t Tensor) Arguments() backend.Arguments {
	args := appendArguments(nil, t.c.storage)
	for _, operand := range Operands(t.c.expr) {
		args = appendArguments(args, operand.Storage())
	}
	return args
}

// Assemble runs the assemble routine to compute the index structure of the
// tensor. The values of the tensor are then allocated.
func (t Tensor) Assemble() error {
	if err := t.checkState("assemble", Compiled); err != nil {
		return err
	}
	return t.assemble(t.Arguments())
}

func (t Tensor) assemble(args backend.Arguments) error {
	if err := t.c.module.Call(t.c.routines[Assemble], args); err != nil {
		return err
	}
	// The routine may have replaced the index arrays.
	j := 0
	for i, level := range t.Format().Levels() {
		switch level.Type {
		case format.Dense:
			j++
		case format.Sparse, format.Fixed:
			t.c.storage.SetLevelIndex(i, storage.LevelIndex{Ptr: args[j], Idx: args[j+1]})
			j += 2
		}
	}
	size, err := t.c.storage.Size()
	if err != nil {
		return err
	}
	values := storage.NewArray(t.c.typ, size.Values)
	t.c.storage.SetValues(values)
	args[j] = values
	t.c.args = args
	t.c.state = Assembled
	t.c.logger.Debug("assemble", "tensor", t.Name(), "values", size.Values, "state", t.c.state.String())
	return nil
}

// Zero sets all the values of the tensor to zero.
func (t Tensor) Zero() {
	if values := t.c.storage.Values(); values != nil {
		values.Zero()
	}
}

// Compute runs the compute routine to fill the values of the tensor.
// Values are set to zero first.
func (t Tensor) Compute() error {
	if err := t.checkState("compute", Assembled, Computed); err != nil {
		return err
	}
	return t.compute(t.Arguments())
}

func (t Tensor) compute(args backend.Arguments) error {
	t.Zero()
	if err := t.c.module.Call(t.c.routines[Compute], args); err != nil {
		return err
	}
	t.c.args = args
	t.c.state = Computed
	t.c.logger.Debug("compute", "tensor", t.Name(), "state", t.c.state.String())
	return nil
}

// Evaluate compiles, assembles, and computes the tensor.
func (t Tensor) Evaluate() error {
	if err := t.Compile(); err != nil {
		return err
	}
	args := t.Arguments()
	if err := t.assemble(args); err != nil {
		return err
	}
	return t.compute(args)
}

func (t Tensor) printBody(w io.Writer, fn *ir.Function, prop Property, color bool) error {
	if fn == nil {
		return fmterr.Internalf("tensor %s: no %s routine: the tensor has not been compiled", t.Name(), prop)
	}
	return irstring.Fprint(w, fn.Body, color)
}

// PrintComputeIR prints the body of the compute routine.
func (t Tensor) PrintComputeIR(w io.Writer, color bool) error {
	return t.printBody(w, t.c.computeFunc, Compute, color)
}

// PrintAssembleIR prints the body of the assemble routine.
func (t Tensor) PrintAssembleIR(w io.Writer, color bool) error {
	return t.printBody(w, t.c.assembleFunc, Assemble, color)
}

// Source returns the source code of the module of the tensor.
func (t Tensor) Source() string {
	return t.c.module.Source()
}
