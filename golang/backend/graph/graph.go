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

// Package graph compiles IR functions into trees of Go closures.
package graph

import (
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/golang/backend/kernels"
	"github.com/gx-org/sptensor/ir"
	"github.com/gx-org/sptensor/storage"
)

type (
	// execExpr evaluates an expression.
	execExpr func(*executor) (kernels.Scalar, error)

	// execStmt runs a statement.
	execStmt func(*executor) error

	// Graph is a function compiled into Go closures.
	Graph struct {
		fn     *ir.Function
		body   execStmt
		locals int
	}

	compiler struct {
		// arrays maps the name of array arguments to their position.
		arrays map[string]int
		// locals maps the name of scalar variables to their slot.
		locals map[string]int

		// Results of the last visit.
		expr execExpr
		stmt execStmt
	}
)

var _ ir.Visitor = (*compiler)(nil)

// Compile a function.
func Compile(fn *ir.Function) (*Graph, error) {
	c := &compiler{
		arrays: make(map[string]int),
		locals: make(map[string]int),
	}
	for i, arg := range fn.Args {
		c.arrays[arg.Name] = i
	}
	body, err := c.compileStmt(fn.Body)
	if err != nil {
		return nil, err
	}
	return &Graph{fn: fn, body: body, locals: len(c.locals)}, nil
}

// Function compiled by the graph.
func (g *Graph) Function() *ir.Function {
	return g.fn
}

func (c *compiler) compileExpr(expr ir.Expr) (execExpr, error) {
	c.expr = nil
	if err := expr.Accept(c); err != nil {
		return nil, err
	}
	return c.expr, nil
}

func (c *compiler) compileStmt(stmt ir.Stmt) (execStmt, error) {
	c.stmt = nil
	if err := stmt.Accept(c); err != nil {
		return nil, err
	}
	return c.stmt, nil
}

func (c *compiler) local(v *ir.Var) (int, error) {
	if v.IsPtr {
		return 0, fmterr.Internalf("array %s used as a scalar", v.Name)
	}
	if _, isArray := c.arrays[v.Name]; isArray {
		return 0, fmterr.Internalf("scalar %s shadows an array argument", v.Name)
	}
	slot, ok := c.locals[v.Name]
	if !ok {
		slot = len(c.locals)
		c.locals[v.Name] = slot
	}
	return slot, nil
}

func (c *compiler) array(expr ir.Expr) (int, *ir.Var, error) {
	v, ok := expr.(*ir.Var)
	if !ok || !v.IsPtr {
		return 0, nil, fmterr.Internalf("%T is not an array variable", expr)
	}
	pos, ok := c.arrays[v.Name]
	if !ok {
		return 0, nil, fmterr.Internalf("array %s is not an argument of the function", v.Name)
	}
	return pos, v, nil
}

// VisitLiteral compiles a constant.
func (c *compiler) VisitLiteral(lit *ir.Literal) error {
	var val kernels.Scalar
	if lit.Typ.IsFloat() {
		val = kernels.ToScalar(lit.Typ, lit.Float)
	} else {
		val = kernels.ToScalar(lit.Typ, lit.Int)
	}
	c.expr = func(*executor) (kernels.Scalar, error) {
		return val, nil
	}
	return nil
}

// VisitVar compiles a read of a scalar variable.
func (c *compiler) VisitVar(v *ir.Var) error {
	slot, err := c.local(v)
	if err != nil {
		return err
	}
	typ := v.Typ
	c.expr = func(exec *executor) (kernels.Scalar, error) {
		val := exec.locals[slot]
		if val.Type == ctype.Invalid {
			// Variables not assigned yet are zero.
			return kernels.ToScalar(typ, 0), nil
		}
		return val, nil
	}
	return nil
}

func (c *compiler) binary(op kernels.Op, node *ir.BinaryExpr) error {
	a, b := node.Operands()
	x, err := c.compileExpr(a)
	if err != nil {
		return err
	}
	y, err := c.compileExpr(b)
	if err != nil {
		return err
	}
	kernel, err := kernels.BinaryOp(op, a.Type(), b.Type(), node.Type())
	if err != nil {
		return err
	}
	c.expr = func(exec *executor) (kernels.Scalar, error) {
		xVal, err := x(exec)
		if err != nil {
			return kernels.Scalar{}, err
		}
		yVal, err := y(exec)
		if err != nil {
			return kernels.Scalar{}, err
		}
		return kernel(xVal, yVal)
	}
	return nil
}

// VisitAdd compiles an addition.
func (c *compiler) VisitAdd(n *ir.Add) error { return c.binary(kernels.Add, &n.BinaryExpr) }

// VisitSub compiles a subtraction.
func (c *compiler) VisitSub(n *ir.Sub) error { return c.binary(kernels.Sub, &n.BinaryExpr) }

// VisitMul compiles a multiplication.
func (c *compiler) VisitMul(n *ir.Mul) error { return c.binary(kernels.Mul, &n.BinaryExpr) }

// VisitDiv compiles a division.
func (c *compiler) VisitDiv(n *ir.Div) error { return c.binary(kernels.Div, &n.BinaryExpr) }

// VisitRem compiles a remainder.
func (c *compiler) VisitRem(n *ir.Rem) error { return c.binary(kernels.Rem, &n.BinaryExpr) }

// VisitMin compiles a minimum.
func (c *compiler) VisitMin(n *ir.Min) error { return c.binary(kernels.Min, &n.BinaryExpr) }

// VisitMax compiles a maximum.
func (c *compiler) VisitMax(n *ir.Max) error { return c.binary(kernels.Max, &n.BinaryExpr) }

// VisitEq compiles an equality test.
func (c *compiler) VisitEq(n *ir.Eq) error { return c.binary(kernels.Eq, &n.BinaryExpr) }

// VisitNeq compiles an inequality test.
func (c *compiler) VisitNeq(n *ir.Neq) error { return c.binary(kernels.Neq, &n.BinaryExpr) }

// VisitGt compiles a comparison.
func (c *compiler) VisitGt(n *ir.Gt) error { return c.binary(kernels.Gt, &n.BinaryExpr) }

// VisitLt compiles a comparison.
func (c *compiler) VisitLt(n *ir.Lt) error { return c.binary(kernels.Lt, &n.BinaryExpr) }

// VisitGte compiles a comparison.
func (c *compiler) VisitGte(n *ir.Gte) error { return c.binary(kernels.Gte, &n.BinaryExpr) }

// VisitLte compiles a comparison.
func (c *compiler) VisitLte(n *ir.Lte) error { return c.binary(kernels.Lte, &n.BinaryExpr) }

// VisitAnd compiles a logical and.
func (c *compiler) VisitAnd(n *ir.And) error { return c.binary(kernels.And, &n.BinaryExpr) }

// VisitOr compiles a logical or.
func (c *compiler) VisitOr(n *ir.Or) error { return c.binary(kernels.Or, &n.BinaryExpr) }

// VisitLoad compiles a read from an array argument.
func (c *compiler) VisitLoad(n *ir.Load) error {
	pos, v, err := c.array(n.Arr)
	if err != nil {
		return err
	}
	loc, err := c.compileExpr(n.Loc)
	if err != nil {
		return err
	}
	c.expr = func(exec *executor) (kernels.Scalar, error) {
		ref, err := exec.ref(pos, v, loc)
		if err != nil {
			return kernels.Scalar{}, err
		}
		if ref.Type().IsFloat() {
			return kernels.ToScalar(ref.Type(), ref.Float()), nil
		}
		return kernels.ToScalar(ref.Type(), ref.Int()), nil
	}
	return nil
}

func (exec *executor) ref(pos int, v *ir.Var, loc execExpr) (storage.Ref, error) {
	offset, err := loc(exec)
	if err != nil {
		return storage.Ref{}, err
	}
	arr := exec.args[pos]
	if arr == nil {
		return storage.Ref{}, fmterr.Internalf("array %s has not been allocated", v.Name)
	}
	i := kernels.Value[int64](offset)
	if i < 0 || i >= int64(arr.Len()) {
		return storage.Ref{}, fmterr.Internalf("index %d out of range for array %s of %d elements", i, v.Name, arr.Len())
	}
	return arr.Get(int(i)), nil
}
