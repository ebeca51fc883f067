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

package graph

import (
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/golang/backend/kernels"
	"github.com/gx-org/sptensor/ir"
	"github.com/gx-org/sptensor/storage"
)

// VisitBlock compiles a sequence of statements.
func (c *compiler) VisitBlock(n *ir.Block) error {
	stmts := make([]execStmt, len(n.Stmts))
	for i, stmt := range n.Stmts {
		var err error
		if stmts[i], err = c.compileStmt(stmt); err != nil {
			return err
		}
	}
	c.stmt = func(exec *executor) error {
		for _, stmt := range stmts {
			if err := stmt(exec); err != nil {
				return err
			}
		}
		return nil
	}
	return nil
}

// VisitStore compiles a write into an array argument.
func (c *compiler) VisitStore(n *ir.Store) error {
	pos, v, err := c.array(n.Arr)
	if err != nil {
		return err
	}
	loc, err := c.compileExpr(n.Loc)
	if err != nil {
		return err
	}
	data, err := c.compileExpr(n.Data)
	if err != nil {
		return err
	}
	c.stmt = func(exec *executor) error {
		ref, err := exec.ref(pos, v, loc)
		if err != nil {
			return err
		}
		val, err := data(exec)
		if err != nil {
			return err
		}
		if val.Type.IsFloat() {
			ref.SetFloat(val.Float)
		} else {
			ref.SetInt(val.Int)
		}
		return nil
	}
	return nil
}

// VisitIfThenElse compiles a conditional statement.
func (c *compiler) VisitIfThenElse(n *ir.IfThenElse) error {
	cond, err := c.compileExpr(n.Cond)
	if err != nil {
		return err
	}
	then, err := c.compileStmt(n.Then)
	if err != nil {
		return err
	}
	otherwise, err := c.compileStmt(n.Otherwise)
	if err != nil {
		return err
	}
	c.stmt = func(exec *executor) error {
		val, err := cond(exec)
		if err != nil {
			return err
		}
		if val.Bool() {
			return then(exec)
		}
		return otherwise(exec)
	}
	return nil
}

// VisitFor compiles a loop.
func (c *compiler) VisitFor(n *ir.For) error {
	v, ok := n.Var.(*ir.Var)
	if !ok {
		return fmterr.Internalf("loop variable %T is not a variable", n.Var)
	}
	slot, err := c.local(v)
	if err != nil {
		return err
	}
	start, err := c.compileExpr(n.Start)
	if err != nil {
		return err
	}
	end, err := c.compileExpr(n.End)
	if err != nil {
		return err
	}
	inc, err := c.compileExpr(n.Increment)
	if err != nil {
		return err
	}
	body, err := c.compileStmt(n.Body)
	if err != nil {
		return err
	}
	lt, err := kernels.BinaryOp(kernels.Lt, v.Typ, n.End.Type(), v.Typ)
	if err != nil {
		return err
	}
	add, err := kernels.BinaryOp(kernels.Add, v.Typ, n.Increment.Type(), v.Typ)
	if err != nil {
		return err
	}
	c.stmt = func(exec *executor) error {
		first, err := start(exec)
		if err != nil {
			return err
		}
		exec.locals[slot] = first.Cast(v.Typ)
		for {
			last, err := end(exec)
			if err != nil {
				return err
			}
			cont, err := lt(exec.locals[slot], last)
			if err != nil {
				return err
			}
			if !cont.Bool() {
				return nil
			}
			if err := body(exec); err != nil {
				return err
			}
			step, err := inc(exec)
			if err != nil {
				return err
			}
			if exec.locals[slot], err = add(exec.locals[slot], step); err != nil {
				return err
			}
		}
	}
	return nil
}

// VisitAssign compiles an assignment to a scalar variable.
func (c *compiler) VisitAssign(n *ir.Assign) error {
	slot, err := c.local(n.Var)
	if err != nil {
		return err
	}
	val, err := c.compileExpr(n.Value)
	if err != nil {
		return err
	}
	typ := n.Var.Typ
	c.stmt = func(exec *executor) error {
		v, err := val(exec)
		if err != nil {
			return err
		}
		exec.locals[slot] = v.Cast(typ)
		return nil
	}
	return nil
}

// VisitAllocate compiles the allocation of an array argument.
func (c *compiler) VisitAllocate(n *ir.Allocate) error {
	pos, v, err := c.array(n.Var)
	if err != nil {
		return err
	}
	size, err := c.compileExpr(n.Size)
	if err != nil {
		return err
	}
	c.stmt = func(exec *executor) error {
		s, err := size(exec)
		if err != nil {
			return err
		}
		n64 := kernels.Value[int64](s)
		if n64 < 0 {
			return fmterr.Internalf("cannot allocate %d elements for array %s", n64, v.Name)
		}
		prev := exec.args[pos]
		if n.Realloc && prev != nil {
			exec.args[pos] = storage.Realloc(prev, int(n64))
		} else {
			exec.args[pos] = storage.NewArray(v.Typ, int(n64))
		}
		return nil
	}
	return nil
}

// VisitFunction returns an error: functions cannot be nested.
func (c *compiler) VisitFunction(n *ir.Function) error {
	return fmterr.Internalf("function %s defined inside another function", n.Name)
}
