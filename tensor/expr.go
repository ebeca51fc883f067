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
	"strings"

	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/base/uname"
)

type (
	// IndexVar is an index variable of an index notation expression.
	// Index variables are compared by identity.
	IndexVar struct {
		name string
	}

	// Expr is an index notation expression.
	Expr interface {
		fmt.Stringer
		indexExpr()
	}

	// Access reads a tensor at the coordinates given by index variables.
	Access struct {
		Tensor  Tensor
		Indices []*IndexVar
	}

	// Neg computes -X.
	Neg struct{ X Expr }

	// Add computes X+Y.
	Add struct{ X, Y Expr }

	// Sub computes X-Y.
	Sub struct{ X, Y Expr }

	// Mul computes X*Y.
	Mul struct{ X, Y Expr }

	// Div computes X/Y.
	Div struct{ X, Y Expr }
)

var (
	_ Expr = (*Access)(nil)
	_ Expr = (*Neg)(nil)
	_ Expr = (*Add)(nil)
	_ Expr = (*Sub)(nil)
	_ Expr = (*Mul)(nil)
	_ Expr = (*Div)(nil)
)

// NewIndexVar returns a new index variable.
// A unique name is generated if name is empty.
func NewIndexVar(name string) *IndexVar {
	if name == "" {
		name = uname.Name('i')
	}
	return &IndexVar{name: name}
}

// Name of the index variable.
func (v *IndexVar) Name() string {
	return v.name
}

// String returns the name of the index variable.
func (v *IndexVar) String() string {
	return v.name
}

// Access returns an expression reading the tensor.
// One index variable is required per dimension of the tensor.
func (t Tensor) Access(indices ...*IndexVar) (*Access, error) {
	if len(indices) != t.Order() {
		return nil, fmterr.Usagef("tensor %s of order %d accessed with %d index variables", t.Name(), t.Order(), len(indices))
	}
	for i, index := range indices {
		if index == nil {
			return nil, fmterr.Usagef("tensor %s accessed with an undefined index variable at position %d", t.Name(), i)
		}
	}
	return &Access{Tensor: t, Indices: indices}, nil
}

func (*Access) indexExpr() {}
func (*Neg) indexExpr()    {}
func (*Add) indexExpr()    {}
func (*Sub) indexExpr()    {}
func (*Mul) indexExpr()    {}
func (*Div) indexExpr()    {}

func (e *Access) String() string {
	indices := make([]string, len(e.Indices))
	for i, index := range e.Indices {
		indices[i] = index.String()
	}
	return e.Tensor.Name() + "(" + strings.Join(indices, ",") + ")"
}

func (e *Neg) String() string { return "-" + e.X.String() }
func (e *Add) String() string { return "(" + e.X.String() + " + " + e.Y.String() + ")" }
func (e *Sub) String() string { return "(" + e.X.String() + " - " + e.Y.String() + ")" }
func (e *Mul) String() string { return "(" + e.X.String() + " * " + e.Y.String() + ")" }
func (e *Div) String() string { return "(" + e.X.String() + " / " + e.Y.String() + ")" }

// Operands returns the distinct tensors read by an expression, in the order
// in which the expression first references them.
func Operands(expr Expr) []Tensor {
	var operands []Tensor
	seen := make(map[Tensor]bool)
	var walk func(Expr)
	walk = func(expr Expr) {
		switch e := expr.(type) {
		case *Access:
			if !seen[e.Tensor] {
				seen[e.Tensor] = true
				operands = append(operands, e.Tensor)
			}
		case *Neg:
			walk(e.X)
		case *Add:
			walk(e.X)
			walk(e.Y)
		case *Sub:
			walk(e.X)
			walk(e.Y)
		case *Mul:
			walk(e.X)
			walk(e.Y)
		case *Div:
			walk(e.X)
			walk(e.Y)
		}
	}
	if expr != nil {
		walk(expr)
	}
	return operands
}
