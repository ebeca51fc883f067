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

// Package ir is the loop-level intermediate representation (IR) produced by
// lowering an index notation expression and consumed by native modules.
//
// The set of nodes is closed: every node implements an unexported marker
// method and routes itself to exactly one method of a Visitor. Nodes must
// not be modified once built. They are built with the NewXXX functions of
// this package which check the typing invariants of each node.
package ir

import (
	"github.com/gx-org/sptensor/ctype"
)

// ----------------------------------------------------------------------------
// Types of node in the tree.
type (
	// Node in the tree.
	Node interface {
		// node marks a structure as a node structure.
		// It prevents external implementations of the interface.
		node()

		// Accept calls the method of the visitor for the concrete node.
		Accept(Visitor) error
	}

	// Expr is a node computing a typed value.
	Expr interface {
		Node
		// Type of the value computed by the expression.
		Type() ctype.Type
		exprNode()
	}

	// Stmt is a node performing an effect.
	Stmt interface {
		Node
		stmtNode()
	}
)

// ----------------------------------------------------------------------------
// Expressions.
type (
	// Literal is a constant.
	// Int is set for integer and boolean types, Float for floating point types.
	Literal struct {
		Typ   ctype.Type
		Int   int64
		Float float64
	}

	// Var is a variable. Pointer variables refer to arrays passed
	// as arguments to a function.
	Var struct {
		Name  string
		Typ   ctype.Type
		IsPtr bool
	}

	// BinaryExpr is the common structure of all binary operators.
	BinaryExpr struct {
		A, B Expr
		Typ  ctype.Type
	}

	// Add computes A+B.
	Add struct{ BinaryExpr }
	// Sub computes A-B.
	Sub struct{ BinaryExpr }
	// Mul computes A*B.
	Mul struct{ BinaryExpr }
	// Div computes A/B.
	Div struct{ BinaryExpr }
	// Rem computes A%B.
	Rem struct{ BinaryExpr }
	// Min computes min(A,B).
	Min struct{ BinaryExpr }
	// Max computes max(A,B).
	Max struct{ BinaryExpr }

	// Eq computes A==B.
	Eq struct{ BinaryExpr }
	// Neq computes A!=B.
	Neq struct{ BinaryExpr }
	// Gt computes A>B.
	Gt struct{ BinaryExpr }
	// Lt computes A<B.
	Lt struct{ BinaryExpr }
	// Gte computes A>=B.
	Gte struct{ BinaryExpr }
	// Lte computes A<=B.
	Lte struct{ BinaryExpr }

	// And computes A&&B.
	And struct{ BinaryExpr }
	// Or computes A||B.
	Or struct{ BinaryExpr }

	// Load reads the element at offset Loc of the array Arr.
	Load struct {
		Arr, Loc Expr
		Typ      ctype.Type
	}
)

var (
	_ Expr = (*Literal)(nil)
	_ Expr = (*Var)(nil)
	_ Expr = (*Add)(nil)
	_ Expr = (*Sub)(nil)
	_ Expr = (*Mul)(nil)
	_ Expr = (*Div)(nil)
	_ Expr = (*Rem)(nil)
	_ Expr = (*Min)(nil)
	_ Expr = (*Max)(nil)
	_ Expr = (*Eq)(nil)
	_ Expr = (*Neq)(nil)
	_ Expr = (*Gt)(nil)
	_ Expr = (*Lt)(nil)
	_ Expr = (*Gte)(nil)
	_ Expr = (*Lte)(nil)
	_ Expr = (*And)(nil)
	_ Expr = (*Or)(nil)
	_ Expr = (*Load)(nil)
)

func (*Literal) node()     {}
func (*Literal) exprNode() {}

// Type of the literal.
func (n *Literal) Type() ctype.Type { return n.Typ }

// Accept calls VisitLiteral.
func (n *Literal) Accept(v Visitor) error { return v.VisitLiteral(n) }

func (*Var) node()     {}
func (*Var) exprNode() {}

// Type of the variable. For pointers, the type of the elements.
func (n *Var) Type() ctype.Type { return n.Typ }

// Accept calls VisitVar.
func (n *Var) Accept(v Visitor) error { return v.VisitVar(n) }

func (*BinaryExpr) node()     {}
func (*BinaryExpr) exprNode() {}

// Type of the result of the operator.
func (n *BinaryExpr) Type() ctype.Type { return n.Typ }

func (n *BinaryExpr) init(a, b Expr, typ ctype.Type) {
	n.A, n.B, n.Typ = a, b, typ
}

// Operands returns both operands of the operator.
func (n *BinaryExpr) Operands() (Expr, Expr) { return n.A, n.B }

// Accept calls VisitAdd.
func (n *Add) Accept(v Visitor) error { return v.VisitAdd(n) }

// Accept calls VisitSub.
func (n *Sub) Accept(v Visitor) error { return v.VisitSub(n) }

// Accept calls VisitMul.
func (n *Mul) Accept(v Visitor) error { return v.VisitMul(n) }

// Accept calls VisitDiv.
func (n *Div) Accept(v Visitor) error { return v.VisitDiv(n) }

// Accept calls VisitRem.
func (n *Rem) Accept(v Visitor) error { return v.VisitRem(n) }

// Accept calls VisitMin.
func (n *Min) Accept(v Visitor) error { return v.VisitMin(n) }

// Accept calls VisitMax.
func (n *Max) Accept(v Visitor) error { return v.VisitMax(n) }

// Accept calls VisitEq.
func (n *Eq) Accept(v Visitor) error { return v.VisitEq(n) }

// Accept calls VisitNeq.
func (n *Neq) Accept(v Visitor) error { return v.VisitNeq(n) }

// Accept calls VisitGt.
func (n *Gt) Accept(v Visitor) error { return v.VisitGt(n) }

// Accept calls VisitLt.
func (n *Lt) Accept(v Visitor) error { return v.VisitLt(n) }

// Accept calls VisitGte.
func (n *Gte) Accept(v Visitor) error { return v.VisitGte(n) }

// Accept calls VisitLte.
func (n *Lte) Accept(v Visitor) error { return v.VisitLte(n) }

// Accept calls VisitAnd.
func (n *And) Accept(v Visitor) error { return v.VisitAnd(n) }

// Accept calls VisitOr.
func (n *Or) Accept(v Visitor) error { return v.VisitOr(n) }

func (*Load) node()     {}
func (*Load) exprNode() {}

// Type of the element being loaded.
func (n *Load) Type() ctype.Type { return n.Typ }

// Accept calls VisitLoad.
func (n *Load) Accept(v Visitor) error { return v.VisitLoad(n) }

// ----------------------------------------------------------------------------
// Statements.
type (
	// Block is an ordered list of statements.
	Block struct {
		Stmts []Stmt
	}

	// Store writes Data at offset Loc of the array Arr.
	Store struct {
		Arr, Loc, Data Expr
	}

	// IfThenElse executes Then if Cond is true, Otherwise if not.
	IfThenElse struct {
		Cond      Expr
		Then      Stmt
		Otherwise Stmt
	}

	// For executes Body for Var going from Start (included) to End (excluded)
	// by steps of Increment.
	For struct {
		Var, Start, End, Increment Expr
		Body                       Stmt
	}

	// Assign sets the value of a scalar variable local to a function.
	Assign struct {
		Var   *Var
		Value Expr
	}

	// Allocate replaces the array referenced by a pointer variable by a new
	// array of Size elements. The content of the previous array is copied
	// into the new one if Realloc is set.
	Allocate struct {
		Var     *Var
		Size    Expr
		Realloc bool
	}

	// Function is a named routine. Args are bound, in order, to the
	// positional arguments passed by the caller.
	Function struct {
		Name string
		Args []*Var
		Body Stmt
	}
)

var (
	_ Stmt = (*Block)(nil)
	_ Stmt = (*Store)(nil)
	_ Stmt = (*IfThenElse)(nil)
	_ Stmt = (*For)(nil)
	_ Stmt = (*Assign)(nil)
	_ Stmt = (*Allocate)(nil)
	_ Stmt = (*Function)(nil)
)

func (*Block) node()     {}
func (*Block) stmtNode() {}

// Accept calls VisitBlock.
func (n *Block) Accept(v Visitor) error { return v.VisitBlock(n) }

func (*Store) node()     {}
func (*Store) stmtNode() {}

// Accept calls VisitStore.
func (n *Store) Accept(v Visitor) error { return v.VisitStore(n) }

func (*IfThenElse) node()     {}
func (*IfThenElse) stmtNode() {}

// Accept calls VisitIfThenElse.
func (n *IfThenElse) Accept(v Visitor) error { return v.VisitIfThenElse(n) }

func (*For) node()     {}
func (*For) stmtNode() {}

// Accept calls VisitFor.
func (n *For) Accept(v Visitor) error { return v.VisitFor(n) }

func (*Assign) node()     {}
func (*Assign) stmtNode() {}

// Accept calls VisitAssign.
func (n *Assign) Accept(v Visitor) error { return v.VisitAssign(n) }

func (*Allocate) node()     {}
func (*Allocate) stmtNode() {}

// Accept calls VisitAllocate.
func (n *Allocate) Accept(v Visitor) error { return v.VisitAllocate(n) }

func (*Function) node()     {}
func (*Function) stmtNode() {}

// Accept calls VisitFunction.
func (n *Function) Accept(v Visitor) error { return v.VisitFunction(n) }
