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

package ir

// Visitor is implemented by consumers of the IR: printers, native
// modules, analysis. Each concrete node calls exactly one of its methods.
type Visitor interface {
	VisitLiteral(*Literal) error
	VisitVar(*Var) error
	VisitAdd(*Add) error
	VisitSub(*Sub) error
	VisitMul(*Mul) error
	VisitDiv(*Div) error
	VisitRem(*Rem) error
	VisitMin(*Min) error
	VisitMax(*Max) error
	VisitEq(*Eq) error
	VisitNeq(*Neq) error
	VisitGt(*Gt) error
	VisitLt(*Lt) error
	VisitGte(*Gte) error
	VisitLte(*Lte) error
	VisitAnd(*And) error
	VisitOr(*Or) error
	VisitLoad(*Load) error

	VisitBlock(*Block) error
	VisitStore(*Store) error
	VisitIfThenElse(*IfThenElse) error
	VisitFor(*For) error
	VisitAssign(*Assign) error
	VisitAllocate(*Allocate) error
	VisitFunction(*Function) error
}

// inspector visits all the nodes of a tree in depth-first order.
type inspector struct {
	f func(Node) bool
}

var _ Visitor = (*inspector)(nil)

// Inspect traverses a tree in depth-first order. It calls f for each node
// and skips the children of a node if f returns false.
func Inspect(root Node, f func(Node) bool) error {
	return (&inspector{f: f}).visit(root)
}

func (in *inspector) visit(nodes ...Node) error {
	for _, node := range nodes {
		if node == nil {
			continue
		}
		if !in.f(node) {
			continue
		}
		if err := node.Accept(in); err != nil {
			return err
		}
	}
	return nil
}

func (in *inspector) binary(n *BinaryExpr) error {
	return in.visit(n.A, n.B)
}

func (in *inspector) VisitLiteral(*Literal) error { return nil }
func (in *inspector) VisitVar(*Var) error         { return nil }
func (in *inspector) VisitAdd(n *Add) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitSub(n *Sub) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitMul(n *Mul) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitDiv(n *Div) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitRem(n *Rem) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitMin(n *Min) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitMax(n *Max) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitEq(n *Eq) error         { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitNeq(n *Neq) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitGt(n *Gt) error         { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitLt(n *Lt) error         { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitGte(n *Gte) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitLte(n *Lte) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitAnd(n *And) error       { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitOr(n *Or) error         { return in.binary(&n.BinaryExpr) }
func (in *inspector) VisitLoad(n *Load) error     { return in.visit(n.Arr, n.Loc) }

func (in *inspector) VisitBlock(n *Block) error {
	for _, stmt := range n.Stmts {
		if err := in.visit(stmt); err != nil {
			return err
		}
	}
	return nil
}

func (in *inspector) VisitStore(n *Store) error {
	return in.visit(n.Arr, n.Loc, n.Data)
}

func (in *inspector) VisitIfThenElse(n *IfThenElse) error {
	return in.visit(n.Cond, n.Then, n.Otherwise)
}

func (in *inspector) VisitFor(n *For) error {
	return in.visit(n.Var, n.Start, n.End, n.Increment, n.Body)
}

func (in *inspector) VisitAssign(n *Assign) error {
	return in.visit(n.Var, n.Value)
}

func (in *inspector) VisitAllocate(n *Allocate) error {
	return in.visit(n.Var, n.Size)
}

func (in *inspector) VisitFunction(n *Function) error {
	for _, arg := range n.Args {
		if err := in.visit(arg); err != nil {
			return err
		}
	}
	return in.visit(n.Body)
}
