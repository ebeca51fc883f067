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

import (
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
)

// NewInt returns an integer literal of type int.
func NewInt(val int64) *Literal {
	return &Literal{Typ: ctype.Int, Int: val}
}

// NewBool returns a boolean literal.
func NewBool(val bool) *Literal {
	lit := &Literal{Typ: ctype.Bool}
	if val {
		lit.Int = 1
	}
	return lit
}

// NewLiteral returns a literal of a given type.
// The value is truncated if the type is an integer type.
func NewLiteral(val float64, typ ctype.Type) (*Literal, error) {
	switch {
	case typ.IsFloat():
		return &Literal{Typ: typ, Float: val}, nil
	case typ.IsInt():
		return &Literal{Typ: typ, Int: int64(val)}, nil
	}
	return nil, fmterr.Internalf("cannot build a %s literal from %v", typ, val)
}

// NewVar returns a scalar variable.
func NewVar(name string, typ ctype.Type) *Var {
	return &Var{Name: name, Typ: typ}
}

// NewPtrVar returns a variable referencing an array of elements of type typ.
func NewPtrVar(name string, typ ctype.Type) *Var {
	return &Var{Name: name, Typ: typ, IsPtr: true}
}

func checkDefined(what string, nodes ...Node) error {
	for i, node := range nodes {
		if node == nil {
			return fmterr.Internalf("%s: operand %d is not defined", what, i)
		}
	}
	return nil
}

type binaryNode[T any] interface {
	*T
	Expr
	init(a, b Expr, typ ctype.Type)
}

func newArith[T any, PT binaryNode[T]](a, b Expr, typ []ctype.Type) (PT, error) {
	if err := checkDefined("arithmetic", a, b); err != nil {
		return nil, err
	}
	if a.Type().IsBool() || b.Type().IsBool() {
		return nil, fmterr.Internalf("cannot do arithmetic on booleans: got %s and %s", a.Type(), b.Type())
	}
	var resultType ctype.Type
	switch len(typ) {
	case 0:
		var err error
		if resultType, err = ctype.Promote(a.Type(), b.Type()); err != nil {
			return nil, err
		}
	case 1:
		resultType = typ[0]
	default:
		return nil, fmterr.Internalf("arithmetic: got %d result types but want at most 1", len(typ))
	}
	node := PT(new(T))
	node.init(a, b, resultType)
	return node, nil
}

func newBoolean[T any, PT binaryNode[T]](a, b Expr) (PT, error) {
	if err := checkDefined("comparison", a, b); err != nil {
		return nil, err
	}
	node := PT(new(T))
	node.init(a, b, ctype.Bool)
	return node, nil
}

// NewAdd returns a node computing a+b.
// The type of the result is either given by typ or computed by promoting the types of the operands.
func NewAdd(a, b Expr, typ ...ctype.Type) (*Add, error) { return newArith[Add](a, b, typ) }

// NewSub returns a node computing a-b.
func NewSub(a, b Expr, typ ...ctype.Type) (*Sub, error) { return newArith[Sub](a, b, typ) }

// NewMul returns a node computing a*b.
func NewMul(a, b Expr, typ ...ctype.Type) (*Mul, error) { return newArith[Mul](a, b, typ) }

// NewDiv returns a node computing a/b.
func NewDiv(a, b Expr, typ ...ctype.Type) (*Div, error) { return newArith[Div](a, b, typ) }

// NewRem returns a node computing a%b.
func NewRem(a, b Expr, typ ...ctype.Type) (*Rem, error) { return newArith[Rem](a, b, typ) }

// NewMin returns a node computing min(a,b).
func NewMin(a, b Expr, typ ...ctype.Type) (*Min, error) { return newArith[Min](a, b, typ) }

// NewMax returns a node computing max(a,b).
func NewMax(a, b Expr, typ ...ctype.Type) (*Max, error) { return newArith[Max](a, b, typ) }

// NewEq returns a node computing a==b.
func NewEq(a, b Expr) (*Eq, error) { return newBoolean[Eq](a, b) }

// NewNeq returns a node computing a!=b.
func NewNeq(a, b Expr) (*Neq, error) { return newBoolean[Neq](a, b) }

// NewGt returns a node computing a>b.
func NewGt(a, b Expr) (*Gt, error) { return newBoolean[Gt](a, b) }

// NewLt returns a node computing a<b.
func NewLt(a, b Expr) (*Lt, error) { return newBoolean[Lt](a, b) }

// NewGte returns a node computing a>=b.
func NewGte(a, b Expr) (*Gte, error) { return newBoolean[Gte](a, b) }

// NewLte returns a node computing a<=b.
func NewLte(a, b Expr) (*Lte, error) { return newBoolean[Lte](a, b) }

// NewAnd returns a node computing a&&b.
func NewAnd(a, b Expr) (*And, error) { return newBoolean[And](a, b) }

// NewOr returns a node computing a||b.
func NewOr(a, b Expr) (*Or, error) { return newBoolean[Or](a, b) }

// NewLoad returns a node reading an element of an array.
// The offset defaults to 0 and must be an integer.
func NewLoad(arr Expr, loc ...Expr) (*Load, error) {
	if err := checkDefined("load", arr); err != nil {
		return nil, err
	}
	var offset Expr
	switch len(loc) {
	case 0:
		offset = NewInt(0)
	case 1:
		offset = loc[0]
	default:
		return nil, fmterr.Internalf("load: got %d offsets but want at most 1", len(loc))
	}
	if err := checkDefined("load", offset); err != nil {
		return nil, err
	}
	if !offset.Type().IsInt() {
		return nil, fmterr.Internalf("cannot load from a non-integer offset: got %s", offset.Type())
	}
	return &Load{Arr: arr, Loc: offset, Typ: arr.Type()}, nil
}

// NewBlock returns a block of statements.
func NewBlock(stmts ...Stmt) *Block {
	return &Block{Stmts: stmts}
}

// NewStore returns a statement writing data into an array.
func NewStore(arr, loc, data Expr) (*Store, error) {
	if err := checkDefined("store", arr, loc, data); err != nil {
		return nil, err
	}
	return &Store{Arr: arr, Loc: loc, Data: data}, nil
}

// NewIfThenElse returns a conditional statement.
// The else branch defaults to an empty block. The condition must be a boolean.
func NewIfThenElse(cond Expr, then Stmt, otherwise ...Stmt) (*IfThenElse, error) {
	if err := checkDefined("if", cond, then); err != nil {
		return nil, err
	}
	if !cond.Type().IsBool() {
		return nil, fmterr.Internalf("can only branch on boolean: got %s", cond.Type())
	}
	var els Stmt
	switch len(otherwise) {
	case 0:
		els = NewBlock()
	case 1:
		els = otherwise[0]
	default:
		return nil, fmterr.Internalf("if: got %d else branches but want at most 1", len(otherwise))
	}
	if err := checkDefined("else", els); err != nil {
		return nil, err
	}
	return &IfThenElse{Cond: cond, Then: then, Otherwise: els}, nil
}

// NewFor returns a loop statement.
// Typing the loop variable is the responsibility of the caller.
func NewFor(v, start, end, increment Expr, body Stmt) (*For, error) {
	if err := checkDefined("for", v, start, end, increment, body); err != nil {
		return nil, err
	}
	return &For{Var: v, Start: start, End: end, Increment: increment, Body: body}, nil
}

// NewAssign returns a statement setting a scalar variable.
func NewAssign(v *Var, value Expr) (*Assign, error) {
	if v == nil {
		return nil, fmterr.Internalf("assign: variable is not defined")
	}
	if err := checkDefined("assign", value); err != nil {
		return nil, err
	}
	if v.IsPtr {
		return nil, fmterr.Internalf("cannot assign a value to the pointer %s", v.Name)
	}
	return &Assign{Var: v, Value: value}, nil
}

// NewAllocate returns a statement allocating a new array for a pointer variable.
func NewAllocate(v *Var, size Expr, realloc bool) (*Allocate, error) {
	if v == nil {
		return nil, fmterr.Internalf("allocate: variable is not defined")
	}
	if err := checkDefined("allocate", size); err != nil {
		return nil, err
	}
	if !v.IsPtr {
		return nil, fmterr.Internalf("cannot allocate the scalar variable %s", v.Name)
	}
	if !size.Type().IsInt() {
		return nil, fmterr.Internalf("cannot allocate %s with a non-integer size: got %s", v.Name, size.Type())
	}
	return &Allocate{Var: v, Size: size, Realloc: realloc}, nil
}

// NewFunction returns a function given its positional arguments and its body.
// All the arguments are pointer variables with distinct names.
func NewFunction(name string, args []*Var, body Stmt) (*Function, error) {
	if err := checkDefined("function "+name, body); err != nil {
		return nil, err
	}
	names := make(map[string]bool, len(args))
	for i, arg := range args {
		if arg == nil || !arg.IsPtr {
			return nil, fmterr.Internalf("function %s: argument %d is not a pointer variable", name, i)
		}
		if names[arg.Name] {
			return nil, fmterr.Internalf("function %s: argument %s defined more than once", name, arg.Name)
		}
		names[arg.Name] = true
	}
	return &Function{Name: name, Args: args, Body: body}, nil
}
