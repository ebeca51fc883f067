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

// Package irstring prints an IR tree as C-like source code.
package irstring

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/gx-org/sptensor/ir"
)

type printer struct {
	w       strings.Builder
	indent  int
	keyword func(a ...any) string
	literal func(a ...any) string
}

var _ ir.Visitor = (*printer)(nil)

func newPrinter(colored bool) *printer {
	p := &printer{
		keyword: fmt.Sprint,
		literal: fmt.Sprint,
	}
	if colored {
		kw := color.New(color.FgMagenta, color.Bold)
		kw.EnableColor()
		lit := color.New(color.FgBlue)
		lit.EnableColor()
		p.keyword = kw.SprintFunc()
		p.literal = lit.SprintFunc()
	}
	return p
}

// Fprint writes the source code of a node into a writer.
// Keywords and literals are colored with ANSI escape codes if colored is true.
func Fprint(w io.Writer, node ir.Node, colored bool) error {
	p := newPrinter(colored)
	if err := node.Accept(p); err != nil {
		return err
	}
	_, err := io.WriteString(w, p.w.String())
	return err
}

// String returns the source code of a node.
func String(node ir.Node) string {
	var s strings.Builder
	if err := Fprint(&s, node, false); err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	return s.String()
}

func (p *printer) print(a ...any) {
	for _, x := range a {
		switch xT := x.(type) {
		case ir.Node:
			// Expressions cannot fail to print.
			_ = xT.Accept(p)
		default:
			fmt.Fprint(&p.w, xT)
		}
	}
}

func (p *printer) line(a ...any) {
	p.w.WriteString(strings.Repeat("  ", p.indent))
	p.print(a...)
	p.w.WriteString("\n")
}

func (p *printer) binary(op string, n *ir.BinaryExpr) error {
	p.print("(", n.A, " "+op+" ", n.B, ")")
	return nil
}

func (p *printer) call(name string, n *ir.BinaryExpr) error {
	p.print(name+"(", n.A, ", ", n.B, ")")
	return nil
}

func (p *printer) VisitLiteral(n *ir.Literal) error {
	switch {
	case n.Typ.IsFloat():
		p.print(p.literal(strconv.FormatFloat(n.Float, 'g', -1, 64)))
	case n.Typ.IsBool():
		p.print(p.literal(n.Int != 0))
	default:
		p.print(p.literal(n.Int))
	}
	return nil
}

func (p *printer) VisitVar(n *ir.Var) error {
	p.print(n.Name)
	return nil
}

func (p *printer) VisitAdd(n *ir.Add) error { return p.binary("+", &n.BinaryExpr) }
func (p *printer) VisitSub(n *ir.Sub) error { return p.binary("-", &n.BinaryExpr) }
func (p *printer) VisitMul(n *ir.Mul) error { return p.binary("*", &n.BinaryExpr) }
func (p *printer) VisitDiv(n *ir.Div) error { return p.binary("/", &n.BinaryExpr) }
func (p *printer) VisitRem(n *ir.Rem) error { return p.binary("%", &n.BinaryExpr) }
func (p *printer) VisitMin(n *ir.Min) error { return p.call("min", &n.BinaryExpr) }
func (p *printer) VisitMax(n *ir.Max) error { return p.call("max", &n.BinaryExpr) }
func (p *printer) VisitEq(n *ir.Eq) error   { return p.binary("==", &n.BinaryExpr) }
func (p *printer) VisitNeq(n *ir.Neq) error { return p.binary("!=", &n.BinaryExpr) }
func (p *printer) VisitGt(n *ir.Gt) error   { return p.binary(">", &n.BinaryExpr) }
func (p *printer) VisitLt(n *ir.Lt) error   { return p.binary("<", &n.BinaryExpr) }
func (p *printer) VisitGte(n *ir.Gte) error { return p.binary(">=", &n.BinaryExpr) }
func (p *printer) VisitLte(n *ir.Lte) error { return p.binary("<=", &n.BinaryExpr) }
func (p *printer) VisitAnd(n *ir.And) error { return p.binary("&&", &n.BinaryExpr) }
func (p *printer) VisitOr(n *ir.Or) error   { return p.binary("||", &n.BinaryExpr) }

func (p *printer) VisitLoad(n *ir.Load) error {
	p.print(n.Arr, "[", n.Loc, "]")
	return nil
}

func (p *printer) VisitBlock(n *ir.Block) error {
	for _, stmt := range n.Stmts {
		if err := stmt.Accept(p); err != nil {
			return err
		}
	}
	return nil
}

// nested prints a statement in a new scope.
func (p *printer) nested(stmt ir.Stmt) error {
	p.indent++
	defer func() { p.indent-- }()
	return stmt.Accept(p)
}

func isEmpty(stmt ir.Stmt) bool {
	block, ok := stmt.(*ir.Block)
	return ok && len(block.Stmts) == 0
}

func (p *printer) VisitStore(n *ir.Store) error {
	p.line(n.Arr, "[", n.Loc, "] = ", n.Data, ";")
	return nil
}

func (p *printer) VisitIfThenElse(n *ir.IfThenElse) error {
	p.line(p.keyword("if"), " (", n.Cond, ") {")
	if err := p.nested(n.Then); err != nil {
		return err
	}
	if !isEmpty(n.Otherwise) {
		p.line("} ", p.keyword("else"), " {")
		if err := p.nested(n.Otherwise); err != nil {
			return err
		}
	}
	p.line("}")
	return nil
}

func (p *printer) VisitFor(n *ir.For) error {
	p.line(p.keyword("for"), " (", n.Var.Type(), " ", n.Var, " = ", n.Start, "; ", n.Var, " < ", n.End, "; ", n.Var, " += ", n.Increment, ") {")
	if err := p.nested(n.Body); err != nil {
		return err
	}
	p.line("}")
	return nil
}

func (p *printer) VisitAssign(n *ir.Assign) error {
	p.line(n.Var, " = ", n.Value, ";")
	return nil
}

func (p *printer) VisitAllocate(n *ir.Allocate) error {
	fun := "malloc"
	if n.Realloc {
		fun = "realloc"
	}
	p.line(n.Var, " = ", p.keyword(fun), "(", n.Size, " * sizeof(", n.Var.Type(), "));")
	return nil
}

func (p *printer) VisitFunction(n *ir.Function) error {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = fmt.Sprintf("%s* restrict %s", arg.Type(), arg.Name)
	}
	p.line(p.keyword("int"), " ", n.Name, "(", strings.Join(args, ", "), ") {")
	if err := p.nested(n.Body); err != nil {
		return err
	}
	p.indent++
	p.line(p.keyword("return"), " 0;")
	p.indent--
	p.line("}")
	return nil
}
