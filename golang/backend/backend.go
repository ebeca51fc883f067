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

// Package backend compiles IR functions into Go routines callable with
// positional array arguments.
package backend

import (
	"strings"

	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/golang/backend/graph"
	"github.com/gx-org/sptensor/ir"
	"github.com/gx-org/sptensor/ir/irstring"
	"github.com/gx-org/sptensor/storage"
)

// Arguments passed to a routine. Routines may replace the arrays in
// the slots of the arguments.
type Arguments []*storage.Array

// Module is a set of routines compiled together.
type Module interface {
	// AddFunction adds a function to the module.
	// The module needs to be compiled again before the function can be called.
	AddFunction(*ir.Function) error
	// Has returns true if a function with the given name has been added.
	Has(name string) bool
	// Compile all the functions of the module.
	Compile() error
	// Call a compiled function.
	Call(name string, args Arguments) error
	// Source returns the source code of all the functions of the module.
	Source() string
}

// Native is a module compiling functions into Go closures.
type Native struct {
	funcs    []*ir.Function
	compiled map[string]*graph.Graph
	dirty    bool
}

var _ Module = (*Native)(nil)

// New returns a new module running functions natively in Go.
func New() *Native {
	return &Native{compiled: make(map[string]*graph.Graph)}
}

// AddFunction adds a function to the module.
// Adding a function with the same name as a previous function replaces it.
func (m *Native) AddFunction(fn *ir.Function) error {
	if fn == nil {
		return fmterr.Internalf("cannot add a nil function to a module")
	}
	m.dirty = true
	for i, prev := range m.funcs {
		if prev.Name == fn.Name {
			m.funcs[i] = fn
			return nil
		}
	}
	m.funcs = append(m.funcs, fn)
	return nil
}

// Has returns true if a function with the given name has been added.
func (m *Native) Has(name string) bool {
	for _, fn := range m.funcs {
		if fn.Name == name {
			return true
		}
	}
	return false
}

// Compile all the functions of the module.
func (m *Native) Compile() error {
	compiled := make(map[string]*graph.Graph, len(m.funcs))
	for _, fn := range m.funcs {
		g, err := graph.Compile(fn)
		if err != nil {
			return err
		}
		compiled[fn.Name] = g
	}
	m.compiled = compiled
	m.dirty = false
	return nil
}

// Call a compiled function.
func (m *Native) Call(name string, args Arguments) error {
	if m.dirty {
		return fmterr.Internalf("module has functions not compiled yet")
	}
	g, ok := m.compiled[name]
	if !ok {
		return fmterr.Internalf("function %s has not been compiled", name)
	}
	return g.Run(args)
}

// Source returns the C-like source code of all the functions.
func (m *Native) Source() string {
	var b strings.Builder
	for i, fn := range m.funcs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(irstring.String(fn))
	}
	return b.String()
}
