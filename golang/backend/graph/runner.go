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
	"github.com/gx-org/sptensor/storage"
)

type executor struct {
	args   []*storage.Array
	locals []kernels.Scalar
}

// Run the compiled function. Array arguments are bound, in order, to the
// arguments of the function. Allocations replace the arrays in args.
func (g *Graph) Run(args []*storage.Array) error {
	if len(args) != len(g.fn.Args) {
		return fmterr.Internalf("function %s called with %d arguments but requires %d", g.fn.Name, len(args), len(g.fn.Args))
	}
	for i, arg := range args {
		param := g.fn.Args[i]
		if arg != nil && arg.Type() != param.Typ {
			return fmterr.Internalf("function %s: argument %d (%s) is an array of %s but got an array of %s", g.fn.Name, i, param.Name, param.Typ, arg.Type())
		}
	}
	exec := &executor{
		args:   args,
		locals: make([]kernels.Scalar, g.locals),
	}
	return g.body(exec)
}
