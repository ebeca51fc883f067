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

import "github.com/gx-org/sptensor/ir"

// Property selects the routine produced by a lowerer.
type Property int

const (
	// Assemble routines compute the index structure of the result.
	// They may replace the index arrays passed as arguments.
	Assemble Property = iota
	// Compute routines fill the values of the result given its index
	// structure.
	Compute
)

// String representation of the property.
func (p Property) String() string {
	switch p {
	case Assemble:
		return "assemble"
	case Compute:
		return "compute"
	}
	return "invalid"
}

// Lowerer lowers the expression assigned to a tensor into an IR function.
//
// The arguments of the function follow the order of Tensor.Arguments:
// the levels and values of the result first, then the levels and values
// of every operand.
type Lowerer interface {
	Lower(t Tensor, name string, prop Property) (*ir.Function, error)
}

// LowererFunc is a function implementing the Lowerer interface.
type LowererFunc func(t Tensor, name string, prop Property) (*ir.Function, error)

// Lower calls the function.
func (f LowererFunc) Lower(t Tensor, name string, prop Property) (*ir.Function, error) {
	return f(t, name, prop)
}
