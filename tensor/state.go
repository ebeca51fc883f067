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

import "github.com/gx-org/sptensor/base/fmterr"

// State of the execution of a tensor.
type State int

// States of a tensor, in the order in which they are reached.
const (
	// Declared tensors have no expression.
	Declared State = iota
	// ExpressionAssigned tensors have an expression.
	ExpressionAssigned
	// Compiled tensors have assemble and compute routines.
	Compiled
	// Assembled tensors have the index structure of their result.
	Assembled
	// Computed tensors have the values of their result.
	Computed
)

var stateNames = map[State]string{
	Declared:           "declared",
	ExpressionAssigned: "expression-assigned",
	Compiled:           "compiled",
	Assembled:          "assembled",
	Computed:           "computed",
}

// String representation of the state.
func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "invalid"
}

// State returns the state of the tensor.
func (t Tensor) State() State {
	return t.c.state
}

// checkState returns an internal error if the tensor is not in one of the
// given states.
func (t Tensor) checkState(op string, states ...State) error {
	for _, s := range states {
		if t.c.state == s {
			return nil
		}
	}
	return fmterr.Internalf("tensor %s: cannot %s in state %s (requires state %s)", t.Name(), op, t.c.state, states[0])
}
