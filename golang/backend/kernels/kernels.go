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

// Package kernels implement the scalar operations of Go routines.
package kernels

import (
	"fmt"

	"golang.org/x/exp/constraints"
	"github.com/gx-org/sptensor/ctype"
)

type (
	number interface {
		constraints.Integer | constraints.Float
	}

	// Scalar is a value computed by a routine.
	// Booleans and integers are stored in Int, floating point numbers in Float.
	Scalar struct {
		Type  ctype.Type
		Int   int64
		Float float64
	}

	// Binary operator kernel.
	Binary func(x, y Scalar) (Scalar, error)
)

// ToScalar returns a scalar of type t holding v.
// The value is converted to the precision of t.
func ToScalar[T number](t ctype.Type, v T) Scalar {
	switch t {
	case ctype.Bool:
		return FromBool(v != 0)
	case ctype.Int:
		return Scalar{Type: t, Int: int64(int32(v))}
	case ctype.Int64:
		return Scalar{Type: t, Int: int64(v)}
	case ctype.Float:
		return Scalar{Type: t, Float: float64(float32(v))}
	}
	return Scalar{Type: t, Float: float64(v)}
}

// FromBool returns a boolean scalar.
func FromBool(b bool) Scalar {
	s := Scalar{Type: ctype.Bool}
	if b {
		s.Int = 1
	}
	return s
}

// Value returns the value of a scalar converted to T.
func Value[T number](s Scalar) T {
	if s.Type.IsFloat() {
		return T(s.Float)
	}
	return T(s.Int)
}

// Bool returns true if the scalar is not zero.
func (s Scalar) Bool() bool {
	if s.Type.IsFloat() {
		return s.Float != 0
	}
	return s.Int != 0
}

// Cast a scalar to another type.
func (s Scalar) Cast(t ctype.Type) Scalar {
	if s.Type.IsFloat() {
		return ToScalar(t, s.Float)
	}
	return ToScalar(t, s.Int)
}

// String representation of the scalar.
func (s Scalar) String() string {
	switch {
	case s.Type.IsBool():
		return fmt.Sprint(s.Bool())
	case s.Type.IsFloat():
		return fmt.Sprint(s.Float)
	}
	return fmt.Sprint(s.Int)
}
