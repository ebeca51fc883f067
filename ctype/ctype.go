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

// Package ctype defines the component types of tensors and IR expressions.
package ctype

import (
	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/sptensor/base/fmterr"
)

// Type of a tensor component or of an IR expression.
type Type uint

// Component types supported by sptensor.
const (
	Invalid = Type(dtype.Invalid)

	Bool   = Type(dtype.Bool)
	Int    = Type(dtype.Int32)
	Int64  = Type(dtype.Int64)
	Float  = Type(dtype.Float32)
	Double = Type(dtype.Float64)
)

// DType returns the backend data type of a component type.
func (t Type) DType() dtype.DataType {
	return dtype.DataType(t)
}

// Bytes returns the number of bytes used by one component.
func (t Type) Bytes() int {
	if !t.Valid() {
		return 0
	}
	return dtype.Sizeof(t.DType())
}

// Valid returns true if the type is one of the supported component types.
func (t Type) Valid() bool {
	switch t {
	case Bool, Int, Int64, Float, Double:
		return true
	}
	return false
}

// IsBool returns true for the boolean type.
func (t Type) IsBool() bool {
	return t == Bool
}

// IsInt returns true for integer types.
func (t Type) IsInt() bool {
	return t == Int || t == Int64
}

// IsFloat returns true for floating point types.
func (t Type) IsFloat() bool {
	return t == Float || t == Double
}

// String returns the C name of the type.
func (t Type) String() string {
	switch t {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Int64:
		return "int64_t"
	case Float:
		return "float"
	case Double:
		return "double"
	}
	return "invalid"
}

// Of returns the component type of a Go type.
func Of[T dtype.GoDataType]() Type {
	t := Type(dtype.Generic[T]())
	if !t.Valid() {
		return Invalid
	}
	return t
}

// Promote returns the type of an arithmetic operation between two operands.
// Equal types are preserved. Otherwise, the result is a double if one of the
// operand is a double and a float in all other cases: promotion never
// produces an integer from two different types.
func Promote(a, b Type) (Type, error) {
	if a.IsBool() || b.IsBool() {
		return Invalid, fmterr.Internalf("cannot do arithmetic on booleans: got %s and %s", a, b)
	}
	if a == b {
		return a, nil
	}
	if a == Double || b == Double {
		return Double, nil
	}
	return Float, nil
}
