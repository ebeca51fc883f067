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

package kernels

import (
	"math"

	"golang.org/x/exp/constraints"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
)

// Op is a binary operator.
type Op int

// Binary operators supported by the kernels.
const (
	Add Op = iota
	Sub
	Mul
	Div
	Rem
	Min
	Max
	Eq
	Neq
	Gt
	Lt
	Gte
	Lte
	And
	Or
)

var opNames = [...]string{
	Add: "+",
	Sub: "-",
	Mul: "*",
	Div: "/",
	Rem: "%",
	Min: "min",
	Max: "max",
	Eq:  "==",
	Neq: "!=",
	Gt:  ">",
	Lt:  "<",
	Gte: ">=",
	Lte: "<=",
	And: "&&",
	Or:  "||",
}

// String representation of the operator.
func (op Op) String() string {
	if op < 0 || int(op) >= len(opNames) {
		return "invalid"
	}
	return opNames[op]
}

// BinaryOp returns a kernel computing a binary operator.
// Arithmetic is computed in the output type. Comparisons are computed in
// double if one of the operands is a floating point number, in int64 otherwise.
func BinaryOp(op Op, x, y, out ctype.Type) (Binary, error) {
	switch op {
	case Add, Sub, Mul, Div, Rem, Min, Max:
		switch out {
		case ctype.Int:
			return integerKernel[int32](op, out)
		case ctype.Int64:
			return integerKernel[int64](op, out)
		case ctype.Float:
			return floatKernel[float32](op, out)
		case ctype.Double:
			return floatKernel[float64](op, out)
		}
		return nil, fmterr.Internalf("operator %s not supported for %s", op, out)
	case Eq, Neq, Gt, Lt, Gte, Lte:
		if x.IsFloat() || y.IsFloat() {
			return compareKernel[float64](op), nil
		}
		return compareKernel[int64](op), nil
	case And:
		return func(x, y Scalar) (Scalar, error) {
			return FromBool(x.Bool() && y.Bool()), nil
		}, nil
	case Or:
		return func(x, y Scalar) (Scalar, error) {
			return FromBool(x.Bool() || y.Bool()), nil
		}, nil
	}
	return nil, fmterr.Internalf("operator %d not supported", op)
}

func arithmetic[T number](op Op) func(x, y T) T {
	switch op {
	case Add:
		return func(x, y T) T { return x + y }
	case Sub:
		return func(x, y T) T { return x - y }
	case Mul:
		return func(x, y T) T { return x * y }
	case Div:
		return func(x, y T) T { return x / y }
	case Min:
		return func(x, y T) T { return min(x, y) }
	case Max:
		return func(x, y T) T { return max(x, y) }
	}
	return nil
}

func integerKernel[T constraints.Signed](op Op, out ctype.Type) (Binary, error) {
	f := arithmetic[T](op)
	if op == Rem {
		f = func(x, y T) T { return x % y }
	}
	checkZero := op == Div || op == Rem
	return func(xS, yS Scalar) (Scalar, error) {
		x, y := Value[T](xS), Value[T](yS)
		if checkZero && y == 0 {
			return Scalar{}, fmterr.Internalf("integer division by zero: %d %s %d", x, op, y)
		}
		return ToScalar(out, f(x, y)), nil
	}, nil
}

func floatKernel[T constraints.Float](op Op, out ctype.Type) (Binary, error) {
	f := arithmetic[T](op)
	if op == Rem {
		f = func(x, y T) T { return T(math.Mod(float64(x), float64(y))) }
	}
	return func(xS, yS Scalar) (Scalar, error) {
		return ToScalar(out, f(Value[T](xS), Value[T](yS))), nil
	}, nil
}

func compareKernel[T int64 | float64](op Op) Binary {
	var f func(x, y T) bool
	switch op {
	case Eq:
		f = func(x, y T) bool { return x == y }
	case Neq:
		f = func(x, y T) bool { return x != y }
	case Gt:
		f = func(x, y T) bool { return x > y }
	case Lt:
		f = func(x, y T) bool { return x < y }
	case Gte:
		f = func(x, y T) bool { return x >= y }
	case Lte:
		f = func(x, y T) bool { return x <= y }
	}
	return func(x, y Scalar) (Scalar, error) {
		return FromBool(f(Value[T](x), Value[T](y))), nil
	}
}
