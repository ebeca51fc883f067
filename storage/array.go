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

package storage

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
)

// Policy specifies what happens to the buffer of an array when its last
// owner releases it.
type Policy int

const (
	// CallerOwns means that the buffer belongs to the caller: releasing the
	// array drops the alias but never touches the memory.
	CallerOwns Policy = iota
	// ReclaimAsScalarBuffer means that the buffer has been allocated for a
	// single value and is reclaimed when the array is released.
	ReclaimAsScalarBuffer
	// ReclaimAsArrayBuffer means that the buffer has been allocated for a
	// sequence of values and is reclaimed when the array is released.
	ReclaimAsArrayBuffer
)

// String representation of the policy.
func (p Policy) String() string {
	switch p {
	case CallerOwns:
		return "caller-owns"
	case ReclaimAsScalarBuffer:
		return "reclaim-scalar"
	case ReclaimAsArrayBuffer:
		return "reclaim-array"
	}
	return "invalid"
}

// Array is a typed buffer.
//
// The number of owners of an array is counted: Retain registers an owner and
// Release unregisters it. When the last owner releases the array, the buffer
// is dropped according to the policy of the array. A new array has no owner.
type Array struct {
	typ    ctype.Type
	data   []byte
	policy Policy

	refs     int
	released bool
}

// NewArray returns a zeroed array of n values.
func NewArray(t ctype.Type, n int) *Array {
	return &Array{
		typ:    t,
		data:   make([]byte, n*t.Bytes()),
		policy: ReclaimAsArrayBuffer,
	}
}

// NewScalar returns an array holding a single zero value.
func NewScalar(t ctype.Type) *Array {
	return &Array{
		typ:    t,
		data:   make([]byte, t.Bytes()),
		policy: ReclaimAsScalarBuffer,
	}
}

// FromSlice returns an array aliasing a Go slice. The values are not copied:
// writing into the array writes into the slice.
func FromSlice[T dtype.GoDataType](vals []T, policy Policy) *Array {
	a := &Array{typ: ctype.Of[T](), policy: policy}
	if len(vals) > 0 {
		ptr := unsafe.Pointer(&vals[0])
		a.data = unsafe.Slice((*byte)(ptr), len(vals)*int(unsafe.Sizeof(vals[0])))
	}
	return a
}

// View returns the values of an array as a Go slice. The slice aliases the
// buffer of the array.
func View[T dtype.GoDataType](a *Array) ([]T, error) {
	if want := ctype.Of[T](); want != a.typ {
		return nil, fmterr.Internalf("cannot view an array of %s as an array of %s", a.typ, want)
	}
	if len(a.data) == 0 {
		return nil, nil
	}
	return dtype.ToSlice[T](a.data), nil
}

// Realloc returns a new array of n values with the same type and policy.
// The first values of a are copied into the new array.
func Realloc(a *Array, n int) *Array {
	r := NewArray(a.typ, n)
	r.policy = a.policy
	if r.policy == CallerOwns {
		r.policy = ReclaimAsArrayBuffer
	}
	copy(r.data, a.data)
	return r
}

// Type of the values stored in the array.
func (a *Array) Type() ctype.Type {
	return a.typ
}

// Policy returns the reclamation policy of the array.
func (a *Array) Policy() Policy {
	return a.policy
}

// Len returns the number of values in the array.
func (a *Array) Len() int {
	size := a.typ.Bytes()
	if size == 0 {
		return 0
	}
	return len(a.data) / size
}

// Bytes returns the raw buffer of the array.
func (a *Array) Bytes() []byte {
	return a.data
}

// Get returns a reference to the i-th value.
func (a *Array) Get(i int) Ref {
	return Ref{arr: a, i: i}
}

// Zero sets all the values of the array to zero.
func (a *Array) Zero() {
	clear(a.data)
}

// Retain registers a new owner of the array.
func (a *Array) Retain() *Array {
	a.refs++
	return a
}

// Release unregisters an owner. It returns true if the owner was the last
// one, in which case the buffer is dropped.
func (a *Array) Release() bool {
	if a.refs == 0 {
		return false
	}
	a.refs--
	if a.refs > 0 {
		return false
	}
	// The buffer of a caller-owned array is left untouched:
	// only the alias is dropped.
	a.data = nil
	a.released = true
	return true
}

// Released returns true if the buffer of the array has been dropped.
func (a *Array) Released() bool {
	return a.released
}

// String representation of the array.
func (a *Array) String() string {
	var s strings.Builder
	s.WriteString("[")
	for i := range a.Len() {
		if i > 0 {
			s.WriteString(", ")
		}
		s.WriteString(a.Get(i).String())
	}
	s.WriteString("]")
	return s.String()
}

// number is the set of Go types backing numeric component types.
type number interface {
	int32 | int64 | float32 | float64
}

func valueAt[T dtype.GoDataType](r Ref) *T {
	return &dtype.ToSlice[T](r.arr.data)[r.i]
}

func numberAt[T number](r Ref) float64 {
	return float64(*valueAt[T](r))
}

func setNumberAt[T number](r Ref, v float64) {
	*valueAt[T](r) = T(v)
}

// Ref is a reference to a value stored in an array.
type Ref struct {
	arr *Array
	i   int
}

// Type of the referenced value.
func (r Ref) Type() ctype.Type {
	return r.arr.typ
}

// Float returns the value as a float64.
func (r Ref) Float() float64 {
	switch r.arr.typ {
	case ctype.Bool:
		if *valueAt[bool](r) {
			return 1
		}
		return 0
	case ctype.Int:
		return numberAt[int32](r)
	case ctype.Int64:
		return numberAt[int64](r)
	case ctype.Float:
		return numberAt[float32](r)
	case ctype.Double:
		return numberAt[float64](r)
	}
	return 0
}

// Int returns the value as an int64. Floating point values are truncated.
func (r Ref) Int() int64 {
	switch r.arr.typ {
	case ctype.Int:
		return int64(*valueAt[int32](r))
	case ctype.Int64:
		return *valueAt[int64](r)
	}
	return int64(r.Float())
}

// Bool returns true if the value is not zero.
func (r Ref) Bool() bool {
	if r.arr.typ == ctype.Bool {
		return *valueAt[bool](r)
	}
	return r.Float() != 0
}

// SetFloat sets the referenced value, converting v to the type of the array.
func (r Ref) SetFloat(v float64) {
	switch r.arr.typ {
	case ctype.Bool:
		*valueAt[bool](r) = v != 0
	case ctype.Int:
		setNumberAt[int32](r, v)
	case ctype.Int64:
		setNumberAt[int64](r, v)
	case ctype.Float:
		setNumberAt[float32](r, v)
	case ctype.Double:
		setNumberAt[float64](r, v)
	}
}

// SetInt sets the referenced value, converting v to the type of the array.
func (r Ref) SetInt(v int64) {
	switch r.arr.typ {
	case ctype.Int:
		*valueAt[int32](r) = int32(v)
	case ctype.Int64:
		*valueAt[int64](r) = v
	default:
		r.SetFloat(float64(v))
	}
}

// SetBool sets the referenced value to 1 or 0.
func (r Ref) SetBool(v bool) {
	if v {
		r.SetFloat(1)
	} else {
		r.SetFloat(0)
	}
}

// Add v to the referenced value.
func (r Ref) Add(v float64) {
	if r.arr.typ.IsInt() {
		r.SetInt(r.Int() + int64(v))
		return
	}
	r.SetFloat(r.Float() + v)
}

// String representation of the referenced value.
func (r Ref) String() string {
	switch {
	case r.arr.typ.IsBool():
		return fmt.Sprint(r.Bool())
	case r.arr.typ.IsInt():
		return fmt.Sprint(r.Int())
	}
	return fmt.Sprint(r.Float())
}
