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

// Package tensor implements tensors: the staging of their entries, the
// packing of the entries into a format, and the execution of the routines
// computing a tensor from an index notation expression.
//
// A tensor is a handle on shared content. Copies of a tensor share the same
// content and compare equal with ==. Tensors are not safe for concurrent use.
package tensor

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/gx-org/backend/shape"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/base/uname"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/golang/backend"
	"github.com/gx-org/sptensor/ir"
	"github.com/gx-org/sptensor/pack"
	"github.com/gx-org/sptensor/storage"
)

// DefaultAllocSize is the default number of elements allocated for the
// variable-length index arrays of a result.
const DefaultAllocSize = 1 << 20

type content struct {
	name    string
	typ     ctype.Type
	shape   shape.Shape
	storage storage.Storage
	buffer  *pack.Buffer

	indexVars []*IndexVar
	expr      Expr
	state     State

	allocSize int
	packOpts  pack.Options
	module    backend.Module
	lowerer   Lowerer
	logger    *slog.Logger

	routines     [2]string
	assembleFunc *ir.Function
	computeFunc  *ir.Function
	args         backend.Arguments
}

// Tensor is a handle on a tensor.
type Tensor struct {
	c *content
}

// New returns a new tensor. A unique name is generated if name is empty.
func New(name string, typ ctype.Type, dims []int, f format.Format, opts ...Option) (Tensor, error) {
	if name == "" {
		name = uname.Name('A')
	}
	if !typ.Valid() || typ.IsBool() {
		return Tensor{}, fmterr.Usagef("tensor %s: component type %s not supported", name, typ)
	}
	if err := f.Validate(len(dims)); err != nil {
		return Tensor{}, errors.Wrapf(err, "tensor %s", name)
	}
	for i, dim := range dims {
		if dim < 0 {
			return Tensor{}, fmterr.Usagef("tensor %s: dimension %d has a negative size %d", name, i, dim)
		}
	}
	c := &content{
		name: name,
		typ:  typ,
		shape: shape.Shape{
			DType:       typ.DType(),
			AxisLengths: append([]int{}, dims...),
		},
		storage:   storage.New(f),
		buffer:    pack.NewBuffer(len(dims), typ),
		allocSize: DefaultAllocSize,
		packOpts:  pack.DefaultOptions(),
		module:    backend.New(),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.allocSize <= 0 {
		return Tensor{}, fmterr.Usagef("tensor %s: invalid alloc size %d", name, c.allocSize)
	}
	setDenseSizes(c.storage, dims)
	return Tensor{c: c}, nil
}

// setDenseSizes allocates the ptr arrays of the dense levels of a storage.
// Dense levels store the size of their dimension.
func setDenseSizes(s storage.Storage, dims []int) {
	for i, level := range s.Format().Levels() {
		if level.Type != format.Dense {
			continue
		}
		ptr := storage.NewArray(storage.IndexType, 1)
		ptr.Get(0).SetInt(int64(dims[level.Dimension]))
		s.SetLevelIndex(i, storage.LevelIndex{Ptr: ptr})
	}
}

// NewScalar returns a new tensor of order 0.
func NewScalar(name string, typ ctype.Type, opts ...Option) (Tensor, error) {
	return New(name, typ, nil, format.New(), opts...)
}

// Valid returns true if the tensor has been created by New.
func (t Tensor) Valid() bool {
	return t.c != nil
}

// Name of the tensor.
func (t Tensor) Name() string {
	return t.c.name
}

// Order returns the number of dimensions of the tensor.
func (t Tensor) Order() int {
	return len(t.c.shape.AxisLengths)
}

// Dims returns the size of each dimension. The returned slice must not be
// modified.
func (t Tensor) Dims() []int {
	return t.c.shape.AxisLengths
}

// Shape returns the shape of the tensor.
func (t Tensor) Shape() shape.Shape {
	return t.c.shape
}

// Type returns the component type of the tensor.
func (t Tensor) Type() ctype.Type {
	return t.c.typ
}

// Format of the tensor.
func (t Tensor) Format() format.Format {
	return t.c.storage.Format()
}

// Storage of the tensor.
func (t Tensor) Storage() storage.Storage {
	return t.c.storage
}

// SetStorage replaces the storage of the tensor.
// The format of the storage must be the format of the tensor.
// The tensor becomes a holder of the storage and drops its previous storage.
func (t Tensor) SetStorage(s storage.Storage) error {
	if !s.Format().Equal(t.Format()) {
		return fmterr.Usagef("tensor %s: cannot set a storage of format %s to a tensor of format %s", t.Name(), s.Format(), t.Format())
	}
	if s != t.c.storage {
		t.adopt(s.Retain())
	}
	return nil
}

// adopt replaces the storage of the tensor by a storage the tensor already
// holds.
func (t Tensor) adopt(s storage.Storage) {
	t.c.storage.Release()
	t.c.storage = s
}

// SetFormat changes the format of a declared tensor.
// Packed entries are packed again in the new format. Staged entries are left
// to the next Pack.
func (t Tensor) SetFormat(f format.Format) error {
	if err := t.checkState("set the format", Declared); err != nil {
		return err
	}
	if err := f.Validate(t.Order()); err != nil {
		return errors.Wrapf(err, "tensor %s", t.Name())
	}
	if t.c.storage.Values() != nil {
		return t.repack(f)
	}
	if t.c.storage.Holders() == 1 {
		t.c.storage.SetFormat(f)
	} else {
		t.adopt(storage.New(f))
	}
	setDenseSizes(t.c.storage, t.Dims())
	t.c.logger.Debug("format", "tensor", t.Name(), "format", f.String())
	return nil
}

func (t Tensor) repack(f format.Format) error {
	it, err := t.Entries()
	if err != nil {
		return err
	}
	buf := pack.NewBuffer(t.Order(), t.c.typ)
	entries := 0
	for coords, val := range it {
		v := val.Float()
		if v == 0 {
			continue
		}
		if err := buf.Insert(coords, v); err != nil {
			return err
		}
		entries++
	}
	s, packed, err := pack.Pack(buf, t.Dims(), f, t.c.packOpts)
	if err != nil {
		return errors.Wrapf(err, "tensor %s", t.Name())
	}
	if !packed {
		s = storage.New(f)
		setDenseSizes(s, t.Dims())
	}
	t.adopt(s)
	t.c.logger.Debug("format", "tensor", t.Name(), "format", f.String(), "entries", entries)
	return nil
}

// AllocSize returns the number of elements allocated for variable-length
// index arrays.
func (t Tensor) AllocSize() int {
	return t.c.allocSize
}

// Module returns the module in which the routines of the tensor are compiled.
func (t Tensor) Module() backend.Module {
	return t.c.module
}

// IndexVars returns the index variables of the result of the expression.
func (t Tensor) IndexVars() []*IndexVar {
	return t.c.indexVars
}

// SetIndexVars sets the index variables of the result of the expression.
func (t Tensor) SetIndexVars(vars ...*IndexVar) error {
	if len(vars) != t.Order() {
		return fmterr.Usagef("tensor %s of order %d given %d index variables", t.Name(), t.Order(), len(vars))
	}
	t.c.indexVars = vars
	return nil
}

// Expr returns the expression assigned to the tensor.
func (t Tensor) Expr() Expr {
	return t.c.expr
}

// Insert an entry into the tensor. Entries are staged until the tensor is
// packed.
func (t Tensor) Insert(coords []int, value float64) error {
	if len(coords) != t.Order() {
		return fmterr.Usagef("tensor %s of order %d: got %d coordinates", t.Name(), t.Order(), len(coords))
	}
	for i, c := range coords {
		if dim := t.Dims()[i]; c < 0 || c >= dim {
			return fmterr.Usagef("tensor %s: coordinate %d at dimension %d out of range [0,%d)", t.Name(), c, i, dim)
		}
	}
	return t.c.buffer.Insert(coords, value)
}

// Pending returns the number of entries inserted but not packed yet.
func (t Tensor) Pending() int {
	n, err := t.c.buffer.Records()
	if err != nil {
		return 0
	}
	return n
}

// Pack the inserted entries into the storage of the tensor.
func (t Tensor) Pack() error {
	entries := t.Pending()
	s, packed, err := pack.Pack(t.c.buffer, t.Dims(), t.Format(), t.c.packOpts)
	if err != nil {
		return errors.Wrapf(err, "tensor %s", t.Name())
	}
	if !packed {
		return nil
	}
	t.adopt(s)
	t.c.logger.Debug("pack", "tensor", t.Name(), "entries", entries, "values", s.Values().Len())
	return nil
}

// PackOperands packs all the operands of the expression assigned to the tensor.
func (t Tensor) PackOperands() error {
	for _, operand := range Operands(t.c.expr) {
		if err := operand.Pack(); err != nil {
			return err
		}
	}
	return nil
}

// String representation of the tensor: its dimensions, format, staged
// entries, and storage.
func (t Tensor) String() string {
	var b strings.Builder
	dims := make([]string, t.Order())
	for i, dim := range t.Dims() {
		dims[i] = strconv.Itoa(dim)
	}
	fmt.Fprintf(&b, "%s (%s) %s:\n", t.Name(), strings.Join(dims, "x"), t.Format())
	for i := range t.Pending() {
		coords, val := t.c.buffer.Record(i)
		strs := make([]string, len(coords))
		for d, c := range coords {
			strs[d] = strconv.Itoa(c)
		}
		fmt.Fprintf(&b, "(%s): %v\n", strings.Join(strs, ","), val)
	}
	b.WriteString(t.c.storage.String())
	return b.String()
}
