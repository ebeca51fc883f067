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

import (
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/storage"
)

func (t Tensor) checkCompressed(name string, want format.Format) error {
	if !t.Format().Equal(want) {
		return fmterr.Usagef("tensor %s: format %s is not %s %s", t.Name(), t.Format(), name, want)
	}
	if t.Type() != ctype.Double {
		return fmterr.Usagef("tensor %s: %s requires %s components but got %s", t.Name(), name, ctype.Double, t.Type())
	}
	return nil
}

func (t Tensor) setCompressed(name string, f format.Format, vals []float64, ptr, idx []int32) error {
	if err := t.checkCompressed(name, f); err != nil {
		return err
	}
	return t.c.storage.SetCompressed(storage.CompressedView{Values: vals, Ptr: ptr, Idx: idx})
}

func (t Tensor) compressed(name string, f format.Format) (vals []float64, ptr, idx []int32, err error) {
	if err = t.checkCompressed(name, f); err != nil {
		return
	}
	var view storage.CompressedView
	view, err = t.c.storage.Compressed()
	return view.Values, view.Ptr, view.Idx, err
}

// SetCSR sets the arrays of a tensor stored in the CSR format.
// The slices are not copied: the tensor reads and writes the memory of
// the caller, which must stay valid while the tensor uses it.
func (t Tensor) SetCSR(vals []float64, rowPtr, colIdx []int32) error {
	return t.setCompressed("CSR", format.CSR(), vals, rowPtr, colIdx)
}

// CSR returns the arrays of a tensor stored in the CSR format.
// The slices alias the storage of the tensor.
func (t Tensor) CSR() (vals []float64, rowPtr, colIdx []int32, err error) {
	return t.compressed("CSR", format.CSR())
}

// SetCSC sets the arrays of a tensor stored in the CSC format.
// The slices are not copied: the tensor reads and writes the memory of
// the caller, which must stay valid while the tensor uses it.
func (t Tensor) SetCSC(vals []float64, colPtr, rowIdx []int32) error {
	return t.setCompressed("CSC", format.CSC(), vals, colPtr, rowIdx)
}

// CSC returns the arrays of a tensor stored in the CSC format.
// The slices alias the storage of the tensor.
func (t Tensor) CSC() (vals []float64, colPtr, rowIdx []int32, err error) {
	return t.compressed("CSC", format.CSC())
}
