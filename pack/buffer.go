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

package pack

import (
	"encoding/binary"
	"math"

	"fortio.org/safecast"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
)

const coordBytes = 4

// Buffer stores entries inserted into a tensor before they are packed.
//
// Each entry is stored as a fixed-size record: the coordinates of the entry
// in the declared order of the dimensions, as int32, followed by the value
// of the entry. Records use the native byte order.
type Buffer struct {
	order int
	typ   ctype.Type
	data  []byte
}

// NewBuffer returns an empty buffer for a tensor given its order and
// component type.
func NewBuffer(order int, typ ctype.Type) *Buffer {
	return &Buffer{order: order, typ: typ}
}

// Order returns the number of coordinates of each record.
func (b *Buffer) Order() int {
	return b.order
}

// Type of the values in the buffer.
func (b *Buffer) Type() ctype.Type {
	return b.typ
}

// RecordSize returns the number of bytes of a record.
func (b *Buffer) RecordSize() int {
	return b.order*coordBytes + b.typ.Bytes()
}

// Insert appends an entry to the buffer.
func (b *Buffer) Insert(coords []int, value float64) error {
	if len(coords) != b.order {
		return fmterr.Usagef("got %d coordinates but want %d", len(coords), b.order)
	}
	if !b.typ.Valid() || b.typ.IsBool() {
		return fmterr.Usagef("cannot insert a value into a buffer of %s", b.typ)
	}
	for i, c := range coords {
		if c32, err := safecast.Conv[int32](c); err != nil || c32 < 0 {
			return fmterr.Usagef("coordinate %d at dimension %d cannot be stored", c, i)
		}
	}
	for _, c := range coords {
		b.data = binary.NativeEndian.AppendUint32(b.data, uint32(c))
	}
	switch b.typ {
	case ctype.Int:
		b.data = binary.NativeEndian.AppendUint32(b.data, uint32(int32(value)))
	case ctype.Int64:
		b.data = binary.NativeEndian.AppendUint64(b.data, uint64(int64(value)))
	case ctype.Float:
		b.data = binary.NativeEndian.AppendUint32(b.data, math.Float32bits(float32(value)))
	case ctype.Double:
		b.data = binary.NativeEndian.AppendUint64(b.data, math.Float64bits(value))
	}
	return nil
}

// Records returns the number of records in the buffer.
func (b *Buffer) Records() (int, error) {
	size := b.RecordSize()
	if len(b.data)%size != 0 {
		return 0, fmterr.Internalf("coordinate buffer of %d bytes is not aligned on records of %d bytes", len(b.data), size)
	}
	return len(b.data) / size, nil
}

// Record returns the coordinates and the value of the i-th record.
func (b *Buffer) Record(i int) ([]int, float64) {
	rec := b.data[i*b.RecordSize():]
	coords := make([]int, b.order)
	for d := range coords {
		coords[d] = int(int32(binary.NativeEndian.Uint32(rec[d*coordBytes:])))
	}
	val := rec[b.order*coordBytes:]
	switch b.typ {
	case ctype.Int:
		return coords, float64(int32(binary.NativeEndian.Uint32(val)))
	case ctype.Int64:
		return coords, float64(int64(binary.NativeEndian.Uint64(val)))
	case ctype.Float:
		return coords, float64(math.Float32frombits(binary.NativeEndian.Uint32(val)))
	case ctype.Double:
		return coords, math.Float64frombits(binary.NativeEndian.Uint64(val))
	}
	return coords, 0
}

// Bytes returns the raw content of the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the number of bytes in the buffer.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Clear removes all the records from the buffer.
func (b *Buffer) Clear() {
	b.data = nil
}
