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

package tio

import (
	"bufio"
	"io"

	"github.com/pkg/errors"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/tensor"
)

type tnsCodec struct{}

// read parses one entry per line. The size of each dimension is the
// largest coordinate found for that dimension.
func (tnsCodec) read(r io.Reader, name string, f format.Format, opts []tensor.Option) (tensor.Tensor, error) {
	s := newLineScanner(r, "#")
	order := -1
	var coords []int
	var values []float64
	var dims []int
	for {
		fields, ok := s.next()
		if !ok {
			break
		}
		if order < 0 {
			order = len(fields) - 1
			dims = make([]int, order)
		}
		if len(fields) != order+1 {
			return tensor.Tensor{}, s.errorf("got %d fields but want %d", len(fields), order+1)
		}
		for i, field := range fields[:order] {
			c, err := s.coordinate(field)
			if err != nil {
				return tensor.Tensor{}, err
			}
			coords = append(coords, c)
			dims[i] = max(dims[i], c+1)
		}
		v, err := s.value(fields[order])
		if err != nil {
			return tensor.Tensor{}, err
		}
		values = append(values, v)
	}
	if err := s.err(); err != nil {
		return tensor.Tensor{}, err
	}
	if order < 0 {
		return tensor.Tensor{}, fmterr.Usagef("no entry to read tensor %s", name)
	}
	sf, err := storageFormat(f, order)
	if err != nil {
		return tensor.Tensor{}, errors.Wrapf(err, "tensor %s", name)
	}
	t, err := tensor.New(name, ctype.Double, dims, sf, opts...)
	if err != nil {
		return tensor.Tensor{}, err
	}
	for i, v := range values {
		if err := t.Insert(coords[i*order:(i+1)*order], v); err != nil {
			return tensor.Tensor{}, err
		}
	}
	return t, t.Pack()
}

func (tnsCodec) write(w io.Writer, t tensor.Tensor) error {
	entries, err := t.Entries()
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	for coords, val := range entries {
		if v := val.Float(); v != 0 {
			writeEntry(bw, coords, v)
		}
	}
	return errors.WithStack(bw.Flush())
}
