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
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/tensor"
)

const mtxHeader = "%%MatrixMarket matrix coordinate real general"

type mtxCodec struct{}

type mtxBanner struct {
	symmetric bool
}

func parseBanner(s *lineScanner) (mtxBanner, error) {
	line, ok := s.raw()
	if !ok {
		if err := s.err(); err != nil {
			return mtxBanner{}, err
		}
		return mtxBanner{}, fmterr.Usagef("empty MatrixMarket file")
	}
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) != 5 || fields[0] != "%%matrixmarket" || fields[1] != "matrix" {
		return mtxBanner{}, s.errorf("invalid MatrixMarket banner %q", line)
	}
	if fields[2] != "coordinate" {
		return mtxBanner{}, s.errorf("MatrixMarket %s format not supported", fields[2])
	}
	if fields[3] != "real" && fields[3] != "integer" {
		return mtxBanner{}, s.errorf("MatrixMarket %s field not supported", fields[3])
	}
	var banner mtxBanner
	switch fields[4] {
	case "general":
	case "symmetric":
		banner.symmetric = true
	default:
		return mtxBanner{}, s.errorf("MatrixMarket %s symmetry not supported", fields[4])
	}
	return banner, nil
}

func (s *lineScanner) sizes(fields []string) ([]int, error) {
	sizes := make([]int, len(fields))
	for i, field := range fields {
		n, err := strconv.Atoi(field)
		if err != nil || n < 0 {
			return nil, s.errorf("invalid size %q", field)
		}
		sizes[i] = n
	}
	return sizes, nil
}

func (mtxCodec) read(r io.Reader, name string, f format.Format, opts []tensor.Option) (tensor.Tensor, error) {
	s := newLineScanner(r, "%")
	banner, err := parseBanner(s)
	if err != nil {
		return tensor.Tensor{}, err
	}
	fields, ok := s.next()
	if !ok {
		return tensor.Tensor{}, fmterr.Usagef("missing MatrixMarket size line")
	}
	if len(fields) != 3 {
		return tensor.Tensor{}, s.errorf("got %d sizes but want 3", len(fields))
	}
	sizes, err := s.sizes(fields)
	if err != nil {
		return tensor.Tensor{}, err
	}
	sf, err := storageFormat(f, 2)
	if err != nil {
		return tensor.Tensor{}, errors.Wrapf(err, "tensor %s", name)
	}
	t, err := tensor.New(name, ctype.Double, sizes[:2], sf, opts...)
	if err != nil {
		return tensor.Tensor{}, err
	}
	nnz := 0
	for {
		fields, ok := s.next()
		if !ok {
			break
		}
		if len(fields) != 3 {
			return tensor.Tensor{}, s.errorf("got %d fields but want 3", len(fields))
		}
		row, err := s.coordinate(fields[0])
		if err != nil {
			return tensor.Tensor{}, err
		}
		col, err := s.coordinate(fields[1])
		if err != nil {
			return tensor.Tensor{}, err
		}
		v, err := s.value(fields[2])
		if err != nil {
			return tensor.Tensor{}, err
		}
		if err := t.Insert([]int{row, col}, v); err != nil {
			return tensor.Tensor{}, errors.Wrapf(err, "line %d", s.line)
		}
		if banner.symmetric && row != col {
			if err := t.Insert([]int{col, row}, v); err != nil {
				return tensor.Tensor{}, errors.Wrapf(err, "line %d", s.line)
			}
		}
		nnz++
	}
	if err := s.err(); err != nil {
		return tensor.Tensor{}, err
	}
	if nnz != sizes[2] {
		return tensor.Tensor{}, fmterr.Usagef("tensor %s: got %d entries but the header declares %d", name, nnz, sizes[2])
	}
	return t, t.Pack()
}

func (mtxCodec) write(w io.Writer, t tensor.Tensor) error {
	if t.Order() != 2 {
		return fmterr.Usagef("tensor %s of order %d cannot be written as a MatrixMarket matrix", t.Name(), t.Order())
	}
	entries, err := t.Entries()
	if err != nil {
		return err
	}
	var coords [][]int
	var values []float64
	for c, val := range entries {
		if v := val.Float(); v != 0 {
			coords = append(coords, slices.Clone(c))
			values = append(values, v)
		}
	}
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, mtxHeader)
	fmt.Fprintf(bw, "%d %d %d\n", t.Dims()[0], t.Dims()[1], len(values))
	for i, v := range values {
		writeEntry(bw, coords[i], v)
	}
	return errors.WithStack(bw.Flush())
}
