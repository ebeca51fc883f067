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
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/tensor"
)

// A Rutherford-Boeing file stores a matrix in compressed sparse columns.
// Its header has four lines:
//
//	title (72 columns) and key (8 columns)
//	number of lines of all the data, of the pointers, indices, and values
//	matrix type, number of rows, columns, entries, and elemental entries
//	Fortran formats of the pointers, indices, and values
//
// The header is followed by the 1-based column pointers, the 1-based row
// indices, and the values.
type rbCodec struct{}

const (
	rbLineWidth  = 80
	rbTitleWidth = 72
	rbKeyWidth   = 8
	rbValueFmt   = "(3E26.16)"
)

// fortranFormat is a Fortran edit descriptor such as (10I8) or (3E26.16).
type fortranFormat struct {
	perLine, width int
}

var fortranFormatRE = regexp.MustCompile(`^\((?:\d*P,?)?(\d+)([IEDFG])(\d+)(?:\.\d+)?\)$`)

func parseFortranFormat(s string) (fortranFormat, error) {
	m := fortranFormatRE.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		return fortranFormat{}, fmterr.Usagef("Fortran format %q not supported", s)
	}
	perLine, _ := strconv.Atoi(m[1])
	width, _ := strconv.Atoi(m[3])
	if perLine == 0 || width == 0 {
		return fortranFormat{}, fmterr.Usagef("invalid Fortran format %q", s)
	}
	return fortranFormat{perLine: perLine, width: width}, nil
}

func (ff fortranFormat) intDescriptor() string {
	return fmt.Sprintf("(%dI%d)", ff.perLine, ff.width)
}

// lines returns the number of lines taken by n fields.
func (ff fortranFormat) lines(n int) int {
	return (n + ff.perLine - 1) / ff.perLine
}

// intFormat returns a format for integers up to max.
func intFormat(max int) fortranFormat {
	width := len(strconv.Itoa(max)) + 1
	return fortranFormat{perLine: rbLineWidth / width, width: width}
}

// fortranFields reads n fixed-width fields.
func (s *lineScanner) fortranFields(n int, ff fortranFormat) ([]string, error) {
	fields := make([]string, 0, n)
	for len(fields) < n {
		line, ok := s.raw()
		if !ok {
			if err := s.err(); err != nil {
				return nil, err
			}
			return nil, fmterr.Usagef("got %d fields but want %d", len(fields), n)
		}
		for i := 0; i < ff.perLine && len(fields) < n; i++ {
			begin := i * ff.width
			if begin >= len(line) {
				break
			}
			field := strings.TrimSpace(line[begin:min(begin+ff.width, len(line))])
			if field == "" {
				break
			}
			fields = append(fields, field)
		}
	}
	return fields, nil
}

type rbHeader struct {
	key             string
	pattern         bool
	symmetric       bool
	rows, cols, nnz int
	ptrFmt, indFmt  fortranFormat
	valFmt          fortranFormat
}

func (s *lineScanner) header(i int) (string, error) {
	line, ok := s.raw()
	if !ok {
		if err := s.err(); err != nil {
			return "", err
		}
		return "", fmterr.Usagef("Rutherford-Boeing header truncated at line %d", i)
	}
	return line, nil
}

func readRBHeader(s *lineScanner) (h rbHeader, err error) {
	title, err := s.header(1)
	if err != nil {
		return h, err
	}
	if len(title) > rbTitleWidth {
		h.key = strings.TrimSpace(title[rbTitleWidth:min(len(title), rbTitleWidth+rbKeyWidth)])
	}
	counts, err := s.header(2)
	if err != nil {
		return h, err
	}
	cards, err := s.sizes(strings.Fields(counts))
	if err != nil {
		return h, err
	}
	if len(cards) < 4 {
		return h, s.errorf("got %d line counts but want at least 4", len(cards))
	}
	if len(cards) > 4 && cards[4] > 0 {
		return h, s.errorf("right-hand sides not supported")
	}
	typeLine, err := s.header(3)
	if err != nil {
		return h, err
	}
	if len(typeLine) < 3 {
		return h, s.errorf("missing matrix type")
	}
	if err := h.setType(s, typeLine[:3]); err != nil {
		return h, err
	}
	fields := strings.Fields(typeLine[3:])
	if len(fields) < 3 {
		return h, s.errorf("got %d sizes but want at least 3", len(fields))
	}
	dims, err := s.sizes(fields[:3])
	if err != nil {
		return h, err
	}
	h.rows, h.cols, h.nnz = dims[0], dims[1], dims[2]
	formats, err := s.header(4)
	if err != nil {
		return h, err
	}
	fields = strings.Fields(formats)
	want := 3
	if h.pattern {
		want = 2
	}
	if len(fields) < want {
		return h, s.errorf("got %d Fortran formats but want %d", len(fields), want)
	}
	if h.ptrFmt, err = parseFortranFormat(fields[0]); err != nil {
		return h, errors.Wrapf(err, "line %d", s.line)
	}
	if h.indFmt, err = parseFortranFormat(fields[1]); err != nil {
		return h, errors.Wrapf(err, "line %d", s.line)
	}
	if !h.pattern {
		if h.valFmt, err = parseFortranFormat(fields[2]); err != nil {
			return h, errors.Wrapf(err, "line %d", s.line)
		}
	}
	return h, nil
}

func (h *rbHeader) setType(s *lineScanner, typ string) error {
	typ = strings.ToLower(typ)
	switch typ[0] {
	case 'r', 'i':
	case 'p':
		h.pattern = true
	default:
		return s.errorf("Rutherford-Boeing matrix type %q not supported", typ)
	}
	switch typ[1] {
	case 'u', 'r':
	case 's':
		h.symmetric = true
	default:
		return s.errorf("Rutherford-Boeing matrix type %q not supported", typ)
	}
	if typ[2] != 'a' {
		return s.errorf("Rutherford-Boeing matrix type %q not supported: only assembled matrices are", typ)
	}
	return nil
}

// read a matrix into the CSC format. Other formats are rejected.
func (rbCodec) read(r io.Reader, name string, f format.Format, opts []tensor.Option) (tensor.Tensor, error) {
	if f.Order() == 0 {
		f = format.CSC()
	}
	if !f.Equal(format.CSC()) {
		return tensor.Tensor{}, fmterr.Usagef("tensor %s: Rutherford-Boeing matrices are read in format %s, not %s", name, format.CSC(), f)
	}
	s := newLineScanner(r, "")
	h, err := readRBHeader(s)
	if err != nil {
		return tensor.Tensor{}, err
	}
	if name == "" {
		name = h.key
	}
	ptrs, err := s.fortranFields(h.cols+1, h.ptrFmt)
	if err != nil {
		return tensor.Tensor{}, errors.Wrap(err, "column pointers")
	}
	rows, err := s.fortranFields(h.nnz, h.indFmt)
	if err != nil {
		return tensor.Tensor{}, errors.Wrap(err, "row indices")
	}
	var values []string
	if !h.pattern {
		if values, err = s.fortranFields(h.nnz, h.valFmt); err != nil {
			return tensor.Tensor{}, errors.Wrap(err, "values")
		}
	}
	t, err := tensor.New(name, ctype.Double, []int{h.rows, h.cols}, f, opts...)
	if err != nil {
		return tensor.Tensor{}, err
	}
	begin, err := s.coordinate(ptrs[0])
	if err != nil {
		return tensor.Tensor{}, err
	}
	if begin != 0 {
		return tensor.Tensor{}, fmterr.Usagef("tensor %s: first column pointer is %d but want 1", name, begin+1)
	}
	fortranFloat := strings.NewReplacer("D", "E", "d", "e")
	for col := range h.cols {
		end, err := s.coordinate(ptrs[col+1])
		if err != nil {
			return tensor.Tensor{}, err
		}
		if end < begin || end > h.nnz {
			return tensor.Tensor{}, fmterr.Usagef("tensor %s: column %d ends at %d, outside [%d,%d]", name, col, end+1, begin+1, h.nnz+1)
		}
		for k := begin; k < end; k++ {
			row, err := s.coordinate(rows[k])
			if err != nil {
				return tensor.Tensor{}, err
			}
			v := 1.0
			if !h.pattern {
				if v, err = s.value(fortranFloat.Replace(values[k])); err != nil {
					return tensor.Tensor{}, err
				}
			}
			if err := t.Insert([]int{row, col}, v); err != nil {
				return tensor.Tensor{}, err
			}
			if h.symmetric && row != col {
				if err := t.Insert([]int{col, row}, v); err != nil {
					return tensor.Tensor{}, err
				}
			}
		}
		begin = end
	}
	if begin != h.nnz {
		return tensor.Tensor{}, fmterr.Usagef("tensor %s: got %d entries but the header declares %d", name, begin, h.nnz)
	}
	return t, t.Pack()
}

// write the packed storage of a CSC matrix.
func (rbCodec) write(w io.Writer, t tensor.Tensor) error {
	if !t.Format().Equal(format.CSC()) {
		return fmterr.Usagef("tensor %s of format %s cannot be written as a Rutherford-Boeing matrix: want format %s", t.Name(), t.Format(), format.CSC())
	}
	rows, cols := t.Dims()[0], t.Dims()[1]
	ptr, idx, vals := make([]int, cols+1), []int(nil), []float64(nil)
	if s := t.Storage(); s.Values() != nil {
		li := s.LevelIndex(1)
		for i := range ptr {
			ptr[i] = int(li.Ptr.Get(i).Int())
		}
		idx = make([]int, ptr[cols])
		vals = make([]float64, ptr[cols])
		for k := range idx {
			idx[k] = int(li.Idx.Get(k).Int())
			vals[k] = s.Values().Get(k).Float()
		}
	}
	nnz := len(idx)
	ptrFmt, indFmt := intFormat(nnz+1), intFormat(rows)
	valFmt, err := parseFortranFormat(rbValueFmt)
	if err != nil {
		return err
	}
	ptrLines, indLines, valLines := ptrFmt.lines(len(ptr)), indFmt.lines(nnz), valFmt.lines(nnz)
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%-*s%-*s\n", rbTitleWidth, truncate(t.Name(), rbTitleWidth), rbKeyWidth, truncate(t.Name(), rbKeyWidth))
	fmt.Fprintf(bw, "%14d%14d%14d%14d\n", ptrLines+indLines+valLines, ptrLines, indLines, valLines)
	fmt.Fprintf(bw, "%-14s%14d%14d%14d%14d\n", "rua", rows, cols, nnz, 0)
	fmt.Fprintf(bw, "%-16s%-16s%-20s\n", ptrFmt.intDescriptor(), indFmt.intDescriptor(), rbValueFmt)
	writeFortran(bw, ptrFmt, len(ptr), func(i int) string { return strconv.Itoa(ptr[i] + 1) })
	writeFortran(bw, indFmt, nnz, func(k int) string { return strconv.Itoa(idx[k] + 1) })
	writeFortran(bw, valFmt, nnz, func(k int) string { return strconv.FormatFloat(vals[k], 'E', 16, 64) })
	return errors.WithStack(bw.Flush())
}

func writeFortran(w *bufio.Writer, ff fortranFormat, n int, field func(int) string) {
	for i := range n {
		fmt.Fprintf(w, "%*s", ff.width, field(i))
		if (i+1)%ff.perLine == 0 || i == n-1 {
			w.WriteByte('\n')
		}
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
