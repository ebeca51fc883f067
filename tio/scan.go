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
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/gx-org/sptensor/base/fmterr"
)

const maxLineSize = 1 << 20

// lineScanner reads whitespace separated fields line by line, skipping
// empty lines and comments.
type lineScanner struct {
	s       *bufio.Scanner
	comment string
	line    int
}

func newLineScanner(r io.Reader, comment string) *lineScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &lineScanner{s: s, comment: comment}
}

// raw returns the next line without skipping comments.
func (s *lineScanner) raw() (string, bool) {
	if !s.s.Scan() {
		return "", false
	}
	s.line++
	return s.s.Text(), true
}

// next returns the fields of the next line holding data.
func (s *lineScanner) next() ([]string, bool) {
	for {
		text, ok := s.raw()
		if !ok {
			return nil, false
		}
		text = strings.TrimSpace(text)
		if text == "" || strings.HasPrefix(text, s.comment) {
			continue
		}
		return strings.Fields(text), true
	}
}

func (s *lineScanner) err() error {
	return errors.WithStack(s.s.Err())
}

func (s *lineScanner) errorf(format string, a ...any) error {
	return fmterr.Usagef("line %d: "+format, append([]any{s.line}, a...)...)
}

// coordinate parses a 1-based coordinate and returns it 0-based.
func (s *lineScanner) coordinate(field string) (int, error) {
	c, err := strconv.Atoi(field)
	if err != nil {
		return 0, s.errorf("invalid coordinate %q", field)
	}
	if c < 1 {
		return 0, s.errorf("coordinate %d is not strictly positive", c)
	}
	return c - 1, nil
}

func (s *lineScanner) value(field string) (float64, error) {
	v, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, s.errorf("invalid value %q", field)
	}
	return v, nil
}

func writeEntry(w *bufio.Writer, coords []int, value float64) {
	for _, c := range coords {
		w.WriteString(strconv.Itoa(c + 1))
		w.WriteByte(' ')
	}
	w.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
	w.WriteByte('\n')
}
