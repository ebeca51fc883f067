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

package ctype_test

import (
	"testing"

	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/ctype"
)

var arithmetic = []ctype.Type{ctype.Int, ctype.Int64, ctype.Float, ctype.Double}

func TestPromote(t *testing.T) {
	tests := []struct {
		a, b ctype.Type
		want ctype.Type
	}{
		{a: ctype.Int, b: ctype.Int, want: ctype.Int},
		{a: ctype.Float, b: ctype.Int, want: ctype.Float},
		{a: ctype.Int, b: ctype.Int64, want: ctype.Float},
		{a: ctype.Double, b: ctype.Int, want: ctype.Double},
		{a: ctype.Float, b: ctype.Double, want: ctype.Double},
		{a: ctype.Double, b: ctype.Double, want: ctype.Double},
	}
	for i, test := range tests {
		got, err := ctype.Promote(test.a, test.b)
		if err != nil {
			t.Errorf("test %d: %v", i, err)
			continue
		}
		if got != test.want {
			t.Errorf("test %d: promote(%s,%s) = %s but want %s", i, test.a, test.b, got, test.want)
		}
	}
}

func TestPromoteProperties(t *testing.T) {
	for _, a := range arithmetic {
		self, err := ctype.Promote(a, a)
		if err != nil {
			t.Fatal(err)
		}
		if self != a {
			t.Errorf("promote(%s,%s) = %s but want %s", a, a, self, a)
		}
		dbl, err := ctype.Promote(ctype.Double, a)
		if err != nil {
			t.Fatal(err)
		}
		if dbl != ctype.Double {
			t.Errorf("promote(double,%s) = %s but want double", a, dbl)
		}
		for _, b := range arithmetic {
			ab, _ := ctype.Promote(a, b)
			ba, _ := ctype.Promote(b, a)
			if ab != ba {
				t.Errorf("promote(%s,%s) = %s but promote(%s,%s) = %s", a, b, ab, b, a, ba)
			}
		}
	}
}

func TestPromoteBool(t *testing.T) {
	for _, a := range append(arithmetic, ctype.Bool) {
		for _, pair := range [][2]ctype.Type{{a, ctype.Bool}, {ctype.Bool, a}} {
			_, err := ctype.Promote(pair[0], pair[1])
			if !fmterr.IsInternal(err) {
				t.Errorf("promote(%s,%s): got error %v but want an internal error", pair[0], pair[1], err)
			}
		}
	}
}

func TestBytes(t *testing.T) {
	tests := []struct {
		typ  ctype.Type
		want int
	}{
		{typ: ctype.Int, want: 4},
		{typ: ctype.Int64, want: 8},
		{typ: ctype.Float, want: 4},
		{typ: ctype.Double, want: 8},
		{typ: ctype.Invalid, want: 0},
	}
	for _, test := range tests {
		if got := test.typ.Bytes(); got != test.want {
			t.Errorf("%s: got %d bytes but want %d", test.typ, got, test.want)
		}
	}
}

func TestOf(t *testing.T) {
	if got := ctype.Of[float64](); got != ctype.Double {
		t.Errorf("got %s but want double", got)
	}
	if got := ctype.Of[int32](); got != ctype.Int {
		t.Errorf("got %s but want int", got)
	}
}
