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

package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/gx-org/sptensor/base/fmterr"
	"github.com/gx-org/sptensor/config"
	"github.com/gx-org/sptensor/ctype"
	"github.com/gx-org/sptensor/format"
	"github.com/gx-org/sptensor/tensor"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default configuration is invalid: %v", err)
	}
	if got, want := cfg.AllocSize, tensor.DefaultAllocSize; got != want {
		t.Errorf("got alloc size %d but want %d", got, want)
	}
	if got, want := cfg.Duplicates, "sum"; got != want {
		t.Errorf("got duplicate policy %q but want %q", got, want)
	}
}

func TestLoad(t *testing.T) {
	want := config.Default()
	want.AllocSize = 64
	want.Duplicates = "keep-last"
	want.LogLevel = "debug"
	want.LogFormat = config.JSONFormat
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "cfg.yaml",
			content: `
alloc_size: 64
duplicates: keep-last
log_level: debug
log_format: json
`,
		},
		{
			name: "cfg.toml",
			content: `
alloc_size = 64
duplicates = "keep-last"
log_level = "debug"
log_format = "json"
`,
		},
	}
	for _, test := range tests {
		got, err := config.Load(writeFile(t, test.name, test.content))
		if err != nil {
			t.Errorf("%s: %+v", test.name, err)
			continue
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s: unexpected configuration:\n%s", test.name, diff)
		}
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"cfg.json", "{}"},
		{"cfg.yml", "alloc_size: -1\n"},
		{"cfg.yml", "duplicates: max\n"},
		{"cfg.toml", "log_level = \"verbose\"\n"},
		{"cfg.toml", "log_format = \"xml\"\n"},
		{"cfg.toml", "sort_workers = 0\n"},
		{"cfg.yaml", "alloc_size: [\n"},
	}
	for _, test := range tests {
		_, err := config.Load(writeFile(t, test.name, test.content))
		if !fmterr.IsUsage(err) {
			t.Errorf("%s %q: got error %v but want a usage error", test.name, test.content, err)
		}
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.LogFormat = config.JSONFormat
	logger := cfg.Logger(&buf)
	logger.Debug("hidden")
	logger.Info("shown", "tensor", "A")
	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("debug record %q written at info level", got)
	}
	if !strings.Contains(got, `"tensor":"A"`) {
		t.Errorf("got %q but want a JSON record", got)
	}
}

func TestTensorOptions(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Default()
	cfg.AllocSize = 8
	cfg.Duplicates = "reject"
	cfg.LogLevel = "debug"
	opts, err := cfg.TensorOptions(&buf)
	if err != nil {
		t.Fatal(err)
	}
	a, err := tensor.New("A", ctype.Double, []int{4}, format.AllSparse(1), opts...)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := a.AllocSize(), 8; got != want {
		t.Errorf("got alloc size %d but want %d", got, want)
	}
	for range 2 {
		if err := a.Insert([]int{1}, 1); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Pack(); !fmterr.IsUsage(err) {
		t.Errorf("got error %v but want a usage error for duplicated entries", err)
	}
	cfg.Duplicates = "sum"
	if opts, err = cfg.TensorOptions(&buf); err != nil {
		t.Fatal(err)
	}
	b, err := tensor.New("B", ctype.Double, []int{4}, format.AllSparse(1), opts...)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Insert([]int{2}, 1); err != nil {
		t.Fatal(err)
	}
	if err := b.Pack(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "tensor=B") {
		t.Errorf("log %q does not contain the pack of B", buf.String())
	}
	cfg.SortWorkers = -1
	if _, err := cfg.TensorOptions(&buf); !fmterr.IsUsage(err) {
		t.Errorf("got error %v but want a usage error", err)
	}
}
