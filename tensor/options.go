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
	"log/slog"

	"github.com/gx-org/sptensor/golang/backend"
	"github.com/gx-org/sptensor/storage"
)

// Option of a tensor.
type Option func(*content)

// WithAllocSize sets the number of elements allocated for the
// variable-length index arrays of a result.
func WithAllocSize(n int) Option {
	return func(c *content) {
		c.allocSize = n
	}
}

// WithModule sets the module compiling the routines of the tensor.
func WithModule(m backend.Module) Option {
	return func(c *content) {
		c.module = m
	}
}

// WithLowerer sets the lowerer producing the routines of the tensor.
func WithLowerer(l Lowerer) Option {
	return func(c *content) {
		c.lowerer = l
	}
}

// WithLogger sets the logger of the tensor.
func WithLogger(logger *slog.Logger) Option {
	return func(c *content) {
		c.logger = logger
	}
}

// WithDuplicates sets how entries inserted with the same coordinates
// are packed.
func WithDuplicates(p storage.DuplicatePolicy) Option {
	return func(c *content) {
		c.packOpts.Duplicates = p
	}
}

// WithSortWorkers sets the maximum number of goroutines sorting entries
// when the tensor is packed.
func WithSortWorkers(n int) Option {
	return func(c *content) {
		c.packOpts.SortWorkers = n
	}
}

// WithParallelSortThreshold sets the number of entries above which entries
// are sorted concurrently.
func WithParallelSortThreshold(n int) Option {
	return func(c *content) {
		c.packOpts.ParallelSortThreshold = n
	}
}
