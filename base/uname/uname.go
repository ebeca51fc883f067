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

// Package uname provides unique names for tensors declared without a name.
package uname

import (
	"fmt"
	"sync"
)

// Unique generates unique names from a one-letter prefix.
type Unique struct {
	mut  sync.Mutex
	next map[rune]int
}

// New name generator.
func New() *Unique {
	return &Unique{next: make(map[rune]int)}
}

// Name returns the next unused name for a prefix, that is
// the prefix followed by a counter starting at 0.
func (n *Unique) Name(prefix rune) string {
	n.mut.Lock()
	defer n.mut.Unlock()
	index := n.next[prefix]
	n.next[prefix] = index + 1
	return fmt.Sprintf("%c%d", prefix, index)
}

var global = New()

// Name returns a unique name from the process-wide generator.
func Name(prefix rune) string {
	return global.Name(prefix)
}
