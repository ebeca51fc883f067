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
	"slices"

	"golang.org/x/sync/errgroup"
)

// keys stores the coordinates of all the records in storage order, one row
// of order coordinates per record.
type keys struct {
	order int
	vals  []int32
}

func (k keys) row(i int) []int32 {
	return k.vals[i*k.order : (i+1)*k.order]
}

// compare two records by lexicographic order of their coordinates.
func (k keys) compare(a, b int) int {
	return slices.Compare(k.row(a), k.row(b))
}

// sortRecords sorts a permutation of records. The sort is stable.
// Above threshold records, chunks of the permutation are sorted by
// concurrent workers before being merged.
func sortRecords(k keys, perm []int, workers, threshold int) error {
	if workers <= 1 || len(perm) <= threshold {
		slices.SortStableFunc(perm, k.compare)
		return nil
	}
	// bounds[i] is the start of the i-th sorted run of perm.
	chunk := (len(perm) + workers - 1) / workers
	var bounds []int
	for start := 0; start < len(perm); start += chunk {
		bounds = append(bounds, start)
	}
	bounds = append(bounds, len(perm))
	var g errgroup.Group
	g.SetLimit(workers)
	for i := range len(bounds) - 1 {
		run := perm[bounds[i]:bounds[i+1]]
		g.Go(func() error {
			slices.SortStableFunc(run, k.compare)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	scratch := make([]int, len(perm))
	for len(bounds) > 2 {
		next := []int{0}
		var g errgroup.Group
		g.SetLimit(workers)
		for i := 0; i+1 < len(bounds); i += 2 {
			if i+2 >= len(bounds) {
				next = append(next, bounds[i+1])
				break
			}
			lo, mid, hi := bounds[i], bounds[i+1], bounds[i+2]
			g.Go(func() error {
				merge(scratch[lo:hi], perm[lo:mid], perm[mid:hi], k.compare)
				copy(perm[lo:hi], scratch[lo:hi])
				return nil
			})
			next = append(next, hi)
		}
		if err := g.Wait(); err != nil {
			return err
		}
		bounds = next
	}
	return nil
}

// merge two sorted runs into dst. On equal keys, records of the left run
// come first.
func merge(dst, left, right []int, compare func(a, b int) int) {
	i, j := 0, 0
	for k := range dst {
		if j == len(right) || (i < len(left) && compare(left[i], right[j]) <= 0) {
			dst[k] = left[i]
			i++
		} else {
			dst[k] = right[j]
			j++
		}
	}
}
