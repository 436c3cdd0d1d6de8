// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ltree

// MergeWith merges two maps over possibly overlapping key sets in linear
// time. Keys present only in left go through onlyLeft, keys present only in
// right go through onlyRight and keys present in both go through both.
//
// Example:
//
//	MergeWith(map[string]int{"a": 1, "b": 2}, map[string]int{"b": 3, "c": 4},
//	    id, id, func(x, y int) int { return x + y })
//	// map[a:1 b:5 c:4]
func MergeWith[K comparable, A, B, C any](
	left map[K]A,
	right map[K]B,
	onlyLeft func(A) C,
	onlyRight func(B) C,
	both func(A, B) C,
) map[K]C {
	out := make(map[K]C, max(len(left), len(right)))
	for k, a := range left {
		if b, ok := right[k]; ok {
			out[k] = both(a, b)
		} else {
			out[k] = onlyLeft(a)
		}
	}
	for k, b := range right {
		if _, ok := left[k]; !ok {
			out[k] = onlyRight(b)
		}
	}
	return out
}
