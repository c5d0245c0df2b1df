// Package util holds small comparison helpers shared by tests.
package util

import (
	"fmt"
	"sort"
)

// EqualSlices reports whether a and b hold equal elements under equal.
// With ignoreOrder the slices are compared as multisets, ordered by their
// fmt representation.
func EqualSlices[T any](a, b []T, equal func(x, y T) bool, ignoreOrder bool) bool {
	if len(a) != len(b) {
		return false
	}

	if ignoreOrder {
		a = sortedByPrint(a)
		b = sortedByPrint(b)
	}

	for i := range a {
		if !equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

func sortedByPrint[T any](in []T) []T {
	out := append([]T(nil), in...)
	sort.Slice(out, func(i, j int) bool {
		return fmt.Sprint(out[i]) < fmt.Sprint(out[j])
	})
	return out
}
