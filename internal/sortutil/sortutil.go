// Package sortutil holds small deterministic-ordering helpers.
package sortutil

import "sort"

// Sorted returns a new slice containing the input strings sorted
// lexicographically. The original slice is not modified.
func Sorted(items []string) []string {
	out := make([]string, len(items))
	copy(out, items)
	sort.Strings(out)
	return out
}

// Keys returns the keys of m in lexicographic order.
func Keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
