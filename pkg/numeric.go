package advlab

import (
	"sort"

	"golang.org/x/exp/constraints"
)

func abs[T constraints.Signed | constraints.Float](v T) T {
	if v < 0 {
		return -v
	}
	return v
}

func minMax[T constraints.Ordered](values []T) (T, T) {
	var lo, hi T
	for i, v := range values {
		if i == 0 || v < lo {
			lo = v
		}
		if i == 0 || v > hi {
			hi = v
		}
	}
	return lo, hi
}

// argsort returns the indices that sort values ascending, stable for equal
// values.
func argsort[T constraints.Ordered](values []T) []int {
	index := make([]int, len(values))
	for i := range index {
		index[i] = i
	}
	sort.SliceStable(index, func(a, b int) bool {
		return values[index[a]] < values[index[b]]
	})
	return index
}
