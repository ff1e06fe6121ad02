package utils

import (
	"math/rand"

	"github.com/Blackdeer1524/StorageCore/src/pkg/assert"
)

func Must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}

	return v
}

// GenerateUniqueInts returns n distinct values from [lo, hi) in random order.
func GenerateUniqueInts[T ~uint64 | ~int](n int, lo, hi T) []T {
	assert.Assert(hi > lo, "empty range [%v, %v)", lo, hi)
	assert.Assert(uint64(hi-lo) >= uint64(n), "range [%v, %v) is too small for %d values", lo, hi, n)

	seen := make(map[T]struct{}, n)
	res := make([]T, 0, n)
	for len(res) < n {
		v := lo + T(rand.Int63n(int64(hi-lo)))
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		res = append(res, v)
	}
	return res
}
