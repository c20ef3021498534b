package xslices

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMap(t *testing.T) {
	assert.Equal(t, []int{2, 4, 6}, Map([]int{1, 2, 3}, func(v int) int { return 2 * v }))
	assert.Empty(t, Map(nil, func(v int) int { return v }))
}

func TestMax(t *testing.T) {
	assert.Equal(t, 7, Max([]int{3, 7, 1}))
	assert.Equal(t, 0, Max[int](nil))
	assert.Equal(t, -1, Max([]int{-5, -1, -3}))
}

func TestIotaAndFill(t *testing.T) {
	assert.Equal(t, []float32{2, 3, 4}, Iota(float32(2), 3))
	assert.Equal(t, []int{9, 9}, Fill(2, 9))
}
