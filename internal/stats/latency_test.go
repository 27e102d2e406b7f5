package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCalculateLatencySummary(t *testing.T) {
	input := []int64{50, 10, 40, 20, 30, 60, 70, 80, 90, 100}
	got := CalculateLatencySummary(input)

	assert.Equal(t, int64(10), got.Min)
	assert.Equal(t, int64(100), got.Max)
	assert.Equal(t, int64(60), got.P50)
	assert.Equal(t, int64(100), got.P90)
	assert.Equal(t, int64(100), got.P99)
	assert.Equal(t, []int64{50, 10, 40, 20, 30, 60, 70, 80, 90, 100}, input, "input must not be reordered")
}

func TestCalculateLatencySummary_Empty(t *testing.T) {
	assert.Equal(t, CalculateLatencySummary(nil), CalculateLatencySummary([]int64{}))
	assert.Zero(t, CalculateLatencySummary(nil).Max)
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]int64{1, 2, 3, 4}), 1e-9)
}
