package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUpdateRunningAverage(t *testing.T) {
	t.Run("first sample becomes the average", func(t *testing.T) {
		assert.Equal(t, 12.0, UpdateRunningAverage(0, 1, 12))
		assert.Equal(t, 12.0, UpdateRunningAverage(99, 0, 12))
	})

	t.Run("folds samples incrementally", func(t *testing.T) {
		avg := UpdateRunningAverage(0, 1, 10)
		avg = UpdateRunningAverage(avg, 2, 20)
		avg = UpdateRunningAverage(avg, 3, 30)
		assert.InDelta(t, 20.0, avg, 1e-9)
	})

	t.Run("matches the arithmetic mean over a sequence", func(t *testing.T) {
		samples := []float64{3, 7, 2, 8, 5, 11}
		var avg float64
		var sum float64
		for i, s := range samples {
			avg = UpdateRunningAverage(avg, int64(i+1), s)
			sum += s
		}
		assert.InDelta(t, sum/float64(len(samples)), avg, 1e-9)
	})
}
