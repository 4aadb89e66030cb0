package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToTime(t *testing.T) {
	ref := time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

	t.Run("time passes through", func(t *testing.T) {
		got, err := ToTime(ref)
		require.NoError(t, err)
		assert.True(t, got.Equal(ref))

		got, err = ToTime(&ref)
		require.NoError(t, err)
		assert.True(t, got.Equal(ref))
	})

	t.Run("nil pointer is an error", func(t *testing.T) {
		var p *time.Time
		_, err := ToTime(p)
		assert.Error(t, err)
	})

	t.Run("RFC3339 strings", func(t *testing.T) {
		got, err := ToTime("2024-06-15T10:30:00Z")
		require.NoError(t, err)
		assert.True(t, got.Equal(ref))

		got, err = ToTime("2024-06-15T10:30:00.500Z")
		require.NoError(t, err)
		assert.Equal(t, 500*int(time.Millisecond), got.Nanosecond())
	})

	t.Run("epoch seconds", func(t *testing.T) {
		got, err := ToTime(ref.Unix())
		require.NoError(t, err)
		assert.True(t, got.Equal(ref))

		got, err = ToTime(int(ref.Unix()))
		require.NoError(t, err)
		assert.True(t, got.Equal(ref))
	})

	t.Run("epoch milliseconds", func(t *testing.T) {
		got, err := ToTime(ref.UnixMilli())
		require.NoError(t, err)
		assert.True(t, got.Equal(ref))

		// JSON numbers arrive as float64
		got, err = ToTime(float64(ref.UnixMilli()))
		require.NoError(t, err)
		assert.True(t, got.Equal(ref))
	})

	t.Run("unknown shapes fail loudly", func(t *testing.T) {
		_, err := ToTime("yesterday at noon")
		assert.Error(t, err)

		_, err = ToTime(map[string]interface{}{"seconds": 12})
		assert.Error(t, err)

		_, err = ToTime(nil)
		assert.Error(t, err)
	})
}
