package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClientTime(t *testing.T) {
	got, err := parseClientTime(nil)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseClientTime("2026-08-30T12:30:00Z")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(time.Date(2026, 8, 30, 12, 30, 0, 0, time.UTC)))

	// JSON numbers decode as float64; millisecond stamps are the common
	// client shape.
	got, err = parseClientTime(float64(1756556400000))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1756556400), got.Unix())

	// Second-resolution stamps normalize too.
	got, err = parseClientTime(float64(1756556400))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(1756556400), got.Unix())

	_, err = parseClientTime("five minutes ago")
	assert.Error(t, err)

	_, err = parseClientTime(map[string]interface{}{"seconds": 1})
	assert.Error(t, err)
}
