package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
)

func TestUserLookupError(t *testing.T) {
	err := userLookupError(mongo.ErrNoDocuments)
	assert.True(t, errors.Is(err, ErrUserNotFound))

	// Callers wrap before reporting; the sentinel must survive.
	wrapped := fmt.Errorf("load profile: %w", err)
	assert.True(t, errors.Is(wrapped, ErrUserNotFound))

	other := userLookupError(fmt.Errorf("connection reset"))
	require.Error(t, other)
	assert.False(t, errors.Is(other, ErrUserNotFound))
}
