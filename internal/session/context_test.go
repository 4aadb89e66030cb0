package session

import (
	"strings"
	"testing"

	"minitalk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromTelegram(t *testing.T) {
	sc := FromTelegram(42, "Alice", "alicew", "en", models.PlatformTelegramWeb)

	assert.Equal(t, "42", sc.UserID)
	assert.Equal(t, int64(42), sc.TelegramID)
	assert.Equal(t, models.PlatformTelegramWeb, sc.Platform)
	assert.False(t, sc.Development)

	// Platform defaults when the client doesn't report one.
	sc = FromTelegram(42, "Alice", "", "", "")
	assert.Equal(t, models.PlatformTelegramMobile, sc.Platform)
}

func TestNewDevContext(t *testing.T) {
	a := NewDevContext("")
	b := NewDevContext("Tester")

	assert.Equal(t, "Guest", a.Name)
	assert.Equal(t, "Tester", b.Name)
	assert.True(t, strings.HasPrefix(a.UserID, "dev-"))
	assert.NotEqual(t, a.UserID, b.UserID)
	assert.True(t, a.Development)
}

func TestIdentity(t *testing.T) {
	sc := FromTelegram(42, "Alice", "alicew", "en", "")
	id := sc.Identity()
	require.NotNil(t, id)
	assert.Equal(t, int64(42), id.TelegramID)
	assert.Equal(t, "alicew", id.Username)

	dev := NewDevContext("x")
	assert.Nil(t, dev.Identity())
}
