package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"minitalk/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:TEST-TOKEN"

// signInitData produces a correctly-signed initData string the way the
// Telegram client would.
func signInitData(t *testing.T, botToken string, fields map[string]string) string {
	t.Helper()

	pairs := make([]string, 0, len(fields))
	for key, value := range fields {
		pairs = append(pairs, key+"="+value)
	}
	sort.Strings(pairs)

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(botToken))

	mac := hmac.New(sha256.New, secretMac.Sum(nil))
	mac.Write([]byte(strings.Join(pairs, "\n")))

	values := url.Values{}
	for key, value := range fields {
		values.Set(key, value)
	}
	values.Set("hash", hex.EncodeToString(mac.Sum(nil)))

	return values.Encode()
}

func TestVerifyInitData(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	freshAuthDate := fmt.Sprintf("%d", now.Add(-time.Minute).Unix())
	userJSON := `{"id":987654321,"first_name":"Alice","last_name":"W","username":"alicew","language_code":"en"}`

	t.Run("valid data yields the caller identity", func(t *testing.T) {
		initData := signInitData(t, testBotToken, map[string]string{
			"auth_date": freshAuthDate,
			"user":      userJSON,
			"query_id":  "AAE1",
		})

		sc, err := VerifyInitData(initData, testBotToken, models.PlatformTelegramWeb, 24*time.Hour, now)
		require.NoError(t, err)
		assert.Equal(t, "987654321", sc.UserID)
		assert.Equal(t, int64(987654321), sc.TelegramID)
		assert.Equal(t, "Alice W", sc.Name)
		assert.Equal(t, "alicew", sc.Username)
		assert.Equal(t, "en", sc.LanguageCode)
		assert.Equal(t, models.PlatformTelegramWeb, sc.Platform)
	})

	t.Run("tampered payload is rejected", func(t *testing.T) {
		initData := signInitData(t, testBotToken, map[string]string{
			"auth_date": freshAuthDate,
			"user":      userJSON,
		})
		tampered := strings.Replace(initData, "Alice", "Mallory", 1)

		_, err := VerifyInitData(tampered, testBotToken, "", 24*time.Hour, now)
		assert.ErrorIs(t, err, ErrInvalidInitData)
	})

	t.Run("wrong bot token is rejected", func(t *testing.T) {
		initData := signInitData(t, "999:OTHER-TOKEN", map[string]string{
			"auth_date": freshAuthDate,
			"user":      userJSON,
		})

		_, err := VerifyInitData(initData, testBotToken, "", 24*time.Hour, now)
		assert.ErrorIs(t, err, ErrInvalidInitData)
	})

	t.Run("missing hash is rejected", func(t *testing.T) {
		_, err := VerifyInitData("auth_date="+freshAuthDate, testBotToken, "", 24*time.Hour, now)
		assert.ErrorIs(t, err, ErrInvalidInitData)
	})

	t.Run("stale auth_date is rejected", func(t *testing.T) {
		initData := signInitData(t, testBotToken, map[string]string{
			"auth_date": fmt.Sprintf("%d", now.Add(-48*time.Hour).Unix()),
			"user":      userJSON,
		})

		_, err := VerifyInitData(initData, testBotToken, "", 24*time.Hour, now)
		assert.ErrorIs(t, err, ErrExpiredInitData)
	})

	t.Run("zero max age disables the expiry check", func(t *testing.T) {
		initData := signInitData(t, testBotToken, map[string]string{
			"auth_date": fmt.Sprintf("%d", now.Add(-48*time.Hour).Unix()),
			"user":      userJSON,
		})

		_, err := VerifyInitData(initData, testBotToken, "", 0, now)
		assert.NoError(t, err)
	})

	t.Run("garbage user payload is rejected", func(t *testing.T) {
		initData := signInitData(t, testBotToken, map[string]string{
			"auth_date": freshAuthDate,
			"user":      "not-json",
		})

		_, err := VerifyInitData(initData, testBotToken, "", 24*time.Hour, now)
		assert.ErrorIs(t, err, ErrInvalidInitData)
	})

	t.Run("default platform is telegram mobile", func(t *testing.T) {
		initData := signInitData(t, testBotToken, map[string]string{
			"auth_date": freshAuthDate,
			"user":      userJSON,
		})

		sc, err := VerifyInitData(initData, testBotToken, "", 24*time.Hour, now)
		require.NoError(t, err)
		assert.Equal(t, models.PlatformTelegramMobile, sc.Platform)
	})
}
