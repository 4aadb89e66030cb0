package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"minitalk/internal/config"
	"minitalk/internal/models"
	"minitalk/internal/session"
	"minitalk/internal/utils"
	"minitalk/pkg/database"
	"minitalk/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

var (
	ErrInvalidInitData = errors.New("telegram init data failed verification")
	ErrExpiredInitData = errors.New("telegram init data is too old")
	ErrInvalidToken    = errors.New("invalid or expired session token")
	ErrBadCredentials  = errors.New("invalid username or password")
)

type AuthService struct {
	cfg    *config.Config
	admins *mongo.Collection
	store  *session.Store
}

func NewAuthService(cfg *config.Config, db *mongo.Database, store *session.Store) *AuthService {
	return &AuthService{
		cfg:    cfg,
		admins: db.Collection(database.CollAdmins),
		store:  store,
	}
}

type telegramWebAppUser struct {
	ID           int64  `json:"id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Username     string `json:"username"`
	LanguageCode string `json:"language_code"`
}

// VerifyInitData validates a Telegram WebApp initData string against
// the bot token and returns the caller's identity. The signing scheme
// is Telegram's: secret = HMAC_SHA256(key="WebAppData", bot token),
// signature = HMAC_SHA256(secret, sorted "k=v" lines minus the hash
// field). now is injected so expiry is deterministic under test.
func VerifyInitData(initData, botToken, platform string, maxAge time.Duration, now time.Time) (session.Context, error) {
	values, err := url.ParseQuery(initData)
	if err != nil {
		return session.Context{}, fmt.Errorf("%w: %v", ErrInvalidInitData, err)
	}

	gotHash := values.Get("hash")
	if gotHash == "" {
		return session.Context{}, ErrInvalidInitData
	}
	values.Del("hash")

	pairs := make([]string, 0, len(values))
	for key := range values {
		pairs = append(pairs, key+"="+values.Get(key))
	}
	sort.Strings(pairs)
	checkString := strings.Join(pairs, "\n")

	secretMac := hmac.New(sha256.New, []byte("WebAppData"))
	secretMac.Write([]byte(botToken))
	secret := secretMac.Sum(nil)

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(checkString))
	wantHash := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(wantHash), []byte(gotHash)) {
		return session.Context{}, ErrInvalidInitData
	}

	if maxAge > 0 {
		authDate, err := strconv.ParseInt(values.Get("auth_date"), 10, 64)
		if err != nil {
			return session.Context{}, ErrInvalidInitData
		}
		if now.Sub(time.Unix(authDate, 0)) > maxAge {
			return session.Context{}, ErrExpiredInitData
		}
	}

	var user telegramWebAppUser
	if err := json.Unmarshal([]byte(values.Get("user")), &user); err != nil || user.ID == 0 {
		return session.Context{}, ErrInvalidInitData
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	return session.FromTelegram(user.ID, name, user.Username, user.LanguageCode, platform), nil
}

type sessionClaims struct {
	Name     string `json:"name,omitempty"`
	Platform string `json:"platform,omitempty"`
	jwt.RegisteredClaims
}

type adminClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthenticateTelegram verifies initData, caches the resulting session
// context, and issues a bearer token for it.
func (s *AuthService) AuthenticateTelegram(ctx context.Context, initData, platform string) (session.Context, string, error) {
	sc, err := VerifyInitData(initData, s.cfg.Telegram.BotToken, platform, s.cfg.Telegram.InitDataMaxAge, time.Now())
	if err != nil {
		return session.Context{}, "", err
	}

	s.store.Save(ctx, sc)

	token, err := s.IssueSession(sc)
	if err != nil {
		return session.Context{}, "", err
	}

	logger.LogUserAction(sc.UserID, "authenticated", map[string]interface{}{
		"platform": sc.Platform,
	})

	return sc, token, nil
}

// AuthenticateDev issues a throwaway identity for local development.
// Refused outright in production builds.
func (s *AuthService) AuthenticateDev(ctx context.Context, name string) (session.Context, string, error) {
	if s.cfg.IsProduction() {
		return session.Context{}, "", ErrInvalidInitData
	}

	sc := session.NewDevContext(name)
	s.store.Save(ctx, sc)

	token, err := s.IssueSession(sc)
	if err != nil {
		return session.Context{}, "", err
	}

	return sc, token, nil
}

func (s *AuthService) IssueSession(sc session.Context) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Name:     sc.Name,
		Platform: sc.Platform,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sc.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Security.SessionDuration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Security.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}

	return signed, nil
}

// ValidateSession resolves a bearer token back to a session context,
// preferring the cached copy so identity edits survive token reuse.
func (s *AuthService) ValidateSession(ctx context.Context, tokenString string) (session.Context, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Security.JWTSecret), nil
	})
	if err != nil || !token.Valid || claims.Subject == "" {
		return session.Context{}, ErrInvalidToken
	}

	if cached, ok := s.store.Load(ctx, claims.Subject); ok {
		return cached, nil
	}

	return session.Context{
		UserID:   claims.Subject,
		Name:     claims.Name,
		Platform: claims.Platform,
	}, nil
}

// AdminLogin checks the console credentials and issues a short-lived
// admin token carrying the role.
func (s *AuthService) AdminLogin(ctx context.Context, username, password string) (string, *models.Admin, error) {
	opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var admin models.Admin
	err := s.admins.FindOne(opCtx, bson.M{"username": username}).Decode(&admin)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return "", nil, ErrBadCredentials
		}
		return "", nil, fmt.Errorf("failed to look up admin: %w", err)
	}

	if !utils.CheckPassword(password, admin.PasswordHash) {
		return "", nil, ErrBadCredentials
	}

	now := time.Now()
	claims := adminClaims{
		Username: admin.Username,
		Role:     admin.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   admin.ID.Hex(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(12 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Security.AdminSecret))
	if err != nil {
		return "", nil, fmt.Errorf("failed to sign admin token: %w", err)
	}

	s.admins.UpdateOne(opCtx, bson.M{"_id": admin.ID}, bson.M{"$set": bson.M{"last_login": now}})

	logger.LogAdminAction(admin.Username, "login", "", nil)

	return signed, &admin, nil
}

// ValidateAdminToken returns the admin's username and role.
func (s *AuthService) ValidateAdminToken(tokenString string) (string, string, error) {
	var claims adminClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.Security.AdminSecret), nil
	})
	if err != nil || !token.Valid || claims.Username == "" {
		return "", "", ErrInvalidToken
	}

	return claims.Username, claims.Role, nil
}
