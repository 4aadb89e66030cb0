package middleware

import (
	"net/http"
	"strings"

	"minitalk/internal/services"
	"minitalk/internal/session"
	"minitalk/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextSession   = "session"
	ContextUserID    = "user_id"
	ContextAdminUser = "admin_username"
	ContextAdminRole = "admin_role"
)

// SessionAuth validates the bearer token and stores the caller's
// session context on the request. WebSocket upgrades can't set headers,
// so the token is also accepted as a query parameter.
func SessionAuth(auth *services.AuthService, users *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Missing session token")
			c.Abort()
			return
		}

		sc, err := auth.ValidateSession(c.Request.Context(), tokenString)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid session token")
			c.Abort()
			return
		}

		if user, err := users.GetUserByID(c.Request.Context(), sc.UserID); err == nil && user.IsBanned() {
			utils.ErrorResponse(c, http.StatusForbidden, "Account is suspended")
			c.Abort()
			return
		}

		c.Set(ContextSession, sc)
		c.Set(ContextUserID, sc.UserID)
		c.Next()
	}
}

// AdminAuth validates the admin console token.
func AdminAuth(auth *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Missing admin token")
			c.Abort()
			return
		}

		username, role, err := auth.ValidateAdminToken(tokenString)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid admin token")
			c.Abort()
			return
		}

		c.Set(ContextAdminUser, username)
		c.Set(ContextAdminRole, role)
		c.Next()
	}
}

// GetSession returns the session context SessionAuth stored.
func GetSession(c *gin.Context) (session.Context, bool) {
	value, exists := c.Get(ContextSession)
	if !exists {
		return session.Context{}, false
	}
	sc, ok := value.(session.Context)
	return sc, ok
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return c.Query("session_token")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		return ""
	}
	return tokenString
}
