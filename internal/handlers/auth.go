package handlers

import (
	"errors"
	"net/http"

	"minitalk/internal/services"
	"minitalk/internal/utils"

	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// TelegramAuth exchanges verified Telegram initData for a session
// token, creating the user record on first sight.
func (h *AuthHandler) TelegramAuth(c *gin.Context) {
	var req struct {
		InitData string `json:"init_data" binding:"required"`
		Platform string `json:"platform"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "init_data is required")
		return
	}

	sc, token, err := h.authService.AuthenticateTelegram(c.Request.Context(), req.InitData, req.Platform)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrExpiredInitData):
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authorization data expired, reopen the app")
		case errors.Is(err, services.ErrInvalidInitData):
			utils.ErrorResponse(c, http.StatusUnauthorized, "Authorization data failed verification")
		default:
			utils.ErrorResponse(c, http.StatusInternalServerError, "Authentication failed")
		}
		return
	}

	user, err := h.userService.GetOrCreateUser(c.Request.Context(), sc)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"token": token,
		"user":  user,
	})
}

// DevAuth issues a throwaway identity for local development.
func (h *AuthHandler) DevAuth(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	c.ShouldBindJSON(&req)

	sc, token, err := h.authService.AuthenticateDev(c.Request.Context(), req.Name)
	if err != nil {
		utils.ErrorResponse(c, http.StatusForbidden, "Development auth is disabled")
		return
	}

	user, err := h.userService.GetOrCreateUser(c.Request.Context(), sc)
	if err != nil {
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to load profile")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"token": token,
		"user":  user,
	})
}

// AdminLogin authenticates a console operator.
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "username and password are required")
		return
	}

	token, admin, err := h.authService.AdminLogin(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrBadCredentials) {
			utils.ErrorResponse(c, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		utils.ErrorResponse(c, http.StatusInternalServerError, "Login failed")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"token": token,
		"admin": admin,
	})
}
