package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"visualbites/server/internal/services"
)

// AuthController управляет API endpoints авторизации.
// Токены живут в HTTP-only куках, csrf_token доступен фронтенду для заголовка
type AuthController struct {
	authService   *services.AuthService
	secureCookies bool
}

// NewAuthController создает новый контроллер авторизации
func NewAuthController(authService *services.AuthService, secureCookies bool) *AuthController {
	return &AuthController{
		authService:   authService,
		secureCookies: secureCookies,
	}
}

// Login выполняет вход администратора
// POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var request struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Неверные параметры запроса",
			"details": err.Error(),
		})
		return
	}

	user, tokens, err := ac.authService.Login(request.Email, request.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		log.Printf("❌ Ошибка авторизации: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка авторизации"})
		return
	}

	ac.setAuthCookies(c, tokens)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Refresh обновляет пару токенов по refresh куке
// POST /api/v1/auth/refresh
func (ac *AuthController) Refresh(c *gin.Context) {
	refreshToken, err := c.Cookie("jwt_refresh")
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Refresh token missing"})
		return
	}

	user, tokens, err := ac.authService.Refresh(refreshToken)
	if err != nil {
		ac.clearAuthCookies(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	ac.setAuthCookies(c, tokens)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// Logout сбрасывает куки авторизации
// POST /api/v1/auth/logout
func (ac *AuthController) Logout(c *gin.Context) {
	ac.clearAuthCookies(c)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// Me возвращает текущего пользователя. Если access токен истек,
// пробуем refresh куку и перевыпускаем пару
// GET /api/v1/auth/me
func (ac *AuthController) Me(c *gin.Context) {
	if accessToken, err := c.Cookie("jwt"); err == nil {
		if claims, err := ac.authService.Verify(accessToken); err == nil {
			user, err := ac.authService.GetUser(claims.Subject)
			if err == nil {
				c.JSON(http.StatusOK, gin.H{"user": user})
				return
			}
		}
	}

	// Fallback на refresh токен
	refreshToken, err := c.Cookie("jwt_refresh")
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	user, tokens, err := ac.authService.Refresh(refreshToken)
	if err != nil {
		ac.clearAuthCookies(c)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	ac.setAuthCookies(c, tokens)
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (ac *AuthController) setAuthCookies(c *gin.Context, tokens *services.TokenPair) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("jwt", tokens.AccessToken, int(services.AccessTokenTTL.Seconds()), "/", "", ac.secureCookies, true)
	c.SetCookie("jwt_refresh", tokens.RefreshToken, int(services.RefreshTokenTTL.Seconds()), "/", "", ac.secureCookies, true)
	// CSRF токен читается фронтендом и возвращается в заголовке
	c.SetCookie("csrf_token", uuid.New().String(), int(services.RefreshTokenTTL.Seconds()), "/", "", ac.secureCookies, false)
}

func (ac *AuthController) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("jwt", "", -1, "/", "", ac.secureCookies, true)
	c.SetCookie("jwt_refresh", "", -1, "/", "", ac.secureCookies, true)
	c.SetCookie("csrf_token", "", -1, "/", "", ac.secureCookies, false)
}
