package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"visualbites/server/internal/models"
)

// Времена жизни токенов: короткий access + долгий refresh в cookie
const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// ErrInvalidCredentials возвращается при неверном email или пароле.
// Текст одинаковый для обоих случаев, чтобы не раскрывать существование аккаунта
var ErrInvalidCredentials = errors.New("Invalid credentials")

// ErrInvalidToken возвращается при невалидном или истекшем JWT
var ErrInvalidToken = errors.New("Invalid token")

// Тип токена хранится в claims, чтобы access токен нельзя было
// подсунуть в /auth/refresh вместо refresh токена
const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// AuthService отвечает за вход администратора и выпуск JWT
type AuthService struct {
	db        *gorm.DB
	jwtSecret []byte
}

// NewAuthService создает новый сервис авторизации
func NewAuthService(db *gorm.DB, jwtSecret string) *AuthService {
	return &AuthService{
		db:        db,
		jwtSecret: []byte(jwtSecret),
	}
}

// TokenPair — пара access/refresh токенов
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// Claims — полезная нагрузка JWT
type Claims struct {
	Email     string `json:"email"`
	TokenType string `json:"typ"`
	jwt.RegisteredClaims
}

// Login проверяет пароль и выпускает пару токенов
func (s *AuthService) Login(email, password string) (*models.User, *TokenPair, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, tokens, nil
}

// Refresh проверяет refresh токен и выпускает новую пару.
// Access токен здесь не принимается, даже пока он не истек
func (s *AuthService) Refresh(refreshToken string) (*models.User, *TokenPair, error) {
	claims, err := s.Verify(refreshToken)
	if err != nil {
		return nil, nil, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return nil, nil, ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", claims.Subject).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	tokens, err := s.issueTokens(&user)
	if err != nil {
		return nil, nil, err
	}
	return &user, tokens, nil
}

// Verify разбирает и проверяет подпись токена
func (s *AuthService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GetUser возвращает пользователя по ID (для /auth/me)
func (s *AuthService) GetUser(id string) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User) (*TokenPair, error) {
	access, err := s.signToken(user, AccessTokenTTL, tokenTypeAccess)
	if err != nil {
		return nil, err
	}
	refresh, err := s.signToken(user, RefreshTokenTTL, tokenTypeRefresh)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func (s *AuthService) signToken(user *models.User, ttl time.Duration, tokenType string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		Email:     user.Email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
