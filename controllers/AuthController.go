package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"transactionsProject/config"
	"transactionsProject/services"
)

type AuthController struct {
	userService *services.UserService
	validate    *validator.Validate
	config      *config.Config
}

type TokenObtainRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type TokenPairResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type TokenRefreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type TokenAccessResponse struct {
	Access string `json:"access"`
}

type Claims struct {
	UserID    uint   `json:"user_id"`
	Email     string `json:"email"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func NewAuthController(cfg *config.Config, userService *services.UserService) *AuthController {
	return &AuthController{
		userService: userService,
		validate:    validator.New(),
		config:      cfg,
	}
}

// ObtainToken обменивает учетные данные на пару access/refresh токенов
func (c *AuthController) ObtainToken(w http.ResponseWriter, r *http.Request) {
	var req TokenObtainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Валидация запроса
	if err := c.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	// Ищем пользователя по email
	user, err := c.userService.FindByEmail(req.Email)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	// Проверяем пароль
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if !user.IsActive {
		writeError(w, http.StatusUnauthorized, "User is inactive")
		return
	}

	// Обновляем отметку последнего входа
	if err := c.userService.TouchLastLogin(user); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update last login")
		return
	}

	access, err := c.generateToken(user.ID, user.Email, "access",
		time.Duration(c.config.JWT.AccessExpiresIn)*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	refresh, err := c.generateToken(user.ID, user.Email, "refresh",
		time.Duration(c.config.JWT.RefreshExpiresIn)*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, TokenPairResponse{
		Access:  access,
		Refresh: refresh,
	})
}

// RefreshToken обменивает refresh-токен на новый access-токен
func (c *AuthController) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := c.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(req.Refresh, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(c.config.JWT.SecretKey), nil
	})
	if err != nil || !token.Valid {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	// Access-токен нельзя использовать для обновления
	if claims.TokenType != "refresh" {
		writeError(w, http.StatusUnauthorized, "Invalid token type")
		return
	}

	// Пользователь должен существовать и быть активным
	user, err := c.userService.FindByID(claims.UserID)
	if err != nil || !user.IsActive {
		writeError(w, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	access, err := c.generateToken(user.ID, user.Email, "access",
		time.Duration(c.config.JWT.AccessExpiresIn)*time.Hour)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	writeJSON(w, http.StatusOK, TokenAccessResponse{Access: access})
}

// GetJWTKey возвращает ключ для JWT
func (c *AuthController) GetJWTKey() string {
	return c.config.JWT.SecretKey
}

// generateToken создает JWT токен заданного типа
func (c *AuthController) generateToken(userID uint, email, tokenType string, expiresIn time.Duration) (string, error) {
	claims := &Claims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(c.config.JWT.SecretKey))
}
