package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/golang-jwt/jwt/v5"

	"transactionsProject/database"
	"transactionsProject/models"
)

// AuthMiddleware проверяет JWT access-токен и кладет данные пользователя в контекст
func AuthMiddleware(db *database.Database, jwtKey []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Получаем токен из заголовка
			tokenString := r.Header.Get("Authorization")
			if tokenString == "" {
				writeAuthError(w, "Authorization header is required")
				return
			}

			// Убираем префикс "Bearer " если он есть
			if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
				tokenString = tokenString[7:]
			}

			// Парсим и проверяем токен
			token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return jwtKey, nil
			})

			if err != nil || !token.Valid {
				writeAuthError(w, "Invalid token")
				return
			}

			claims, ok := token.Claims.(jwt.MapClaims)
			if !ok {
				writeAuthError(w, "Invalid token claims")
				return
			}

			// Refresh-токен не подходит для доступа к API
			if tokenType, _ := claims["token_type"].(string); tokenType != "access" {
				writeAuthError(w, "Invalid token type")
				return
			}

			userID, ok := claims["user_id"].(float64)
			if !ok {
				writeAuthError(w, "Invalid user_id in token")
				return
			}

			// Загружаем пользователя: флаги привилегий берем из базы,
			// а не из токена, чтобы отзыв прав действовал сразу
			var user models.User
			if err := db.DB.First(&user, uint(userID)).Error; err != nil {
				writeAuthError(w, "Invalid token")
				return
			}
			if !user.IsActive {
				writeAuthError(w, "User is inactive")
				return
			}

			// Добавляем заголовок X-User-ID
			r.Header.Set("X-User-ID", strconv.FormatUint(uint64(user.ID), 10))

			// Добавляем информацию о пользователе в контекст запроса
			ctx := r.Context()
			ctx = context.WithValue(ctx, "user_id", user.ID)
			ctx = context.WithValue(ctx, "email", user.Email)
			ctx = context.WithValue(ctx, "is_staff", user.IsStaff)
			r = r.WithContext(ctx)

			next.ServeHTTP(w, r)
		})
	}
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	fmt.Fprintf(w, `{"error": %q}`, message)
}

// GetUserFromContext получает информацию о пользователе из контекста
func GetUserFromContext(r *http.Request) (uint, string, bool, error) {
	userID, ok := r.Context().Value("user_id").(uint)
	if !ok {
		return 0, "", false, errors.New("user_id not found in context")
	}

	email, ok := r.Context().Value("email").(string)
	if !ok {
		return 0, "", false, errors.New("email not found in context")
	}

	isStaff, ok := r.Context().Value("is_staff").(bool)
	if !ok {
		return 0, "", false, errors.New("is_staff not found in context")
	}

	return userID, email, isStaff, nil
}
