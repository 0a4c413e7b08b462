package controllers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"

	"transactionsProject/config"
	"transactionsProject/database"
	"transactionsProject/models"
	"transactionsProject/services"
)

func newAuthController(db *database.Database) *AuthController {
	cfg := &config.Config{}
	cfg.JWT.SecretKey = "test-secret-key"
	cfg.JWT.AccessExpiresIn = 24
	cfg.JWT.RefreshExpiresIn = 168
	return NewAuthController(cfg, services.NewUserService(db, nil))
}

// registerUser создает пользователя через сервис, чтобы пароль был захеширован
func registerUser(t *testing.T, db *database.Database, email, password string) *models.User {
	t.Helper()

	user, err := services.NewUserService(db, nil).Create(services.CreateUserRequest{
		Email:     email,
		Password:  password,
		FirstName: "Test",
		LastName:  "User",
	})
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	return user
}

func obtainTokens(t *testing.T, controller *AuthController, email, password string) TokenPairResponse {
	t.Helper()

	payload := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	req := httptest.NewRequest(http.MethodPost, "/token/", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	controller.ObtainToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("obtain status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	body := decodeBody(t, rec)
	return TokenPairResponse{
		Access:  body["access"].(string),
		Refresh: body["refresh"].(string),
	}
}

func parseClaims(t *testing.T, controller *AuthController, tokenString string) *Claims {
	t.Helper()

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(controller.GetJWTKey()), nil
	})
	if err != nil || !token.Valid {
		t.Fatalf("failed to parse token: %v", err)
	}
	return claims
}

func TestObtainTokenSuccess(t *testing.T) {
	db := newTestDB(t)
	controller := newAuthController(db)
	user := registerUser(t, db, "login@example.com", "Secret123!")

	tokens := obtainTokens(t, controller, "login@example.com", "Secret123!")

	if tokens.Access == "" || tokens.Refresh == "" {
		t.Fatal("empty tokens in response")
	}

	access := parseClaims(t, controller, tokens.Access)
	if access.TokenType != "access" || access.UserID != user.ID || access.Email != user.Email {
		t.Errorf("unexpected access claims: %+v", access)
	}

	refresh := parseClaims(t, controller, tokens.Refresh)
	if refresh.TokenType != "refresh" {
		t.Errorf("refresh token_type = %q", refresh.TokenType)
	}
}

func TestObtainTokenWrongPassword(t *testing.T) {
	db := newTestDB(t)
	controller := newAuthController(db)
	registerUser(t, db, "login@example.com", "Secret123!")

	payload := `{"email":"login@example.com","password":"wrong-password"}`
	req := httptest.NewRequest(http.MethodPost, "/token/", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	controller.ObtainToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if body := decodeBody(t, rec); body["error"] != "Invalid credentials" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestObtainTokenUnknownEmail(t *testing.T) {
	db := newTestDB(t)
	controller := newAuthController(db)

	payload := `{"email":"nobody@example.com","password":"Secret123!"}`
	req := httptest.NewRequest(http.MethodPost, "/token/", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	controller.ObtainToken(rec, req)

	// Ответ не должен раскрывать, существует ли email
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if body := decodeBody(t, rec); body["error"] != "Invalid credentials" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestObtainTokenInactiveUser(t *testing.T) {
	db := newTestDB(t)
	controller := newAuthController(db)
	user := registerUser(t, db, "inactive@example.com", "Secret123!")
	if err := db.DB.Model(user).Update("is_active", false).Error; err != nil {
		t.Fatalf("failed to deactivate user: %v", err)
	}

	payload := `{"email":"inactive@example.com","password":"Secret123!"}`
	req := httptest.NewRequest(http.MethodPost, "/token/", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	controller.ObtainToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestObtainTokenUpdatesLastLogin(t *testing.T) {
	db := newTestDB(t)
	controller := newAuthController(db)
	user := registerUser(t, db, "touch@example.com", "Secret123!")
	before := user.LastLogin

	obtainTokens(t, controller, "touch@example.com", "Secret123!")

	fresh, err := services.NewUserService(db, nil).FindByID(user.ID)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if !fresh.LastLogin.After(before) {
		t.Error("last_login was not updated")
	}
}

func TestRefreshToken(t *testing.T) {
	db := newTestDB(t)
	controller := newAuthController(db)
	user := registerUser(t, db, "refresh@example.com", "Secret123!")

	tokens := obtainTokens(t, controller, "refresh@example.com", "Secret123!")

	payload := fmt.Sprintf(`{"refresh":%q}`, tokens.Refresh)
	req := httptest.NewRequest(http.MethodPost, "/token/refresh/", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	controller.RefreshToken(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	body := decodeBody(t, rec)
	access, ok := body["access"].(string)
	if !ok || access == "" {
		t.Fatalf("no access token in response: %v", body)
	}

	claims := parseClaims(t, controller, access)
	if claims.TokenType != "access" || claims.UserID != user.ID {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	db := newTestDB(t)
	controller := newAuthController(db)
	registerUser(t, db, "refresh@example.com", "Secret123!")

	tokens := obtainTokens(t, controller, "refresh@example.com", "Secret123!")

	// Access-токен не подходит для обновления
	payload := fmt.Sprintf(`{"refresh":%q}`, tokens.Access)
	req := httptest.NewRequest(http.MethodPost, "/token/refresh/", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	controller.RefreshToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if body := decodeBody(t, rec); body["error"] != "Invalid token type" {
		t.Errorf("error = %v", body["error"])
	}
}

func TestRefreshRejectsGarbage(t *testing.T) {
	db := newTestDB(t)
	controller := newAuthController(db)

	payload := `{"refresh":"not-a-token"}`
	req := httptest.NewRequest(http.MethodPost, "/token/refresh/", strings.NewReader(payload))
	rec := httptest.NewRecorder()

	controller.RefreshToken(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}
