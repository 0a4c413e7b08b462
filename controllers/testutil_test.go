package controllers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"transactionsProject/database"
	"transactionsProject/models"
)

// newTestDB создает базу данных в памяти для тестов
func newTestDB(t *testing.T) *database.Database {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Одно соединение, чтобы все запросы видели одну и ту же базу в памяти
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get connection pool: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("failed to enable foreign keys: %v", err)
	}

	if err := db.AutoMigrate(&models.User{}, &models.Transaction{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return &database.Database{DB: db}
}

// createTestUser создает пользователя напрямую в базе
func createTestUser(t *testing.T, db *database.Database, email string, isStaff bool) *models.User {
	t.Helper()

	user := &models.User{
		Email:      email,
		Password:   "hashed-password",
		FirstName:  "Test",
		LastName:   "User",
		DateJoined: time.Now(),
		LastLogin:  time.Now(),
		IsActive:   true,
		IsStaff:    isStaff,
	}
	if err := db.DB.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// createTestTransaction создает транзакцию напрямую в базе
func createTestTransaction(t *testing.T, db *database.Database, userID uint, date time.Time, amount float64) *models.Transaction {
	t.Helper()

	transaction := &models.Transaction{
		UserID: userID,
		Date:   date,
		Amount: amount,
	}
	if err := db.DB.Create(transaction).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return transaction
}

// authenticate кладет данные пользователя в контекст запроса,
// как это делает AuthMiddleware
func authenticate(r *http.Request, user *models.User) *http.Request {
	ctx := r.Context()
	ctx = context.WithValue(ctx, "user_id", user.ID)
	ctx = context.WithValue(ctx, "email", user.Email)
	ctx = context.WithValue(ctx, "is_staff", user.IsStaff)
	return r.WithContext(ctx)
}

// date возвращает календарную дату в UTC
func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
