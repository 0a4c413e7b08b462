package services

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"transactionsProject/database"
	"transactionsProject/models"
	"transactionsProject/utils"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("user with this email already exists")
)

// UserService предоставляет методы для работы с пользователями
type UserService struct {
	db    *database.Database
	email *EmailService
}

// UserDTO представляет пользователя в ответах API (без пароля)
type UserDTO struct {
	ID          uint   `json:"id"`
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateJoined  string `json:"date_joined"`
	LastLogin   string `json:"last_login"`
	IsAdmin     bool   `json:"is_admin"`
	IsActive    bool   `json:"is_active"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

type CreateUserRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
	FirstName string `json:"first_name" validate:"required,max=60"`
	LastName  string `json:"last_name" validate:"required,max=60"`
}

func NewUserService(db *database.Database, email *EmailService) *UserService {
	return &UserService{db: db, email: email}
}

// NewUserDTO конвертирует модель пользователя в DTO
func NewUserDTO(user *models.User) UserDTO {
	return UserDTO{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		DateJoined:  user.DateJoined.Format(time.RFC3339),
		LastLogin:   user.LastLogin.Format(time.RFC3339),
		IsAdmin:     user.IsAdmin,
		IsActive:    user.IsActive,
		IsStaff:     user.IsStaff,
		IsSuperuser: user.IsSuperuser,
	}
}

// Create создает нового пользователя с хешированным паролем
func (s *UserService) Create(req CreateUserRequest) (*models.User, error) {
	// Проверяем, существует ли пользователь с таким email
	var existingUser models.User
	if err := s.db.DB.Where("LOWER(email) = LOWER(?)", req.Email).First(&existingUser).Error; err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// Хешируем пароль
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// Создаем нового пользователя, флаги привилегий по умолчанию выключены
	now := time.Now()
	user := &models.User{
		Email:      req.Email,
		Password:   string(hashedPassword),
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		DateJoined: now,
		LastLogin:  now,
		IsActive:   true,
	}

	if err := s.db.DB.Create(user).Error; err != nil {
		return nil, err
	}

	utils.GetMetrics().RecordUserOperation("create")

	// Отправляем приветственное письмо, ошибки только логируем
	if s.email != nil {
		go func(email, firstName string) {
			if err := s.email.SendWelcomeEmail(email, firstName); err != nil {
				utils.LogError("Не удалось отправить приветственное письмо %s: %v", email, err)
			}
		}(user.Email, user.FirstName)
	}

	return user, nil
}

// Update выполняет частичное обновление пользователя, пароль хешируется заново
func (s *UserService) Update(id uint, updates map[string]interface{}) (*models.User, error) {
	user, err := s.FindByID(id)
	if err != nil {
		return nil, err
	}

	if password, ok := updates["password"]; ok {
		raw, ok := password.(string)
		if !ok || raw == "" {
			return nil, errors.New("password must be a non-empty string")
		}
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		updates["password"] = string(hashedPassword)
	}

	if len(updates) > 0 {
		if err := s.db.DB.Model(user).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	// Перечитываем запись, чтобы вернуть актуальные значения
	return s.FindByID(id)
}

// FindByID ищет пользователя по ID
func (s *UserService) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByEmail ищет пользователя по email (игнорируя регистр и пробелы)
func (s *UserService) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.DB.Where("LOWER(TRIM(email)) = LOWER(TRIM(?))", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// List возвращает всех пользователей, опционально отсортированных
// по first_name или last_name. Префикс "-" означает обратный порядок,
// неизвестные значения sort игнорируются.
func (s *UserService) List(sort string) ([]models.User, error) {
	query := s.db.DB.Model(&models.User{})

	field := sort
	desc := false
	if len(field) > 0 && field[0] == '-' {
		field = field[1:]
		desc = true
	}
	switch field {
	case "first_name", "last_name":
		if desc {
			query = query.Order(field + " DESC")
		} else {
			query = query.Order(field)
		}
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// Delete удаляет пользователя вместе со всеми его транзакциями
func (s *UserService) Delete(id uint) error {
	if _, err := s.FindByID(id); err != nil {
		return err
	}

	// Начинаем транзакцию
	tx := s.db.DB.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	// Сначала удаляем транзакции пользователя (каскад)
	if err := tx.Where("user_id = ?", id).Delete(&models.Transaction{}).Error; err != nil {
		tx.Rollback()
		return err
	}

	// Удаляем самого пользователя
	if err := tx.Delete(&models.User{}, id).Error; err != nil {
		tx.Rollback()
		return err
	}

	if err := tx.Commit().Error; err != nil {
		return err
	}

	utils.GetMetrics().RecordUserOperation("delete")
	return nil
}

// TouchLastLogin обновляет отметку последнего входа
func (s *UserService) TouchLastLogin(user *models.User) error {
	now := time.Now()
	if err := s.db.DB.Model(user).Update("last_login", now).Error; err != nil {
		return err
	}
	user.LastLogin = now
	return nil
}
