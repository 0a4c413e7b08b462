package services

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"transactionsProject/models"
	"transactionsProject/utils"
)

var ErrTransactionNotFound = errors.New("transaction not found")

// Формат календарной даты на проводе
const DateLayout = "2006-01-02"

// TransactionService предоставляет методы для работы с транзакциями
type TransactionService struct {
	db    *gorm.DB
	email *EmailService
}

// TransactionDTO представляет транзакцию с вложенным пользователем
type TransactionDTO struct {
	ID     uint    `json:"id"`
	User   UserDTO `json:"user"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// TransactionShortDTO представляет транзакцию с владельцем в виде ID
// (ответ на создание и обновление)
type TransactionShortDTO struct {
	ID     uint    `json:"id"`
	User   uint    `json:"user"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

type TransactionListItemDTO struct {
	ID     uint    `json:"id"`
	Date   string  `json:"date"`
	Amount float64 `json:"amount"`
}

// UserTransactionsDTO представляет пользователя с вложенным списком транзакций
type UserTransactionsDTO struct {
	ID           uint                     `json:"id"`
	Email        string                   `json:"email"`
	FirstName    string                   `json:"first_name"`
	LastName     string                   `json:"last_name"`
	Transactions []TransactionListItemDTO `json:"transactions"`
}

type SummaryEntryDTO struct {
	Date string  `json:"date"`
	Sum  float64 `json:"sum"`
}

// UserSummaryDTO представляет пользователя со сгруппированными по дате суммами
type UserSummaryDTO struct {
	ID                  uint              `json:"id"`
	Email               string            `json:"email"`
	FirstName           string            `json:"first_name"`
	LastName            string            `json:"last_name"`
	TransactionsSummary []SummaryEntryDTO `json:"transactions_summary"`
}

// TransactionFilter описывает параметры фильтрации списка транзакций
type TransactionFilter struct {
	Type     string // income, outcome или пустая строка
	FromDate *time.Time
	ToDate   *time.Time
	Sort     string // date, amount, опциональный префикс "-"
}

func NewTransactionService(db *gorm.DB, email *EmailService) *TransactionService {
	return &TransactionService{db: db, email: email}
}

// NewTransactionDTO конвертирует транзакцию в DTO с вложенным пользователем
func NewTransactionDTO(t *models.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:     t.ID,
		User:   NewUserDTO(&t.User),
		Date:   t.Date.Format(DateLayout),
		Amount: t.Amount,
	}
}

// NewTransactionShortDTO конвертирует транзакцию в DTO с владельцем в виде ID
func NewTransactionShortDTO(t *models.Transaction) TransactionShortDTO {
	return TransactionShortDTO{
		ID:     t.ID,
		User:   t.UserID,
		Date:   t.Date.Format(DateLayout),
		Amount: t.Amount,
	}
}

// Today возвращает текущую календарную дату (UTC, без времени)
func Today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// ResolveOwner определяет владельца транзакции из поля "user":
// числовое значение трактуется как ID, иначе выполняется поиск по email
func (s *TransactionService) ResolveOwner(raw json.RawMessage) (uint, error) {
	var asNumber float64
	if err := json.Unmarshal(raw, &asNumber); err == nil {
		return s.ownerByID(uint(asNumber))
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return 0, errors.New("user must be an id or an email")
	}
	asString = strings.TrimSpace(asString)
	if id, err := strconv.ParseUint(asString, 10, 64); err == nil {
		return s.ownerByID(uint(id))
	}

	var user models.User
	if err := s.db.Where("LOWER(TRIM(email)) = LOWER(?)", asString).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return user.ID, nil
}

func (s *TransactionService) ownerByID(id uint) (uint, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, err
	}
	return user.ID, nil
}

// Create создает транзакцию, дата выставляется автоматически
func (s *TransactionService) Create(ownerID uint, amount float64) (*models.Transaction, error) {
	transaction := &models.Transaction{
		UserID: ownerID,
		Date:   Today(),
		Amount: amount,
	}

	if err := s.db.Create(transaction).Error; err != nil {
		return nil, err
	}

	utils.GetMetrics().RecordTransactionOperation("create")

	// Уведомляем владельца, ошибки только логируем
	if s.email != nil {
		var owner models.User
		if err := s.db.First(&owner, ownerID).Error; err == nil {
			go func(email string, amount float64, date string) {
				if err := s.email.SendTransactionNotification(email, amount, date); err != nil {
					utils.LogError("Не удалось отправить уведомление о транзакции %s: %v", email, err)
				}
			}(owner.Email, amount, transaction.Date.Format(DateLayout))
		}
	}

	return transaction, nil
}

// Get возвращает транзакцию с данными владельца
func (s *TransactionService) Get(id uint) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.Preload("User").First(&transaction, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &transaction, nil
}

// Update выполняет частичное обновление транзакции
func (s *TransactionService) Update(id uint, updates map[string]interface{}) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.First(&transaction, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.db.Model(&transaction).Updates(updates).Error; err != nil {
			return nil, err
		}
	}

	// Перечитываем запись, чтобы вернуть актуальные значения
	var updated models.Transaction
	if err := s.db.First(&updated, id).Error; err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete удаляет транзакцию
func (s *TransactionService) Delete(id uint) error {
	var transaction models.Transaction
	if err := s.db.First(&transaction, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTransactionNotFound
		}
		return err
	}

	if err := s.db.Delete(&transaction).Error; err != nil {
		return err
	}

	utils.GetMetrics().RecordTransactionOperation("delete")
	return nil
}

// List возвращает транзакции с фильтрацией по типу, диапазону дат и сортировкой
func (s *TransactionService) List(filter TransactionFilter) ([]models.Transaction, error) {
	query := s.db.Model(&models.Transaction{}).Preload("User")

	switch filter.Type {
	case "income":
		query = query.Where("amount > 0")
	case "outcome":
		query = query.Where("amount < 0")
	}

	if filter.FromDate != nil {
		query = query.Where("date >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("date <= ?", *filter.ToDate)
	}

	field := filter.Sort
	desc := false
	if len(field) > 0 && field[0] == '-' {
		field = field[1:]
		desc = true
	}
	switch field {
	case "date", "amount":
		if desc {
			query = query.Order(field + " DESC")
		} else {
			query = query.Order(field)
		}
	}

	var transactions []models.Transaction
	if err := query.Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

// UserTransactions возвращает пользователя с его транзакциями.
// sign > 0 оставляет только доходы, sign < 0 только расходы,
// sign == 0 не фильтрует по знаку.
func (s *TransactionService) UserTransactions(userID uint, from, to *time.Time, sign int) (*UserTransactionsDTO, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	query := s.db.Where("user_id = ?", userID)
	if sign > 0 {
		query = query.Where("amount > 0")
	}
	if sign < 0 {
		query = query.Where("amount < 0")
	}
	if from != nil {
		query = query.Where("date >= ?", *from)
	}
	if to != nil {
		query = query.Where("date <= ?", *to)
	}

	var transactions []models.Transaction
	if err := query.Order("id").Find(&transactions).Error; err != nil {
		return nil, err
	}

	dto := &UserTransactionsDTO{
		ID:           user.ID,
		Email:        user.Email,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Transactions: []TransactionListItemDTO{},
	}
	for _, t := range transactions {
		dto.Transactions = append(dto.Transactions, TransactionListItemDTO{
			ID:     t.ID,
			Date:   t.Date.Format(DateLayout),
			Amount: t.Amount,
		})
	}
	return dto, nil
}

// Summary возвращает суммы транзакций пользователя, сгруппированные по дате.
// sign > 0 учитывает только доходы, sign < 0 только расходы.
func (s *TransactionService) Summary(userID uint, sign int) (*UserSummaryDTO, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	query := s.db.Model(&models.Transaction{}).
		Select("date, SUM(amount) AS sum").
		Where("user_id = ?", userID)
	if sign > 0 {
		query = query.Where("amount > 0")
	} else {
		query = query.Where("amount < 0")
	}

	var rows []struct {
		Date time.Time
		Sum  float64
	}
	if err := query.Group("date").Order("date").Scan(&rows).Error; err != nil {
		return nil, err
	}

	dto := &UserSummaryDTO{
		ID:                  user.ID,
		Email:               user.Email,
		FirstName:           user.FirstName,
		LastName:            user.LastName,
		TransactionsSummary: []SummaryEntryDTO{},
	}
	for _, row := range rows {
		dto.TransactionsSummary = append(dto.TransactionsSummary, SummaryEntryDTO{
			Date: row.Date.Format(DateLayout),
			Sum:  row.Sum,
		})
	}
	return dto, nil
}

// UserTransactionsRaw возвращает пользователя и его транзакции для выписки
func (s *TransactionService) UserTransactionsRaw(userID uint, from, to *time.Time) (*models.User, []models.Transaction, error) {
	var user models.User
	if err := s.db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, err
	}

	query := s.db.Where("user_id = ?", userID)
	if from != nil {
		query = query.Where("date >= ?", *from)
	}
	if to != nil {
		query = query.Where("date <= ?", *to)
	}

	var transactions []models.Transaction
	if err := query.Order("id").Find(&transactions).Error; err != nil {
		return nil, nil, err
	}
	return &user, transactions, nil
}
