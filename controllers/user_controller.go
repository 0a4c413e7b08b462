package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"transactionsProject/middleware"
	"transactionsProject/services"
)

// Поля пользователя, запрещенные во входных данных
var userReadOnlyFields = []string{
	"id",
	"date_joined",
	"last_login",
	"is_admin",
	"is_active",
	"is_staff",
	"is_superuser",
}

// Все известные поля пользователя
var userKnownFields = []string{
	"id",
	"email",
	"password",
	"first_name",
	"last_name",
	"date_joined",
	"last_login",
	"is_admin",
	"is_active",
	"is_staff",
	"is_superuser",
}

// UserController обрабатывает запросы, связанные с пользователями
type UserController struct {
	userService        *services.UserService
	transactionService *services.TransactionService
	statementService   *services.StatementService
	validate           *validator.Validate
}

// NewUserController создает новый экземпляр UserController
func NewUserController(userService *services.UserService, transactionService *services.TransactionService) *UserController {
	return &UserController{
		userService:        userService,
		transactionService: transactionService,
		statementService:   services.NewStatementService(),
		validate:           validator.New(),
	}
}

// CreateUser обрабатывает регистрацию пользователя
func (c *UserController) CreateUser(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Поля только для чтения запрещены во входных данных
	if readOnlyFieldIncluded(payload, userReadOnlyFields) {
		writeError(w, http.StatusBadRequest, "Read only field included")
		return
	}

	var req services.CreateUserRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	// Валидация запроса
	if err := c.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return
	}

	user, err := c.userService.Create(req)
	if err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, services.NewUserDTO(user))
}

// UpdateUser обрабатывает частичное обновление пользователя.
// Обновлять может владелец учетной записи или сотрудник.
func (c *UserController) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	callerID, _, isStaff, err := middleware.GetUserFromContext(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	// Проверяем владельца по переменной маршрута, а не по сырому пути
	if callerID != uint(id) && !isStaff {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if readOnlyFieldIncluded(payload, userReadOnlyFields) {
		writeError(w, http.StatusBadRequest, "Read only field included")
		return
	}
	if unknownFieldIncluded(payload, userKnownFields) {
		writeError(w, http.StatusBadRequest, "Unknown field")
		return
	}

	// Собираем обновляемые поля
	updates := make(map[string]interface{})
	for _, field := range []string{"email", "password", "first_name", "last_name"} {
		raw, ok := payload[field]
		if !ok {
			continue
		}
		var value string
		if err := json.Unmarshal(raw, &value); err != nil {
			writeError(w, http.StatusBadRequest, "field "+field+" must be a string")
			return
		}
		updates[field] = value
	}

	if email, ok := updates["email"]; ok {
		if err := c.validate.Var(email, "required,email"); err != nil {
			writeError(w, http.StatusBadRequest, "field email must be a valid email")
			return
		}
	}

	user, err := c.userService.Update(uint(id), updates)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, services.NewUserDTO(user))
}

// GetUserByID возвращает пользователя по ID
func (c *UserController) GetUserByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	user, err := c.userService.FindByID(uint(id))
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, services.NewUserDTO(user))
}

// GetUserByEmail возвращает пользователя по email
func (c *UserController) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := mux.Vars(r)["email"]

	user, err := c.userService.FindByEmail(email)
	if err != nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}

	writeJSON(w, http.StatusOK, services.NewUserDTO(user))
}

// DeleteUser удаляет пользователя вместе с его транзакциями (только сотрудник)
func (c *UserController) DeleteUser(w http.ResponseWriter, r *http.Request) {
	_, _, isStaff, err := middleware.GetUserFromContext(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}
	if !isStaff {
		writeError(w, http.StatusForbidden, "Forbidden")
		return
	}

	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	if err := c.userService.Delete(uint(id)); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListUsers возвращает всех пользователей, опционально отсортированных
func (c *UserController) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := c.userService.List(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dtos := make([]services.UserDTO, 0, len(users))
	for i := range users {
		dtos = append(dtos, services.NewUserDTO(&users[i]))
	}

	writeJSON(w, http.StatusOK, dtos)
}

// UserTransactions возвращает пользователя с его транзакциями
func (c *UserController) UserTransactions(w http.ResponseWriter, r *http.Request) {
	c.userTransactions(w, r, 0)
}

// UserIncomeTransactions возвращает пользователя с его доходами
func (c *UserController) UserIncomeTransactions(w http.ResponseWriter, r *http.Request) {
	c.userTransactions(w, r, 1)
}

// UserOutcomeTransactions возвращает пользователя с его расходами
func (c *UserController) UserOutcomeTransactions(w http.ResponseWriter, r *http.Request) {
	c.userTransactions(w, r, -1)
}

func (c *UserController) userTransactions(w http.ResponseWriter, r *http.Request, sign int) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dto, err := c.transactionService.UserTransactions(uint(id), from, to, sign)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// UserIncomeSummary возвращает суммы доходов пользователя по датам
func (c *UserController) UserIncomeSummary(w http.ResponseWriter, r *http.Request) {
	c.userSummary(w, r, 1)
}

// UserOutcomeSummary возвращает суммы расходов пользователя по датам
func (c *UserController) UserOutcomeSummary(w http.ResponseWriter, r *http.Request) {
	c.userSummary(w, r, -1)
}

func (c *UserController) userSummary(w http.ResponseWriter, r *http.Request, sign int) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	dto, err := c.transactionService.Summary(uint(id), sign)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto)
}

// ExportStatement возвращает XML-выписку по транзакциям пользователя
func (c *UserController) ExportStatement(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user id")
		return
	}

	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, transactions, err := c.transactionService.UserTransactionsRaw(uint(id), from, to)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	statement, err := c.statementService.BuildStatement(user, transactions)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build statement")
		return
	}

	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(http.StatusOK)
	w.Write(statement)
}
