package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"transactionsProject/middleware"
	"transactionsProject/services"
)

// Поля транзакции, запрещенные во входных данных
var transactionReadOnlyFields = []string{
	"id",
	"date",
}

// Все известные поля транзакции
var transactionKnownFields = []string{
	"id",
	"user",
	"date",
	"amount",
}

// TransactionController обрабатывает запросы, связанные с транзакциями
type TransactionController struct {
	transactionService *services.TransactionService
}

// NewTransactionController создает новый экземпляр TransactionController
func NewTransactionController(transactionService *services.TransactionService) *TransactionController {
	return &TransactionController{
		transactionService: transactionService,
	}
}

// CreateTransaction создает транзакцию. Поле user принимает как ID,
// так и email владельца.
func (c *TransactionController) CreateTransaction(w http.ResponseWriter, r *http.Request) {
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

	if readOnlyFieldIncluded(payload, transactionReadOnlyFields) {
		writeError(w, http.StatusBadRequest, "Read only field included")
		return
	}

	rawOwner, ok := payload["user"]
	if !ok {
		writeError(w, http.StatusBadRequest, "field user is required")
		return
	}

	rawAmount, ok := payload["amount"]
	if !ok {
		writeError(w, http.StatusBadRequest, "field amount is required")
		return
	}
	var amount float64
	if err := json.Unmarshal(rawAmount, &amount); err != nil {
		writeError(w, http.StatusBadRequest, "field amount must be a number")
		return
	}

	// Определяем владельца: числовое значение это ID, иначе email
	ownerID, err := c.transactionService.ResolveOwner(rawOwner)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	transaction, err := c.transactionService.Create(ownerID, amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, services.NewTransactionShortDTO(transaction))
}

// GetTransaction возвращает транзакцию с данными владельца
func (c *TransactionController) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	transaction, err := c.transactionService.Get(uint(id))
	if err != nil {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	writeJSON(w, http.StatusOK, services.NewTransactionDTO(transaction))
}

// UpdateTransaction выполняет частичное обновление транзакции (только сотрудник)
func (c *TransactionController) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, http.StatusBadRequest, "Invalid transaction id")
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

	if readOnlyFieldIncluded(payload, transactionReadOnlyFields) {
		writeError(w, http.StatusBadRequest, "Read only field included")
		return
	}
	if unknownFieldIncluded(payload, transactionKnownFields) {
		writeError(w, http.StatusBadRequest, "Unknown field")
		return
	}

	// Собираем обновляемые поля
	updates := make(map[string]interface{})
	if rawOwner, ok := payload["user"]; ok {
		ownerID, err := c.transactionService.ResolveOwner(rawOwner)
		if err != nil {
			if errors.Is(err, services.ErrUserNotFound) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updates["user_id"] = ownerID
	}
	if rawAmount, ok := payload["amount"]; ok {
		var amount float64
		if err := json.Unmarshal(rawAmount, &amount); err != nil {
			writeError(w, http.StatusBadRequest, "field amount must be a number")
			return
		}
		updates["amount"] = amount
	}

	transaction, err := c.transactionService.Update(uint(id), updates)
	if err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, services.NewTransactionShortDTO(transaction))
}

// DeleteTransaction удаляет транзакцию (только сотрудник)
func (c *TransactionController) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
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
		writeError(w, http.StatusBadRequest, "Invalid transaction id")
		return
	}

	if err := c.transactionService.Delete(uint(id)); err != nil {
		if errors.Is(err, services.ErrTransactionNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListTransactions возвращает все транзакции с фильтрацией и сортировкой
func (c *TransactionController) ListTransactions(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := services.TransactionFilter{
		Type:     r.URL.Query().Get("type"),
		FromDate: from,
		ToDate:   to,
		Sort:     r.URL.Query().Get("sort"),
	}

	transactions, err := c.transactionService.List(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	dtos := make([]services.TransactionDTO, 0, len(transactions))
	for i := range transactions {
		dtos = append(dtos, services.NewTransactionDTO(&transactions[i]))
	}

	writeJSON(w, http.StatusOK, dtos)
}
