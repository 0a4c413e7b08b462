package controllers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"transactionsProject/services"
)

// writeJSON отправляет ответ в формате JSON
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError отправляет структурированную ошибку
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// readOnlyFieldIncluded проверяет, содержит ли тело запроса поля только для чтения
func readOnlyFieldIncluded(payload map[string]json.RawMessage, readOnly []string) bool {
	for field := range payload {
		for _, name := range readOnly {
			if field == name {
				return true
			}
		}
	}
	return false
}

// unknownFieldIncluded проверяет, содержит ли тело запроса неизвестные поля
func unknownFieldIncluded(payload map[string]json.RawMessage, known []string) bool {
	for field := range payload {
		found := false
		for _, name := range known {
			if field == name {
				found = true
				break
			}
		}
		if !found {
			return true
		}
	}
	return false
}

// validationError собирает сообщения об ошибках валидации в одну строку
func validationError(err error) string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err.Error()
	}
	var messages []string
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			messages = append(messages, "field "+e.Field()+" is required")
		case "email":
			messages = append(messages, "field "+e.Field()+" must be a valid email")
		case "min":
			messages = append(messages, "field "+e.Field()+" must be at least "+e.Param()+" characters")
		case "max":
			messages = append(messages, "field "+e.Field()+" must be at most "+e.Param()+" characters")
		default:
			messages = append(messages, "field "+e.Field()+" is invalid")
		}
	}
	return strings.Join(messages, "; ")
}

// parseDateRange читает параметры from_date и to_date (включительные границы)
func parseDateRange(r *http.Request) (*time.Time, *time.Time, error) {
	var from, to *time.Time

	if raw := r.URL.Query().Get("from_date"); raw != "" {
		parsed, err := time.Parse(services.DateLayout, raw)
		if err != nil {
			return nil, nil, errors.New("invalid from_date, expected YYYY-MM-DD")
		}
		from = &parsed
	}
	if raw := r.URL.Query().Get("to_date"); raw != "" {
		parsed, err := time.Parse(services.DateLayout, raw)
		if err != nil {
			return nil, nil, errors.New("invalid to_date, expected YYYY-MM-DD")
		}
		to = &parsed
	}

	return from, to, nil
}
