package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"transactionsProject/config"
	"transactionsProject/controllers"
	"transactionsProject/database"
	"transactionsProject/middleware"
	"transactionsProject/services"
	"transactionsProject/utils"
)

// metricsHandler возвращает снимок метрик приложения (только сотрудникам)
func metricsHandler(w http.ResponseWriter, r *http.Request) {
	_, _, isStaff, err := middleware.GetUserFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if !isStaff {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(utils.GetMetrics().GetMetricsSnapshot())
}

// schemaHandler отдает машиночитаемое описание API
func schemaHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, "docs/openapi.json")
}

func main() {
	// Инициализируем конфигурацию
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// Инициализируем подключение к базе данных
	db, err := database.NewDatabase(cfg)
	if err != nil {
		log.Fatalf("Ошибка подключения к базе данных: %v", err)
	}

	// Инициализируем сервисы
	emailService := services.NewEmailService(cfg)
	userService := services.NewUserService(db, emailService)
	transactionService := services.NewTransactionService(db.DB, emailService)

	// Инициализируем контроллеры
	authController := controllers.NewAuthController(cfg, userService)
	userController := controllers.NewUserController(userService, transactionService)
	transactionController := controllers.NewTransactionController(transactionService)

	// Создаем роутер
	router := mux.NewRouter()
	router.Use(
		middleware.Recovery,
		middleware.LoggingMiddleware,
		middleware.RateLimit(utils.NewRateLimiter(100, time.Minute)),
	)

	// Публичные маршруты
	router.HandleFunc("/user/create/", userController.CreateUser).Methods("POST")
	router.HandleFunc("/token/", authController.ObtainToken).Methods("POST")
	router.HandleFunc("/token/refresh/", authController.RefreshToken).Methods("POST")
	router.HandleFunc("/swagger.json", schemaHandler).Methods("GET")

	// Защищенные маршруты
	protected := router.PathPrefix("/").Subrouter()
	protected.Use(middleware.AuthMiddleware(db, []byte(authController.GetJWTKey())))

	// Маршруты для работы с пользователями
	protected.HandleFunc("/user/all/", userController.ListUsers).Methods("GET")
	protected.HandleFunc("/user/update/{id:[0-9]+}/", userController.UpdateUser).Methods("PATCH", "PUT")
	protected.HandleFunc("/user/delete/{id:[0-9]+}/", userController.DeleteUser).Methods("DELETE")

	// Маршруты для работы с транзакциями пользователя
	protected.HandleFunc("/user/{id:[0-9]+}/transactions/", userController.UserTransactions).Methods("GET")
	protected.HandleFunc("/user/{id:[0-9]+}/transactions/income/", userController.UserIncomeTransactions).Methods("GET")
	protected.HandleFunc("/user/{id:[0-9]+}/transactions/income/summary/", userController.UserIncomeSummary).Methods("GET")
	protected.HandleFunc("/user/{id:[0-9]+}/transactions/outcome/", userController.UserOutcomeTransactions).Methods("GET")
	protected.HandleFunc("/user/{id:[0-9]+}/transactions/outcome/summary/", userController.UserOutcomeSummary).Methods("GET")
	protected.HandleFunc("/user/{id:[0-9]+}/transactions/export/", userController.ExportStatement).Methods("GET")

	// Получение пользователя по ID или email
	protected.HandleFunc("/user/{id:[0-9]+}/", userController.GetUserByID).Methods("GET")
	protected.HandleFunc("/user/{email:.+@.+}/", userController.GetUserByEmail).Methods("GET")

	// Маршруты для работы с транзакциями
	protected.HandleFunc("/transaction/create/", transactionController.CreateTransaction).Methods("POST")
	protected.HandleFunc("/transaction/update/{id:[0-9]+}/", transactionController.UpdateTransaction).Methods("PATCH", "PUT")
	protected.HandleFunc("/transaction/delete/{id:[0-9]+}/", transactionController.DeleteTransaction).Methods("DELETE")
	protected.HandleFunc("/transaction/all/", transactionController.ListTransactions).Methods("GET")
	protected.HandleFunc("/transaction/{id:[0-9]+}/", transactionController.GetTransaction).Methods("GET")

	// Служебные маршруты
	protected.HandleFunc("/metrics", metricsHandler).Methods("GET")

	// Запускаем сервер
	port := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Сервер запущен на порту %s", port)
	if err := http.ListenAndServe(port, router); err != nil {
		log.Fatalf("Ошибка запуска сервера: %v", err)
	}
}
