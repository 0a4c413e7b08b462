package utils

import (
	"sync"
	"time"
)

// Metrics содержит метрики приложения
type Metrics struct {
	mu sync.RWMutex

	// Метрики запросов
	TotalRequests   int64
	FailedRequests  int64
	RequestLatency  time.Duration
	AverageLatency  time.Duration
	LastRequestTime time.Time

	// Метрики сущностей
	UsersCreated        int64
	UsersDeleted        int64
	TransactionsCreated int64
	TransactionsDeleted int64

	// Метрики ошибок
	ErrorCount    int64
	LastErrorTime time.Time
	ErrorTypes    map[string]int64
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics возвращает экземпляр метрик
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = &Metrics{
			ErrorTypes: make(map[string]int64),
		}
	})
	return metrics
}

// RecordRequest записывает метрики запроса
func (m *Metrics) RecordRequest(duration time.Duration, failed bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests++
	m.RequestLatency += duration
	m.AverageLatency = m.RequestLatency / time.Duration(m.TotalRequests)
	m.LastRequestTime = time.Now()

	if failed {
		m.FailedRequests++
	}
}

// RecordUserOperation записывает метрики операции с пользователем
func (m *Metrics) RecordUserOperation(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch operation {
	case "create":
		m.UsersCreated++
	case "delete":
		m.UsersDeleted++
	}
}

// RecordTransactionOperation записывает метрики операции с транзакцией
func (m *Metrics) RecordTransactionOperation(operation string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch operation {
	case "create":
		m.TransactionsCreated++
	case "delete":
		m.TransactionsDeleted++
	}
}

// RecordError записывает метрики ошибки
func (m *Metrics) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ErrorCount++
	m.LastErrorTime = time.Now()

	errorType := "unknown"
	if err != nil {
		errorType = err.Error()
	}

	m.ErrorTypes[errorType]++
}

// GetMetricsSnapshot возвращает снимок текущих метрик
func (m *Metrics) GetMetricsSnapshot() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	errorTypes := make(map[string]int64, len(m.ErrorTypes))
	for k, v := range m.ErrorTypes {
		errorTypes[k] = v
	}

	return map[string]interface{}{
		"total_requests":       m.TotalRequests,
		"failed_requests":      m.FailedRequests,
		"average_latency":      m.AverageLatency.String(),
		"users_created":        m.UsersCreated,
		"users_deleted":        m.UsersDeleted,
		"transactions_created": m.TransactionsCreated,
		"transactions_deleted": m.TransactionsDeleted,
		"error_count":          m.ErrorCount,
		"last_error_time":      m.LastErrorTime,
		"error_types":          errorTypes,
	}
}

// ResetMetrics сбрасывает все метрики
func (m *Metrics) ResetMetrics() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.TotalRequests = 0
	m.FailedRequests = 0
	m.RequestLatency = 0
	m.AverageLatency = 0
	m.UsersCreated = 0
	m.UsersDeleted = 0
	m.TransactionsCreated = 0
	m.TransactionsDeleted = 0
	m.ErrorCount = 0
	m.ErrorTypes = make(map[string]int64)
}
