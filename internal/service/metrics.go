// metrics.go — доменные счётчики store-service и retail-file-service.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics — приёмник доменных событий для мониторинга.
// Реализации должны быть безопасны для конкурентного использования.
type Metrics interface {
	StoreCreated(chainID string)
	StoreUpdated(chainID string)
	StoreDeleted(chainID string)
	RetailFileCreated()
	DuplicateFileDetected()
}

// PrometheusMetrics — реализация Metrics на Prometheus-счётчиках.
type PrometheusMetrics struct {
	storeCreated   *prometheus.CounterVec
	storeUpdated   *prometheus.CounterVec
	storeDeleted   *prometheus.CounterVec
	filesCreated   prometheus.Counter
	duplicateFiles prometheus.Counter
}

// NewPrometheusMetrics регистрирует счётчики в reg.
// Вызывается один раз на процесс; в тестах — с prometheus.NewRegistry().
func NewPrometheusMetrics(reg prometheus.Registerer) *PrometheusMetrics {
	f := promauto.With(reg)
	return &PrometheusMetrics{
		storeCreated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "store_created_total",
			Help: "Количество созданных магазинов.",
		}, []string{"chain_id"}),
		storeUpdated: f.NewCounterVec(prometheus.CounterOpts{
			Name: "store_updated_total",
			Help: "Количество обновлений магазинов.",
		}, []string{"chain_id"}),
		storeDeleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "store_deleted_total",
			Help: "Количество удалённых магазинов.",
		}, []string{"chain_id"}),
		filesCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "retail_files_created_total",
			Help: "Количество зарегистрированных розничных файлов.",
		}),
		duplicateFiles: f.NewCounter(prometheus.CounterOpts{
			Name: "duplicate_files_detected_total",
			Help: "Количество отклонённых дубликатов файлов.",
		}),
	}
}

func (m *PrometheusMetrics) StoreCreated(chainID string) {
	m.storeCreated.WithLabelValues(chainID).Inc()
}

func (m *PrometheusMetrics) StoreUpdated(chainID string) {
	m.storeUpdated.WithLabelValues(chainID).Inc()
}

func (m *PrometheusMetrics) StoreDeleted(chainID string) {
	m.storeDeleted.WithLabelValues(chainID).Inc()
}

func (m *PrometheusMetrics) RetailFileCreated() {
	m.filesCreated.Inc()
}

func (m *PrometheusMetrics) DuplicateFileDetected() {
	m.duplicateFiles.Inc()
}
