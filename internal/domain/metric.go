package domain

import "time"

// MetricType enumerates the metric kinds accepted by the ingestion API
type MetricType string

const (
	MetricResponseTime MetricType = "response_time"
	MetricErrorRate    MetricType = "error_rate"
	MetricThroughput   MetricType = "throughput"
	MetricAvailability MetricType = "availability"
	MetricUserSessions MetricType = "user_sessions"
)

// Valid reports whether the metric type is a known kind
func (m MetricType) Valid() bool {
	switch m {
	case MetricResponseTime, MetricErrorRate, MetricThroughput, MetricAvailability, MetricUserSessions:
		return true
	}
	return false
}

// MetricTypes lists all accepted metric kinds
var MetricTypes = []MetricType{
	MetricResponseTime,
	MetricErrorRate,
	MetricThroughput,
	MetricAvailability,
	MetricUserSessions,
}

// PerformanceMetric one observed measurement reported by a service.
// Rows are immutable once stored, there is no update path.
type PerformanceMetric struct {
	ID          int64      `json:"id,string" form:"id"`
	MetricType  MetricType `gorm:"index" json:"metric_type" form:"metric_type"`
	MetricValue float64    `json:"metric_value" form:"metric_value"`
	Timestamp   time.Time  `gorm:"index" json:"timestamp" form:"timestamp"`
	ServiceName string     `gorm:"index" json:"service_name" form:"service_name"`
	Endpoint    string     `json:"endpoint" form:"endpoint"`
	ClinicID    string     `gorm:"index" json:"clinic_id" form:"clinic_id"`
	UserID      string     `json:"user_id" form:"user_id"`
	Metadata    string     `json:"metadata" form:"metadata"` // JSON, normalized at ingestion
	CreatedAt   time.Time  `json:"created_at"`
}

// TableName Specify table name
func (PerformanceMetric) TableName() string {
	return "perf_metric"
}
