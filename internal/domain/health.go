package domain

import "time"

// Health statuses for a probed service and for the overall report
const (
	HealthHealthy   = "healthy"
	HealthDegraded  = "degraded"
	HealthUnhealthy = "unhealthy"
)

// HealthCheckRecord a persisted snapshot of one probe outcome, written by
// the health_check scheduler for uptime history
type HealthCheckRecord struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	ServiceName  string    `gorm:"index" json:"service_name"`
	Status       string    `json:"status"`
	ResponseTime int64     `json:"response_time"` // milliseconds
	CheckedAt    time.Time `gorm:"index" json:"checked_at"`
	Error        string    `json:"error"`
	CreatedAt    time.Time `json:"created_at"`
}

// TableName Specify table name
func (HealthCheckRecord) TableName() string {
	return "health_check"
}
