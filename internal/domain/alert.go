package domain

import "time"

// Alert kinds, one per breached metric family plus system_down from health checks
const (
	AlertPerformanceDegradation = "performance_degradation"
	AlertHighErrorRate          = "high_error_rate"
	AlertSystemDown             = "system_down"
	AlertSlaBreach              = "sla_breach"
)

// Alert severities in increasing order of urgency
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// PerformanceAlert a generated alert record. The table is append-only,
// alerts are an audit trail and are never updated or deleted by the engine.
type PerformanceAlert struct {
	ID               int64     `json:"id,string" form:"id"`
	AlertType        string    `gorm:"index" json:"alert_type" form:"alert_type"`
	Severity         string    `gorm:"index" json:"severity" form:"severity"`
	Description      string    `json:"description" form:"description"`
	AffectedServices string    `json:"affected_services" form:"affected_services"` // JSON array of service names
	Metrics          string    `json:"metrics" form:"metrics"`                     // JSON snapshot: mean and breached bound
	ClinicID         string    `gorm:"index" json:"clinic_id" form:"clinic_id"`
	Timestamp        time.Time `gorm:"index" json:"timestamp"`
	CreatedAt        time.Time `json:"created_at"`
}

// TableName Specify table name
func (PerformanceAlert) TableName() string {
	return "perf_alert"
}
