package domain

import "time"

// MonitorScheduler scheduler task data model for managing periodic monitor jobs
type MonitorScheduler struct {
	ID          int64     `json:"id,string" form:"id"`                // Primary key ID
	Name        string    `json:"name" form:"name"`                   // Scheduler name
	TaskType    string    `json:"task_type" form:"task_type"`         // Task type (health_check, alert_sweep, retention_cleanup)
	Interval    int       `json:"interval" form:"interval"`           // Interval in seconds
	Status      string    `json:"status" form:"status"`               // Status (enabled/disabled)
	LastRunAt   time.Time `json:"last_run_at"`                        // Last execution time
	NextRunAt   time.Time `json:"next_run_at"`                        // Next scheduled execution time
	LastResult  string    `json:"last_result" form:"last_result"`     // Last execution result (success/failed)
	LastMessage string    `json:"last_message" form:"last_message"`   // Last execution message or error
	Config      string    `json:"config" form:"config"`               // JSON config for task-specific settings
	Remark      string    `json:"remark" form:"remark"`               // Remark
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName Specify table name
func (MonitorScheduler) TableName() string {
	return "monitor_scheduler"
}
