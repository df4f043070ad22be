package domain

var Tables = []interface{}{
	// System
	&SysConfig{},
	// Monitor
	&PerformanceMetric{},
	&PerformanceAlert{},
	&HealthCheckRecord{},
	&MonitorScheduler{},
}
