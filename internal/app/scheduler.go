package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Scheduler task types. The external polling contract lives here: enabled
// monitor_scheduler rows say what runs and how often, operators tune them
// through the scheduler endpoints.
const (
	TaskHealthCheck      = "health_check"
	TaskAlertSweep       = "alert_sweep"
	TaskRetentionCleanup = "retention_cleanup"
)

// StartSchedulerService runs enabled schedulers periodically
func (a *Application) StartSchedulerService(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.runSchedulers(ctx)
			}
		}
	}()
}

// runSchedulers executes enabled schedulers that are due
func (a *Application) runSchedulers(ctx context.Context) {
	var schedulers []domain.MonitorScheduler
	a.gormDB.Where("status = ?", "enabled").Find(&schedulers)
	now := time.Now()
	for _, sched := range schedulers {
		if sched.NextRunAt.IsZero() || !now.Before(sched.NextRunAt) {
			a.runSchedulerTask(ctx, &sched)
		}
	}
}

// runSchedulerTask runs one scheduler and records the outcome on its row
func (a *Application) runSchedulerTask(ctx context.Context, sched *domain.MonitorScheduler) {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Errorf("scheduler %s panic: %v", sched.Name, err)
		}
	}()

	var (
		message string
		err     error
	)
	switch sched.TaskType {
	case TaskHealthCheck:
		message, err = a.runHealthCheckTask(ctx)
	case TaskAlertSweep:
		message, err = a.runAlertSweepTask(ctx)
	case TaskRetentionCleanup:
		message, err = a.runRetentionCleanupTask(ctx)
	default:
		err = errors.Errorf("unknown task type %s", sched.TaskType)
	}

	result := "success"
	if err != nil {
		result = "failed"
		message = err.Error()
		zap.L().Error("scheduler task failed",
			zap.String("name", sched.Name),
			zap.String("task_type", sched.TaskType),
			zap.Error(err))
	}

	now := time.Now()
	a.gormDB.Model(&domain.MonitorScheduler{}).Where("id = ?", sched.ID).Updates(map[string]interface{}{
		"last_run_at":  now,
		"next_run_at":  now.Add(time.Duration(sched.Interval) * time.Second),
		"last_result":  result,
		"last_message": message,
	})
}

// runHealthCheckTask probes the dependent services, persists the outcomes
// and raises a deduplicated system_down alert when the overall status is
// unhealthy
func (a *Application) runHealthCheckTask(ctx context.Context) (string, error) {
	report := a.checker.Check(ctx)

	if a.GetSettingsBoolValue("monitor", "health_history_persist") {
		if err := a.monitorSvc.Health().CreateBatch(ctx, report.Records()); err != nil {
			return "", errors.Wrap(err, "persist health records")
		}
	}

	if report.OverallStatus != domain.HealthUnhealthy {
		return fmt.Sprintf("overall %s, %d services", report.OverallStatus, len(report.Services)), nil
	}

	dedupe := time.Duration(a.GetSettingsInt64Value("monitor", "system_down_dedupe_seconds")) * time.Second
	if dedupe <= 0 {
		dedupe = 5 * time.Minute
	}
	failing := report.Unhealthy()
	alert, err := a.monitorSvc.RaiseSystemDown(ctx, failing, dedupe)
	if err != nil {
		return "", errors.Wrap(err, "raise system_down")
	}
	if alert == nil {
		return fmt.Sprintf("unhealthy: %s (alert suppressed)", strings.Join(failing, ", ")), nil
	}
	return fmt.Sprintf("unhealthy: %s (alert raised)", strings.Join(failing, ", ")), nil
}

// runAlertSweepTask evaluates the stored metrics of the default window
// across all clinics
func (a *Application) runAlertSweepTask(ctx context.Context) (string, error) {
	result, err := a.monitorSvc.GenerateAlerts(ctx, "", "")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d metrics analyzed, %d alerts", result.MetricsAnalyzed, len(result.Alerts)), nil
}

// runRetentionCleanupTask drops history past the retention horizon
func (a *Application) runRetentionCleanupTask(ctx context.Context) (string, error) {
	idays := a.ConfigMgr().GetInt("monitor", "retention_days")
	if idays == 0 {
		idays = a.appConfig.Monitor.RetentionDays
	}
	if idays == 0 {
		idays = 30
	}

	dropped, err := a.monitorSvc.RetentionCleanup(ctx, time.Duration(idays)*24*time.Hour)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d rows dropped", dropped), nil
}

// RunSchedulerNow triggers a scheduler execution immediately by ID
func (a *Application) RunSchedulerNow(id int64) error {
	var sched domain.MonitorScheduler
	if err := a.gormDB.First(&sched, id).Error; err != nil {
		return err
	}
	a.runSchedulerTask(context.Background(), &sched)
	return nil
}
