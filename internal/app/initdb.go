package app

import (
	"fmt"
	"path"
	"time"

	"github.com/clinicops/pulsewatch/config"
	"github.com/clinicops/pulsewatch/internal/domain"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// getDatabase opens the main store, postgres for production deployments and
// an sqlite file under the workdir for small sites and tests
func getDatabase(cfg config.DBConfig, workdir string) *gorm.DB {
	loglevel := logger.Silent
	if cfg.Debug {
		loglevel = logger.Info
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "sqlite":
		dialector = sqlite.Open(path.Join(workdir, "data", cfg.Name+".db"))
	default:
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(loglevel),
	})
	if err != nil {
		panic(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	if cfg.MaxConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxConn)
	}
	if cfg.IdleConn > 0 {
		sqlDB.SetMaxIdleConns(cfg.IdleConn)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)
	return db
}

// settingSchema one seedable system setting
type settingSchema struct {
	Type        string
	Name        string
	Default     string
	Description string
}

var defaultSettings = []settingSchema{
	{Type: "monitor", Name: "system_down_dedupe_seconds", Default: "300",
		Description: "Suppress a repeated system_down alert raised within this many seconds"},
	{Type: "monitor", Name: "retention_days", Default: "30",
		Description: "Days of metric and health history kept by retention cleanup"},
	{Type: "monitor", Name: "health_history_persist", Default: "on",
		Description: "Persist probe outcomes from the health_check scheduler"},
}

// checkSettings seeds missing system settings with their defaults
func (a *Application) checkSettings() {
	for sortid, schema := range defaultSettings {
		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", schema.Type, schema.Name).
			Count(&count)

		if count == 0 {
			a.gormDB.Create(&domain.SysConfig{
				ID:     0,
				Sort:   sortid,
				Type:   schema.Type,
				Name:   schema.Name,
				Value:  schema.Default,
				Remark: schema.Description,
			})
			zap.L().Info("initialized config",
				zap.String("key", schema.Type+"."+schema.Name),
				zap.String("default", schema.Default))
		}
	}
}

// checkSchedulers initializes default scheduled tasks
func (a *Application) checkSchedulers() {
	defaultSchedulers := []domain.MonitorScheduler{
		{
			Name:     "Health Check",
			TaskType: TaskHealthCheck,
			Interval: 60,
			Status:   "enabled",
			Remark:   "Periodically probes dependent services and persists the outcomes",
		},
		{
			Name:     "Alert Sweep",
			TaskType: TaskAlertSweep,
			Interval: 300,
			Status:   "enabled",
			Remark:   "Periodically evaluates the stored metrics of the default window",
		},
		{
			Name:     "Retention Cleanup",
			TaskType: TaskRetentionCleanup,
			Interval: 86400,
			Status:   "enabled",
			Remark:   "Drops metric and health history past the retention horizon",
		},
	}

	for _, sched := range defaultSchedulers {
		var count int64
		a.gormDB.Model(&domain.MonitorScheduler{}).
			Where("task_type = ?", sched.TaskType).
			Count(&count)

		if count == 0 {
			sched.NextRunAt = time.Now().Add(time.Duration(sched.Interval) * time.Second)
			if err := a.gormDB.Create(&sched).Error; err != nil {
				zap.L().Error("failed to create default scheduler",
					zap.String("name", sched.Name),
					zap.Error(err))
			} else {
				zap.L().Info("initialized default scheduler",
					zap.String("name", sched.Name),
					zap.String("task_type", sched.TaskType))
			}
		}
	}
}
