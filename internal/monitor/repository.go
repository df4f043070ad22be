package monitor

import (
	"context"
	"time"

	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// MetricRepository persistence contract for metric rows. The engine only
// relies on insert and time-range query semantics of the store.
type MetricRepository interface {
	// CreateBatch inserts all rows of one validated batch
	CreateBatch(ctx context.Context, metrics []*domain.PerformanceMetric) error

	// QueryWindow retrieves metrics since a point in time, optionally scoped to a clinic
	QueryWindow(ctx context.Context, clinicID string, since time.Time) ([]domain.PerformanceMetric, error)

	// DeleteOlderThan removes rows past the retention horizon
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AlertFilter narrows alert listings
type AlertFilter struct {
	AlertType string
	Severity  string
	ClinicID  string
}

// AlertRepository persistence contract for generated alerts. Append-only,
// no update or delete operations exist.
type AlertRepository interface {
	// Create inserts one alert
	Create(ctx context.Context, alert *domain.PerformanceAlert) error

	// Recent retrieves the newest alerts, optionally scoped to a clinic
	Recent(ctx context.Context, clinicID string, limit int) ([]domain.PerformanceAlert, error)

	// List retrieves alerts with pagination
	List(ctx context.Context, filter AlertFilter, page, pageSize int) ([]domain.PerformanceAlert, int64, error)

	// LastOfType retrieves the newest alert of a type since a point in time
	LastOfType(ctx context.Context, alertType string, since time.Time) (*domain.PerformanceAlert, error)
}

// HealthRepository persistence contract for probe history snapshots
type HealthRepository interface {
	// CreateBatch inserts one record per probed service
	CreateBatch(ctx context.Context, records []*domain.HealthCheckRecord) error

	// History retrieves records for a service since a point in time
	History(ctx context.Context, serviceName string, since time.Time) ([]domain.HealthCheckRecord, error)

	// DeleteOlderThan removes rows past the retention horizon
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormMetricRepository is the GORM implementation of MetricRepository
type GormMetricRepository struct {
	db *gorm.DB
}

// NewGormMetricRepository creates a new GORM-based metric repository
func NewGormMetricRepository(db *gorm.DB) *GormMetricRepository {
	return &GormMetricRepository{db: db}
}

func (r *GormMetricRepository) CreateBatch(ctx context.Context, metrics []*domain.PerformanceMetric) error {
	if len(metrics) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).CreateInBatches(metrics, 200).Error
	return errors.Wrap(err, "insert metrics")
}

func (r *GormMetricRepository) QueryWindow(ctx context.Context, clinicID string, since time.Time) ([]domain.PerformanceMetric, error) {
	query := r.db.WithContext(ctx).
		Where("timestamp >= ?", since)
	if clinicID != "" {
		query = query.Where("clinic_id = ?", clinicID)
	}

	var rows []domain.PerformanceMetric
	if err := query.Order("timestamp ASC").Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "query metrics window")
	}
	return rows, nil
}

func (r *GormMetricRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&domain.PerformanceMetric{})
	return res.RowsAffected, errors.Wrap(res.Error, "delete expired metrics")
}

// GormAlertRepository is the GORM implementation of AlertRepository
type GormAlertRepository struct {
	db *gorm.DB
}

// NewGormAlertRepository creates a new GORM-based alert repository
func NewGormAlertRepository(db *gorm.DB) *GormAlertRepository {
	return &GormAlertRepository{db: db}
}

func (r *GormAlertRepository) Create(ctx context.Context, alert *domain.PerformanceAlert) error {
	err := r.db.WithContext(ctx).Create(alert).Error
	return errors.Wrap(err, "insert alert")
}

func (r *GormAlertRepository) Recent(ctx context.Context, clinicID string, limit int) ([]domain.PerformanceAlert, error) {
	query := r.db.WithContext(ctx).Model(&domain.PerformanceAlert{})
	if clinicID != "" {
		query = query.Where("clinic_id = ?", clinicID)
	}

	var alerts []domain.PerformanceAlert
	if err := query.Order("timestamp DESC").Limit(limit).Find(&alerts).Error; err != nil {
		return nil, errors.Wrap(err, "query recent alerts")
	}
	return alerts, nil
}

func (r *GormAlertRepository) List(ctx context.Context, filter AlertFilter, page, pageSize int) ([]domain.PerformanceAlert, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.PerformanceAlert{})
	if filter.AlertType != "" {
		query = query.Where("alert_type = ?", filter.AlertType)
	}
	if filter.Severity != "" {
		query = query.Where("severity = ?", filter.Severity)
	}
	if filter.ClinicID != "" {
		query = query.Where("clinic_id = ?", filter.ClinicID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count alerts")
	}

	var alerts []domain.PerformanceAlert
	offset := (page - 1) * pageSize
	if err := query.Order("timestamp DESC").Offset(offset).Limit(pageSize).Find(&alerts).Error; err != nil {
		return nil, 0, errors.Wrap(err, "list alerts")
	}
	return alerts, total, nil
}

func (r *GormAlertRepository) LastOfType(ctx context.Context, alertType string, since time.Time) (*domain.PerformanceAlert, error) {
	var alert domain.PerformanceAlert
	err := r.db.WithContext(ctx).
		Where("alert_type = ? AND timestamp >= ?", alertType, since).
		Order("timestamp DESC").
		First(&alert).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "query last alert")
	}
	return &alert, nil
}

// GormHealthRepository is the GORM implementation of HealthRepository
type GormHealthRepository struct {
	db *gorm.DB
}

// NewGormHealthRepository creates a new GORM-based health history repository
func NewGormHealthRepository(db *gorm.DB) *GormHealthRepository {
	return &GormHealthRepository{db: db}
}

func (r *GormHealthRepository) CreateBatch(ctx context.Context, records []*domain.HealthCheckRecord) error {
	if len(records) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).CreateInBatches(records, 100).Error
	return errors.Wrap(err, "insert health records")
}

func (r *GormHealthRepository) History(ctx context.Context, serviceName string, since time.Time) ([]domain.HealthCheckRecord, error) {
	query := r.db.WithContext(ctx).Where("checked_at >= ?", since)
	if serviceName != "" {
		query = query.Where("service_name = ?", serviceName)
	}

	var records []domain.HealthCheckRecord
	if err := query.Order("checked_at DESC").Find(&records).Error; err != nil {
		return nil, errors.Wrap(err, "query health history")
	}
	return records, nil
}

func (r *GormHealthRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("checked_at < ?", cutoff).
		Delete(&domain.HealthCheckRecord{})
	return res.RowsAffected, errors.Wrap(res.Error, "delete expired health records")
}
