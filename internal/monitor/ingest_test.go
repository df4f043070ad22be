package monitor

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/clinicops/pulsewatch/config"
	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "monitor.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(domain.Tables...))
	return db
}

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc := NewService(db, config.DefaultAppConfig.Monitor, nil)
	return svc, db
}

func countRows(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestIngestStoresWholeBatch(t *testing.T) {
	svc, db := newTestService(t)

	result, err := svc.Ingest(context.Background(), []MetricInput{
		{MetricType: "response_time", MetricValue: 120, ServiceName: "api"},
		{MetricType: "error_rate", MetricValue: 0.2, ServiceName: "api", ClinicID: "clinic-1"},
		{MetricType: "throughput", MetricValue: 900, ServiceName: "gateway",
			Metadata: map[string]interface{}{"window_seconds": 60}},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Stored)
	assert.Empty(t, result.AlertsGenerated)
	assert.EqualValues(t, 3, countRows(t, db, &domain.PerformanceMetric{}))
}

func TestIngestStoreFailure(t *testing.T) {
	alerts := &memAlertRepo{}
	ing := NewIngestor(failingMetricRepo{}, NewEvaluator(DefaultThresholds(), alerts, nil, 2), 0)

	result, err := ing.Ingest(context.Background(), []MetricInput{
		{MetricType: "response_time", MetricValue: 650, ServiceName: "database"},
	})
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.Nil(t, result)
	// a failed batch write must not reach the evaluator
	assert.Empty(t, alerts.created)
}

func TestIngestAtomicityOnInvalidEntry(t *testing.T) {
	svc, db := newTestService(t)

	tests := []struct {
		name  string
		batch []MetricInput
		field string
	}{
		{
			"unknown metric type",
			[]MetricInput{
				{MetricType: "response_time", MetricValue: 100, ServiceName: "api"},
				{MetricType: "cpu_cycles", MetricValue: 1, ServiceName: "api"},
			},
			"metric_type",
		},
		{
			"negative value",
			[]MetricInput{
				{MetricType: "response_time", MetricValue: -1, ServiceName: "api"},
			},
			"metric_value",
		},
		{
			"missing service name",
			[]MetricInput{
				{MetricType: "response_time", MetricValue: 100, ServiceName: "  "},
			},
			"service_name",
		},
		{
			"unparseable timestamp",
			[]MetricInput{
				{MetricType: "response_time", MetricValue: 100, ServiceName: "api", Timestamp: "not a time"},
			},
			"timestamp",
		},
		{
			"metadata type mismatch",
			[]MetricInput{
				{MetricType: "response_time", MetricValue: 100, ServiceName: "api",
					Metadata: map[string]interface{}{"status_code": "definitely not an int"}},
			},
			"metadata",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Ingest(context.Background(), tc.batch)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
			// nothing was written
			assert.EqualValues(t, 0, countRows(t, db, &domain.PerformanceMetric{}))
		})
	}
}

func TestIngestEmptyBatchRejected(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Ingest(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestIngestTimestampHandling(t *testing.T) {
	svc, db := newTestService(t)
	before := time.Now().Add(-time.Second)

	_, err := svc.Ingest(context.Background(), []MetricInput{
		{MetricType: "response_time", MetricValue: 80, ServiceName: "api"},
		{MetricType: "response_time", MetricValue: 80, ServiceName: "api",
			Timestamp: "2026-08-29T10:30:00Z"},
	})
	require.NoError(t, err)

	var rows []domain.PerformanceMetric
	require.NoError(t, db.Order("id ASC").Find(&rows).Error)
	require.Len(t, rows, 2)
	assert.True(t, rows[0].Timestamp.After(before), "omitted timestamp defaults to now")
	assert.Equal(t, 2026, rows[1].Timestamp.Year())
	assert.Equal(t, time.August, rows[1].Timestamp.Month())
}

func TestIngestTriggersEvaluation(t *testing.T) {
	svc, db := newTestService(t)

	result, err := svc.Ingest(context.Background(), []MetricInput{
		{MetricType: "response_time", MetricValue: 650, ServiceName: "database"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stored)
	require.Len(t, result.AlertsGenerated, 1)

	alert := result.AlertsGenerated[0]
	assert.Equal(t, domain.SeverityCritical, alert.Severity)
	assert.Contains(t, alert.Description, "database")
	assert.Contains(t, alert.Description, "650")

	// the alert was persisted alongside the metric
	assert.EqualValues(t, 1, countRows(t, db, &domain.PerformanceAlert{}))
}
