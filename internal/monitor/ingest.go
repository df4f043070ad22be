package monitor

import (
	"context"
	"math"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/clinicops/pulsewatch/pkg/common"
	"github.com/clinicops/pulsewatch/pkg/metrics"
)

// MetricInput one entry of an ingestion batch before normalization.
// Timestamp is free-form, RFC3339, epoch and the common formats all parse.
type MetricInput struct {
	MetricType  string                 `json:"metric_type" validate:"required"`
	MetricValue float64                `json:"metric_value"`
	Timestamp   string                 `json:"timestamp" validate:"omitempty,max=64"`
	ServiceName string                 `json:"service_name" validate:"required,max=100"`
	Endpoint    string                 `json:"endpoint" validate:"omitempty,max=500"`
	ClinicID    string                 `json:"clinic_id" validate:"omitempty,max=64"`
	UserID      string                 `json:"user_id" validate:"omitempty,max=64"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// IngestResult outcome of one accepted batch
type IngestResult struct {
	Stored          int
	AlertsGenerated []domain.PerformanceAlert
}

// Ingestor validates, normalizes and persists metric batches, then feeds the
// stored batch straight into evaluation. Validation is all-or-nothing: one
// bad entry rejects the batch before anything is written.
type Ingestor struct {
	repo      MetricRepository
	evaluator *Evaluator
	maxBatch  int
	now       func() time.Time
}

// NewIngestor creates an ingestor writing through repo
func NewIngestor(repo MetricRepository, evaluator *Evaluator, maxBatch int) *Ingestor {
	if maxBatch <= 0 {
		maxBatch = 1000
	}
	return &Ingestor{
		repo:      repo,
		evaluator: evaluator,
		maxBatch:  maxBatch,
		now:       time.Now,
	}
}

// Ingest processes one batch. On success every entry is stored and the batch
// has been evaluated for alerts. On a ValidationError nothing was written.
// A StoreError means the batch insert itself failed.
func (ing *Ingestor) Ingest(ctx context.Context, batch []MetricInput) (*IngestResult, error) {
	if len(batch) == 0 {
		return nil, newValidationError(-1, "metrics", "batch is empty")
	}
	if len(batch) > ing.maxBatch {
		return nil, newValidationError(-1, "metrics", "batch exceeds maximum size")
	}

	rows := make([]*domain.PerformanceMetric, 0, len(batch))
	for i, entry := range batch {
		row, err := ing.normalize(i, entry)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}

	if err := ing.repo.CreateBatch(ctx, rows); err != nil {
		return nil, &StoreError{Op: "insert", Err: err}
	}
	metrics.IncrCounter("monitor_metrics_ingested_total", int64(len(rows)))

	stored := make([]domain.PerformanceMetric, len(rows))
	for i, row := range rows {
		stored[i] = *row
	}
	alerts := ing.evaluator.Evaluate(ctx, stored, "")

	return &IngestResult{
		Stored:          len(rows),
		AlertsGenerated: alerts,
	}, nil
}

// normalize validates one entry and produces the row to store
func (ing *Ingestor) normalize(index int, entry MetricInput) (*domain.PerformanceMetric, error) {
	metricType := domain.MetricType(strings.TrimSpace(entry.MetricType))
	if !metricType.Valid() {
		return nil, newValidationError(index, "metric_type", "is not a known metric type")
	}

	if math.IsNaN(entry.MetricValue) || math.IsInf(entry.MetricValue, 0) {
		return nil, newValidationError(index, "metric_value", "is not a finite number")
	}
	if entry.MetricValue < 0 {
		return nil, newValidationError(index, "metric_value", "must not be negative")
	}

	serviceName := strings.TrimSpace(entry.ServiceName)
	if serviceName == "" {
		return nil, newValidationError(index, "service_name", "is required")
	}

	ts := ing.now()
	if strings.TrimSpace(entry.Timestamp) != "" {
		parsed, err := dateparse.ParseAny(entry.Timestamp)
		if err != nil {
			return nil, newValidationError(index, "timestamp", "is not a recognizable time")
		}
		ts = parsed
	}

	metadata, err := normalizeMetadata(metricType, entry.Metadata)
	if err != nil {
		return nil, newValidationError(index, "metadata", err.Error())
	}

	return &domain.PerformanceMetric{
		ID:          common.UUIDint64(),
		MetricType:  metricType,
		MetricValue: entry.MetricValue,
		Timestamp:   ts,
		ServiceName: serviceName,
		Endpoint:    strings.TrimSpace(entry.Endpoint),
		ClinicID:    strings.TrimSpace(entry.ClinicID),
		UserID:      strings.TrimSpace(entry.UserID),
		Metadata:    metadata,
	}, nil
}
