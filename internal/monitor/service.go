package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/clinicops/pulsewatch/config"
	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/clinicops/pulsewatch/pkg/common"
	"gorm.io/gorm"
)

// Service bundles the monitoring engine: ingestion, evaluation, aggregation
// and the repositories behind them. One instance lives on the application.
type Service struct {
	thresholds Thresholds
	metrics    MetricRepository
	alerts     AlertRepository
	health     HealthRepository
	ingestor   *Ingestor
	evaluator  *Evaluator
	aggregator *Aggregator

	defaultWindow time.Duration
	now           func() time.Time
}

// NewService wires the engine onto a database handle
func NewService(db *gorm.DB, cfg config.MonitorConfig, bus EventBus.Bus) *Service {
	thresholds := ThresholdsFromConfig(cfg.Thresholds)
	metricRepo := NewGormMetricRepository(db)
	alertRepo := NewGormAlertRepository(db)
	healthRepo := NewGormHealthRepository(db)

	evaluator := NewEvaluator(thresholds, alertRepo, bus, cfg.EvalWorkers)

	return &Service{
		thresholds:    thresholds,
		metrics:       metricRepo,
		alerts:        alertRepo,
		health:        healthRepo,
		ingestor:      NewIngestor(metricRepo, evaluator, cfg.MaxBatchSize),
		evaluator:     evaluator,
		aggregator:    NewAggregator(metricRepo, alertRepo, thresholds),
		defaultWindow: ParseTimeWindow(cfg.DefaultWindow),
		now:           time.Now,
	}
}

// Thresholds returns the immutable tier configuration
func (s *Service) Thresholds() Thresholds {
	return s.thresholds
}

// Alerts returns the alert repository
func (s *Service) Alerts() AlertRepository {
	return s.alerts
}

// Health returns the probe history repository
func (s *Service) Health() HealthRepository {
	return s.health
}

// Ingest validates, stores and evaluates one metric batch
func (s *Service) Ingest(ctx context.Context, batch []MetricInput) (*IngestResult, error) {
	return s.ingestor.Ingest(ctx, batch)
}

// SweepResult outcome of one alert generation pass
type SweepResult struct {
	Alerts          []domain.PerformanceAlert
	MetricsAnalyzed int
	Window          string
}

// GenerateAlerts evaluates the stored metrics of a window. An unparsable
// window silently falls back to the default lookback.
func (s *Service) GenerateAlerts(ctx context.Context, clinicID, window string) (*SweepResult, error) {
	lookback := s.defaultWindow
	if strings.TrimSpace(window) != "" {
		lookback = ParseTimeWindow(window)
	}

	rows, err := s.metrics.QueryWindow(ctx, clinicID, s.now().Add(-lookback))
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}

	alerts := s.evaluator.Evaluate(ctx, rows, clinicID)
	if alerts == nil {
		alerts = []domain.PerformanceAlert{}
	}
	return &SweepResult{
		Alerts:          alerts,
		MetricsAnalyzed: len(rows),
		Window:          fmt.Sprintf("%ds", int64(lookback.Seconds())),
	}, nil
}

// Dashboard aggregates a summary plus the latest alerts for one clinic view
func (s *Service) Dashboard(ctx context.Context, clinicID, timeRange string) (*DashboardData, error) {
	window := s.defaultWindow
	if strings.TrimSpace(timeRange) != "" {
		window = ParseTimeWindow(timeRange)
	}
	return s.aggregator.Dashboard(ctx, clinicID, window)
}

// HealthHistoryResult persisted probe outcomes plus the uptime share derived
// from them
type HealthHistoryResult struct {
	Records []domain.HealthCheckRecord `json:"records"`
	Uptime  float64                    `json:"uptime"`
}

// HealthHistory lists the persisted probe snapshots of a window. Uptime is
// the share of non-unhealthy records, in percent.
func (s *Service) HealthHistory(ctx context.Context, serviceName, window string) (*HealthHistoryResult, error) {
	lookback := s.defaultWindow
	if strings.TrimSpace(window) != "" {
		lookback = ParseTimeWindow(window)
	}

	records, err := s.health.History(ctx, serviceName, s.now().Add(-lookback))
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}

	result := &HealthHistoryResult{Records: records, Uptime: 100}
	if len(records) > 0 {
		up := 0
		for _, r := range records {
			if r.Status != domain.HealthUnhealthy {
				up++
			}
		}
		result.Uptime = float64(up) / float64(len(records)) * 100
	}
	return result, nil
}

// RaiseSystemDown records one system_down alert naming the failing services.
// An identical alert raised within the dedupe window is skipped so a flapping
// service does not flood the alert table between scheduler runs.
func (s *Service) RaiseSystemDown(ctx context.Context, services []string, dedupe time.Duration) (*domain.PerformanceAlert, error) {
	if len(services) == 0 {
		return nil, nil
	}

	last, err := s.alerts.LastOfType(ctx, domain.AlertSystemDown, s.now().Add(-dedupe))
	if err != nil {
		return nil, err
	}
	if last != nil {
		return nil, nil
	}

	affected, _ := json.Marshal(services)
	alert := &domain.PerformanceAlert{
		ID:               common.UUIDint64(),
		AlertType:        domain.AlertSystemDown,
		Severity:         domain.SeverityCritical,
		Description:      fmt.Sprintf("health check reported unhealthy services: %s", strings.Join(services, ", ")),
		AffectedServices: string(affected),
		Metrics:          "{}",
		Timestamp:        s.now(),
	}
	s.evaluator.dispatch(ctx, alert)
	return alert, nil
}

// RetentionCleanup drops metric and health rows older than the horizon and
// returns how many rows went away
func (s *Service) RetentionCleanup(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := s.now().Add(-retention)

	metricsDropped, err := s.metrics.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	healthDropped, err := s.health.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return metricsDropped, err
	}
	return metricsDropped + healthDropped, nil
}
