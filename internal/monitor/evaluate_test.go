package monitor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memAlertRepo collects created alerts, optionally failing every insert
type memAlertRepo struct {
	mu      sync.Mutex
	created []domain.PerformanceAlert
	fail    bool
}

func (r *memAlertRepo) Create(ctx context.Context, alert *domain.PerformanceAlert) error {
	if r.fail {
		return errors.New("store unavailable")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, *alert)
	return nil
}

func (r *memAlertRepo) Recent(ctx context.Context, clinicID string, limit int) ([]domain.PerformanceAlert, error) {
	return nil, nil
}

func (r *memAlertRepo) List(ctx context.Context, filter AlertFilter, page, pageSize int) ([]domain.PerformanceAlert, int64, error) {
	return nil, 0, nil
}

func (r *memAlertRepo) LastOfType(ctx context.Context, alertType string, since time.Time) (*domain.PerformanceAlert, error) {
	return nil, nil
}

func metricRow(service string, kind domain.MetricType, value float64) domain.PerformanceMetric {
	return domain.PerformanceMetric{
		MetricType:  kind,
		MetricValue: value,
		Timestamp:   time.Now(),
		ServiceName: service,
	}
}

func TestEvaluateCriticalBreach(t *testing.T) {
	repo := &memAlertRepo{}
	ev := NewEvaluator(DefaultThresholds(), repo, nil, 4)

	alerts := ev.Evaluate(context.Background(), []domain.PerformanceMetric{
		metricRow("database", domain.MetricResponseTime, 650),
	}, "")

	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityCritical, alerts[0].Severity)
	assert.Equal(t, domain.AlertPerformanceDegradation, alerts[0].AlertType)
	assert.Contains(t, alerts[0].Description, "database")
	assert.Contains(t, alerts[0].Description, "650")
	assert.Contains(t, alerts[0].AffectedServices, "database")

	var snapshot AlertSnapshot
	require.NoError(t, json.Unmarshal([]byte(alerts[0].Metrics), &snapshot))
	assert.Equal(t, 650.0, snapshot.Mean)
	assert.Equal(t, 500.0, snapshot.Threshold)
	assert.Equal(t, 1, snapshot.SampleCount)

	require.Len(t, repo.created, 1)
}

func TestEvaluateGroupMeans(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds(), &memAlertRepo{}, nil, 4)

	// mean 250 sits between acceptable (200) and poor (500)
	alerts := ev.Evaluate(context.Background(), []domain.PerformanceMetric{
		metricRow("api", domain.MetricResponseTime, 100),
		metricRow("api", domain.MetricResponseTime, 400),
	}, "")

	require.Len(t, alerts, 1)
	assert.Equal(t, domain.SeverityMedium, alerts[0].Severity)
}

func TestEvaluateNoAlertWithinAcceptable(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds(), &memAlertRepo{}, nil, 4)

	alerts := ev.Evaluate(context.Background(), []domain.PerformanceMetric{
		metricRow("api", domain.MetricResponseTime, 150),
		metricRow("api", domain.MetricResponseTime, 180),
		metricRow("worker", domain.MetricErrorRate, 0.4),
		metricRow("gateway", domain.MetricThroughput, 100000),
	}, "")

	assert.Empty(t, alerts)
}

func TestEvaluateOneAlertPerGroup(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds(), &memAlertRepo{}, nil, 4)

	alerts := ev.Evaluate(context.Background(), []domain.PerformanceMetric{
		metricRow("database", domain.MetricResponseTime, 700),
		metricRow("database", domain.MetricResponseTime, 800),
		metricRow("database", domain.MetricErrorRate, 5),
		metricRow("api", domain.MetricResponseTime, 650),
	}, "")

	// three breached groups, exactly one alert each
	require.Len(t, alerts, 3)
	seen := map[string]bool{}
	for _, a := range alerts {
		seen[a.AffectedServices+"/"+a.AlertType] = true
		assert.Equal(t, domain.SeverityCritical, a.Severity)
	}
	assert.Len(t, seen, 3)
}

func TestEvaluatePersistenceFailureKeepsAlerts(t *testing.T) {
	repo := &memAlertRepo{fail: true}
	ev := NewEvaluator(DefaultThresholds(), repo, nil, 4)

	alerts := ev.Evaluate(context.Background(), []domain.PerformanceMetric{
		metricRow("database", domain.MetricResponseTime, 650),
		metricRow("api", domain.MetricErrorRate, 3),
	}, "")

	// insert failed for both, the caller-visible slice is untouched
	require.Len(t, alerts, 2)
	assert.Empty(t, repo.created)
}

func TestEvaluatePublishesOnBus(t *testing.T) {
	bus := EventBus.New()
	var (
		mu       sync.Mutex
		received []domain.PerformanceAlert
	)
	require.NoError(t, bus.Subscribe(TopicAlertCreated, func(alert domain.PerformanceAlert) {
		mu.Lock()
		defer mu.Unlock()
		received = append(received, alert)
	}))

	ev := NewEvaluator(DefaultThresholds(), &memAlertRepo{}, bus, 4)
	alerts := ev.Evaluate(context.Background(), []domain.PerformanceMetric{
		metricRow("database", domain.MetricResponseTime, 650),
	}, "clinic-7")

	require.Len(t, alerts, 1)
	assert.Equal(t, "clinic-7", alerts[0].ClinicID)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, alerts[0].ID, received[0].ID)
}

func TestEvaluateEmptyInput(t *testing.T) {
	ev := NewEvaluator(DefaultThresholds(), &memAlertRepo{}, nil, 4)
	assert.Empty(t, ev.Evaluate(context.Background(), nil, ""))
}
