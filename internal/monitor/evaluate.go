package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/clinicops/pulsewatch/pkg/common"
	"github.com/clinicops/pulsewatch/pkg/metrics"
	"github.com/montanaflynn/stats"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// TopicAlertCreated is published on the event bus for every generated alert.
// Notification delivery to humans lives outside this engine, subscribers on
// this topic are the hand-off point.
const TopicAlertCreated = "monitor.alert.created"

type groupKey struct {
	service string
	metric  domain.MetricType
}

// AlertSnapshot the metric evidence embedded in an alert
type AlertSnapshot struct {
	MetricType  string  `json:"metric_type"`
	Mean        float64 `json:"mean"`
	Threshold   float64 `json:"threshold"`
	SampleCount int     `json:"sample_count"`
}

// Evaluator computes per (service, metric_type) group means and turns tier
// breaches into alerts. Stateless between invocations: every call sees only
// the metrics it is given, there is no cross-call suppression.
type Evaluator struct {
	thresholds Thresholds
	alerts     AlertRepository
	bus        EventBus.Bus
	workers    int
	now        func() time.Time
}

// NewEvaluator creates an evaluator. bus may be nil when no subscriber cares.
func NewEvaluator(thresholds Thresholds, alerts AlertRepository, bus EventBus.Bus, workers int) *Evaluator {
	if workers <= 0 {
		workers = 8
	}
	return &Evaluator{
		thresholds: thresholds,
		alerts:     alerts,
		bus:        bus,
		workers:    workers,
		now:        time.Now,
	}
}

// Evaluate groups the metrics, assesses each group mean against the tiers
// and returns the generated alerts. Alert persistence is best-effort: a
// failed insert is logged and counted but never drops the alert from the
// returned slice.
func (e *Evaluator) Evaluate(ctx context.Context, rows []domain.PerformanceMetric, clinicID string) []domain.PerformanceAlert {
	groups := make(map[groupKey][]float64)
	clinics := make(map[groupKey]string)
	for _, m := range rows {
		key := groupKey{service: m.ServiceName, metric: m.MetricType}
		groups[key] = append(groups[key], m.MetricValue)
		if prev, seen := clinics[key]; !seen {
			clinics[key] = m.ClinicID
		} else if prev != m.ClinicID {
			clinics[key] = ""
		}
	}
	if len(groups) == 0 {
		return nil
	}

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		alerts []domain.PerformanceAlert
	)

	evaluate := func(key groupKey, values []float64) {
		mean, err := stats.Mean(values)
		if err != nil {
			return
		}
		breach, breached := e.thresholds.Assess(key.metric, mean)
		if !breached {
			return
		}

		clinic := clinicID
		if clinic == "" {
			clinic = clinics[key]
		}
		alert := e.buildAlert(key, mean, len(values), breach, clinic)

		mu.Lock()
		alerts = append(alerts, alert)
		mu.Unlock()
	}

	pool, err := ants.NewPool(e.workers)
	if err != nil {
		for key, values := range groups {
			evaluate(key, values)
		}
	} else {
		defer pool.Release()
		for key, values := range groups {
			key, values := key, values
			wg.Add(1)
			if err := pool.Submit(func() {
				defer wg.Done()
				evaluate(key, values)
			}); err != nil {
				wg.Done()
				evaluate(key, values)
			}
		}
		wg.Wait()
	}

	sort.Slice(alerts, func(i, j int) bool {
		if alerts[i].AffectedServices != alerts[j].AffectedServices {
			return alerts[i].AffectedServices < alerts[j].AffectedServices
		}
		return alerts[i].AlertType < alerts[j].AlertType
	})

	for i := range alerts {
		e.dispatch(ctx, &alerts[i])
	}
	return alerts
}

// buildAlert assembles one alert for a breached group
func (e *Evaluator) buildAlert(key groupKey, mean float64, samples int, breach Breach, clinicID string) domain.PerformanceAlert {
	snapshot, _ := json.Marshal(AlertSnapshot{
		MetricType:  string(key.metric),
		Mean:        mean,
		Threshold:   breach.Bound,
		SampleCount: samples,
	})
	affected, _ := json.Marshal([]string{key.service})

	var description string
	if key.metric == domain.MetricAvailability {
		description = fmt.Sprintf("%s availability mean %.2f%% fell below %.2f%% over %d samples",
			key.service, mean, breach.Bound, samples)
	} else {
		description = fmt.Sprintf("%s %s mean %.2f exceeded %.2f over %d samples",
			key.service, key.metric, mean, breach.Bound, samples)
	}

	return domain.PerformanceAlert{
		ID:               common.UUIDint64(),
		AlertType:        breach.AlertType,
		Severity:         breach.Severity,
		Description:      description,
		AffectedServices: string(affected),
		Metrics:          string(snapshot),
		ClinicID:         clinicID,
		Timestamp:        e.now(),
	}
}

// dispatch persists the alert best-effort and announces it on the bus
func (e *Evaluator) dispatch(ctx context.Context, alert *domain.PerformanceAlert) {
	if e.alerts != nil {
		if err := e.alerts.Create(ctx, alert); err != nil {
			metrics.IncrCounter("monitor_alert_persist_fail_total", 1)
			zap.L().Warn("alert persistence failed",
				zap.String("alert_type", alert.AlertType),
				zap.String("severity", alert.Severity),
				zap.Error(err))
		}
	}
	metrics.IncrCounter("monitor_alerts_generated_total", 1)
	if e.bus != nil {
		e.bus.Publish(TopicAlertCreated, *alert)
	}
}
