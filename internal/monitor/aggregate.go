package monitor

import (
	"context"
	"time"

	"github.com/clinicops/pulsewatch/internal/domain"
	"golang.org/x/sync/errgroup"
)

// ServiceSummary SLA figures for one service over a window
type ServiceSummary struct {
	AvgResponseTime float64 `json:"avg_response_time"`
	ErrorRate       float64 `json:"error_rate"`
	TotalRequests   float64 `json:"total_requests"`
	SLACompliance   int     `json:"sla_compliance"`
}

// OverallSummary figures across all services, weighted by sample count.
// Availability is the two-value estimate derived from the error rate, not an
// uptime measurement.
type OverallSummary struct {
	AvgResponseTime float64 `json:"avg_response_time"`
	ErrorRate       float64 `json:"error_rate"`
	Availability    float64 `json:"availability"`
	TotalRequests   float64 `json:"total_requests"`
}

// Summary the aggregation result served on the dashboard. Derived data,
// recomputable from stored metrics at any time.
type Summary struct {
	Overall         OverallSummary            `json:"overall"`
	Services        map[string]ServiceSummary `json:"services"`
	MetricsAnalyzed int                       `json:"metrics_analyzed"`
	WindowStart     time.Time                 `json:"window_start"`
	WindowEnd       time.Time                 `json:"window_end"`
}

// DashboardData summary plus the most recent alerts, assembled for one call
type DashboardData struct {
	Summary      *Summary                  `json:"summary"`
	RecentAlerts []domain.PerformanceAlert `json:"recent_alerts"`
}

type serviceBucket struct {
	rtSum, rtCount float64
	erSum, erCount float64
	tpSum          float64
}

// BuildSummary aggregates a window of metrics. Overall averages weight every
// sample equally, so a service reporting ten samples influences the overall
// mean ten times as much as a service reporting one.
func BuildSummary(rows []domain.PerformanceMetric, thresholds Thresholds, start, end time.Time) *Summary {
	buckets := make(map[string]*serviceBucket)
	var rtSum, rtCount, erSum, erCount, tpSum float64

	for _, m := range rows {
		bucket, found := buckets[m.ServiceName]
		if !found {
			bucket = &serviceBucket{}
			buckets[m.ServiceName] = bucket
		}
		switch m.MetricType {
		case domain.MetricResponseTime:
			bucket.rtSum += m.MetricValue
			bucket.rtCount++
			rtSum += m.MetricValue
			rtCount++
		case domain.MetricErrorRate:
			bucket.erSum += m.MetricValue
			bucket.erCount++
			erSum += m.MetricValue
			erCount++
		case domain.MetricThroughput:
			bucket.tpSum += m.MetricValue
			tpSum += m.MetricValue
		}
	}

	services := make(map[string]ServiceSummary, len(buckets))
	for name, bucket := range buckets {
		s := ServiceSummary{TotalRequests: bucket.tpSum}
		if bucket.rtCount > 0 {
			s.AvgResponseTime = bucket.rtSum / bucket.rtCount
		}
		if bucket.erCount > 0 {
			s.ErrorRate = bucket.erSum / bucket.erCount
		}
		s.SLACompliance = thresholds.SLAScore(s.AvgResponseTime)
		services[name] = s
	}

	overall := OverallSummary{TotalRequests: tpSum}
	if rtCount > 0 {
		overall.AvgResponseTime = rtSum / rtCount
	}
	if erCount > 0 {
		overall.ErrorRate = erSum / erCount
	}
	overall.Availability = thresholds.EstimateAvailability(overall.ErrorRate)

	return &Summary{
		Overall:         overall,
		Services:        services,
		MetricsAnalyzed: len(rows),
		WindowStart:     start,
		WindowEnd:       end,
	}
}

// Aggregator builds dashboard summaries from stored metrics
type Aggregator struct {
	metrics    MetricRepository
	alerts     AlertRepository
	thresholds Thresholds
	now        func() time.Time
}

// NewAggregator creates an aggregator reading from the given repositories
func NewAggregator(metrics MetricRepository, alerts AlertRepository, thresholds Thresholds) *Aggregator {
	return &Aggregator{
		metrics:    metrics,
		alerts:     alerts,
		thresholds: thresholds,
		now:        time.Now,
	}
}

// Summary aggregates the metrics of one window
func (a *Aggregator) Summary(ctx context.Context, clinicID string, window time.Duration) (*Summary, error) {
	end := a.now()
	start := end.Add(-window)

	rows, err := a.metrics.QueryWindow(ctx, clinicID, start)
	if err != nil {
		return nil, &StoreError{Op: "query", Err: err}
	}
	return BuildSummary(rows, a.thresholds, start, end), nil
}

// Dashboard runs the summary aggregation and the recent-alert lookup
// concurrently and merges the results
func (a *Aggregator) Dashboard(ctx context.Context, clinicID string, window time.Duration) (*DashboardData, error) {
	var (
		summary *Summary
		recent  []domain.PerformanceAlert
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = a.Summary(gctx, clinicID, window)
		return err
	})
	g.Go(func() error {
		alerts, err := a.alerts.Recent(gctx, clinicID, 10)
		if err != nil {
			return &StoreError{Op: "query", Err: err}
		}
		recent = alerts
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if recent == nil {
		recent = []domain.PerformanceAlert{}
	}
	return &DashboardData{Summary: summary, RecentAlerts: recent}, nil
}
