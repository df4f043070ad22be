package monitor

import (
	"github.com/clinicops/pulsewatch/config"
	"github.com/clinicops/pulsewatch/internal/domain"
)

// TierBounds performance tiers for metrics where a higher value is worse.
// Bounds are upper limits: a mean below Excellent is excellent, a mean at or
// above Poor is poor.
type TierBounds struct {
	Excellent  float64 `json:"excellent"`
	Good       float64 `json:"good"`
	Acceptable float64 `json:"acceptable"`
	Poor       float64 `json:"poor"`
}

// AvailabilityBounds percentage floors, direction inverted: lower is worse
type AvailabilityBounds struct {
	Target   float64 `json:"target"`
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// Thresholds the tier configuration used by the evaluator and the summary
// engine. Built once at startup and treated as immutable, a running engine
// never reloads bounds mid-flight.
type Thresholds struct {
	ResponseTime TierBounds         `json:"response_time"`
	ErrorRate    TierBounds         `json:"error_rate"`
	Availability AvailabilityBounds `json:"availability"`
}

// DefaultThresholds the clinic platform SLA tiers. Response times are
// milliseconds, error rates are percentages, availability is a percentage.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ResponseTime: TierBounds{Excellent: 50, Good: 100, Acceptable: 200, Poor: 500},
		ErrorRate:    TierBounds{Excellent: 0.1, Good: 0.5, Acceptable: 1.0, Poor: 2.0},
		Availability: AvailabilityBounds{Target: 99.9, Warning: 99.5, Critical: 99.0},
	}
}

// ThresholdsFromConfig builds the tier configuration for one deployment.
// Bounds left zero in the config keep their platform default, the result is
// constructed once at boot and never mutated afterwards.
func ThresholdsFromConfig(cfg config.ThresholdsConfig) Thresholds {
	t := DefaultThresholds()
	applyTierOverrides(&t.ResponseTime, cfg.ResponseTime)
	applyTierOverrides(&t.ErrorRate, cfg.ErrorRate)
	if cfg.Availability.Target > 0 {
		t.Availability.Target = cfg.Availability.Target
	}
	if cfg.Availability.Warning > 0 {
		t.Availability.Warning = cfg.Availability.Warning
	}
	if cfg.Availability.Critical > 0 {
		t.Availability.Critical = cfg.Availability.Critical
	}
	return t
}

func applyTierOverrides(bounds *TierBounds, cfg config.TierBoundsConfig) {
	if cfg.Excellent > 0 {
		bounds.Excellent = cfg.Excellent
	}
	if cfg.Good > 0 {
		bounds.Good = cfg.Good
	}
	if cfg.Acceptable > 0 {
		bounds.Acceptable = cfg.Acceptable
	}
	if cfg.Poor > 0 {
		bounds.Poor = cfg.Poor
	}
}

// Breach the outcome of assessing one group mean against its tiers
type Breach struct {
	Severity  string
	AlertType string
	Bound     float64
}

// Assess compares a group mean against the tiers of its metric kind and
// returns the breach when one exists. Metric kinds without tiers (throughput,
// user_sessions) never produce a breach.
func (t Thresholds) Assess(metricType domain.MetricType, mean float64) (Breach, bool) {
	switch metricType {
	case domain.MetricResponseTime:
		if mean >= t.ResponseTime.Poor {
			return Breach{Severity: domain.SeverityCritical, AlertType: domain.AlertPerformanceDegradation, Bound: t.ResponseTime.Poor}, true
		}
		if mean > t.ResponseTime.Acceptable {
			return Breach{Severity: domain.SeverityMedium, AlertType: domain.AlertPerformanceDegradation, Bound: t.ResponseTime.Acceptable}, true
		}
	case domain.MetricErrorRate:
		if mean >= t.ErrorRate.Poor {
			return Breach{Severity: domain.SeverityCritical, AlertType: domain.AlertHighErrorRate, Bound: t.ErrorRate.Poor}, true
		}
		if mean > t.ErrorRate.Acceptable {
			return Breach{Severity: domain.SeverityMedium, AlertType: domain.AlertHighErrorRate, Bound: t.ErrorRate.Acceptable}, true
		}
	case domain.MetricAvailability:
		if mean <= t.Availability.Critical {
			return Breach{Severity: domain.SeverityCritical, AlertType: domain.AlertSlaBreach, Bound: t.Availability.Critical}, true
		}
		if mean < t.Availability.Warning {
			return Breach{Severity: domain.SeverityMedium, AlertType: domain.AlertSlaBreach, Bound: t.Availability.Warning}, true
		}
	}
	return Breach{}, false
}

// SLAScore maps a service's average response time onto the compliance score
// shown on the dashboard: 100 within the good tier, 75 within acceptable,
// 50 beyond that.
func (t Thresholds) SLAScore(avgResponseTime float64) int {
	switch {
	case avgResponseTime < t.ResponseTime.Good:
		return 100
	case avgResponseTime < t.ResponseTime.Acceptable:
		return 75
	default:
		return 50
	}
}

// EstimateAvailability derives the overall availability figure from the
// overall error rate. Two values only, refining this needs real probe history.
func (t Thresholds) EstimateAvailability(errorRate float64) float64 {
	if errorRate < 1.0 {
		return t.Availability.Target
	}
	return t.Availability.Critical
}
