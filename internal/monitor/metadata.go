package monitor

import (
	"github.com/clinicops/pulsewatch/internal/domain"
	jsoniter "github.com/json-iterator/go"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Typed metadata carried by each metric kind. Reporters may attach extra
// keys, those survive as an opaque extension map, but the known fields must
// carry the right types.

type ResponseTimeMetadata struct {
	Method     string `mapstructure:"method" json:"method,omitempty"`
	StatusCode int    `mapstructure:"status_code" json:"status_code,omitempty"`
	CacheHit   bool   `mapstructure:"cache_hit" json:"cache_hit,omitempty"`
}

type ErrorRateMetadata struct {
	RequestCount int `mapstructure:"request_count" json:"request_count,omitempty"`
	ErrorCount   int `mapstructure:"error_count" json:"error_count,omitempty"`
}

type ThroughputMetadata struct {
	WindowSeconds int `mapstructure:"window_seconds" json:"window_seconds,omitempty"`
}

type AvailabilityMetadata struct {
	ProbeSource string `mapstructure:"probe_source" json:"probe_source,omitempty"`
}

type UserSessionsMetadata struct {
	Peak bool `mapstructure:"peak" json:"peak,omitempty"`
}

// normalizeMetadata validates the metadata map of one metric entry against
// the typed schema of its kind and returns the canonical JSON to store.
// Unknown keys are allowed, type mismatches on known keys are not.
func normalizeMetadata(metricType domain.MetricType, raw map[string]interface{}) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}

	var target interface{}
	switch metricType {
	case domain.MetricResponseTime:
		target = &ResponseTimeMetadata{}
	case domain.MetricErrorRate:
		target = &ErrorRateMetadata{}
	case domain.MetricThroughput:
		target = &ThroughputMetadata{}
	case domain.MetricAvailability:
		target = &AvailabilityMetadata{}
	case domain.MetricUserSessions:
		target = &UserSessionsMetadata{}
	default:
		return "", errors.Errorf("no metadata schema for metric type %q", metricType)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result: target,
	})
	if err != nil {
		return "", errors.Wrap(err, "metadata decoder")
	}
	if err := decoder.Decode(raw); err != nil {
		return "", err
	}

	out, err := json.Marshal(raw)
	if err != nil {
		return "", errors.Wrap(err, "metadata marshal")
	}
	return string(out), nil
}
