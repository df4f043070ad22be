package monitorapi

import (
	"net/http"
	"time"

	"github.com/clinicops/pulsewatch/internal/monitor"
	"github.com/clinicops/pulsewatch/internal/webserver"
	"github.com/clinicops/pulsewatch/pkg/common"
	"github.com/labstack/echo/v4"
)

// ingestPayload represents one metric batch submission
type ingestPayload struct {
	Metrics []monitor.MetricInput `json:"metrics" validate:"required,min=1,dive"`
}

// registerIngestRoutes registers metric ingestion routes
func registerIngestRoutes() {
	webserver.ApiPOST("/metrics", IngestMetrics)
}

// IngestMetrics accepts a metric batch, stores it and evaluates it for
// alerts. The batch is atomic: one invalid entry rejects the whole batch
// with no rows written.
func IngestMetrics(c echo.Context) error {
	started := time.Now()

	var payload ingestPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "metrics batch failed validation")
	}

	result, err := GetAppContext(c).Monitor().Ingest(c.Request().Context(), payload.Metrics)
	if err != nil {
		if monitor.IsValidationError(err) {
			return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		}
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
	}

	return ok(c, map[string]interface{}{
		"success":          true,
		"metrics_stored":   result.Stored,
		"alerts_generated": len(result.AlertsGenerated),
		"response_time_ms": common.MillisSince(started),
		"timestamp":        time.Now(),
	})
}
