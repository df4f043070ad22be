package monitorapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/clinicops/pulsewatch/internal/monitor"
	"github.com/clinicops/pulsewatch/internal/webserver"
	"github.com/labstack/echo/v4"
)

// generatePayload parameters for one alert generation pass
type generatePayload struct {
	ClinicID   string `json:"clinic_id" validate:"omitempty,max=64"`
	TimeWindow string `json:"time_window" validate:"omitempty,max=16"`
}

// registerAlertRoutes registers alert routes. The alert trail is append-only,
// no mutation routes exist.
func registerAlertRoutes() {
	webserver.ApiPOST("/alerts/generate", GenerateAlerts)
	webserver.ApiGET("/alerts", ListAlerts)
}

// GenerateAlerts evaluates the stored metrics of a window and returns the
// generated alerts. An empty or malformed time_window falls back to the
// default window.
func GenerateAlerts(c echo.Context) error {
	var payload generatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "request failed validation")
	}

	result, err := GetAppContext(c).Monitor().GenerateAlerts(
		c.Request().Context(), payload.ClinicID, payload.TimeWindow)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
	}

	return ok(c, map[string]interface{}{
		"alerts":           result.Alerts,
		"metrics_analyzed": result.MetricsAnalyzed,
		"time_window":      result.Window,
		"clinic_id":        payload.ClinicID,
		"timestamp":        time.Now(),
	})
}

// ListAlerts returns the paginated alert history with optional filters
func ListAlerts(c echo.Context) error {
	page, pageSize := parsePagination(c)
	filter := monitor.AlertFilter{
		AlertType: strings.TrimSpace(c.QueryParam("alert_type")),
		Severity:  strings.TrimSpace(c.QueryParam("severity")),
		ClinicID:  strings.TrimSpace(c.QueryParam("clinic_id")),
	}

	alerts, total, err := GetAppContext(c).Monitor().Alerts().List(
		c.Request().Context(), filter, page, pageSize)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
	}
	return paged(c, alerts, total, page, pageSize)
}
