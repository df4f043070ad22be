package monitorapi

import (
	"net/http"
	"time"

	"github.com/clinicops/pulsewatch/internal/webserver"
	"github.com/labstack/echo/v4"
)

// registerDashboardRoutes registers dashboard routes
func registerDashboardRoutes() {
	webserver.ApiGET("/dashboard", DashboardSummary)
}

// DashboardSummary aggregates the SLA summary of a window plus the most
// recent alerts for one clinic view
func DashboardSummary(c echo.Context) error {
	clinicID := c.QueryParam("clinic_id")
	timeRange := c.QueryParam("time_range")

	data, err := GetAppContext(c).Monitor().Dashboard(c.Request().Context(), clinicID, timeRange)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
	}

	return ok(c, map[string]interface{}{
		"summary":       data.Summary,
		"recent_alerts": data.RecentAlerts,
		"time_range":    timeRange,
		"clinic_id":     clinicID,
		"timestamp":     time.Now(),
	})
}
