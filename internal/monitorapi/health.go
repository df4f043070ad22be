package monitorapi

import (
	"net/http"

	"github.com/clinicops/pulsewatch/internal/webserver"
	"github.com/labstack/echo/v4"
)

// registerHealthRoutes registers health check routes
func registerHealthRoutes() {
	webserver.ApiGET("/health", HealthCheck)
	webserver.ApiGET("/health/history", HealthHistory)
}

// HealthCheck probes every dependent service concurrently and reports the
// merged outcome. Degraded or unhealthy states are data, the call itself
// never fails.
func HealthCheck(c echo.Context) error {
	report := GetAppContext(c).Checker().Check(c.Request().Context())
	return ok(c, report)
}

// HealthHistory lists persisted probe outcomes plus the uptime share
// derived from them
func HealthHistory(c echo.Context) error {
	appCtx := GetAppContext(c)
	result, err := appCtx.Monitor().HealthHistory(
		c.Request().Context(),
		c.QueryParam("service"),
		c.QueryParam("time_range"),
	)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
	}
	return ok(c, result)
}
