package monitorapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/clinicops/pulsewatch/internal/app"
	"github.com/clinicops/pulsewatch/internal/webserver"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// InitRouter registers all monitor API routes. Call after webserver.Init.
func InitRouter() {
	registerIngestRoutes()
	registerHealthRoutes()
	registerAlertRoutes()
	registerDashboardRoutes()
	registerSchedulerRoutes()
}

// GetAppContext extracts the application container from the request context
func GetAppContext(c echo.Context) app.AppContext {
	return c.Get(webserver.ContextAppKey).(app.AppContext)
}

// GetDB extracts the database handle from the request context
func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB()
}

// fail renders the uniform error body
func fail(c echo.Context, status int, code, message string) error {
	return c.JSON(status, map[string]interface{}{
		"error":     code,
		"message":   message,
		"timestamp": time.Now(),
	})
}

// ok renders a payload as-is
func ok(c echo.Context, data interface{}) error {
	return c.JSON(http.StatusOK, data)
}

// paged renders a list payload with its paging envelope
func paged(c echo.Context, data interface{}, total int64, page, pageSize int) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":      data,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	})
}

func parsePagination(c echo.Context) (page, pageSize int) {
	page, _ = strconv.Atoi(c.QueryParam("page"))
	pageSize, _ = strconv.Atoi(c.QueryParam("perPage"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return page, pageSize
}
