package monitorapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/clinicops/pulsewatch/internal/webserver"
	"github.com/labstack/echo/v4"
)

// schedulerUpdatePayload relaxes validation rules for partial updates
type schedulerUpdatePayload struct {
	Interval int    `json:"interval" validate:"omitempty,min=10"`
	Status   string `json:"status" validate:"omitempty,oneof=enabled disabled"`
	Remark   string `json:"remark" validate:"omitempty,max=500"`
}

// registerSchedulerRoutes registers the polling contract routes
func registerSchedulerRoutes() {
	webserver.ApiGET("/schedulers", ListSchedulers)
	webserver.ApiGET("/schedulers/:id", GetScheduler)
	webserver.ApiPUT("/schedulers/:id", UpdateScheduler)
	webserver.ApiPOST("/schedulers/:id/run", TriggerScheduler)
}

// ListSchedulers retrieves the scheduler list
func ListSchedulers(c echo.Context) error {
	page, pageSize := parsePagination(c)
	db := GetDB(c).Model(&domain.MonitorScheduler{})

	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}
	if taskType := strings.TrimSpace(c.QueryParam("task_type")); taskType != "" {
		db = db.Where("task_type = ?", taskType)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
	}

	var schedulers []domain.MonitorScheduler
	if err := db.Order("id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&schedulers).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
	}
	return paged(c, schedulers, total, page, pageSize)
}

// GetScheduler fetches a single scheduler
func GetScheduler(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "invalid scheduler id")
	}

	var scheduler domain.MonitorScheduler
	if err := GetDB(c).First(&scheduler, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "scheduler not found")
	}
	return ok(c, scheduler)
}

// UpdateScheduler adjusts interval, status or remark of one scheduler
func UpdateScheduler(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "invalid scheduler id")
	}

	var payload schedulerUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "malformed request body")
	}
	if err := c.Validate(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", "request failed validation")
	}

	db := GetDB(c)
	var scheduler domain.MonitorScheduler
	if err := db.First(&scheduler, id).Error; err != nil {
		return fail(c, http.StatusNotFound, "NOT_FOUND", "scheduler not found")
	}

	updates := map[string]interface{}{}
	if payload.Interval > 0 {
		updates["interval"] = payload.Interval
	}
	if payload.Status != "" {
		updates["status"] = payload.Status
	}
	if payload.Remark != "" {
		updates["remark"] = payload.Remark
	}
	if len(updates) > 0 {
		if err := db.Model(&domain.MonitorScheduler{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
		}
	}

	if err := db.First(&scheduler, id).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "STORE_ERROR", err.Error())
	}
	return ok(c, scheduler)
}

// TriggerScheduler triggers the scheduler immediately
func TriggerScheduler(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "invalid scheduler id")
	}

	if err := GetAppContext(c).RunSchedulerNow(id); err != nil {
		return fail(c, http.StatusInternalServerError, "RUN_FAILED", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
