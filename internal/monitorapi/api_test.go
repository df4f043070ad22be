package monitorapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/clinicops/pulsewatch/config"
	"github.com/clinicops/pulsewatch/internal/app"
	"github.com/clinicops/pulsewatch/internal/domain"
	"github.com/clinicops/pulsewatch/internal/webserver"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	setupOnce  sync.Once
	testServer *webserver.WebServer
	testApp    *app.Application
)

// setupAPI builds one shared server over a shared in-memory store, the
// prometheus middleware registers collectors globally and must not run twice
func setupAPI(t *testing.T) *echo.Echo {
	t.Helper()
	setupOnce.Do(func() {
		cfg := *config.DefaultAppConfig
		cfg.Web.Debug = false
		cfg.Logger.FileEnable = false

		db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			panic(err)
		}
		testApp = app.NewTestApplication(&cfg, db)
		testServer = webserver.Init(testApp)
		InitRouter()
	})

	// isolate tests from each other's data, schedulers and settings stay seeded
	for _, model := range []interface{}{
		&domain.PerformanceMetric{}, &domain.PerformanceAlert{}, &domain.HealthCheckRecord{},
	} {
		require.NoError(t, testApp.DB().Where("1 = 1").Delete(model).Error)
	}
	return testServer.Echo()
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestIngestMetricsEndpoint(t *testing.T) {
	e := setupAPI(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/monitor/metrics", `{
		"metrics": [
			{"metric_type": "response_time", "metric_value": 120, "service_name": "api"},
			{"metric_type": "error_rate", "metric_value": 0.2, "service_name": "api"},
			{"metric_type": "throughput", "metric_value": 900, "service_name": "gateway"}
		]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 3, body["metrics_stored"])
	assert.EqualValues(t, 0, body["alerts_generated"])
	assert.Contains(t, body, "response_time_ms")
	assert.Contains(t, body, "timestamp")
}

func TestIngestMetricsEndpointBreach(t *testing.T) {
	e := setupAPI(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/monitor/metrics", `{
		"metrics": [
			{"metric_type": "response_time", "metric_value": 650, "service_name": "database"}
		]
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["alerts_generated"])

	var alert domain.PerformanceAlert
	require.NoError(t, testApp.DB().First(&alert).Error)
	assert.Equal(t, domain.SeverityCritical, alert.Severity)
	assert.Contains(t, alert.Description, "database")
	assert.Contains(t, alert.Description, "650")
}

func TestIngestMetricsEndpointRejectsBadBatch(t *testing.T) {
	e := setupAPI(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/monitor/metrics", `{
		"metrics": [
			{"metric_type": "response_time", "metric_value": 100, "service_name": "api"},
			{"metric_type": "made_up", "metric_value": 1, "service_name": "api"}
		]
	}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
	assert.Contains(t, body, "message")
	assert.Contains(t, body, "timestamp")

	// no side effects from a rejected batch
	var count int64
	require.NoError(t, testApp.DB().Model(&domain.PerformanceMetric{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestIngestMetricsEndpointEmptyBody(t *testing.T) {
	e := setupAPI(t)
	rec := doJSON(e, http.MethodPost, "/api/v1/monitor/metrics", `{"metrics": []}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheckEndpoint(t *testing.T) {
	e := setupAPI(t)

	rec := doJSON(e, http.MethodGet, "/api/v1/monitor/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	// default config probes the database only, sqlite answers instantly
	assert.Equal(t, domain.HealthHealthy, body["overall_status"])
	assert.Equal(t, true, body["sla_compliance"])
	services, ok := body["services"].([]interface{})
	require.True(t, ok)
	require.Len(t, services, 1)
	first := services[0].(map[string]interface{})
	assert.Equal(t, "database", first["service"])
	assert.Equal(t, domain.HealthHealthy, first["status"])
}

func TestGenerateAlertsEndpoint(t *testing.T) {
	e := setupAPI(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/monitor/metrics", `{
		"metrics": [{"metric_type": "response_time", "metric_value": 800, "service_name": "database"}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/api/v1/monitor/alerts/generate", `{"time_window": "5m"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	assert.EqualValues(t, 1, body["metrics_analyzed"])
	assert.Equal(t, "300s", body["time_window"])
	alerts, ok := body["alerts"].([]interface{})
	require.True(t, ok)
	require.Len(t, alerts, 1)
}

func TestGenerateAlertsEndpointDefaultWindow(t *testing.T) {
	e := setupAPI(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/monitor/alerts/generate", `{}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "300s", body["time_window"])
	alerts, ok := body["alerts"].([]interface{})
	require.True(t, ok)
	assert.Empty(t, alerts)
}

func TestDashboardEndpoint(t *testing.T) {
	e := setupAPI(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/monitor/metrics", `{
		"metrics": [
			{"metric_type": "response_time", "metric_value": 90, "service_name": "api"},
			{"metric_type": "error_rate", "metric_value": 0.3, "service_name": "api"}
		]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/monitor/dashboard?time_range=1h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)

	summary, ok := body["summary"].(map[string]interface{})
	require.True(t, ok)
	assert.EqualValues(t, 2, summary["metrics_analyzed"])
	assert.Contains(t, body, "recent_alerts")
	assert.Equal(t, "1h", body["time_range"])
}

func TestListAlertsEndpoint(t *testing.T) {
	e := setupAPI(t)

	rec := doJSON(e, http.MethodPost, "/api/v1/monitor/metrics", `{
		"metrics": [{"metric_type": "error_rate", "metric_value": 5, "service_name": "api"}]
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/api/v1/monitor/alerts?severity=critical", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 1, body["total"])

	rec = doJSON(e, http.MethodGet, "/api/v1/monitor/alerts?severity=low", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decodeBody(t, rec)
	assert.EqualValues(t, 0, body["total"])
}

func TestHealthHistoryEndpoint(t *testing.T) {
	e := setupAPI(t)

	rec := doJSON(e, http.MethodGet, "/api/v1/monitor/health/history?service=database&time_range=1h", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 100, body["uptime"])
}

func TestSchedulerEndpoints(t *testing.T) {
	e := setupAPI(t)

	rec := doJSON(e, http.MethodGet, "/api/v1/monitor/schedulers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.EqualValues(t, 3, body["total"])

	var sched domain.MonitorScheduler
	require.NoError(t, testApp.DB().Where("task_type = ?", "health_check").First(&sched).Error)

	// run it now, the sqlite probe is healthy so a record lands in history
	rec = doJSON(e, http.MethodPost, "/api/v1/monitor/schedulers/"+int64String(sched.ID)+"/run", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	var after domain.MonitorScheduler
	require.NoError(t, testApp.DB().First(&after, sched.ID).Error)
	assert.Equal(t, "success", after.LastResult)
	assert.False(t, after.LastRunAt.IsZero())

	var records int64
	require.NoError(t, testApp.DB().Model(&domain.HealthCheckRecord{}).Count(&records).Error)
	assert.EqualValues(t, 1, records)

	// disable it through the update route
	rec = doJSON(e, http.MethodPut, "/api/v1/monitor/schedulers/"+int64String(sched.ID), `{"status": "disabled"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, testApp.DB().First(&after, sched.ID).Error)
	assert.Equal(t, "disabled", after.Status)

	// restore for the other tests
	require.NoError(t, testApp.DB().Model(&domain.MonitorScheduler{}).
		Where("id = ?", sched.ID).Update("status", "enabled").Error)
}

func int64String(v int64) string {
	return strconv.FormatInt(v, 10)
}
