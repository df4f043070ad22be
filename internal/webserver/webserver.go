package webserver

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/clinicops/pulsewatch/internal/app"
	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ContextAppKey carries the application container on every echo context
const ContextAppKey = "pulsewatch_app"

var server *WebServer

// WebServer the admin/ingest HTTP server
type WebServer struct {
	root   *echo.Echo
	api    *echo.Group
	appCtx app.AppContext
}

// Init builds the echo server: jsoniter serializer, payload validator,
// recover + request logging middleware, prometheus middleware and the
// application injection middleware every handler relies on.
func Init(appCtx app.AppContext) *WebServer {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = appCtx.Config().Web.Debug
	e.Logger.SetLevel(log.ERROR)
	e.JSONSerializer = &JsoniterSerializer{}
	e.Validator = &PayloadValidator{validate: validator.New()}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(ContextAppKey, appCtx)
			return next(c)
		}
	})
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			zap.L().Debug("http request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	e.Use(echoprometheus.NewMiddleware("pulsewatch"))
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{
		Gatherer: prometheus.DefaultGatherer,
	}))

	server = &WebServer{
		root:   e,
		api:    e.Group("/api/v1/monitor"),
		appCtx: appCtx,
	}
	return server
}

// Start blocks serving HTTP until shutdown
func (s *WebServer) Start() error {
	cfg := s.appCtx.Config().Web
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	zap.S().Infof("starting webserver on %s", addr)
	s.root.Server.ReadTimeout = 30 * time.Second
	s.root.Server.WriteTimeout = 30 * time.Second
	return s.root.Start(addr)
}

// Echo exposes the underlying server for tests
func (s *WebServer) Echo() *echo.Echo {
	return s.root
}

// ApiGET registers a GET route below the monitor api prefix
func ApiGET(path string, h echo.HandlerFunc) {
	server.api.GET(path, h)
}

// ApiPOST registers a POST route below the monitor api prefix
func ApiPOST(path string, h echo.HandlerFunc) {
	server.api.POST(path, h)
}

// ApiPUT registers a PUT route below the monitor api prefix
func ApiPUT(path string, h echo.HandlerFunc) {
	server.api.PUT(path, h)
}

// PayloadValidator adapts go-playground/validator onto echo
type PayloadValidator struct {
	validate *validator.Validate
}

func (v *PayloadValidator) Validate(i interface{}) error {
	if err := v.validate.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// JsoniterSerializer drop-in JSON serializer backed by json-iterator
type JsoniterSerializer struct{}

func (JsoniterSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (JsoniterSerializer) Deserialize(c echo.Context, i interface{}) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	if err == io.EOF {
		return echo.NewHTTPError(http.StatusBadRequest, "empty request body").SetInternal(err)
	}
	return err
}
